package netlist

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"

	"github.com/OpenTraceLab/kicadsync/pkg/circuit"
	"github.com/OpenTraceLab/kicadsync/pkg/kicad/sexp"
)

// Parser parses circuit description files.
type Parser struct {
	parser *participle.Parser[File]
}

// NewParser creates a new circuit description parser instance.
func NewParser() (*Parser, error) {
	parser, err := participle.Build[File](
		participle.Lexer(CktLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}

	return &Parser{parser: parser}, nil
}

// Parse parses a circuit description from a reader.
func (p *Parser) Parse(r io.Reader) (*File, error) {
	file, err := p.parser.Parse("", r)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return file, nil
}

// ParseString parses a circuit description from a string.
func (p *Parser) ParseString(input string) (*File, error) {
	file, err := p.parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return file, nil
}

// ParseFile parses a circuit description from a file path.
func (p *Parser) ParseFile(filename string) (*File, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return p.Parse(f)
}

// Library builds a symbol library from the file's symbol declarations.
func (f *File) Library() *circuit.StaticLibrary {
	lib := circuit.NewStaticLibrary()
	for _, sym := range f.Symbols {
		pins := make([]circuit.PinSpec, 0, len(sym.Pins))
		for _, pin := range sym.Pins {
			spec := circuit.PinSpec{
				Number: pin.Number,
				Type:   "passive",
				Offset: sexp.Position{X: float64(pin.X), Y: float64(pin.Y)},
				Length: 2.54,
			}
			if pin.Name != nil {
				spec.Name = string(*pin.Name)
			}
			if pin.Type != nil {
				spec.Type = *pin.Type
			}
			if pin.Angle != nil {
				spec.Angle = sexp.Angle(*pin.Angle)
			}
			if pin.Length != nil {
				spec.Length = float64(*pin.Length)
			}
			pins = append(pins, spec)
		}
		lib.Add(string(sym.ID), pins)
	}
	return lib
}

// Circuit converts the parsed file into the snapshot model. Child sheets
// must name a file; the root's file is optional because the engine takes
// its paths from the caller.
func (f *File) Circuit() (*circuit.Sheet, error) {
	return convertSheet(f.Sheet, true)
}

func convertSheet(decl *SheetDecl, isRoot bool) (*circuit.Sheet, error) {
	if !isRoot && decl.File == "" {
		return nil, fmt.Errorf("netlist: child sheet %q declares no file", decl.Name)
	}

	sheet := &circuit.Sheet{
		Name: string(decl.Name),
		File: string(decl.File),
	}

	for _, stmt := range decl.Stmts {
		switch {
		case stmt.Component != nil:
			sheet.Components = append(sheet.Components, convertComponent(stmt.Component))
		case stmt.Net != nil:
			sheet.Nets = append(sheet.Nets, convertNet(stmt.Net))
		case stmt.Port != nil:
			sheet.Ports = append(sheet.Ports, circuit.Port{
				Name: stmt.Port.Name,
				Dir:  stmt.Port.Dir,
			})
		case stmt.Child != nil:
			child, err := convertSheet(stmt.Child, false)
			if err != nil {
				return nil, err
			}
			sheet.Children = append(sheet.Children, child)
		}
	}
	return sheet, nil
}

func convertComponent(decl *ComponentDecl) circuit.Component {
	comp := circuit.Component{
		Ref:   decl.Ref,
		LibID: string(decl.LibID),
	}
	if decl.Value != nil {
		comp.Value = string(*decl.Value)
	}
	if decl.Footprint != nil {
		comp.Footprint = string(*decl.Footprint)
	}
	for _, prop := range decl.Props {
		comp.Extra = append(comp.Extra, circuit.KV{
			Key:   string(prop.Key),
			Value: string(prop.Value),
		})
	}
	return comp
}

func convertNet(decl *NetDecl) circuit.Net {
	net := circuit.Net{Name: decl.NetName()}
	switch {
	case decl.Power:
		yes := true
		net.Power = &yes
	case decl.Signal:
		no := false
		net.Power = &no
	}
	if decl.Symbol != nil {
		net.PowerSymbol = string(*decl.Symbol)
	}
	for _, end := range decl.Ends {
		net.Endpoints = append(net.Endpoints, circuit.Endpoint{
			Ref: end.Ref,
			Pin: end.Pin,
		})
	}
	return net
}

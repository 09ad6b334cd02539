package netlist

import (
	"fmt"
	"strconv"
)

// QString is a quoted string literal, captured without quotes.
type QString string

func (s *QString) Capture(values []string) error {
	v, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = QString(v)
	return nil
}

// Number is a numeric literal. Negative integers lex as identifiers because
// the sign characters also start rail names, so capture parses the token
// instead of trusting its type.
type Number float64

func (n *Number) Capture(values []string) error {
	v, err := strconv.ParseFloat(values[0], 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", values[0])
	}
	*n = Number(v)
	return nil
}

// File is a complete circuit description: symbol pin declarations followed
// by one root sheet declaration.
type File struct {
	Symbols []*SymbolDecl `parser:"@@*"`
	Sheet   *SheetDecl    `parser:"@@"`
}

// SymbolDecl declares the pin geometry of a library symbol so the engine
// can validate endpoints and anchor net labels.
// Example: symbol "Device:R" { pin 1 at 0 3.81 angle 270  pin 2 at 0 -3.81 angle 90 }
type SymbolDecl struct {
	ID   QString    `parser:"KwSymbol @String"`
	Pins []*PinDecl `parser:"LBrace @@* RBrace"`
}

// PinDecl declares one pin: number, optional name and electrical type,
// offset from the symbol origin, and orientation.
type PinDecl struct {
	Number string   `parser:"KwPin @( Ident | Int )"`
	Name   *QString `parser:"( KwName @String )?"`
	Type   *string  `parser:"( KwType @Ident )?"`
	X      Number   `parser:"KwAt @( Float | Int | Ident )"`
	Y      Number   `parser:"@( Float | Int | Ident )"`
	Angle  *Number  `parser:"( KwAngle @( Float | Int | Ident ) )?"`
	Length *Number  `parser:"( KwLength @( Float | Int | Ident ) )?"`
}

// SheetDecl declares one schematic sheet.
// Example: sheet "main" { ... }
type SheetDecl struct {
	Name  QString `parser:"KwSheet @String"`
	File  QString `parser:"( KwFile @String )?"`
	Stmts []*Stmt `parser:"LBrace @@* RBrace"`
}

// Stmt is one statement in a sheet body.
type Stmt struct {
	Component *ComponentDecl `parser:"  @@"`
	Net       *NetDecl       `parser:"| @@"`
	Port      *PortDecl      `parser:"| @@"`
	Child     *SheetDecl     `parser:"| @@"`
}

// ComponentDecl declares one component instance.
// Example: component R1 lib "Device:R" value "10k" footprint "R_0603"
type ComponentDecl struct {
	Ref       string      `parser:"KwComponent @Ident"`
	LibID     QString     `parser:"KwLib @String"`
	Value     *QString    `parser:"( KwValue @String )?"`
	Footprint *QString    `parser:"( KwFootprint @String )?"`
	Props     []*PropDecl `parser:"@@*"`
}

// PropDecl attaches an extra property to a component.
// Example: prop "MPN" "RC0603FR-0710KL"
type PropDecl struct {
	Key   QString `parser:"KwProp @String"`
	Value QString `parser:"@String"`
}

// NetDecl declares a net with its member endpoints. The optional power or
// signal marker overrides automatic power classification; symbol forces a
// specific power symbol identifier.
// Example: net VCC { R1.1 U1.3 }
type NetDecl struct {
	Name      string         `parser:"KwNet ( @Ident"`
	QuoteName *QString       `parser:"       | @String )"`
	Power     bool           `parser:"( @KwPower"`
	Signal    bool           `parser:"  | @KwSignal )?"`
	Symbol    *QString       `parser:"( KwSymbol @String )?"`
	Ends      []*EndpointRef `parser:"LBrace @@* RBrace"`
}

// NetName returns the declared net name regardless of quoting.
func (n *NetDecl) NetName() string {
	if n.QuoteName != nil {
		return string(*n.QuoteName)
	}
	return n.Name
}

// EndpointRef names one pin of one component, e.g. R1.1 or U3.A12.
type EndpointRef struct {
	Ref string `parser:"@Ident Dot"`
	Pin string `parser:"@( Ident | Int )"`
}

// PortDecl exposes a net across the sheet boundary.
// Example: port CLK input
type PortDecl struct {
	Name string `parser:"KwPort @Ident"`
	Dir  string `parser:"@( KwInput | KwOutput | KwBidi )"`
}

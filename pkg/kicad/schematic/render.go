package schematic

import (
	"strings"

	"github.com/OpenTraceLab/kicadsync/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kicadsync/pkg/kicad/sexp/kicadsexp"
)

// Bytes serializes the document. Nodes still carrying their source text are
// emitted verbatim; new and mutated nodes are rendered in KiCad style.
func (d *Document) Bytes() []byte {
	var b strings.Builder
	b.WriteString("(kicad_sch\n")

	if d.Fresh {
		b.WriteString("\t(version " + sexp.FormatFloat(float64(d.Version)) + ")\n")
		b.WriteString("\t(generator " + quote(d.Generator) + ")\n")
		b.WriteString("\t(generator_version " + quote(d.GeneratorVersion) + ")\n")
		b.WriteString("\t(uuid " + quote(string(d.UUID)) + ")\n")
		b.WriteString("\t(paper " + quote(d.Paper) + ")\n")
	}

	for _, n := range d.nodes {
		if n.removed {
			continue
		}
		b.WriteString("\t")
		b.WriteString(d.renderNode(n))
		b.WriteString("\n")
	}

	if d.Fresh {
		b.WriteString("\t(sheet_instances\n\t\t(path \"/\"\n\t\t\t(page \"1\")\n\t\t)\n\t)\n")
	}

	b.WriteString(")\n")
	return []byte(b.String())
}

func (d *Document) renderNode(n *docNode) string {
	if n.raw != "" {
		return n.raw
	}
	switch n.kind {
	case kindComponent:
		return kicadsexp.Render(componentNode(n.comp), 1)
	case kindVisual:
		return kicadsexp.Render(visualNode(n.vis), 1)
	case kindSheet:
		return kicadsexp.Render(sheetNode(n.sheet), 1)
	case kindLibSymbols:
		return d.renderLibSymbols()
	default:
		return n.raw
	}
}

// renderLibSymbols rebuilds the lib_symbols block: preserved entries come
// through verbatim, freshly registered ones are appended.
func (d *Document) renderLibSymbols() string {
	if len(d.libRaw) == 0 && len(d.libAdded) == 0 {
		return "(lib_symbols)"
	}
	var b strings.Builder
	b.WriteString("(lib_symbols")
	for _, raw := range d.libRaw {
		b.WriteString("\n\t\t")
		b.WriteString(raw)
	}
	for _, rendered := range d.libAdded {
		b.WriteString("\n\t\t")
		b.WriteString(rendered)
	}
	b.WriteString("\n\t)")
	return b.String()
}

func quote(s string) string {
	n := kicadsexp.Str(s)
	return n.String()
}

func atNode(pos Position, angle Angle) *kicadsexp.Node {
	return kicadsexp.List(
		kicadsexp.Atom("at"),
		kicadsexp.Atom(sexp.FormatFloat(pos.X)),
		kicadsexp.Atom(sexp.FormatFloat(pos.Y)),
		kicadsexp.Atom(sexp.FormatFloat(float64(angle))),
	)
}

func uuidNode(id UUID) *kicadsexp.Node {
	return kicadsexp.List(kicadsexp.Atom("uuid"), kicadsexp.Str(string(id)))
}

func yesNo(v bool) *kicadsexp.Node {
	if v {
		return kicadsexp.Atom("yes")
	}
	return kicadsexp.Atom("no")
}

func effectsNode(raw string, hide bool) *kicadsexp.Node {
	if raw != "" {
		return kicadsexp.RawNode(raw)
	}
	font := kicadsexp.List(
		kicadsexp.Atom("font"),
		kicadsexp.List(kicadsexp.Atom("size"), kicadsexp.Atom("1.27"), kicadsexp.Atom("1.27")),
	)
	eff := kicadsexp.List(kicadsexp.Atom("effects"), font)
	if hide {
		eff.Children = append(eff.Children, kicadsexp.List(kicadsexp.Atom("hide"), kicadsexp.Atom("yes")))
	}
	return eff
}

func propertyNode(p Property) *kicadsexp.Node {
	n := kicadsexp.List(
		kicadsexp.Atom("property"),
		kicadsexp.Str(p.Key),
		kicadsexp.Str(p.Value),
	)
	if p.HasPos {
		n.Children = append(n.Children, atNode(p.Pos.Position, p.Pos.Angle))
	}
	n.Children = append(n.Children, effectsNode(p.EffectsRaw, p.Hide))
	return n
}

func instancesNode(info *InstanceInfo, ref string, unit int) *kicadsexp.Node {
	path := kicadsexp.List(
		kicadsexp.Atom("path"),
		kicadsexp.Str(info.Path),
		kicadsexp.List(kicadsexp.Atom("reference"), kicadsexp.Str(ref)),
		kicadsexp.List(kicadsexp.Atom("unit"), kicadsexp.Atom(sexp.FormatFloat(float64(unit)))),
	)
	project := kicadsexp.List(kicadsexp.Atom("project"), kicadsexp.Str(info.Project), path)
	return kicadsexp.List(kicadsexp.Atom("instances"), project)
}

func componentNode(c *Component) *kicadsexp.Node {
	n := kicadsexp.List(
		kicadsexp.Atom("symbol"),
		kicadsexp.List(kicadsexp.Atom("lib_id"), kicadsexp.Str(c.LibID)),
		atNode(c.Pos, c.Angle),
	)
	if c.Mirror != "" {
		n.Children = append(n.Children, kicadsexp.List(kicadsexp.Atom("mirror"), kicadsexp.Atom(c.Mirror)))
	}
	n.Children = append(n.Children,
		kicadsexp.List(kicadsexp.Atom("unit"), kicadsexp.Atom(sexp.FormatFloat(float64(c.Unit)))),
		kicadsexp.List(kicadsexp.Atom("in_bom"), yesNo(c.InBom)),
		kicadsexp.List(kicadsexp.Atom("on_board"), yesNo(c.OnBoard)),
		uuidNode(c.UUID),
	)
	for _, p := range c.Props {
		n.Children = append(n.Children, propertyNode(p))
	}
	for _, pin := range c.Pins {
		n.Children = append(n.Children, kicadsexp.List(
			kicadsexp.Atom("pin"),
			kicadsexp.Str(pin.Number),
			uuidNode(pin.UUID),
		))
	}
	if c.instancesRaw != "" {
		n.Children = append(n.Children, kicadsexp.RawNode(c.instancesRaw))
	} else if c.Instances != nil {
		n.Children = append(n.Children, instancesNode(c.Instances, c.Ref, c.Unit))
	}
	for _, raw := range c.extraRaw {
		n.Children = append(n.Children, kicadsexp.RawNode(raw))
	}
	return n
}

func visualNode(v *Visual) *kicadsexp.Node {
	if v.Kind == VisualPower {
		return powerSymbolNode(v)
	}

	var key string
	switch v.Kind {
	case VisualGlobalLabel:
		key = "global_label"
	case VisualHierLabel:
		key = "hierarchical_label"
	default:
		key = "label"
	}

	n := kicadsexp.List(kicadsexp.Atom(key), kicadsexp.Str(v.Text))
	if v.Kind != VisualLabel {
		shape := v.Shape
		if shape == "" {
			shape = "bidirectional"
		}
		n.Children = append(n.Children, kicadsexp.List(kicadsexp.Atom("shape"), kicadsexp.Atom(shape)))
	}
	n.Children = append(n.Children,
		atNode(v.Pos, v.Angle),
		effectsNode(v.effectsRaw, false),
		uuidNode(v.UUID),
	)
	return n
}

func powerSymbolNode(v *Visual) *kicadsexp.Node {
	n := kicadsexp.List(
		kicadsexp.Atom("symbol"),
		kicadsexp.List(kicadsexp.Atom("lib_id"), kicadsexp.Str(v.LibID)),
		atNode(v.Pos, v.Angle),
		kicadsexp.List(kicadsexp.Atom("unit"), kicadsexp.Atom("1")),
		kicadsexp.List(kicadsexp.Atom("in_bom"), kicadsexp.Atom("yes")),
		kicadsexp.List(kicadsexp.Atom("on_board"), kicadsexp.Atom("yes")),
		uuidNode(v.UUID),
		propertyNode(Property{
			Key:    "Reference",
			Value:  v.Ref,
			Pos:    PositionAngle{Position: v.Pos},
			HasPos: true,
			Hide:   true,
		}),
		propertyNode(Property{
			Key:    "Value",
			Value:  v.Text,
			Pos:    PositionAngle{Position: Position{X: v.Pos.X, Y: v.Pos.Y + 2.54}},
			HasPos: true,
		}),
	)
	pins := v.pins
	if len(pins) == 0 {
		pins = []PinRef{{Number: "1"}}
	}
	for _, pin := range pins {
		n.Children = append(n.Children, kicadsexp.List(
			kicadsexp.Atom("pin"),
			kicadsexp.Str(pin.Number),
			uuidNode(pin.UUID),
		))
	}
	if v.Instances != nil {
		n.Children = append(n.Children, instancesNode(v.Instances, v.Ref, 1))
	}
	for _, raw := range v.extraRaw {
		n.Children = append(n.Children, kicadsexp.RawNode(raw))
	}
	return n
}

func sheetNode(s *SheetRef) *kicadsexp.Node {
	n := kicadsexp.List(
		kicadsexp.Atom("sheet"),
		atNode(s.Pos, 0),
		kicadsexp.List(
			kicadsexp.Atom("size"),
			kicadsexp.Atom(sexp.FormatFloat(s.Size.Width)),
			kicadsexp.Atom(sexp.FormatFloat(s.Size.Height)),
		),
		uuidNode(s.UUID),
		propertyNode(Property{
			Key:    "Sheetname",
			Value:  s.Name,
			Pos:    PositionAngle{Position: Position{X: s.Pos.X, Y: s.Pos.Y - 1.27}},
			HasPos: true,
		}),
		propertyNode(Property{
			Key:    "Sheetfile",
			Value:  s.File,
			Pos:    PositionAngle{Position: Position{X: s.Pos.X, Y: s.Pos.Y + s.Size.Height + 1.27}},
			HasPos: true,
			Hide:   true,
		}),
	)
	for _, p := range s.Props {
		n.Children = append(n.Children, propertyNode(p))
	}
	for _, pin := range s.Pins {
		pinNode := kicadsexp.List(
			kicadsexp.Atom("pin"),
			kicadsexp.Str(pin.Name),
			kicadsexp.Atom(pin.Shape),
			atNode(pin.Pos, pin.Angle),
			effectsNode("", false),
			uuidNode(pin.UUID),
		)
		n.Children = append(n.Children, pinNode)
	}
	for _, raw := range s.extraRaw {
		n.Children = append(n.Children, kicadsexp.RawNode(raw))
	}
	return n
}

// RenderLibSymbol produces a minimal embedded library symbol definition for
// a symbol the document does not yet carry: a rectangular body plus the pins
// reported by the symbol library.
func RenderLibSymbol(name string, pins []LibPin) string {
	base := name
	if i := strings.LastIndex(name, ":"); i >= 0 {
		base = name[i+1:]
	}

	n := kicadsexp.List(
		kicadsexp.Atom("symbol"),
		kicadsexp.Str(name),
		kicadsexp.List(kicadsexp.Atom("in_bom"), kicadsexp.Atom("yes")),
		kicadsexp.List(kicadsexp.Atom("on_board"), kicadsexp.Atom("yes")),
		propertyNode(Property{Key: "Reference", Value: refPrefix(base), Pos: PositionAngle{Position: Position{Y: -5.08}}, HasPos: true}),
		propertyNode(Property{Key: "Value", Value: base, Pos: PositionAngle{Position: Position{Y: 5.08}}, HasPos: true}),
	)

	body := kicadsexp.List(
		kicadsexp.Atom("symbol"),
		kicadsexp.Str(base+"_0_1"),
		kicadsexp.List(
			kicadsexp.Atom("rectangle"),
			kicadsexp.List(kicadsexp.Atom("start"), kicadsexp.Atom("-2.54"), kicadsexp.Atom("-2.54")),
			kicadsexp.List(kicadsexp.Atom("end"), kicadsexp.Atom("2.54"), kicadsexp.Atom("2.54")),
			kicadsexp.List(kicadsexp.Atom("stroke"),
				kicadsexp.List(kicadsexp.Atom("width"), kicadsexp.Atom("0.254")),
				kicadsexp.List(kicadsexp.Atom("type"), kicadsexp.Atom("default"))),
			kicadsexp.List(kicadsexp.Atom("fill"),
				kicadsexp.List(kicadsexp.Atom("type"), kicadsexp.Atom("none"))),
		),
	)

	unit := kicadsexp.List(kicadsexp.Atom("symbol"), kicadsexp.Str(base+"_1_1"))
	for _, pin := range pins {
		typ := pin.Type
		if typ == "" {
			typ = "passive"
		}
		length := pin.Length
		if length == 0 {
			length = 2.54
		}
		pinName := pin.Name
		if pinName == "" {
			pinName = pin.Number
		}
		unit.Children = append(unit.Children, kicadsexp.List(
			kicadsexp.Atom("pin"),
			kicadsexp.Atom(typ),
			kicadsexp.Atom("line"),
			kicadsexp.List(
				kicadsexp.Atom("at"),
				kicadsexp.Atom(sexp.FormatFloat(pin.Offset.X)),
				kicadsexp.Atom(sexp.FormatFloat(pin.Offset.Y)),
				kicadsexp.Atom(sexp.FormatFloat(float64(pin.Angle))),
			),
			kicadsexp.List(kicadsexp.Atom("length"), kicadsexp.Atom(sexp.FormatFloat(length))),
			kicadsexp.List(kicadsexp.Atom("name"), kicadsexp.Str(pinName), effectsNode("", false)),
			kicadsexp.List(kicadsexp.Atom("number"), kicadsexp.Str(pin.Number), effectsNode("", false)),
		))
	}

	n.Children = append(n.Children, body, unit)
	return kicadsexp.Render(n, 2)
}

// RenderPowerLibSymbol produces the minimal embedded definition for a power
// symbol (one hidden power_in pin at the origin).
func RenderPowerLibSymbol(libID, netName string) string {
	base := libID
	if i := strings.LastIndex(libID, ":"); i >= 0 {
		base = libID[i+1:]
	}

	unit := kicadsexp.List(
		kicadsexp.Atom("symbol"),
		kicadsexp.Str(base+"_1_1"),
		kicadsexp.List(
			kicadsexp.Atom("pin"),
			kicadsexp.Atom("power_in"),
			kicadsexp.Atom("line"),
			kicadsexp.List(kicadsexp.Atom("at"), kicadsexp.Atom("0"), kicadsexp.Atom("0"), kicadsexp.Atom("0")),
			kicadsexp.List(kicadsexp.Atom("length"), kicadsexp.Atom("0")),
			kicadsexp.Atom("hide"),
			kicadsexp.List(kicadsexp.Atom("name"), kicadsexp.Str(netName), effectsNode("", false)),
			kicadsexp.List(kicadsexp.Atom("number"), kicadsexp.Str("1"), effectsNode("", false)),
		),
	)

	n := kicadsexp.List(
		kicadsexp.Atom("symbol"),
		kicadsexp.Str(libID),
		kicadsexp.List(kicadsexp.Atom("power")),
		kicadsexp.List(kicadsexp.Atom("in_bom"), kicadsexp.Atom("yes")),
		kicadsexp.List(kicadsexp.Atom("on_board"), kicadsexp.Atom("yes")),
		propertyNode(Property{Key: "Reference", Value: "#PWR", Pos: PositionAngle{Position: Position{Y: -3.81}}, HasPos: true, Hide: true}),
		propertyNode(Property{Key: "Value", Value: netName, Pos: PositionAngle{Position: Position{Y: 3.81}}, HasPos: true}),
		unit,
	)
	return kicadsexp.Render(n, 2)
}

// refPrefix guesses a reference prefix from a symbol name: leading letters,
// defaulting to "U".
func refPrefix(base string) string {
	for i, r := range base {
		if r < 'A' || (r > 'Z' && r < 'a') || r > 'z' {
			if i == 0 {
				return "U"
			}
			return base[:i]
		}
	}
	if base == "" {
		return "U"
	}
	return base
}

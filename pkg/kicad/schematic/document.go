package schematic

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/kicadsync/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kicadsync/pkg/kicad/sexp/kicadsexp"
)

// CurrentVersion is the file format version stamped on freshly generated
// documents.
const CurrentVersion = 20250114

// DefaultGenerator identifies this tool in generated file headers.
const DefaultGenerator = "schsync"

type nodeKind int

const (
	kindOther nodeKind = iota
	kindComponent
	kindVisual
	kindSheet
	kindLibSymbols
)

// docNode is one top-level entry of the schematic file. raw holds the
// verbatim source text and is cleared whenever the node is mutated; render
// falls back to the parsed struct only for cleared nodes, which is what makes
// the byte-stability guarantee mechanical rather than a matter of careful
// bookkeeping.
type docNode struct {
	id      int
	kind    nodeKind
	raw     string
	removed bool

	comp  *Component
	vis   *Visual
	sheet *SheetRef
}

// Document is the in-memory model of one schematic file.
type Document struct {
	Path  string
	Fresh bool // true when no file existed on disk

	Version          int
	Generator        string
	GeneratorVersion string
	UUID             UUID
	Paper            string

	nodes     []*docNode
	byID      map[int]*docNode
	nextID    int
	compIndex map[string]*docNode

	libNode  *docNode
	libNames map[string]bool
	libRaw   []string // verbatim lib_symbols entries
	libAdded []string // rendered entries appended this run

	powerSeq int
}

// NewDocument creates a blank schematic skeleton for first-run generation.
func NewDocument(path string) *Document {
	d := &Document{
		Path:             path,
		Fresh:            true,
		Version:          CurrentVersion,
		Generator:        DefaultGenerator,
		GeneratorVersion: "0.9.0",
		UUID:             UUID(uuid.NewString()),
		Paper:            "A4",
		byID:             make(map[int]*docNode),
		compIndex:        make(map[string]*docNode),
		libNames:         make(map[string]bool),
	}
	d.libNode = d.appendNode(&docNode{kind: kindLibSymbols})
	return d
}

// Load parses a schematic file into a Document. A missing file yields a
// blank skeleton (never an error); anything malformed yields a *ParseError.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDocument(path), nil
		}
		return nil, &ParseError{Path: path, Reason: "read failed", Err: err}
	}
	doc, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Parse builds a Document from schematic source bytes.
func Parse(path string, source []byte) (*Document, error) {
	exprs, err := kicadsexp.ParseBytes(source)
	if err != nil {
		return nil, &ParseError{Path: path, Reason: "invalid s-expression", Err: err}
	}
	if len(exprs) == 0 {
		return nil, &ParseError{Path: path, Reason: "empty file"}
	}

	root := exprs[0]
	if root.Name() != "kicad_sch" {
		return nil, &ParseError{Path: path, Reason: fmt.Sprintf("not a KiCad schematic: root node is %q", root.Name())}
	}

	d := &Document{
		Path:      path,
		byID:      make(map[int]*docNode),
		compIndex: make(map[string]*docNode),
		libNames:  make(map[string]bool),
	}

	for _, child := range root.Children {
		if !child.IsList {
			continue
		}
		raw := child.Raw(source)
		switch child.Name() {
		case "version":
			d.Version, _ = sexp.GetInt(child, 1)
			d.appendNode(&docNode{raw: raw})
		case "generator":
			d.Generator, _ = sexp.GetString(child, 1)
			d.appendNode(&docNode{raw: raw})
		case "generator_version":
			d.GeneratorVersion, _ = sexp.GetString(child, 1)
			d.appendNode(&docNode{raw: raw})
		case "uuid":
			d.UUID, _ = sexp.GetUUID(child)
			d.appendNode(&docNode{raw: raw})
		case "paper":
			d.Paper, _ = sexp.GetString(child, 1)
			d.appendNode(&docNode{raw: raw})

		case "lib_symbols":
			node := d.appendNode(&docNode{kind: kindLibSymbols, raw: raw})
			d.libNode = node
			for _, sym := range child.ChildrenNamed("symbol") {
				name, _ := sexp.GetString(sym, 1)
				if name != "" {
					d.libNames[name] = true
				}
				d.libRaw = append(d.libRaw, sym.Raw(source))
			}

		case "symbol":
			comp, perr := parseComponent(child, source)
			if perr != nil {
				return nil, &ParseError{Path: path, Reason: "bad symbol instance", Err: perr}
			}
			if isPowerLib(comp.LibID) {
				vis := componentAsPowerVisual(comp)
				d.appendNode(&docNode{kind: kindVisual, raw: raw, vis: vis})
				if seq := powerRefSeq(comp.Ref); seq > d.powerSeq {
					d.powerSeq = seq
				}
			} else {
				node := d.appendNode(&docNode{kind: kindComponent, raw: raw, comp: comp})
				if comp.Ref != "" {
					if _, dup := d.compIndex[comp.Ref]; dup {
						return nil, &ParseError{Path: path, Reason: fmt.Sprintf("duplicate reference %q", comp.Ref)}
					}
					d.compIndex[comp.Ref] = node
				}
			}

		case "label", "global_label", "hierarchical_label":
			vis, perr := parseLabelVisual(child, source)
			if perr != nil {
				return nil, &ParseError{Path: path, Reason: "bad label", Err: perr}
			}
			d.appendNode(&docNode{kind: kindVisual, raw: raw, vis: vis})

		case "sheet":
			sheet, perr := parseSheet(child, source)
			if perr != nil {
				return nil, &ParseError{Path: path, Reason: "bad sheet", Err: perr}
			}
			d.appendNode(&docNode{kind: kindSheet, raw: raw, sheet: sheet})

		default:
			// Wires, junctions, text, images, sheet_instances and anything
			// we do not understand pass through untouched.
			d.appendNode(&docNode{raw: raw})
		}
	}

	if d.Version == 0 {
		return nil, &ParseError{Path: path, Reason: "missing required version"}
	}
	if d.Generator == "" {
		return nil, &ParseError{Path: path, Reason: "missing required generator"}
	}
	if d.Paper == "" {
		return nil, &ParseError{Path: path, Reason: "missing required paper size"}
	}

	return d, nil
}

func isPowerLib(libID string) bool {
	return len(libID) > len(PowerLibPrefix) && libID[:len(PowerLibPrefix)] == PowerLibPrefix
}

func (d *Document) appendNode(n *docNode) *docNode {
	n.id = d.nextID
	d.nextID++
	d.nodes = append(d.nodes, n)
	d.byID[n.id] = n
	return n
}

// FindComponent returns the component with the given reference, or nil.
// The returned struct is owned by the document; callers must not mutate it.
func (d *Document) FindComponent(ref string) *Component {
	node, ok := d.compIndex[ref]
	if !ok || node.removed {
		return nil
	}
	return node.comp
}

// ComponentRefs returns all component references in file order.
func (d *Document) ComponentRefs() []string {
	var refs []string
	for _, n := range d.nodes {
		if n.kind == kindComponent && !n.removed && n.comp.Ref != "" {
			refs = append(refs, n.comp.Ref)
		}
	}
	return refs
}

// NetNames returns the distinct net names with rendered visuals, in file
// order of first appearance.
func (d *Document) NetNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, n := range d.nodes {
		if n.kind != kindVisual || n.removed || n.vis.Text == "" {
			continue
		}
		if !seen[n.vis.Text] {
			seen[n.vis.Text] = true
			names = append(names, n.vis.Text)
		}
	}
	return names
}

// NetVisuals returns every rendered visual for the named net, in file order.
func (d *Document) NetVisuals(name string) []Visual {
	var out []Visual
	for _, n := range d.nodes {
		if n.kind != kindVisual || n.removed || n.vis.Text != name {
			continue
		}
		v := *n.vis
		v.ID = n.id
		out = append(out, v)
	}
	return out
}

// HasNet reports whether any visual for the named net exists.
func (d *Document) HasNet(name string) bool {
	for _, n := range d.nodes {
		if n.kind == kindVisual && !n.removed && n.vis.Text == name {
			return true
		}
	}
	return false
}

// UpsertComponent inserts a new component or updates the named fields of an
// existing one. Valid field names are "value", "footprint" and "lib_id".
// Position, rotation, UUID and any property not named stay untouched on
// existing components; for new components the caller supplies them.
func (d *Document) UpsertComponent(c Component, fields []string) error {
	node, ok := d.compIndex[c.Ref]
	if ok && !node.removed {
		for _, f := range fields {
			switch f {
			case "value":
				node.comp.Value = c.Value
				node.comp.setProp("Value", c.Value, false)
			case "footprint":
				node.comp.Footprint = c.Footprint
				node.comp.setProp("Footprint", c.Footprint, true)
			case "lib_id":
				node.comp.LibID = c.LibID
			default:
				return fmt.Errorf("schematic: unknown component field %q", f)
			}
		}
		if len(fields) > 0 {
			node.raw = ""
		}
		return nil
	}

	comp := c
	comp.normalizeProps()
	n := d.appendNode(&docNode{kind: kindComponent, comp: &comp})
	d.compIndex[comp.Ref] = n
	return nil
}

// RemoveComponent removes the component with the given reference.
// Removing a missing component is a no-op.
func (d *Document) RemoveComponent(ref string) {
	node, ok := d.compIndex[ref]
	if !ok {
		return
	}
	node.removed = true
	delete(d.compIndex, ref)
}

// UpsertNet adds the given visuals for a net and removes the ones whose IDs
// are listed. It returns how many visuals were actually added and removed.
func (d *Document) UpsertNet(name string, adds []Visual, removeIDs []int) (added, removed int) {
	for _, id := range removeIDs {
		node, ok := d.byID[id]
		if !ok || node.kind != kindVisual || node.removed || node.vis.Text != name {
			continue
		}
		node.removed = true
		removed++
	}
	for _, v := range adds {
		vis := v
		vis.Text = name
		d.appendNode(&docNode{kind: kindVisual, vis: &vis})
		added++
	}
	return added, removed
}

// RemoveNet removes every rendered visual carrying the net's name. Visuals
// of other nets on the same sheet are untouched.
func (d *Document) RemoveNet(name string) int {
	removed := 0
	for _, n := range d.nodes {
		if n.kind == kindVisual && !n.removed && n.vis.Text == name {
			n.removed = true
			removed++
		}
	}
	return removed
}

// FindSheet returns the hierarchical sheet reference with the given name.
func (d *Document) FindSheet(name string) *SheetRef {
	for _, n := range d.nodes {
		if n.kind == kindSheet && !n.removed && n.sheet.Name == name {
			return n.sheet
		}
	}
	return nil
}

// SheetNames returns the names of all sheet references in file order.
func (d *Document) SheetNames() []string {
	var names []string
	for _, n := range d.nodes {
		if n.kind == kindSheet && !n.removed {
			names = append(names, n.sheet.Name)
		}
	}
	return names
}

// InsertSheet adds a new hierarchical sheet reference.
func (d *Document) InsertSheet(s SheetRef) {
	sheet := s
	d.appendNode(&docNode{kind: kindSheet, sheet: &sheet})
}

// SetSheetPins reconciles the pin list of a sheet reference against the
// desired set. Pins that persist keep their position and UUID; new pins are
// taken as given; pins absent from the desired set are dropped. Returns true
// when anything changed.
func (d *Document) SetSheetPins(name string, desired []SheetPin) bool {
	var node *docNode
	for _, n := range d.nodes {
		if n.kind == kindSheet && !n.removed && n.sheet.Name == name {
			node = n
			break
		}
	}
	if node == nil {
		return false
	}

	existing := make(map[string]SheetPin, len(node.sheet.Pins))
	for _, p := range node.sheet.Pins {
		existing[p.Name] = p
	}

	changed := len(desired) != len(node.sheet.Pins)
	merged := make([]SheetPin, 0, len(desired))
	for _, want := range desired {
		if have, ok := existing[want.Name]; ok {
			if have.Shape != want.Shape {
				have.Shape = want.Shape
				changed = true
			}
			merged = append(merged, have)
		} else {
			merged = append(merged, want)
			changed = true
		}
	}

	if changed {
		node.sheet.Pins = merged
		node.raw = ""
	}
	return changed
}

// RemoveSheet removes a hierarchical sheet reference by name.
func (d *Document) RemoveSheet(name string) {
	for _, n := range d.nodes {
		if n.kind == kindSheet && !n.removed && n.sheet.Name == name {
			n.removed = true
			return
		}
	}
}

// EnsureLibSymbol registers a rendered lib_symbols entry for a symbol not
// yet embedded in the document. Existing entries pass through verbatim.
func (d *Document) EnsureLibSymbol(name, rendered string) {
	if d.libNames[name] {
		return
	}
	d.libNames[name] = true
	d.libAdded = append(d.libAdded, rendered)
	if d.libNode == nil {
		d.libNode = d.appendNode(&docNode{kind: kindLibSymbols})
	} else {
		d.libNode.raw = ""
	}
}

// HasLibSymbol reports whether the document embeds a lib_symbols entry.
func (d *Document) HasLibSymbol(name string) bool {
	return d.libNames[name]
}

// NextPowerRef allocates the next free power symbol reference (#PWR01...).
func (d *Document) NextPowerRef() string {
	d.powerSeq++
	return fmt.Sprintf("#PWR%02d", d.powerSeq)
}

// Bounds computes the bounding box over all placed entities, used by the
// placer to find free space for additions.
func (d *Document) Bounds() sexp.BoundingBox {
	bbox := sexp.NewBoundingBox()
	for _, n := range d.nodes {
		if n.removed {
			continue
		}
		switch n.kind {
		case kindComponent:
			bbox.Expand(n.comp.Pos)
		case kindVisual:
			bbox.Expand(n.vis.Pos)
		case kindSheet:
			bbox.Expand(n.sheet.Pos)
			bbox.Expand(sexp.Position{
				X: n.sheet.Pos.X + n.sheet.Size.Width,
				Y: n.sheet.Pos.Y + n.sheet.Size.Height,
			})
		}
	}
	return bbox
}

// setProp updates or appends a property by key on a component. Appended
// properties are placed at the symbol origin and hidden when asked.
func (c *Component) setProp(key, value string, hide bool) {
	for i := range c.Props {
		if c.Props[i].Key == key {
			c.Props[i].Value = value
			return
		}
	}
	c.Props = append(c.Props, Property{
		Key:    key,
		Value:  value,
		Pos:    PositionAngle{Position: c.Pos},
		HasPos: true,
		Hide:   hide,
	})
}

// normalizeProps guarantees the three well-known properties exist on a new
// component, deriving default placements around the symbol origin.
func (c *Component) normalizeProps() {
	byKey := make(map[string]bool, len(c.Props))
	for _, p := range c.Props {
		byKey[p.Key] = true
	}
	if !byKey["Reference"] {
		c.Props = append([]Property{{
			Key:    "Reference",
			Value:  c.Ref,
			Pos:    PositionAngle{Position: Position{X: c.Pos.X, Y: c.Pos.Y - 2.54}},
			HasPos: true,
		}}, c.Props...)
	}
	if !byKey["Value"] {
		c.Props = append(c.Props, Property{
			Key:    "Value",
			Value:  c.Value,
			Pos:    PositionAngle{Position: Position{X: c.Pos.X, Y: c.Pos.Y + 2.54}},
			HasPos: true,
		})
	}
	if !byKey["Footprint"] {
		c.Props = append(c.Props, Property{
			Key:    "Footprint",
			Value:  c.Footprint,
			Pos:    PositionAngle{Position: Position{X: c.Pos.X, Y: c.Pos.Y + 5.08}},
			HasPos: true,
			Hide:   true,
		})
	}
}

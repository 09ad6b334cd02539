// Package schematic implements the document model for KiCad schematic files
// (.kicad_sch): an ordered node list over the parsed file in which recognized
// entities (symbol instances, labels, power symbols, hierarchical sheets) can
// be looked up and mutated individually, while everything else — and every
// entity nobody touched — is re-emitted byte-identical to the source.
package schematic

import (
	"github.com/OpenTraceLab/kicadsync/pkg/kicad/sexp"
)

// Re-export shared types from the sexp package for convenience.
type Position = sexp.Position
type Angle = sexp.Angle
type PositionAngle = sexp.PositionAngle
type Size = sexp.Size
type UUID = sexp.UUID
type Property = sexp.Property

// Component is the document-model view of a placed symbol instance.
// Position, rotation, and UUID are owned by the document: synchronization
// never overwrites them on an existing component.
type Component struct {
	Ref       string
	LibID     string
	Value     string
	Footprint string
	Pos       Position
	Angle     Angle
	Mirror    string
	Unit      int
	InBom     bool
	OnBoard   bool
	UUID      UUID
	// Props holds every property in file order, including Reference, Value
	// and Footprint. Unknown properties ride along untouched.
	Props []Property
	// Pins are the per-pin UUID stubs KiCad records on instances.
	Pins []PinRef
	// Instances carries the hidden bookkeeping block (project name plus
	// hierarchy path) present only on components of non-root sheets.
	Instances *InstanceInfo

	instancesRaw string   // verbatim (instances ...) block from the source
	extraRaw     []string // verbatim unrecognized child nodes
}

// PinRef is a pin reference on a symbol instance.
type PinRef struct {
	Number string
	UUID   UUID
}

// InstanceInfo is the hidden per-project bookkeeping KiCad stores on symbol
// instances inside hierarchical sheets.
type InstanceInfo struct {
	Project string
	Path    string // hierarchy path, e.g. "/<root-uuid>/<sheet-uuid>"
}

// VisualKind classifies the rendered representation of a net on a sheet.
type VisualKind int

const (
	VisualLabel VisualKind = iota
	VisualGlobalLabel
	VisualHierLabel
	VisualPower
)

func (k VisualKind) String() string {
	switch k {
	case VisualLabel:
		return "label"
	case VisualGlobalLabel:
		return "global_label"
	case VisualHierLabel:
		return "hierarchical_label"
	case VisualPower:
		return "power_symbol"
	default:
		return "unknown"
	}
}

// Visual is one rendered element of a net: a local, global, or hierarchical
// label, or a power symbol instance. ID identifies the backing document node
// for removal; it is only meaningful within the document that produced it.
type Visual struct {
	ID    int
	Kind  VisualKind
	Text  string // net name
	Shape string // direction for hierarchical/global labels
	Pos   Position
	Angle Angle
	UUID  UUID
	LibID string // power symbols only, e.g. "power:GND"
	Ref   string // power symbol reference, e.g. "#PWR01"
	// Instances carries per-project bookkeeping for power symbols placed
	// on non-root sheets, mirroring Component.Instances.
	Instances *InstanceInfo

	effectsRaw string
	extraRaw   []string
	pins       []PinRef // power symbols only
}

// SheetRef is a hierarchical sheet symbol placed in a parent document.
type SheetRef struct {
	Name string
	File string
	Pos  Position
	Size Size
	UUID UUID
	Pins []SheetPin
	// Props holds non-special properties (anything besides Sheetname and
	// Sheetfile) untouched.
	Props []Property

	extraRaw []string
}

// SheetPin is a hierarchical pin on a sheet symbol. Shape is the direction
// semantic: input, output, or bidirectional.
type SheetPin struct {
	Name  string
	Shape string
	Pos   Position
	Angle Angle
	UUID  UUID
}

// LibPin describes one pin of a library symbol for rendering minimal
// lib_symbols entries for newly introduced symbols.
type LibPin struct {
	Number string
	Name   string
	Type   string // electrical type: passive, input, output, power_in, ...
	Offset Position
	Angle  Angle
	Length float64
}

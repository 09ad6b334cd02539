package sync

import (
	"sort"

	"github.com/OpenTraceLab/kicadsync/pkg/circuit"
	"github.com/OpenTraceLab/kicadsync/pkg/kicad/schematic"
	"github.com/OpenTraceLab/kicadsync/pkg/kicad/sexp"
)

// FieldDiff lists the component fields whose values differ between the
// declared snapshot and the document. Field names are "value", "footprint"
// and "lib_id".
type FieldDiff []string

// ComponentDiff pairs a matched component reference with its field diff.
// An empty diff means the component is unchanged.
type ComponentDiff struct {
	Ref    string
	Fields FieldDiff
}

// NetDiff describes one net present on both sides.
type NetDiff struct {
	Name string
	// Changed is true when the recovered membership differs from the
	// declared endpoint set, or when no membership could be recovered for
	// a net that declares endpoints.
	Changed bool
	// StaleVisuals are document visual IDs anchored at pin positions of
	// endpoints the snapshot no longer declares. They are removed during
	// patching; visuals at positions the matcher cannot attribute to any
	// pin are left alone as human annotations.
	StaleVisuals []int
}

// SheetMatch is the classification of one sheet: every component and net
// assigned to exactly one of added, removed, or matched.
type SheetMatch struct {
	AddedComponents   []string // declaration order
	RemovedComponents []string // file order
	Components        []ComponentDiff

	AddedNets   []string
	RemovedNets []string
	Nets        []NetDiff
}

// Matcher pairs snapshot entities with document entities by identity:
// components by reference, nets by name, both case-sensitive and exact. It
// never guesses; a renamed entity is a removal plus an addition.
type Matcher struct {
	lookup circuit.SymbolLookup
}

// NewMatcher returns a matcher using the given symbol library for pin
// geometry.
func NewMatcher(lookup circuit.SymbolLookup) *Matcher {
	return &Matcher{lookup: lookup}
}

// Match classifies every component and net of the sheet against the
// document. The document is not modified.
func (m *Matcher) Match(doc *schematic.Document, sheet *circuit.Sheet) *SheetMatch {
	match := &SheetMatch{}

	declared := make(map[string]bool, len(sheet.Components))
	for i := range sheet.Components {
		comp := &sheet.Components[i]
		declared[comp.Ref] = true
		existing := doc.FindComponent(comp.Ref)
		if existing == nil {
			match.AddedComponents = append(match.AddedComponents, comp.Ref)
			continue
		}
		match.Components = append(match.Components, ComponentDiff{
			Ref:    comp.Ref,
			Fields: diffFields(comp, existing),
		})
	}
	for _, ref := range doc.ComponentRefs() {
		if !declared[ref] {
			match.RemovedComponents = append(match.RemovedComponents, ref)
		}
	}

	anchors := m.pinAnchors(doc)

	declaredNets := make(map[string]bool, len(sheet.Nets))
	for i := range sheet.Nets {
		net := &sheet.Nets[i]
		declaredNets[net.Name] = true
		if !doc.HasNet(net.Name) {
			match.AddedNets = append(match.AddedNets, net.Name)
			continue
		}
		match.Nets = append(match.Nets, m.diffNet(doc, net, anchors))
	}
	for _, name := range doc.NetNames() {
		if !declaredNets[name] {
			match.RemovedNets = append(match.RemovedNets, name)
		}
	}

	return match
}

func diffFields(want *circuit.Component, have *schematic.Component) FieldDiff {
	var diff FieldDiff
	if want.Value != have.Value {
		diff = append(diff, "value")
	}
	if want.Footprint != have.Footprint {
		diff = append(diff, "footprint")
	}
	if want.LibID != have.LibID {
		diff = append(diff, "lib_id")
	}
	return diff
}

// anchor is one pin of one placed component at its absolute position.
type anchor struct {
	pos sexp.Position
	end circuit.Endpoint
}

// pinAnchors computes absolute pin positions for every component in the
// document. Components whose symbol the library does not know contribute no
// anchors; their pins simply cannot be matched.
func (m *Matcher) pinAnchors(doc *schematic.Document) []anchor {
	var anchors []anchor
	for _, ref := range doc.ComponentRefs() {
		comp := doc.FindComponent(ref)
		pins, err := m.lookup.Pins(comp.LibID)
		if err != nil {
			continue
		}
		for _, pin := range pins {
			off := sexp.Rotate(pin.Offset, comp.Angle)
			anchors = append(anchors, anchor{
				pos: sexp.Translate(comp.Pos, off),
				end: circuit.Endpoint{Ref: ref, Pin: pin.Number},
			})
		}
	}
	return anchors
}

// diffNet recovers the net's current membership from visual positions and
// compares it with the declared endpoint set.
func (m *Matcher) diffNet(doc *schematic.Document, net *circuit.Net, anchors []anchor) NetDiff {
	want := make(map[circuit.Endpoint]bool, len(net.Endpoints))
	for _, e := range net.Endpoints {
		want[e] = true
	}

	have := make(map[circuit.Endpoint]bool)
	// Visuals at no known pin position are human annotations and stay out
	// of both the recovered membership and the stale list.
	var stale []int
	for _, vis := range doc.NetVisuals(net.Name) {
		for _, a := range anchors {
			if sexp.SamePosition(vis.Pos, a.pos) {
				have[a.end] = true
				if !want[a.end] {
					stale = append(stale, vis.ID)
				}
			}
		}
	}
	sort.Ints(stale)

	diff := NetDiff{Name: net.Name, StaleVisuals: stale}
	if len(have) != len(want) {
		diff.Changed = true
		return diff
	}
	for e := range want {
		if !have[e] {
			diff.Changed = true
			break
		}
	}
	return diff
}

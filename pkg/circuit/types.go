// Package circuit defines the normalized snapshot of a circuit description
// for one synchronization run: components, nets, and the sheet hierarchy,
// fully materialized in declaration order.
package circuit

import (
	"github.com/OpenTraceLab/kicadsync/pkg/kicad/sexp"
)

// Component is one declared component instance within a sheet.
type Component struct {
	Ref       string
	LibID     string
	Value     string
	Footprint string
	// Extra properties ride along in declaration order so regeneration is
	// byte-stable.
	Extra []KV
}

// KV is an ordered key-value pair for extra component properties.
type KV struct {
	Key   string
	Value string
}

// Endpoint names one pin of one component as a net member.
type Endpoint struct {
	Ref string
	Pin string
}

// Net is a named electrical net scoped to one sheet.
type Net struct {
	Name      string
	Endpoints []Endpoint
	// Power, when non-nil, is an explicit override of the automatic
	// power-rail classification and is authoritative.
	Power *bool
	// PowerSymbol optionally forces the power symbol identifier; empty
	// means derive it from the net name.
	PowerSymbol string
}

// Port exposes a net across the sheet boundary to the parent. Dir is one of
// "input", "output" or "bidirectional".
type Port struct {
	Name string
	Dir  string
}

// Sheet is one schematic page: its components, nets, exposed ports, and
// child sheets, all in declaration order.
type Sheet struct {
	Name       string
	File       string
	Components []Component
	Nets       []Net
	Ports      []Port
	Children   []*Sheet
}

// Component returns the declared component with the given reference, or nil.
func (s *Sheet) Component(ref string) *Component {
	for i := range s.Components {
		if s.Components[i].Ref == ref {
			return &s.Components[i]
		}
	}
	return nil
}

// Net returns the declared net with the given name, or nil.
func (s *Sheet) Net(name string) *Net {
	for i := range s.Nets {
		if s.Nets[i].Name == name {
			return &s.Nets[i]
		}
	}
	return nil
}

// PinSpec describes one pin of a library symbol: identity, electrical type,
// and geometry relative to the symbol origin.
type PinSpec struct {
	Number string
	Name   string
	Type   string
	Offset sexp.Position
	Angle  sexp.Angle
	Length float64
}

// SymbolLookup resolves library symbol identifiers to their pin definitions.
// Implementations typically wrap a KiCad symbol library; the engine only
// needs the pin list.
type SymbolLookup interface {
	Pins(symbolID string) ([]PinSpec, error)
}

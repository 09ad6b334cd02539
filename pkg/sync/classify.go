// Package sync implements the schematic synchronization engine: it compares
// an existing parsed schematic against a freshly declared circuit snapshot,
// classifies every entity as added, removed, changed or unchanged, and
// patches the document so that changed entities are rewritten while
// untouched ones stay byte-identical.
package sync

import (
	"regexp"

	"github.com/OpenTraceLab/kicadsync/pkg/kicad/schematic"
)

// DefaultRails are the exact rail names recognized as power nets out of the
// box. Matching is case-sensitive and exact: GND_SENSE is not GND.
var DefaultRails = []string{
	"GND", "GNDA", "GNDD", "GNDREF", "GNDPWR",
	"VCC", "VDD", "VBUS",
}

// railPattern matches voltage-rail naming conventions: an optional sign,
// digits, and either a V-infix fraction (+3V3, -12V, +1V8) or a decimal
// point followed by V (3.3V). Lowercase v is deliberately not accepted.
var railPattern = regexp.MustCompile(`^([+-]?)([0-9]+)(?:V([0-9]*)|\.([0-9]+)V)$`)

// Decision is the classification result for one net.
type Decision struct {
	IsPower  bool
	SymbolID string // power symbol identifier, e.g. "power:+3V3"; empty when not power
}

// Classifier decides whether a net renders as a power symbol or a label.
// The registry is fixed at construction time; Classify is a pure function of
// its inputs, so the same net always classifies the same way across runs.
type Classifier struct {
	registry map[string]bool
}

// NewClassifier builds a classifier over the default rail registry plus any
// extra exact names.
func NewClassifier(extra ...string) *Classifier {
	reg := make(map[string]bool, len(DefaultRails)+len(extra))
	for _, name := range DefaultRails {
		reg[name] = true
	}
	for _, name := range extra {
		reg[name] = true
	}
	return &Classifier{registry: reg}
}

// Classify applies the classification rules in order, first match wins:
//
//  1. An explicit override is authoritative and returned verbatim.
//  2. Exact registry membership.
//  3. Voltage-rail pattern match, normalized to canonical form.
//  4. Otherwise not a power net.
func (c *Classifier) Classify(name string, explicit *bool) Decision {
	if explicit != nil {
		if !*explicit {
			return Decision{}
		}
		return Decision{IsPower: true, SymbolID: schematic.PowerLibPrefix + canonicalRail(name)}
	}

	if c.registry[name] {
		return Decision{IsPower: true, SymbolID: schematic.PowerLibPrefix + name}
	}

	if railPattern.MatchString(name) {
		return Decision{IsPower: true, SymbolID: schematic.PowerLibPrefix + canonicalRail(name)}
	}

	return Decision{}
}

// canonicalRail normalizes voltage-rail spellings so +3V3 and 3.3V share one
// power symbol. Names outside the rail pattern are returned unchanged.
func canonicalRail(name string) string {
	m := railPattern.FindStringSubmatch(name)
	if m == nil {
		return name
	}
	sign := m[1]
	if sign == "" {
		sign = "+"
	}
	frac := m[3]
	if frac == "" {
		frac = m[4]
	}
	return sign + m[2] + "V" + frac
}

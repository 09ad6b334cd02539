package circuit

import (
	"sync"

	"github.com/OpenTraceLab/kicadsync/pkg/kicad/sexp"
)

// StaticLibrary is a table-backed SymbolLookup, useful when the caller
// preloads a fixed set of symbols or during tests.
type StaticLibrary struct {
	mu      sync.RWMutex
	symbols map[string][]PinSpec
}

// NewStaticLibrary creates an empty library.
func NewStaticLibrary() *StaticLibrary {
	return &StaticLibrary{symbols: make(map[string][]PinSpec)}
}

// Add registers pin definitions under a symbol identifier.
func (l *StaticLibrary) Add(symbolID string, pins []PinSpec) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.symbols[symbolID] = pins
}

// Pins implements SymbolLookup.
func (l *StaticLibrary) Pins(symbolID string) ([]PinSpec, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pins, ok := l.symbols[symbolID]
	if !ok {
		return nil, &UnknownSymbolError{SymbolID: symbolID}
	}
	out := make([]PinSpec, len(pins))
	copy(out, pins)
	return out, nil
}

// TwoPinPassive returns the standard vertical two-pin arrangement used by
// resistors, capacitors and similar passives: pin 1 on top, pin 2 below.
func TwoPinPassive() []PinSpec {
	return []PinSpec{
		{Number: "1", Name: "~", Type: "passive", Offset: sexp.Position{X: 0, Y: -3.81}, Angle: 270, Length: 1.27},
		{Number: "2", Name: "~", Type: "passive", Offset: sexp.Position{X: 0, Y: 3.81}, Angle: 90, Length: 1.27},
	}
}

package circuit

import "fmt"

// AmbiguousReferenceError reports two components in one sheet sharing a
// reference designator.
type AmbiguousReferenceError struct {
	Sheet string
	Ref   string
}

func (e *AmbiguousReferenceError) Error() string {
	return fmt.Sprintf("circuit: sheet %q declares reference %q more than once", e.Sheet, e.Ref)
}

// DanglingNetError reports a net endpoint that names a missing component or
// a pin the component's symbol does not have.
type DanglingNetError struct {
	Sheet  string
	Net    string
	Ref    string
	Pin    string
	Reason string
}

func (e *DanglingNetError) Error() string {
	return fmt.Sprintf("circuit: net %q in sheet %q: endpoint %s.%s: %s",
		e.Net, e.Sheet, e.Ref, e.Pin, e.Reason)
}

// UnknownSymbolError reports a library symbol the lookup cannot resolve.
type UnknownSymbolError struct {
	SymbolID string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("circuit: unknown library symbol %q", e.SymbolID)
}

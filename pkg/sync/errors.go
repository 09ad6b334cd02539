package sync

import "fmt"

// UnplaceableComponentError reports a component the placer could not find
// room for. The run that produced it writes nothing to disk.
type UnplaceableComponentError struct {
	Sheet string
	Ref   string
	Err   error
}

func (e *UnplaceableComponentError) Error() string {
	return fmt.Sprintf("sheet %q: no placement for component %s: %v", e.Sheet, e.Ref, e.Err)
}

func (e *UnplaceableComponentError) Unwrap() error {
	return e.Err
}

package schematic

import "fmt"

// ParseError reports a malformed or structurally incomplete schematic file.
// A missing file is not a parse error: Load returns a blank document instead,
// so first-run generation works without special-casing.
type ParseError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schematic: parse %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("schematic: parse %s: %s", e.Path, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

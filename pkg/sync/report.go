package sync

import (
	"fmt"
	"strings"
)

// SheetReport summarizes what one sheet's patch actually did.
type SheetReport struct {
	Name string
	File string

	ComponentsAdded   []string
	ComponentsRemoved []string
	ComponentsChanged []ComponentDiff // non-empty field diffs only

	NetsAdded   []string
	NetsRemoved []string
	NetsChanged []string

	SheetsAdded   []string
	SheetsRemoved []string
	PinsChanged   []string // child sheet names whose pin lists changed
}

// Empty reports whether the sheet patch was a no-op.
func (r *SheetReport) Empty() bool {
	return len(r.ComponentsAdded) == 0 &&
		len(r.ComponentsRemoved) == 0 &&
		len(r.ComponentsChanged) == 0 &&
		len(r.NetsAdded) == 0 &&
		len(r.NetsRemoved) == 0 &&
		len(r.NetsChanged) == 0 &&
		len(r.SheetsAdded) == 0 &&
		len(r.SheetsRemoved) == 0 &&
		len(r.PinsChanged) == 0
}

// Report is the outcome of one synchronization run across the whole sheet
// hierarchy, in bottom-up processing order.
type Report struct {
	Sheets []*SheetReport
}

// Empty reports whether the entire run was a no-op. An empty report implies
// every output file is byte-identical to its input.
func (r *Report) Empty() bool {
	for _, s := range r.Sheets {
		if !s.Empty() {
			return false
		}
	}
	return true
}

// Summary renders a short human-readable description of the run.
func (r *Report) Summary() string {
	if r.Empty() {
		return "no changes"
	}
	var b strings.Builder
	for _, s := range r.Sheets {
		if s.Empty() {
			continue
		}
		fmt.Fprintf(&b, "sheet %s (%s):\n", s.Name, s.File)
		for _, ref := range s.ComponentsAdded {
			fmt.Fprintf(&b, "  + component %s\n", ref)
		}
		for _, ref := range s.ComponentsRemoved {
			fmt.Fprintf(&b, "  - component %s\n", ref)
		}
		for _, d := range s.ComponentsChanged {
			fmt.Fprintf(&b, "  ~ component %s (%s)\n", d.Ref, strings.Join(d.Fields, ", "))
		}
		for _, name := range s.NetsAdded {
			fmt.Fprintf(&b, "  + net %s\n", name)
		}
		for _, name := range s.NetsRemoved {
			fmt.Fprintf(&b, "  - net %s\n", name)
		}
		for _, name := range s.NetsChanged {
			fmt.Fprintf(&b, "  ~ net %s\n", name)
		}
		for _, name := range s.SheetsAdded {
			fmt.Fprintf(&b, "  + sheet %s\n", name)
		}
		for _, name := range s.SheetsRemoved {
			fmt.Fprintf(&b, "  - sheet %s\n", name)
		}
		for _, name := range s.PinsChanged {
			fmt.Fprintf(&b, "  ~ sheet pins %s\n", name)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

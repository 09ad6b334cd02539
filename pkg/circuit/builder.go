package circuit

// Builder validates and normalizes a declared sheet tree into the snapshot
// consumed by synchronization. Validation happens up front so the planner
// never sees malformed input.
type Builder struct {
	lookup SymbolLookup
}

// NewBuilder creates a builder backed by the given symbol lookup.
func NewBuilder(lookup SymbolLookup) *Builder {
	return &Builder{lookup: lookup}
}

// Build walks the sheet tree with an explicit worklist (no call-stack
// recursion, so arbitrarily deep hierarchies are safe), validating each
// sheet and deriving cross-boundary ports. The input tree is returned after
// normalization; declaration order is preserved throughout.
func (b *Builder) Build(root *Sheet) (*Sheet, error) {
	type item struct {
		sheet  *Sheet
		parent *Sheet
	}

	stack := []item{{sheet: root}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := b.validateSheet(it.sheet); err != nil {
			return nil, err
		}
		b.derivePorts(it.sheet, it.parent)

		// Push in reverse so children validate in declaration order.
		for i := len(it.sheet.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{sheet: it.sheet.Children[i], parent: it.sheet})
		}
	}

	return root, nil
}

func (b *Builder) validateSheet(s *Sheet) error {
	seen := make(map[string]bool, len(s.Components))
	pinsByRef := make(map[string]map[string]bool, len(s.Components))

	for i := range s.Components {
		c := &s.Components[i]
		if seen[c.Ref] {
			return &AmbiguousReferenceError{Sheet: s.Name, Ref: c.Ref}
		}
		seen[c.Ref] = true

		pins, err := b.lookup.Pins(c.LibID)
		if err != nil {
			return err
		}
		set := make(map[string]bool, len(pins))
		for _, p := range pins {
			set[p.Number] = true
		}
		pinsByRef[c.Ref] = set
	}

	for i := range s.Nets {
		n := &s.Nets[i]
		for _, ep := range n.Endpoints {
			set, ok := pinsByRef[ep.Ref]
			if !ok {
				return &DanglingNetError{
					Sheet: s.Name, Net: n.Name, Ref: ep.Ref, Pin: ep.Pin,
					Reason: "component not declared in this sheet",
				}
			}
			if !set[ep.Pin] {
				return &DanglingNetError{
					Sheet: s.Name, Net: n.Name, Ref: ep.Ref, Pin: ep.Pin,
					Reason: "symbol has no such pin",
				}
			}
		}
	}

	return nil
}

// derivePorts adds a bidirectional port on the child for any net name shared
// with the parent that has no explicit port declaration. Explicitly declared
// ports win.
func (b *Builder) derivePorts(s, parent *Sheet) {
	if parent == nil {
		return
	}
	declared := make(map[string]bool, len(s.Ports))
	for _, p := range s.Ports {
		declared[p.Name] = true
	}
	for i := range s.Nets {
		name := s.Nets[i].Name
		if declared[name] {
			continue
		}
		if parent.Net(name) != nil {
			s.Ports = append(s.Ports, Port{Name: name, Dir: "bidirectional"})
			declared[name] = true
		}
	}
}

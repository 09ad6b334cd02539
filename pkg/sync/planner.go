package sync

import (
	"github.com/google/uuid"

	"github.com/OpenTraceLab/kicadsync/pkg/circuit"
	"github.com/OpenTraceLab/kicadsync/pkg/kicad/schematic"
	"github.com/OpenTraceLab/kicadsync/pkg/kicad/sexp"
)

// Planner turns one sheet's classification into document mutations. It only
// touches entities the match marked as added, removed, or changed; matched
// unchanged entities keep their verbatim source text.
type Planner struct {
	lookup     circuit.SymbolLookup
	placer     Placer
	classifier *Classifier
	project    string
}

// NewPlanner assembles a planner. project names the KiCad project in the
// hidden instance bookkeeping written on non-root sheets.
func NewPlanner(lookup circuit.SymbolLookup, placer Placer, classifier *Classifier, project string) *Planner {
	return &Planner{lookup: lookup, placer: placer, classifier: classifier, project: project}
}

func newUUID() schematic.UUID {
	return schematic.UUID(uuid.NewString())
}

// Plan patches doc in place according to match and returns what it did.
// rootUUID is the root document's UUID and seeds the hierarchy paths of
// instance blocks on non-root sheets.
func (p *Planner) Plan(doc *schematic.Document, sheet *circuit.Sheet, match *SheetMatch, isRoot bool, rootUUID schematic.UUID) (*SheetReport, error) {
	report := &SheetReport{Name: sheet.Name, File: sheet.File}

	for _, ref := range match.RemovedComponents {
		doc.RemoveComponent(ref)
		report.ComponentsRemoved = append(report.ComponentsRemoved, ref)
	}

	for _, ref := range match.AddedComponents {
		comp := sheet.Component(ref)
		if err := p.addComponent(doc, sheet, comp, isRoot, rootUUID); err != nil {
			return nil, err
		}
		report.ComponentsAdded = append(report.ComponentsAdded, ref)
	}

	for _, diff := range match.Components {
		if len(diff.Fields) == 0 {
			continue
		}
		comp := sheet.Component(diff.Ref)
		update := schematic.Component{
			Ref:       comp.Ref,
			LibID:     comp.LibID,
			Value:     comp.Value,
			Footprint: comp.Footprint,
		}
		if err := doc.UpsertComponent(update, diff.Fields); err != nil {
			return nil, err
		}
		report.ComponentsChanged = append(report.ComponentsChanged, diff)
	}

	for _, name := range match.RemovedNets {
		doc.RemoveNet(name)
		report.NetsRemoved = append(report.NetsRemoved, name)
	}

	for _, name := range match.AddedNets {
		net := sheet.Net(name)
		adds, err := p.desiredVisuals(doc, sheet, net, isRoot, rootUUID)
		if err != nil {
			return nil, err
		}
		doc.UpsertNet(name, adds, nil)
		report.NetsAdded = append(report.NetsAdded, name)
	}

	for _, diff := range match.Nets {
		net := sheet.Net(diff.Name)
		changed, err := p.reconcileNet(doc, sheet, net, diff, isRoot, rootUUID)
		if err != nil {
			return nil, err
		}
		if changed {
			report.NetsChanged = append(report.NetsChanged, diff.Name)
		}
	}

	if err := p.planChildSheets(doc, sheet, report); err != nil {
		return nil, err
	}

	return report, nil
}

func (p *Planner) addComponent(doc *schematic.Document, sheet *circuit.Sheet, comp *circuit.Component, isRoot bool, rootUUID schematic.UUID) error {
	pins, err := p.lookup.Pins(comp.LibID)
	if err != nil {
		return err
	}
	pos, angle, err := p.placer.Place(doc, comp.Ref)
	if err != nil {
		return &UnplaceableComponentError{Sheet: sheet.Name, Ref: comp.Ref, Err: err}
	}

	c := schematic.Component{
		Ref:       comp.Ref,
		LibID:     comp.LibID,
		Value:     comp.Value,
		Footprint: comp.Footprint,
		Pos:       pos,
		Angle:     angle,
		Unit:      1,
		InBom:     true,
		OnBoard:   true,
		UUID:      newUUID(),
	}
	for _, pin := range pins {
		c.Pins = append(c.Pins, schematic.PinRef{Number: pin.Number, UUID: newUUID()})
	}
	for i, kv := range comp.Extra {
		c.Props = append(c.Props, schematic.Property{
			Key:    kv.Key,
			Value:  kv.Value,
			Pos:    sexp.PositionAngle{Position: sexp.Position{X: pos.X, Y: pos.Y + 7.62 + float64(i)*2.54}},
			HasPos: true,
			Hide:   true,
		})
	}
	if !isRoot {
		c.Instances = &schematic.InstanceInfo{Project: p.project, Path: "/" + string(rootUUID)}
	}

	doc.EnsureLibSymbol(comp.LibID, schematic.RenderLibSymbol(comp.LibID, libPins(pins)))
	return doc.UpsertComponent(c, nil)
}

func libPins(pins []circuit.PinSpec) []schematic.LibPin {
	out := make([]schematic.LibPin, len(pins))
	for i, pin := range pins {
		out[i] = schematic.LibPin{
			Number: pin.Number,
			Name:   pin.Name,
			Type:   pin.Type,
			Offset: pin.Offset,
			Angle:  pin.Angle,
			Length: pin.Length,
		}
	}
	return out
}

// desiredVisuals builds the complete visual set a net should carry: one
// label or power symbol per declared endpoint, anchored at the pin's
// absolute position, or a single free-standing power symbol for a power net
// with no endpoints.
func (p *Planner) desiredVisuals(doc *schematic.Document, sheet *circuit.Sheet, net *circuit.Net, isRoot bool, rootUUID schematic.UUID) ([]schematic.Visual, error) {
	decision := p.classifier.Classify(net.Name, net.Power)
	if decision.IsPower && net.PowerSymbol != "" {
		decision.SymbolID = net.PowerSymbol
	}

	kind, shape := netVisualKind(sheet, net, decision)

	var visuals []schematic.Visual
	for _, end := range net.Endpoints {
		pos, angle, err := p.pinPosition(doc, end)
		if err != nil {
			return nil, err
		}
		visuals = append(visuals, p.newVisual(doc, net, kind, shape, decision, pos, angle, isRoot, rootUUID))
	}

	if decision.IsPower && len(net.Endpoints) == 0 {
		pos, _, err := p.placer.Place(doc, "net "+net.Name)
		if err != nil {
			return nil, &UnplaceableComponentError{Sheet: sheet.Name, Ref: net.Name, Err: err}
		}
		visuals = append(visuals, p.newVisual(doc, net, kind, shape, decision, pos, 0, isRoot, rootUUID))
	}

	if decision.IsPower {
		doc.EnsureLibSymbol(decision.SymbolID, schematic.RenderPowerLibSymbol(decision.SymbolID, net.Name))
	}
	return visuals, nil
}

// netVisualKind decides how a net renders on this sheet. Power nets always
// render as power symbols and never cross sheet boundaries as ports; a net
// this sheet exposes through a port renders as hierarchical labels; the rest
// are local labels.
func netVisualKind(sheet *circuit.Sheet, net *circuit.Net, decision Decision) (schematic.VisualKind, string) {
	if decision.IsPower {
		return schematic.VisualPower, ""
	}
	for _, port := range sheet.Ports {
		if port.Name == net.Name {
			return schematic.VisualHierLabel, port.Dir
		}
	}
	return schematic.VisualLabel, ""
}

func (p *Planner) newVisual(doc *schematic.Document, net *circuit.Net, kind schematic.VisualKind, shape string, decision Decision, pos sexp.Position, angle sexp.Angle, isRoot bool, rootUUID schematic.UUID) schematic.Visual {
	v := schematic.Visual{
		Kind:  kind,
		Text:  net.Name,
		Shape: shape,
		Pos:   pos,
		Angle: angle,
		UUID:  newUUID(),
	}
	if kind == schematic.VisualPower {
		v.LibID = decision.SymbolID
		v.Ref = doc.NextPowerRef()
		v.Angle = 0
		if !isRoot {
			v.Instances = &schematic.InstanceInfo{Project: p.project, Path: "/" + string(rootUUID)}
		}
	}
	return v
}

// pinPosition resolves an endpoint to the absolute position and orientation
// of the named pin on the placed component.
func (p *Planner) pinPosition(doc *schematic.Document, end circuit.Endpoint) (sexp.Position, sexp.Angle, error) {
	comp := doc.FindComponent(end.Ref)
	if comp == nil {
		return sexp.Position{}, 0, &circuit.DanglingNetError{Ref: end.Ref, Pin: end.Pin, Reason: "component not placed"}
	}
	pins, err := p.lookup.Pins(comp.LibID)
	if err != nil {
		return sexp.Position{}, 0, err
	}
	for _, pin := range pins {
		if pin.Number != end.Pin {
			continue
		}
		pos := sexp.Translate(comp.Pos, sexp.Rotate(pin.Offset, comp.Angle))
		return pos, sexp.NormalizeAngle(pin.Angle + comp.Angle), nil
	}
	return sexp.Position{}, 0, &circuit.DanglingNetError{Ref: end.Ref, Pin: end.Pin, Reason: "no such pin"}
}

// reconcileNet patches a matched net whose membership or rendering changed.
// A flip between power and label rendering regenerates every owned visual;
// a membership change only adds visuals at new endpoints and removes the
// stale ones the matcher identified.
func (p *Planner) reconcileNet(doc *schematic.Document, sheet *circuit.Sheet, net *circuit.Net, diff NetDiff, isRoot bool, rootUUID schematic.UUID) (bool, error) {
	decision := p.classifier.Classify(net.Name, net.Power)
	existing := doc.NetVisuals(net.Name)

	flip := false
	for _, vis := range existing {
		if (vis.Kind == schematic.VisualPower) != decision.IsPower {
			flip = true
			break
		}
	}

	if !flip && !diff.Changed {
		return false, nil
	}

	desired, err := p.desiredVisuals(doc, sheet, net, isRoot, rootUUID)
	if err != nil {
		return false, err
	}

	if flip {
		var removeIDs []int
		for _, vis := range existing {
			removeIDs = append(removeIDs, vis.ID)
		}
		added, removed := doc.UpsertNet(net.Name, desired, removeIDs)
		return added+removed > 0, nil
	}

	var adds []schematic.Visual
	for _, want := range desired {
		found := false
		for _, vis := range existing {
			if vis.Kind == want.Kind && sexp.SamePosition(vis.Pos, want.Pos) {
				found = true
				break
			}
		}
		if !found {
			adds = append(adds, want)
		}
	}
	added, removed := doc.UpsertNet(net.Name, adds, diff.StaleVisuals)
	return added+removed > 0, nil
}

// planChildSheets reconciles the sheet symbols for this sheet's children:
// missing ones are placed with a pin per exposed port, surviving ones get
// their pin lists reconciled, and sheet symbols whose child was removed from
// the snapshot are dropped.
func (p *Planner) planChildSheets(doc *schematic.Document, sheet *circuit.Sheet, report *SheetReport) error {
	declared := make(map[string]bool, len(sheet.Children))
	for _, child := range sheet.Children {
		declared[child.Name] = true

		// Power nets are global and never cross the boundary as pins.
		ports := make([]circuit.Port, 0, len(child.Ports))
		for _, port := range child.Ports {
			if !p.portIsPower(child, port.Name) {
				ports = append(ports, port)
			}
		}
		pins := make([]schematic.SheetPin, 0, len(ports))

		if existing := doc.FindSheet(child.Name); existing != nil {
			for i, port := range ports {
				pins = append(pins, schematic.SheetPin{
					Name:  port.Name,
					Shape: port.Dir,
					Pos:   sexp.Position{X: existing.Pos.X, Y: existing.Pos.Y + 2.54*float64(i+1)},
					Angle: 180,
					UUID:  newUUID(),
				})
			}
			if doc.SetSheetPins(child.Name, pins) {
				report.PinsChanged = append(report.PinsChanged, child.Name)
			}
			continue
		}

		pos, _, err := p.placer.Place(doc, "sheet "+child.Name)
		if err != nil {
			return &UnplaceableComponentError{Sheet: sheet.Name, Ref: child.Name, Err: err}
		}
		height := 2.54 * float64(len(ports)+2)
		if height < 10.16 {
			height = 10.16
		}
		for i, port := range ports {
			pins = append(pins, schematic.SheetPin{
				Name:  port.Name,
				Shape: port.Dir,
				Pos:   sexp.Position{X: pos.X, Y: pos.Y + 2.54*float64(i+1)},
				Angle: 180,
				UUID:  newUUID(),
			})
		}
		doc.InsertSheet(schematic.SheetRef{
			Name: child.Name,
			File: child.File,
			Pos:  pos,
			Size: sexp.Size{Width: 25.4, Height: height},
			UUID: newUUID(),
			Pins: pins,
		})
		report.SheetsAdded = append(report.SheetsAdded, child.Name)
	}

	return p.removeStaleSheets(doc, declared, report)
}

// portIsPower reports whether a child port name classifies as a power net,
// consulting the child's explicit override when it declares the net.
func (p *Planner) portIsPower(child *circuit.Sheet, name string) bool {
	var explicit *bool
	if net := child.Net(name); net != nil {
		explicit = net.Power
	}
	return p.classifier.Classify(name, explicit).IsPower
}

func (p *Planner) removeStaleSheets(doc *schematic.Document, declared map[string]bool, report *SheetReport) error {
	for _, name := range doc.SheetNames() {
		if !declared[name] {
			doc.RemoveSheet(name)
			report.SheetsRemoved = append(report.SheetsRemoved, name)
		}
	}
	return nil
}

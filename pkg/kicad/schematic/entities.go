package schematic

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/kicadsync/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kicadsync/pkg/kicad/sexp/kicadsexp"
)

// PowerLibPrefix marks symbol instances that render a power rail rather than
// a real component.
const PowerLibPrefix = "power:"

// Child node names understood by the component parser. Anything else inside
// a (symbol ...) block is carried through verbatim.
var componentKnownChildren = map[string]bool{
	"lib_id": true, "at": true, "mirror": true, "unit": true,
	"in_bom": true, "on_board": true, "uuid": true, "property": true,
	"pin": true, "instances": true,
}

// parseComponent parses a placed (symbol ...) node into a Component.
// The same routine backs power symbol instances; the caller decides which
// view to take based on the lib_id prefix.
func parseComponent(node *kicadsexp.Node, source []byte) (*Component, error) {
	comp := &Component{
		InBom:   true,
		OnBoard: true,
		Unit:    1,
	}

	if libNode := node.Child("lib_id"); libNode != nil {
		comp.LibID, _ = sexp.GetString(libNode, 1)
	}
	if comp.LibID == "" {
		return nil, fmt.Errorf("symbol instance missing lib_id")
	}

	if atNode := node.Child("at"); atNode != nil {
		pos, err := sexp.GetPosition(atNode)
		if err != nil {
			return nil, err
		}
		comp.Pos = pos.Position
		comp.Angle = pos.Angle
	}

	if mirrorNode := node.Child("mirror"); mirrorNode != nil {
		comp.Mirror, _ = sexp.GetString(mirrorNode, 1)
	}
	if unitNode := node.Child("unit"); unitNode != nil {
		comp.Unit, _ = sexp.GetInt(unitNode, 1)
	}
	if ibNode := node.Child("in_bom"); ibNode != nil {
		val, _ := sexp.GetString(ibNode, 1)
		comp.InBom = val == "yes"
	}
	if obNode := node.Child("on_board"); obNode != nil {
		val, _ := sexp.GetString(obNode, 1)
		comp.OnBoard = val == "yes"
	}
	if uuidNode := node.Child("uuid"); uuidNode != nil {
		comp.UUID, _ = sexp.GetUUID(uuidNode)
	}

	for _, pn := range node.ChildrenNamed("property") {
		prop, err := sexp.GetProperty(pn, source)
		if err != nil {
			continue
		}
		comp.Props = append(comp.Props, prop)
		switch prop.Key {
		case "Reference":
			comp.Ref = prop.Value
		case "Value":
			comp.Value = prop.Value
		case "Footprint":
			comp.Footprint = prop.Value
		}
	}

	for _, pn := range node.ChildrenNamed("pin") {
		ref := PinRef{}
		ref.Number, _ = sexp.GetString(pn, 1)
		if uuidNode := pn.Child("uuid"); uuidNode != nil {
			ref.UUID, _ = sexp.GetUUID(uuidNode)
		}
		comp.Pins = append(comp.Pins, ref)
	}

	if instNode := node.Child("instances"); instNode != nil {
		comp.instancesRaw = instNode.Raw(source)
		comp.Instances = parseInstances(instNode)
	}

	for _, c := range node.Children {
		if c.IsList && !componentKnownChildren[c.Name()] {
			comp.extraRaw = append(comp.extraRaw, c.Raw(source))
		}
	}

	return comp, nil
}

// parseInstances extracts the first project/path pair from an
// (instances ...) block.
func parseInstances(node *kicadsexp.Node) *InstanceInfo {
	projNode := node.Child("project")
	if projNode == nil {
		return nil
	}
	info := &InstanceInfo{}
	info.Project, _ = sexp.GetString(projNode, 1)
	if pathNode := projNode.Child("path"); pathNode != nil {
		info.Path, _ = sexp.GetString(pathNode, 1)
	}
	return info
}

// componentAsPowerVisual reinterprets a parsed power symbol instance as a
// net visual. The net name is the symbol's Value property.
func componentAsPowerVisual(comp *Component) *Visual {
	return &Visual{
		Kind:  VisualPower,
		Text:  comp.Value,
		Pos:   comp.Pos,
		Angle: comp.Angle,
		UUID:  comp.UUID,
		LibID: comp.LibID,
		Ref:   comp.Ref,

		pins:      comp.Pins,
		Instances: comp.Instances,
		extraRaw:  comp.extraRaw,
	}
}

// parseLabelVisual parses (label ...), (global_label ...) and
// (hierarchical_label ...) nodes into a Visual.
func parseLabelVisual(node *kicadsexp.Node, source []byte) (*Visual, error) {
	v := &Visual{}
	switch node.Name() {
	case "label":
		v.Kind = VisualLabel
	case "global_label":
		v.Kind = VisualGlobalLabel
	case "hierarchical_label":
		v.Kind = VisualHierLabel
	default:
		return nil, fmt.Errorf("not a label node: %q", node.Name())
	}

	text, err := sexp.GetString(node, 1)
	if err != nil {
		return nil, fmt.Errorf("label missing text: %w", err)
	}
	v.Text = text

	if shapeNode := node.Child("shape"); shapeNode != nil {
		v.Shape, _ = sexp.GetString(shapeNode, 1)
	}
	if atNode := node.Child("at"); atNode != nil {
		pos, err := sexp.GetPosition(atNode)
		if err != nil {
			return nil, err
		}
		v.Pos = pos.Position
		v.Angle = pos.Angle
	}
	if effectsNode := node.Child("effects"); effectsNode != nil {
		v.effectsRaw = effectsNode.Raw(source)
	}
	if uuidNode := node.Child("uuid"); uuidNode != nil {
		v.UUID, _ = sexp.GetUUID(uuidNode)
	}

	return v, nil
}

var sheetKnownChildren = map[string]bool{
	"at": true, "size": true, "uuid": true, "property": true, "pin": true,
}

// parseSheet parses a hierarchical (sheet ...) reference.
func parseSheet(node *kicadsexp.Node, source []byte) (*SheetRef, error) {
	sheet := &SheetRef{}

	if atNode := node.Child("at"); atNode != nil {
		pos, err := sexp.GetPosition(atNode)
		if err != nil {
			return nil, err
		}
		sheet.Pos = pos.Position
	}
	if sizeNode := node.Child("size"); sizeNode != nil {
		sheet.Size, _ = sexp.GetSize(sizeNode)
	}
	if uuidNode := node.Child("uuid"); uuidNode != nil {
		sheet.UUID, _ = sexp.GetUUID(uuidNode)
	}

	for _, pn := range node.ChildrenNamed("property") {
		prop, err := sexp.GetProperty(pn, source)
		if err != nil {
			continue
		}
		switch prop.Key {
		case "Sheetname":
			sheet.Name = prop.Value
		case "Sheetfile":
			sheet.File = prop.Value
		default:
			sheet.Props = append(sheet.Props, prop)
		}
	}
	if sheet.Name == "" {
		return nil, fmt.Errorf("sheet missing Sheetname property")
	}

	for _, pn := range node.ChildrenNamed("pin") {
		pin := SheetPin{}
		pin.Name, _ = sexp.GetString(pn, 1)
		pin.Shape, _ = sexp.GetString(pn, 2)
		if atNode := pn.Child("at"); atNode != nil {
			pos, _ := sexp.GetPosition(atNode)
			pin.Pos = pos.Position
			pin.Angle = pos.Angle
		}
		if uuidNode := pn.Child("uuid"); uuidNode != nil {
			pin.UUID, _ = sexp.GetUUID(uuidNode)
		}
		sheet.Pins = append(sheet.Pins, pin)
	}

	for _, c := range node.Children {
		if c.IsList && !sheetKnownChildren[c.Name()] {
			sheet.extraRaw = append(sheet.extraRaw, c.Raw(source))
		}
	}

	return sheet, nil
}

// powerRefSeq extracts the numeric suffix of a power symbol reference like
// "#PWR012". Returns -1 for anything else.
func powerRefSeq(ref string) int {
	if !strings.HasPrefix(ref, "#PWR") {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimPrefix(ref, "#PWR"))
	if err != nil {
		return -1
	}
	return n
}

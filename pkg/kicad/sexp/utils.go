package sexp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/kicadsync/pkg/kicad/sexp/kicadsexp"
)

// Typed value extraction helpers over kicadsexp nodes.

// GetString extracts the atom value at the given index in a list.
// Index 0 is the key, 1 is the first value, etc.
func GetString(n *kicadsexp.Node, index int) (string, error) {
	arg := n.Arg(index)
	if arg == nil {
		return "", fmt.Errorf("index %d out of bounds", index)
	}
	if arg.IsList {
		return "", fmt.Errorf("expected atom at index %d, got list", index)
	}
	return arg.Value, nil
}

// GetFloat extracts a float64 value at the given index.
func GetFloat(n *kicadsexp.Node, index int) (float64, error) {
	str, err := GetString(n, index)
	if err != nil {
		return 0, err
	}
	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse float %q: %w", str, err)
	}
	return val, nil
}

// GetInt extracts an int value at the given index.
func GetInt(n *kicadsexp.Node, index int) (int, error) {
	str, err := GetString(n, index)
	if err != nil {
		return 0, err
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("failed to parse int %q: %w", str, err)
	}
	return val, nil
}

// GetPosition extracts position and angle from an (at X Y [angle]) node.
// Schematic coordinates are already in millimeters and angles in degrees.
func GetPosition(n *kicadsexp.Node) (PositionAngle, error) {
	if n == nil || !n.IsList {
		return PositionAngle{}, fmt.Errorf("expected (at X Y [angle]) list")
	}
	if n.Name() != "at" {
		return PositionAngle{}, fmt.Errorf("expected 'at', got %q", n.Name())
	}

	x, err := GetFloat(n, 1)
	if err != nil {
		return PositionAngle{}, fmt.Errorf("failed to parse X coordinate: %w", err)
	}
	y, err := GetFloat(n, 2)
	if err != nil {
		return PositionAngle{}, fmt.Errorf("failed to parse Y coordinate: %w", err)
	}

	result := PositionAngle{Position: Position{X: x, Y: y}}

	// Angle is optional
	if angle, err := GetFloat(n, 3); err == nil {
		result.Angle = Angle(angle)
	}

	return result, nil
}

// GetPositionXY extracts just X,Y coordinates from a (keyword X Y) node,
// used for (start ...), (end ...), (xy ...) and friends.
func GetPositionXY(n *kicadsexp.Node) (Position, error) {
	if n == nil || !n.IsList {
		return Position{}, fmt.Errorf("expected position list")
	}
	x, err := GetFloat(n, 1)
	if err != nil {
		return Position{}, fmt.Errorf("failed to parse X: %w", err)
	}
	y, err := GetFloat(n, 2)
	if err != nil {
		return Position{}, fmt.Errorf("failed to parse Y: %w", err)
	}
	return Position{X: x, Y: y}, nil
}

// GetSize extracts width and height from a (size W H) node.
func GetSize(n *kicadsexp.Node) (Size, error) {
	if n == nil || !n.IsList {
		return Size{}, fmt.Errorf("expected size list")
	}
	w, err := GetFloat(n, 1)
	if err != nil {
		return Size{}, fmt.Errorf("failed to parse width: %w", err)
	}
	h, err := GetFloat(n, 2)
	if err != nil {
		return Size{}, fmt.Errorf("failed to parse height: %w", err)
	}
	return Size{Width: w, Height: h}, nil
}

// GetUUID extracts a UUID from a (uuid "...") node. Both quoted and bare
// forms appear in the wild.
func GetUUID(n *kicadsexp.Node) (UUID, error) {
	if n == nil || !n.IsList || n.Name() != "uuid" {
		return "", fmt.Errorf("expected 'uuid' node")
	}
	val, err := GetString(n, 1)
	if err != nil {
		return "", err
	}
	return UUID(val), nil
}

// GetProperty extracts a property from a (property "Key" "Value" ...) node,
// preserving the verbatim effects block for round-tripping.
func GetProperty(n *kicadsexp.Node, source []byte) (Property, error) {
	if n == nil || !n.IsList {
		return Property{}, fmt.Errorf("expected (property ...) list")
	}

	key, err := GetString(n, 1)
	if err != nil {
		return Property{}, fmt.Errorf("failed to parse property key: %w", err)
	}

	prop := Property{Key: key}
	// Value can be empty
	prop.Value, _ = GetString(n, 2)

	if atNode := n.Child("at"); atNode != nil {
		if pos, err := GetPosition(atNode); err == nil {
			prop.Pos = pos
			prop.HasPos = true
		}
	}

	if effectsNode := n.Child("effects"); effectsNode != nil {
		prop.EffectsRaw = effectsNode.Raw(source)
		prop.Hide = effectsNode.HasFlag("hide")
		if hideNode := effectsNode.Child("hide"); hideNode != nil {
			val, _ := GetString(hideNode, 1)
			prop.Hide = val == "yes"
		}
	}

	return prop, nil
}

// FormatFloat writes a coordinate the way KiCad does: up to four decimal
// places, trailing zeros trimmed, never scientific notation.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		s = "0"
	}
	return s
}

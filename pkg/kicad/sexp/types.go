// Package sexp provides shared S-expression value types and extraction
// helpers for KiCad schematic files. Schematic coordinates are stored in
// millimeters and angles in degrees, matching the on-disk format.
package sexp

import "math"

// Position represents a 2D coordinate in the KiCad schematic coordinate
// system (millimeters, Y axis pointing down).
type Position struct {
	X float64
	Y float64
}

// Angle represents rotation in degrees. Schematic entities only use the four
// cardinal orientations (0, 90, 180, 270).
type Angle float64

// PositionAngle combines position with rotation.
type PositionAngle struct {
	Position
	Angle Angle
}

// Size represents dimensions in millimeters.
type Size struct {
	Width  float64
	Height float64
}

// UUID represents a unique identifier (KiCad v6+ files).
type UUID string

// Property represents a named key-value property attached to a symbol or
// sheet. EffectsRaw preserves the verbatim (effects ...) block of parsed
// properties; empty means render default effects.
type Property struct {
	Key        string
	Value      string
	Pos        PositionAngle
	HasPos     bool
	Hide       bool
	EffectsRaw string
}

// CoordEpsilon is the tolerance used when comparing schematic coordinates.
// Positions are written with at most four decimal places, so anything below
// a tenth of a micrometer is noise.
const CoordEpsilon = 1e-4

// SamePosition reports whether two positions coincide within CoordEpsilon.
func SamePosition(a, b Position) bool {
	return math.Abs(a.X-b.X) < CoordEpsilon && math.Abs(a.Y-b.Y) < CoordEpsilon
}

// NormalizeAngle folds an angle into [0, 360).
func NormalizeAngle(a Angle) Angle {
	deg := math.Mod(float64(a), 360)
	if deg < 0 {
		deg += 360
	}
	return Angle(deg)
}

// Rotate rotates a point around the origin by a cardinal angle, in the
// KiCad Y-down coordinate system.
func Rotate(p Position, a Angle) Position {
	switch NormalizeAngle(a) {
	case 90:
		return Position{X: p.Y, Y: -p.X}
	case 180:
		return Position{X: -p.X, Y: -p.Y}
	case 270:
		return Position{X: -p.Y, Y: p.X}
	default:
		return p
	}
}

// Translate returns p offset by d.
func Translate(p, d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// BoundingBox represents a rectangular boundary.
type BoundingBox struct {
	Min Position
	Max Position
}

// NewBoundingBox creates an empty bounding box.
func NewBoundingBox() BoundingBox {
	return BoundingBox{
		Min: Position{X: 1e9, Y: 1e9},
		Max: Position{X: -1e9, Y: -1e9},
	}
}

// IsEmpty checks if the bounding box is empty.
func (bb BoundingBox) IsEmpty() bool {
	return bb.Min.X > bb.Max.X || bb.Min.Y > bb.Max.Y
}

// Expand expands the bounding box to include a position.
func (bb *BoundingBox) Expand(pos Position) {
	if pos.X < bb.Min.X {
		bb.Min.X = pos.X
	}
	if pos.Y < bb.Min.Y {
		bb.Min.Y = pos.Y
	}
	if pos.X > bb.Max.X {
		bb.Max.X = pos.X
	}
	if pos.Y > bb.Max.Y {
		bb.Max.Y = pos.Y
	}
}

// Width returns the width of the bounding box.
func (bb BoundingBox) Width() float64 {
	return bb.Max.X - bb.Min.X
}

// Height returns the height of the bounding box.
func (bb BoundingBox) Height() float64 {
	return bb.Max.Y - bb.Min.Y
}

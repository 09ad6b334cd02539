package sync

import (
	"errors"
	"math"

	"github.com/OpenTraceLab/kicadsync/pkg/kicad/schematic"
	"github.com/OpenTraceLab/kicadsync/pkg/kicad/sexp"
)

// Placer chooses coordinates for newly added entities. Existing entities
// never move; the placer only sees what the document could not supply.
type Placer interface {
	// Place returns position and rotation for a new entity on the given
	// document. Implementations may fail when no room is left, which
	// aborts the whole run.
	Place(doc *schematic.Document, ref string) (sexp.Position, sexp.Angle, error)
}

// GridPlacer lays new entities out on a grid below the occupied area of the
// sheet, filling rows left to right. Coordinates snap to the standard
// 1.27 mm pin grid so added pins land on wire-connectable positions.
type GridPlacer struct {
	StepX   float64 // column pitch in mm
	StepY   float64 // row pitch in mm
	Columns int     // entities per row
	Margin  float64 // gap between existing content and the first new row
	// MaxRows, when positive, bounds the area the placer may use; running
	// past it fails the placement.
	MaxRows int

	counts map[*schematic.Document]int
}

// NewGridPlacer returns a placer with the default geometry: 25.4 mm pitch,
// four columns, one row of margin.
func NewGridPlacer() *GridPlacer {
	return &GridPlacer{StepX: 25.4, StepY: 25.4, Columns: 4, Margin: 12.7}
}

func (g *GridPlacer) Place(doc *schematic.Document, ref string) (sexp.Position, sexp.Angle, error) {
	if g.Columns <= 0 {
		return sexp.Position{}, 0, errors.New("grid placer: column count must be positive")
	}
	if g.counts == nil {
		g.counts = make(map[*schematic.Document]int)
	}
	i := g.counts[doc]

	row := i / g.Columns
	if g.MaxRows > 0 && row >= g.MaxRows {
		return sexp.Position{}, 0, errors.New("grid placer: placement area exhausted")
	}
	g.counts[doc] = i + 1

	origin := sexp.Position{X: 25.4, Y: 25.4}
	if b := doc.Bounds(); !b.IsEmpty() {
		origin.Y = b.Max.Y + g.Margin
	}

	pos := sexp.Position{
		X: snapGrid(origin.X + float64(i%g.Columns)*g.StepX),
		Y: snapGrid(origin.Y + float64(row)*g.StepY),
	}
	return pos, 0, nil
}

// snapGrid rounds a coordinate to the 1.27 mm grid.
func snapGrid(v float64) float64 {
	return math.Round(v/1.27) * 1.27
}

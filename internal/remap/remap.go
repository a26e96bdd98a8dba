// Package remap projects geographic-degree points into a local uniform grid.
package remap

import (
	"fmt"
	"math"

	"gmlparser/internal/extract"
	"gmlparser/internal/model"
	"gmlparser/internal/util"
)

// Remap maps point into grid units: (point - origin) / scale. scale is the
// number of degrees per grid unit.
func Remap(point, origin model.Vec3, scale float64) model.Vec3 {
	return point.Subtract(origin).Scale(1 / scale)
}

// Grid is a local grid anchored at Origin with Scale degrees per unit.
type Grid struct {
	Origin model.Vec3
	Scale  float64
}

// NewGrid validates the scale and returns a Grid.
func NewGrid(origin model.Vec3, scale float64) (Grid, error) {
	if scale == 0 {
		return Grid{}, fmt.Errorf("grid scale: %w", model.ErrDivideByZero)
	}
	if math.IsNaN(scale) || math.IsInf(scale, 0) {
		return Grid{}, fmt.Errorf("grid scale %v: %w", scale, model.ErrInvalidOperand)
	}
	return Grid{Origin: origin, Scale: scale}, nil
}

// ToLocal maps a geographic point into grid units.
func (g Grid) ToLocal(p model.Vec3) model.Vec3 {
	return Remap(p, g.Origin, g.Scale)
}

// ToGeo maps grid units back to geographic coordinates.
func (g Grid) ToGeo(local model.Vec3) model.Vec3 {
	return local.Scale(g.Scale).Add(g.Origin)
}

// Cell returns the integer grid cell containing the geographic point p.
func (g Grid) Cell(p model.Vec3) model.Vec3 {
	return g.ToLocal(p).ToBlockLocation()
}

// Building remaps every point of b. The bounding box is recomputed from the
// remapped ring, so a negative scale still yields Min <= Max.
func (g Grid) Building(b model.Building) model.Building {
	points := make([]model.Vec3, len(b.Polygon))
	for i, p := range b.Polygon {
		points[i] = g.ToLocal(p)
	}
	return extract.BuildingFromPoints(b.ID, points)
}

// Tile remaps every building of t and its mean.
func (g Grid) Tile(t model.Tile) model.Tile {
	out := t
	out.Buildings = make([]model.Building, len(t.Buildings))
	for i, b := range t.Buildings {
		out.Buildings[i] = g.Building(b)
	}
	out.Mean = g.ToLocal(t.Mean)
	return out
}

// UnitMeters returns the ground length of one grid unit measured along the
// first axis (latitude) at the origin.
func (g Grid) UnitMeters() float64 {
	return util.HaversineDistance(g.Origin.X, g.Origin.Y, g.Origin.X+g.Scale, g.Origin.Y)
}

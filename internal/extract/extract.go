// Package extract turns parsed building records into roof-edge rings,
// bounding boxes and point-weighted means.
package extract

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gmlparser/internal/model"
)

// Record is one parsed building record.
type Record interface {
	// RecordID returns the source identifier, or "" if there is none.
	RecordID() string
	// PosList returns the exterior ring as whitespace-separated x y z triples.
	PosList() string
}

// ParsePosList splits a posList on whitespace runs and parses every token as a
// finite decimal number.
func ParsePosList(posList string) ([]float64, error) {
	fields := strings.Fields(posList)
	values := make([]float64, 0, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, fmt.Errorf("coordinate %d %q: %w", i, f, model.ErrInvalidOperand)
		}
		values = append(values, v)
	}
	return values, nil
}

// Points groups coordinates into consecutive (x, y, z) triples. A trailing
// group of one or two values is dropped.
func Points(values []float64) []model.Vec3 {
	points := make([]model.Vec3, 0, len(values)/3)
	for i := 0; i+2 < len(values); i += 3 {
		points = append(points, model.NewVec3(values[i], values[i+1], values[i+2]))
	}
	return points
}

// BuildingFromPoints builds a Building from an ordered ring, tracking the
// per-axis extrema of every point.
func BuildingFromPoints(id string, points []model.Vec3) model.Building {
	b := model.Building{
		ID:      id,
		Polygon: make([]model.Vec3, 0, len(points)),
	}

	var min, max model.Vec3
	for i, p := range points {
		b.Polygon = append(b.Polygon, p)
		if i == 0 {
			min, max = p, p
			continue
		}
		min = model.NewVec3(math.Min(min.X, p.X), math.Min(min.Y, p.Y), math.Min(min.Z, p.Z))
		max = model.NewVec3(math.Max(max.X, p.X), math.Max(max.Y, p.Y), math.Max(max.Z, p.Z))
	}

	if len(b.Polygon) > 0 {
		b.Min, b.Max = &min, &max
	}
	return b
}

// ExtractBuilding parses one record into a Building.
func ExtractBuilding(r Record) (model.Building, error) {
	values, err := ParsePosList(r.PosList())
	if err != nil {
		if id := r.RecordID(); id != "" {
			return model.Building{}, fmt.Errorf("building %s: %w", id, err)
		}
		return model.Building{}, err
	}
	return BuildingFromPoints(r.RecordID(), Points(values)), nil
}

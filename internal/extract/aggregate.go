package extract

import (
	"fmt"

	"gmlparser/internal/model"
)

// Accumulator is a running point sum and count.
type Accumulator struct {
	Sum   model.Vec3
	Count int
}

// Add folds one point into the accumulator.
func (a *Accumulator) Add(p model.Vec3) {
	a.Sum = a.Sum.Add(p)
	a.Count++
}

// AddBuilding folds every point of b into the accumulator.
func (a *Accumulator) AddBuilding(b model.Building) {
	for _, p := range b.Polygon {
		a.Add(p)
	}
}

// Merge folds another accumulator into a.
func (a *Accumulator) Merge(o Accumulator) {
	a.Sum = a.Sum.Add(o.Sum)
	a.Count += o.Count
}

// Mean returns Sum / Count. An empty accumulator yields ErrDivideByZero.
func (a Accumulator) Mean() (model.Vec3, error) {
	return a.Sum.DivideScalar(float64(a.Count))
}

// AggregateTile extracts every record in order and computes the tile mean over
// all extracted points. A tile without points fails with ErrDivideByZero.
func AggregateTile[R Record](areaIndex, index int, records []R) (model.Tile, Accumulator, error) {
	tile := model.Tile{
		AreaIndex: areaIndex,
		Index:     index,
		Buildings: make([]model.Building, 0, len(records)),
	}

	var acc Accumulator
	for i, r := range records {
		b, err := ExtractBuilding(r)
		if err != nil {
			return model.Tile{}, Accumulator{}, fmt.Errorf("tile %s record %d: %w", tile.Key(), i, err)
		}
		acc.AddBuilding(b)
		tile.Buildings = append(tile.Buildings, b)
	}

	mean, err := acc.Mean()
	if err != nil {
		return model.Tile{}, Accumulator{}, fmt.Errorf("tile %s has no points: %w", tile.Key(), err)
	}
	tile.Mean = mean
	tile.PointCount = acc.Count

	return tile, acc, nil
}

// DatasetMean merges per-tile accumulators into the point-weighted mean of the
// whole dataset.
func DatasetMean(accs []Accumulator) (model.Vec3, error) {
	var total Accumulator
	for _, a := range accs {
		total.Merge(a)
	}
	mean, err := total.Mean()
	if err != nil {
		return model.Vec3{}, fmt.Errorf("dataset has no points: %w", err)
	}
	return mean, nil
}

// TileAccumulator rebuilds the accumulator of an already aggregated tile.
func TileAccumulator(t model.Tile) Accumulator {
	var acc Accumulator
	for _, b := range t.Buildings {
		acc.AddBuilding(b)
	}
	return acc
}

package model

import "fmt"

// Tile is one source file's worth of buildings.
type Tile struct {
	AreaIndex int        `json:"areaIndex"`
	Index     int        `json:"index"`
	Buildings []Building `json:"buildings"`

	// Mean is the average of every point of every building in the tile,
	// weighted by point count. PointCount is the number of points behind it.
	Mean       Vec3 `json:"-"`
	PointCount int  `json:"-"`
}

// Key identifies a tile across the store, the cache and the database.
func (t Tile) Key() string {
	return TileKey(t.AreaIndex, t.Index)
}

// TileKey formats the identifier of the tile with the given area and index.
func TileKey(areaIndex, index int) string {
	return fmt.Sprintf("%d:%d", areaIndex, index)
}

// Dataset is the result of processing a set of tiles.
type Dataset struct {
	Tiles []Tile
	// Mean is the point-weighted average over all tiles.
	Mean Vec3
}

// BuildingCount returns the number of buildings across all tiles.
func (d Dataset) BuildingCount() int {
	n := 0
	for _, t := range d.Tiles {
		n += len(t.Buildings)
	}
	return n
}

// Package spatial indexes building bounding boxes for rectangle queries.
package spatial

import (
	"cmp"
	"math"
	"slices"

	"gmlparser/internal/model"

	"github.com/dhconnelly/rtreego"
)

// minSide pads degenerate (point or line) boxes, which rtreego rejects.
const minSide = 1e-12

// BuildingSpatial represents a building with its spatial information for
// R-tree indexing.
type BuildingSpatial struct {
	AreaIndex int
	TileIndex int
	Position  int // index of the building inside its tile
	Building  model.Building
}

// Bounds implements the rtreego.Spatial interface. The rectangle covers the
// first two axes of the building's bounding box.
func (b *BuildingSpatial) Bounds() rtreego.Rect {
	min, max := *b.Building.Min, *b.Building.Max
	rect, _ := rtreego.NewRect(
		rtreego.Point{min.X, min.Y},
		[]float64{math.Max(max.X-min.X, minSide), math.Max(max.Y-min.Y, minSide)},
	)
	return rect
}

// Index is a 2D R-tree over building bounding boxes.
type Index struct {
	tree *rtreego.Rtree
}

// NewIndex builds an index over every building of the given tiles. Buildings
// without bounds are skipped.
func NewIndex(tiles []model.Tile) *Index {
	idx := &Index{tree: rtreego.NewTree(2, 25, 50)} // 2D index with min 25, max 50 entries per node
	for _, t := range tiles {
		idx.AddTile(t)
	}
	return idx
}

// AddTile inserts the buildings of t.
func (idx *Index) AddTile(t model.Tile) {
	for i, b := range t.Buildings {
		if !b.HasBounds() {
			continue
		}
		idx.tree.Insert(&BuildingSpatial{
			AreaIndex: t.AreaIndex,
			TileIndex: t.Index,
			Position:  i,
			Building:  b,
		})
	}
}

// Size returns the number of indexed buildings.
func (idx *Index) Size() int {
	return idx.tree.Size()
}

// Intersecting returns buildings whose bounding box overlaps the rectangle
// spanned by min and max on the first two axes.
func (idx *Index) Intersecting(min, max model.Vec3) []*BuildingSpatial {
	rect, ok := queryRect(min, max)
	if !ok {
		return nil
	}
	found := idx.tree.SearchIntersect(rect)
	out := make([]*BuildingSpatial, 0, len(found))
	for _, s := range found {
		out = append(out, s.(*BuildingSpatial))
	}
	slices.SortFunc(out, compareSpatial)
	return out
}

// compareSpatial orders results by area, tile and source position.
func compareSpatial(a, b *BuildingSpatial) int {
	if c := cmp.Compare(a.AreaIndex, b.AreaIndex); c != 0 {
		return c
	}
	if c := cmp.Compare(a.TileIndex, b.TileIndex); c != 0 {
		return c
	}
	return cmp.Compare(a.Position, b.Position)
}

// Within returns buildings whose bounding box lies strictly inside the
// rectangle spanned by min and max on the first two axes.
func (idx *Index) Within(min, max model.Vec3) []*BuildingSpatial {
	candidates := idx.Intersecting(min, max)
	out := candidates[:0]
	for _, c := range candidates {
		bmin, bmax := c.Building.Min, c.Building.Max
		if min.X < bmin.X && bmax.X < max.X && min.Y < bmin.Y && bmax.Y < max.Y {
			out = append(out, c)
		}
	}
	return out
}

func queryRect(min, max model.Vec3) (rtreego.Rect, bool) {
	if max.X < min.X || max.Y < min.Y {
		return rtreego.Rect{}, false
	}
	rect, err := rtreego.NewRect(
		rtreego.Point{min.X, min.Y},
		[]float64{math.Max(max.X-min.X, minSide), math.Max(max.Y-min.Y, minSide)},
	)
	if err != nil {
		return rtreego.Rect{}, false
	}
	return rect, true
}

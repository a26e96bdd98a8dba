package model

import (
	"github.com/paulmach/orb"
)

// Building is the roof edge of one city object: its exterior ring in source
// order and the ring's axis-aligned bounding box. Min and Max are nil when the
// ring is empty.
type Building struct {
	ID      string `json:"id,omitempty"` // gml:id of the source record, if any
	Polygon []Vec3 `json:"polygon"`
	Min     *Vec3  `json:"min,omitempty"`
	Max     *Vec3  `json:"max,omitempty"`
}

// HasBounds reports whether the building has a bounding box.
func (b Building) HasBounds() bool {
	return b.Min != nil && b.Max != nil
}

// Ring converts the polygon to a 2D orb ring in [lon, lat] order. The source
// points are latitude-first, so X and Y are swapped. The ring is returned
// unclosed, exactly as stored.
func (b Building) Ring() orb.Ring {
	ring := make(orb.Ring, 0, len(b.Polygon))
	for _, p := range b.Polygon {
		ring = append(ring, LonLat(p))
	}
	return ring
}

// Bound returns the 2D [lon, lat] bounds of the building. ok is false when the
// building has no bounding box.
func (b Building) Bound() (bound orb.Bound, ok bool) {
	if !b.HasBounds() {
		return orb.Bound{}, false
	}
	return orb.Bound{Min: LonLat(*b.Min), Max: LonLat(*b.Max)}, true
}

// LonLat returns the horizontal position of a latitude-first point as an orb
// point.
func LonLat(p Vec3) orb.Point {
	return orb.Point{p.Y, p.X}
}

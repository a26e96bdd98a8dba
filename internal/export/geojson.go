package export

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"

	"gmlparser/internal/model"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// TilesToGeoJSON converts roof rings to a FeatureCollection of polygons in
// [lon, lat] order. Rings are closed in the output only. Buildings with fewer
// than three points cannot form a polygon and are counted in skipped.
func TilesToGeoJSON(tiles []model.Tile) (fc *geojson.FeatureCollection, skipped int) {
	fc = geojson.NewFeatureCollection()

	for _, t := range tiles {
		for i, b := range t.Buildings {
			if len(b.Polygon) < 3 {
				skipped++
				continue
			}
			fc.Append(buildingFeature(t, i, b))
		}
	}

	return fc, skipped
}

func buildingFeature(t model.Tile, position int, b model.Building) *geojson.Feature {
	ring := b.Ring()
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	polygon := orb.Polygon{ring}

	feature := geojson.NewFeature(polygon)
	centroid, _ := planar.CentroidArea(polygon)

	feature.Properties["area_index"] = t.AreaIndex
	feature.Properties["tile_index"] = t.Index
	feature.Properties["position"] = position
	feature.Properties["area_m2"] = math.Abs(geo.Area(polygon))
	feature.Properties["centroid"] = []float64{centroid[0], centroid[1]}
	if b.ID != "" {
		feature.Properties["id"] = b.ID
	}
	if b.HasBounds() {
		feature.Properties["min_z"] = b.Min.Z
		feature.Properties["max_z"] = b.Max.Z
	}

	return feature
}

// WriteGeoJSON exports tiles to a GeoJSON file for visualization.
func WriteGeoJSON(path string, tiles []model.Tile) error {
	fc, skipped := TilesToGeoJSON(tiles)
	log.Printf("Exporting %d buildings to GeoJSON file: %s (%d skipped)", len(fc.Features), path, skipped)

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write GeoJSON file: %w", err)
	}
	return nil
}

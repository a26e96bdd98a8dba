// Package export writes extraction results to JSON and GeoJSON files.
package export

import (
	"encoding/json"
	"fmt"
	"os"

	"gmlparser/internal/model"
)

// WriteTiles writes tiles as an indented JSON array.
func WriteTiles(path string, tiles []model.Tile) error {
	if tiles == nil {
		tiles = []model.Tile{}
	}
	data, err := json.MarshalIndent(tiles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tiles: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write tiles file: %w", err)
	}
	return nil
}

// ReadTiles reads a file written by WriteTiles. Tile means are not part of
// the file and are left zero; callers recompute them from the buildings.
func ReadTiles(path string) ([]model.Tile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tiles file: %w", err)
	}
	var tiles []model.Tile
	if err := json.Unmarshal(data, &tiles); err != nil {
		return nil, fmt.Errorf("failed to parse tiles file %s: %w", path, err)
	}
	return tiles, nil
}

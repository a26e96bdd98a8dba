package redis

import (
	"encoding/json"
	"errors"
	"fmt"

	"gmlparser/internal/config"
	"gmlparser/internal/model"

	"github.com/redis/go-redis/v9"
)

// TileCacheKey returns the Redis key of a cached tile.
func TileCacheKey(areaIndex, index int) string {
	return "gml:tile:" + model.TileKey(areaIndex, index)
}

// tileEntry carries the fields the public tile JSON leaves out.
type tileEntry struct {
	model.Tile
	Mean       model.Vec3 `json:"mean"`
	PointCount int        `json:"pointCount"`
}

func encodeTile(t model.Tile) ([]byte, error) {
	return json.Marshal(tileEntry{Tile: t, Mean: t.Mean, PointCount: t.PointCount})
}

func decodeTile(data []byte) (model.Tile, error) {
	var e tileEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return model.Tile{}, err
	}
	t := e.Tile
	t.Mean = e.Mean
	t.PointCount = e.PointCount
	if t.Buildings == nil {
		t.Buildings = []model.Building{}
	}
	return t, nil
}

// CacheTile stores t for config.TileCacheTTL.
func CacheTile(t model.Tile) error {
	data, err := encodeTile(t)
	if err != nil {
		return fmt.Errorf("failed to encode tile %s: %w", t.Key(), err)
	}
	return Set(TileCacheKey(t.AreaIndex, t.Index), data, config.TileCacheTTL)
}

// CachedTile returns the cached tile. ok is false on a cache miss.
func CachedTile(areaIndex, index int) (t model.Tile, ok bool, err error) {
	raw, err := Get(TileCacheKey(areaIndex, index))
	if errors.Is(err, redis.Nil) {
		return model.Tile{}, false, nil
	}
	if err != nil {
		return model.Tile{}, false, err
	}
	t, err = decodeTile([]byte(raw))
	if err != nil {
		return model.Tile{}, false, fmt.Errorf("corrupt cache entry for tile %s: %w", model.TileKey(areaIndex, index), err)
	}
	return t, true, nil
}

// InvalidateTile drops a cached tile.
func InvalidateTile(areaIndex, index int) error {
	return Delete(TileCacheKey(areaIndex, index))
}

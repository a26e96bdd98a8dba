// Package tile runs the extraction pipeline and serves extracted tiles from
// memory, backed by PostgreSQL and a Redis cache.
package tile

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"gmlparser/internal/extract"
	"gmlparser/internal/model"
	pg "gmlparser/internal/postgres"
	"gmlparser/internal/redis"
	"gmlparser/internal/service/storage"
	"gmlparser/internal/spatial"

	"gorm.io/gorm"
)

// TileService keeps tiles in memory with a spatial index over their
// buildings. The database and the cache are both optional.
type TileService struct {
	storage storage.Storage[string, model.Tile]

	spatialIndex *spatial.Index
	indexMutex   sync.RWMutex

	db       *gorm.DB
	useCache bool
	// saveTile persists one tile; nil without a database.
	saveTile func(ctx context.Context, t model.Tile) error
}

// NewTileService creates an empty service. db may be nil; useCache enables
// the Redis tile cache and requires redis.Init to have been called.
func NewTileService(db *gorm.DB, useCache bool) *TileService {
	s := &TileService{
		storage:      storage.NewMemoryStorage[string, model.Tile](),
		spatialIndex: spatial.NewIndex(nil),
		db:           db,
		useCache:     useCache,
	}
	if db != nil {
		s.saveTile = func(ctx context.Context, t model.Tile) error {
			return pg.SaveTile(db.WithContext(ctx), t)
		}
	}
	return s
}

// InitService loads every stored tile from PostgreSQL and builds the index.
func (s *TileService) InitService(ctx context.Context) error {
	if s.db == nil {
		return errors.New("tile service has no database")
	}

	log.Println("=== Starting TileService initialization ===")
	start := time.Now()

	tiles, err := pg.LoadTiles(s.db.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to load tiles from PostgreSQL: %w", err)
	}
	log.Printf("PostgreSQL loading completed: %d tiles loaded in %v", len(tiles), time.Since(start))

	s.Load(tiles)
	log.Printf("=== TileService initialization completed: %d tiles in %v ===", s.Count(), time.Since(start))
	return nil
}

// Load stores tiles that are already persisted and rebuilds the index.
// Tiles without a point count get their mean recomputed.
func (s *TileService) Load(tiles []model.Tile) {
	s.indexMutex.Lock()
	defer s.indexMutex.Unlock()

	for _, t := range tiles {
		t = withMean(t)
		s.storage.Load(t.Key(), t)
	}
	s.rebuildSpatialIndexLocked()
}

// Put stores a new or replaced tile and marks it for the next Flush. Writes
// to the store, the index and the cache happen under indexMutex, so the
// index never holds a building twice.
func (s *TileService) Put(t model.Tile) {
	t = withMean(t)

	s.indexMutex.Lock()
	defer s.indexMutex.Unlock()

	_, replaced := s.storage.Get(t.Key())
	s.storage.Set(t.Key(), t)

	if !replaced {
		s.spatialIndex.AddTile(t)
		return
	}
	if s.useCache {
		if err := redis.InvalidateTile(t.AreaIndex, t.Index); err != nil {
			log.Printf("Failed to invalidate cached tile %s: %v", t.Key(), err)
		}
	}
	s.rebuildSpatialIndexLocked()
}

// Tile returns one tile, looking in memory, then in the Redis cache, then in
// PostgreSQL. Tiles found outside memory are kept in memory afterwards.
func (s *TileService) Tile(ctx context.Context, areaIndex, index int) (model.Tile, bool, error) {
	key := model.TileKey(areaIndex, index)
	if t, ok := s.storage.Get(key); ok {
		return t, true, nil
	}

	if s.useCache {
		t, ok, err := redis.CachedTile(areaIndex, index)
		if err != nil {
			log.Printf("Redis lookup of tile %s failed: %v", key, err)
		} else if ok {
			s.remember(t)
			return t, true, nil
		}
	}

	if s.db == nil {
		return model.Tile{}, false, nil
	}
	var row pg.TilePG
	err := s.db.WithContext(ctx).
		Preload("Buildings", func(tx *gorm.DB) *gorm.DB { return tx.Order("seq") }).
		Where("id = ?", key).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Tile{}, false, nil
	}
	if err != nil {
		return model.Tile{}, false, fmt.Errorf("failed to load tile %s: %w", key, err)
	}

	t := pg.TileFromPG(&row)
	s.remember(t)
	s.cache(t)
	return t, true, nil
}

// remember keeps a tile loaded from a backing store without marking it dirty.
func (s *TileService) remember(t model.Tile) {
	s.indexMutex.Lock()
	defer s.indexMutex.Unlock()

	if _, ok := s.storage.Get(t.Key()); ok {
		return
	}
	s.storage.Load(t.Key(), t)
	s.spatialIndex.AddTile(t)
}

func (s *TileService) cache(t model.Tile) {
	if !s.useCache {
		return
	}
	if err := redis.CacheTile(t); err != nil {
		log.Printf("Failed to cache tile %s: %v", t.Key(), err)
	}
}

// Tiles returns every tile in memory ordered by area and tile index.
func (s *TileService) Tiles() []model.Tile {
	tiles := s.storage.GetAllValues()
	slices.SortFunc(tiles, compareTiles)
	return tiles
}

// Count returns the number of tiles in memory.
func (s *TileService) Count() int {
	return s.storage.Count()
}

// Mean returns the point-weighted mean of every tile in memory.
func (s *TileService) Mean() (model.Vec3, error) {
	var accs []extract.Accumulator
	s.storage.ForEach(func(_ string, t model.Tile) bool {
		accs = append(accs, extract.TileAccumulator(t))
		return true
	})
	return extract.DatasetMean(accs)
}

// Within returns the buildings whose bounding box lies strictly inside the
// latitude/longitude rectangle, ordered by tile and position.
func (s *TileService) Within(minLat, minLon, maxLat, maxLon float64) []*spatial.BuildingSpatial {
	s.indexMutex.RLock()
	defer s.indexMutex.RUnlock()

	return s.spatialIndex.Within(model.NewVec3(minLat, minLon, 0), model.NewVec3(maxLat, maxLon, 0))
}

// Flush saves dirty tiles to PostgreSQL and refreshes their cache entries. It
// returns the number of tiles saved. Tiles that fail stay dirty, and so do
// tiles replaced while their save was running.
func (s *TileService) Flush(ctx context.Context) (int, error) {
	dirty := s.storage.GetDirtyVersions()
	if len(dirty) == 0 {
		return 0, nil
	}
	if s.saveTile == nil {
		return 0, errors.New("tile service has no database")
	}

	start := time.Now()
	saved, stale := 0, 0
	var errs []error
	for key, entry := range dirty {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.saveTile(ctx, entry.Value); err != nil {
			errs = append(errs, err)
			continue
		}
		saved++

		// Put holds indexMutex while it writes and invalidates, so an
		// unchanged entry cannot be replaced between the check and the
		// cache write.
		s.indexMutex.Lock()
		if s.storage.ClearDirtyIfUnchanged(key, entry.Version) {
			s.cache(entry.Value)
		} else {
			stale++
		}
		s.indexMutex.Unlock()
	}

	log.Printf("Flushed %d/%d tiles to PostgreSQL in %v (%d changed during save)", saved, len(dirty), time.Since(start), stale)
	return saved, errors.Join(errs...)
}

// rebuildSpatialIndexLocked replaces the index. The caller holds indexMutex.
func (s *TileService) rebuildSpatialIndexLocked() {
	start := time.Now()
	s.spatialIndex = spatial.NewIndex(s.Tiles())
	log.Printf("Spatial index built: %d buildings in %v", s.spatialIndex.Size(), time.Since(start))
}

// withMean fills in the mean of tiles read back from JSON, which does not
// carry it.
func withMean(t model.Tile) model.Tile {
	if t.PointCount > 0 {
		return t
	}
	acc := extract.TileAccumulator(t)
	if mean, err := acc.Mean(); err == nil {
		t.Mean = mean
		t.PointCount = acc.Count
	}
	return t
}

func compareTiles(a, b model.Tile) int {
	if c := cmp.Compare(a.AreaIndex, b.AreaIndex); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"gmlparser/internal/config"
	"gmlparser/internal/export"
	"gmlparser/internal/extract"
	"gmlparser/internal/metrics"
	"gmlparser/internal/model"
	pg "gmlparser/internal/postgres"
	"gmlparser/internal/redis"
	"gmlparser/internal/remap"
	"gmlparser/internal/service/tile"
	"gmlparser/internal/source/osm"

	"gorm.io/gorm"
)

// Command line flags. Empty or zero values fall back to the configuration.
var (
	format      string
	osmFilePath string
	dataDir     string
	outputFile  string
	tileIndexes string
	workers     int
	remapOutput bool
	geojsonPath string
	saveDB      bool
	cacheRedis  bool
)

func init() {
	flag.StringVar(&format, "format", "gml", "Input format: gml = CityGML tiles, osm = OSM PBF file")
	flag.StringVar(&osmFilePath, "osm-file", "", "Path to OSM PBF file (format osm)")
	flag.StringVar(&dataDir, "data-dir", "", "Directory holding the CityGML tiles (default DATA_DIR)")
	flag.StringVar(&outputFile, "output", "", "Tile JSON output file (default OUTPUT_FILE)")
	flag.StringVar(&tileIndexes, "indexes", "", "Comma-separated tile indexes (default TILE_INDEXES)")
	flag.IntVar(&workers, "workers", 0, "Tiles processed in parallel (default WORKERS)")
	flag.BoolVar(&remapOutput, "remap", false, "Write grid coordinates instead of degrees")
	flag.StringVar(&geojsonPath, "geojson", "", "Also export roof rings to this GeoJSON file")
	flag.BoolVar(&saveDB, "save-db", false, "Save tiles to PostgreSQL (DB_URL)")
	flag.BoolVar(&cacheRedis, "cache-redis", false, "Cache tiles in Redis (REDIS_URL)")
}

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	applyFlags(&cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	start := time.Now()
	var ds model.Dataset
	switch format {
	case "gml":
		ds = runGML(ctx, cfg, collector)
	case "osm":
		ds = runOSM(cfg, collector)
	default:
		log.Fatalf("Invalid format: %q", format)
	}

	log.Printf("Total buildings: %d in %d tiles", ds.BuildingCount(), len(ds.Tiles))
	log.Printf("Dataset mean: %v", ds.Mean)
	log.Printf("Extraction took %v", time.Since(start))

	if geojsonPath != "" {
		if err := export.WriteGeoJSON(geojsonPath, ds.Tiles); err != nil {
			log.Fatalf("Failed to export GeoJSON: %v", err)
		}
	}

	if saveDB || cacheRedis {
		if err := persist(ctx, cfg, ds.Tiles); err != nil {
			log.Fatalf("Failed to persist tiles: %v", err)
		}
	}

	out := ds.Tiles
	if remapOutput {
		out = remapTiles(cfg, ds)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	if err := export.WriteTiles(cfg.OutputFile, out); err != nil {
		log.Fatalf("Failed to write tiles: %v", err)
	}
	log.Printf("Wrote %d tiles to %s in %v", len(out), cfg.OutputFile, time.Since(start))
}

func applyFlags(cfg *config.Config) {
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if outputFile != "" {
		cfg.OutputFile = outputFile
	}
	if tileIndexes != "" {
		cfg.TileIndexes = tileIndexes
	}
	if workers > 0 {
		cfg.Workers = workers
	}
}

func runGML(ctx context.Context, cfg config.Config, m *metrics.Collector) model.Dataset {
	indexes, err := cfg.Indexes()
	if err != nil {
		log.Fatalf("Invalid tile indexes: %v", err)
	}
	if len(indexes) == 0 {
		log.Fatal("No tile indexes configured")
	}

	refs := tile.Refs(cfg.DataDir, cfg.FilePattern, cfg.AreaIndex, indexes)
	log.Printf("Processing %d tiles of area %d from %s with %d workers", len(refs), cfg.AreaIndex, cfg.DataDir, cfg.Workers)

	p := &tile.Pipeline{Workers: cfg.Workers, Metrics: m}
	ds, err := p.Run(ctx, refs)
	if err != nil {
		log.Fatalf("Extraction failed: %v", err)
	}
	return ds
}

// runOSM treats the whole PBF file as tile 0 of the configured area.
func runOSM(cfg config.Config, m *metrics.Collector) model.Dataset {
	if osmFilePath == "" {
		log.Fatal("OSM file path must be specified with -osm-file")
	}

	records, err := osm.ReadBuildings(osmFilePath)
	if err != nil {
		log.Fatalf("Failed to read OSM file: %v", err)
	}

	recs := make([]extract.Record, len(records))
	for i, r := range records {
		recs[i] = r
	}

	p := &tile.Pipeline{Metrics: m}
	ds, err := p.RunRecords(cfg.AreaIndex, 0, recs)
	if err != nil {
		log.Fatalf("Extraction failed: %v", err)
	}
	return ds
}

// remapTiles converts tiles to grid units. The grid is anchored at the
// configured origin, or at the dataset mean when none is set.
func remapTiles(cfg config.Config, ds model.Dataset) []model.Tile {
	origin := ds.Mean
	if cfg.GridOriginSet {
		origin = model.NewVec3(cfg.GridOriginX, cfg.GridOriginY, cfg.GridOriginZ)
	}
	grid, err := remap.NewGrid(origin, cfg.GridScale)
	if err != nil {
		log.Fatalf("Invalid grid: %v", err)
	}
	log.Printf("Remapping to grid at %v, %v degrees per unit (%.2f m)", origin, grid.Scale, grid.UnitMeters())

	out := make([]model.Tile, len(ds.Tiles))
	for i, t := range ds.Tiles {
		out[i] = grid.Tile(t)
	}
	return out
}

// persist connects to the requested backends and stores tiles there. It
// returns instead of exiting so the connections are closed on failure.
func persist(ctx context.Context, cfg config.Config, tiles []model.Tile) error {
	var db *gorm.DB
	if saveDB {
		db = pg.Init(cfg.DBUrl)
		defer pg.Close()
	}
	if cacheRedis {
		redis.Init(cfg.RedisUrl)
		defer redis.Close()
	}

	return storeTiles(ctx, tile.NewTileService(db, cacheRedis), tiles, db != nil)
}

// storeTiles saves tiles through svc when toDB is set, which also refreshes
// the cache, and otherwise only writes them to Redis.
func storeTiles(ctx context.Context, svc *tile.TileService, tiles []model.Tile, toDB bool) error {
	for _, t := range tiles {
		svc.Put(t)
	}

	if toDB {
		if _, err := svc.Flush(ctx); err != nil {
			return fmt.Errorf("failed to save tiles: %w", err)
		}
		return nil
	}
	for _, t := range tiles {
		if err := redis.CacheTile(t); err != nil {
			return fmt.Errorf("failed to cache tile %s: %w", t.Key(), err)
		}
	}
	log.Printf("Cached %d tiles in Redis", len(tiles))
	return nil
}

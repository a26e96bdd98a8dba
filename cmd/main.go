package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"gmlparser/internal/api"
	routes "gmlparser/internal/api/handlers"
	"gmlparser/internal/config"
	"gmlparser/internal/export"
	"gmlparser/internal/metrics"
	"gmlparser/internal/model"
	"gmlparser/internal/postgres"
	"gmlparser/internal/redis"
	"gmlparser/internal/remap"
	"gmlparser/internal/service/tile"
	"gmlparser/internal/worker"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database and cache
	db := initializeDatabaseAndCache(cfg)
	defer postgres.Close()
	defer redis.Close()

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	tileService := initializeServices(ctx, cfg, db)

	var workers *sync.WaitGroup
	if db != nil {
		workers = worker.StartAllWorkers(ctx, tileService)
	}

	runAPIServer(ctx, cfg, tileService, collector)

	if workers != nil {
		workers.Wait()
	}
}

// initializeDatabaseAndCache connects to the services that are configured.
// It returns nil when no database is configured.
func initializeDatabaseAndCache(cfg config.Config) *gorm.DB {
	var db *gorm.DB
	if cfg.DBUrl != "" {
		db = postgres.Init(cfg.DBUrl)
	} else {
		log.Println("DB_URL is not set, tiles are served from", cfg.OutputFile)
	}

	if cfg.RedisUrl != "" {
		redis.Init(cfg.RedisUrl)
	}
	return db
}

func initializeServices(ctx context.Context, cfg config.Config, db *gorm.DB) *tile.TileService {
	tileService := tile.NewTileService(db, cfg.RedisUrl != "")

	if db != nil {
		if err := tileService.InitService(ctx); err != nil {
			log.Fatalf("Failed to initialize tile service: %v", err)
		}
		return tileService
	}

	tiles, err := export.ReadTiles(cfg.OutputFile)
	if err != nil {
		log.Fatalf("Failed to load tiles: %v", err)
	}
	tileService.Load(tiles)
	log.Printf("Loaded %d tiles from %s", tileService.Count(), cfg.OutputFile)
	return tileService
}

func runAPIServer(ctx context.Context, cfg config.Config, tileService *tile.TileService, collector *metrics.Collector) {
	grid := newGrid(cfg, tileService)
	pipeline := &tile.Pipeline{Workers: 1, Metrics: collector}

	handlers := &routes.TileHandlers{
		Store: tileService,
		Grid:  grid,
		Load: func(ctx context.Context, area, index int) (model.Tile, error) {
			path := filepath.Join(cfg.DataDir, tile.FileName(cfg.FilePattern, area, index))
			t, _, err := pipeline.ProcessFile(ctx, tile.Ref{AreaIndex: area, Index: index, Path: path})
			return t, err
		},
	}
	status := map[string]any{
		"port":     cfg.Port,
		"database": cfg.DBUrl != "",
		"cache":    cfg.RedisUrl != "",
	}

	// Initialize Gin router
	r := gin.Default()
	api.SetupRouter(r, handlers, collector, status)

	srv := &http.Server{Addr: cfg.Port, Handler: r}
	go func() {
		<-ctx.Done()
		log.Println("Shutting down API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("API server shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on %s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("API server failed: %v", err)
	}
}

// newGrid anchors the grid at the configured origin, or at the mean of the
// loaded tiles when none is set.
func newGrid(cfg config.Config, tileService *tile.TileService) remap.Grid {
	origin := model.NewVec3(cfg.GridOriginX, cfg.GridOriginY, cfg.GridOriginZ)
	if !cfg.GridOriginSet {
		mean, err := tileService.Mean()
		if err != nil {
			log.Printf("No tiles to anchor the grid, using origin %v: %v", origin, err)
		} else {
			origin = mean
		}
	}

	grid, err := remap.NewGrid(origin, cfg.GridScale)
	if err != nil {
		log.Fatalf("Invalid grid: %v", err)
	}
	return grid
}

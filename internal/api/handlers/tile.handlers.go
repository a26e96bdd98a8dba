package routes

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"gmlparser/internal/export"
	"gmlparser/internal/model"
	"gmlparser/internal/remap"
	"gmlparser/internal/spatial"

	"github.com/gin-gonic/gin"
)

// TileStore is the tile service as seen by the handlers.
type TileStore interface {
	Tiles() []model.Tile
	Tile(ctx context.Context, areaIndex, index int) (model.Tile, bool, error)
	Put(t model.Tile)
	Within(minLat, minLon, maxLat, maxLon float64) []*spatial.BuildingSpatial
	Mean() (model.Vec3, error)
	Count() int
}

// TileLoader extracts one tile from its source file.
type TileLoader func(ctx context.Context, areaIndex, index int) (model.Tile, error)

// TileHandlers serves extracted tiles.
type TileHandlers struct {
	Store TileStore
	Grid  remap.Grid
	// Load is optional; without it tiles cannot be reloaded.
	Load TileLoader
}

type tileSummary struct {
	AreaIndex  int        `json:"areaIndex"`
	Index      int        `json:"index"`
	Buildings  int        `json:"buildings"`
	PointCount int        `json:"pointCount"`
	Mean       model.Vec3 `json:"mean"`
}

type tileResponse struct {
	model.Tile
	Mean       model.Vec3 `json:"mean"`
	PointCount int        `json:"pointCount"`
}

type buildingResponse struct {
	AreaIndex int            `json:"areaIndex"`
	TileIndex int            `json:"tileIndex"`
	Position  int            `json:"position"`
	Building  model.Building `json:"building"`
}

type withinQuery struct {
	MinX *float64 `form:"minX" binding:"required"`
	MinY *float64 `form:"minY" binding:"required"`
	MaxX *float64 `form:"maxX" binding:"required"`
	MaxY *float64 `form:"maxY" binding:"required"`
}

type pointQuery struct {
	X *float64 `form:"x" binding:"required"`
	Y *float64 `form:"y" binding:"required"`
	Z float64  `form:"z"`
}

// SetupTileHandlers registers the tile endpoints
func SetupTileHandlers(router *gin.RouterGroup, h *TileHandlers) {
	tiles := router.Group("/tiles")
	tiles.GET("", h.ListTiles)
	tiles.GET("/:area/:index", h.GetTile)
	tiles.GET("/:area/:index/geojson", h.GetTileGeoJSON)
	tiles.POST("/:area/:index/reload", h.ReloadTile)

	router.GET("/buildings/within", h.BuildingsWithin)
	router.GET("/mean", h.GetMean)
	router.GET("/remap", h.RemapPoint)
}

// ListTiles returns a summary of every tile
func (h *TileHandlers) ListTiles(c *gin.Context) {
	tiles := h.Store.Tiles()
	out := make([]tileSummary, len(tiles))
	for i, t := range tiles {
		out[i] = tileSummary{
			AreaIndex:  t.AreaIndex,
			Index:      t.Index,
			Buildings:  len(t.Buildings),
			PointCount: t.PointCount,
			Mean:       t.Mean,
		}
	}
	c.JSON(http.StatusOK, out)
}

// GetTile returns one tile. With ?remap=true coordinates are grid units.
func (h *TileHandlers) GetTile(c *gin.Context) {
	t, ok := h.lookup(c)
	if !ok {
		return
	}
	if c.Query("remap") == "true" {
		t = h.Grid.Tile(t)
	}
	c.JSON(http.StatusOK, tileResponse{Tile: t, Mean: t.Mean, PointCount: t.PointCount})
}

// GetTileGeoJSON returns the roof rings of one tile as a FeatureCollection
func (h *TileHandlers) GetTileGeoJSON(c *gin.Context) {
	t, ok := h.lookup(c)
	if !ok {
		return
	}
	fc, _ := export.TilesToGeoJSON([]model.Tile{t})
	c.JSON(http.StatusOK, fc)
}

// ReloadTile extracts a tile again from its source file and replaces it
func (h *TileHandlers) ReloadTile(c *gin.Context) {
	if h.Load == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "tile reload is not configured"})
		return
	}
	area, index, ok := tileParams(c)
	if !ok {
		return
	}

	t, err := h.Load(c.Request.Context(), area, index)
	if err != nil {
		log.Printf("Reload of tile %s failed: %v", model.TileKey(area, index), err)
		status := http.StatusInternalServerError
		if errors.Is(err, model.ErrDivideByZero) || errors.Is(err, model.ErrInvalidOperand) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	h.Store.Put(t)
	log.Printf("Reloaded tile %s: %d buildings", t.Key(), len(t.Buildings))
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"tile":      t.Key(),
		"buildings": len(t.Buildings),
	})
}

// BuildingsWithin returns buildings whose bounding box lies strictly inside
// the rectangle. X is latitude and Y longitude, as in the source data.
func (h *TileHandlers) BuildingsWithin(c *gin.Context) {
	var q withinQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if *q.MaxX < *q.MinX || *q.MaxY < *q.MinY {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max must not be below min"})
		return
	}

	found := h.Store.Within(*q.MinX, *q.MinY, *q.MaxX, *q.MaxY)
	out := make([]buildingResponse, len(found))
	for i, s := range found {
		out[i] = buildingResponse{
			AreaIndex: s.AreaIndex,
			TileIndex: s.TileIndex,
			Position:  s.Position,
			Building:  s.Building,
		}
	}
	c.JSON(http.StatusOK, out)
}

// GetMean returns the point-weighted mean of every loaded tile
func (h *TileHandlers) GetMean(c *gin.Context) {
	mean, err := h.Store.Mean()
	if errors.Is(err, model.ErrDivideByZero) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no points loaded"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mean":  mean,
		"tiles": h.Store.Count(),
	})
}

// RemapPoint maps a geographic point into the configured grid
func (h *TileHandlers) RemapPoint(c *gin.Context) {
	var q pointQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := model.NewVec3(*q.X, *q.Y, q.Z)
	c.JSON(http.StatusOK, gin.H{
		"point":      p,
		"local":      h.Grid.ToLocal(p),
		"cell":       h.Grid.Cell(p),
		"unitMeters": h.Grid.UnitMeters(),
	})
}

func (h *TileHandlers) lookup(c *gin.Context) (model.Tile, bool) {
	area, index, ok := tileParams(c)
	if !ok {
		return model.Tile{}, false
	}

	t, found, err := h.Store.Tile(c.Request.Context(), area, index)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return model.Tile{}, false
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "tile " + model.TileKey(area, index) + " not found"})
		return model.Tile{}, false
	}
	return t, true
}

func tileParams(c *gin.Context) (area, index int, ok bool) {
	area, errArea := strconv.Atoi(c.Param("area"))
	index, errIndex := strconv.Atoi(c.Param("index"))
	if errArea != nil || errIndex != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "area and index must be integers"})
		return 0, 0, false
	}
	return area, index, true
}

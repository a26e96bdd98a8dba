package postgres

import (
	"fmt"
	"time"

	"gmlparser/internal/model"
	"gmlparser/internal/util"

	"gorm.io/gorm"
)

// saveBatchSize is the number of buildings per INSERT statement.
const saveBatchSize = 100

// TilePG is the GORM model of an extracted tile.
type TilePG struct {
	ID         string  `gorm:"primaryKey"` // model.TileKey
	AreaIndex  int     `gorm:"not null;index:idx_tile_area_index"`
	TileIndex  int     `gorm:"not null;index:idx_tile_area_index"`
	MeanX      float64 `gorm:"not null"`
	MeanY      float64 `gorm:"not null"`
	MeanZ      float64 `gorm:"not null"`
	PointCount int     `gorm:"not null"`

	Buildings []BuildingPG `gorm:"foreignKey:TileID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TilePG) TableName() string {
	return "tiles"
}

// BuildingPG is the GORM model of one building. Seq keeps the source order
// inside the tile.
type BuildingPG struct {
	ID      string       `gorm:"primaryKey"`
	TileID  string       `gorm:"not null;index"`
	Seq     int          `gorm:"not null"`
	GMLID   string       `gorm:"column:gml_id;size:255"`
	Polygon []model.Vec3 `gorm:"type:jsonb;serializer:json;not null"`
	Min     *model.Vec3  `gorm:"type:jsonb;serializer:json"`
	Max     *model.Vec3  `gorm:"type:jsonb;serializer:json"`
}

func (BuildingPG) TableName() string {
	return "buildings"
}

// TileToPG converts a tile to its database rows. Building ids are generated.
func TileToPG(t model.Tile) *TilePG {
	pg := &TilePG{
		ID:         t.Key(),
		AreaIndex:  t.AreaIndex,
		TileIndex:  t.Index,
		MeanX:      t.Mean.X,
		MeanY:      t.Mean.Y,
		MeanZ:      t.Mean.Z,
		PointCount: t.PointCount,
		Buildings:  make([]BuildingPG, len(t.Buildings)),
	}
	for i, b := range t.Buildings {
		pg.Buildings[i] = BuildingPG{
			ID:      util.ShortUUID(),
			TileID:  pg.ID,
			Seq:     i,
			GMLID:   b.ID,
			Polygon: b.Polygon,
			Min:     b.Min,
			Max:     b.Max,
		}
	}
	return pg
}

// TileFromPG converts database rows back to a tile. Buildings are expected in
// Seq order.
func TileFromPG(pg *TilePG) model.Tile {
	t := model.Tile{
		AreaIndex:  pg.AreaIndex,
		Index:      pg.TileIndex,
		Buildings:  make([]model.Building, len(pg.Buildings)),
		Mean:       model.NewVec3(pg.MeanX, pg.MeanY, pg.MeanZ),
		PointCount: pg.PointCount,
	}
	for i, b := range pg.Buildings {
		polygon := b.Polygon
		if polygon == nil {
			polygon = []model.Vec3{}
		}
		t.Buildings[i] = model.Building{
			ID:      b.GMLID,
			Polygon: polygon,
			Min:     b.Min,
			Max:     b.Max,
		}
	}
	return t
}

// SaveTile replaces the stored rows of t in a single transaction.
func SaveTile(db *gorm.DB, t model.Tile) error {
	pg := TileToPG(t)
	buildings := pg.Buildings
	pg.Buildings = nil

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tile_id = ?", pg.ID).Delete(&BuildingPG{}).Error; err != nil {
			return fmt.Errorf("failed to clear buildings of tile %s: %w", pg.ID, err)
		}
		if err := tx.Save(pg).Error; err != nil {
			return fmt.Errorf("failed to save tile %s: %w", pg.ID, err)
		}
		if len(buildings) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(buildings, saveBatchSize).Error; err != nil {
			return fmt.Errorf("failed to save buildings of tile %s: %w", pg.ID, err)
		}
		return nil
	})
}

// LoadTiles loads every stored tile with its buildings, ordered by area and
// tile index.
func LoadTiles(db *gorm.DB) ([]model.Tile, error) {
	var rows []*TilePG
	err := db.
		Preload("Buildings", func(tx *gorm.DB) *gorm.DB { return tx.Order("seq") }).
		Order("area_index, tile_index").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	tiles := make([]model.Tile, len(rows))
	for i, r := range rows {
		tiles[i] = TileFromPG(r)
	}
	return tiles, nil
}

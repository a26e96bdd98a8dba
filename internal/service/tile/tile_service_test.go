package tile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gmlparser/internal/extract"
	"gmlparser/internal/model"
)

func square(id string, lat, lon, side float64) model.Building {
	return extract.BuildingFromPoints(id, []model.Vec3{
		{X: lat, Y: lon, Z: 10},
		{X: lat + side, Y: lon, Z: 10},
		{X: lat + side, Y: lon + side, Z: 10},
		{X: lat, Y: lon + side, Z: 10},
	})
}

func TestTileServicePutAndQuery(t *testing.T) {
	s := NewTileService(nil, false)

	s.Put(model.Tile{AreaIndex: 1, Index: 2, Buildings: []model.Building{
		square("a", 36.552, 139.911, 0.001),
		square("b", 36.600, 139.990, 0.001),
	}})
	s.Put(model.Tile{AreaIndex: 1, Index: 1, Buildings: []model.Building{
		square("c", 36.553, 139.912, 0.001),
	}})

	tiles := s.Tiles()
	if len(tiles) != 2 || tiles[0].Index != 1 || tiles[1].Index != 2 {
		t.Fatalf("Tiles order = %v, %v", tiles[0].Key(), tiles[1].Key())
	}
	if tiles[1].PointCount != 8 {
		t.Fatalf("PointCount = %d, want 8 (mean computed on Put)", tiles[1].PointCount)
	}

	got := s.Within(36.551343, 139.910330, 36.554949, 139.915754)
	if len(got) != 2 {
		t.Fatalf("Within returned %d buildings, want 2", len(got))
	}
	if got[0].Building.ID != "c" || got[1].Building.ID != "a" {
		t.Fatalf("Within order = %s, %s", got[0].Building.ID, got[1].Building.ID)
	}

	tile, ok, err := s.Tile(context.Background(), 1, 2)
	if err != nil || !ok || len(tile.Buildings) != 2 {
		t.Fatalf("Tile(1, 2) = %v, %v, %v", tile.Key(), ok, err)
	}
	if _, ok, err := s.Tile(context.Background(), 9, 9); ok || err != nil {
		t.Fatalf("Tile(9, 9) = %v, %v, want miss", ok, err)
	}
}

func TestTileServiceReplaceRebuildsIndex(t *testing.T) {
	s := NewTileService(nil, false)
	s.Put(model.Tile{AreaIndex: 1, Index: 1, Buildings: []model.Building{square("old", 10, 10, 1)}})
	s.Put(model.Tile{AreaIndex: 1, Index: 1, Buildings: []model.Building{square("new", 20, 20, 1)}})

	if got := s.Within(9, 9, 12, 12); len(got) != 0 {
		t.Fatalf("replaced building still indexed: %d results", len(got))
	}
	if got := s.Within(19, 19, 22, 22); len(got) != 1 || got[0].Building.ID != "new" {
		t.Fatalf("new building not indexed: %v", got)
	}
	if s.Count() != 1 {
		t.Fatalf("Count = %d, want 1", s.Count())
	}
}

func TestTileServiceMean(t *testing.T) {
	s := NewTileService(nil, false)
	if _, err := s.Mean(); err == nil {
		t.Fatalf("Mean of empty service returned nil error")
	}

	s.Load([]model.Tile{
		{AreaIndex: 1, Index: 1, Buildings: []model.Building{extract.BuildingFromPoints("", []model.Vec3{{}, {}, {}})}},
		{AreaIndex: 1, Index: 2, Buildings: []model.Building{extract.BuildingFromPoints("", []model.Vec3{{X: 4, Y: 8, Z: 12}})}},
	})
	mean, err := s.Mean()
	if err != nil {
		t.Fatalf("Mean: %v", err)
	}
	if !mean.Equals(model.NewVec3(1, 2, 3)) {
		t.Fatalf("Mean = %v, want (1, 2, 3)", mean)
	}
}

func TestTileServiceFlushWithoutDatabase(t *testing.T) {
	s := NewTileService(nil, false)

	s.Load([]model.Tile{{AreaIndex: 1, Index: 1, Buildings: []model.Building{square("a", 0, 0, 1)}}})
	if n, err := s.Flush(context.Background()); n != 0 || err != nil {
		t.Fatalf("Flush of clean tiles = %d, %v", n, err)
	}

	s.Put(model.Tile{AreaIndex: 1, Index: 2, Buildings: []model.Building{square("b", 0, 0, 1)}})
	if _, err := s.Flush(context.Background()); err == nil {
		t.Fatalf("Flush of dirty tiles without a database returned nil error")
	}
	if err := s.InitService(context.Background()); err == nil {
		t.Fatalf("InitService without a database returned nil error")
	}
}

func TestTileServiceFlushKeepsTileReplacedDuringSave(t *testing.T) {
	s := NewTileService(nil, false)
	first := model.Tile{AreaIndex: 1, Index: 70, Buildings: []model.Building{square("v1", 0, 0, 1)}}
	second := model.Tile{AreaIndex: 1, Index: 70, Buildings: []model.Building{square("v2", 5, 5, 1)}}
	s.Put(first)

	var persisted []string
	s.saveTile = func(_ context.Context, t model.Tile) error {
		persisted = append(persisted, t.Buildings[0].ID)
		if len(persisted) == 1 {
			// A reload lands while the first version is being written.
			s.Put(second)
		}
		return nil
	}

	if n, err := s.Flush(context.Background()); n != 1 || err != nil {
		t.Fatalf("first Flush = %d, %v, want 1, nil", n, err)
	}
	if n, err := s.Flush(context.Background()); n != 1 || err != nil {
		t.Fatalf("second Flush = %d, %v, want the replaced tile saved", n, err)
	}
	if len(persisted) != 2 || persisted[0] != "v1" || persisted[1] != "v2" {
		t.Fatalf("persisted = %v, want [v1 v2]", persisted)
	}
	if n, err := s.Flush(context.Background()); n != 0 || err != nil {
		t.Fatalf("third Flush = %d, %v, want nothing left", n, err)
	}
}

func TestTileServiceFlushKeepsFailedTilesDirty(t *testing.T) {
	s := NewTileService(nil, false)
	s.Put(model.Tile{AreaIndex: 1, Index: 1, Buildings: []model.Building{square("a", 0, 0, 1)}})

	fail := true
	s.saveTile = func(context.Context, model.Tile) error {
		if fail {
			return errors.New("connection reset")
		}
		return nil
	}
	if _, err := s.Flush(context.Background()); err == nil {
		t.Fatalf("Flush returned nil error for a failed save")
	}
	fail = false
	if n, err := s.Flush(context.Background()); n != 1 || err != nil {
		t.Fatalf("retry Flush = %d, %v, want 1, nil", n, err)
	}
}

func TestTileServiceConcurrentPutIndexesOnce(t *testing.T) {
	for round := 0; round < 50; round++ {
		s := NewTileService(nil, false)
		var wg sync.WaitGroup
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Put(model.Tile{AreaIndex: 1, Index: 1, Buildings: []model.Building{square("a", 10, 10, 1)}})
			}()
		}
		wg.Wait()

		if got := s.Within(9, 9, 12, 12); len(got) != 1 {
			t.Fatalf("round %d: Within returned %d buildings, want 1", round, len(got))
		}
	}
}

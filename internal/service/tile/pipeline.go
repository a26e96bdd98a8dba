package tile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync/atomic"
	"time"

	"gmlparser/internal/citygml"
	"gmlparser/internal/extract"
	"gmlparser/internal/metrics"
	"gmlparser/internal/model"

	"golang.org/x/sync/errgroup"
)

// Ref locates the source file of one tile.
type Ref struct {
	AreaIndex int
	Index     int
	Path      string
}

// FileName formats a tile file name from pattern, which takes the area and
// tile index in that order, e.g. "%d%d_bldg_6697_op.gml".
func FileName(pattern string, areaIndex, index int) string {
	return fmt.Sprintf(pattern, areaIndex, index)
}

// Refs lists the files of the given tiles under dir, in the given order.
func Refs(dir, pattern string, areaIndex int, indexes []int) []Ref {
	refs := make([]Ref, len(indexes))
	for i, index := range indexes {
		refs[i] = Ref{
			AreaIndex: areaIndex,
			Index:     index,
			Path:      filepath.Join(dir, FileName(pattern, areaIndex, index)),
		}
	}
	return refs
}

// Pipeline decodes and aggregates CityGML tiles.
type Pipeline struct {
	// Workers bounds the number of tiles processed at once. Values below 1
	// mean one.
	Workers int
	// Metrics is optional.
	Metrics *metrics.Collector
}

// ProcessFile decodes one tile file and aggregates its buildings. ctx is
// checked before decoding and again before aggregation.
func (p *Pipeline) ProcessFile(ctx context.Context, ref Ref) (model.Tile, extract.Accumulator, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return model.Tile{}, extract.Accumulator{}, err
	}
	doc, err := citygml.DecodeFile(ref.Path)
	if err != nil {
		p.Metrics.ObserveFailure("decode")
		return model.Tile{}, extract.Accumulator{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.Tile{}, extract.Accumulator{}, fmt.Errorf("%s: %w", ref.Path, err)
	}

	t, acc, err := extract.AggregateTile(ref.AreaIndex, ref.Index, doc.Members)
	if err != nil {
		p.Metrics.ObserveFailure(failureReason(err))
		return model.Tile{}, extract.Accumulator{}, fmt.Errorf("%s: %w", ref.Path, err)
	}

	p.Metrics.ObserveTile(len(t.Buildings), acc.Count, time.Since(start).Seconds())
	return t, acc, nil
}

// Run processes refs in parallel. Tiles keep the order of refs. The first
// failing tile cancels the rest and its error is returned.
func (p *Pipeline) Run(ctx context.Context, refs []Ref) (model.Dataset, error) {
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	tiles := make([]model.Tile, len(refs))
	accs := make([]extract.Accumulator, len(refs))
	var done atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			t, acc, err := p.ProcessFile(ctx, ref)
			if err != nil {
				return err
			}
			tiles[i], accs[i] = t, acc

			log.Printf("Processed %s: %d buildings, mean %v (%d/%d)",
				filepath.Base(ref.Path), len(t.Buildings), t.Mean, done.Add(1), len(refs))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.Dataset{}, err
	}

	mean, err := extract.DatasetMean(accs)
	if err != nil {
		return model.Dataset{}, err
	}
	return model.Dataset{Tiles: tiles, Mean: mean}, nil
}

// RunRecords aggregates records that are already in memory as a single tile.
func (p *Pipeline) RunRecords(areaIndex, index int, records []extract.Record) (model.Dataset, error) {
	start := time.Now()
	t, acc, err := extract.AggregateTile(areaIndex, index, records)
	if err != nil {
		p.Metrics.ObserveFailure(failureReason(err))
		return model.Dataset{}, err
	}
	p.Metrics.ObserveTile(len(t.Buildings), acc.Count, time.Since(start).Seconds())
	return model.Dataset{Tiles: []model.Tile{t}, Mean: t.Mean}, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, model.ErrDivideByZero):
		return "empty"
	case errors.Is(err, model.ErrInvalidOperand):
		return "invalid_coordinates"
	default:
		return "extract"
	}
}

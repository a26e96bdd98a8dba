// Package osm reads building footprints from OpenStreetMap PBF extracts as
// posList records, so they can go through the same extraction as CityGML
// roof edges.
package osm

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gmlparser/internal/config"

	"github.com/paulmach/orb"
	"github.com/qedus/osmpbf"
)

// metersPerLevel converts building:levels to a height when no height tag is set.
const metersPerLevel = 3.0

// Record is one building way. Coordinates are latitude-first triples, the
// same layout as a CityGML posList.
type Record struct {
	ID     string
	Coords string
}

func (r Record) RecordID() string { return r.ID }
func (r Record) PosList() string  { return r.Coords }

// ReadBuildings decodes the PBF file at path in two passes: nodes first, then
// ways tagged as buildings. Ways referencing unknown nodes are skipped.
func ReadBuildings(path string) ([]Record, error) {
	log.Printf("Processing OSM file: %s", path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open OSM file: %w", err)
	}
	defer file.Close()

	nodes, err := collectNodes(file)
	if err != nil {
		return nil, err
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind OSM file: %w", err)
	}

	records, skipped, err := collectBuildings(file, nodes)
	if err != nil {
		return nil, err
	}
	log.Printf("Processing complete. Found %d buildings (%d skipped)", len(records), skipped)
	return records, nil
}

func newDecoder(r io.Reader) (*osmpbf.Decoder, error) {
	decoder := osmpbf.NewDecoder(r)
	decoder.SetBufferSize(osmpbf.MaxBlobSize)
	if err := decoder.Start(runtime.GOMAXPROCS(-1)); err != nil {
		return nil, fmt.Errorf("failed to start OSM decoder: %w", err)
	}
	return decoder, nil
}

func collectNodes(r io.Reader) (map[int64]orb.Point, error) {
	decoder, err := newDecoder(r)
	if err != nil {
		return nil, err
	}

	log.Println("First pass: collecting nodes...")
	nodes := make(map[int64]orb.Point)
	for {
		obj, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error decoding OSM data: %w", err)
		}
		if node, ok := obj.(*osmpbf.Node); ok {
			nodes[node.ID] = orb.Point{node.Lon, node.Lat}
			if len(nodes)%1000000 == 0 {
				log.Printf("Processed %d nodes...", len(nodes))
			}
		}
	}

	log.Printf("Collected %d nodes", len(nodes))
	return nodes, nil
}

func collectBuildings(r io.Reader, nodes map[int64]orb.Point) (records []Record, skipped int, err error) {
	decoder, err := newDecoder(r)
	if err != nil {
		return nil, 0, err
	}

	log.Println("Second pass: processing buildings...")
	for {
		obj, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("error decoding OSM data: %w", err)
		}

		way, ok := obj.(*osmpbf.Way)
		if !ok || !isBuilding(way.Tags) {
			continue
		}
		rec, ok := wayRecord(way, nodes)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
		if len(records)%config.ProgressEvery == 0 {
			log.Printf("Processed %d buildings...", len(records))
		}
	}
	return records, skipped, nil
}

func isBuilding(tags map[string]string) bool {
	v, ok := tags["building"]
	return ok && v != "no"
}

// wayRecord builds the record of one way. It reports false when the way has
// fewer than three nodes or references a node that was not collected.
func wayRecord(way *osmpbf.Way, nodes map[int64]orb.Point) (Record, bool) {
	if len(way.NodeIDs) < 3 {
		return Record{}, false
	}

	height := strconv.FormatFloat(wayHeight(way.Tags), 'g', -1, 64)
	parts := make([]string, 0, 3*len(way.NodeIDs))
	for _, id := range way.NodeIDs {
		p, ok := nodes[id]
		if !ok {
			return Record{}, false
		}
		parts = append(parts,
			strconv.FormatFloat(p.Lat(), 'g', -1, 64),
			strconv.FormatFloat(p.Lon(), 'g', -1, 64),
			height,
		)
	}

	return Record{
		ID:     "way/" + strconv.FormatInt(way.ID, 10),
		Coords: strings.Join(parts, " "),
	}, true
}

// wayHeight returns the height tag, falling back to building:levels, else 0.
func wayHeight(tags map[string]string) float64 {
	if s, ok := tags["height"]; ok {
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "m"))
		if h, err := strconv.ParseFloat(s, 64); err == nil && h > 0 {
			return h
		}
	}
	if s, ok := tags["building:levels"]; ok {
		if l, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && l > 0 {
			return float64(l) * metersPerLevel
		}
	}
	return 0
}

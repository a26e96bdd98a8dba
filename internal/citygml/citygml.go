// Package citygml decodes the subset of CityGML building files needed to read
// lod0 roof edges.
package citygml

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// CityModel is the document root (core:CityModel).
type CityModel struct {
	XMLName   xml.Name   `xml:"CityModel"`
	BoundedBy *BoundedBy `xml:"boundedBy"`
	Members   []Member   `xml:"cityObjectMember"`
}

type BoundedBy struct {
	Envelope *Envelope `xml:"Envelope"`
}

type Envelope struct {
	SrsName      string `xml:"srsName,attr,omitempty"`
	SrsDimension string `xml:"srsDimension,attr,omitempty"`
	LowerCorner  string `xml:"lowerCorner"`
	UpperCorner  string `xml:"upperCorner"`
}

// Member is one core:cityObjectMember.
type Member struct {
	Building *Building `xml:"Building"`
}

// Building keeps only the id and the exterior ring of the lod0 roof edge.
type Building struct {
	ID      string `xml:"id,attr"`
	PosList string `xml:"lod0RoofEdge>MultiSurface>surfaceMember>Polygon>exterior>LinearRing>posList"`
}

// RecordID returns the gml:id of the building, or "" when the member has none.
func (m Member) RecordID() string {
	if m.Building == nil {
		return ""
	}
	return m.Building.ID
}

// PosList returns the flattened roof-edge coordinates. Members without a
// building or without a lod0 roof edge yield "".
func (m Member) PosList() string {
	if m.Building == nil {
		return ""
	}
	return m.Building.PosList
}

// Decode reads a CityModel document.
func Decode(r io.Reader) (*CityModel, error) {
	var model CityModel
	if err := xml.NewDecoder(r).Decode(&model); err != nil {
		return nil, fmt.Errorf("failed to decode CityGML: %w", err)
	}
	return &model, nil
}

// DecodeFile opens and decodes the CityGML file at path.
func DecodeFile(path string) (*CityModel, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CityGML file: %w", err)
	}
	defer file.Close()

	model, err := Decode(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return model, nil
}

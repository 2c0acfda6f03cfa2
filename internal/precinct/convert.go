// Package precinct converts voting-district shapefiles into the GeoJSON
// boundary overlay served beside the voter map.
package precinct

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// Options controls shapefile conversion.
type Options struct {
	// CountyFIPS keeps only districts whose county FIPS attribute matches.
	// Empty converts the whole file.
	CountyFIPS string
}

// Convert reads a VTD shapefile and writes a GeoJSON FeatureCollection to
// outPath. Returns the number of districts written.
func Convert(shpPath, outPath string, opts Options) (int, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return 0, eris.Wrap(err, "precinct: open shapefile")
	}
	defer func() { _ = reader.Close() }()

	// TIGER VTD layers suffix attribute names with the census vintage.
	countyIdx := fieldIndexAny(reader, "COUNTYFP", "COUNTYFP20", "COUNTYFP10", "CNTY")
	vtdIdx := fieldIndexAny(reader, "VTDST", "VTDST20", "VTDST10", "PCTKEY")
	nameIdx := fieldIndexAny(reader, "NAME", "NAME20", "NAME10", "PREC")
	if countyIdx < 0 && opts.CountyFIPS != "" {
		return 0, eris.New("precinct: shapefile has no county FIPS field")
	}

	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	skipped := 0
	for reader.Next() {
		_, shape := reader.Shape()
		if shape == nil {
			continue
		}
		if opts.CountyFIPS != "" {
			fips := strings.TrimSpace(reader.Attribute(countyIdx))
			if fips != opts.CountyFIPS {
				continue
			}
		}

		mp := shapeToMultiPolygon(shape)
		if mp == nil {
			skipped++
			continue
		}

		props := map[string]any{}
		if vtdIdx >= 0 {
			props["vtd"] = strings.TrimSpace(reader.Attribute(vtdIdx))
		}
		if nameIdx >= 0 {
			props["name"] = strings.TrimSpace(reader.Attribute(nameIdx))
		}
		if countyIdx >= 0 {
			props["county_fips"] = strings.TrimSpace(reader.Attribute(countyIdx))
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   mp,
			Properties: props,
		})
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return 0, eris.Wrap(err, "precinct: marshal feature collection")
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return 0, eris.Wrap(err, "precinct: write geojson")
	}

	zap.L().Info("precinct boundaries converted",
		zap.String("out", outPath),
		zap.Int("districts", len(fc.Features)),
		zap.Int("skipped", skipped),
	)
	return len(fc.Features), nil
}

// fieldIndexAny returns the index of the first matching field name, or -1.
func fieldIndexAny(reader *shp.Reader, names ...string) int {
	for _, name := range names {
		for i, f := range reader.Fields() {
			if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
				return i
			}
		}
	}
	return -1
}

// shapeToMultiPolygon converts a shapefile polygon, treating each part as
// a single-ring polygon.
func shapeToMultiPolygon(s shp.Shape) *geom.MultiPolygon {
	p, ok := s.(*shp.Polygon)
	if !ok || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 3 {
			continue
		}

		ring := make([]geom.Coord, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, geom.Coord{p.Points[j].X, p.Points[j].Y})
		}
		poly := geom.NewPolygon(geom.XY)
		if _, err := poly.SetCoords([][]geom.Coord{ring}); err != nil {
			continue
		}
		if err := mp.Push(poly); err != nil {
			continue
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

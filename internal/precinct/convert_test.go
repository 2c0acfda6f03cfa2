package precinct

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestShapefile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "vtd.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{
		shp.StringField("COUNTYFP", 3),
		shp.StringField("VTDST", 6),
		shp.StringField("NAME", 20),
	})

	square := func(x, y float64) *shp.Polygon {
		pts := []shp.Point{{X: x, Y: y}, {X: x, Y: y + 1}, {X: x + 1, Y: y + 1}, {X: x + 1, Y: y}, {X: x, Y: y}}
		return &shp.Polygon{
			Box:       shp.Box{MinX: x, MinY: y, MaxX: x + 1, MaxY: y + 1},
			NumParts:  1,
			NumPoints: int32(len(pts)),
			Parts:     []int32{0},
			Points:    pts,
		}
	}

	row := w.Write(square(-101.9, 33.5))
	require.NoError(t, w.WriteAttribute(int(row), 0, "303"))
	require.NoError(t, w.WriteAttribute(int(row), 1, "0001"))
	require.NoError(t, w.WriteAttribute(int(row), 2, "Precinct 1"))

	row = w.Write(square(-100.0, 32.0))
	require.NoError(t, w.WriteAttribute(int(row), 0, "441"))
	require.NoError(t, w.WriteAttribute(int(row), 1, "0002"))
	require.NoError(t, w.WriteAttribute(int(row), 2, "Precinct 2"))

	w.Close()
	return path
}

func TestConvertFiltersByCounty(t *testing.T) {
	dir := t.TempDir()
	shpPath := writeTestShapefile(t, dir)
	outPath := filepath.Join(dir, "precincts.geojson")

	n, err := Convert(shpPath, outPath, Options{CountyFIPS: "303"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string          `json:"type"`
				Coordinates [][][][]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)

	f := fc.Features[0]
	assert.Equal(t, "MultiPolygon", f.Geometry.Type)
	assert.Equal(t, "0001", f.Properties["vtd"])
	assert.Equal(t, "Precinct 1", f.Properties["name"])
	assert.Equal(t, "303", f.Properties["county_fips"])

	require.NotEmpty(t, f.Geometry.Coordinates)
	ring := f.Geometry.Coordinates[0][0]
	require.Len(t, ring, 5)
	assert.InDelta(t, -101.9, ring[0][0], 1e-9)
	assert.InDelta(t, 33.5, ring[0][1], 1e-9)
}

func TestConvertWholeFile(t *testing.T) {
	dir := t.TempDir()
	shpPath := writeTestShapefile(t, dir)
	outPath := filepath.Join(dir, "precincts.geojson")

	n, err := Convert(shpPath, outPath, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestConvertMissingFile(t *testing.T) {
	_, err := Convert(filepath.Join(t.TempDir(), "nope.shp"), "out.json", Options{})
	assert.Error(t, err)
}

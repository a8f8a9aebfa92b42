package grid

import (
	"encoding/json"
	"testing"

	"github.com/ctessum/geom"
	"github.com/cyhsu/AgriGeoSpatial/internal/geoerr"
	"github.com/cyhsu/AgriGeoSpatial/internal/properties"
	"github.com/cyhsu/AgriGeoSpatial/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const utm29 = "+proj=utm +zone=29 +ellps=WGS84 +datum=WGS84 +units=m +no_defs"

func square(t *testing.T, crs string, x0, y0, size float64) *vector.Layer {
	t.Helper()
	l, err := vector.NewLayer(crs)
	require.NoError(t, err)
	l.Add(geom.Polygon{{{X: x0, Y: y0}, {X: x0 + size, Y: y0}, {X: x0 + size, Y: y0 + size}, {X: x0, Y: y0 + size}, {X: x0, Y: y0}}}, map[string]string{"name": "field"})
	return l
}

func TestGenerateSquare(t *testing.T) {
	boundary := square(t, utm29, 500000, 4400000, 100)

	g, err := Generate(boundary, Options{MetricCRS: utm29, Resolution: 20})
	require.NoError(t, err)

	assert.Equal(t, 7, g.Rows)
	assert.Equal(t, 7, g.Cols)
	require.Len(t, g.Cells, 49)
	require.Equal(t, 49, g.Layer.Len())
	assert.Equal(t, 400.0, g.CellArea())

	for i, c := range g.Cells {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, i/g.Cols, c.Row)
		assert.Equal(t, i%g.Cols, c.Col)
		assert.InDelta(t, 400, c.Polygon.Area(), 1e-6)
	}

	first := g.Cells[0].Polygon.Bounds()
	assert.InDelta(t, 500000, first.Min.X, 1e-6)
	assert.InDelta(t, 4400000, first.Min.Y, 1e-6)

	b := g.MetricBounds()
	assert.InDelta(t, 500140, b.Max.X, 1e-6)
	assert.InDelta(t, 4400140, b.Max.Y, 1e-6)
}

func TestGenerateCoversBoundary(t *testing.T) {
	boundary := square(t, utm29, 500003.5, 4400007.25, 93.3)

	g, err := Generate(boundary, Options{MetricCRS: utm29, Resolution: 20})
	require.NoError(t, err)

	bb := boundary.Bounds()
	gb := g.MetricBounds()
	assert.LessOrEqual(t, gb.Min.X, bb.Min.X)
	assert.LessOrEqual(t, gb.Min.Y, bb.Min.Y)
	assert.GreaterOrEqual(t, gb.Max.X, bb.Max.X)
	assert.GreaterOrEqual(t, gb.Max.Y, bb.Max.Y)
}

func TestGenerateKeepsOriginalCRS(t *testing.T) {
	boundary := square(t, properties.WGS84, -8.5, 40.0, 0.005)

	g, err := Generate(boundary, Options{MetricCRS: properties.PTTM06, Resolution: 20})
	require.NoError(t, err)

	assert.Equal(t, properties.WGS84, g.Layer.CRS)
	lb := g.Layer.Bounds()
	bb := boundary.Bounds()
	assert.LessOrEqual(t, lb.Min.X, bb.Min.X)
	assert.LessOrEqual(t, lb.Min.Y, bb.Min.Y)
	assert.GreaterOrEqual(t, lb.Max.X, bb.Max.X)
	assert.GreaterOrEqual(t, lb.Max.Y, bb.Max.Y)

	back, err := g.Layer.Reproject(g.MetricSR, g.MetricCRS)
	require.NoError(t, err)
	for i, f := range back.Features {
		got := f.Geometry.Bounds()
		want := g.Cells[i].Polygon.Bounds()
		assert.InDelta(t, want.Min.X, got.Min.X, 1e-3)
		assert.InDelta(t, want.Max.Y, got.Max.Y, 1e-3)
	}
	assert.Equal(t, "0", g.Layer.Features[0].Attributes["cell"])
}

func TestGenerateErrors(t *testing.T) {
	boundary := square(t, utm29, 0, 0, 100)

	_, err := Generate(boundary, Options{MetricCRS: utm29, Resolution: 0})
	assert.ErrorIs(t, err, geoerr.ErrInvalidGeometry)

	_, err = Generate(boundary, Options{MetricCRS: utm29, Resolution: -5})
	assert.ErrorIs(t, err, geoerr.ErrInvalidGeometry)

	_, err = Generate(boundary, Options{MetricCRS: "not a crs", Resolution: 20})
	assert.ErrorIs(t, err, geoerr.ErrCRSMismatch)

	noCRS, err := vector.NewLayer("")
	require.NoError(t, err)
	noCRS.Features = boundary.Features
	_, err = Generate(noCRS, Options{MetricCRS: utm29, Resolution: 20})
	assert.ErrorIs(t, err, geoerr.ErrCRSMismatch)

	_, err = GenerateFromFile("does/not/exist.shp", Options{MetricCRS: utm29, Resolution: 20})
	assert.ErrorIs(t, err, geoerr.ErrInputNotFound)
}

func TestSnapshotRoundTrip(t *testing.T) {
	g, err := Generate(square(t, utm29, 500000, 4400000, 60), Options{MetricCRS: utm29, Resolution: 20})
	require.NoError(t, err)

	data, err := json.Marshal(g.Snapshot())
	require.NoError(t, err)
	var s Snapshot
	require.NoError(t, json.Unmarshal(data, &s))

	restored, err := Restore(s)
	require.NoError(t, err)
	assert.Equal(t, g.Rows, restored.Rows)
	assert.Equal(t, g.Cols, restored.Cols)
	assert.Equal(t, g.Cells, restored.Cells)
	assert.Equal(t, g.Layer.Len(), restored.Layer.Len())
	assert.NotNil(t, restored.MetricSR)
	assert.Equal(t, "3", restored.Layer.Features[3].Attributes["cell"])
}

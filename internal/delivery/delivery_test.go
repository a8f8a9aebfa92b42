package delivery

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctessum/geom"
	"github.com/cyhsu/AgriGeoSpatial/internal/geoerr"
	"github.com/cyhsu/AgriGeoSpatial/internal/properties"
	"github.com/cyhsu/AgriGeoSpatial/internal/raster"
	"github.com/cyhsu/AgriGeoSpatial/output"
	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const utm29 = "+proj=utm +zone=29 +ellps=WGS84 +datum=WGS84 +units=m +no_defs"

type memoryStore struct {
	rasters map[string]*raster.Raster
}

func (m *memoryStore) Load(path string) (*raster.Raster, error) {
	r, ok := m.rasters[path]
	if !ok {
		return nil, geoerr.ErrInputNotFound
	}
	return r.Clone(), nil
}

func (m *memoryStore) Save(r *raster.Raster, path string) error {
	m.rasters[path] = r.Clone()
	return nil
}

func rect(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0}}}
}

func writeLayer(t *testing.T, path string, attrs map[string]any, polys ...geom.Polygon) string {
	t.Helper()
	tbl := &output.Table{CRS: utm29, Columns: []string{"name"}}
	for _, p := range polys {
		tbl.Records = append(tbl.Records, output.Record{Geometry: p, Values: attrs})
	}
	require.NoError(t, output.WriteShapefile(tbl, path))
	return path
}

func testService(t *testing.T) (*Service, *memoryStore, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := properties.Default()
	cfg.MetricCRS = utm29
	cfg.CacheDir = filepath.Join(dir, "cache")
	cfg.OutputDir = filepath.Join(dir, "result")
	cfg.Workers = 2
	cfg.Progress = false
	store := &memoryStore{rasters: map[string]*raster.Raster{}}
	return NewService(cfg, store), store, dir
}

func vegetation() *raster.Raster {
	r := raster.New(140, 140, 4)
	r.GeoTransform = [6]float64{500000, 1, 0, 4400140, 0, -1}
	r.CRS = utm29
	for i := range r.Bands[0] {
		r.Bands[raster.Red][i] = 0.1
		r.Bands[raster.Green][i] = 0.2
		r.Bands[raster.Blue][i] = 0.05
		r.Bands[raster.NIR][i] = 0.6
	}
	return r
}

func TestGridIsCached(t *testing.T) {
	svc, _, dir := testService(t)
	boundary := writeLayer(t, filepath.Join(dir, "in", "field.shp"), map[string]any{"name": "field"}, rect(500000, 4400000, 500100, 4400100))

	first, err := svc.Grid(boundary)
	require.NoError(t, err)
	assert.Len(t, first.Cells, 49)

	entries, err := os.ReadDir(filepath.Join(dir, "cache", "grids"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	second, err := svc.Grid(boundary)
	require.NoError(t, err)
	assert.Equal(t, first.Cells, second.Cells)
	assert.Equal(t, first.Layer.CRS, second.Layer.CRS)

	_, err = svc.Grid(filepath.Join(dir, "missing.shp"))
	assert.ErrorIs(t, err, geoerr.ErrInputNotFound)
}

func TestRunGrid(t *testing.T) {
	svc, _, dir := testService(t)
	boundary := writeLayer(t, filepath.Join(dir, "in", "field.shp"), map[string]any{"name": "field"}, rect(500000, 4400000, 500100, 4400100))

	rep, err := svc.RunGrid(boundary, RunName(boundary))
	require.NoError(t, err)
	assert.Equal(t, "49", rep.Summary["cells"])
	require.Len(t, rep.Outputs, 2)
	for _, p := range rep.Outputs {
		assert.FileExists(t, p)
		assert.True(t, strings.HasPrefix(p, filepath.Join(dir, "result", "field")))
	}
}

type harvestCSV struct {
	YieldIndex int     `csv:"yield_index"`
	Cell       int     `csv:"cell"`
	Ratio      float64 `csv:"ratio"`
	Name       string  `csv:"name"`
}

func TestRunPipeline(t *testing.T) {
	svc, store, dir := testService(t)
	boundary := writeLayer(t, filepath.Join(dir, "in", "field.shp"), map[string]any{"name": "field"}, rect(500000, 4400000, 500100, 4400100))
	yield := writeLayer(t, filepath.Join(dir, "in", "yield.shp"), map[string]any{"name": "plot"}, rect(499990, 4399990, 500050, 4400050))
	store.rasters["ortho.tif"] = vegetation()

	rep, err := svc.RunPipeline(context.Background(), PipelineInput{
		Boundary: boundary,
		Yield:    yield,
		Raster:   "ortho.tif",
		Name:     "field",
	})
	require.NoError(t, err)
	assert.Equal(t, "4", rep.Summary["cells"])
	assert.Equal(t, "0", rep.Summary["shadowed"])
	for _, p := range rep.Outputs {
		if p == filepath.Join(dir, "result", "field", "corrected.tif") {
			continue
		}
		assert.FileExists(t, p)
	}
	assert.Contains(t, store.rasters, filepath.Join(dir, "result", "field", "corrected.tif"))

	data, err := os.ReadFile(filepath.Join(dir, "result", "field", "harvest.csv"))
	require.NoError(t, err)
	var rows []harvestCSV
	require.NoError(t, gocsv.UnmarshalBytes(data, &rows))
	require.Len(t, rows, 4)
	cells := []int{}
	for _, r := range rows {
		assert.Equal(t, 0, r.YieldIndex)
		assert.Equal(t, "plot", r.Name)
		assert.InDelta(t, 1.0, r.Ratio, 1e-6)
		cells = append(cells, r.Cell)
	}
	assert.Equal(t, []int{0, 1, 7, 8}, cells)

	data, err = os.ReadFile(filepath.Join(dir, "result", "field", "reflectance.csv"))
	require.NoError(t, err)
	var refl []struct {
		Band1  float64 `csv:"band1"`
		Band4  float64 `csv:"band4"`
		Pixels int     `csv:"pixels"`
	}
	require.NoError(t, gocsv.UnmarshalBytes(data, &refl))
	require.Len(t, refl, 4)
	for _, r := range refl {
		assert.Equal(t, 400, r.Pixels)
		assert.InDelta(t, 1.0, r.Band1, 1e-12)
		assert.InDelta(t, 1.0, r.Band4, 1e-12)
	}
}

func TestCorrectShadowsMissingRaster(t *testing.T) {
	svc, _, _ := testService(t)
	_, err := svc.CorrectShadows("nope.tif", "x")
	assert.ErrorIs(t, err, geoerr.ErrInputNotFound)
}

func TestRunName(t *testing.T) {
	assert.Equal(t, "field", RunName("/data/in/field.shp"))
	assert.Equal(t, "ortho.2021", RunName("ortho.2021.tif"))
}

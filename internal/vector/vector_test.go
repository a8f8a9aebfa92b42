package vector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/geom"
	"github.com/cyhsu/AgriGeoSpatial/internal/geoerr"
	"github.com/cyhsu/AgriGeoSpatial/internal/properties"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fields = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"plot_id": "A1", "area": 2.5, "owner": null},
      "geometry": {"type": "Polygon", "coordinates": [[[-8.5, 40], [-8.4, 40], [-8.4, 40.1], [-8.5, 40.1], [-8.5, 40]]]}
    },
    {
      "type": "Feature",
      "properties": {"plot_id": "marker"},
      "geometry": {"type": "Point", "coordinates": [-8.45, 40.05]}
    },
    {
      "type": "Feature",
      "properties": {"plot_id": "B2", "crop": "corn"},
      "geometry": {"type": "MultiPolygon", "coordinates": [
        [[[-8.3, 40], [-8.2, 40], [-8.2, 40.1], [-8.3, 40.1], [-8.3, 40]]],
        [[[-8.1, 40], [-8.0, 40], [-8.0, 40.1], [-8.1, 40.1], [-8.1, 40]]]
      ]}
    }
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadGeoJSON(t *testing.T) {
	l, err := Read(writeFile(t, "fields.geojson", fields))
	require.NoError(t, err)

	assert.Equal(t, properties.WGS84, l.CRS)
	require.NotNil(t, l.SR)
	require.Equal(t, 2, l.Len())
	assert.Equal(t, []string{"area", "crop", "owner", "plot_id"}, l.Columns)

	first := l.Features[0]
	assert.Equal(t, "A1", first.Attributes["plot_id"])
	assert.Equal(t, "2.5", first.Attributes["area"])
	assert.Equal(t, "", first.Attributes["owner"])
	assert.IsType(t, geom.Polygon{}, first.Geometry)

	second := l.Features[1]
	assert.Equal(t, "corn", second.Attributes["crop"])
	assert.Len(t, second.Geometry.Polygons(), 2)

	b := l.Bounds()
	assert.InDelta(t, -8.5, b.Min.X, 1e-12)
	assert.InDelta(t, -8.0, b.Max.X, 1e-12)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.geojson"))
	assert.ErrorIs(t, err, geoerr.ErrInputNotFound)

	_, err = Read(writeFile(t, "layer.kml", "<kml/>"))
	assert.ErrorContains(t, err, "unsupported vector format")

	empty := `{"type": "FeatureCollection", "features": []}`
	_, err = Read(writeFile(t, "empty.geojson", empty))
	assert.ErrorIs(t, err, geoerr.ErrInvalidGeometry)
}

func TestOrbConversionClosesRings(t *testing.T) {
	open := geom.Polygon{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}}
	g := ToOrb(open)
	p, ok := g.(orb.Polygon)
	require.True(t, ok)
	assert.True(t, p[0].Closed())
	assert.Len(t, p[0], 4)

	back, ok := FromOrb(p)
	require.True(t, ok)
	assert.InDelta(t, 0.5, back.(geom.Polygon).Area(), 1e-12)

	_, ok = FromOrb(orb.Point{1, 2})
	assert.False(t, ok)
}

func TestCentroid(t *testing.T) {
	l, err := NewLayer("")
	require.NoError(t, err)
	l.Add(geom.Polygon{{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}, {X: 0, Y: 0}}}, nil)
	l.Add(geom.Polygon{{{X: 10, Y: 0}, {X: 12, Y: 0}, {X: 12, Y: 2}, {X: 10, Y: 2}, {X: 10, Y: 0}}}, nil)

	c, err := l.Centroid()
	require.NoError(t, err)
	assert.InDelta(t, 6, c.X, 1e-9)
	assert.InDelta(t, 1, c.Y, 1e-9)

	empty, _ := NewLayer("")
	_, err = empty.Centroid()
	assert.Error(t, err)
}

func TestReproject(t *testing.T) {
	l, err := Read(writeFile(t, "fields.geojson", fields))
	require.NoError(t, err)

	tm06, err := ParseCRS(properties.PTTM06)
	require.NoError(t, err)
	metric, err := l.Reproject(tm06, properties.PTTM06)
	require.NoError(t, err)
	assert.Equal(t, properties.PTTM06, metric.CRS)
	assert.Equal(t, l.Len(), metric.Len())
	// a 0.1° square near 40°N spans roughly 8.5 km by 11 km
	area := metric.Features[0].Geometry.Area()
	assert.Greater(t, area, 8e7)
	assert.Less(t, area, 1.1e8)

	back, err := metric.Reproject(l.SR, l.CRS)
	require.NoError(t, err)
	p := back.Features[0].Geometry.Polygons()[0][0][0]
	assert.InDelta(t, -8.5, p.X, 1e-6)
	assert.InDelta(t, 40, p.Y, 1e-6)

	noCRS, _ := NewLayer("")
	_, err = noCRS.Reproject(tm06, properties.PTTM06)
	assert.ErrorIs(t, err, geoerr.ErrCRSMismatch)
}

// Package output writes processing results as GeoJSON, CSV, shapefiles and
// PNG previews.
package output

import (
	"math"
	"slices"
	"strconv"

	"github.com/ctessum/geom"
	"github.com/cyhsu/AgriGeoSpatial/internal/harvest"
	"github.com/cyhsu/AgriGeoSpatial/internal/reflectance"
	"github.com/cyhsu/AgriGeoSpatial/internal/vector"
)

// Table is a polygon layer with typed attribute values, the common shape of
// every vector result. Values hold string, int or float64.
type Table struct {
	CRS     string
	Columns []string
	Records []Record
}

type Record struct {
	Geometry geom.Polygonal
	Values   map[string]any
}

func FromLayer(l *vector.Layer) *Table {
	t := &Table{CRS: l.CRS, Columns: l.Columns, Records: make([]Record, len(l.Features))}
	for i, f := range l.Features {
		values := make(map[string]any, len(f.Attributes))
		for k, v := range f.Attributes {
			values[k] = v
		}
		t.Records[i] = Record{Geometry: f.Geometry, Values: values}
	}
	return t
}

// FromHarvest lays out filtered cells keyed by yield record: yield_index,
// cell, row, col and ratio lead the yield attributes.
func FromHarvest(res *harvest.Result) *Table {
	t := &Table{
		CRS:     res.CRS,
		Columns: []string{"yield_index", "cell", "row", "col", "ratio"},
		Records: make([]Record, len(res.Rows)),
	}
	for _, c := range res.Columns {
		if !slices.Contains(t.Columns, c) {
			t.Columns = append(t.Columns, c)
		}
	}
	for i, r := range res.Rows {
		values := map[string]any{
			"yield_index": r.YieldIndex,
			"cell":        r.Cell.Index,
			"row":         r.Cell.Row,
			"col":         r.Cell.Col,
			"ratio":       r.Ratio,
		}
		for k, v := range r.Attributes {
			if _, taken := values[k]; !taken {
				values[k] = v
			}
		}
		t.Records[i] = Record{Geometry: r.Geometry, Values: values}
	}
	return t
}

func FromReflectance(res *reflectance.Result) *Table {
	t := &Table{
		CRS:     res.CRS,
		Columns: append([]string{"pixels"}, res.Columns...),
		Records: make([]Record, len(res.Rows)),
	}
	for i, r := range res.Rows {
		values := make(map[string]any, len(r.Attributes)+len(r.Bands)+1)
		for k, v := range r.Attributes {
			values[k] = v
		}
		for b, v := range r.Bands {
			values[reflectance.BandColumns[b]] = v
		}
		values["pixels"] = r.Pixels
		t.Records[i] = Record{Geometry: r.Geometry, Values: values}
	}
	return t
}

// format renders v for text outputs. NaN becomes the empty string.
func format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return ""
}

// jsonValue replaces values JSON cannot carry (NaN, ±Inf) by null.
func jsonValue(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}

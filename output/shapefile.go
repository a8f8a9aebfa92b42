package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
)

// dBase limits
const (
	maxFieldName   = 10
	maxStringField = 254
)

// WriteShapefile writes t as a polygon shapefile with a .prj holding the
// table's CRS definition. Column names are cut to the 10 characters dBase
// allows; numeric columns become float fields.
func WriteShapefile(t *Table, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))

	fields := make([]goshp.Field, len(t.Columns))
	numeric := make([]bool, len(t.Columns))
	for i, c := range t.Columns {
		name := c
		if len(name) > maxFieldName {
			name = name[:maxFieldName]
		}
		numeric[i] = isNumeric(t, c)
		if numeric[i] {
			fields[i] = goshp.FloatField(name, 24, 8)
			continue
		}
		fields[i] = goshp.StringField(name, uint8(stringWidth(t, c)))
	}

	enc, err := shp.NewEncoderFromFields(base+".shp", goshp.POLYGON, fields...)
	if err != nil {
		return fmt.Errorf("failed to create shapefile: %w", err)
	}
	vals := make([]interface{}, len(t.Columns))
	for i, r := range t.Records {
		for j, c := range t.Columns {
			if numeric[j] {
				vals[j] = toFloat(r.Values[c])
			} else {
				vals[j] = format(r.Values[c])
			}
		}
		if err := enc.EncodeFields(flatten(r.Geometry), vals...); err != nil {
			enc.Close()
			return fmt.Errorf("failed to write shapefile record %d: %w", i, err)
		}
	}
	enc.Close()

	if t.CRS != "" {
		if err := os.WriteFile(base+".prj", []byte(t.CRS), 0644); err != nil {
			return fmt.Errorf("failed to write prj file: %w", err)
		}
	}
	return nil
}

// flatten stores every ring of a multipolygon as a part of one shapefile
// polygon.
func flatten(g geom.Polygonal) geom.Polygon {
	if p, ok := g.(geom.Polygon); ok {
		return p
	}
	var out geom.Polygon
	for _, p := range g.Polygons() {
		out = append(out, p...)
	}
	return out
}

func isNumeric(t *Table, column string) bool {
	seen := false
	for _, r := range t.Records {
		switch r.Values[column].(type) {
		case int, float64:
			seen = true
		case nil:
		default:
			return false
		}
	}
	return seen
}

func stringWidth(t *Table, column string) int {
	w := 1
	for _, r := range t.Records {
		w = max(w, len(format(r.Values[column])))
	}
	return min(w, maxStringField)
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case float64:
		return x
	}
	return 0
}

package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ctessum/geom"
	"github.com/gocarina/gocsv"
	gogeom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// WriteCSV writes one line per record: the table columns followed by the
// geometry as WKT in the table's CRS.
func WriteCSV(t *Table, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	w := gocsv.DefaultCSVWriter(file)
	if err := w.Write(append(append([]string(nil), t.Columns...), "wkt")); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	line := make([]string, len(t.Columns)+1)
	for i, r := range t.Records {
		for j, c := range t.Columns {
			line[j] = format(r.Values[c])
		}
		text, err := WKT(r.Geometry)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		line[len(t.Columns)] = text
		if err := w.Write(line); err != nil {
			return fmt.Errorf("failed to write CSV record %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV file: %w", err)
	}
	return file.Close()
}

// WKT renders a polygon or multipolygon as well-known text.
func WKT(g geom.Polygonal) (string, error) {
	polys := g.Polygons()
	var out gogeom.T
	if len(polys) == 1 {
		p, err := gogeom.NewPolygon(gogeom.XY).SetCoords(coords(polys[0]))
		if err != nil {
			return "", fmt.Errorf("failed to convert polygon: %w", err)
		}
		out = p
	} else {
		mp := make([][][]gogeom.Coord, len(polys))
		for i, p := range polys {
			mp[i] = coords(p)
		}
		m, err := gogeom.NewMultiPolygon(gogeom.XY).SetCoords(mp)
		if err != nil {
			return "", fmt.Errorf("failed to convert multipolygon: %w", err)
		}
		out = m
	}
	return wkt.Marshal(out)
}

func coords(p geom.Polygon) [][]gogeom.Coord {
	rings := make([][]gogeom.Coord, len(p))
	for i, r := range p {
		ring := make([]gogeom.Coord, 0, len(r)+1)
		for _, pt := range r {
			ring = append(ring, gogeom.Coord{pt.X, pt.Y})
		}
		if n := len(r); n > 0 && r[0] != r[n-1] {
			ring = append(ring, gogeom.Coord{r[0].X, r[0].Y})
		}
		rings[i] = ring
	}
	return rings
}

// Package vector holds polygon layers with their coordinate reference system
// and reads them from shapefiles and GeoJSON.
package vector

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/cyhsu/AgriGeoSpatial/internal/geoerr"
)

type Feature struct {
	Geometry   geom.Polygonal
	Attributes map[string]string
}

// Layer is an ordered set of polygonal features sharing one CRS. CRS keeps the
// definition text (PROJ.4 or WKT) the SR was parsed from.
type Layer struct {
	CRS      string
	SR       *proj.SR
	Columns  []string
	Features []Feature
}

// NewLayer returns an empty layer in the CRS described by def. An empty def
// produces a layer without CRS.
func NewLayer(def string) (*Layer, error) {
	l := &Layer{CRS: def}
	if def == "" {
		return l, nil
	}
	sr, err := ParseCRS(def)
	if err != nil {
		return nil, err
	}
	l.SR = sr
	return l, nil
}

// ParseCRS parses a PROJ.4 or WKT definition.
func ParseCRS(def string) (*proj.SR, error) {
	sr, err := proj.Parse(def)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse crs %q: %v", geoerr.ErrCRSMismatch, def, err)
	}
	return sr, nil
}

func (l *Layer) Len() int {
	return len(l.Features)
}

// Bounds returns the extent of all features, or nil for an empty layer.
func (l *Layer) Bounds() *geom.Bounds {
	if len(l.Features) == 0 {
		return nil
	}
	b := geom.NewBounds()
	for _, f := range l.Features {
		b.Extend(f.Geometry.Bounds())
	}
	return b
}

func (l *Layer) Add(g geom.Polygonal, attrs map[string]string) {
	l.Features = append(l.Features, Feature{Geometry: g, Attributes: attrs})
}

// Reproject returns a copy of l with every geometry transformed into dst.
// Attributes are shared with l.
func (l *Layer) Reproject(dst *proj.SR, dstDef string) (*Layer, error) {
	if l.SR == nil {
		return nil, fmt.Errorf("%w: layer has no crs to reproject from", geoerr.ErrCRSMismatch)
	}
	trans, err := l.SR.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", geoerr.ErrCRSMismatch, err)
	}
	out := &Layer{
		CRS:      dstDef,
		SR:       dst,
		Columns:  l.Columns,
		Features: make([]Feature, len(l.Features)),
	}
	for i, f := range l.Features {
		g, err := f.Geometry.Transform(trans)
		if err != nil {
			return nil, fmt.Errorf("%w: feature %d: %v", geoerr.ErrCRSMismatch, i, err)
		}
		pg, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("%w: feature %d is %T after reprojection", geoerr.ErrInvalidGeometry, i, g)
		}
		out.Features[i] = Feature{Geometry: pg, Attributes: f.Attributes}
	}
	return out, nil
}

// SameCRS reports whether a and b map coordinates identically, probing the
// transform at p. Layers without CRS are only compatible with each other.
func SameCRS(a, b *proj.SR, p geom.Point, tolerance float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	trans, err := a.NewTransform(b)
	if err != nil {
		return false
	}
	x, y, err := trans(p.X, p.Y)
	if err != nil {
		return false
	}
	dx, dy := x-p.X, y-p.Y
	return dx*dx+dy*dy <= tolerance*tolerance
}

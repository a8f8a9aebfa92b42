package vector

import (
	"github.com/ctessum/geom"
	"github.com/paulmach/orb"
)

// FromOrb converts an orb polygon or multipolygon. ok is false for any other
// geometry type.
func FromOrb(g orb.Geometry) (geom.Polygonal, bool) {
	switch v := g.(type) {
	case orb.Polygon:
		return polygonFromOrb(v), true
	case orb.MultiPolygon:
		mp := make(geom.MultiPolygon, len(v))
		for i, p := range v {
			mp[i] = polygonFromOrb(p)
		}
		return mp, true
	case orb.Bound:
		return polygonFromOrb(v.ToPolygon()), true
	}
	return nil, false
}

func polygonFromOrb(p orb.Polygon) geom.Polygon {
	out := make(geom.Polygon, len(p))
	for i, ring := range p {
		out[i] = make([]geom.Point, len(ring))
		for j, pt := range ring {
			out[i][j] = geom.Point{X: pt[0], Y: pt[1]}
		}
	}
	return out
}

// ToOrb converts a polygonal geometry, returning a Polygon for single
// polygons and a MultiPolygon otherwise.
func ToOrb(g geom.Polygonal) orb.Geometry {
	polys := g.Polygons()
	if len(polys) == 1 {
		return polygonToOrb(polys[0])
	}
	mp := make(orb.MultiPolygon, len(polys))
	for i, p := range polys {
		mp[i] = polygonToOrb(p)
	}
	return mp
}

func polygonToOrb(p geom.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, ring := range p {
		r := make(orb.Ring, len(ring))
		for j, pt := range ring {
			r[j] = orb.Point{pt.X, pt.Y}
		}
		if len(r) > 0 && !r.Closed() {
			r = append(r, r[0])
		}
		out[i] = r
	}
	return out
}

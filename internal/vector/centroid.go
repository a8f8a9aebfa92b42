package vector

import (
	"errors"

	"github.com/ctessum/geom"
	"github.com/paulmach/orb/planar"
)

// Centroid returns the area-weighted centroid of every feature of l, in the
// layer's own coordinates.
func (l *Layer) Centroid() (geom.Point, error) {
	var x, y, total float64
	for _, f := range l.Features {
		c, area := planar.CentroidArea(ToOrb(f.Geometry))
		if area <= 0 {
			continue
		}
		x += c.X() * area
		y += c.Y() * area
		total += area
	}
	if total <= 0 {
		return geom.Point{}, errors.New("error getting centroid")
	}
	return geom.Point{X: x / total, Y: y / total}, nil
}

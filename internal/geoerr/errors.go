// Package geoerr declares the failure kinds shared by the grid, harvest,
// shadow and reflectance packages. Callers match them with errors.Is.
package geoerr

import "errors"

var (
	ErrInputNotFound     = errors.New("input not found")
	ErrInvalidGeometry   = errors.New("invalid geometry")
	ErrCRSMismatch       = errors.New("crs mismatch")
	ErrBandCountMismatch = errors.New("band count mismatch")
	ErrDivisionByZero    = errors.New("division by zero")
)

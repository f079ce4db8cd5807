package models

import "math"

// Point is a geographic location plus whatever attributes the loader carried
// along with it. Points are immutable once loaded; every algorithm in this
// module refers to them by index into the original slice.
type Point struct {
	Lon   float64           `json:"lon"`
	Lat   float64           `json:"lat"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Coordinates returns the bare lon/lat pair without attributes. Centroids and
// other synthetic points are built from these.
func (p Point) Coordinates() Point {
	return Point{Lon: p.Lon, Lat: p.Lat}
}

// RoundCoordinate rounds a coordinate to 5 decimal places (~1m precision).
// Cache keys and same-point checks use this rounding.
func RoundCoordinate(v float64) float64 {
	return math.Round(v*100000) / 100000
}

// SamePlace reports whether two points round to the same coordinates.
func SamePlace(a, b Point) bool {
	return RoundCoordinate(a.Lat) == RoundCoordinate(b.Lat) &&
		RoundCoordinate(a.Lon) == RoundCoordinate(b.Lon)
}

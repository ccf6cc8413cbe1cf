// Package geo holds the small amount of planar and spherical geometry the
// prospecting scan needs: bounding boxes, polygon containment, screen
// projection and bearings.
package geo

import (
	"errors"
	"math"
)

// EarthRadius is the WGS84 semi-major axis in metres.
const EarthRadius = 6378137.0

var ErrDegenerateBounds = errors.New("degenerate bounds")

// LatLng is a geographic coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

func (p LatLng) finite() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lng) && !math.IsInf(p.Lat, 0) && !math.IsInf(p.Lng, 0)
}

// Bounds is an axis-aligned box given by its south-west and north-east corners.
type Bounds struct {
	SouthWest LatLng `json:"south_west" yaml:"south_west"`
	NorthEast LatLng `json:"north_east" yaml:"north_east"`
}

// Validate reports ErrDegenerateBounds when the corners coincide, are not
// finite numbers, or are swapped.
func (b Bounds) Validate() error {
	if !b.SouthWest.finite() || !b.NorthEast.finite() {
		return ErrDegenerateBounds
	}
	if b.SouthWest == b.NorthEast {
		return ErrDegenerateBounds
	}
	if b.SouthWest.Lat > b.NorthEast.Lat || b.SouthWest.Lng > b.NorthEast.Lng {
		return ErrDegenerateBounds
	}
	return nil
}

func (b Bounds) LatSpan() float64 { return b.NorthEast.Lat - b.SouthWest.Lat }
func (b Bounds) LngSpan() float64 { return b.NorthEast.Lng - b.SouthWest.Lng }

func (b Bounds) Center() LatLng {
	return LatLng{
		Lat: (b.SouthWest.Lat + b.NorthEast.Lat) / 2,
		Lng: (b.SouthWest.Lng + b.NorthEast.Lng) / 2,
	}
}

// Contains is inclusive on every edge.
func (b Bounds) Contains(p LatLng) bool {
	return p.Lat >= b.SouthWest.Lat && p.Lat <= b.NorthEast.Lat &&
		p.Lng >= b.SouthWest.Lng && p.Lng <= b.NorthEast.Lng
}

// Extend grows the box so that it covers p.
func (b Bounds) Extend(p LatLng) Bounds {
	b.SouthWest.Lat = math.Min(b.SouthWest.Lat, p.Lat)
	b.SouthWest.Lng = math.Min(b.SouthWest.Lng, p.Lng)
	b.NorthEast.Lat = math.Max(b.NorthEast.Lat, p.Lat)
	b.NorthEast.Lng = math.Max(b.NorthEast.Lng, p.Lng)
	return b
}

// DiagonalMeters is the great-circle length of the box diagonal.
func (b Bounds) DiagonalMeters() float64 {
	return HaversineDistance(b.SouthWest, b.NorthEast)
}

func DegreesToRadians(d float64) float64 {
	return d * math.Pi / 180.0
}

// HaversineDistance returns the spherical distance between two points in metres.
func HaversineDistance(p1, p2 LatLng) float64 {
	lat1 := DegreesToRadians(p1.Lat)
	lon1 := DegreesToRadians(p1.Lng)
	lat2 := DegreesToRadians(p2.Lat)
	lon2 := DegreesToRadians(p2.Lng)

	dLat := lat2 - lat1
	dLon := lon2 - lon1
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}

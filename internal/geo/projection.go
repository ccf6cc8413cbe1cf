package geo

import "math"

// maxMercatorLat clips latitudes the same way web map tiles do.
const maxMercatorLat = 85.0511287798

// Point is a position in screen space: x grows to the right, y grows down.
type Point struct {
	X float64
	Y float64
}

// Project maps a coordinate to spherical Web Mercator pixel space at zoom 0
// (a 256px world). Angles between projected points do not depend on zoom, so
// bearings computed here match what a map viewport would show.
func Project(p LatLng) Point {
	lat := math.Max(-maxMercatorLat, math.Min(maxMercatorLat, p.Lat))
	sin := math.Sin(DegreesToRadians(lat))
	x := (p.Lng + 180) / 360
	y := 0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)
	return Point{X: x * 256, Y: y * 256}
}

// Bearing returns the screen-space angle from center to p in degrees, with 0
// pointing straight up and angles increasing clockwise, in [0, 360).
func Bearing(center, p LatLng) float64 {
	c := Project(center)
	q := Project(p)
	dx := q.X - c.X
	dy := q.Y - c.Y
	deg := math.Atan2(dy, dx)*180/math.Pi + 450
	deg = math.Mod(deg, 360)
	if deg < 0 || deg >= 360 {
		deg = 0
	}
	return deg
}

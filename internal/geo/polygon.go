package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Ring is a closed polygon ring. Vertices use GeoJSON axis order: [lng, lat].
// The closing vertex may or may not repeat the first one.
type Ring [][2]float64

// Contains implements the ray-casting test. Points exactly on an edge may land
// on either side.
func (r Ring) Contains(p LatLng) bool {
	x, y := p.Lng, p.Lat
	inside := false
	j := len(r) - 1
	for i := 0; i < len(r); i++ {
		xi, yi := r[i][0], r[i][1]
		xj, yj := r[j][0], r[j][1]
		intersect := ((yi > y) != (yj > y)) && (x < (xj-xi)*(y-yi)/(yj-yi)+xi)
		if intersect {
			inside = !inside
		}
		j = i
	}
	return inside
}

// Bounds returns the smallest box covering the ring.
func (r Ring) Bounds() (Bounds, error) {
	if len(r) == 0 {
		return Bounds{}, ErrDegenerateBounds
	}
	first := LatLng{Lat: r[0][1], Lng: r[0][0]}
	b := Bounds{SouthWest: first, NorthEast: first}
	for _, v := range r[1:] {
		b = b.Extend(LatLng{Lat: v[1], Lng: v[0]})
	}
	return b, nil
}

// Area is the absolute planar shoelace area in square degrees. Only used to
// spot rings that cannot contain anything.
func (r Ring) Area() float64 {
	if len(r) < 3 {
		return 0
	}
	sum := 0.0
	j := len(r) - 1
	for i := range r {
		sum += (r[j][0] + r[i][0]) * (r[j][1] - r[i][1])
		j = i
	}
	return math.Abs(sum / 2)
}

var ErrNotPolygon = errors.New("geometry is not a polygon")

type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type geoJSONFeature struct {
	Type     string           `json:"type"`
	Geometry *geoJSONGeometry `json:"geometry"`
}

// ParsePolygon accepts either a GeoJSON Feature wrapping a Polygon (what map
// drawing tools emit) or a bare Polygon geometry, and returns its outer ring.
func ParsePolygon(raw []byte) (Ring, error) {
	var feature geoJSONFeature
	if err := json.Unmarshal(raw, &feature); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	var geom geoJSONGeometry
	switch feature.Type {
	case "Feature":
		if feature.Geometry == nil {
			return nil, ErrNotPolygon
		}
		geom = *feature.Geometry
	case "Polygon":
		if err := json.Unmarshal(raw, &geom); err != nil {
			return nil, fmt.Errorf("decode geometry: %w", err)
		}
	default:
		return nil, ErrNotPolygon
	}

	if geom.Type != "Polygon" {
		return nil, ErrNotPolygon
	}

	var rings [][][2]float64
	if err := json.Unmarshal(geom.Coordinates, &rings); err != nil {
		return nil, fmt.Errorf("decode polygon coordinates: %w", err)
	}
	if len(rings) == 0 {
		return nil, ErrNotPolygon
	}
	return Ring(rings[0]), nil
}

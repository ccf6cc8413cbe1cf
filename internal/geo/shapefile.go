package geo

import (
	"fmt"
	"strings"

	shp "github.com/jonas-p/go-shp"
)

// ServiceArea is a named polygon read from a shapefile, typically a sales
// territory or a neighbourhood boundary.
type ServiceArea struct {
	Name   string
	Parts  []Ring
	Attrs  map[string]string
	Bounds Bounds
}

// Contains checks the bbox first and then every part of the area.
func (a ServiceArea) Contains(p LatLng) bool {
	if !a.Bounds.Contains(p) {
		return false
	}
	for _, ring := range a.Parts {
		if ring.Contains(p) {
			return true
		}
	}
	return false
}

// LoadServiceAreas reads polygon records from a WGS84 shapefile. nameField
// selects the DBF attribute used as the area name; an empty value falls back
// to the record index.
func LoadServiceAreas(path, nameField string) ([]ServiceArea, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer r.Close()

	fields := r.Fields()

	var areas []ServiceArea
	for r.Next() {
		idx, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}

		numParts := len(poly.Parts)
		parts := make([]Ring, 0, numParts)
		var bounds Bounds
		haveBounds := false

		for partIdx := 0; partIdx < numParts; partIdx++ {
			start := poly.Parts[partIdx]
			end := int32(len(poly.Points))
			if partIdx+1 < numParts {
				end = poly.Parts[partIdx+1]
			}
			ring := make(Ring, 0, int(end-start))
			for i := start; i < end; i++ {
				pt := poly.Points[i]
				ring = append(ring, [2]float64{pt.X, pt.Y})
				p := LatLng{Lat: pt.Y, Lng: pt.X}
				if !haveBounds {
					bounds = Bounds{SouthWest: p, NorthEast: p}
					haveBounds = true
				} else {
					bounds = bounds.Extend(p)
				}
			}
			parts = append(parts, ring)
		}
		if !haveBounds {
			continue
		}

		attrs := make(map[string]string, len(fields))
		for i, f := range fields {
			attrs[f.String()] = strings.TrimSpace(r.ReadAttribute(idx, i))
		}

		name := attrs[nameField]
		if name == "" {
			name = fmt.Sprintf("area-%d", idx)
		}

		areas = append(areas, ServiceArea{
			Name:   name,
			Parts:  parts,
			Attrs:  attrs,
			Bounds: bounds,
		})
	}
	return areas, nil
}

// FindServiceArea does a case-insensitive name lookup.
func FindServiceArea(areas []ServiceArea, name string) (ServiceArea, bool) {
	for _, a := range areas {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return ServiceArea{}, false
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david/court-scout/internal/geo"
)

func TestParseLatLng(t *testing.T) {
	p, err := parseLatLng("33.5, -112.01")
	require.NoError(t, err)
	assert.Equal(t, geo.LatLng{Lat: 33.5, Lng: -112.01}, p)

	for _, bad := range []string{"", "33.5", "north,-112", "33.5,west"} {
		_, err := parseLatLng(bad)
		assert.Error(t, err, bad)
	}
}

func resetScanFlags(t *testing.T) {
	t.Cleanup(func() {
		scanSW, scanNE, scanPolygon, scanShapefile, scanArea = "", "", "", "", ""
	})
}

func TestScanRegion(t *testing.T) {
	t.Run("corners", func(t *testing.T) {
		resetScanFlags(t)
		scanSW, scanNE = "33.50,-112.00", "33.52,-111.97"
		region, err := scanRegion()
		require.NoError(t, err)
		assert.Equal(t, 33.52, region.Bounds.NorthEast.Lat)
		assert.Empty(t, region.Polygon)
	})

	t.Run("polygon file", func(t *testing.T) {
		resetScanFlags(t)
		path := filepath.Join(t.TempDir(), "area.geojson")
		require.NoError(t, os.WriteFile(path, []byte(`{"type":"Polygon","coordinates":[[[-112,33.5],[-111.97,33.5],[-111.97,33.52],[-112,33.5]]]}`), 0o644))
		scanPolygon = path
		region, err := scanRegion()
		require.NoError(t, err)
		assert.Len(t, region.Polygon, 4)
		assert.Equal(t, -112.0, region.Bounds.SouthWest.Lng)
	})

	t.Run("shapefile needs area", func(t *testing.T) {
		resetScanFlags(t)
		scanShapefile = "territories.shp"
		_, err := scanRegion()
		assert.ErrorContains(t, err, "--area")
	})

	t.Run("nothing given", func(t *testing.T) {
		resetScanFlags(t)
		_, err := scanRegion()
		assert.Error(t, err)
	})
}

func TestAreaRegion(t *testing.T) {
	west := geo.Ring{{-112, 33.5}, {-111.98, 33.5}, {-111.98, 33.52}, {-112, 33.5}}
	east := geo.Ring{{-111.5, 33.6}, {-111.4, 33.6}, {-111.4, 33.7}, {-111.5, 33.6}}

	t.Run("single ring uses its own bounds", func(t *testing.T) {
		area := geo.ServiceArea{
			Name:   "West Valley",
			Parts:  []geo.Ring{west},
			Bounds: geo.Bounds{SouthWest: geo.LatLng{Lat: 33, Lng: -113}, NorthEast: geo.LatLng{Lat: 34, Lng: -111}},
		}
		region, err := areaRegion(area)
		require.NoError(t, err)
		assert.Equal(t, west, region.Polygon)
		assert.Equal(t, geo.LatLng{Lat: 33.5, Lng: -112}, region.Bounds.SouthWest)
		assert.Equal(t, geo.LatLng{Lat: 33.52, Lng: -111.98}, region.Bounds.NorthEast)
	})

	t.Run("multi-part refused", func(t *testing.T) {
		_, err := areaRegion(geo.ServiceArea{Name: "Split", Parts: []geo.Ring{west, east}})
		assert.ErrorContains(t, err, "2 parts")
	})

	t.Run("no parts", func(t *testing.T) {
		_, err := areaRegion(geo.ServiceArea{Name: "Empty"})
		assert.ErrorContains(t, err, "no polygon")
	})
}

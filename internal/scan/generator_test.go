package scan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david/court-scout/internal/geo"
	"github.com/david/court-scout/internal/models"
)

var phoenix = geo.Bounds{
	SouthWest: geo.LatLng{Lat: 33.40, Lng: -112.20},
	NorthEast: geo.LatLng{Lat: 33.60, Lng: -111.90},
}

func TestGenerate_BoxOnly(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		res, err := NewSeededGenerator(seed, "").Generate(Region{Bounds: phoenix})
		require.NoError(t, err)

		assert.GreaterOrEqual(t, res.Requested, MinCandidates)
		assert.LessOrEqual(t, res.Requested, MaxCandidates)
		assert.Len(t, res.Prospects, res.Requested, "nothing is dropped without a polygon")
		assert.Zero(t, res.Dropped)

		for _, p := range res.Prospects {
			assert.True(t, phoenix.Contains(p.Coords), "seed %d: %+v outside box", seed, p.Coords)
			assert.GreaterOrEqual(t, p.Coords.Lat, 33.40)
			assert.LessOrEqual(t, p.Coords.Lat, 33.60)
			assert.GreaterOrEqual(t, p.Coords.Lng, -112.20)
			assert.LessOrEqual(t, p.Coords.Lng, -111.90)
		}
	}
}

func TestGenerate_PolygonContainment(t *testing.T) {
	// Triangle covering roughly half the box.
	triangle := geo.Ring{{-112.20, 33.40}, {-111.90, 33.40}, {-112.20, 33.60}, {-112.20, 33.40}}

	for seed := uint64(0); seed < 50; seed++ {
		res, err := NewSeededGenerator(seed, "").Generate(Region{Bounds: phoenix, Polygon: triangle})
		require.NoError(t, err)
		assert.Equal(t, res.Requested, len(res.Prospects)+res.Dropped)
		for _, p := range res.Prospects {
			assert.True(t, phoenix.Contains(p.Coords))
			assert.True(t, triangle.Contains(p.Coords), "seed %d: %+v outside polygon", seed, p.Coords)
		}
	}
}

func TestGenerate_CollinearPolygonTerminates(t *testing.T) {
	line := geo.Ring{{-112.20, 33.40}, {-112.05, 33.50}, {-111.90, 33.60}, {-112.20, 33.40}}

	done := make(chan Result, 1)
	go func() {
		res, err := NewSeededGenerator(7, "").Generate(Region{Bounds: phoenix, Polygon: line})
		assert.NoError(t, err)
		done <- res
	}()

	select {
	case res := <-done:
		assert.Empty(t, res.Prospects)
		assert.Equal(t, res.Requested, res.Dropped)
	case <-time.After(5 * time.Second):
		t.Fatal("generation did not terminate")
	}
}

func TestGenerate_DegenerateRegion(t *testing.T) {
	point := geo.LatLng{Lat: 33.5, Lng: -112}
	_, err := NewSeededGenerator(1, "").Generate(Region{Bounds: geo.Bounds{SouthWest: point, NorthEast: point}})
	assert.ErrorIs(t, err, ErrInvalidRegion)
}

func TestGenerate_StatusAndSummaryDerivation(t *testing.T) {
	for seed := uint64(0); seed < 30; seed++ {
		res, err := NewSeededGenerator(seed, "").Generate(Region{Bounds: phoenix})
		require.NoError(t, err)
		for _, p := range res.Prospects {
			assert.Equal(t, models.TypeResidential, p.Type)
			assert.GreaterOrEqual(t, p.ConditionScore, MinConditionScore)
			assert.LessOrEqual(t, p.ConditionScore, MaxConditionScore)
			assert.Equal(t, p.ConditionScore > 7.0, p.Condition == models.ConditionGood)
			assert.Equal(t, Assessment(p.Condition, p.CourtType), p.AISummary)
			assert.Contains(t, models.CourtTypes, p.CourtType)
			assert.Contains(t, p.Address, ", Paradise Valley, AZ")
			assert.Contains(t, p.Homeowner, p.Name[:len(p.Name)-len(" Residence")])
		}
	}
}

func TestGenerate_UniqueIDsWithinScan(t *testing.T) {
	for seed := uint64(0); seed < 200; seed++ {
		res, err := NewSeededGenerator(seed, "").Generate(Region{Bounds: phoenix})
		require.NoError(t, err)
		seen := map[string]bool{}
		for _, p := range res.Prospects {
			require.False(t, seen[p.ID], "seed %d: duplicate id %s", seed, p.ID)
			seen[p.ID] = true
		}
	}
}

func TestGenerate_DeterministicForSeed(t *testing.T) {
	a, err := NewSeededGenerator(42, "Scottsdale, AZ").Generate(Region{Bounds: phoenix})
	require.NoError(t, err)
	b, err := NewSeededGenerator(42, "Scottsdale, AZ").Generate(Region{Bounds: phoenix})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, a.Prospects[0].Address, "Scottsdale, AZ")
}

func TestAssessment(t *testing.T) {
	assert.Equal(t, "Well-maintained tennis court on a large property.", Assessment(models.ConditionGood, models.CourtTennis))
	assert.Equal(t,
		"Visible wear and fading on the pickleball court surface. High potential for a resurfacing lead.",
		Assessment(models.ConditionWorn, models.CourtPickleball))
}

func TestPlan_OrderedByBearing(t *testing.T) {
	center := phoenix.Center()
	prospects := []models.Prospect{
		{ID: "west", Coords: geo.LatLng{Lat: center.Lat, Lng: center.Lng - 0.1}},
		{ID: "north", Coords: geo.LatLng{Lat: center.Lat + 0.05, Lng: center.Lng}},
		{ID: "south", Coords: geo.LatLng{Lat: center.Lat - 0.05, Lng: center.Lng}},
		{ID: "east", Coords: geo.LatLng{Lat: center.Lat, Lng: center.Lng + 0.1}},
	}

	plan := Plan(prospects, center, DefaultDuration)
	require.Len(t, plan, 4)

	var ids []string
	for i, r := range plan {
		ids = append(ids, r.Prospect.ID)
		assert.Less(t, r.Delay, DefaultDuration)
		if i > 0 {
			assert.GreaterOrEqual(t, r.Bearing, plan[i-1].Bearing)
		}
	}
	assert.Equal(t, []string{"north", "east", "south", "west"}, ids)
	assert.InDelta(t, 2500, plan[2].DelayMS, 1)
}

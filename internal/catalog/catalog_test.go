package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david/court-scout/internal/models"
)

func mustDefault(t *testing.T) *Static {
	t.Helper()
	t.Setenv("CATALOG_FILE", "")
	c, err := Default()
	require.NoError(t, err)
	return c
}

func TestDefault_LoadsEmbeddedDataset(t *testing.T) {
	c := mustDefault(t)

	assert.NotEmpty(t, c.Version())
	assert.Len(t, c.Courts(), 5)
	assert.Len(t, c.Leads(), 4)
	assert.Len(t, c.Residential(), 2)
	assert.Len(t, c.Prospects(), 11)
	assert.Len(t, c.Competitors(), 5)
	assert.Len(t, c.CompetitorEvents(""), 6)
	assert.Len(t, c.WebIntel(), 3)
	assert.Len(t, c.IntelNotes(), 2)
	assert.Equal(t, 11, c.MapDefaults().Zoom)
}

func TestDefault_ParsesDates(t *testing.T) {
	c := mustDefault(t)

	lead, err := c.Prospect("102")
	require.NoError(t, err)
	require.NotNil(t, lead.DetectedAt)
	assert.Equal(t, time.Date(2025, time.September, 5, 0, 0, 0, 0, time.UTC), *lead.DetectedAt)

	comp, err := c.Competitor("comp3")
	require.NoError(t, err)
	require.Len(t, comp.Violations, 1)
	assert.Equal(t, time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC), comp.Violations[0].Date)
	assert.Equal(t, models.LicenseSuspended, comp.Status)

	wi := c.WebIntel()[0]
	require.NotNil(t, wi.Date)
	assert.Equal(t, time.August, wi.Date.Month())
}

func TestProspectTypesAndCanonicalFields(t *testing.T) {
	c := mustDefault(t)

	for _, p := range c.Courts() {
		assert.Equal(t, models.TypeCommercialCourt, p.Type)
		assert.Contains(t, models.CourtTypes, p.CourtType)
	}
	for _, p := range c.Residential() {
		assert.Equal(t, models.ConditionFor(p.ConditionScore), p.Condition, p.ID)
	}
	lead, err := c.Prospect("101")
	require.NoError(t, err)
	assert.Equal(t, "$750,000", lead.ExtractedData["Value"])
	assert.Equal(t, 9, lead.AIScore)
}

func TestLookupsNotFound(t *testing.T) {
	c := mustDefault(t)

	_, err := c.Prospect("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Competitor("comp99")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, c.CompetitorEvents("comp5"))
	assert.Len(t, c.CompetitorEvents("comp1"), 3)
}

func TestCopiesAreIsolated(t *testing.T) {
	c := mustDefault(t)
	courts := c.Courts()
	courts[0].Name = "mutated"
	assert.Equal(t, "Camelback High School", c.Courts()[0].Name)
}

func TestLeadEvents(t *testing.T) {
	c := mustDefault(t)
	events := c.LeadEvents()
	require.Len(t, events, 4)
	assert.Equal(t, "101", events[0].ProspectID)
	assert.Equal(t, models.TypeNews, events[1].Type)
}

func TestHeatmap(t *testing.T) {
	c := mustDefault(t)

	leads, err := c.Heatmap(HeatmapLeads)
	require.NoError(t, err)
	require.Len(t, leads, 4)
	assert.Equal(t, HeatPoint{Lat: 33.541, Lng: -111.965, Weight: 90}, leads[0])

	clients, err := c.Heatmap(HeatmapClients)
	require.NoError(t, err)
	require.Len(t, clients, 3)
	for _, p := range clients {
		assert.Equal(t, 50.0, p.Weight)
	}

	_, err = c.Heatmap("permits")
	assert.ErrorIs(t, err, ErrUnknownHeatmap)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing version", "courts: []"},
		{"bad date", "version: x\nintel_notes:\n  - id: 1\n    date: soon\n    content: hi\n"},
		{"duplicate id", "version: x\ncourts:\n  - {id: \"1\", type: commercial_court}\nresidential:\n  - {id: \"1\", type: residential}\n"},
		{"wrong type", "version: x\nresidential:\n  - {id: \"9\", type: permit}\n"},
		{"dangling event", "version: x\ncompetitor_events:\n  - {id: 1, competitor_id: ghost, date: \"2025-01-01\"}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

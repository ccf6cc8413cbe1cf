// Package activity builds the dashboard feed from competitor intel and lead
// detections.
package activity

import (
	"fmt"
	"sort"
	"time"

	"github.com/david/court-scout/internal/models"
)

type Kind string

const (
	KindCompetitor Kind = "competitor"
	KindLead       Kind = "lead"
)

// Item is one feed row. Link holds the competitor id for competitor items
// and the prospect id for lead items.
type Item struct {
	Kind  Kind      `json:"kind"`
	Date  time.Time `json:"date"`
	Title string    `json:"title"`
	Text  string    `json:"text"`
	Link  string    `json:"link"`
}

// Merge returns both collections as one feed, newest first. Items with equal
// dates keep their source order: competitor events before lead events, then
// input order within each collection. Inputs are not modified.
func Merge(competitorEvents []models.CompetitorEvent, leadEvents []models.LeadEvent) []Item {
	items := make([]Item, 0, len(competitorEvents)+len(leadEvents))
	for _, e := range competitorEvents {
		items = append(items, Item{
			Kind:  KindCompetitor,
			Date:  e.Date,
			Title: e.Type,
			Text:  e.Summary,
			Link:  e.CompetitorID,
		})
	}
	for _, e := range leadEvents {
		items = append(items, Item{
			Kind:  KindLead,
			Date:  e.Date,
			Title: leadTitle(e.Type),
			Text:  fmt.Sprintf("%s: '%s'", leadTitle(e.Type), e.Name),
			Link:  e.ProspectID,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date)
	})
	return items
}

// Limit truncates a feed to at most n items; n <= 0 means no limit.
func Limit(items []Item, n int) []Item {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[:n]
}

func leadTitle(t models.ProspectType) string {
	switch t {
	case models.TypePermit:
		return "New permit lead detected"
	case models.TypeNews:
		return "News lead detected"
	default:
		return "New lead detected"
	}
}

package activity

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/david/court-scout/internal/models"
)

func day(d int) time.Time {
	return time.Date(2025, time.September, d, 0, 0, 0, 0, time.UTC)
}

func TestMerge_NewestFirstAndStable(t *testing.T) {
	comp := []models.CompetitorEvent{
		{ID: 1, CompetitorID: "comp1", Type: "License Update", Date: day(6), Summary: "renewed"},
		{ID: 2, CompetitorID: "comp1", Type: "New Ad Campaign", Date: day(4), Summary: "ads"},
		{ID: 4, CompetitorID: "comp2", Type: "Permit Filed", Date: day(5), Summary: "permit"},
		{ID: 7, CompetitorID: "comp2", Type: "SEO Ranking Change", Date: day(4), Summary: "seo"},
	}
	leads := []models.LeadEvent{
		{ProspectID: "101", Type: models.TypePermit, Name: "Country Club", Date: day(6)},
		{ProspectID: "102", Type: models.TypeNews, Name: "Mesa Parks", Date: day(4)},
	}

	got := Merge(comp, leads)

	want := []Item{
		{Kind: KindCompetitor, Date: day(6), Title: "License Update", Text: "renewed", Link: "comp1"},
		{Kind: KindLead, Date: day(6), Title: "New permit lead detected", Text: "New permit lead detected: 'Country Club'", Link: "101"},
		{Kind: KindCompetitor, Date: day(5), Title: "Permit Filed", Text: "permit", Link: "comp2"},
		{Kind: KindCompetitor, Date: day(4), Title: "New Ad Campaign", Text: "ads", Link: "comp1"},
		{Kind: KindCompetitor, Date: day(4), Title: "SEO Ranking Change", Text: "seo", Link: "comp2"},
		{Kind: KindLead, Date: day(4), Title: "News lead detected", Text: "News lead detected: 'Mesa Parks'", Link: "102"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	comp := []models.CompetitorEvent{
		{ID: 1, Date: day(1)},
		{ID: 2, Date: day(9)},
	}
	before := append([]models.CompetitorEvent(nil), comp...)
	Merge(comp, nil)
	if diff := cmp.Diff(before, comp); diff != "" {
		t.Fatalf("input mutated:\n%s", diff)
	}
}

func TestMerge_Empty(t *testing.T) {
	got := Merge(nil, nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil feed, got %#v", got)
	}
}

func TestLimit(t *testing.T) {
	items := Merge(nil, []models.LeadEvent{{Date: day(1)}, {Date: day(2)}, {Date: day(3)}})
	if n := len(Limit(items, 2)); n != 2 {
		t.Fatalf("Limit(2) returned %d items", n)
	}
	if n := len(Limit(items, 0)); n != 3 {
		t.Fatalf("Limit(0) returned %d items", n)
	}
}

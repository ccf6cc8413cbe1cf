package models

import (
	"time"

	"github.com/david/court-scout/internal/geo"
)

// ProspectType tags where a prospect came from.
type ProspectType string

const (
	TypeCommercialCourt ProspectType = "commercial_court"
	TypePermit          ProspectType = "permit"
	TypeNews            ProspectType = "news"
	TypeResidential     ProspectType = "residential"
)

type CourtType string

const (
	CourtTennis     CourtType = "Tennis"
	CourtPickleball CourtType = "Pickleball"
	CourtBasketball CourtType = "Basketball"
)

// CourtTypes lists every court type in a fixed order.
var CourtTypes = []CourtType{CourtTennis, CourtPickleball, CourtBasketball}

// Condition is the surface assessment of a residential court.
type Condition string

const (
	ConditionGood Condition = "good"
	ConditionWorn Condition = "worn"
)

// GoodConditionThreshold is exclusive: a score must exceed it to count as good.
const GoodConditionThreshold = 7.0

// ConditionFor derives the condition from a score.
func ConditionFor(score float64) Condition {
	if score > GoodConditionThreshold {
		return ConditionGood
	}
	return ConditionWorn
}

// Prospect is the canonical schema shared by commercial courts, permit and
// news leads, and residential prospects. Fields that do not apply to a given
// type stay at their zero value.
type Prospect struct {
	ID       string       `json:"id" yaml:"id"`
	Type     ProspectType `json:"type" yaml:"type"`
	Name     string       `json:"name" yaml:"name"`
	Coords   geo.LatLng   `json:"coords" yaml:"coords"`
	IsClient bool         `json:"is_client" yaml:"is_client"`
	IsDue    bool         `json:"is_due" yaml:"is_due"`
	IsSynced bool         `json:"is_synced" yaml:"is_synced"`

	// Commercial courts.
	CourtType  CourtType `json:"court_type,omitempty" yaml:"court_type,omitempty"`
	Surface    string    `json:"surface,omitempty" yaml:"surface,omitempty"` // bright, faded
	Conditions []string  `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	// Leads.
	AIScore       int               `json:"ai_score,omitempty" yaml:"ai_score,omitempty"`
	AISummary     string            `json:"ai_summary,omitempty" yaml:"ai_summary,omitempty"`
	ExtractedData map[string]string `json:"extracted_data,omitempty" yaml:"extracted_data,omitempty"`
	Contractor    string            `json:"contractor,omitempty" yaml:"contractor,omitempty"`
	DetectedAt    *time.Time        `json:"detected_at,omitempty" yaml:"-"`

	// Residential.
	Homeowner      string    `json:"homeowner,omitempty" yaml:"homeowner,omitempty"`
	Address        string    `json:"address,omitempty" yaml:"address,omitempty"`
	ConditionScore float64   `json:"condition_score,omitempty" yaml:"condition_score,omitempty"`
	Condition      Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// PipelineStatus tracks a saved prospect through the sales process.
type PipelineStatus string

const (
	PipelineNew       PipelineStatus = "New"
	PipelineContacted PipelineStatus = "Contacted"
	PipelineQuoted    PipelineStatus = "Quoted"
	PipelineWon       PipelineStatus = "Won"
	PipelineLost      PipelineStatus = "Lost"
)

func (s PipelineStatus) Valid() bool {
	switch s {
	case PipelineNew, PipelineContacted, PipelineQuoted, PipelineWon, PipelineLost:
		return true
	}
	return false
}

// SavedProspect is a prospect a user promoted from a scan or the catalog.
type SavedProspect struct {
	Prospect
	Status    PipelineStatus `json:"status"`
	Notes     string         `json:"notes"`
	SavedAt   time.Time      `json:"saved_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IntelNote is a field observation written by a sales rep.
type IntelNote struct {
	ID        int64     `json:"id" yaml:"id"`
	Date      time.Time `json:"date" yaml:"-"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

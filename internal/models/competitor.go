package models

import "time"

type LicenseStatus string

const (
	LicenseActive    LicenseStatus = "Active"
	LicenseSuspended LicenseStatus = "Suspended"
	LicensePending   LicenseStatus = "Pending"
)

type Violation struct {
	Date        time.Time `json:"date" yaml:"-"`
	Description string    `json:"description" yaml:"description"`
	Resolution  string    `json:"resolution" yaml:"resolution"`
}

type Lawsuit struct {
	CaseNumber  string    `json:"case_number" yaml:"case_number"`
	FilingDate  time.Time `json:"filing_date" yaml:"-"`
	Court       string    `json:"court" yaml:"court"`
	Description string    `json:"description" yaml:"description"`
	Status      string    `json:"status" yaml:"status"`
}

// Competitor is a rival contractor and its licensing record.
type Competitor struct {
	ID            string        `json:"id" yaml:"id"`
	Name          string        `json:"name" yaml:"name"`
	Website       string        `json:"website,omitempty" yaml:"website,omitempty"`
	LicenseNumber string        `json:"license_number" yaml:"license_number"`
	Status        LicenseStatus `json:"status" yaml:"status"`
	Violations    []Violation   `json:"violations" yaml:"violations"`
	Lawsuits      []Lawsuit     `json:"lawsuits" yaml:"lawsuits"`
}

// CompetitorEvent is one dated observation about a competitor: a license
// update, ad campaign, SEO move or filed permit.
type CompetitorEvent struct {
	ID           int64     `json:"id" yaml:"id"`
	CompetitorID string    `json:"competitor_id" yaml:"competitor_id"`
	Type         string    `json:"type" yaml:"type"`
	Date         time.Time `json:"date" yaml:"-"`
	Summary      string    `json:"summary" yaml:"summary"`
	Details      string    `json:"details" yaml:"details"`
}

// WebIntel is an article or announcement found on a competitor's site.
type WebIntel struct {
	ID             string            `json:"id" yaml:"id"`
	CompetitorName string            `json:"competitor_name" yaml:"competitor_name"`
	Date           *time.Time        `json:"date,omitempty" yaml:"-"`
	Headline       string            `json:"headline" yaml:"headline"`
	AISummary      string            `json:"ai_summary" yaml:"ai_summary"`
	SourceURL      string            `json:"source_url" yaml:"source_url"`
	ExtractedData  map[string]string `json:"extracted_data,omitempty" yaml:"extracted_data,omitempty"`
}

// LeadEvent records when a permit or news lead was first detected.
type LeadEvent struct {
	ProspectID string       `json:"prospect_id"`
	Type       ProspectType `json:"type"`
	Name       string       `json:"name"`
	Date       time.Time    `json:"date"`
}

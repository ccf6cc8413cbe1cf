// Package catalog serves the reference dataset behind the dashboard: client
// courts, permit and news leads, residential prospects, competitors and the
// market intel gathered about them. The dataset is embedded and versioned;
// callers only ever see it through the Catalog interface.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/david/court-scout/internal/dates"
	"github.com/david/court-scout/internal/geo"
	"github.com/david/court-scout/internal/models"
)

//go:embed data/catalog.yaml
var catalogFS embed.FS

var (
	ErrNotFound       = errors.New("catalog: not found")
	ErrUnknownHeatmap = errors.New("catalog: unknown heatmap kind")
)

// Catalog is the read-only data-access surface. Slices returned are copies.
type Catalog interface {
	Version() string
	MapDefaults() MapDefaults

	Courts() []models.Prospect
	Leads() []models.Prospect
	Residential() []models.Prospect
	Prospects() []models.Prospect
	Prospect(id string) (models.Prospect, error)
	LeadEvents() []models.LeadEvent

	Competitors() []models.Competitor
	Competitor(id string) (models.Competitor, error)
	CompetitorEvents(competitorID string) []models.CompetitorEvent
	WebIntel() []models.WebIntel
	SEO() models.SeoDataset
	IntelNotes() []models.IntelNote

	Heatmap(kind HeatmapKind) ([]HeatPoint, error)
}

// MapDefaults is the initial map view for the territory.
type MapDefaults struct {
	Center   geo.LatLng `json:"center" yaml:"center"`
	Zoom     int        `json:"zoom" yaml:"zoom"`
	Locality string     `json:"locality" yaml:"locality"`
}

// Static is a Catalog held fully in memory.
type Static struct {
	version     string
	mapDefaults MapDefaults
	courts      []models.Prospect
	leads       []models.Prospect
	residential []models.Prospect
	competitors []models.Competitor
	events      []models.CompetitorEvent
	webIntel    []models.WebIntel
	seo         models.SeoDataset
	notes       []models.IntelNote
}

var _ Catalog = (*Static)(nil)

type document struct {
	Version     string             `yaml:"version"`
	Map         MapDefaults        `yaml:"map"`
	Courts      []models.Prospect  `yaml:"courts"`
	Leads       []leadRecord       `yaml:"leads"`
	Residential []models.Prospect  `yaml:"residential"`
	Competitors []competitorRecord `yaml:"competitors"`
	Events      []eventRecord      `yaml:"competitor_events"`
	WebIntel    []webIntelRecord   `yaml:"web_intel"`
	SEO         models.SeoDataset  `yaml:"seo"`
	Notes       []noteRecord       `yaml:"intel_notes"`
}

type leadRecord struct {
	models.Prospect `yaml:",inline"`
	Detected        string `yaml:"detected"`
}

type violationRecord struct {
	models.Violation `yaml:",inline"`
	Date             string `yaml:"date"`
}

type lawsuitRecord struct {
	models.Lawsuit `yaml:",inline"`
	FilingDate     string `yaml:"filing_date"`
}

type competitorRecord struct {
	ID            string               `yaml:"id"`
	Name          string               `yaml:"name"`
	Website       string               `yaml:"website"`
	LicenseNumber string               `yaml:"license_number"`
	Status        models.LicenseStatus `yaml:"status"`
	Violations    []violationRecord    `yaml:"violations"`
	Lawsuits      []lawsuitRecord      `yaml:"lawsuits"`
}

type eventRecord struct {
	models.CompetitorEvent `yaml:",inline"`
	Date                   string `yaml:"date"`
}

type webIntelRecord struct {
	models.WebIntel `yaml:",inline"`
	Date            string `yaml:"date"`
}

type noteRecord struct {
	models.IntelNote `yaml:",inline"`
	Date             string `yaml:"date"`
}

// Default loads the embedded dataset. Setting CATALOG_FILE swaps in a file
// from disk with the same layout.
func Default() (*Static, error) {
	if path := os.Getenv("CATALOG_FILE"); path != "" {
		return LoadFile(path)
	}
	data, err := catalogFS.ReadFile("data/catalog.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded catalog: %w", err)
	}
	return Load(data)
}

func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Load(data)
}

// Load decodes and validates a dataset. Every date string is parsed here so
// that the rest of the program only deals with time.Time.
func Load(data []byte) (*Static, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if doc.Version == "" {
		return nil, errors.New("catalog: missing version")
	}

	c := &Static{
		version:     doc.Version,
		mapDefaults: doc.Map,
		courts:      doc.Courts,
		residential: doc.Residential,
		seo:         doc.SEO,
	}

	for _, l := range doc.Leads {
		p := l.Prospect
		if l.Detected != "" {
			t, err := dates.Parse(l.Detected)
			if err != nil {
				return nil, fmt.Errorf("lead %s: %w", p.ID, err)
			}
			p.DetectedAt = &t
		}
		c.leads = append(c.leads, p)
	}

	for _, r := range doc.Competitors {
		comp := models.Competitor{
			ID:            r.ID,
			Name:          r.Name,
			Website:       r.Website,
			LicenseNumber: r.LicenseNumber,
			Status:        r.Status,
			Violations:    []models.Violation{},
			Lawsuits:      []models.Lawsuit{},
		}
		for _, v := range r.Violations {
			t, err := dates.Parse(v.Date)
			if err != nil {
				return nil, fmt.Errorf("competitor %s violation: %w", r.ID, err)
			}
			vio := v.Violation
			vio.Date = t
			comp.Violations = append(comp.Violations, vio)
		}
		for _, l := range r.Lawsuits {
			t, err := dates.Parse(l.FilingDate)
			if err != nil {
				return nil, fmt.Errorf("competitor %s lawsuit %s: %w", r.ID, l.CaseNumber, err)
			}
			suit := l.Lawsuit
			suit.FilingDate = t
			comp.Lawsuits = append(comp.Lawsuits, suit)
		}
		c.competitors = append(c.competitors, comp)
	}

	for _, e := range doc.Events {
		t, err := dates.Parse(e.Date)
		if err != nil {
			return nil, fmt.Errorf("competitor event %d: %w", e.ID, err)
		}
		ev := e.CompetitorEvent
		ev.Date = t
		c.events = append(c.events, ev)
	}

	for _, w := range doc.WebIntel {
		wi := w.WebIntel
		if w.Date != "" {
			t, err := dates.Parse(w.Date)
			if err != nil {
				return nil, fmt.Errorf("web intel %s: %w", wi.ID, err)
			}
			wi.Date = &t
		}
		c.webIntel = append(c.webIntel, wi)
	}

	for _, n := range doc.Notes {
		t, err := dates.Parse(n.Date)
		if err != nil {
			return nil, fmt.Errorf("intel note %d: %w", n.ID, err)
		}
		note := n.IntelNote
		note.Date = t
		c.notes = append(c.notes, note)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Static) validate() error {
	ids := map[string]bool{}
	check := func(want models.ProspectType, list []models.Prospect) error {
		for _, p := range list {
			if p.ID == "" {
				return fmt.Errorf("catalog: %s prospect without id", want)
			}
			if ids[p.ID] {
				return fmt.Errorf("catalog: duplicate prospect id %s", p.ID)
			}
			ids[p.ID] = true
			if p.Type != want && !(want == models.TypePermit && p.Type == models.TypeNews) {
				return fmt.Errorf("catalog: prospect %s has type %q, want %q", p.ID, p.Type, want)
			}
		}
		return nil
	}
	if err := check(models.TypeCommercialCourt, c.courts); err != nil {
		return err
	}
	if err := check(models.TypePermit, c.leads); err != nil {
		return err
	}
	if err := check(models.TypeResidential, c.residential); err != nil {
		return err
	}

	comps := map[string]bool{}
	for _, comp := range c.competitors {
		comps[comp.ID] = true
	}
	for _, e := range c.events {
		if !comps[e.CompetitorID] {
			return fmt.Errorf("catalog: event %d references unknown competitor %s", e.ID, e.CompetitorID)
		}
	}
	return nil
}

func (c *Static) Version() string { return c.version }
func (c *Static) MapDefaults() MapDefaults { return c.mapDefaults }

func (c *Static) Courts() []models.Prospect { return slices.Clone(c.courts) }
func (c *Static) Leads() []models.Prospect { return slices.Clone(c.leads) }
func (c *Static) Residential() []models.Prospect { return slices.Clone(c.residential) }

// Prospects returns courts, leads and residential prospects in that order.
func (c *Static) Prospects() []models.Prospect {
	out := make([]models.Prospect, 0, len(c.courts)+len(c.leads)+len(c.residential))
	out = append(out, c.courts...)
	out = append(out, c.leads...)
	return append(out, c.residential...)
}

func (c *Static) Prospect(id string) (models.Prospect, error) {
	for _, list := range [][]models.Prospect{c.courts, c.leads, c.residential} {
		for _, p := range list {
			if p.ID == id {
				return p, nil
			}
		}
	}
	return models.Prospect{}, fmt.Errorf("prospect %s: %w", id, ErrNotFound)
}

// LeadEvents lists the detection of every dated lead, in dataset order.
func (c *Static) LeadEvents() []models.LeadEvent {
	var out []models.LeadEvent
	for _, l := range c.leads {
		if l.DetectedAt == nil {
			continue
		}
		out = append(out, models.LeadEvent{
			ProspectID: l.ID,
			Type:       l.Type,
			Name:       l.Name,
			Date:       *l.DetectedAt,
		})
	}
	return out
}

func (c *Static) Competitors() []models.Competitor { return slices.Clone(c.competitors) }

func (c *Static) Competitor(id string) (models.Competitor, error) {
	for _, comp := range c.competitors {
		if comp.ID == id {
			return comp, nil
		}
	}
	return models.Competitor{}, fmt.Errorf("competitor %s: %w", id, ErrNotFound)
}

// CompetitorEvents filters by competitor; an empty id returns all events.
func (c *Static) CompetitorEvents(competitorID string) []models.CompetitorEvent {
	if competitorID == "" {
		return slices.Clone(c.events)
	}
	var out []models.CompetitorEvent
	for _, e := range c.events {
		if e.CompetitorID == competitorID {
			out = append(out, e)
		}
	}
	return out
}

func (c *Static) WebIntel() []models.WebIntel { return slices.Clone(c.webIntel) }
func (c *Static) SEO() models.SeoDataset { return c.seo }
func (c *Static) IntelNotes() []models.IntelNote { return slices.Clone(c.notes) }

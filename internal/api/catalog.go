package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/david/court-scout/internal/activity"
	"github.com/david/court-scout/internal/catalog"
	"github.com/david/court-scout/internal/models"
)

func (s *Server) handleSEOData(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Catalog.SEO())
}

func (s *Server) handleCatalogVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"version": s.Catalog.Version()})
}

func (s *Server) handleMapDefaults(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Catalog.MapDefaults())
}

func (s *Server) handleCourts(c echo.Context) error {
	courts := s.Catalog.Courts()
	if c.QueryParam("clients") == "true" {
		clients := make([]models.Prospect, 0, len(courts))
		for _, ct := range courts {
			if ct.IsClient {
				clients = append(clients, ct)
			}
		}
		courts = clients
	}
	return c.JSON(http.StatusOK, courts)
}

func (s *Server) handleLeads(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Catalog.Leads())
}

// handleProspects lists every catalog prospect, optionally narrowed by
// ?type=commercial_court|permit|news|residential.
func (s *Server) handleProspects(c echo.Context) error {
	all := s.Catalog.Prospects()
	t := models.ProspectType(strings.TrimSpace(c.QueryParam("type")))
	if t == "" {
		return c.JSON(http.StatusOK, all)
	}
	out := []models.Prospect{}
	for _, p := range all {
		if p.Type == t {
			out = append(out, p)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleProspect(c echo.Context) error {
	p, err := s.Catalog.Prospect(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleCompetitors(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Catalog.Competitors())
}

type competitorStatus struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	LicenseNumber string               `json:"license_number"`
	Status        models.LicenseStatus `json:"status"`
	Violations    int                  `json:"violations"`
	Lawsuits      int                  `json:"lawsuits"`
	Flagged       bool                 `json:"flagged"`
}

// handleCompetitorStatus is the license board: one row per competitor and a
// count per license status.
func (s *Server) handleCompetitorStatus(c echo.Context) error {
	comps := s.Catalog.Competitors()
	rows := make([]competitorStatus, 0, len(comps))
	counts := map[models.LicenseStatus]int{}
	for _, comp := range comps {
		counts[comp.Status]++
		rows = append(rows, competitorStatus{
			ID:            comp.ID,
			Name:          comp.Name,
			LicenseNumber: comp.LicenseNumber,
			Status:        comp.Status,
			Violations:    len(comp.Violations),
			Lawsuits:      len(comp.Lawsuits),
			Flagged:       comp.Status != models.LicenseActive || len(comp.Violations) > 0 || len(comp.Lawsuits) > 0,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"competitors": rows,
		"counts":      counts,
	})
}

func (s *Server) handleCompetitorEvents(c echo.Context) error {
	id := c.Param("id")
	if _, err := s.Catalog.Competitor(id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Competitor not found"})
	}
	events := s.Catalog.CompetitorEvents(id)
	if events == nil {
		events = []models.CompetitorEvent{}
	}
	return c.JSON(http.StatusOK, events)
}

// handleWebIntel prefers crawled intel from the database and falls back to
// the catalog's curated items when nothing has been crawled yet.
func (s *Server) handleWebIntel(c echo.Context) error {
	limit := queryInt(c, "limit", 50, 200)
	if s.Store != nil {
		items, err := s.Store.ListWebIntel(c.Request().Context(), limit)
		if err != nil {
			s.Logger.Warn("list web intel failed, serving catalog", zap.Error(err))
		} else if len(items) > 0 {
			return c.JSON(http.StatusOK, items)
		}
	}
	items := s.Catalog.WebIntel()
	if len(items) > limit {
		items = items[:limit]
	}
	return c.JSON(http.StatusOK, items)
}

// handleSEO returns the whole dataset, or one keyword's rankings and history
// with ?keyword=.
func (s *Server) handleSEO(c echo.Context) error {
	data := s.Catalog.SEO()
	kw := c.QueryParam("keyword")
	if kw == "" {
		return c.JSON(http.StatusOK, data)
	}
	history, ok := data.History[kw]
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Unknown keyword"})
	}
	rankings := data.RankingsFor(kw)
	if rankings == nil {
		rankings = []models.SeoRanking{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"keyword":  kw,
		"rankings": rankings,
		"history":  history,
	})
}

func (s *Server) handleHeatmap(c echo.Context) error {
	kind := catalog.HeatmapKind(c.QueryParam("kind"))
	if kind == "" {
		kind = catalog.HeatmapLeads
	}
	points, err := s.Catalog.Heatmap(kind)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownHeatmap) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, points)
}

func (s *Server) handleActivity(c echo.Context) error {
	feed := activity.Merge(s.Catalog.CompetitorEvents(""), s.Catalog.LeadEvents())
	return c.JSON(http.StatusOK, activity.Limit(feed, queryInt(c, "limit", 0, 500)))
}

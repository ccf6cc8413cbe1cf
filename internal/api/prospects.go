package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/david/court-scout/internal/ai"
	"github.com/david/court-scout/internal/auth"
	"github.com/david/court-scout/internal/dates"
	"github.com/david/court-scout/internal/db"
	"github.com/david/court-scout/internal/models"
)

// Saved prospects

type saveRequest struct {
	// ProspectID saves a catalog prospect.
	ProspectID string `json:"prospect_id"`
	// Prospect saves one revealed by a scan, which only exists client-side.
	Prospect *models.Prospect `json:"prospect"`
}

func (s *Server) handleSaveProspect(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req saveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	var p models.Prospect
	switch {
	case req.ProspectID != "":
		p, err = s.Catalog.Prospect(req.ProspectID)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Prospect not found"})
		}
	case req.Prospect != nil && req.Prospect.ID != "":
		p = *req.Prospect
		if p.Type == "" {
			p.Type = models.TypeResidential
		}
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "prospect_id or prospect is required"})
	}

	saved, err := s.Store.SaveProspect(ctx, userID, p, s.embed(ctx, prospectText(p)))
	if err != nil {
		s.Logger.Error("save prospect failed", zap.String("prospect_id", p.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save prospect"})
	}
	return c.JSON(http.StatusCreated, saved)
}

func prospectText(p models.Prospect) string {
	parts := []string{p.Name, p.Address, string(p.CourtType), p.AISummary, p.Contractor}
	for k, v := range p.ExtractedData {
		parts = append(parts, k+": "+v)
	}
	return strings.Join(parts, " ")
}

// embed is best effort: without a model, or when it fails, search falls back
// to keywords.
func (s *Server) embed(ctx context.Context, text string) []float32 {
	if s.LLM == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	aiCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	vec, err := s.LLM.GenerateEmbedding(aiCtx, text)
	if err != nil {
		s.Logger.Warn("failed to generate embedding", zap.Error(err))
		return nil
	}
	return vec
}

func (s *Server) handleListSaved(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	offset := 0
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		offset = o
	}
	q := strings.TrimSpace(c.QueryParam("q"))
	status := models.PipelineStatus(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid status"})
	}

	result, err := s.Store.ListSavedProspects(ctx, userID, db.SavedListParams{
		Query:          q,
		QueryEmbedding: s.embed(ctx, q),
		Status:         status,
		Type:           models.ProspectType(c.QueryParam("type")),
		Limit:          queryInt(c, "limit", 20, 100),
		Offset:         offset,
	})
	if err != nil {
		s.Logger.Error("list saved prospects failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetSaved(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	sp, err := s.Store.GetSavedProspect(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, sp)
}

func (s *Server) handleUpdateSaved(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var upd db.ProspectUpdate
	if err := c.Bind(&upd); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	sp, err := s.Store.UpdateSavedProspect(c.Request().Context(), userID, c.Param("id"), upd)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, sp)
}

func (s *Server) handleRemoveSaved(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	if err := s.Store.RemoveSavedProspect(c.Request().Context(), userID, c.Param("id")); err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) handlePipelineCounts(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	counts, err := s.Store.PipelineCounts(c.Request().Context(), userID)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, counts)
}

// handleDraftEmail drafts outreach for a saved prospect, or for a catalog
// prospect the user has not saved yet.
func (s *Server) handleDraftEmail(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	id := c.Param("id")
	var p models.Prospect
	sp, err := s.Store.GetSavedProspect(ctx, userID, id)
	switch {
	case err == nil:
		p = sp.Prospect
	case errors.Is(err, db.ErrNotFound):
		if p, err = s.Catalog.Prospect(id); err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Prospect not found"})
		}
	default:
		return s.storeError(c, err)
	}

	return c.JSON(http.StatusOK, ai.DraftOutreachEmail(ctx, s.LLM, s.Logger, p, ai.DefaultSender))
}

// Intel notes

type noteRequest struct {
	Date    string `json:"date"`
	Content string `json:"content"`
}

func (s *Server) handleListNotes(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	notes, err := s.Store.ListIntelNotes(c.Request().Context(), userID)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, notes)
}

func (s *Server) handleAddNote(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var req noteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.Content) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "content is required"})
	}
	var date time.Time
	if req.Date != "" {
		date, err = dates.Parse(req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
	}
	note, err := s.Store.AddIntelNote(c.Request().Context(), userID, date, req.Content)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusCreated, note)
}

func (s *Server) handleDeleteNote(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid note ID"})
	}
	if err := s.Store.DeleteIntelNote(c.Request().Context(), userID, id); err != nil {
		return s.storeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// storeError maps store sentinels to status codes and hides everything else.
func (s *Server) storeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	case errors.Is(err, db.ErrInvalidStatus):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	s.Logger.Error("store call failed", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
}

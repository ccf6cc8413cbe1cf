package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/david/court-scout/internal/auth"
)

type seedRequest struct {
	Email string `json:"email"`
}

// handleSeed copies the catalog's leads, residential prospects and notes into
// one user's workspace.
func (s *Server) handleSeed(c echo.Context) error {
	ctx := c.Request().Context()

	var req seedRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.Email == "" {
		req.Email = c.QueryParam("email")
	}
	if strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email is required"})
	}

	userID, err := s.Accounts.UserIDByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return s.storeError(c, err)
	}

	res, err := s.Store.SeedWorkspace(ctx, userID, s.Catalog)
	if err != nil {
		return s.storeError(c, err)
	}
	s.Logger.Info("workspace seeded",
		zap.String("user_id", userID.String()),
		zap.Int("prospects", res.Prospects),
		zap.Int("notes", res.Notes),
		zap.Int("web_intel", res.WebIntel),
	)
	return c.JSON(http.StatusOK, map[string]any{
		"message":         "Seed complete",
		"catalog_version": s.Catalog.Version(),
		"result":          res,
	})
}

// handleIntelRefresh crawls competitor sites in the background. Only one
// refresh runs at a time; callers poll /admin/jobs/:id.
func (s *Server) handleIntelRefresh(c echo.Context) error {
	if s.Refresher == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Intel refresh is not configured"})
	}

	s.jobMu.Lock()
	if s.runningJob != nil && s.runningJob.Status == "running" {
		job := s.runningJob
		s.jobMu.Unlock()
		return c.JSON(http.StatusConflict, map[string]any{
			"error":  "A background job is already running",
			"job_id": job.ID,
		})
	}

	// The crawl outlives the request; it keeps the request's values and gets
	// its own deadline. Shutdown cancels it through job.Cancel.
	jobCtx, jobCancel := context.WithTimeout(
		context.WithoutCancel(c.Request().Context()), 15*time.Minute,
	)

	jobID := uuid.New().String()[:8]
	job := &backgroundJob{
		ID:        jobID,
		Kind:      "intel_refresh",
		Status:    "running",
		StartedAt: time.Now(),
		Cancel:    jobCancel,
	}
	s.runningJob = job
	s.jobMu.Unlock()

	go func() {
		defer jobCancel()
		res, err := s.Refresher.Run(jobCtx)

		s.jobMu.Lock()
		defer s.jobMu.Unlock()
		job.EndedAt = time.Now()
		if err != nil {
			job.Status = "failed"
			job.Error = err.Error()
			s.Logger.Error("intel refresh failed", zap.String("job_id", jobID), zap.Error(err))
			return
		}
		job.Status = "completed"
		job.Result = res
		s.Logger.Info("intel refresh completed",
			zap.String("job_id", jobID),
			zap.Int("articles", res.Articles),
			zap.Int("saved", res.Saved),
			zap.Int("failed_sources", len(res.Errors)),
		)
	}()

	return c.JSON(http.StatusAccepted, map[string]any{
		"message": "Intel refresh started",
		"job_id":  jobID,
		"poll":    fmt.Sprintf("/admin/jobs/%s", jobID),
	})
}

func (s *Server) handleJobStatus(c echo.Context) error {
	queried := c.Param("id")
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	job := s.runningJob
	if job == nil || job.ID != queried {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	resp := map[string]any{
		"id":         job.ID,
		"kind":       job.Kind,
		"status":     job.Status,
		"started_at": job.StartedAt,
	}
	if !job.EndedAt.IsZero() {
		resp["ended_at"] = job.EndedAt
		resp["duration"] = job.EndedAt.Sub(job.StartedAt).String()
	}
	if job.Result != nil {
		resp["result"] = job.Result
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleScanRuns(c echo.Context) error {
	runs, err := s.Store.ListScanRuns(c.Request().Context(), c.QueryParam("owner"), queryInt(c, "limit", 50, 500))
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, runs)
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/david/court-scout/internal/auth"
	"github.com/david/court-scout/internal/geo"
	"github.com/david/court-scout/internal/scan"
)

type scanRequest struct {
	Bounds geo.Bounds `json:"bounds"`
	// Polygon is a GeoJSON Feature or Polygon geometry, as drawn on the map.
	Polygon json.RawMessage `json:"polygon,omitempty"`
	Center  *geo.LatLng     `json:"center,omitempty"`
}

type userScan struct {
	sess     *scan.Session
	lastUsed time.Time
}

// session returns the user's scan session, creating it on first use. Each
// user has an independent session so one rep's sweep never cancels another's.
// Other users' sessions that sat idle longer than scanTTL are dropped.
func (s *Server) session(userID uuid.UUID) *scan.Session {
	s.scansMu.Lock()
	defer s.scansMu.Unlock()
	now := time.Now()
	s.pruneScansLocked(userID, now)

	us, ok := s.scans[userID]
	if !ok {
		us = &userScan{sess: scan.NewSession(s.scanOpts)}
		s.scans[userID] = us
	}
	us.lastUsed = now
	return us.sess
}

func (s *Server) pruneScansLocked(keep uuid.UUID, now time.Time) {
	for id, us := range s.scans {
		if id == keep || now.Sub(us.lastUsed) < s.scanTTL || !us.sess.Idle() {
			continue
		}
		delete(s.scans, id)
		s.Logger.Debug("dropped idle scan session", zap.String("user_id", id.String()))
	}
}

func (s *Server) handleStartScan(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req scanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	region := scan.Region{Bounds: req.Bounds}
	if len(req.Polygon) > 0 && string(req.Polygon) != "null" {
		ring, err := geo.ParsePolygon(req.Polygon)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		region.Polygon = ring
		if req.Bounds == (geo.Bounds{}) {
			if region.Bounds, err = ring.Bounds(); err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}
		}
	}

	snap, err := s.session(userID).Start(s.baseCtx, scan.Request{
		Region: region,
		Center: req.Center,
		Owner:  userID.String(),
	}, scan.NopSink{})
	switch {
	case errors.Is(err, scan.ErrInvalidRegion):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, scan.ErrScanInProgress):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		s.Logger.Error("start scan failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusAccepted, snap)
}

func (s *Server) handleCurrentScan(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	return c.JSON(http.StatusOK, s.session(userID).Snapshot())
}

func (s *Server) handleStopScan(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	sess := s.session(userID)
	sess.Stop()
	return c.JSON(http.StatusOK, sess.Snapshot())
}

// handleScanEvents streams the current sweep as server-sent events: one
// "reveal" per prospect in sweep order, then "complete" or "cancelled".
// A client that connects mid-sweep first receives everything revealed so far.
func (s *Server) handleScanEvents(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	sess := s.session(userID)

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	snap := sess.Snapshot()
	if snap.ScanID == "" {
		return writeEvent(w, "idle", snap)
	}
	scanID := snap.ScanID
	sent := 0

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	ctx := c.Request().Context()

	for {
		if snap.ScanID != scanID {
			return writeEvent(w, string(scan.EventCancelled), scan.Event{Kind: scan.EventCancelled, ScanID: scanID})
		}
		for i := sent; i < len(snap.Revealed); i++ {
			rv := snap.Revealed[i]
			if err := writeEvent(w, string(scan.EventReveal), scan.Event{Kind: scan.EventReveal, ScanID: scanID, Reveal: &rv}); err != nil {
				return nil
			}
		}
		sent = len(snap.Revealed)

		switch snap.State {
		case scan.StateComplete:
			sum := summaryOf(snap)
			return writeEvent(w, string(scan.EventComplete), scan.Event{Kind: scan.EventComplete, ScanID: scanID, Summary: &sum})
		case scan.StateIdle:
			return writeEvent(w, string(scan.EventCancelled), scan.Event{Kind: scan.EventCancelled, ScanID: scanID})
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.baseCtx.Done():
			return nil
		case <-ticker.C:
		}
		snap = sess.Snapshot()
	}
}

func summaryOf(snap scan.Snapshot) scan.Summary {
	sum := scan.Summary{
		ScanID:    snap.ScanID,
		Requested: snap.Requested,
		Planned:   snap.Planned,
		Revealed:  len(snap.Revealed),
		Dropped:   snap.Dropped,
	}
	if snap.StartedAt != nil {
		sum.StartedAt = *snap.StartedAt
	}
	if snap.CompletedAt != nil {
		sum.CompletedAt = *snap.CompletedAt
	}
	return sum
}

func writeEvent(w *echo.Response, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}

func (s *Server) handleMyScanRuns(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	runs, err := s.Store.ListScanRuns(c.Request().Context(), userID.String(), queryInt(c, "limit", 20, 100))
	if err != nil {
		s.Logger.Error("list scan runs failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, runs)
}

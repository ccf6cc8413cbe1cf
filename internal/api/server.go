package api

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/david/court-scout/internal/ai"
	"github.com/david/court-scout/internal/auth"
	"github.com/david/court-scout/internal/catalog"
	"github.com/david/court-scout/internal/db"
	"github.com/david/court-scout/internal/intel"
	"github.com/david/court-scout/internal/models"
	"github.com/david/court-scout/internal/scan"
)

// Store is the persistence the handlers need. *db.Store implements it.
type Store interface {
	scan.Recorder
	intel.WebIntelStore

	Ping(ctx context.Context) error
	SaveProspect(ctx context.Context, userID uuid.UUID, p models.Prospect, embedding []float32) (*models.SavedProspect, error)
	GetSavedProspect(ctx context.Context, userID uuid.UUID, prospectID string) (*models.SavedProspect, error)
	UpdateSavedProspect(ctx context.Context, userID uuid.UUID, prospectID string, upd db.ProspectUpdate) (*models.SavedProspect, error)
	RemoveSavedProspect(ctx context.Context, userID uuid.UUID, prospectID string) error
	ListSavedProspects(ctx context.Context, userID uuid.UUID, params db.SavedListParams) (*db.SavedListResult, error)
	PipelineCounts(ctx context.Context, userID uuid.UUID) (map[models.PipelineStatus]int, error)
	AddIntelNote(ctx context.Context, userID uuid.UUID, date time.Time, content string) (*models.IntelNote, error)
	ListIntelNotes(ctx context.Context, userID uuid.UUID) ([]models.IntelNote, error)
	DeleteIntelNote(ctx context.Context, userID uuid.UUID, id int64) error
	ListWebIntel(ctx context.Context, limit int) ([]models.WebIntel, error)
	ListScanRuns(ctx context.Context, owner string, limit int) ([]db.ScanRun, error)
	SeedWorkspace(ctx context.Context, userID uuid.UUID, cat catalog.Catalog) (*db.SeedResult, error)
}

var _ Store = (*db.Store)(nil)

// Accounts is the user account surface. *auth.Service implements it.
type Accounts interface {
	Signup(ctx context.Context, req auth.SignupRequest) (*auth.AuthResponse, error)
	Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error)
	UserIDByEmail(ctx context.Context, email string) (uuid.UUID, error)
}

// LLM is what the handlers use from the model server. Nil disables semantic
// search and generated emails.
type LLM interface {
	ai.Embedder
	ai.Completer
}

type Deps struct {
	Catalog     catalog.Catalog
	Store       Store
	Accounts    Accounts
	Tokens      *auth.Tokens
	LLM         LLM
	Refresher   *intel.Refresher
	Logger      *zap.Logger
	ScanOptions scan.Options
	AdminSecret string
	CORSOrigins []string
	// PollInterval is how often the scan event stream checks for reveals.
	PollInterval time.Duration
	// ScanSessionTTL is how long an unused, idle scan session is kept.
	// Defaults to 30 minutes.
	ScanSessionTTL time.Duration
}

type Server struct {
	Echo      *echo.Echo
	Catalog   catalog.Catalog
	Store     Store
	Accounts  Accounts
	Tokens    *auth.Tokens
	LLM       LLM
	Refresher *intel.Refresher
	Logger    *zap.Logger

	adminSecret  string
	scanOpts     scan.Options
	pollInterval time.Duration

	// Scans outlive the request that started them; baseCtx ends them on shutdown.
	baseCtx    context.Context
	baseCancel context.CancelFunc
	scansMu    sync.Mutex
	scans      map[uuid.UUID]*userScan
	scanTTL    time.Duration

	// Background job tracking
	jobMu      sync.Mutex
	runningJob *backgroundJob
}

type backgroundJob struct {
	ID        string             `json:"id"`
	Kind      string             `json:"kind"`
	Status    string             `json:"status"` // running, completed, failed
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at,omitempty"`
	Result    any                `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	Cancel    context.CancelFunc `json:"-"`
}

func NewServer(deps Deps) (*Server, error) {
	if deps.Catalog == nil {
		return nil, errors.New("api: catalog is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("api: token issuer is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	secret := strings.TrimSpace(deps.AdminSecret)
	if secret == "" {
		buf := make([]byte, 48)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate admin secret fallback: %w", err)
		}
		secret = base64.RawURLEncoding.EncodeToString(buf)
		logger.Warn("ADMIN_SECRET is not set; using ephemeral in-memory fallback secret")
	}

	poll := deps.PollInterval
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}

	ttl := deps.ScanSessionTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	scanOpts := deps.ScanOptions
	scanOpts.Logger = logger.Named("scan")
	if deps.Store != nil {
		scanOpts.Recorder = deps.Store
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.Error(v.Error),
			)
			return nil
		},
	}))

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Admin-Secret"},
	}))

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		Echo:         e,
		Catalog:      deps.Catalog,
		Store:        deps.Store,
		Accounts:     deps.Accounts,
		Tokens:       deps.Tokens,
		LLM:          deps.LLM,
		Refresher:    deps.Refresher,
		Logger:       logger,
		adminSecret:  secret,
		scanOpts:     scanOpts,
		pollInterval: poll,
		baseCtx:      baseCtx,
		baseCancel:   cancel,
		scans:        map[uuid.UUID]*userScan{},
		scanTTL:      ttl,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)

	// The dashboard's SEO widget predates the versioned API and is embedded
	// on other sites, so it answers any origin.
	seo := s.Echo.Group("/api", middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: []string{"*"}}))
	seo.GET("/seo-data", s.handleSEOData)

	api := s.Echo.Group("/api/v1")

	cat := api.Group("/catalog")
	cat.GET("/version", s.handleCatalogVersion)
	cat.GET("/map", s.handleMapDefaults)
	cat.GET("/courts", s.handleCourts)
	cat.GET("/leads", s.handleLeads)
	cat.GET("/prospects", s.handleProspects)
	cat.GET("/prospects/:id", s.handleProspect)
	cat.GET("/competitors", s.handleCompetitors)
	cat.GET("/competitors/status", s.handleCompetitorStatus)
	cat.GET("/competitors/:id/events", s.handleCompetitorEvents)
	cat.GET("/web-intel", s.handleWebIntel)
	cat.GET("/seo", s.handleSEO)
	cat.GET("/heatmap", s.handleHeatmap)
	cat.GET("/activity", s.handleActivity)

	// Auth Routes
	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)

	// Protected Routes
	protected := api.Group("")
	protected.Use(auth.Middleware(s.Tokens))

	protected.POST("/scans", s.handleStartScan)
	protected.GET("/scans/current", s.handleCurrentScan)
	protected.GET("/scans/current/events", s.handleScanEvents)
	protected.DELETE("/scans/current", s.handleStopScan)
	protected.GET("/scans/runs", s.handleMyScanRuns)

	protected.GET("/prospects/saved", s.handleListSaved)
	protected.POST("/prospects/saved", s.handleSaveProspect)
	protected.GET("/prospects/saved/counts", s.handlePipelineCounts)
	protected.GET("/prospects/saved/:id", s.handleGetSaved)
	protected.PATCH("/prospects/saved/:id", s.handleUpdateSaved)
	protected.DELETE("/prospects/saved/:id", s.handleRemoveSaved)
	protected.POST("/prospects/saved/:id/email", s.handleDraftEmail)

	protected.GET("/intel/notes", s.handleListNotes)
	protected.POST("/intel/notes", s.handleAddNote)
	protected.DELETE("/intel/notes/:id", s.handleDeleteNote)

	// Admin Routes
	admin := s.Echo.Group("/admin")
	admin.Use(s.adminMiddleware)
	admin.POST("/seed", s.handleSeed)
	admin.POST("/intel/refresh", s.handleIntelRefresh)
	admin.GET("/jobs/:id", s.handleJobStatus)
	admin.GET("/scan-runs", s.handleScanRuns)
}

func (s *Server) handleHealth(c echo.Context) error {
	if s.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.Store.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": "database unreachable"})
		}
	}
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleSignup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.Accounts.Signup(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, auth.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		s.Logger.Error("signup failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.Accounts.Login(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCreds) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		s.Logger.Error("login failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Check X-Admin-Secret header or Bearer token
		if c.Request().Header.Get("X-Admin-Secret") == s.adminSecret {
			return next(c)
		}
		authHeader := c.Request().Header.Get("Authorization")
		if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") && authHeader[7:] == s.adminSecret {
			return next(c)
		}
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized admin access"})
	}
}

// queryInt reads a positive integer query parameter, falling back to def and
// capping at max.
func queryInt(c echo.Context, name string, def, max int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

// Shutdown cancels running scans and background jobs, waits for the scan run
// records to be written, then drains the HTTP server. Callers close the store
// only after Shutdown returns.
func (s *Server) Shutdown(ctx context.Context) error {
	s.scansMu.Lock()
	sessions := make([]*scan.Session, 0, len(s.scans))
	for _, us := range s.scans {
		sessions = append(sessions, us.sess)
	}
	s.scansMu.Unlock()

	for _, sess := range sessions {
		sess.Stop()
	}
	s.baseCancel()
	s.jobMu.Lock()
	if s.runningJob != nil && s.runningJob.Cancel != nil {
		s.runningJob.Cancel()
	}
	s.jobMu.Unlock()

	for _, sess := range sessions {
		err := sess.Wait(ctx)
		if err == nil {
			err = sess.Flush(ctx)
		}
		if err != nil {
			s.Logger.Warn("scan run records not flushed before shutdown", zap.Error(err))
			break
		}
	}
	return s.Echo.Shutdown(ctx)
}

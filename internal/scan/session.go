package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/david/court-scout/internal/geo"
)

// State of a scan session.
type State string

const (
	StateIdle     State = "idle"
	StateScanning State = "scanning"
	StateComplete State = "complete"
)

// OverlapPolicy decides what Start does while a sweep is still running.
type OverlapPolicy string

const (
	// OverlapRestart cancels the running sweep and starts the new one.
	OverlapRestart OverlapPolicy = "restart"
	// OverlapReject refuses the new scan with ErrScanInProgress.
	OverlapReject OverlapPolicy = "reject"
)

var ErrScanInProgress = errors.New("scan already in progress")

// Request describes one scan invocation. Center is the visual center the
// sweep rotates around; it defaults to the center of the bounds.
type Request struct {
	Region Region
	Center *geo.LatLng
	Owner  string
}

// Summary is handed to the sink when a sweep completes.
type Summary struct {
	ScanID      string    `json:"scan_id"`
	Requested   int       `json:"requested"`
	Planned     int       `json:"planned"`
	Revealed    int       `json:"revealed"`
	Dropped     int       `json:"dropped"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Snapshot is a point-in-time copy of the session.
type Snapshot struct {
	ScanID      string     `json:"scan_id,omitempty"`
	State       State      `json:"state"`
	Owner       string     `json:"owner,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Requested   int        `json:"requested"`
	Planned     int        `json:"planned"`
	Dropped     int        `json:"dropped"`
	Revealed    []Reveal   `json:"revealed"`
}

// RunRecord is what a Recorder persists about each sweep.
type RunRecord struct {
	ID         string
	Owner      string
	Status     string // scanning, complete, cancelled
	Bounds     geo.Bounds
	HasPolygon bool
	Requested  int
	Dropped    int
	Revealed   int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Recorder stores scan runs. Errors are logged and never fail a scan.
type Recorder interface {
	ScanStarted(ctx context.Context, rec RunRecord) error
	ScanFinished(ctx context.Context, rec RunRecord) error
}

type Options struct {
	Duration time.Duration
	Grace    time.Duration
	Overlap  OverlapPolicy
	Locality string
	Logger   *zap.Logger
	Recorder Recorder
	// Generator overrides the random generator, mostly for seeded tests.
	Generator *Generator
}

// Session runs at most one sweep at a time. Every sweep owns a cancellable
// context; the sink is only invoked while holding the session lock and after
// checking that context, so a cancelled sweep never emits again.
//
// Sinks must not call back into the Session.
type Session struct {
	mu      sync.Mutex
	opts    Options
	gen     *Generator
	log     *zap.Logger
	state   State
	current *run
	// writes and pending count Recorder calls still in flight.
	writes  sync.WaitGroup
	pending atomic.Int32
}

type run struct {
	id          string
	owner       string
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	sink        Sink
	region      Region
	result      Result
	plan        []Reveal
	revealed    []Reveal
	startedAt   time.Time
	completedAt time.Time
	finished    bool
}

func NewSession(opts Options) *Session {
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Grace < 0 {
		opts.Grace = 0
	}
	if opts.Overlap == "" {
		opts.Overlap = OverlapRestart
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	gen := opts.Generator
	if gen == nil {
		gen = NewGenerator(nil, opts.Locality)
	}
	return &Session{
		opts:  opts,
		gen:   gen,
		log:   opts.Logger,
		state: StateIdle,
	}
}

// Start validates the request, generates the candidates synchronously and
// schedules the sweep. Validation and overlap errors are returned before any
// timer exists. The sweep lives until ctx is cancelled, Stop is called, or it
// completes.
func (s *Session) Start(ctx context.Context, req Request, sink Sink) (Snapshot, error) {
	if sink == nil {
		sink = NopSink{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := req.Region.Validate(); err != nil {
		return Snapshot{}, err
	}
	if s.state == StateScanning && s.opts.Overlap == OverlapReject {
		return Snapshot{}, ErrScanInProgress
	}

	result, err := s.gen.Generate(req.Region)
	if err != nil {
		return Snapshot{}, err
	}

	if s.state == StateScanning && s.current != nil {
		s.log.Info("restarting scan", zap.String("cancelled_scan", s.current.id))
		s.cancelLocked(s.current)
	}

	center := req.Region.Bounds.Center()
	if req.Center != nil {
		center = *req.Center
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		id:        uuid.New().String(),
		owner:     req.Owner,
		ctx:       runCtx,
		cancel:    cancel,
		done:      make(chan struct{}),
		sink:      sink,
		region:    req.Region,
		result:    result,
		plan:      Plan(result.Prospects, center, s.opts.Duration),
		startedAt: time.Now(),
	}
	s.current = r
	s.state = StateScanning

	s.log.Info("scan started",
		zap.String("scan_id", r.id),
		zap.String("owner", r.owner),
		zap.Int("requested", result.Requested),
		zap.Int("dropped", result.Dropped),
		zap.Bool("polygon", len(req.Region.Polygon) > 0),
		zap.Float64("span_m", req.Region.Bounds.DiagonalMeters()),
	)
	s.record(r, "scanning", false)

	go s.sweep(r)
	return s.snapshotLocked(), nil
}

// Stop cancels the running sweep, if any, and returns the session to idle.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateScanning || s.current == nil {
		return
	}
	s.log.Info("scan stopped", zap.String("scan_id", s.current.id))
	s.cancelLocked(s.current)
	s.state = StateIdle
}

// Wait blocks until the current sweep finishes or is cancelled.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush blocks until every Recorder write issued so far has returned. Wait
// followed by Flush guarantees the sweep's final run record was written.
func (s *Session) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.writes.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Idle reports whether the session has no running sweep and no Recorder
// write in flight, i.e. it can be dropped without losing anything.
func (s *Session) Idle() bool {
	return s.State() != StateScanning && s.pending.Load() == 0
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state, Revealed: []Reveal{}}
	r := s.current
	if r == nil {
		return snap
	}
	started := r.startedAt
	snap.ScanID = r.id
	snap.Owner = r.owner
	snap.StartedAt = &started
	snap.Requested = r.result.Requested
	snap.Planned = len(r.plan)
	snap.Dropped = r.result.Dropped
	snap.Revealed = append(snap.Revealed, r.revealed...)
	if !r.completedAt.IsZero() {
		completed := r.completedAt
		snap.CompletedAt = &completed
	}
	return snap
}

func (s *Session) cancelLocked(r *run) {
	if r.finished {
		return
	}
	r.finished = true
	r.cancel()
	s.record(r, "cancelled", true)
	r.sink.Cancelled(r.id)
}

func (s *Session) sweep(r *run) {
	defer close(r.done)
	defer r.cancel()

	for _, rv := range r.plan {
		if !waitUntil(r.ctx, r.startedAt.Add(rv.Delay)) {
			s.abandon(r)
			return
		}
		if !s.emit(r, func() {
			r.revealed = append(r.revealed, rv)
			r.sink.Reveal(r.id, rv)
		}) {
			return
		}
	}

	if !waitUntil(r.ctx, r.startedAt.Add(s.opts.Duration+s.opts.Grace)) {
		s.abandon(r)
		return
	}
	s.emit(r, func() {
		r.finished = true
		r.completedAt = time.Now()
		s.state = StateComplete
		s.record(r, "complete", true)
		r.sink.Complete(r.id, r.summary())
		s.log.Info("scan complete",
			zap.String("scan_id", r.id),
			zap.Int("revealed", len(r.revealed)),
			zap.Duration("elapsed", r.completedAt.Sub(r.startedAt)),
		)
	})
}

// abandon handles a sweep whose context ended without Stop or a restart,
// e.g. because the caller's context was cancelled.
func (s *Session) abandon(r *run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == r && s.state == StateScanning {
		s.state = StateIdle
	}
	s.cancelLocked(r)
}

// emit runs fn under the session lock unless the run was cancelled.
func (s *Session) emit(r *run, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ctx.Err() != nil || s.current != r {
		return false
	}
	fn()
	return true
}

func (s *Session) record(r *run, status string, finished bool) {
	if s.opts.Recorder == nil {
		return
	}
	rec := RunRecord{
		ID:         r.id,
		Owner:      r.owner,
		Status:     status,
		Bounds:     r.region.Bounds,
		HasPolygon: len(r.region.Polygon) > 0,
		Requested:  r.result.Requested,
		Dropped:    r.result.Dropped,
		Revealed:   len(r.revealed),
		StartedAt:  r.startedAt,
	}
	if finished {
		now := time.Now()
		rec.FinishedAt = &now
	}

	// Recorder calls run off the session lock.
	s.writes.Add(1)
	s.pending.Add(1)
	go func() {
		defer s.writes.Done()
		defer s.pending.Add(-1)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var err error
		if finished {
			err = s.opts.Recorder.ScanFinished(ctx, rec)
		} else {
			err = s.opts.Recorder.ScanStarted(ctx, rec)
		}
		if err != nil {
			s.log.Warn("failed to record scan run", zap.String("scan_id", rec.ID), zap.Error(err))
		}
	}()
}

func (r *run) summary() Summary {
	return Summary{
		ScanID:      r.id,
		Requested:   r.result.Requested,
		Planned:     len(r.plan),
		Revealed:    len(r.revealed),
		Dropped:     r.result.Dropped,
		StartedAt:   r.startedAt,
		CompletedAt: r.completedAt,
	}
}

func waitUntil(ctx context.Context, deadline time.Time) bool {
	d := time.Until(deadline)
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s Snapshot) String() string {
	return fmt.Sprintf("scan %s: %s (%d/%d revealed, %d dropped)", s.ScanID, s.State, len(s.Revealed), s.Planned, s.Dropped)
}

package scan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/david/court-scout/internal/geo"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingSink struct {
	mu          sync.Mutex
	reveals     []Reveal
	revealAt    []time.Time
	summary     *Summary
	completedAt time.Time
	cancelled   []string
}

func (r *recordingSink) Reveal(_ string, rv Reveal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reveals = append(r.reveals, rv)
	r.revealAt = append(r.revealAt, time.Now())
}

func (r *recordingSink) Complete(_ string, s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary = &s
	r.completedAt = time.Now()
}

func (r *recordingSink) Cancelled(scanID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, scanID)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reveals)
}

type memRecorder struct {
	mu       sync.Mutex
	started  []RunRecord
	finished []RunRecord
}

func (m *memRecorder) ScanStarted(_ context.Context, rec RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, rec)
	return nil
}

func (m *memRecorder) ScanFinished(_ context.Context, rec RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, rec)
	return nil
}

func (m *memRecorder) statuses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, r := range m.finished {
		out = append(out, r.Status)
	}
	return out
}

const (
	testDuration = 150 * time.Millisecond
	testGrace    = 30 * time.Millisecond
	slack        = 150 * time.Millisecond
)

func newTestSession(policy OverlapPolicy, rec Recorder) *Session {
	return NewSession(Options{
		Duration:  testDuration,
		Grace:     testGrace,
		Overlap:   policy,
		Recorder:  rec,
		Generator: NewSeededGenerator(11, ""),
	})
}

func TestSession_SweepRevealsInBearingOrder(t *testing.T) {
	rec := &memRecorder{}
	s := newTestSession(OverlapRestart, rec)
	sink := &recordingSink{}
	assert.Equal(t, StateIdle, s.State())

	snap, err := s.Start(context.Background(), Request{Region: Region{Bounds: phoenix}}, sink)
	require.NoError(t, err)
	require.NotNil(t, snap.StartedAt)
	assert.Equal(t, StateScanning, snap.State)
	assert.Empty(t, snap.Revealed)
	start := *snap.StartedAt

	require.NoError(t, s.Wait(context.Background()))
	assert.Equal(t, StateComplete, s.State())

	sink.mu.Lock()
	defer sink.mu.Unlock()

	require.Len(t, sink.reveals, snap.Planned)
	for i := range sink.reveals {
		if i > 0 {
			assert.GreaterOrEqual(t, sink.reveals[i].Bearing, sink.reveals[i-1].Bearing)
		}
		assert.LessOrEqual(t, sink.revealAt[i].Sub(start), testDuration+slack)
	}

	require.NotNil(t, sink.summary)
	elapsed := sink.completedAt.Sub(start)
	assert.GreaterOrEqual(t, elapsed, testDuration)
	assert.LessOrEqual(t, elapsed, testDuration+testGrace+slack)
	assert.Equal(t, snap.Planned, sink.summary.Revealed)
	assert.Empty(t, sink.cancelled)

	final := s.Snapshot()
	assert.Len(t, final.Revealed, snap.Planned)
	assert.NotNil(t, final.CompletedAt)

	assert.Eventually(t, func() bool {
		return len(rec.statuses()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"complete"}, rec.statuses())
}

func TestSession_InvalidRegionSchedulesNothing(t *testing.T) {
	s := newTestSession(OverlapRestart, nil)
	sink := &recordingSink{}
	p := geo.LatLng{Lat: 33.5, Lng: -112}

	_, err := s.Start(context.Background(), Request{Region: Region{Bounds: geo.Bounds{SouthWest: p, NorthEast: p}}}, sink)
	require.ErrorIs(t, err, ErrInvalidRegion)
	assert.Equal(t, StateIdle, s.State())

	time.Sleep(testDuration + testGrace)
	assert.Zero(t, sink.count())
	assert.Nil(t, sink.summary)
}

func TestSession_RejectWhileScanning(t *testing.T) {
	s := newTestSession(OverlapReject, nil)

	first, err := s.Start(context.Background(), Request{Region: Region{Bounds: phoenix}}, nil)
	require.NoError(t, err)

	_, err = s.Start(context.Background(), Request{Region: Region{Bounds: phoenix}}, nil)
	assert.ErrorIs(t, err, ErrScanInProgress)
	assert.Equal(t, first.ScanID, s.Snapshot().ScanID)

	require.NoError(t, s.Wait(context.Background()))

	_, err = s.Start(context.Background(), Request{Region: Region{Bounds: phoenix}}, nil)
	require.NoError(t, err, "a completed session accepts a new scan")
	require.NoError(t, s.Wait(context.Background()))
}

func TestSession_RestartCancelsPreviousSweep(t *testing.T) {
	rec := &memRecorder{}
	s := NewSession(Options{
		Duration:  time.Second,
		Grace:     testGrace,
		Recorder:  rec,
		Generator: NewSeededGenerator(3, ""),
	})
	oldSink := &recordingSink{}
	first, err := s.Start(context.Background(), Request{Region: Region{Bounds: phoenix}}, oldSink)
	require.NoError(t, err)

	newSink := &recordingSink{}
	second, err := s.Start(context.Background(), Request{Region: Region{Bounds: phoenix}}, newSink)
	require.NoError(t, err)
	assert.NotEqual(t, first.ScanID, second.ScanID)

	oldSink.mu.Lock()
	revealedBeforeCancel := len(oldSink.reveals)
	assert.Equal(t, []string{first.ScanID}, oldSink.cancelled)
	oldSink.mu.Unlock()

	require.NoError(t, s.Wait(context.Background()))

	assert.Equal(t, revealedBeforeCancel, oldSink.count(), "cancelled sweep must not emit")
	assert.Nil(t, oldSink.summary)
	assert.NotNil(t, newSink.summary)
	assert.Equal(t, second.ScanID, newSink.summary.ScanID)

	assert.Eventually(t, func() bool {
		return len(rec.statuses()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"cancelled", "complete"}, rec.statuses())
}

func TestSession_StopReturnsToIdle(t *testing.T) {
	s := NewSession(Options{Duration: time.Second, Generator: NewSeededGenerator(5, "")})
	sink := &recordingSink{}
	_, err := s.Start(context.Background(), Request{Region: Region{Bounds: phoenix}}, sink)
	require.NoError(t, err)

	s.Stop()
	assert.Equal(t, StateIdle, s.State())
	require.NoError(t, s.Wait(context.Background()))

	n := sink.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, sink.count())
	assert.Len(t, sink.cancelled, 1)
}

func TestSession_ParentContextCancellation(t *testing.T) {
	s := NewSession(Options{Duration: time.Second, Generator: NewSeededGenerator(9, "")})
	ctx, cancel := context.WithCancel(context.Background())
	sink := &recordingSink{}

	_, err := s.Start(ctx, Request{Region: Region{Bounds: phoenix}}, sink)
	require.NoError(t, err)
	cancel()

	require.NoError(t, s.Wait(context.Background()))
	assert.Equal(t, StateIdle, s.State())
	assert.Nil(t, sink.summary)
	assert.Len(t, sink.cancelled, 1)
}

func TestSession_CustomCenterRotatesSweep(t *testing.T) {
	s := newTestSession(OverlapRestart, nil)
	center := phoenix.SouthWest
	snap, err := s.Start(context.Background(), Request{Region: Region{Bounds: phoenix}, Center: &center}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Wait(context.Background()))

	// Everything lies up and to the right of the south-west corner.
	for _, r := range s.Snapshot().Revealed {
		assert.GreaterOrEqual(t, r.Bearing, 0.0)
		assert.LessOrEqual(t, r.Bearing, 90.0)
	}
	assert.Equal(t, snap.ScanID, s.Snapshot().ScanID)
}

func TestChannelSink(t *testing.T) {
	s := newTestSession(OverlapRestart, nil)
	sink := NewChannelSink()
	snap, err := s.Start(context.Background(), Request{Region: Region{Bounds: phoenix}}, sink)
	require.NoError(t, err)

	var reveals int
	var last EventKind
	for ev := range sink.Events() {
		assert.Equal(t, snap.ScanID, ev.ScanID)
		if ev.Kind == EventReveal {
			reveals++
		}
		last = ev.Kind
	}
	assert.Equal(t, snap.Planned, reveals)
	assert.Equal(t, EventComplete, last)
	require.NoError(t, s.Wait(context.Background()))
}

type slowRecorder struct {
	memRecorder
	delay time.Duration
}

func (s *slowRecorder) ScanFinished(ctx context.Context, rec RunRecord) error {
	time.Sleep(s.delay)
	return s.memRecorder.ScanFinished(ctx, rec)
}

func TestSession_FlushWaitsForSlowRecorder(t *testing.T) {
	rec := &slowRecorder{delay: 300 * time.Millisecond}
	s := newTestSession(OverlapRestart, rec)

	_, err := s.Start(context.Background(), Request{Region: Region{Bounds: phoenix}}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Wait(context.Background()))
	require.Equal(t, StateComplete, s.State())

	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, []string{"complete"}, rec.statuses())
	rec.mu.Lock()
	assert.Len(t, rec.started, 1)
	rec.mu.Unlock()
}

func TestSession_FlushAfterStop(t *testing.T) {
	rec := &slowRecorder{delay: 100 * time.Millisecond}
	s := NewSession(Options{
		Duration:  time.Second,
		Recorder:  rec,
		Generator: NewSeededGenerator(5, ""),
	})
	_, err := s.Start(context.Background(), Request{Region: Region{Bounds: phoenix}}, nil)
	require.NoError(t, err)
	s.Stop()

	require.NoError(t, s.Wait(context.Background()))
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, []string{"cancelled"}, rec.statuses())
}

func TestSession_FlushHonoursContext(t *testing.T) {
	rec := &slowRecorder{delay: 200 * time.Millisecond}
	s := newTestSession(OverlapRestart, rec)
	_, err := s.Start(context.Background(), Request{Region: Region{Bounds: phoenix}}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Flush(ctx), context.DeadlineExceeded)

	require.NoError(t, s.Flush(context.Background()))
}

func TestSession_RejectPolicyReportsInvalidRegionFirst(t *testing.T) {
	s := newTestSession(OverlapReject, nil)
	first, err := s.Start(context.Background(), Request{Region: Region{Bounds: phoenix}}, nil)
	require.NoError(t, err)

	p := geo.LatLng{Lat: 33.5, Lng: -112}
	_, err = s.Start(context.Background(), Request{Region: Region{Bounds: geo.Bounds{SouthWest: p, NorthEast: p}}}, nil)
	assert.ErrorIs(t, err, ErrInvalidRegion)
	assert.NotErrorIs(t, err, ErrScanInProgress)
	assert.Equal(t, first.ScanID, s.Snapshot().ScanID)
	assert.Equal(t, StateScanning, s.State())

	require.NoError(t, s.Wait(context.Background()))
}

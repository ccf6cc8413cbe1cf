package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/david/court-scout/internal/geo"
	"github.com/david/court-scout/internal/scan"
)

var _ scan.Recorder = (*Store)(nil)

// ScanRun is a persisted sweep.
type ScanRun struct {
	ID         string     `json:"id"`
	Owner      string     `json:"owner"`
	Status     string     `json:"status"`
	Bounds     geo.Bounds `json:"bounds"`
	HasPolygon bool       `json:"has_polygon"`
	Requested  int        `json:"requested"`
	Dropped    int        `json:"dropped"`
	Revealed   int        `json:"revealed"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

const upsertRunSQL = `
	INSERT INTO scan_runs (id, owner, status, sw_lat, sw_lng, ne_lat, ne_lng, has_polygon, requested, dropped, revealed, started_at, finished_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

// ScanStarted records a new run. The recorder calls for one run may arrive in
// either order, so a start never overwrites a row that already exists.
func (s *Store) ScanStarted(ctx context.Context, rec scan.RunRecord) error {
	args, err := runArgs(rec)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, upsertRunSQL+" ON CONFLICT (id) DO NOTHING", args...)
	if err != nil {
		return fmt.Errorf("record scan start: %w", err)
	}
	return nil
}

func (s *Store) ScanFinished(ctx context.Context, rec scan.RunRecord) error {
	args, err := runArgs(rec)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, upsertRunSQL+`
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			revealed = EXCLUDED.revealed,
			finished_at = EXCLUDED.finished_at
	`, args...)
	if err != nil {
		return fmt.Errorf("record scan finish: %w", err)
	}
	return nil
}

func runArgs(rec scan.RunRecord) ([]any, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("scan run id %q: %w", rec.ID, err)
	}
	b := rec.Bounds
	return []any{
		id, rec.Owner, rec.Status,
		b.SouthWest.Lat, b.SouthWest.Lng, b.NorthEast.Lat, b.NorthEast.Lng,
		rec.HasPolygon, rec.Requested, rec.Dropped, rec.Revealed,
		rec.StartedAt, rec.FinishedAt,
	}, nil
}

// ListScanRuns returns the newest runs first. An empty owner lists everyone's.
func (s *Store) ListScanRuns(ctx context.Context, owner string, limit int) ([]ScanRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, owner, status, sw_lat, sw_lng, ne_lat, ne_lng, has_polygon,
		       requested, dropped, revealed, started_at, finished_at
		FROM scan_runs
		WHERE ($1 = '' OR owner = $1)
		ORDER BY started_at DESC
		LIMIT $2
	`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("list scan runs: %w", err)
	}
	defer rows.Close()

	runs := []ScanRun{}
	for rows.Next() {
		var r ScanRun
		err := rows.Scan(
			&r.ID, &r.Owner, &r.Status,
			&r.Bounds.SouthWest.Lat, &r.Bounds.SouthWest.Lng, &r.Bounds.NorthEast.Lat, &r.Bounds.NorthEast.Lng,
			&r.HasPolygon, &r.Requested, &r.Dropped, &r.Revealed, &r.StartedAt, &r.FinishedAt,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

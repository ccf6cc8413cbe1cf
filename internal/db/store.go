package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/david/court-scout/internal/models"
)

var ErrInvalidStatus = errors.New("invalid pipeline status")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Saved prospects

type SavedListParams struct {
	Query          string
	QueryEmbedding []float32
	Status         models.PipelineStatus
	Type           models.ProspectType
	Limit          int
	Offset         int
}

type SavedListResult struct {
	Prospects []models.SavedProspect `json:"prospects"`
	Total     int                    `json:"total"`
	Limit     int                    `json:"limit"`
	Offset    int                    `json:"offset"`
}

// ProspectUpdate carries the fields a rep can edit; nil means unchanged.
type ProspectUpdate struct {
	Status *models.PipelineStatus `json:"status"`
	Notes  *string                `json:"notes"`
}

const savedCols = `data, status, notes, saved_at, updated_at`

func scanSavedProspect(scan func(dest ...any) error) (models.SavedProspect, error) {
	var sp models.SavedProspect
	var raw []byte
	if err := scan(&raw, &sp.Status, &sp.Notes, &sp.SavedAt, &sp.UpdatedAt); err != nil {
		return sp, err
	}
	if err := json.Unmarshal(raw, &sp.Prospect); err != nil {
		return sp, fmt.Errorf("decode prospect data: %w", err)
	}
	return sp, nil
}

// SaveProspect adds a prospect to the user's pipeline with status New. Saving
// the same prospect twice keeps the existing pipeline state.
func (s *Store) SaveProspect(ctx context.Context, userID uuid.UUID, p models.Prospect, embedding []float32) (*models.SavedProspect, error) {
	if p.ID == "" {
		return nil, errors.New("prospect id is required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode prospect: %w", err)
	}

	var vec *pgvector.Vector
	if len(embedding) > 0 {
		v := pgvector.NewVector(embedding)
		vec = &v
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO saved_prospects (user_id, prospect_id, prospect_type, name, address, lat, lng, data, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, prospect_id) DO NOTHING
	`, userID, p.ID, string(p.Type), p.Name, p.Address, p.Coords.Lat, p.Coords.Lng, data, vec)
	if err != nil {
		return nil, fmt.Errorf("insert saved prospect: %w", err)
	}
	return s.GetSavedProspect(ctx, userID, p.ID)
}

func (s *Store) GetSavedProspect(ctx context.Context, userID uuid.UUID, prospectID string) (*models.SavedProspect, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+savedCols+`
		FROM saved_prospects
		WHERE user_id = $1 AND prospect_id = $2
	`, userID, prospectID)
	sp, err := scanSavedProspect(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("saved prospect %s: %w", prospectID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

func (s *Store) UpdateSavedProspect(ctx context.Context, userID uuid.UUID, prospectID string, upd ProspectUpdate) (*models.SavedProspect, error) {
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *upd.Status)
	}
	var status, notes *string
	if upd.Status != nil {
		v := string(*upd.Status)
		status = &v
	}
	notes = upd.Notes

	tag, err := s.pool.Exec(ctx, `
		UPDATE saved_prospects
		SET status = COALESCE($3, status),
		    notes = COALESCE($4, notes),
		    updated_at = NOW()
		WHERE user_id = $1 AND prospect_id = $2
	`, userID, prospectID, status, notes)
	if err != nil {
		return nil, fmt.Errorf("update saved prospect: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("saved prospect %s: %w", prospectID, ErrNotFound)
	}
	return s.GetSavedProspect(ctx, userID, prospectID)
}

func (s *Store) RemoveSavedProspect(ctx context.Context, userID uuid.UUID, prospectID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM saved_prospects
		WHERE user_id = $1 AND prospect_id = $2
	`, userID, prospectID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("saved prospect %s: %w", prospectID, ErrNotFound)
	}
	return nil
}

func (s *Store) SetProspectEmbedding(ctx context.Context, userID uuid.UUID, prospectID string, embedding []float32) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE saved_prospects SET embedding = $3
		WHERE user_id = $1 AND prospect_id = $2
	`, userID, prospectID, pgvector.NewVector(embedding))
	return err
}

// buildSavedListQuery returns the count and select statements plus their
// shared args. The select appends LIMIT/OFFSET args after the filter args.
func buildSavedListQuery(userID uuid.UUID, params SavedListParams) (countSQL, selectSQL string, countArgs, selectArgs []any) {
	where := "WHERE user_id = $1"
	args := []any{userID}
	argIdx := 2

	if params.Query != "" {
		where += fmt.Sprintf(" AND (name ILIKE '%%' || $%d || '%%' OR address ILIKE '%%' || $%d || '%%' OR notes ILIKE '%%' || $%d || '%%')", argIdx, argIdx, argIdx)
		args = append(args, params.Query)
		argIdx++
	}
	if params.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(params.Status))
		argIdx++
	}
	if params.Type != "" {
		where += fmt.Sprintf(" AND prospect_type = $%d", argIdx)
		args = append(args, string(params.Type))
		argIdx++
	}

	countSQL = "SELECT COUNT(*) FROM saved_prospects " + where
	countArgs = append([]any(nil), args...)

	selectSQL = fmt.Sprintf("SELECT %s FROM saved_prospects %s", savedCols, where)
	if len(params.QueryEmbedding) > 0 {
		selectSQL += fmt.Sprintf(`
			ORDER BY
				CASE WHEN embedding IS NULL THEN 1 ELSE 0 END ASC,
				COALESCE(1 - (embedding <=> $%d), -1) DESC,
				updated_at DESC`, argIdx)
		args = append(args, pgvector.NewVector(params.QueryEmbedding))
		argIdx++
	} else {
		selectSQL += " ORDER BY updated_at DESC, saved_at DESC"
	}

	selectSQL += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)
	return countSQL, selectSQL, countArgs, args
}

func (s *Store) ListSavedProspects(ctx context.Context, userID uuid.UUID, params SavedListParams) (*SavedListResult, error) {
	if params.Limit <= 0 || params.Limit > 200 {
		params.Limit = 50
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	countSQL, selectSQL, countArgs, selectArgs := buildSavedListQuery(userID, params)

	var total int
	if err := s.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}

	rows, err := s.pool.Query(ctx, selectSQL, selectArgs...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	prospects := []models.SavedProspect{}
	for rows.Next() {
		sp, err := scanSavedProspect(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		prospects = append(prospects, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return &SavedListResult{
		Prospects: prospects,
		Total:     total,
		Limit:     params.Limit,
		Offset:    params.Offset,
	}, nil
}

// PipelineCounts groups a user's saved prospects by status.
func (s *Store) PipelineCounts(ctx context.Context, userID uuid.UUID) (map[models.PipelineStatus]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM saved_prospects WHERE user_id = $1 GROUP BY status
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[models.PipelineStatus]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.PipelineStatus(status)] = n
	}
	return counts, rows.Err()
}

// Intel notes

func (s *Store) AddIntelNote(ctx context.Context, userID uuid.UUID, date time.Time, content string) (*models.IntelNote, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("note content is required")
	}
	if date.IsZero() {
		date = time.Now().UTC()
	}
	var n models.IntelNote
	err := s.pool.QueryRow(ctx, `
		INSERT INTO intel_notes (user_id, note_date, content)
		VALUES ($1, $2, $3)
		RETURNING id, note_date, content, created_at
	`, userID, date, content).Scan(&n.ID, &n.Date, &n.Content, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert intel note: %w", err)
	}
	return &n, nil
}

func (s *Store) ListIntelNotes(ctx context.Context, userID uuid.UUID) ([]models.IntelNote, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, note_date, content, created_at
		FROM intel_notes
		WHERE user_id = $1
		ORDER BY note_date DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []models.IntelNote{}
	for rows.Next() {
		var n models.IntelNote
		if err := rows.Scan(&n.ID, &n.Date, &n.Content, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (s *Store) DeleteIntelNote(ctx context.Context, userID uuid.UUID, id int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM intel_notes WHERE user_id = $1 AND id = $2", userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("intel note %d: %w", id, ErrNotFound)
	}
	return nil
}

// Web intel

// UpsertWebIntel stores crawled articles keyed by id and returns how many rows
// were written.
func (s *Store) UpsertWebIntel(ctx context.Context, items []models.WebIntel) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, it := range items {
		extracted, err := json.Marshal(it.ExtractedData)
		if err != nil {
			return 0, fmt.Errorf("encode extracted data for %s: %w", it.ID, err)
		}
		if it.ExtractedData == nil {
			extracted = []byte("{}")
		}
		batch.Queue(`
			INSERT INTO web_intel (id, competitor_name, published_at, headline, ai_summary, source_url, extracted_data, fetched_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (id) DO UPDATE SET
				competitor_name = EXCLUDED.competitor_name,
				published_at = EXCLUDED.published_at,
				headline = EXCLUDED.headline,
				ai_summary = EXCLUDED.ai_summary,
				extracted_data = EXCLUDED.extracted_data,
				fetched_at = NOW()
		`, it.ID, it.CompetitorName, it.Date, it.Headline, it.AISummary, it.SourceURL, extracted)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	written := 0
	for range items {
		tag, err := br.Exec()
		if err != nil {
			return written, fmt.Errorf("upsert web intel: %w", err)
		}
		written += int(tag.RowsAffected())
	}
	return written, nil
}

func (s *Store) ListWebIntel(ctx context.Context, limit int) ([]models.WebIntel, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, competitor_name, published_at, headline, ai_summary, source_url, extracted_data
		FROM web_intel
		ORDER BY published_at DESC NULLS LAST, fetched_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.WebIntel{}
	for rows.Next() {
		var it models.WebIntel
		var raw []byte
		if err := rows.Scan(&it.ID, &it.CompetitorName, &it.Date, &it.Headline, &it.AISummary, &it.SourceURL, &raw); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &it.ExtractedData)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/david/court-scout/internal/catalog"
	"github.com/david/court-scout/internal/models"
)

type SeedResult struct {
	Prospects int `json:"prospects"`
	Notes     int `json:"notes"`
	WebIntel  int `json:"web_intel"`
}

// SeedWorkspace copies the catalog's leads and residential prospects into the
// user's pipeline and the catalog's intel notes into their notebook. Running
// it again adds nothing: prospects are keyed by id and notes are only copied
// into an empty notebook.
func (s *Store) SeedWorkspace(ctx context.Context, userID uuid.UUID, cat catalog.Catalog) (*SeedResult, error) {
	res := &SeedResult{}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		prospects := append(cat.Leads(), cat.Residential()...)
		for _, p := range prospects {
			data, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("encode prospect %s: %w", p.ID, err)
			}
			tag, err := tx.Exec(ctx, `
				INSERT INTO saved_prospects (user_id, prospect_id, prospect_type, name, address, lat, lng, data, status)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				ON CONFLICT (user_id, prospect_id) DO NOTHING
			`, userID, p.ID, string(p.Type), p.Name, p.Address, p.Coords.Lat, p.Coords.Lng, data, string(models.PipelineNew))
			if err != nil {
				return fmt.Errorf("seed prospect %s: %w", p.ID, err)
			}
			res.Prospects += int(tag.RowsAffected())
		}

		var existing int
		if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM intel_notes WHERE user_id = $1", userID).Scan(&existing); err != nil {
			return err
		}
		if existing == 0 {
			for _, n := range cat.IntelNotes() {
				if _, err := tx.Exec(ctx, `
					INSERT INTO intel_notes (user_id, note_date, content) VALUES ($1, $2, $3)
				`, userID, n.Date, n.Content); err != nil {
					return fmt.Errorf("seed note %d: %w", n.ID, err)
				}
				res.Notes++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	n, err := s.UpsertWebIntel(ctx, cat.WebIntel())
	if err != nil {
		return res, err
	}
	res.WebIntel = n
	return res, nil
}

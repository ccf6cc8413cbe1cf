package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/david/court-scout/internal/auth"
	"github.com/david/court-scout/internal/catalog"
	"github.com/david/court-scout/internal/db"
)

var (
	runsOwner string
	runsLimit int
	seedEmail string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent scan runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		runs, err := db.NewStore(pool).ListScanRuns(ctx, runsOwner, runsLimit)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Scan", "Owner", "Status", "Requested", "Dropped", "Revealed", "Polygon", "Duration", "Started At"})
		for _, r := range runs {
			duration := "Running..."
			if r.FinishedAt != nil {
				duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
			}
			t.AppendRow(table.Row{r.ID[:8], r.Owner, r.Status, r.Requested, r.Dropped, r.Revealed, r.HasPolygon, duration, r.StartedAt.Format("2006-01-02 15:04:05")})
		}
		t.Render()
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Copy the catalog's leads and notes into a user's workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedEmail == "" {
			return fmt.Errorf("--email is required")
		}
		ctx := cmd.Context()
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		cat, err := catalog.Default()
		if err != nil {
			return err
		}
		tokens, err := auth.NewTokens(cfg.JWTSecret, logger)
		if err != nil {
			return err
		}
		userID, err := auth.NewService(pool, tokens).UserIDByEmail(ctx, seedEmail)
		if err != nil {
			return err
		}
		res, err := db.NewStore(pool).SeedWorkspace(ctx, userID, cat)
		if err != nil {
			return err
		}
		logger.Info("workspace seeded",
			zap.String("email", seedEmail),
			zap.Int("prospects", res.Prospects),
			zap.Int("notes", res.Notes),
			zap.Int("web_intel", res.WebIntel),
		)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the database connection and schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		// Connect without migrating so pending files show up.
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		applied, err := db.AppliedMigrations(ctx, pool)
		if err != nil {
			return err
		}
		pending, err := db.PendingMigrations(applied)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Migration", "Status", "Applied At"})
		for _, m := range applied {
			t.AppendRow(table.Row{m.Filename, "applied", m.AppliedAt.Format(time.RFC3339)})
		}
		for _, f := range pending {
			t.AppendRow(table.Row{f, "pending", ""})
		}
		t.Render()

		if len(pending) > 0 {
			return fmt.Errorf("%d pending migrations", len(pending))
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsOwner, "owner", "", "Only runs started by this owner")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to list")
	seedCmd.Flags().StringVar(&seedEmail, "email", "", "Email of the user to seed")
}

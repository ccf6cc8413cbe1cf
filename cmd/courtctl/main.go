// Command courtctl runs scans, permit parsing and maintenance tasks from the
// terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/david/court-scout/internal/config"
	"github.com/david/court-scout/internal/db"
	"github.com/david/court-scout/internal/logging"
)

var (
	// Global flags
	verbose   bool
	logFormat string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "courtctl",
	Short: "Court scout command line",
	Long: `courtctl drives the court scout backend from a terminal.

It can run a radar sweep locally, turn permit PDFs into leads, crawl
competitor sites and inspect the database the server uses.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if logFormat != "" {
			cfg.LogFormat = logFormat
		}
		logger, err = logging.New(cfg.LogFormat, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json (default from LOG_FORMAT)")

	rootCmd.AddCommand(scanCmd, runsCmd, seedCmd, verifyCmd, permitCmd, intelCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// connect opens the configured database and applies pending migrations.
func connect(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.ApplyMigrations(ctx, pool, logger.Named("migrate")); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return pool, nil
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bentolab/nhsn-backfill/internal/archive"
	"github.com/bentolab/nhsn-backfill/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "nhsn-backfill",
	Short: "Backfill correction for preliminary NHSN influenza admissions",
	Long:  "Estimates per-state reporting completeness at lags 0-2 from archived preliminary snapshots and rescales the most recent weeks of the latest release.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openArchive builds the configured archive driver.
func openArchive(ctx context.Context) (archive.Archive, error) {
	switch cfg.Archive.Driver {
	case "fs", "":
		return archive.NewFS(cfg.Archive.Dir, cfg.Archive.OutDir), nil
	case "sqlite":
		if cfg.Archive.DatabaseURL == "" {
			return nil, eris.New("archive.database_url is required for the sqlite driver")
		}
		return archive.NewSQLite(ctx, cfg.Archive.DatabaseURL)
	case "postgres":
		if cfg.Archive.DatabaseURL == "" {
			return nil, eris.New("archive.database_url is required for the postgres driver")
		}
		return archive.NewPostgres(ctx, cfg.Archive.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown archive driver %q", cfg.Archive.Driver)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

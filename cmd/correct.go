package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bentolab/nhsn-backfill/internal/bayes"
	"github.com/bentolab/nhsn-backfill/internal/monitoring"
	"github.com/bentolab/nhsn-backfill/internal/pipeline"
)

var correctCmd = &cobra.Command{
	Use:   "correct",
	Short: "Backfill-correct the latest preliminary snapshot",
	Long:  "Loads the snapshot archive, estimates per-state completeness over the trailing window, rescales the two most recent weeks of the latest release and writes the corrected snapshot plus the estimate table.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyBackfillFlags(cmd)

		started := time.Now().UTC()
		log := zap.L().With(zap.String("command", "correct"))

		arch, err := openArchive(ctx)
		if err != nil {
			return err
		}
		defer arch.Close()

		estimator, err := bayes.New(cfg.Backfill.BayesConfig())
		if err != nil {
			return err
		}

		snaps, err := arch.LoadSnapshots(ctx)
		if err != nil {
			return eris.Wrap(err, "correct: load snapshots")
		}
		log.Info("archive loaded", zap.Int("snapshots", len(snaps)))

		audit := &monitoring.Audit{}
		p := &pipeline.Pipeline{
			Estimator: estimator,
			Window:    cfg.Backfill.Window,
			Precision: cfg.Backfill.Precision,
			Audit:     audit,
		}

		result, err := p.Run(snaps)
		if err != nil {
			return eris.Wrap(err, "correct: run pipeline")
		}

		release := result.Corrected.Release
		if err := arch.SaveCorrected(ctx, result.Corrected); err != nil {
			return eris.Wrap(err, "correct: save corrected snapshot")
		}
		if err := arch.SaveEstimates(ctx, release, result.Estimates); err != nil {
			return eris.Wrap(err, "correct: save estimates")
		}

		rec := audit.Record(
			uuid.New().String(),
			cfg.Backfill.Variant,
			cfg.Backfill.Window,
			len(result.Estimates),
			started,
			time.Now().UTC(),
		)
		if err := arch.RecordRun(ctx, rec); err != nil {
			return eris.Wrap(err, "correct: record run")
		}
		audit.Log()

		fmt.Printf("Corrected release %s: %d regions, window %s to %s\n",
			release.Format("2006-01-02"),
			len(result.Estimates),
			result.Window.Start.Format("2006-01-02"),
			result.Window.End.Format("2006-01-02"),
		)
		return nil
	},
}

func init() {
	addBackfillFlags(correctCmd)
	rootCmd.AddCommand(correctCmd)
}

// addBackfillFlags registers the per-run overrides shared by the correct
// and estimate commands.
func addBackfillFlags(cmd *cobra.Command) {
	cmd.Flags().Int("window", 0, "override trailing window length (aligned records; 0 = use config)")
	cmd.Flags().String("variant", "", "override model variant (dirichlet, beta, hazard)")
	cmd.Flags().Bool("intervals", false, "report 5th/50th/95th percentile credible intervals")
}

func applyBackfillFlags(cmd *cobra.Command) {
	if w, _ := cmd.Flags().GetInt("window"); w > 0 {
		cfg.Backfill.Window = w
	}
	if v, _ := cmd.Flags().GetString("variant"); v != "" {
		cfg.Backfill.Variant = v
	}
	if iv, _ := cmd.Flags().GetBool("intervals"); iv {
		cfg.Backfill.Intervals = true
	}
}

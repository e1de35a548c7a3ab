package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/bentolab/nhsn-backfill/internal/archive"
	"github.com/bentolab/nhsn-backfill/internal/bayes"
	"github.com/bentolab/nhsn-backfill/internal/model"
	"github.com/bentolab/nhsn-backfill/internal/monitoring"
	"github.com/bentolab/nhsn-backfill/internal/pipeline"
)

var estimateOutPath string

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Compute per-state completeness estimates",
	Long:  "Runs alignment and estimation over the archive without correcting anything, and prints the per-state completeness fractions.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		applyBackfillFlags(cmd)

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
			return eris.Wrap(err, "estimate: load snapshots")
		}

		p := &pipeline.Pipeline{
			Estimator: estimator,
			Window:    cfg.Backfill.Window,
			Precision: cfg.Backfill.Precision,
			Audit:     &monitoring.Audit{},
		}
		estimates, _, _, err := p.Estimates(snaps)
		if err != nil {
			return eris.Wrap(err, "estimate")
		}

		if estimateOutPath != "" {
			f, err := os.Create(estimateOutPath)
			if err != nil {
				return eris.Wrapf(err, "estimate: create %s", estimateOutPath)
			}
			defer f.Close()
			if err := archive.WriteEstimatesCSV(f, estimates); err != nil {
				return err
			}
		}

		formatEstimates(os.Stdout, estimates)
		return nil
	},
}

func init() {
	addBackfillFlags(estimateCmd)
	estimateCmd.Flags().StringVar(&estimateOutPath, "out", "", "also write the estimate table to this CSV path")
	rootCmd.AddCommand(estimateCmd)
}

// formatEstimates writes a tabular representation of the estimates to w.
func formatEstimates(out io.Writer, ests []model.Estimate) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FIPS\tSTATE\tWINDOW\tP02\tP12")
	_, _ = fmt.Fprintln(w, "----\t-----\t------\t---\t---")

	for _, e := range ests {
		window := fmt.Sprintf("%s..%s",
			e.Window.Start.Format("2006-01-02"),
			e.Window.End.Format("2006-01-02"),
		)
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.*f\t%.*f\n",
			e.FIPS, e.Region, window,
			cfg.Backfill.Precision, e.P02,
			cfg.Backfill.Precision, e.P12,
		)
	}
	_ = w.Flush()
}

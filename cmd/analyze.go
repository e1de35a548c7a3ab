package main

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bentolab/nhsn-backfill/internal/monitoring"
	"github.com/bentolab/nhsn-backfill/internal/pipeline"
)

var analyzeOutPath string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Report relative backfill per aligned week",
	Long:  "Writes, for every focal week and state, the percent change of the count after one and two weeks of backfilling relative to its initial release.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		arch, err := openArchive(ctx)
		if err != nil {
			return err
		}
		defer arch.Close()

		snaps, err := arch.LoadSnapshots(ctx)
		if err != nil {
			return eris.Wrap(err, "analyze: load snapshots")
		}

		records, err := pipeline.Align(snaps, &monitoring.Audit{})
		if err != nil {
			return eris.Wrap(err, "analyze")
		}
		adjustments := pipeline.RelativeAdjustments(records)

		out := os.Stdout
		if analyzeOutPath != "" {
			f, err := os.Create(analyzeOutPath)
			if err != nil {
				return eris.Wrapf(err, "analyze: create %s", analyzeOutPath)
			}
			defer f.Close()
			out = f
		}

		w := csv.NewWriter(out)
		if err := w.Write([]string{"date", "name_state", "fips_state", "rel_adj_week_1", "rel_adj_week_2"}); err != nil {
			return eris.Wrap(err, "analyze: write header")
		}
		for _, adj := range adjustments {
			rel1, rel2 := "", ""
			if adj.Valid {
				rel1 = strconv.FormatFloat(adj.RelWeek1, 'f', 1, 64)
				rel2 = strconv.FormatFloat(adj.RelWeek2, 'f', 1, 64)
			}
			rec := []string{adj.FocalDate.Format("2006-01-02"), adj.Region, adj.FIPS, rel1, rel2}
			if err := w.Write(rec); err != nil {
				return eris.Wrap(err, "analyze: write row")
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return eris.Wrap(err, "analyze: flush")
		}

		zap.L().Info("analyze complete",
			zap.Int("aligned_records", len(records)),
			zap.Int("rows", len(adjustments)),
		)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOutPath, "out", "", "write the trend table to this CSV path instead of stdout")
	rootCmd.AddCommand(analyzeCmd)
}

package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect and manage the snapshot archive",
}

var archiveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List archived snapshot releases",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		arch, err := openArchive(ctx)
		if err != nil {
			return err
		}
		defer arch.Close()

		releases, err := arch.ListReleases(ctx)
		if err != nil {
			return eris.Wrap(err, "archive status")
		}

		if len(releases) == 0 {
			zap.L().Info("archive is empty, add snapshots with 'archive import'")
			return nil
		}

		formatReleases(os.Stdout, releases)
		return nil
	},
}

func init() {
	archiveCmd.AddCommand(archiveStatusCmd)
	rootCmd.AddCommand(archiveCmd)
}

// formatReleases writes a tabular view of the archive contents to w.
func formatReleases(out io.Writer, releases []time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tRELEASE")
	_, _ = fmt.Fprintln(w, "-\t-------")
	for i, release := range releases {
		_, _ = fmt.Fprintf(w, "%d\t%s\n", i+1, release.Format("2006-01-02"))
	}
	_ = w.Flush()

	alignable := len(releases) - 2
	if alignable < 0 {
		alignable = 0
	}
	fmt.Fprintf(out, "\n%d snapshots, %d alignable records\n", len(releases), alignable)
}

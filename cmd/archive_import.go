package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bentolab/nhsn-backfill/internal/archive"
)

var archiveImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import snapshot files into the archive",
	Long:  "Reads one or more snapshot files (CSV or XLSX, release date taken from the YYYY-MM-DD filename prefix) and stores them in the configured archive.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		arch, err := openArchive(ctx)
		if err != nil {
			return err
		}
		defer arch.Close()

		for _, path := range args {
			snap, err := archive.LoadSnapshotFile(path)
			if err != nil {
				return eris.Wrapf(err, "archive import: read %s", path)
			}
			if err := arch.SaveSnapshot(ctx, snap); err != nil {
				return eris.Wrapf(err, "archive import: save %s", path)
			}
			zap.L().Info("snapshot imported",
				zap.String("file", path),
				zap.Time("release", snap.Release),
				zap.Int("rows", len(snap.Rows)),
			)
		}
		return nil
	},
}

func init() {
	archiveCmd.AddCommand(archiveImportCmd)
}

// Package archive persists the snapshot history and the run outputs. Three
// drivers share one interface: a filesystem directory of CSV/XLSX files, a
// SQLite database, and PostgreSQL.
package archive

import (
	"context"
	"time"

	"github.com/bentolab/nhsn-backfill/internal/model"
	"github.com/bentolab/nhsn-backfill/internal/monitoring"
)

// Archive is the storage interface the pipeline runs against. Snapshots
// come back ordered chronologically by release date.
type Archive interface {
	// ListReleases returns the release dates present, ascending.
	ListReleases(ctx context.Context) ([]time.Time, error)
	// LoadSnapshots loads the full snapshot history, ascending by release.
	LoadSnapshots(ctx context.Context) ([]model.Snapshot, error)
	// SaveSnapshot adds one raw snapshot to the archive.
	SaveSnapshot(ctx context.Context, snap model.Snapshot) error
	// SaveCorrected writes a backfill-corrected snapshot.
	SaveCorrected(ctx context.Context, snap model.Snapshot) error
	// SaveEstimates writes the per-region estimate table for the run that
	// corrected the snapshot released at the given date.
	SaveEstimates(ctx context.Context, release time.Time, ests []model.Estimate) error
	// RecordRun persists the audit row for one pipeline run.
	RecordRun(ctx context.Context, rec monitoring.RunRecord) error
	Close() error
}

const dateLayout = "2006-01-02"

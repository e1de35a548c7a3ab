package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/bentolab/nhsn-backfill/internal/model"
	"github.com/bentolab/nhsn-backfill/internal/monitoring"
)

// loadConcurrency bounds parallel snapshot file parsing.
const loadConcurrency = 8

// FS is the filesystem archive driver: one snapshot per file in dir, named
// `YYYY-MM-DD*.csv` (or `.xlsx`) so lexicographic order is chronological
// order. Outputs land in outDir.
type FS struct {
	dir    string
	outDir string
}

// NewFS creates a filesystem archive over the given directories.
func NewFS(dir, outDir string) *FS {
	return &FS{dir: dir, outDir: outDir}
}

func (f *FS) listFiles() ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.csv", "*.xlsx"} {
		matches, err := filepath.Glob(filepath.Join(f.dir, pattern))
		if err != nil {
			return nil, eris.Wrapf(err, "archive: glob %s", pattern)
		}
		files = append(files, matches...)
	}
	sort.Slice(files, func(i, j int) bool {
		return filepath.Base(files[i]) < filepath.Base(files[j])
	})
	return files, nil
}

// releaseFromFilename extracts the release date from the leading
// `YYYY-MM-DD` of the base name.
func releaseFromFilename(path string) (time.Time, error) {
	base := filepath.Base(path)
	if len(base) < len(dateLayout) {
		return time.Time{}, eris.Errorf("archive: filename %q has no release date prefix", base)
	}
	release, err := time.Parse(dateLayout, base[:len(dateLayout)])
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "archive: parse release date from %q", base)
	}
	return release, nil
}

func (f *FS) ListReleases(ctx context.Context) ([]time.Time, error) {
	files, err := f.listFiles()
	if err != nil {
		return nil, err
	}
	releases := make([]time.Time, 0, len(files))
	for _, file := range files {
		release, err := releaseFromFilename(file)
		if err != nil {
			return nil, err
		}
		releases = append(releases, release)
	}
	return releases, nil
}

func (f *FS) LoadSnapshots(ctx context.Context) ([]model.Snapshot, error) {
	files, err := f.listFiles()
	if err != nil {
		return nil, err
	}

	snaps := make([]model.Snapshot, len(files))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, file := range files {
		g.Go(func() error {
			snap, err := LoadSnapshotFile(file)
			if err != nil {
				return err
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Release.Before(snaps[j].Release) })
	return snaps, nil
}

// LoadSnapshotFile reads one snapshot file, CSV or XLSX, taking the release
// date from the filename prefix.
func LoadSnapshotFile(path string) (model.Snapshot, error) {
	release, err := releaseFromFilename(path)
	if err != nil {
		return model.Snapshot{}, err
	}

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadSnapshotXLSX(path, release)
	}

	file, err := os.Open(path)
	if err != nil {
		return model.Snapshot{}, eris.Wrapf(err, "archive: open %s", path)
	}
	defer file.Close()
	return ReadSnapshotCSV(file, release)
}

func (f *FS) SaveSnapshot(ctx context.Context, snap model.Snapshot) error {
	path := filepath.Join(f.dir, snap.Release.Format(dateLayout)+".csv")
	return writeCSVFile(path, func(file *os.File) error {
		return WriteSnapshotCSV(file, snap)
	})
}

func (f *FS) SaveCorrected(ctx context.Context, snap model.Snapshot) error {
	path := filepath.Join(f.outDir, snap.Release.Format(dateLayout)+"_backfilled.csv")
	return writeCSVFile(path, func(file *os.File) error {
		return WriteSnapshotCSV(file, snap)
	})
}

func (f *FS) SaveEstimates(ctx context.Context, release time.Time, ests []model.Estimate) error {
	path := filepath.Join(f.outDir, release.Format(dateLayout)+"_backfill-estimates.csv")
	return writeCSVFile(path, func(file *os.File) error {
		return WriteEstimatesCSV(file, ests)
	})
}

// RecordRun appends the audit row to a JSON-lines log next to the outputs.
func (f *FS) RecordRun(ctx context.Context, rec monitoring.RunRecord) error {
	if err := os.MkdirAll(f.outDir, 0o755); err != nil {
		return eris.Wrap(err, "archive: create output dir")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "archive: marshal run record")
	}
	file, err := os.OpenFile(filepath.Join(f.outDir, "runs.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrap(err, "archive: open run log")
	}
	defer file.Close()
	if _, err := fmt.Fprintf(file, "%s\n", data); err != nil {
		return eris.Wrap(err, "archive: append run record")
	}
	return nil
}

func (f *FS) Close() error { return nil }

func writeCSVFile(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "archive: create dir for %s", path)
	}
	file, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "archive: create %s", path)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return eris.Wrapf(file.Close(), "archive: close %s", path)
}

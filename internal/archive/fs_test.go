package archive

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bentolab/nhsn-backfill/internal/model"
	"github.com/bentolab/nhsn-backfill/internal/monitoring"
)

func writeSnapshotFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

const fsTestHeader = "date,name_state,fips_state,influenza_admissions\n"

func TestFS_LoadSnapshotsChronological(t *testing.T) {
	dir := t.TempDir()
	// Deliberately created out of order; basenames decide.
	writeSnapshotFile(t, dir, "2025-10-19.csv", fsTestHeader+"2025-10-18,Vermont,50,80\n")
	writeSnapshotFile(t, dir, "2025-10-05.csv", fsTestHeader+"2025-10-04,Vermont,50,100\n")
	writeSnapshotFile(t, dir, "2025-10-12.csv", fsTestHeader+"2025-10-11,Vermont,50,90\n")

	fs := NewFS(dir, t.TempDir())
	snaps, err := fs.LoadSnapshots(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.True(t, snaps[0].Release.Equal(date("2025-10-05")))
	assert.True(t, snaps[1].Release.Equal(date("2025-10-12")))
	assert.True(t, snaps[2].Release.Equal(date("2025-10-19")))
}

func TestFS_ListReleases(t *testing.T) {
	dir := t.TempDir()
	writeSnapshotFile(t, dir, "2025-10-05.csv", fsTestHeader)
	writeSnapshotFile(t, dir, "2025-10-12_weekly.csv", fsTestHeader)

	fs := NewFS(dir, t.TempDir())
	releases, err := fs.ListReleases(context.Background())
	require.NoError(t, err)
	require.Len(t, releases, 2)
	assert.True(t, releases[0].Equal(date("2025-10-05")))
	assert.True(t, releases[1].Equal(date("2025-10-12")))
}

func TestFS_BadFilename(t *testing.T) {
	// Too short to even hold a date prefix.
	dir := t.TempDir()
	writeSnapshotFile(t, dir, "data.csv", fsTestHeader)

	fs := NewFS(dir, t.TempDir())
	_, err := fs.ListReleases(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "release date prefix")
}

func TestFS_FilenameWithoutDatePrefix(t *testing.T) {
	// Long enough for the length guard but not a date; time.Parse rejects it.
	dir := t.TempDir()
	writeSnapshotFile(t, dir, "weekly.csv", fsTestHeader)

	fs := NewFS(dir, t.TempDir())
	_, err := fs.ListReleases(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `parse release date from "weekly.csv"`)
}

func TestFS_SaveSnapshot(t *testing.T) {
	dir := t.TempDir()
	fs := NewFS(dir, t.TempDir())

	snap := model.Snapshot{
		Release: date("2025-10-05"),
		Rows: []model.Row{
			{Date: date("2025-10-04"), Region: "Vermont", FIPS: "50", Admissions: 100},
		},
	}
	require.NoError(t, fs.SaveSnapshot(context.Background(), snap))

	got, err := LoadSnapshotFile(filepath.Join(dir, "2025-10-05.csv"))
	require.NoError(t, err)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, 100.0, got.Rows[0].Admissions)
}

func TestFS_SaveCorrectedAndEstimates(t *testing.T) {
	outDir := t.TempDir()
	fs := NewFS(t.TempDir(), outDir)
	ctx := context.Background()

	snap := model.Snapshot{
		Release: date("2025-11-02"),
		Rows: []model.Row{
			{Date: date("2025-11-01"), Region: "Vermont", FIPS: "50", Admissions: 66.667},
		},
	}
	require.NoError(t, fs.SaveCorrected(ctx, snap))

	ests := []model.Estimate{
		{Region: "Vermont", FIPS: "50", P02: 0.9, P12: 0.957,
			Window: model.Window{Start: date("2025-10-04"), End: date("2025-10-18")}},
	}
	require.NoError(t, fs.SaveEstimates(ctx, snap.Release, ests))

	assert.FileExists(t, filepath.Join(outDir, "2025-11-02_backfilled.csv"))
	assert.FileExists(t, filepath.Join(outDir, "2025-11-02_backfill-estimates.csv"))
}

func TestFS_RecordRunAppends(t *testing.T) {
	outDir := t.TempDir()
	fs := NewFS(t.TempDir(), outDir)
	ctx := context.Background()

	started := time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC)
	rec := monitoring.RunRecord{
		ID:        "run-1",
		StartedAt: started, FinishedAt: started.Add(time.Second),
		Variant: "hazard", Window: 4, Regions: 2,
	}
	require.NoError(t, fs.RecordRun(ctx, rec))
	rec.ID = "run-2"
	require.NoError(t, fs.RecordRun(ctx, rec))

	data, err := os.ReadFile(filepath.Join(outDir, "runs.jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var got monitoring.RunRecord
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &got))
	assert.Equal(t, "run-2", got.ID)
	assert.Equal(t, "hazard", got.Variant)
	assert.Equal(t, 4, got.Window)
}

package archive

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/bentolab/nhsn-backfill/internal/model"
	"github.com/bentolab/nhsn-backfill/internal/monitoring"
)

// SQLite implements Archive using modernc.org/sqlite.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite archive at the given path, configures WAL mode
// and applies the schema.
func NewSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	s := &SQLite{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	release              TEXT NOT NULL,
	date                 TEXT NOT NULL,
	name_state           TEXT NOT NULL,
	fips_state           TEXT,
	influenza_admissions REAL NOT NULL,
	PRIMARY KEY (release, date, name_state)
);

CREATE TABLE IF NOT EXISTS corrected (
	release              TEXT NOT NULL,
	date                 TEXT NOT NULL,
	name_state           TEXT NOT NULL,
	fips_state           TEXT,
	influenza_admissions REAL NOT NULL,
	PRIMARY KEY (release, date, name_state)
);

CREATE TABLE IF NOT EXISTS estimates (
	release      TEXT NOT NULL,
	fips_state   TEXT,
	name_state   TEXT NOT NULL,
	window_start TEXT NOT NULL,
	window_end   TEXT NOT NULL,
	p02          REAL NOT NULL,
	p12          REAL NOT NULL,
	p02_low      REAL, p02_median REAL, p02_high REAL,
	p12_low      REAL, p12_median REAL, p12_high REAL,
	PRIMARY KEY (release, name_state)
);

CREATE TABLE IF NOT EXISTS runs (
	id                 TEXT PRIMARY KEY,
	started_at         TEXT NOT NULL,
	finished_at        TEXT NOT NULL,
	variant            TEXT NOT NULL,
	window_len         INTEGER NOT NULL,
	regions            INTEGER NOT NULL,
	dropped_regions    INTEGER NOT NULL,
	range_violations   INTEGER NOT NULL,
	identity_fallbacks INTEGER NOT NULL,
	degenerate_regions INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_release ON snapshots(release);
CREATE INDEX IF NOT EXISTS idx_corrected_release ON corrected(release);
CREATE INDEX IF NOT EXISTS idx_estimates_release ON estimates(release);
`

func (s *SQLite) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) ListReleases(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT release FROM snapshots ORDER BY release`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list releases")
	}
	defer rows.Close()

	var releases []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan release")
		}
		release, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse release %q", raw)
		}
		releases = append(releases, release)
	}
	return releases, eris.Wrap(rows.Err(), "sqlite: iterate releases")
}

func (s *SQLite) LoadSnapshots(ctx context.Context) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT release, date, name_state, COALESCE(fips_state, ''), influenza_admissions
		 FROM snapshots ORDER BY release, date, name_state`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load snapshots")
	}
	defer rows.Close()

	var snaps []model.Snapshot
	var current string
	for rows.Next() {
		var releaseRaw, dateRaw string
		var row model.Row
		if err := rows.Scan(&releaseRaw, &dateRaw, &row.Region, &row.FIPS, &row.Admissions); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot row")
		}
		if row.Date, err = time.Parse(dateLayout, dateRaw); err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse date %q", dateRaw)
		}
		if releaseRaw != current {
			release, err := time.Parse(dateLayout, releaseRaw)
			if err != nil {
				return nil, eris.Wrapf(err, "sqlite: parse release %q", releaseRaw)
			}
			snaps = append(snaps, model.Snapshot{Release: release})
			current = releaseRaw
		}
		last := len(snaps) - 1
		snaps[last].Rows = append(snaps[last].Rows, row)
	}
	return snaps, eris.Wrap(rows.Err(), "sqlite: iterate snapshots")
}

func (s *SQLite) saveRows(ctx context.Context, table string, snap model.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO `+table+` (release, date, name_state, fips_state, influenza_admissions)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare insert into %s", table)
	}
	defer stmt.Close()

	release := snap.Release.Format(dateLayout)
	for _, row := range snap.Rows {
		if _, err := stmt.ExecContext(ctx, release, row.Date.Format(dateLayout), row.Region, row.FIPS, row.Admissions); err != nil {
			return eris.Wrapf(err, "sqlite: insert into %s", table)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLite) SaveSnapshot(ctx context.Context, snap model.Snapshot) error {
	return s.saveRows(ctx, "snapshots", snap)
}

func (s *SQLite) SaveCorrected(ctx context.Context, snap model.Snapshot) error {
	return s.saveRows(ctx, "corrected", snap)
}

func (s *SQLite) SaveEstimates(ctx context.Context, release time.Time, ests []model.Estimate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO estimates
		 (release, fips_state, name_state, window_start, window_end, p02, p12,
		  p02_low, p02_median, p02_high, p12_low, p12_median, p12_high)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert estimates")
	}
	defer stmt.Close()

	for _, e := range ests {
		args := []any{
			release.Format(dateLayout), e.FIPS, e.Region,
			e.Window.Start.Format(dateLayout), e.Window.End.Format(dateLayout),
			e.P02, e.P12,
		}
		args = append(args, intervalArgs(e.P02Interval)...)
		args = append(args, intervalArgs(e.P12Interval)...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "sqlite: insert estimate for %s", e.Region)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLite) RecordRun(ctx context.Context, rec monitoring.RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs
		 (id, started_at, finished_at, variant, window_len, regions,
		  dropped_regions, range_violations, identity_fallbacks, degenerate_regions)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StartedAt.UTC().Format(time.RFC3339), rec.FinishedAt.UTC().Format(time.RFC3339),
		rec.Variant, rec.Window, rec.Regions,
		rec.DroppedRegions, rec.RangeViolations, rec.IdentityFallbacks, rec.DegenerateRegions,
	)
	return eris.Wrap(err, "sqlite: insert run")
}

func intervalArgs(iv *model.Interval) []any {
	if iv == nil {
		return []any{nil, nil, nil}
	}
	return []any{iv.Low, iv.Median, iv.High}
}

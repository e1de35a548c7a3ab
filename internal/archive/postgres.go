package archive

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/bentolab/nhsn-backfill/internal/model"
	"github.com/bentolab/nhsn-backfill/internal/monitoring"
)

// Pool is the subset of pgxpool.Pool the archive needs; pgxmock implements
// it for tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Postgres implements Archive on PostgreSQL.
type Postgres struct {
	pool Pool
}

// NewPostgres connects a pool and applies the schema.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}

	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgresFromPool wraps an existing pool without migrating. Used by
// tests and by callers that manage the schema themselves.
func NewPostgresFromPool(pool Pool) *Postgres {
	return &Postgres{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	release              DATE NOT NULL,
	date                 DATE NOT NULL,
	name_state           TEXT NOT NULL,
	fips_state           TEXT,
	influenza_admissions DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (release, date, name_state)
);

CREATE TABLE IF NOT EXISTS corrected (
	release              DATE NOT NULL,
	date                 DATE NOT NULL,
	name_state           TEXT NOT NULL,
	fips_state           TEXT,
	influenza_admissions DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (release, date, name_state)
);

CREATE TABLE IF NOT EXISTS estimates (
	release      DATE NOT NULL,
	fips_state   TEXT,
	name_state   TEXT NOT NULL,
	window_start DATE NOT NULL,
	window_end   DATE NOT NULL,
	p02          DOUBLE PRECISION NOT NULL,
	p12          DOUBLE PRECISION NOT NULL,
	p02_low      DOUBLE PRECISION, p02_median DOUBLE PRECISION, p02_high DOUBLE PRECISION,
	p12_low      DOUBLE PRECISION, p12_median DOUBLE PRECISION, p12_high DOUBLE PRECISION,
	PRIMARY KEY (release, name_state)
);

CREATE TABLE IF NOT EXISTS runs (
	id                 UUID PRIMARY KEY,
	started_at         TIMESTAMPTZ NOT NULL,
	finished_at        TIMESTAMPTZ NOT NULL,
	variant            TEXT NOT NULL,
	window_len         INTEGER NOT NULL,
	regions            INTEGER NOT NULL,
	dropped_regions    INTEGER NOT NULL,
	range_violations   INTEGER NOT NULL,
	identity_fallbacks INTEGER NOT NULL,
	degenerate_regions INTEGER NOT NULL
);
`

func (p *Postgres) migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) ListReleases(ctx context.Context) ([]time.Time, error) {
	rows, err := p.pool.Query(ctx, `SELECT DISTINCT release FROM snapshots ORDER BY release`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list releases")
	}
	defer rows.Close()

	var releases []time.Time
	for rows.Next() {
		var release time.Time
		if err := rows.Scan(&release); err != nil {
			return nil, eris.Wrap(err, "postgres: scan release")
		}
		releases = append(releases, release)
	}
	return releases, eris.Wrap(rows.Err(), "postgres: iterate releases")
}

func (p *Postgres) LoadSnapshots(ctx context.Context) ([]model.Snapshot, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT release, date, name_state, COALESCE(fips_state, ''), influenza_admissions
		 FROM snapshots ORDER BY release, date, name_state`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load snapshots")
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		var release time.Time
		var row model.Row
		if err := rows.Scan(&release, &row.Date, &row.Region, &row.FIPS, &row.Admissions); err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot row")
		}
		if len(snaps) == 0 || !snaps[len(snaps)-1].Release.Equal(release) {
			snaps = append(snaps, model.Snapshot{Release: release})
		}
		last := len(snaps) - 1
		snaps[last].Rows = append(snaps[last].Rows, row)
	}
	return snaps, eris.Wrap(rows.Err(), "postgres: iterate snapshots")
}

func (p *Postgres) saveRows(ctx context.Context, table string, snap model.Snapshot) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	sql := `INSERT INTO ` + table + ` (release, date, name_state, fips_state, influenza_admissions)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (release, date, name_state)
		 DO UPDATE SET fips_state = EXCLUDED.fips_state, influenza_admissions = EXCLUDED.influenza_admissions`
	for _, row := range snap.Rows {
		if _, err := tx.Exec(ctx, sql, snap.Release, row.Date, row.Region, row.FIPS, row.Admissions); err != nil {
			return eris.Wrapf(err, "postgres: insert into %s", table)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit")
}

func (p *Postgres) SaveSnapshot(ctx context.Context, snap model.Snapshot) error {
	return p.saveRows(ctx, "snapshots", snap)
}

func (p *Postgres) SaveCorrected(ctx context.Context, snap model.Snapshot) error {
	return p.saveRows(ctx, "corrected", snap)
}

func (p *Postgres) SaveEstimates(ctx context.Context, release time.Time, ests []model.Estimate) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	sql := `INSERT INTO estimates
		 (release, fips_state, name_state, window_start, window_end, p02, p12,
		  p02_low, p02_median, p02_high, p12_low, p12_median, p12_high)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (release, name_state) DO UPDATE SET
		  fips_state = EXCLUDED.fips_state,
		  window_start = EXCLUDED.window_start, window_end = EXCLUDED.window_end,
		  p02 = EXCLUDED.p02, p12 = EXCLUDED.p12,
		  p02_low = EXCLUDED.p02_low, p02_median = EXCLUDED.p02_median, p02_high = EXCLUDED.p02_high,
		  p12_low = EXCLUDED.p12_low, p12_median = EXCLUDED.p12_median, p12_high = EXCLUDED.p12_high`
	for _, e := range ests {
		args := []any{release, e.FIPS, e.Region, e.Window.Start, e.Window.End, e.P02, e.P12}
		args = append(args, intervalArgs(e.P02Interval)...)
		args = append(args, intervalArgs(e.P12Interval)...)
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return eris.Wrapf(err, "postgres: insert estimate for %s", e.Region)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit")
}

func (p *Postgres) RecordRun(ctx context.Context, rec monitoring.RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	// window_len, not window: WINDOW is a reserved word in PostgreSQL.
	_, err := p.pool.Exec(ctx,
		`INSERT INTO runs
		 (id, started_at, finished_at, variant, window_len, regions,
		  dropped_regions, range_violations, identity_fallbacks, degenerate_regions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.StartedAt.UTC(), rec.FinishedAt.UTC(),
		rec.Variant, rec.Window, rec.Regions,
		rec.DroppedRegions, rec.RangeViolations, rec.IdentityFallbacks, rec.DegenerateRegions,
	)
	return eris.Wrap(err, "postgres: insert run")
}

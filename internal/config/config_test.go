package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bentolab/nhsn-backfill/internal/bayes"
)

func chTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "fs", cfg.Archive.Driver)
	assert.Equal(t, "data/preliminary", cfg.Archive.Dir)
	assert.Equal(t, "data/preliminary_backfilled", cfg.Archive.OutDir)

	assert.Equal(t, 4, cfg.Backfill.Window)
	assert.Equal(t, "hazard", cfg.Backfill.Variant)
	assert.Equal(t, 3, cfg.Backfill.Precision)
	assert.False(t, cfg.Backfill.Intervals)

	assert.InDelta(t, 50.0, cfg.Backfill.Dirichlet.Kappa, 0.001)
	assert.InDelta(t, 0.95, cfg.Backfill.Dirichlet.Mean[0], 0.001)
	assert.InDelta(t, 0.04, cfg.Backfill.Dirichlet.Mean[1], 0.001)
	assert.InDelta(t, 0.01, cfg.Backfill.Dirichlet.Mean[2], 0.001)

	assert.InDelta(t, 45.0, cfg.Backfill.Beta.Alpha02, 0.001)
	assert.InDelta(t, 5.0, cfg.Backfill.Beta.Beta02, 0.001)
	assert.InDelta(t, 49.0, cfg.Backfill.Beta.Alpha12, 0.001)
	assert.InDelta(t, 1.0, cfg.Backfill.Beta.Beta12, 0.001)

	assert.InDelta(t, 45.0, cfg.Backfill.Hazard.A0, 0.001)
	assert.InDelta(t, 5.0, cfg.Backfill.Hazard.B0, 0.001)
	assert.InDelta(t, 40.0, cfg.Backfill.Hazard.A1, 0.001)
	assert.InDelta(t, 10.0, cfg.Backfill.Hazard.B1, 0.001)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chTempDir(t)

	yaml := `
archive:
  driver: sqlite
  database_url: archive.db
backfill:
  window: 8
  variant: dirichlet
  intervals: true
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Archive.Driver)
	assert.Equal(t, "archive.db", cfg.Archive.DatabaseURL)
	assert.Equal(t, 8, cfg.Backfill.Window)
	assert.Equal(t, "dirichlet", cfg.Backfill.Variant)
	assert.True(t, cfg.Backfill.Intervals)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Backfill.Precision)
	assert.InDelta(t, 45.0, cfg.Backfill.Hazard.A0, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chTempDir(t)

	yaml := `
archive:
  driver: sqlite
backfill:
  variant: dirichlet
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("BACKFILL_ARCHIVE_DRIVER", "postgres")
	t.Setenv("BACKFILL_BACKFILL_VARIANT", "beta")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Archive.Driver)
	assert.Equal(t, "beta", cfg.Backfill.Variant)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chTempDir(t)

	t.Setenv("BACKFILL_BACKFILL_WINDOW", "6")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Backfill.Window)
}

func TestBayesConfig(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	bc := cfg.Backfill.BayesConfig()
	assert.Equal(t, bayes.VariantHazard, bc.Variant)
	assert.InDelta(t, 45.0, bc.Hazard.A0, 0.001)

	// The defaults must always build a valid estimator for every variant.
	for _, variant := range []bayes.Variant{bayes.VariantDirichlet, bayes.VariantBeta, bayes.VariantHazard} {
		bc.Variant = variant
		_, err := bayes.New(bc)
		assert.NoError(t, err)
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

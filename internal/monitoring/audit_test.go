package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAudit_Counters(t *testing.T) {
	a := &Audit{}
	a.AddDroppedRegion()
	a.AddDroppedRegion()
	a.AddRangeViolations(3)
	a.AddIdentityFallback()
	a.AddDegenerateRegion()

	assert.Equal(t, 2, a.DroppedRegions)
	assert.Equal(t, 3, a.RangeViolations)
	assert.Equal(t, 1, a.IdentityFallbacks)
	assert.Equal(t, 1, a.DegenerateRegions)
}

func TestAudit_NilIsSafe(t *testing.T) {
	var a *Audit
	a.AddDroppedRegion()
	a.AddRangeViolations(2)
	a.AddIdentityFallback()
	a.AddDegenerateRegion()
	a.Log()

	rec := a.Record("run-1", "hazard", 4, 51, time.Now(), time.Now())
	assert.Equal(t, "run-1", rec.ID)
	assert.Equal(t, 0, rec.DroppedRegions)
}

func TestAudit_Record(t *testing.T) {
	a := &Audit{DroppedRegions: 1, RangeViolations: 2, IdentityFallbacks: 3, DegenerateRegions: 4}
	started := time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)

	rec := a.Record("run-7", "dirichlet", 4, 51, started, finished)
	assert.Equal(t, "run-7", rec.ID)
	assert.Equal(t, "dirichlet", rec.Variant)
	assert.Equal(t, 4, rec.Window)
	assert.Equal(t, 51, rec.Regions)
	assert.Equal(t, 1, rec.DroppedRegions)
	assert.Equal(t, 2, rec.RangeViolations)
	assert.Equal(t, 3, rec.IdentityFallbacks)
	assert.Equal(t, 4, rec.DegenerateRegions)
	assert.True(t, rec.StartedAt.Equal(started))
	assert.True(t, rec.FinishedAt.Equal(finished))
}

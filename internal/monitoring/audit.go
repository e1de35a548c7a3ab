// Package monitoring collects per-run audit counters. Range violations and
// join fallbacks are recovered locally by the pipeline, but they indicate
// model misfit or retractions in the raw feed, so every run reports how
// often they happened.
package monitoring

import (
	"time"

	"go.uber.org/zap"
)

// Audit accumulates counters over one pipeline run. The pipeline is
// single-threaded, so plain fields suffice. A nil *Audit is valid and
// counts nothing.
type Audit struct {
	DroppedRegions    int // alignment joins that failed across the 3-snapshot window
	RangeViolations   int // completeness fractions clipped into [0,1] or reordered
	IdentityFallbacks int // corrector rows rescaled with p=1 for lack of an estimate
	DegenerateRegions int // regions with zero evidence, resolved to the prior
}

// AddDroppedRegion records one region excluded from an aligned record.
func (a *Audit) AddDroppedRegion() {
	if a != nil {
		a.DroppedRegions++
	}
}

// AddRangeViolations records fractions clipped during estimation.
func (a *Audit) AddRangeViolations(n int) {
	if a != nil {
		a.RangeViolations += n
	}
}

// AddIdentityFallback records one region corrected with p=1.
func (a *Audit) AddIdentityFallback() {
	if a != nil {
		a.IdentityFallbacks++
	}
}

// AddDegenerateRegion records one prior-only estimate.
func (a *Audit) AddDegenerateRegion() {
	if a != nil {
		a.DegenerateRegions++
	}
}

// RunRecord is the persisted audit row for one pipeline run.
type RunRecord struct {
	ID                string    `json:"id"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	Variant           string    `json:"variant"`
	Window            int       `json:"window"`
	Regions           int       `json:"regions"`
	DroppedRegions    int       `json:"dropped_regions"`
	RangeViolations   int       `json:"range_violations"`
	IdentityFallbacks int       `json:"identity_fallbacks"`
	DegenerateRegions int       `json:"degenerate_regions"`
}

// Record builds the persisted row from the accumulated counters.
func (a *Audit) Record(id, variant string, window, regions int, started, finished time.Time) RunRecord {
	rec := RunRecord{
		ID:         id,
		StartedAt:  started,
		FinishedAt: finished,
		Variant:    variant,
		Window:     window,
		Regions:    regions,
	}
	if a != nil {
		rec.DroppedRegions = a.DroppedRegions
		rec.RangeViolations = a.RangeViolations
		rec.IdentityFallbacks = a.IdentityFallbacks
		rec.DegenerateRegions = a.DegenerateRegions
	}
	return rec
}

// Log emits the counters on the global logger.
func (a *Audit) Log() {
	if a == nil {
		return
	}
	zap.L().Info("audit: run counters",
		zap.Int("dropped_regions", a.DroppedRegions),
		zap.Int("range_violations", a.RangeViolations),
		zap.Int("identity_fallbacks", a.IdentityFallbacks),
		zap.Int("degenerate_regions", a.DegenerateRegions),
	)
}

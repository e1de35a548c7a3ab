package model

import "time"

// LagTriple holds the count for one (report date, region) pair as it was
// known at lag 0, 1 and 2 weeks after first release. Counts are usually
// non-decreasing with lag, but retractions in the raw feed do occur and
// are carried through as-is.
type LagTriple struct {
	Lag0 float64 `json:"lag0"`
	Lag1 float64 `json:"lag1"`
	Lag2 float64 `json:"lag2"`
}

// AlignedRecord is the per-region lag triple for one focal report date,
// assembled from three consecutive snapshots. Release is the release date
// of the first snapshot in the triple (the one that introduced FocalDate).
type AlignedRecord struct {
	FocalDate time.Time
	Release   time.Time
	Regions   map[string]LagTriple
	FIPS      map[string]string
}

// EvidenceVector aggregates one region's lag increments over the trailing
// window. Z0..Z2 are summed increments (reports newly surfacing at each lag
// step); Y0..Y2 are summed cumulative counts at each lag. Increments are
// not clamped here, so retractions can make Z1 or Z2 negative. The two
// views coexist because the model variants consume different ones: the
// Dirichlet and hazard variants update on increments, the beta-binomial
// lag-1 submodel updates on the cumulative Y1.
type EvidenceVector struct {
	Z0, Z1, Z2 float64
	Y0, Y1, Y2 float64
}

// N is the total evidence count, the summed final (lag-2) count over the
// window. Equal to Z0+Z1+Z2 by construction.
func (e EvidenceVector) N() float64 { return e.Z0 + e.Z1 + e.Z2 }

// Window marks the focal-date bounds of the aligned records an estimate
// was derived from.
type Window struct {
	Start time.Time `json:"start_backfill_window"`
	End   time.Time `json:"end_backfill_window"`
}

// Interval is a posterior credible interval (5th/50th/95th percentiles).
type Interval struct {
	Low    float64 `json:"low"`
	Median float64 `json:"median"`
	High   float64 `json:"high"`
}

// Estimate is the per-region completeness estimate: P02 is the fraction of
// the eventual final count visible at lag 0, P12 the fraction visible at
// lag 1. Both are rounded and clipped to [0,1] with P02 <= P12. Intervals
// are nil when the selected variant has no closed form for them.
type Estimate struct {
	Region      string    `json:"name_state"`
	FIPS        string    `json:"fips_state"`
	P02         float64   `json:"p_02"`
	P12         float64   `json:"p_12"`
	P02Interval *Interval `json:"p_02_interval,omitempty"`
	P12Interval *Interval `json:"p_12_interval,omitempty"`
	Window      Window    `json:"window"`
}

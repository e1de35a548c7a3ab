// Package model defines the data types shared across the backfill pipeline.
package model

import (
	"sort"
	"time"
)

// Row is one (report date, region, count) observation within a snapshot.
type Row struct {
	Date       time.Time `json:"date"`
	Region     string    `json:"name_state"`
	FIPS       string    `json:"fips_state"`
	Admissions float64   `json:"influenza_admissions"`
}

// Snapshot is one archived release of the preliminary admissions series:
// every (report date, region) count as it was known at the release date.
// Snapshots are immutable once loaded; pipeline stages derive new tables
// instead of mutating them.
type Snapshot struct {
	Release time.Time `json:"release"`
	Rows    []Row     `json:"rows"`
}

// LatestDate returns the most recent report date present in the snapshot,
// i.e. the week this release first reports on. Zero time if the snapshot
// is empty.
func (s Snapshot) LatestDate() time.Time {
	var latest time.Time
	for _, r := range s.Rows {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	return latest
}

// SecondLatestDate returns the second most recent report date present in
// the snapshot. ok is false when the snapshot covers fewer than two dates.
func (s Snapshot) SecondLatestDate() (time.Time, bool) {
	dates := s.Dates()
	if len(dates) < 2 {
		return time.Time{}, false
	}
	return dates[len(dates)-2], true
}

// Dates returns the distinct report dates in the snapshot, ascending.
func (s Snapshot) Dates() []time.Time {
	seen := make(map[time.Time]struct{})
	for _, r := range s.Rows {
		seen[r.Date] = struct{}{}
	}
	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// AtDate returns the rows reporting on the given date, keyed by region.
func (s Snapshot) AtDate(d time.Time) map[string]Row {
	rows := make(map[string]Row)
	for _, r := range s.Rows {
		if r.Date.Equal(d) {
			rows[r.Region] = r
		}
	}
	return rows
}

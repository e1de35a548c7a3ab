package pipeline

import (
	"time"

	"github.com/bentolab/nhsn-backfill/internal/model"
)

// week returns the n-th weekly date of the synthetic season.
func week(n int) time.Time {
	return time.Date(2025, 10, 4, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 7*n)
}

// snap builds a single-region snapshot released one day after its most
// recent report week.
func snap(region, fips string, counts map[int]float64) model.Snapshot {
	latest := 0
	s := model.Snapshot{}
	for n, c := range counts {
		s.Rows = append(s.Rows, model.Row{
			Date:       week(n),
			Region:     region,
			FIPS:       fips,
			Admissions: c,
		})
		if n > latest {
			latest = n
		}
	}
	s.Release = week(latest).AddDate(0, 0, 1)
	return s
}

// merge combines per-region snapshots for the same release.
func merge(snaps ...model.Snapshot) model.Snapshot {
	out := snaps[0]
	for _, s := range snaps[1:] {
		out.Rows = append(out.Rows, s.Rows...)
	}
	return out
}

// scenarioSnapshots is the synthetic five-snapshot history whose aligned
// lag triples are (100,105,110), (90,95,100), (80,85,90):
// Z0 = 270, Z1 = 15, Z2 = 15, N = 300.
func scenarioSnapshots(region, fips string) []model.Snapshot {
	return []model.Snapshot{
		snap(region, fips, map[int]float64{0: 100}),
		snap(region, fips, map[int]float64{0: 105, 1: 90}),
		snap(region, fips, map[int]float64{0: 110, 1: 95, 2: 80}),
		snap(region, fips, map[int]float64{1: 100, 2: 85, 3: 70}),
		snap(region, fips, map[int]float64{2: 90, 3: 75, 4: 60}),
	}
}

package pipeline

import (
	"go.uber.org/zap"

	"github.com/bentolab/nhsn-backfill/internal/model"
	"github.com/bentolab/nhsn-backfill/internal/monitoring"
)

// Correct rescales the two most recent report dates of the latest snapshot
// by the matching region's completeness fractions: the newest week is
// divided by p_02, the week before by p_12. Older rows pass through
// unchanged. The input snapshot is never mutated.
//
// Join policy: a region present in the snapshot but absent from the
// estimate set gets an identity correction (p=1), warn-logged and counted
// on the audit. This is applied uniformly; the run never aborts over one
// unestimable region. The same fallback covers a fraction that rounded all
// the way to zero, which would otherwise blow the division up.
func Correct(latest model.Snapshot, estimates map[string]model.Estimate, audit *monitoring.Audit) model.Snapshot {
	latestDate := latest.LatestDate()
	prevDate, hasPrev := latest.SecondLatestDate()

	log := zap.L().With(zap.String("stage", "correct"))
	warned := make(map[string]bool)

	factor := func(region string, p float64, ok bool) float64 {
		if !ok || p <= 0 {
			if !warned[region] {
				log.Warn("correct: no usable estimate for region, applying identity correction",
					zap.String("region", region),
					zap.Bool("estimate_present", ok),
				)
				warned[region] = true
				audit.AddIdentityFallback()
			}
			return 1
		}
		return p
	}

	out := model.Snapshot{
		Release: latest.Release,
		Rows:    make([]model.Row, len(latest.Rows)),
	}
	for i, row := range latest.Rows {
		est, ok := estimates[row.Region]
		switch {
		case row.Date.Equal(latestDate):
			row.Admissions /= factor(row.Region, est.P02, ok)
		case hasPrev && row.Date.Equal(prevDate):
			row.Admissions /= factor(row.Region, est.P12, ok)
		}
		out.Rows[i] = row
	}
	return out
}

// Package pipeline implements the backfill chain: align archived snapshots,
// aggregate lag increments over a trailing window, estimate completeness,
// and rescale the latest release.
package pipeline

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bentolab/nhsn-backfill/internal/model"
	"github.com/bentolab/nhsn-backfill/internal/monitoring"
)

// ErrInsufficientHistory means the archive cannot support the configured
// window: fewer than 3 snapshots, or fewer aligned records than the window
// asks for. Fatal; estimating from a silently shortened window would make
// runs incomparable.
var ErrInsufficientHistory = eris.New("insufficient archive history")

// Align reconstructs, for every consecutive snapshot triple, how the focal
// report date's counts evolved at lag 0, 1 and 2. The focal date of triple
// (Si, Si+1, Si+2) is the most recent report date in Si. Regions that
// cannot be joined across all three snapshots are dropped from that record
// and counted on the audit; the run continues.
//
// Snapshots must be ordered chronologically by release. Deterministic:
// O(n*R) with no randomness.
func Align(snaps []model.Snapshot, audit *monitoring.Audit) ([]model.AlignedRecord, error) {
	if len(snaps) < 3 {
		return nil, eris.Wrapf(ErrInsufficientHistory, "align: need at least 3 snapshots, have %d", len(snaps))
	}

	log := zap.L().With(zap.String("stage", "align"))

	records := make([]model.AlignedRecord, 0, len(snaps)-2)
	for i := 0; i+2 < len(snaps); i++ {
		focal := snaps[i].LatestDate()
		at0 := snaps[i].AtDate(focal)
		at1 := snaps[i+1].AtDate(focal)
		at2 := snaps[i+2].AtDate(focal)

		rec := model.AlignedRecord{
			FocalDate: focal,
			Release:   snaps[i].Release,
			Regions:   make(map[string]model.LagTriple, len(at0)),
			FIPS:      make(map[string]string, len(at0)),
		}
		for region, r0 := range at0 {
			r1, ok1 := at1[region]
			r2, ok2 := at2[region]
			if !ok1 || !ok2 {
				log.Warn("align: region missing in later snapshot, dropping from record",
					zap.String("region", region),
					zap.Time("focal_date", focal),
					zap.Bool("present_lag1", ok1),
					zap.Bool("present_lag2", ok2),
				)
				audit.AddDroppedRegion()
				continue
			}
			rec.Regions[region] = model.LagTriple{
				Lag0: r0.Admissions,
				Lag1: r1.Admissions,
				Lag2: r2.Admissions,
			}
			rec.FIPS[region] = r0.FIPS
		}
		records = append(records, rec)
	}

	return records, nil
}

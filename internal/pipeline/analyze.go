package pipeline

import (
	"math"
	"sort"
	"time"

	"github.com/bentolab/nhsn-backfill/internal/model"
)

// RelativeAdjustment is one row of the backfill trend table: the percent
// change of a focal week's count after one and two weeks of backfilling,
// relative to its initial release.
type RelativeAdjustment struct {
	FocalDate time.Time
	Region    string
	FIPS      string
	RelWeek1  float64 // percent, rounded to 0.1
	RelWeek2  float64
	Valid     bool // false when the lag-0 count was zero
}

// RelativeAdjustments converts aligned records into the trend table used to
// inspect how much the feed backfills. Rows are ordered by focal date, then
// region.
func RelativeAdjustments(records []model.AlignedRecord) []RelativeAdjustment {
	var out []RelativeAdjustment
	for _, rec := range records {
		for region, t := range rec.Regions {
			adj := RelativeAdjustment{
				FocalDate: rec.FocalDate,
				Region:    region,
				FIPS:      rec.FIPS[region],
			}
			if t.Lag0 != 0 {
				adj.RelWeek1 = roundTenth((t.Lag1 - t.Lag0) / t.Lag0 * 100)
				adj.RelWeek2 = roundTenth((t.Lag2 - t.Lag0) / t.Lag0 * 100)
				adj.Valid = true
			}
			out = append(out, adj)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FocalDate.Equal(out[j].FocalDate) {
			return out[i].FocalDate.Before(out[j].FocalDate)
		}
		return out[i].Region < out[j].Region
	})
	return out
}

func roundTenth(x float64) float64 {
	return math.Round(x*10) / 10
}

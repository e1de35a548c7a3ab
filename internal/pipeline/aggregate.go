package pipeline

import (
	"github.com/rotisserie/eris"

	"github.com/bentolab/nhsn-backfill/internal/model"
)

// Evidence is the aggregated output of one trailing window: one evidence
// vector per region that appeared in at least one aligned record.
type Evidence struct {
	Vectors map[string]model.EvidenceVector
	FIPS    map[string]string
	Window  model.Window
	Records int
}

// Aggregate sums lag increments over the trailing `window` aligned records
// (window counts aligned records, not raw snapshot files; 0 means all
// available). Increments are not clamped here: a retraction shows up as a
// negative Z1 or Z2 and it is the estimator's job to stay well-defined.
func Aggregate(records []model.AlignedRecord, window int) (*Evidence, error) {
	if window < 0 {
		return nil, eris.Errorf("aggregate: window must be non-negative, got %d", window)
	}
	if len(records) == 0 {
		return nil, eris.Wrap(ErrInsufficientHistory, "aggregate: no aligned records")
	}
	if window > 0 && len(records) < window {
		return nil, eris.Wrapf(ErrInsufficientHistory, "aggregate: window of %d but only %d aligned records", window, len(records))
	}

	tail := records
	if window > 0 {
		tail = records[len(records)-window:]
	}

	ev := &Evidence{
		Vectors: make(map[string]model.EvidenceVector),
		FIPS:    make(map[string]string),
		Window: model.Window{
			Start: tail[0].FocalDate,
			End:   tail[len(tail)-1].FocalDate,
		},
		Records: len(tail),
	}

	for _, rec := range tail {
		for region, t := range rec.Regions {
			v := ev.Vectors[region]
			v.Z0 += t.Lag0
			v.Z1 += t.Lag1 - t.Lag0
			v.Z2 += t.Lag2 - t.Lag1
			v.Y0 += t.Lag0
			v.Y1 += t.Lag1
			v.Y2 += t.Lag2
			ev.Vectors[region] = v
			if fips, ok := rec.FIPS[region]; ok && fips != "" {
				ev.FIPS[region] = fips
			}
		}
	}

	return ev, nil
}

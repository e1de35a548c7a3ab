package pipeline

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bentolab/nhsn-backfill/internal/bayes"
	"github.com/bentolab/nhsn-backfill/internal/model"
	"github.com/bentolab/nhsn-backfill/internal/monitoring"
)

// Pipeline wires the stages together with an estimator and a window length.
// It is stateless across runs: every Run consumes a freshly loaded snapshot
// sequence and derives new tables.
type Pipeline struct {
	Estimator bayes.Estimator
	Window    int // trailing aligned records; 0 = all available
	Precision int // decimal places for the completeness fractions
	Audit     *monitoring.Audit
}

// Result holds everything one run produces.
type Result struct {
	Estimates []model.Estimate          // sorted by FIPS, the audit artifact
	ByRegion  map[string]model.Estimate // join index for the corrector
	Corrected model.Snapshot
	Window    model.Window
}

// Estimates runs align -> aggregate -> estimate and returns the per-region
// completeness estimates.
func (p *Pipeline) Estimates(snaps []model.Snapshot) ([]model.Estimate, map[string]model.Estimate, model.Window, error) {
	records, err := Align(snaps, p.Audit)
	if err != nil {
		return nil, nil, model.Window{}, err
	}

	ev, err := Aggregate(records, p.Window)
	if err != nil {
		return nil, nil, model.Window{}, err
	}

	regions := make([]string, 0, len(ev.Vectors))
	for region := range ev.Vectors {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	byRegion := make(map[string]model.Estimate, len(regions))
	estimates := make([]model.Estimate, 0, len(regions))
	for _, region := range regions {
		vec := ev.Vectors[region]
		if vec.N() <= 0 {
			// Zero evidence: the posterior is exactly the prior.
			p.Audit.AddDegenerateRegion()
		}
		post := p.Estimator.Posterior(vec)
		fin, violations := bayes.Finalize(post, p.Precision)
		if violations > 0 {
			zap.L().Warn("estimate: completeness fraction out of range, clipped",
				zap.String("region", region),
				zap.Int("violations", violations),
				zap.Float64("raw_p02", post.P02),
				zap.Float64("raw_p12", post.P12),
			)
			p.Audit.AddRangeViolations(violations)
		}
		est := model.Estimate{
			Region:      region,
			FIPS:        ev.FIPS[region],
			P02:         fin.P02,
			P12:         fin.P12,
			P02Interval: fin.P02Interval,
			P12Interval: fin.P12Interval,
			Window:      ev.Window,
		}
		byRegion[region] = est
		estimates = append(estimates, est)
	}

	sort.Slice(estimates, func(i, j int) bool {
		if estimates[i].FIPS != estimates[j].FIPS {
			return estimates[i].FIPS < estimates[j].FIPS
		}
		return estimates[i].Region < estimates[j].Region
	})

	zap.L().Info("estimate: completeness estimated",
		zap.String("variant", string(p.Estimator.Variant())),
		zap.Int("regions", len(estimates)),
		zap.Int("aligned_records", ev.Records),
		zap.Time("window_start", ev.Window.Start),
		zap.Time("window_end", ev.Window.End),
	)

	return estimates, byRegion, ev.Window, nil
}

// Run executes the full chain and rescales the most recent snapshot.
func (p *Pipeline) Run(snaps []model.Snapshot) (*Result, error) {
	if len(snaps) == 0 {
		return nil, eris.Wrap(ErrInsufficientHistory, "run: empty archive")
	}

	estimates, byRegion, window, err := p.Estimates(snaps)
	if err != nil {
		return nil, err
	}

	latest := snaps[len(snaps)-1]
	corrected := Correct(latest, byRegion, p.Audit)

	return &Result{
		Estimates: estimates,
		ByRegion:  byRegion,
		Corrected: corrected,
		Window:    window,
	}, nil
}

// Package bayes implements the conjugate completeness models. Each variant
// maps one region's evidence vector to a posterior over the completeness
// fractions p_02 (visible at lag 0) and p_12 (visible at lag 1), in closed
// form. With zero evidence the posterior equals the prior; the prior's
// concentration keeps every denominator positive.
package bayes

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/bentolab/nhsn-backfill/internal/model"
)

// Variant selects one of the interchangeable model formulations.
type Variant string

const (
	// VariantDirichlet is the joint Dirichlet-multinomial model over the
	// three lag buckets.
	VariantDirichlet Variant = "dirichlet"
	// VariantBeta is the pair of independent Beta-binomial thinning models,
	// one per lag transition.
	VariantBeta Variant = "beta"
	// VariantHazard is the generalized-Dirichlet sequential-hazard model:
	// independent Beta hazards for "reported immediately" and "reported in
	// week 1 given not yet reported".
	VariantHazard Variant = "hazard"
)

// Posterior is a raw posterior summary, before rounding and clipping.
// Intervals are nil when the variant has no closed-form quantile for the
// quantity.
type Posterior struct {
	P02         float64
	P12         float64
	P02Interval *model.Interval
	P12Interval *model.Interval
}

// Estimator maps an evidence vector to its posterior summary.
type Estimator interface {
	Variant() Variant
	Posterior(ev model.EvidenceVector) Posterior
}

// DirichletPrior parameterizes the joint variant. Either Alpha is given
// directly, or it is derived as Kappa * Mean.
type DirichletPrior struct {
	Kappa float64    `yaml:"kappa" mapstructure:"kappa"`
	Mean  [3]float64 `yaml:"mean" mapstructure:"mean"`
	Alpha [3]float64 `yaml:"alpha" mapstructure:"alpha"`
}

// Alphas resolves the concentration parameters, preferring an explicit
// Alpha over the Kappa*Mean form.
func (p DirichletPrior) Alphas() [3]float64 {
	if p.Alpha[0] > 0 || p.Alpha[1] > 0 || p.Alpha[2] > 0 {
		return p.Alpha
	}
	return [3]float64{p.Kappa * p.Mean[0], p.Kappa * p.Mean[1], p.Kappa * p.Mean[2]}
}

// BetaPrior parameterizes the independent Beta-binomial variant.
type BetaPrior struct {
	Alpha02 float64 `yaml:"alpha_02" mapstructure:"alpha_02"`
	Beta02  float64 `yaml:"beta_02" mapstructure:"beta_02"`
	Alpha12 float64 `yaml:"alpha_12" mapstructure:"alpha_12"`
	Beta12  float64 `yaml:"beta_12" mapstructure:"beta_12"`
}

// HazardPrior parameterizes the sequential-hazard variant.
type HazardPrior struct {
	A0 float64 `yaml:"a0" mapstructure:"a0"`
	B0 float64 `yaml:"b0" mapstructure:"b0"`
	A1 float64 `yaml:"a1" mapstructure:"a1"`
	B1 float64 `yaml:"b1" mapstructure:"b1"`
}

// Config selects a variant and its prior.
type Config struct {
	Variant   Variant
	Intervals bool
	Dirichlet DirichletPrior
	Beta      BetaPrior
	Hazard    HazardPrior
}

// New builds the estimator for the configured variant.
func New(cfg Config) (Estimator, error) {
	switch cfg.Variant {
	case VariantDirichlet:
		a := cfg.Dirichlet.Alphas()
		if a[0]+a[1]+a[2] <= 0 {
			return nil, eris.New("bayes: dirichlet prior must have positive total concentration")
		}
		return &dirichletEstimator{alpha: a, intervals: cfg.Intervals}, nil
	case VariantBeta:
		p := cfg.Beta
		if p.Alpha02 <= 0 || p.Beta02 <= 0 || p.Alpha12 <= 0 || p.Beta12 <= 0 {
			return nil, eris.New("bayes: beta prior parameters must be positive")
		}
		return &betaEstimator{prior: p, intervals: cfg.Intervals}, nil
	case VariantHazard:
		p := cfg.Hazard
		if p.A0 <= 0 || p.B0 <= 0 || p.A1 <= 0 || p.B1 <= 0 {
			return nil, eris.New("bayes: hazard prior parameters must be positive")
		}
		return &hazardEstimator{prior: p, intervals: cfg.Intervals}, nil
	default:
		return nil, eris.Errorf("bayes: unknown model variant %q", cfg.Variant)
	}
}

// Finalize applies the shared numeric policy to a raw posterior: round to
// the given number of decimal places, clip to [0,1], and raise P12 to P02
// if the independent submodels crossed. The input is left untouched;
// intervals are copied before rounding. Returns the finalized posterior and
// the number of range violations encountered (values clipped or reordered),
// which callers surface for audit. Violations indicate model misfit or a
// retraction in the raw feed; they are never errors.
func Finalize(p Posterior, precision int) (Posterior, int) {
	violations := 0
	out := Posterior{
		P02: roundTo(p.P02, precision),
		P12: roundTo(p.P12, precision),
	}
	if out.P02 < 0 || out.P02 > 1 {
		out.P02 = clip01(out.P02)
		violations++
	}
	if out.P12 < 0 || out.P12 > 1 {
		out.P12 = clip01(out.P12)
		violations++
	}
	if out.P02 > out.P12 {
		out.P12 = out.P02
		violations++
	}
	out.P02Interval = finalizeInterval(p.P02Interval, precision)
	out.P12Interval = finalizeInterval(p.P12Interval, precision)
	return out, violations
}

func finalizeInterval(iv *model.Interval, precision int) *model.Interval {
	if iv == nil {
		return nil
	}
	return &model.Interval{
		Low:    clip01(roundTo(iv.Low, precision)),
		Median: clip01(roundTo(iv.Median, precision)),
		High:   clip01(roundTo(iv.High, precision)),
	}
}

func roundTo(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}

func clip01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// betaInterval returns the 5th/50th/95th percentiles of Beta(a, b), or nil
// when the parameters are degenerate (a concentration of zero can occur
// when both the prior and the evidence put no mass on a bucket).
func betaInterval(a, b float64) *model.Interval {
	if a <= 0 || b <= 0 {
		return nil
	}
	dist := distuv.Beta{Alpha: a, Beta: b}
	return &model.Interval{
		Low:    dist.Quantile(0.05),
		Median: dist.Quantile(0.50),
		High:   dist.Quantile(0.95),
	}
}

// successes/failures clamp evidence counts at zero so that retractions
// (negative increments) never produce a Beta posterior with a nonpositive
// parameter.
func nonneg(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

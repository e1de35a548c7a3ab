package bayes

import "github.com/bentolab/nhsn-backfill/internal/model"

// betaEstimator runs two independent binomial-thinning submodels, one per
// lag transition:
//
//	p_02 ~ Beta(a02, b02), Z0 ~ Binomial(N, p_02)
//	p_12 ~ Beta(a12, b12), Y1 ~ Binomial(N, p_12)
//
// The lag-1 submodel deliberately updates on the cumulative lag-1 count Y1,
// not the increment Z1: p_12 is the fraction of the final count visible at
// lag 1, and everything visible at lag 0 is still visible at lag 1.
// Posterior means are a/(a+b); intervals come from the Beta quantile
// function.
type betaEstimator struct {
	prior     BetaPrior
	intervals bool
}

func (e *betaEstimator) Variant() Variant { return VariantBeta }

func (e *betaEstimator) Posterior(ev model.EvidenceVector) Posterior {
	n := ev.N()

	// Clamp both successes and failures at zero: a retraction can push the
	// lag-0 count above the final count, and a negative failure count would
	// give the posterior a nonpositive Beta parameter.
	a02 := e.prior.Alpha02 + nonneg(ev.Z0)
	b02 := e.prior.Beta02 + nonneg(n-ev.Z0)
	a12 := e.prior.Alpha12 + nonneg(ev.Y1)
	b12 := e.prior.Beta12 + nonneg(n-ev.Y1)

	p := Posterior{
		P02: a02 / (a02 + b02),
		P12: a12 / (a12 + b12),
	}
	if e.intervals {
		p.P02Interval = betaInterval(a02, b02)
		p.P12Interval = betaInterval(a12, b12)
	}
	return p
}

package bayes

import "github.com/bentolab/nhsn-backfill/internal/model"

// hazardEstimator is the generalized-Dirichlet sequential-hazard model:
//
//	v0 ~ Beta(a0, b0)   hazard of being reported immediately
//	v1 ~ Beta(a1, b1)   hazard of being reported in week 1, given not yet
//
// Conjugate updates on the window increments:
//
//	v0 | Z ~ Beta(a0 + Z0, b0 + (N - Z0))
//	v1 | Z ~ Beta(a1 + Z1, b1 + (N - Z0 - Z1))
//
// giving p_02 = E[v0] and p_12 = 1 - (1-E[v0])(1-E[v1]). Only p_02 has a
// Beta marginal, so no closed-form interval is reported for p_12.
type hazardEstimator struct {
	prior     HazardPrior
	intervals bool
}

func (e *hazardEstimator) Variant() Variant { return VariantHazard }

func (e *hazardEstimator) Posterior(ev model.EvidenceVector) Posterior {
	n := ev.N()

	a0 := e.prior.A0 + nonneg(ev.Z0)
	b0 := e.prior.B0 + nonneg(n-ev.Z0)
	a1 := e.prior.A1 + nonneg(ev.Z1)
	b1 := e.prior.B1 + nonneg(n-ev.Z0-ev.Z1)

	v0 := a0 / (a0 + b0)
	v1 := a1 / (a1 + b1)

	p := Posterior{
		P02: v0,
		P12: 1 - (1-v0)*(1-v1),
	}
	if e.intervals {
		p.P02Interval = betaInterval(a0, b0)
	}
	return p
}

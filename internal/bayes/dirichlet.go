package bayes

import "github.com/bentolab/nhsn-backfill/internal/model"

// dirichletEstimator is the joint three-bucket model:
//
//	(pi0, pi1, pi2) ~ Dirichlet(alpha0, alpha1, alpha2)
//	(Z0, Z1, Z2)    ~ Multinomial(N, pi)
//
// Conjugacy gives the posterior Dirichlet(alpha + Z) exactly, so the point
// estimates are posterior means, not simulated approximations:
//
//	p_02 = E[pi0], p_12 = E[pi0] + E[pi1]
//
// Credible intervals use the Dirichlet aggregation property: pi0 is
// marginally Beta(alpha0', alpha1'+alpha2') and pi0+pi1 is
// Beta(alpha0'+alpha1', alpha2').
type dirichletEstimator struct {
	alpha     [3]float64
	intervals bool
}

func (e *dirichletEstimator) Variant() Variant { return VariantDirichlet }

func (e *dirichletEstimator) Posterior(ev model.EvidenceVector) Posterior {
	// Retraction guard: a negative increment would make a concentration
	// parameter negative, which is not a distribution.
	a0 := e.alpha[0] + nonneg(ev.Z0)
	a1 := e.alpha[1] + nonneg(ev.Z1)
	a2 := e.alpha[2] + nonneg(ev.Z2)
	total := a0 + a1 + a2

	p := Posterior{
		P02: a0 / total,
		P12: (a0 + a1) / total,
	}
	if e.intervals {
		p.P02Interval = betaInterval(a0, a1+a2)
		p.P12Interval = betaInterval(a0+a1, a2)
	}
	return p
}

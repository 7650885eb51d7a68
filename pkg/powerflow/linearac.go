package powerflow

import (
	"math/cmplx"
	"time"
)

// LinearAC performs exactly one Newton step from the flat voltage profile:
// a linearized AC solve. Useful as a cheap approximation or as a seed for
// the nonlinear methods. Converged reports whether the single step happened
// to land within tolerance, which it only does for nearly linear networks.
type LinearAC struct{}

func (LinearAC) Name() string { return "LinearAC" }

func (LinearAC) Solve(p *Problem) Solution {
	start := time.Now()

	flat := &Problem{
		Ybus: p.Ybus, Sbus: p.Sbus, Ibus: p.Ibus,
		V0:  flatProfile(p),
		Ref: p.Ref, PV: p.PV, PQ: p.PQ, PQPV: p.PQPV,
		Tol: p.Tol, MaxIter: 1,
		Registry: p.Registry, Backend: p.Backend,
		Verbose: p.Verbose,
	}
	sol := NewtonRaphson{}.Solve(flat)
	sol.Elapsed = time.Since(start)
	return sol
}

// flatProfile is 1 per unit at PQ buses, the magnitude set point at zero
// angle at PV buses, and the exact set point at the slack.
func flatProfile(p *Problem) []complex128 {
	V := make([]complex128, len(p.V0))
	for i := range V {
		V[i] = 1
	}
	for _, b := range p.PV {
		V[b] = complex(cmplx.Abs(p.V0[b]), 0)
	}
	for _, b := range p.Ref {
		V[b] = p.V0[b]
	}
	return V
}

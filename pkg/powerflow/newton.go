package powerflow

import (
	"fmt"
	"math/cmplx"
	"time"
)

// NewtonRaphson is the full Newton method: exact Jacobian, one sparse
// factorization per iteration, quadratic convergence near the solution.
type NewtonRaphson struct{}

func (NewtonRaphson) Name() string { return "NR" }

func (NewtonRaphson) Solve(p *Problem) Solution {
	start := time.Now()

	V, dS, normF, done := p.startState()
	if done {
		return Solution{V: V, Converged: true, Error: normF, Elapsed: time.Since(start)}
	}

	npvpq := len(p.PQPV)
	npq := len(p.PQ)
	nUnk := npvpq + npq
	if nUnk == 0 {
		// nothing to solve and the slack residual is not part of the norm
		return Solution{V: V, Converged: true, Error: normF, Elapsed: time.Since(start)}
	}

	sys, err := p.Registry.New(p.backend(), nUnk, false)
	if err != nil {
		return Solution{V: V, Error: normF, Elapsed: time.Since(start)}
	}
	defer sys.Destroy()

	vm, va := magAngle(V)
	pvpqLk := indexLookup(len(V), p.PQPV)
	pqLk := indexLookup(len(V), p.PQ)
	rhs := make([]float64, nUnk)

	sol := Solution{}
	for iter := 1; iter <= p.MaxIter; iter++ {
		sys.Clear()
		dVm, dVa := DSbusDV(p.Ybus, V)
		stampJacobian(sys, p.Ybus, dVm, dVa, pvpqLk, pqLk, npvpq)

		for i, b := range p.PQPV {
			rhs[i] = -real(dS[b])
		}
		for i, b := range p.PQ {
			rhs[npvpq+i] = -imag(dS[b])
		}

		// a singular Jacobian aborts this attempt; the caller may retry
		// with another method
		if err := sys.Factor(); err != nil {
			if p.Verbose > 0 {
				fmt.Printf("NR: %v\n", err)
			}
			break
		}
		dx, err := sys.Solve(rhs)
		if err != nil {
			break
		}

		for i, b := range p.PQPV {
			va[b] += dx[i]
		}
		for i, b := range p.PQ {
			vm[b] += dx[npvpq+i]
		}
		for _, b := range p.PQPV {
			V[b] = cmplx.Rect(vm[b], va[b])
		}

		dS = Mismatch(p.Ybus, V, p.Sbus, p.Ibus)
		normF = ErrorNorm(dS, p.PV, p.PQ)
		sol.Iterations = iter
		sol.Trace = append(sol.Trace, normF)
		if p.Verbose > 1 {
			fmt.Printf("NR iteration %d error %g\n", iter, normF)
		}
		if normF < p.Tol {
			sol.Converged = true
			break
		}
	}

	sol.V = V
	sol.Error = normF
	sol.Elapsed = time.Since(start)
	return sol
}

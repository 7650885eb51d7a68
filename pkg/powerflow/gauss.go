package powerflow

import (
	"fmt"
	"math/cmplx"
	"time"
)

// GaussSeidel updates one bus voltage at a time, in index order, reading the
// voltages already updated this sweep. Slow but simple and tolerant of poor
// starting points; needs no linear solver at all.
type GaussSeidel struct{}

func (GaussSeidel) Name() string { return "GS" }

func (GaussSeidel) Solve(p *Problem) Solution {
	start := time.Now()

	V, _, normF, done := p.startState()
	if done {
		return Solution{V: V, Converged: true, Error: normF, Elapsed: time.Since(start)}
	}

	// local copy: PV reactive power is replaced every sweep
	S := append([]complex128(nil), p.Sbus...)
	ydiag := p.Ybus.Diagonal()
	vmSet := make([]float64, len(V))
	for _, b := range p.PV {
		vmSet[b] = cmplx.Abs(p.V0[b])
	}

	rowCurrent := func(b int) complex128 {
		cols, vals := p.Ybus.Row(b)
		var sum complex128
		for k, j := range cols {
			sum += vals[k] * V[j]
		}
		return sum
	}

	sol := Solution{}
	for iter := 1; iter <= p.MaxIter; iter++ {
		for _, b := range p.PQ {
			V[b] += (cmplx.Conj(S[b]/V[b]) - rowCurrent(b)) / ydiag[b]
		}
		for _, b := range p.PV {
			// match Q to the magnitude set point, then rescale
			q := imag(V[b] * cmplx.Conj(rowCurrent(b)))
			S[b] = complex(real(S[b]), q)
			V[b] += (cmplx.Conj(S[b]/V[b]) - rowCurrent(b)) / ydiag[b]
			V[b] = complex(vmSet[b], 0) * V[b] / complex(cmplx.Abs(V[b]), 0)
		}

		dS := Mismatch(p.Ybus, V, S, p.Ibus)
		normF = ErrorNorm(dS, p.PV, p.PQ)
		sol.Iterations = iter
		sol.Trace = append(sol.Trace, normF)
		if p.Verbose > 1 {
			fmt.Printf("GS iteration %d error %g\n", iter, normF)
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

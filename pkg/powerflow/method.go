// Package powerflow implements the steady-state AC power-flow methods and
// the orchestration that runs them per electrical island.
package powerflow

import (
	"math/cmplx"
	"time"

	"github.com/edp1096/gridflow/pkg/matrix"
	"github.com/edp1096/gridflow/pkg/spmat"
)

// Problem is the per-island input shared by all methods. Index sets come
// from topology.Classify; V0 is the starting voltage (flat or warm).
type Problem struct {
	Ybus              *spmat.CMatrix
	Sbus, Ibus, V0    []complex128
	Ref, PV, PQ, PQPV []int
	Tol               float64
	MaxIter           int
	MaxCoeff          int // series order cap, holomorphic embedding only
	Registry          *matrix.Registry
	Backend           string
	Verbose           int
}

// Solution is the outcome of one method run. Non-convergence is a normal
// outcome, not an error: Converged is false and V holds the best estimate.
type Solution struct {
	V          []complex128
	Converged  bool
	Error      float64
	Iterations int
	Elapsed    time.Duration
	Trace      []float64 // mismatch norm after each iteration
}

// Method is one power-flow solver variant.
type Method interface {
	Name() string
	Solve(p *Problem) Solution
}

// startState copies the initial voltage and evaluates the mismatch at it.
// Every method checks this before iterating: a V0 already below tolerance
// returns immediately with zero iterations and V0 untouched.
func (p *Problem) startState() ([]complex128, []complex128, float64, bool) {
	V := append([]complex128(nil), p.V0...)
	dS := Mismatch(p.Ybus, V, p.Sbus, p.Ibus)
	normF := ErrorNorm(dS, p.PV, p.PQ)
	return V, dS, normF, normF < p.Tol
}

func (p *Problem) backend() string {
	if p.Backend == "" {
		return matrix.LU
	}
	return p.Backend
}

func magAngle(V []complex128) ([]float64, []float64) {
	vm := make([]float64, len(V))
	va := make([]float64, len(V))
	for i, v := range V {
		vm[i] = cmplx.Abs(v)
		va[i] = cmplx.Phase(v)
	}
	return vm, va
}

package powerflow

import (
	"math/cmplx"
	"time"

	"github.com/edp1096/gridflow/pkg/grid"
)

// IslandDiag is the per-island outcome. Isolated islands are trivially
// converged but flagged so reporting can tell them apart from genuinely
// solved ones; Err carries configuration failures (no voltage reference).
type IslandDiag struct {
	Buses      []int
	Method     string
	Converged  bool
	Error      float64
	Iterations int
	Isolated   bool
	Err        error
}

// Results is the reassembled outcome of a full multi-island solve.
// Converged is true iff every island converged; Error and Iterations are the
// per-island maxima.
type Results struct {
	V          []complex128
	Converged  bool
	Error      float64
	Iterations int
	Elapsed    time.Duration

	Scalc  []complex128 // calculated power injection at the solution
	Sf, St []complex128 // branch power flows at the from/to ends, if Yf/Yt present

	Islands []IslandDiag
	Report  *ConvergenceReport
}

// VoltageMagnitudes returns |V| per bus.
func (r *Results) VoltageMagnitudes() []float64 {
	vm := make([]float64, len(r.V))
	for i, v := range r.V {
		vm[i] = cmplx.Abs(v)
	}
	return vm
}

// VoltageAngles returns the voltage angles in radians.
func (r *Results) VoltageAngles() []float64 {
	va := make([]float64, len(r.V))
	for i, v := range r.V {
		va[i] = cmplx.Phase(v)
	}
	return va
}

// branchFlows computes Sf and St from the branch admittance matrices.
func branchFlows(nc *grid.NumericalCircuit, V []complex128) (sf, st []complex128) {
	if nc.Yf == nil || nc.Yt == nil {
		return nil, nil
	}
	ifr := nc.Yf.MulVec(V)
	ito := nc.Yt.MulVec(V)
	sf = make([]complex128, len(nc.Branches))
	st = make([]complex128, len(nc.Branches))
	for k, br := range nc.Branches {
		sf[k] = V[br.From] * cmplx.Conj(ifr[k])
		st[k] = V[br.To] * cmplx.Conj(ito[k])
	}
	return sf, st
}

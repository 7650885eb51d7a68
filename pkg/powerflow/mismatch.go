package powerflow

import (
	"math"
	"math/cmplx"

	"github.com/edp1096/gridflow/pkg/spmat"
)

// ComputePower returns the calculated power injection S = V .* conj(Ybus*V - Ibus).
// Ibus is the specified current injection (usually zero) and may be nil.
func ComputePower(Y *spmat.CMatrix, V, Ibus []complex128) []complex128 {
	I := Y.MulVec(V)
	S := make([]complex128, len(V))
	for i := range S {
		inj := I[i]
		if Ibus != nil {
			inj -= Ibus[i]
		}
		S[i] = V[i] * cmplx.Conj(inj)
	}
	return S
}

// Mismatch returns Scalc - Sbus, the full complex power-balance residual.
// Callers take real parts at PV and PQ buses and imaginary parts at PQ buses.
func Mismatch(Y *spmat.CMatrix, V, Sbus, Ibus []complex128) []complex128 {
	dS := ComputePower(Y, V, Ibus)
	for i := range dS {
		dS[i] -= Sbus[i]
	}
	return dS
}

// ErrorNorm is the convergence measure: the infinity norm over the active
// power residual at PV and PQ buses and the reactive residual at PQ buses.
func ErrorNorm(dS []complex128, pv, pq []int) float64 {
	norm := 0.0
	for _, b := range pv {
		if x := math.Abs(real(dS[b])); x > norm {
			norm = x
		}
	}
	for _, b := range pq {
		if x := math.Abs(real(dS[b])); x > norm {
			norm = x
		}
		if x := math.Abs(imag(dS[b])); x > norm {
			norm = x
		}
	}
	return norm
}

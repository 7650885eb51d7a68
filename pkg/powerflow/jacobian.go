package powerflow

import (
	"math/cmplx"

	"github.com/edp1096/gridflow/pkg/matrix"
	"github.com/edp1096/gridflow/pkg/spmat"
)

// DSbusDV computes the analytic partial derivatives of the complex power
// injection with respect to voltage magnitude and angle. The returned data
// slices share Ybus's CSR sparsity pattern (same RowPtr/ColIdx).
//
// Off-diagonal: dS_dVm[i,j] = conj(Y[i,j]*E[j]) * V[i], with E = V/|V|.
// Diagonal entries carry a correction with the bus's own injected current
// Ibus[i] = sum_k Y[i,k]*V[k]. Exact, no finite differences.
func DSbusDV(Y *spmat.CMatrix, V []complex128) (dSdVm, dSdVa []complex128) {
	n := Y.Rows
	E := make([]complex128, n)
	for i, v := range V {
		a := cmplx.Abs(v)
		if a == 0 {
			E[i] = 1
		} else {
			E[i] = v / complex(a, 0)
		}
	}

	ibus := make([]complex128, n)
	buf := make([]complex128, n)
	dSdVm = append([]complex128(nil), Y.Data...)
	dSdVa = append([]complex128(nil), Y.Data...)

	for r := 0; r < n; r++ {
		for k := Y.RowPtr[r]; k < Y.RowPtr[r+1]; k++ {
			j := Y.ColIdx[k]
			buf[r] += Y.Data[k] * V[j] // Ybus * V
			dSdVm[k] *= E[j]           // Ybus * diag(E)
			dSdVa[k] *= V[j]           // Ybus * diag(V)
		}
		ibus[r] = buf[r]
		buf[r] = cmplx.Conj(buf[r]) * E[r] // conj(diag(Ibus)) * diag(E)
	}

	for r := 0; r < n; r++ {
		for k := Y.RowPtr[r]; k < Y.RowPtr[r+1]; k++ {
			dSdVm[k] = cmplx.Conj(dSdVm[k]) * V[r] // diag(V) * conj(Ybus * diag(E))
			if r == Y.ColIdx[k] {
				dSdVa[k] += -ibus[r]
				dSdVm[k] += buf[r]
			}
			// 1j * diag(V) * conj(diag(Ibus) - Ybus*diag(V))
			dSdVa[k] = cmplx.Conj(-dSdVa[k]) * (1i * V[r])
		}
	}
	return dSdVm, dSdVa
}

// indexLookup maps bus index -> position in idx, -1 elsewhere.
func indexLookup(n int, idx []int) []int {
	lk := make([]int, n)
	for i := range lk {
		lk[i] = -1
	}
	for p, b := range idx {
		lk[b] = p
	}
	return lk
}

// stampJacobian assembles the stacked real Newton system
//
//	[ dP/dVa  dP/dVm ] [ dVa ]   [ -dP ]
//	[ dQ/dVa  dQ/dVm ] [ dVm ] = [ -dQ ]
//
// with P rows/Va columns over PQPV and Q rows/Vm columns over PQ, into sys.
// sys must be Cleared by the caller between iterations.
func stampJacobian(sys *matrix.System, Y *spmat.CMatrix, dSdVm, dSdVa []complex128, pvpqLk, pqLk []int, npvpq int) {
	for r := 0; r < Y.Rows; r++ {
		rowP := pvpqLk[r]
		rowQ := pqLk[r]
		if rowP < 0 && rowQ < 0 {
			continue
		}
		for k := Y.RowPtr[r]; k < Y.RowPtr[r+1]; k++ {
			j := Y.ColIdx[k]
			colA := pvpqLk[j]
			colM := pqLk[j]
			if rowP >= 0 {
				if colA >= 0 {
					sys.Add(rowP, colA, real(dSdVa[k]))
				}
				if colM >= 0 {
					sys.Add(rowP, npvpq+colM, real(dSdVm[k]))
				}
			}
			if rowQ >= 0 {
				if colA >= 0 {
					sys.Add(npvpq+rowQ, colA, imag(dSdVa[k]))
				}
				if colM >= 0 {
					sys.Add(npvpq+rowQ, npvpq+colM, imag(dSdVm[k]))
				}
			}
		}
	}
}

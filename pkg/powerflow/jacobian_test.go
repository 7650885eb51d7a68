package powerflow

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edp1096/gridflow/pkg/grid"
	"github.com/edp1096/gridflow/pkg/spmat"
)

// csrAt reads the entry (i,j) of a value slice sharing Ybus's pattern.
func csrAt(Y *spmat.CMatrix, data []complex128, i, j int) complex128 {
	for k := Y.RowPtr[i]; k < Y.RowPtr[i+1]; k++ {
		if Y.ColIdx[k] == j {
			return data[k]
		}
	}
	return 0
}

func jacobianTestCircuit(t *testing.T) *grid.NumericalCircuit {
	t.Helper()
	nc, err := grid.NewBuilder(3, 100).
		SetBus(0, grid.Slack, 0, 0, 1.02, 0).
		SetBus(1, grid.PV, 0.3, 0, 1.0, 0).
		SetBus(2, grid.PQ, -0.4, -0.15, 1, 0).
		AddLine(0, 1, 0.01, 0.06, 0.04).
		AddLine(1, 2, 0.02, 0.09, 0.02).
		AddLine(0, 2, 0.015, 0.08, 0.03).
		AddShunt(2, 0, 0.1).
		Build()
	require.NoError(t, err)
	return nc
}

// DSbusDV is exact; central finite differences of the power injection must
// reproduce every entry.
func TestDSbusDVMatchesFiniteDifferences(t *testing.T) {
	nc := jacobianTestCircuit(t)
	Y := nc.Ybus

	V := []complex128{
		cmplx.Rect(1.02, 0),
		cmplx.Rect(0.98, -0.05),
		cmplx.Rect(1.01, 0.08),
	}
	n := len(V)

	dSdVm, dSdVa := DSbusDV(Y, V)

	const h = 1e-6
	perturb := func(j int, dvm, dva float64) []complex128 {
		W := append([]complex128(nil), V...)
		W[j] = cmplx.Rect(cmplx.Abs(V[j])+dvm, cmplx.Phase(V[j])+dva)
		return W
	}

	for j := 0; j < n; j++ {
		sp := ComputePower(Y, perturb(j, 0, h), nil)
		sm := ComputePower(Y, perturb(j, 0, -h), nil)
		for i := 0; i < n; i++ {
			fd := (sp[i] - sm[i]) / (2 * h)
			got := csrAt(Y, dSdVa, i, j)
			require.InDelta(t, real(fd), real(got), 1e-6, "dS/dVa (%d,%d) real", i, j)
			require.InDelta(t, imag(fd), imag(got), 1e-6, "dS/dVa (%d,%d) imag", i, j)
		}

		sp = ComputePower(Y, perturb(j, h, 0), nil)
		sm = ComputePower(Y, perturb(j, -h, 0), nil)
		for i := 0; i < n; i++ {
			fd := (sp[i] - sm[i]) / (2 * h)
			got := csrAt(Y, dSdVm, i, j)
			require.InDelta(t, real(fd), real(got), 1e-6, "dS/dVm (%d,%d) real", i, j)
			require.InDelta(t, imag(fd), imag(got), 1e-6, "dS/dVm (%d,%d) imag", i, j)
		}
	}
}

func TestIndexLookup(t *testing.T) {
	lk := indexLookup(5, []int{3, 1})
	require.Equal(t, []int{-1, 1, -1, 0, -1}, lk)
}

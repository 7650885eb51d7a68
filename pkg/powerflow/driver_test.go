package powerflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edp1096/gridflow/pkg/grid"
	"github.com/edp1096/gridflow/pkg/topology"
)

func TestRunSingleIsland(t *testing.T) {
	nc := fiveBusCase(t)
	res, err := Run(nc, DefaultOptions())
	require.NoError(t, err)

	require.True(t, res.Converged)
	require.Len(t, res.Islands, 1)
	require.Equal(t, "NR", res.Islands[0].Method)
	require.Less(t, res.Error, 1e-6)
	require.NotEmpty(t, res.Report.Entries)

	// Scalc and the branch flows are evaluated at the solution
	require.Len(t, res.Scalc, 5)
	require.Len(t, res.Sf, len(nc.Branches))
	dS := Mismatch(nc.Ybus, res.V, nc.Sbus, nc.Ibus)
	require.Less(t, ErrorNorm(dS, []int{1}, []int{2, 3, 4}), 1e-6)
}

func TestRunTwoIslands(t *testing.T) {
	// two electrically separate systems in one circuit
	b := grid.NewBuilder(4, 100)
	b.SetBus(0, grid.Slack, 0, 0, 1.0, 0)
	b.SetBus(1, grid.PQ, -0.3, -0.1, 1, 0)
	b.SetBus(2, grid.Slack, 0, 0, 1.05, 0)
	b.SetBus(3, grid.PQ, -0.2, -0.05, 1, 0)
	b.AddLine(0, 1, 0.02, 0.1, 0)
	b.AddLine(2, 3, 0.02, 0.1, 0)
	nc, err := b.Build()
	require.NoError(t, err)

	res, err := Run(nc, DefaultOptions())
	require.NoError(t, err)

	require.True(t, res.Converged)
	require.Len(t, res.Islands, 2)
	for _, isl := range res.Islands {
		require.True(t, isl.Converged)
		require.False(t, isl.Isolated)
	}
	// each slack keeps its own set point
	require.Equal(t, nc.V0[0], res.V[0])
	require.Equal(t, nc.V0[2], res.V[2])

	// solving the second system alone gives the same answer
	solo, err := grid.NewBuilder(2, 100).
		SetBus(0, grid.Slack, 0, 0, 1.05, 0).
		SetBus(1, grid.PQ, -0.2, -0.05, 1, 0).
		AddLine(0, 1, 0.02, 0.1, 0).
		Build()
	require.NoError(t, err)
	soloRes, err := Run(solo, DefaultOptions())
	require.NoError(t, err)
	require.InDelta(t, real(soloRes.V[1]), real(res.V[3]), 1e-9)
	require.InDelta(t, imag(soloRes.V[1]), imag(res.V[3]), 1e-9)
}

func TestRunIsolatedBuses(t *testing.T) {
	// bus 2 is a dead PQ load, bus 3 an unconnected generator
	b := grid.NewBuilder(4, 100)
	b.SetBus(0, grid.Slack, 0, 0, 1.0, 0)
	b.SetBus(1, grid.PQ, -0.3, -0.1, 1, 0)
	b.SetBus(2, grid.PQ, -0.5, -0.2, 1, 0)
	b.SetBus(3, grid.PV, 0.4, 0, 1.05, 0)
	b.AddLine(0, 1, 0.02, 0.1, 0)
	nc, err := b.Build()
	require.NoError(t, err)

	res, err := Run(nc, DefaultOptions())
	require.NoError(t, err)

	// isolated buses cannot fail the solve, whatever their injections say
	require.True(t, res.Converged)
	require.Len(t, res.Islands, 3)

	var isoPQ, isoPV *IslandDiag
	for i := range res.Islands {
		isl := &res.Islands[i]
		if !isl.Isolated {
			continue
		}
		switch isl.Buses[0] {
		case 2:
			isoPQ = isl
		case 3:
			isoPV = isl
		}
	}
	require.NotNil(t, isoPQ)
	require.NotNil(t, isoPV)
	require.True(t, isoPQ.Converged)
	require.Equal(t, 0, isoPQ.Iterations)
	require.Equal(t, 0.0, isoPQ.Error)
	require.Equal(t, "isolated", isoPQ.Method)

	// PQ gets the flat voltage, the generator keeps its set point
	require.Equal(t, complex(1, 0), res.V[2])
	require.Equal(t, nc.V0[3], res.V[3])
}

func TestRunNoSlackIslandDoesNotAbortOthers(t *testing.T) {
	// island {0,1} is healthy; island {2,3} is all PQ with no reference
	b := grid.NewBuilder(4, 100)
	b.SetBus(0, grid.Slack, 0, 0, 1.0, 0)
	b.SetBus(1, grid.PQ, -0.3, -0.1, 1, 0)
	b.SetBus(2, grid.PQ, -0.1, 0, 1, 0)
	b.SetBus(3, grid.PQ, -0.1, 0, 1, 0)
	b.AddLine(0, 1, 0.02, 0.1, 0)
	b.AddLine(2, 3, 0.02, 0.1, 0)
	nc, err := b.Build()
	require.NoError(t, err)

	res, err := Run(nc, DefaultOptions())
	require.NoError(t, err)

	require.False(t, res.Converged)
	require.Len(t, res.Islands, 2)
	require.True(t, res.Islands[0].Converged)
	require.NoError(t, res.Islands[0].Err)
	require.ErrorIs(t, res.Islands[1].Err, topology.ErrNoSlack)
}

func TestRunNoSlackPromotesGenerator(t *testing.T) {
	// no slack anywhere: the PV bus becomes the reference at zero angle
	nc, err := grid.NewBuilder(2, 100).
		SetBus(0, grid.PV, 0.5, 0, 1.02, 0).
		SetBus(1, grid.PQ, -0.3, -0.1, 1, 0).
		AddLine(0, 1, 0.02, 0.1, 0).
		Build()
	require.NoError(t, err)

	res, err := Run(nc, DefaultOptions())
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.Equal(t, complex(1.02, 0), res.V[0])
	// the original classification is untouched
	require.Equal(t, grid.PV, nc.Types[0])
}

func TestRunWarmStartSkipsIteration(t *testing.T) {
	nc := fiveBusCase(t)
	opts := DefaultOptions()
	opts.Tolerance = 1e-8

	res, err := Run(nc, opts)
	require.NoError(t, err)
	require.True(t, res.Converged)

	nc.V0 = res.V
	opts.UseStoredGuess = true
	again, err := Run(nc, opts)
	require.NoError(t, err)
	require.True(t, again.Converged)
	require.Equal(t, 0, again.Iterations)
}

func TestRunRetryFallsBackToNewton(t *testing.T) {
	nc := twoBusCase(t)
	opts := DefaultOptions()
	opts.Solver = SolverGaussSeidel
	opts.MaxIter = 3 // far too few sweeps for Gauss-Seidel
	opts.RetryWithOtherMethods = true

	res, err := Run(nc, opts)
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.Equal(t, "NR", res.Islands[0].Method)

	// the failed attempts stay on the record
	require.GreaterOrEqual(t, len(res.Report.Entries), 3)
	require.Equal(t, "GS", res.Report.Entries[0].Method)
	require.False(t, res.Report.Entries[0].Converged)
}

func TestRunDistributedSlack(t *testing.T) {
	nc := fiveBusCase(t)
	opts := DefaultOptions()
	opts.DistributedSlack = true

	res, err := Run(nc, opts)
	require.NoError(t, err)
	require.True(t, res.Converged)

	found := false
	for _, e := range res.Report.Entries {
		if e.Method == "NR+dist" {
			found = true
			require.True(t, e.Converged)
		}
	}
	require.True(t, found, "rebalanced re-solve missing from the report")
}

func TestRunValidatesShapes(t *testing.T) {
	nc := twoBusCase(t)
	nc.Sbus = nc.Sbus[:1]
	_, err := Run(nc, DefaultOptions())
	require.ErrorIs(t, err, grid.ErrShapeMismatch)
}

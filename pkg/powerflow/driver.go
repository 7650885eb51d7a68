package powerflow

import (
	"fmt"
	"math"
	"math/cmplx"
	"time"

	"github.com/edp1096/gridflow/internal/consts"
	"github.com/edp1096/gridflow/pkg/grid"
	"github.com/edp1096/gridflow/pkg/matrix"
	"github.com/edp1096/gridflow/pkg/topology"
)

// Run solves the power flow for the whole circuit: split islands, classify
// buses, solve each island with the configured method and retry policy, and
// reassemble the global voltage vector. A per-island configuration failure
// (no voltage reference) is recorded in the results and does not abort the
// remaining islands.
func Run(nc *grid.NumericalCircuit, opts Options) (*Results, error) {
	return RunWithRegistry(nc, opts, matrix.NewRegistry())
}

// RunWithRegistry is Run with an explicit solver-backend registry.
func RunWithRegistry(nc *grid.NumericalCircuit, opts Options, reg *matrix.Registry) (*Results, error) {
	start := time.Now()
	if err := nc.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	res := &Results{
		V:         append([]complex128(nil), nc.V0...),
		Converged: true,
		Report:    &ConvergenceReport{},
	}

	for gi, isl := range topology.SplitIslands(nc) {
		diag, V := solveIsland(gi, isl, opts, reg, res.Report)
		if V != nil {
			for p, b := range isl.BusIdx {
				res.V[b] = V[p]
			}
		}
		res.Islands = append(res.Islands, diag)
		if diag.Err != nil || !diag.Converged {
			res.Converged = false
		}
		if diag.Error > res.Error {
			res.Error = diag.Error
		}
		if diag.Iterations > res.Iterations {
			res.Iterations = diag.Iterations
		}
	}

	res.Scalc = ComputePower(nc.Ybus, res.V, nc.Ibus)
	res.Sf, res.St = branchFlows(nc, res.V)
	res.Elapsed = time.Since(start)
	return res, nil
}

func solveIsland(gi int, isl *topology.Island, opts Options, reg *matrix.Registry, report *ConvergenceReport) (IslandDiag, []complex128) {
	diag := IslandDiag{Buses: isl.BusIdx}

	if isl.Isolated {
		// no coupling, nothing to balance: set point for slack/PV, flat for PQ
		diag.Converged = true
		diag.Isolated = true
		diag.Method = "isolated"
		V := append([]complex128(nil), isl.Circuit.V0...)
		if isl.Circuit.Types[0] == grid.PQ {
			V[0] = complex(consts.FlatVoltage, 0)
		}
		return diag, V
	}

	cls, err := topology.Classify(isl.Circuit.Sbus, isl.Circuit.Types)
	if err != nil {
		diag.Err = fmt.Errorf("island %d: %w", gi, err)
		return diag, nil
	}

	sbus := isl.Circuit.Sbus
	best, method := runAttempts(gi, isl.Circuit, cls, sbus, opts, reg, report, opts.UseStoredGuess)

	if opts.DistributedSlack && best.Converged {
		if adjusted := redistributeSlack(isl.Circuit, cls, best.V, sbus); adjusted != nil {
			// warm re-solve with the rebalanced injections
			prob := newProblem(isl.Circuit, cls, adjusted, best.V, opts, reg)
			again := opts.Solver.method().Solve(prob)
			report.add(gi, opts.Solver.method().Name()+"+dist", again)
			if again.Converged {
				best = again
			}
		}
	}

	diag.Method = method
	diag.Converged = best.Converged
	diag.Error = best.Error
	diag.Iterations = best.Iterations
	if opts.Verbose > 0 {
		fmt.Printf("island %d (%d buses): %s converged=%v error=%g iterations=%d\n",
			gi, len(isl.BusIdx), method, best.Converged, best.Error, best.Iterations)
	}
	return diag, best.V
}

// runAttempts walks the retry ladder: the selected method with the chosen
// start, then (when retry is enabled) the alternate start, then the fallback
// methods. The best attempt by mismatch error wins if nothing converges.
func runAttempts(gi int, nc *grid.NumericalCircuit, cls topology.Classification, sbus []complex128,
	opts Options, reg *matrix.Registry, report *ConvergenceReport, warm bool) (Solution, string) {

	type attempt struct {
		t    SolverType
		warm bool
	}
	attempts := []attempt{{opts.Solver, warm}}
	if opts.RetryWithOtherMethods {
		attempts = append(attempts, attempt{opts.Solver, !warm})
		for _, t := range opts.fallbackOrder()[1:] {
			attempts = append(attempts, attempt{t, warm})
		}
	}

	best := Solution{Error: math.Inf(1)}
	bestName := opts.Solver.String()
	for _, at := range attempts {
		m := at.t.method()
		prob := newProblem(nc, cls, sbus, startVoltage(nc, cls, at.warm), opts, reg)
		sol := m.Solve(prob)
		report.add(gi, m.Name(), sol)
		if sol.Converged || sol.Error < best.Error {
			best = sol
			bestName = m.Name()
		}
		if sol.Converged {
			break
		}
	}
	return best, bestName
}

func newProblem(nc *grid.NumericalCircuit, cls topology.Classification, sbus, v0 []complex128,
	opts Options, reg *matrix.Registry) *Problem {
	return &Problem{
		Ybus:     nc.Ybus,
		Sbus:     sbus,
		Ibus:     nc.Ibus,
		V0:       v0,
		Ref:      cls.Ref,
		PV:       cls.PV,
		PQ:       cls.PQ,
		PQPV:     cls.PQPV,
		Tol:      opts.Tolerance,
		MaxIter:  opts.MaxIter,
		MaxCoeff: opts.MaxCoeff,
		Registry: reg,
		Backend:  opts.Backend,
		Verbose:  opts.Verbose,
	}
}

// startVoltage builds the starting point: the stored guess when warm, else
// the flat profile (1 p.u. at zero angle at PQ buses, magnitude set points
// at PV buses, the exact set point at the slack).
func startVoltage(nc *grid.NumericalCircuit, cls topology.Classification, warm bool) []complex128 {
	if warm {
		return append([]complex128(nil), nc.V0...)
	}
	V := make([]complex128, len(nc.V0))
	for i := range V {
		V[i] = complex(consts.FlatVoltage, 0)
	}
	for _, b := range cls.PV {
		V[b] = complex(cmplx.Abs(nc.V0[b]), 0)
	}
	for _, b := range cls.Ref {
		V[b] = nc.V0[b]
	}
	return V
}

// redistributeSlack shares the slack surplus among the island's generators
// in proportion to their specified active power. Returns the adjusted Sbus,
// or nil when there is nothing to distribute.
func redistributeSlack(nc *grid.NumericalCircuit, cls topology.Classification, V, sbus []complex128) []complex128 {
	scalc := ComputePower(nc.Ybus, V, nc.Ibus)
	delta := 0.0
	for _, b := range cls.Ref {
		delta += real(scalc[b]) - real(sbus[b])
	}
	if math.Abs(delta) < 1e-12 {
		return nil
	}

	gens := append(append([]int(nil), cls.Ref...), cls.PV...)
	total := 0.0
	for _, b := range gens {
		if p := real(sbus[b]); p > 0 {
			total += p
		}
	}
	if total <= 0 {
		return nil
	}

	out := append([]complex128(nil), sbus...)
	for _, b := range gens {
		if p := real(sbus[b]); p > 0 {
			out[b] += complex(delta*p/total, 0)
		}
	}
	return out
}

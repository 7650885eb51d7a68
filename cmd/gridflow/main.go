package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/edp1096/gridflow/pkg/grid"
	"github.com/edp1096/gridflow/pkg/powerflow"
	"github.com/edp1096/gridflow/pkg/util"
)

func main() {
	// .env overrides are optional; flags win over the environment
	_ = godotenv.Load()

	solverName := flag.String("solver", envOr("GRIDFLOW_SOLVER", "nr"), "solver: nr, gs, fdpf, helm, dc, linearac")
	tol := flag.Float64("tol", envFloatOr("GRIDFLOW_TOL", 1e-6), "convergence tolerance (p.u.)")
	maxIter := flag.Int("maxiter", envIntOr("GRIDFLOW_MAXITER", 40), "maximum iterations")
	retry := flag.Bool("retry", false, "retry with other methods on non-convergence")
	distSlack := flag.Bool("distslack", false, "distribute the slack power among generators")
	verbose := flag.Int("v", 0, "verbosity level")
	plotPath := flag.String("plot", "", "write a convergence plot PNG to this path")
	flag.Parse()

	solver, err := powerflow.ParseSolverType(*solverName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	nc, err := demoCase()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building demo case: %v\n", err)
		os.Exit(1)
	}

	opts := powerflow.DefaultOptions()
	opts.Solver = solver
	opts.Tolerance = *tol
	opts.MaxIter = *maxIter
	opts.RetryWithOtherMethods = *retry
	opts.DistributedSlack = *distSlack
	opts.Verbose = util.Clamp(*verbose, 0, 3)

	res, err := powerflow.Run(nc, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	printResults(nc, res)

	if *plotPath != "" {
		if err := saveConvergencePlot(res.Report, *plotPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing plot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("convergence plot written to %s\n", *plotPath)
	}

	if !res.Converged {
		os.Exit(2)
	}
}

// demoCase is a 5-bus system: slack, one PV machine, three PQ loads.
func demoCase() (*grid.NumericalCircuit, error) {
	b := grid.NewBuilder(5, 100)
	b.SetBus(0, grid.Slack, 0, 0, 1.06, 0)
	b.SetBus(1, grid.PV, 0.4, 0, 1.045, 0)
	b.SetBus(2, grid.PQ, -0.45, -0.15, 1, 0)
	b.SetBus(3, grid.PQ, -0.40, -0.05, 1, 0)
	b.SetBus(4, grid.PQ, -0.60, -0.10, 1, 0)
	b.AddLine(0, 1, 0.02, 0.06, 0.06)
	b.AddLine(0, 2, 0.08, 0.24, 0.05)
	b.AddLine(1, 2, 0.06, 0.18, 0.04)
	b.AddLine(1, 3, 0.06, 0.18, 0.04)
	b.AddLine(1, 4, 0.04, 0.12, 0.03)
	b.AddLine(2, 3, 0.01, 0.03, 0.02)
	b.AddLine(3, 4, 0.08, 0.24, 0.05)
	return b.Build()
}

func printResults(nc *grid.NumericalCircuit, res *powerflow.Results) {
	fmt.Printf("converged=%v error=%g iterations=%d elapsed=%s\n\n",
		res.Converged, res.Error, res.Iterations, res.Elapsed)

	vm := res.VoltageMagnitudes()
	va := res.VoltageAngles()
	fmt.Println("bus  type   voltage               injection")
	for i := range res.V {
		fmt.Printf("%3d  %-5s  %s  %s\n", i, nc.Types[i],
			util.FormatPolar(vm[i], va[i]),
			util.FormatPower(real(res.Scalc[i]), imag(res.Scalc[i]), nc.BaseMVA))
	}

	if res.Sf != nil {
		fmt.Println("\nbranch  from-to  flow (from end)")
		for k, br := range nc.Branches {
			if !br.Active {
				continue
			}
			fmt.Printf("%6d  %3d-%-3d  %s\n", k, br.From, br.To,
				util.FormatPower(real(res.Sf[k]), imag(res.Sf[k]), nc.BaseMVA))
		}
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envFloatOr(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

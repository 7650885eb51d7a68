package powerflow

import (
	"fmt"
	"strings"

	"github.com/edp1096/gridflow/internal/consts"
	"github.com/edp1096/gridflow/pkg/matrix"
)

// SolverType selects the power-flow method.
type SolverType int

const (
	SolverNR SolverType = iota
	SolverGaussSeidel
	SolverFastDecoupled
	SolverHELM
	SolverDC
	SolverLinearAC
)

func (t SolverType) String() string {
	switch t {
	case SolverNR:
		return "NR"
	case SolverGaussSeidel:
		return "GaussSeidel"
	case SolverFastDecoupled:
		return "FastDecoupled"
	case SolverHELM:
		return "HELM"
	case SolverDC:
		return "DC"
	case SolverLinearAC:
		return "LinearAC"
	default:
		return fmt.Sprintf("SolverType(%d)", int(t))
	}
}

// ParseSolverType accepts the names printed by String, case-insensitively.
func ParseSolverType(s string) (SolverType, error) {
	switch strings.ToLower(s) {
	case "nr", "newton", "newtonraphson":
		return SolverNR, nil
	case "gs", "gaussseidel", "gauss-seidel":
		return SolverGaussSeidel, nil
	case "fdpf", "fastdecoupled", "fast-decoupled":
		return SolverFastDecoupled, nil
	case "helm":
		return SolverHELM, nil
	case "dc":
		return SolverDC, nil
	case "linearac", "lacpf":
		return SolverLinearAC, nil
	default:
		return 0, fmt.Errorf("unknown solver type %q", s)
	}
}

func (t SolverType) method() Method {
	switch t {
	case SolverGaussSeidel:
		return GaussSeidel{}
	case SolverFastDecoupled:
		return FastDecoupled{}
	case SolverHELM:
		return HELM{}
	case SolverDC:
		return DCLinear{}
	case SolverLinearAC:
		return LinearAC{}
	default:
		return NewtonRaphson{}
	}
}

// Options configures one orchestrated solve.
type Options struct {
	Solver                SolverType
	Tolerance             float64
	MaxIter               int
	MaxCoeff              int // HELM series cap
	RetryWithOtherMethods bool
	UseStoredGuess        bool // warm start from V0 instead of a flat profile
	DistributedSlack      bool
	Backend               string // sparse solver backend name
	Verbose               int
}

// DefaultOptions is a Newton-Raphson solve with the standard tolerances.
func DefaultOptions() Options {
	return Options{
		Solver:    SolverNR,
		Tolerance: consts.DefaultTolerance,
		MaxIter:   consts.DefaultMaxIter,
		MaxCoeff:  consts.DefaultMaxCoeff,
		Backend:   matrix.LU,
	}
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = consts.DefaultTolerance
	}
	if o.MaxIter <= 0 {
		o.MaxIter = consts.DefaultMaxIter
	}
	if o.MaxCoeff <= 0 {
		o.MaxCoeff = consts.DefaultMaxCoeff
	}
	if o.Backend == "" {
		o.Backend = matrix.LU
	}
	return o
}

// fallbackOrder is the retry ladder: the selected method first, then the
// remaining nonlinear methods. The linear approximations never appear as
// fallbacks since they cannot certify an AC solution.
func (o Options) fallbackOrder() []SolverType {
	ladder := []SolverType{SolverNR, SolverHELM, SolverFastDecoupled, SolverGaussSeidel}
	out := []SolverType{o.Solver}
	if !o.RetryWithOtherMethods {
		return out
	}
	for _, t := range ladder {
		if t != o.Solver {
			out = append(out, t)
		}
	}
	return out
}

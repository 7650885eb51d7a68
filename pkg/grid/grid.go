// Package grid holds the compiled numerical model of a power network: the
// admittance matrix, bus injections, the initial voltage guess and the bus
// type classification. A NumericalCircuit is immutable for the duration of
// one power-flow solve.
package grid

import (
	"errors"
	"fmt"

	"github.com/edp1096/gridflow/pkg/spmat"
)

// BusType selects which power-flow equations apply at a bus.
type BusType int

const (
	PQ    BusType = 1 // P and Q fixed, voltage solved
	PV    BusType = 2 // P and |V| fixed, Q and angle solved
	Slack BusType = 3 // |V| and angle fixed, P and Q absorbed
)

func (t BusType) String() string {
	switch t {
	case PQ:
		return "PQ"
	case PV:
		return "PV"
	case Slack:
		return "Slack"
	default:
		return fmt.Sprintf("BusType(%d)", int(t))
	}
}

// Branch records connectivity for island detection and flow reporting.
// Inactive branches are not stamped into Ybus and do not connect buses.
type Branch struct {
	From, To int
	Active   bool
}

// NumericalCircuit is the compiled input to the power-flow engine.
type NumericalCircuit struct {
	Ybus     *spmat.CMatrix // n x n complex admittance matrix
	Sbus     []complex128   // specified power injection per bus (p.u.)
	Ibus     []complex128   // specified current injection per bus, usually zero
	V0       []complex128   // initial voltage guess / set points
	Types    []BusType
	BaseMVA  float64
	Branches []Branch

	// Yf and Yt map bus voltages to branch currents at the from and to ends.
	// Optional; needed only for branch flow reporting.
	Yf, Yt *spmat.CMatrix
}

var ErrShapeMismatch = errors.New("grid: circuit vector and matrix shapes disagree")

// NumBus returns the number of buses.
func (nc *NumericalCircuit) NumBus() int { return len(nc.V0) }

// Validate fails fast on inconsistent shapes, before any iteration begins.
func (nc *NumericalCircuit) Validate() error {
	n := len(nc.V0)
	if nc.Ybus == nil || nc.Ybus.Rows != nc.Ybus.Cols {
		return fmt.Errorf("%w: Ybus must be square", ErrShapeMismatch)
	}
	if nc.Ybus.Rows != n {
		return fmt.Errorf("%w: Ybus is %dx%d but V0 has %d buses", ErrShapeMismatch, nc.Ybus.Rows, nc.Ybus.Cols, n)
	}
	if len(nc.Sbus) != n {
		return fmt.Errorf("%w: Sbus has %d entries, want %d", ErrShapeMismatch, len(nc.Sbus), n)
	}
	if nc.Ibus != nil && len(nc.Ibus) != n {
		return fmt.Errorf("%w: Ibus has %d entries, want %d", ErrShapeMismatch, len(nc.Ibus), n)
	}
	if len(nc.Types) != n {
		return fmt.Errorf("%w: Types has %d entries, want %d", ErrShapeMismatch, len(nc.Types), n)
	}
	for _, br := range nc.Branches {
		if br.From < 0 || br.From >= n || br.To < 0 || br.To >= n {
			return fmt.Errorf("%w: branch %d-%d references a bus outside 0..%d", ErrShapeMismatch, br.From, br.To, n-1)
		}
	}
	return nil
}

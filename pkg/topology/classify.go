// Package topology partitions a network into bus categories and electrical
// islands before any numerical method runs.
package topology

import (
	"errors"
	"sort"

	"github.com/edp1096/gridflow/pkg/grid"
)

var (
	// ErrNoSlack indicates an island with neither a slack bus nor a PV bus
	// that could be promoted. Such an island has no voltage reference and
	// cannot be solved.
	ErrNoSlack = errors.New("topology: no slack bus and no PV bus to promote")
)

// Classification holds the bus index sets a power-flow method needs.
// Types is a repaired copy of the input; the caller's slice is never
// modified.
type Classification struct {
	Ref  []int // slack buses
	PQ   []int
	PV   []int
	PQPV []int // PQ union PV, sorted ascending
	Types []grid.BusType
}

// Classify partitions bus indices by type. If no slack bus exists, the PV
// bus with the largest active injection is promoted (first bus by index when
// all PV injections are non-positive). Returns ErrNoSlack when there is no
// PV bus to promote either.
func Classify(sbus []complex128, types []grid.BusType) (Classification, error) {
	c := Classification{Types: append([]grid.BusType(nil), types...)}

	for i, t := range c.Types {
		switch t {
		case grid.Slack:
			c.Ref = append(c.Ref, i)
		case grid.PV:
			c.PV = append(c.PV, i)
		default:
			c.PQ = append(c.PQ, i)
		}
	}

	if len(c.Ref) == 0 {
		if len(c.PV) == 0 {
			return Classification{}, ErrNoSlack
		}
		// promote the PV bus with the largest active injection
		best := 0
		for k := 1; k < len(c.PV); k++ {
			if real(sbus[c.PV[k]]) > real(sbus[c.PV[best]]) {
				best = k
			}
		}
		if real(sbus[c.PV[best]]) <= 0 {
			best = 0
		}
		promoted := c.PV[best]
		c.Types[promoted] = grid.Slack
		c.Ref = []int{promoted}
		c.PV = append(c.PV[:best], c.PV[best+1:]...)
	}

	c.PQPV = make([]int, 0, len(c.PQ)+len(c.PV))
	c.PQPV = append(c.PQPV, c.PQ...)
	c.PQPV = append(c.PQPV, c.PV...)
	sort.Ints(c.PQPV)

	return c, nil
}

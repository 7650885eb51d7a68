package grid

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/edp1096/gridflow/internal/consts"
	"github.com/edp1096/gridflow/pkg/spmat"
)

type branchDef struct {
	from, to   int
	ys         complex128 // series admittance 1/(r+jx)
	bc         float64    // total line charging susceptance
	tap, shift float64    // off-nominal tap ratio and phase shift (rad)
	active     bool
}

// Builder compiles bus and branch data into a NumericalCircuit, stamping the
// standard pi-model admittances. Buses default to PQ with zero injection and
// a flat voltage guess.
type Builder struct {
	n        int
	baseMVA  float64
	types    []BusType
	sbus     []complex128
	v0       []complex128
	shunt    []complex128
	branches []branchDef
}

func NewBuilder(nbus int, baseMVA float64) *Builder {
	if baseMVA <= 0 {
		baseMVA = consts.DefaultBaseMVA
	}
	b := &Builder{
		n:       nbus,
		baseMVA: baseMVA,
		types:   make([]BusType, nbus),
		sbus:    make([]complex128, nbus),
		v0:      make([]complex128, nbus),
		shunt:   make([]complex128, nbus),
	}
	for i := 0; i < nbus; i++ {
		b.types[i] = PQ
		b.v0[i] = complex(consts.FlatVoltage, 0)
	}
	return b
}

// SetBus sets the bus type, power injection (p.u.) and voltage set point.
// The angle is in degrees; it only matters for slack buses.
func (b *Builder) SetBus(i int, typ BusType, p, q, vm, vaDeg float64) *Builder {
	b.types[i] = typ
	b.sbus[i] = complex(p, q)
	b.v0[i] = cmplx.Rect(vm, vaDeg*math.Pi/180)
	return b
}

// AddLine adds a transmission line with series impedance r+jx and total
// charging susceptance bc, all in per unit.
func (b *Builder) AddLine(from, to int, r, x, bc float64) *Builder {
	b.branches = append(b.branches, branchDef{
		from: from, to: to,
		ys:     1 / complex(r, x),
		bc:     bc,
		tap:    1,
		active: true,
	})
	return b
}

// AddTransformer adds a branch with an off-nominal tap ratio and a phase
// shift in degrees.
func (b *Builder) AddTransformer(from, to int, r, x, tap, shiftDeg float64) *Builder {
	if tap == 0 {
		tap = 1
	}
	b.branches = append(b.branches, branchDef{
		from: from, to: to,
		ys:     1 / complex(r, x),
		tap:    tap,
		shift:  shiftDeg * math.Pi / 180,
		active: true,
	})
	return b
}

// AddShunt adds a fixed shunt admittance g+jb at a bus.
func (b *Builder) AddShunt(i int, g, bsh float64) *Builder {
	b.shunt[i] += complex(g, bsh)
	return b
}

// SetBranchActive flips a branch in or out of service.
func (b *Builder) SetBranchActive(k int, active bool) *Builder {
	b.branches[k].active = active
	return b
}

// Build assembles Ybus, Yf and Yt from the active branches.
func (b *Builder) Build() (*NumericalCircuit, error) {
	nb := len(b.branches)
	ybus := spmat.NewBuilder(b.n, b.n)
	yf := spmat.NewBuilder(nb, b.n)
	yt := spmat.NewBuilder(nb, b.n)
	branches := make([]Branch, nb)

	for k, br := range b.branches {
		branches[k] = Branch{From: br.from, To: br.to, Active: br.active}
		if !br.active {
			continue
		}
		// pi model with complex tap t = tap * exp(j*shift)
		t := cmplx.Rect(br.tap, br.shift)
		ysh := complex(0, br.bc/2)
		yff := (br.ys + ysh) / complex(br.tap*br.tap, 0)
		yft := -br.ys / cmplx.Conj(t)
		ytf := -br.ys / t
		ytt := br.ys + ysh

		ybus.Add(br.from, br.from, yff)
		ybus.Add(br.from, br.to, yft)
		ybus.Add(br.to, br.from, ytf)
		ybus.Add(br.to, br.to, ytt)

		yf.Add(k, br.from, yff)
		yf.Add(k, br.to, yft)
		yt.Add(k, br.from, ytf)
		yt.Add(k, br.to, ytt)
	}
	for i, ys := range b.shunt {
		if ys != 0 {
			ybus.Add(i, i, ys)
		}
	}

	nc := &NumericalCircuit{
		Ybus:     ybus.Build(),
		Sbus:     append([]complex128(nil), b.sbus...),
		Ibus:     make([]complex128, b.n),
		V0:       append([]complex128(nil), b.v0...),
		Types:    append([]BusType(nil), b.types...),
		BaseMVA:  b.baseMVA,
		Branches: branches,
		Yf:       yf.Build(),
		Yt:       yt.Build(),
	}
	if err := nc.Validate(); err != nil {
		return nil, fmt.Errorf("building circuit: %w", err)
	}
	return nc, nil
}

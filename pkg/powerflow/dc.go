package powerflow

import (
	"math"
	"math/cmplx"
	"time"
)

// DCLinear is the single-shot linear approximation: reactive power is
// ignored, magnitudes are held flat, and angles come from one solve of
// B[pqpv,pqpv] * theta = P with B = -imag(Ybus). It solves its own linear
// model exactly, so Converged reports true with the linear residual as the
// error; the AC mismatch of the result is not claimed to be small.
type DCLinear struct{}

func (DCLinear) Name() string { return "DC" }

func (DCLinear) Solve(p *Problem) Solution {
	start := time.Now()

	V := append([]complex128(nil), p.V0...)
	n := len(V)
	vm := make([]float64, n)
	va := make([]float64, n)
	for i, v := range V {
		vm[i] = cmplx.Abs(v)
		va[i] = cmplx.Phase(v)
	}
	for _, b := range p.PQ {
		vm[b] = 1
	}

	npvpq := len(p.PQPV)
	if npvpq == 0 {
		return Solution{V: V, Converged: true, Elapsed: time.Since(start)}
	}

	sys, err := p.Registry.New(p.backend(), npvpq, false)
	if err != nil {
		return Solution{V: V, Error: math.Inf(1), Elapsed: time.Since(start)}
	}
	defer sys.Destroy()

	lk := indexLookup(n, p.PQPV)
	refSet := make(map[int]bool, len(p.Ref))
	for _, b := range p.Ref {
		refSet[b] = true
	}

	rhs := make([]float64, npvpq)
	for i, b := range p.PQPV {
		rhs[i] = real(p.Sbus[b])
		if p.Ibus != nil {
			rhs[i] += real(p.Ibus[b])
		}
	}
	for _, b := range p.PQPV {
		i := lk[b]
		cols, vals := p.Ybus.Row(b)
		for k, jj := range cols {
			bij := -imag(vals[k])
			if j := lk[jj]; j >= 0 {
				sys.Add(i, j, bij)
			} else if refSet[jj] {
				// move the slack coupling to the right-hand side
				rhs[i] -= bij * va[jj]
			}
		}
	}

	if err := sys.Factor(); err != nil {
		return Solution{V: V, Error: math.Inf(1), Elapsed: time.Since(start)}
	}
	theta, err := sys.Solve(rhs)
	if err != nil {
		return Solution{V: V, Error: math.Inf(1), Elapsed: time.Since(start)}
	}

	for i, b := range p.PQPV {
		va[b] = theta[i]
		V[b] = cmplx.Rect(vm[b], va[b])
	}

	// residual of the linear model itself
	residual := 0.0
	for _, b := range p.PQPV {
		sum := 0.0
		cols, vals := p.Ybus.Row(b)
		for k, jj := range cols {
			sum += -imag(vals[k]) * va[jj]
		}
		want := real(p.Sbus[b])
		if p.Ibus != nil {
			want += real(p.Ibus[b])
		}
		if x := math.Abs(sum - want); x > residual {
			residual = x
		}
	}

	return Solution{V: V, Converged: true, Error: residual, Iterations: 1, Elapsed: time.Since(start)}
}

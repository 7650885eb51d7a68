package powerflow

import (
	"fmt"
	"math/cmplx"
	"time"

	"github.com/edp1096/gridflow/internal/consts"
	"github.com/edp1096/gridflow/pkg/spmat"
)

// HELM is the holomorphic embedding load-flow method (Josep Fanals Batllori
// formulation). It builds a voltage power series in the embedding parameter:
// one complex factorization seeds the series, one real block factorization
// is reused for every coefficient order, and the series is evaluated either
// by direct summation or by a Padé approximant at s=1. Its "iterations" are
// series coefficient orders, capped by MaxCoeff.
type HELM struct{}

func (HELM) Name() string { return "HELM" }

func (HELM) Solve(p *Problem) Solution {
	start := time.Now()

	V, _, normF, done := p.startState()
	if done {
		return Solution{V: V, Converged: true, Error: normF, Elapsed: time.Since(start)}
	}

	n := len(V)
	npqpv := len(p.PQPV)
	if n < 2 || npqpv == 0 {
		return Solution{V: V, Converged: true, Error: normF, Elapsed: time.Since(start)}
	}

	maxC := p.MaxCoeff
	if maxC <= 0 {
		maxC = consts.DefaultMaxCoeff
	}

	// split Ybus into series and shunt parts: the row sum of a pi-model
	// admittance matrix is the shunt admittance connected at each bus
	ysh := p.Ybus.RowSums()

	pos := indexLookup(n, p.PQPV)
	var pqL, pvL []int
	for _, b := range p.PQ {
		pqL = append(pqL, pos[b])
	}
	for _, b := range p.PV {
		pvL = append(pvL, pos[b])
	}
	npv := len(pvL)

	// reduced series admittance Yred = Yseries[pqpv,pqpv] and the slack
	// coupling Yslack = -Yseries[pqpv,sl]
	yredB := spmat.NewBuilder(npqpv, npqpv)
	yslack := make([][]complex128, npqpv)
	slackPos := indexLookup(n, p.Ref)
	for i, b := range p.PQPV {
		yslack[i] = make([]complex128, len(p.Ref))
		cols, vals := p.Ybus.Row(b)
		for k, j := range cols {
			if q := pos[j]; q >= 0 {
				yredB.Add(i, q, vals[k])
			} else if s := slackPos[j]; s >= 0 {
				yslack[i][s] = -vals[k]
			}
		}
		yredB.Add(i, i, -ysh[b])
	}
	yred := yredB.Build()

	fail := func() Solution {
		return Solution{V: V, Error: normF, Elapsed: time.Since(start)}
	}

	// seed term: Yred * U[0] = Yslack * 1
	csys, err := p.Registry.New(p.backend(), npqpv, true)
	if err != nil {
		return fail()
	}
	defer csys.Destroy()
	for i := 0; i < npqpv; i++ {
		cols, vals := yred.Row(i)
		for k, j := range cols {
			csys.AddComplex(i, j, real(vals[k]), imag(vals[k]))
		}
	}
	if err := csys.Factor(); err != nil {
		return fail()
	}
	rhs0 := make([]complex128, npqpv)
	for i := range rhs0 {
		for _, y := range yslack[i] {
			rhs0[i] += y
		}
	}
	u0, err := csys.SolveComplex(rhs0)
	if err != nil {
		return fail()
	}

	U := make([][]complex128, maxC+1)
	X := make([][]complex128, maxC+1)
	Qc := make([][]complex128, maxC+1)
	U[0] = u0
	X[0] = make([]complex128, npqpv)
	for i, u := range u0 {
		X[0][i] = 1 / cmplx.Conj(u)
	}

	// block system solved for every coefficient order:
	//   [ G   -B   Xim ] [ Re U[c] ]
	//   [ B    G   Xre ] [ Im U[c] ] = RHS(c)
	//   [ Vre  Vim  0  ] [  Q[c-1] ]
	nsys := 2*npqpv + npv
	msys, err := p.Registry.New(p.backend(), nsys, false)
	if err != nil {
		return fail()
	}
	defer msys.Destroy()
	for i := 0; i < npqpv; i++ {
		cols, vals := yred.Row(i)
		for k, j := range cols {
			g, b := real(vals[k]), imag(vals[k])
			msys.Add(i, j, g)
			msys.Add(i, npqpv+j, -b)
			msys.Add(npqpv+i, j, b)
			msys.Add(npqpv+i, npqpv+j, g)
		}
	}
	for a, i := range pvL {
		msys.Add(i, 2*npqpv+a, -imag(X[0][i]))
		msys.Add(npqpv+i, 2*npqpv+a, real(X[0][i]))
		msys.Add(2*npqpv+a, i, 2*real(U[0][i]))
		msys.Add(2*npqpv+a, npqpv+i, 2*imag(U[0][i]))
	}
	if err := msys.Factor(); err != nil {
		return fail()
	}

	vecP := make([]float64, npqpv)
	vecQ := make([]float64, npqpv)
	vecW := make([]float64, npqpv)
	yshRed := make([]complex128, npqpv)
	iinj := make([]complex128, npqpv)
	for i, b := range p.PQPV {
		vecP[i] = real(p.Sbus[b])
		vecQ[i] = imag(p.Sbus[b])
		vm := cmplx.Abs(p.V0[b])
		vecW[i] = vm * vm
		yshRed[i] = ysh[b]
		for s, g := range p.Ref {
			iinj[i] += yslack[i][s] * p.V0[g]
		}
	}

	// order 1
	valor := make([]complex128, npqpv)
	for _, i := range pqL {
		valor[i] = iinj[i] - rhs0[i] + complex(vecP[i], -vecQ[i])*X[0][i] - U[0][i]*yshRed[i]
	}
	for _, i := range pvL {
		valor[i] = iinj[i] - rhs0[i] + complex(vecP[i], 0)*X[0][i] - U[0][i]*yshRed[i]
	}
	rhs := make([]float64, nsys)
	for i, v := range valor {
		rhs[i] = real(v)
		rhs[npqpv+i] = imag(v)
	}
	for a, i := range pvL {
		rhs[2*npqpv+a] = vecW[i] - real(U[0][i]*U[0][i])
	}
	lhs, err := msys.Solve(rhs)
	if err != nil {
		return fail()
	}
	U[1] = make([]complex128, npqpv)
	X[1] = make([]complex128, npqpv)
	Qc[0] = make([]complex128, npqpv)
	for i := 0; i < npqpv; i++ {
		U[1][i] = complex(lhs[i], lhs[npqpv+i])
		X[1][i] = -X[0][i] * cmplx.Conj(U[1][i]) / cmplx.Conj(U[0][i])
	}
	for a, i := range pvL {
		Qc[0][i] = complex(lhs[2*npqpv+a], 0)
	}

	for i, b := range p.PQPV {
		V[b] = U[0][i] + U[1][i]
	}

	sol := Solution{Iterations: 1}
	c := 2
	for c <= maxC && !sol.Converged {
		for _, i := range pqL {
			valor[i] = complex(vecP[i], -vecQ[i])*X[c-1][i] - U[c-1][i]*yshRed[i]
		}
		for _, i := range pvL {
			valor[i] = -1i*convAB(X, Qc, c, i) - U[c-1][i]*yshRed[i] + X[c-1][i]*complex(vecP[i], 0)
		}
		for i, v := range valor {
			rhs[i] = real(v)
			rhs[npqpv+i] = imag(v)
		}
		for a, i := range pvL {
			rhs[2*npqpv+a] = -real(convABConj(U, U, c, i))
		}

		lhs, err = msys.Solve(rhs)
		if err != nil {
			break
		}
		U[c] = make([]complex128, npqpv)
		X[c] = make([]complex128, npqpv)
		Qc[c-1] = make([]complex128, npqpv)
		for i := 0; i < npqpv; i++ {
			U[c][i] = complex(lhs[i], lhs[npqpv+i])
		}
		for a, i := range pvL {
			Qc[c-1][i] = complex(lhs[2*npqpv+a], 0)
		}
		for i := 0; i < npqpv; i++ {
			X[c][i] = -convConjAB(U, X, c, i) / cmplx.Conj(U[0][i])
		}

		diverged := false
		for i, b := range p.PQPV {
			V[b] += U[c][i]
			if real(V[b]) >= 10 {
				diverged = true
			}
		}
		if diverged {
			break
		}

		dS := Mismatch(p.Ybus, V, p.Sbus, p.Ibus)
		normF = ErrorNorm(dS, p.PV, p.PQ)
		sol.Trace = append(sol.Trace, normF)
		if p.Verbose > 1 {
			fmt.Printf("HELM order %d error %g\n", c, normF)
		}
		// an odd number of coefficients sums more accurately
		sol.Converged = normF <= p.Tol && c%2 == 1

		sol.Iterations++
		c++
	}

	if !sol.Converged {
		// fall back to the Padé approximant of whatever series we have
		order := c - 1
		if order%2 == 1 {
			order--
		}
		if order >= 2 {
			if vp, err := padeAll(U, order); err == nil {
				for i, b := range p.PQPV {
					V[b] = vp[i]
				}
				dS := Mismatch(p.Ybus, V, p.Sbus, p.Ibus)
				normF = ErrorNorm(dS, p.PV, p.PQ)
				sol.Converged = normF < p.Tol
			}
		}
	}

	sol.V = V
	sol.Error = normF
	sol.Elapsed = time.Since(start)
	return sol
}

// convConjAB is sum_{k=1..c} conj(A[k][i]) * B[c-k][i].
func convConjAB(A, B [][]complex128, c, i int) complex128 {
	var s complex128
	for k := 1; k <= c; k++ {
		s += cmplx.Conj(A[k][i]) * B[c-k][i]
	}
	return s
}

// convAB is sum_{k=1..c-1} A[k][i] * B[c-1-k][i].
func convAB(A, B [][]complex128, c, i int) complex128 {
	var s complex128
	for k := 1; k < c; k++ {
		s += A[k][i] * B[c-1-k][i]
	}
	return s
}

// convABConj is sum_{k=1..c-1} A[k][i] * conj(B[c-k][i]).
func convABConj(A, B [][]complex128, c, i int) complex128 {
	var s complex128
	for k := 1; k < c; k++ {
		s += A[k][i] * cmplx.Conj(B[c-k][i])
	}
	return s
}

// padeAll evaluates the diagonal Padé approximant of each bus series at s=1.
func padeAll(coeff [][]complex128, order int) ([]complex128, error) {
	nbus := len(coeff[0])
	nn := order / 2
	L, M := nn, nn

	out := make([]complex128, nbus)
	for d := 0; d < nbus; d++ {
		rhs := make([]complex128, M)
		for i := 0; i < M; i++ {
			rhs[i] = -coeff[L+1+i][d]
		}
		C := make([][]complex128, L)
		for i := 0; i < L; i++ {
			C[i] = make([]complex128, M)
			for j := 0; j < M; j++ {
				C[i][j] = coeff[i+1+j][d]
			}
		}
		x, err := denseSolve(C, rhs)
		if err != nil {
			return nil, err
		}

		b := make([]complex128, M+1)
		b[0] = 1
		for i := 0; i < M; i++ {
			b[1+i] = x[M-1-i] // bn..b1 reversed
		}
		a := make([]complex128, L+1)
		a[0] = coeff[0][d]
		for i := 0; i < L; i++ {
			k := i + 1
			var val complex128
			for j := 0; j <= k; j++ {
				val += coeff[k-j][d] * b[j]
			}
			a[i+1] = val
		}

		var pN, qD complex128
		for i := 0; i <= L; i++ {
			pN += a[i]
			qD += b[i]
		}
		out[d] = pN / qD
	}
	return out, nil
}

// denseSolve solves the small dense complex system Cx = rhs by Gaussian
// elimination with partial pivoting. The Padé systems are tiny (half the
// series order), so a dense solve is the right tool here.
func denseSolve(C [][]complex128, rhs []complex128) ([]complex128, error) {
	n := len(rhs)
	a := make([][]complex128, n)
	for i := range a {
		a[i] = append(append([]complex128(nil), C[i]...), rhs[i])
	}
	for col := 0; col < n; col++ {
		piv := col
		for r := col + 1; r < n; r++ {
			if cmplx.Abs(a[r][col]) > cmplx.Abs(a[piv][col]) {
				piv = r
			}
		}
		if cmplx.Abs(a[piv][col]) == 0 {
			return nil, fmt.Errorf("singular Padé system at column %d", col)
		}
		a[col], a[piv] = a[piv], a[col]
		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for k := col; k <= n; k++ {
				a[r][k] -= f * a[col][k]
			}
		}
	}
	x := make([]complex128, n)
	for i := n - 1; i >= 0; i-- {
		s := a[i][n]
		for k := i + 1; k < n; k++ {
			s -= a[i][k] * x[k]
		}
		x[i] = s / a[i][i]
	}
	return x, nil
}

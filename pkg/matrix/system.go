// Package matrix wraps the sparse LU engine behind a uniform solve interface.
// Factorization and solving are separate steps so that methods with a fixed
// coefficient matrix (fast-decoupled, holomorphic embedding, DC) can factor
// once and re-solve with fresh right-hand sides.
package matrix

import (
	"fmt"

	"github.com/edp1096/sparse"
)

// System is one sparse linear system Ax=b. Indices are 0-based at this
// boundary; the underlying engine is 1-based.
type System struct {
	Size      int
	isComplex bool
	mat       *sparse.Matrix
	config    *sparse.Configuration
	factored  bool
}

func newLUSystem(size int, isComplex bool) (*System, error) {
	config := &sparse.Configuration{
		Real:                    true,
		Complex:                 isComplex,
		SeparatedComplexVectors: true,
		Expandable:              true,
		// the first Factor reorders the matrix; Translate lets later
		// stamping address elements through the permutation
		Translate: true,
		ModifiedNodal:           true,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %v", err)
	}

	return &System{Size: size, isComplex: isComplex, mat: mat, config: config}, nil
}

// Add accumulates a real value at (i,j).
func (s *System) Add(i, j int, value float64) {
	s.mat.GetElement(int64(i+1), int64(j+1)).Real += value
}

// AddComplex accumulates a complex value at (i,j).
func (s *System) AddComplex(i, j int, re, im float64) {
	e := s.mat.GetElement(int64(i+1), int64(j+1))
	e.Real += re
	e.Imag += im
}

// Clear zeroes the matrix values, keeping the structure and ordering so the
// next Factor is cheap.
func (s *System) Clear() {
	s.mat.Clear()
	s.factored = false
}

// Factor computes the LU factorization. A singular matrix surfaces as a
// zero-pivot error; callers treat that as non-convergence, not a panic.
func (s *System) Factor() error {
	if err := s.mat.Factor(); err != nil {
		return fmt.Errorf("matrix factorization failed: %v", err)
	}
	s.factored = true
	return nil
}

// Solve solves the factored real system for the given right-hand side.
func (s *System) Solve(rhs []float64) ([]float64, error) {
	if !s.factored {
		return nil, fmt.Errorf("solve called before factorization")
	}
	if len(rhs) != s.Size {
		return nil, fmt.Errorf("rhs size %d does not match system size %d", len(rhs), s.Size)
	}
	b := make([]float64, s.Size+1) // 1-based
	copy(b[1:], rhs)
	sol, err := s.mat.Solve(b)
	if err != nil {
		return nil, fmt.Errorf("matrix solve failed: %v", err)
	}
	return sol[1 : s.Size+1], nil
}

// SolveComplex solves the factored complex system.
func (s *System) SolveComplex(rhs []complex128) ([]complex128, error) {
	if !s.factored {
		return nil, fmt.Errorf("solve called before factorization")
	}
	if !s.isComplex {
		return nil, fmt.Errorf("complex solve on a real system")
	}
	if len(rhs) != s.Size {
		return nil, fmt.Errorf("rhs size %d does not match system size %d", len(rhs), s.Size)
	}
	br := make([]float64, s.Size+1)
	bi := make([]float64, s.Size+1)
	for i, v := range rhs {
		br[i+1] = real(v)
		bi[i+1] = imag(v)
	}
	solR, solI, err := s.mat.SolveComplex(br, bi)
	if err != nil {
		return nil, fmt.Errorf("matrix solve failed: %v", err)
	}
	x := make([]complex128, s.Size)
	for i := range x {
		x[i] = complex(solR[i+1], solI[i+1])
	}
	return x, nil
}

// Destroy releases the engine's internal storage.
func (s *System) Destroy() {
	if s.mat != nil {
		s.mat.Destroy()
		s.mat = nil
	}
}

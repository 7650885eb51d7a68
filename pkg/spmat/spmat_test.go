package spmat

import (
	"math/cmplx"
	"testing"
)

func TestBuilderSumsDuplicates(t *testing.T) {
	b := NewBuilder(2, 2)
	b.Add(0, 0, 1+1i)
	b.Add(0, 0, 2)
	b.Add(1, 0, -1)
	m := b.Build()

	if got := m.At(0, 0); got != 3+1i {
		t.Fatalf("At(0,0) = %v; want 3+1i", got)
	}
	if got := m.At(0, 1); got != 0 {
		t.Fatalf("At(0,1) = %v; want 0", got)
	}
	if m.NNZ() != 2 {
		t.Fatalf("NNZ = %d; want 2", m.NNZ())
	}
}

func TestMulVec(t *testing.T) {
	// [1  2i] [1 ]   [1+2i*2 ]
	// [0   3] [2 ] = [6      ]
	b := NewBuilder(2, 2)
	b.Add(0, 0, 1)
	b.Add(0, 1, 2i)
	b.Add(1, 1, 3)
	m := b.Build()

	y := m.MulVec([]complex128{1, 2})
	if y[0] != 1+4i || y[1] != 6 {
		t.Fatalf("MulVec = %v; want [1+4i 6]", y)
	}
}

func TestRowSumsAndDiagonal(t *testing.T) {
	b := NewBuilder(3, 3)
	b.Add(0, 0, 2+1i)
	b.Add(0, 1, -2)
	b.Add(1, 1, 5)
	b.Add(2, 0, 1i)
	m := b.Build()

	s := m.RowSums()
	want := []complex128{1i, 5, 1i}
	for i := range want {
		if s[i] != want[i] {
			t.Fatalf("RowSums[%d] = %v; want %v", i, s[i], want[i])
		}
	}

	d := m.Diagonal()
	if d[0] != 2+1i || d[1] != 5 || d[2] != 0 {
		t.Fatalf("Diagonal = %v", d)
	}
}

func TestSubmatrix(t *testing.T) {
	b := NewBuilder(4, 4)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			b.Add(i, j, complex(float64(10*i+j), 0))
		}
	}
	m := b.Build()

	sub := m.Submatrix([]int{1, 3}, []int{0, 2})
	if sub.Rows != 2 || sub.Cols != 2 {
		t.Fatalf("Submatrix is %dx%d; want 2x2", sub.Rows, sub.Cols)
	}
	if sub.At(0, 0) != 10 || sub.At(0, 1) != 12 || sub.At(1, 0) != 30 || sub.At(1, 1) != 32 {
		t.Fatalf("Submatrix values wrong: %v %v %v %v",
			sub.At(0, 0), sub.At(0, 1), sub.At(1, 0), sub.At(1, 1))
	}
}

func TestMulVecMatchesAt(t *testing.T) {
	b := NewBuilder(3, 3)
	b.Add(0, 0, 4-2i)
	b.Add(0, 2, 1i)
	b.Add(1, 1, -3)
	b.Add(2, 1, 2)
	b.Add(2, 2, 5+5i)
	m := b.Build()

	x := []complex128{1 + 1i, -2, 0.5i}
	y := m.MulVec(x)
	for i := 0; i < 3; i++ {
		var want complex128
		for j := 0; j < 3; j++ {
			want += m.At(i, j) * x[j]
		}
		if cmplx.Abs(y[i]-want) > 1e-15 {
			t.Fatalf("row %d: MulVec %v != dense %v", i, y[i], want)
		}
	}
}

package topology

import (
	"testing"

	"github.com/edp1096/gridflow/pkg/grid"
)

func TestClassifyPartition(t *testing.T) {
	types := []grid.BusType{grid.Slack, grid.PV, grid.PQ, grid.PQ, grid.PV}
	sbus := make([]complex128, 5)

	c, err := Classify(sbus, types)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(c.Ref) != 1 || c.Ref[0] != 0 {
		t.Fatalf("Ref = %v; want [0]", c.Ref)
	}
	if len(c.PV) != 2 || c.PV[0] != 1 || c.PV[1] != 4 {
		t.Fatalf("PV = %v; want [1 4]", c.PV)
	}
	if len(c.PQ) != 2 || c.PQ[0] != 2 || c.PQ[1] != 3 {
		t.Fatalf("PQ = %v; want [2 3]", c.PQ)
	}
	want := []int{1, 2, 3, 4}
	for i, b := range want {
		if c.PQPV[i] != b {
			t.Fatalf("PQPV = %v; want %v", c.PQPV, want)
		}
	}
}

func TestClassifyPromotesLargestPV(t *testing.T) {
	types := []grid.BusType{grid.PQ, grid.PV, grid.PV, grid.PQ}
	sbus := []complex128{0, complex(0.3, 0), complex(0.8, 0), 0}

	c, err := Classify(sbus, types)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(c.Ref) != 1 || c.Ref[0] != 2 {
		t.Fatalf("Ref = %v; want [2]", c.Ref)
	}
	if c.Types[2] != grid.Slack {
		t.Fatalf("promoted bus type = %v; want Slack", c.Types[2])
	}
	if len(c.PV) != 1 || c.PV[0] != 1 {
		t.Fatalf("PV = %v; want [1]", c.PV)
	}
	// input must stay untouched
	if types[2] != grid.PV {
		t.Fatalf("caller's types slice was modified: %v", types)
	}
}

func TestClassifyPromotesFirstWhenAllNonPositive(t *testing.T) {
	types := []grid.BusType{grid.PQ, grid.PV, grid.PV}
	sbus := []complex128{0, complex(-0.2, 0), complex(-0.1, 0)}

	c, err := Classify(sbus, types)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(c.Ref) != 1 || c.Ref[0] != 1 {
		t.Fatalf("Ref = %v; want [1] (first PV bus)", c.Ref)
	}
}

func TestClassifyNoSlackNoPV(t *testing.T) {
	types := []grid.BusType{grid.PQ, grid.PQ}
	if _, err := Classify(make([]complex128, 2), types); err != ErrNoSlack {
		t.Fatalf("err = %v; want ErrNoSlack", err)
	}
}

func TestClassifyKeepsExistingSlack(t *testing.T) {
	// with a slack present, PV injections are irrelevant
	types := []grid.BusType{grid.PV, grid.Slack}
	sbus := []complex128{complex(5, 0), 0}

	c, err := Classify(sbus, types)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(c.Ref) != 1 || c.Ref[0] != 1 {
		t.Fatalf("Ref = %v; want [1]", c.Ref)
	}
	if c.Types[0] != grid.PV {
		t.Fatalf("bus 0 type = %v; want PV", c.Types[0])
	}
}

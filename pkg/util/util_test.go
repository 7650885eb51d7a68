package util

import (
	"math"
	"strings"
	"testing"
)

func TestFormatPolar(t *testing.T) {
	s := FormatPolar(1.045, -math.Pi/6)
	if !strings.Contains(s, "1.0450") || !strings.Contains(s, "-30.000") {
		t.Fatalf("FormatPolar = %q", s)
	}
}

func TestFormatPower(t *testing.T) {
	s := FormatPower(0.4, -0.1, 100)
	if !strings.Contains(s, "40.000 MW") || !strings.Contains(s, "-10.000 Mvar") {
		t.Fatalf("FormatPower = %q", s)
	}
}

func TestFormatPU(t *testing.T) {
	if s := FormatPU(0.5); !strings.Contains(s, "0.500000") {
		t.Fatalf("FormatPU(0.5) = %q", s)
	}
	if s := FormatPU(1e-6); !strings.Contains(s, "e-06") {
		t.Fatalf("FormatPU(1e-6) = %q", s)
	}
	if s := FormatPU(0); strings.Contains(s, "e") {
		t.Fatalf("FormatPU(0) = %q", s)
	}
}

func TestMaxOf(t *testing.T) {
	if got := MaxOf(3, 9, 1); got != 9 {
		t.Fatalf("MaxOf = %d; want 9", got)
	}
	if got := MaxOf[int](); got != 0 {
		t.Fatalf("MaxOf() = %d; want 0", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 3); got != 3 {
		t.Fatalf("Clamp(5,0,3) = %d", got)
	}
	if got := Clamp(-1, 0, 3); got != 0 {
		t.Fatalf("Clamp(-1,0,3) = %d", got)
	}
	if got := Clamp(2.5, 0.0, 3.0); got != 2.5 {
		t.Fatalf("Clamp(2.5,0,3) = %g", got)
	}
}

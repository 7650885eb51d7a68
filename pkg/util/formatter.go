package util

import (
	"fmt"
	"math"
)

// FormatPolar renders a voltage phasor as magnitude and angle in degrees.
func FormatPolar(vm, vaRad float64) string {
	return fmt.Sprintf("%7.4f<%7.3fdeg", vm, vaRad*180/math.Pi)
}

// FormatPower renders a complex power in MW/Mvar given the MVA base.
func FormatPower(p, q, baseMVA float64) string {
	return fmt.Sprintf("%9.3f MW %9.3f Mvar", p*baseMVA, q*baseMVA)
}

// FormatPU renders a per-unit quantity with engineering precision.
func FormatPU(value float64) string {
	if v := math.Abs(value); v != 0 && (v >= 1000 || v < 0.001) {
		return fmt.Sprintf("%10.3e", value)
	}
	return fmt.Sprintf("%10.6f", value)
}

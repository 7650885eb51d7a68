package consts

const (
	DefaultTolerance = 1e-6 // per-unit power mismatch target
	DefaultMaxIter   = 40   // iteration cap for the iterative methods
	DefaultMaxCoeff  = 30   // series order cap for the holomorphic embedding
	FlatVoltage      = 1.0  // flat-start voltage magnitude (p.u.)
	DefaultBaseMVA   = 100.0
)

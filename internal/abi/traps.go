// Package abi pins the value layouts and trap code catalog shared between
// generated C, native backends, and the runner's trap decoder (spec §4.C7,
// design note (b): "the final authoritative catalog should be a single
// data file shipped with the toolchain" — this file is that catalog).
package abi

// Trap is one reserved, enumerated abort code.
type Trap struct {
	Code uint32
	Name string
}

// Reserved trap code ranges, per backend:
//
//	9000-9099  runtime / allocator
//	9100-9199  math
//	9200-9299  time (reserved, unused: no wall-clock access inside solve-*)
const (
	RangeRuntimeLo = 9000
	RangeRuntimeHi = 9099
	RangeMathLo    = 9100
	RangeMathHi    = 9199
	RangeTimeLo    = 9200
	RangeTimeHi    = 9299
)

const (
	EVTrapAllocOOM        uint32 = 9000
	EVTrapDoubleFree      uint32 = 9001
	EVTrapUseAfterFree    uint32 = 9002
	EVTrapFuelExhausted   uint32 = 9010
	EVTrapMemLimit        uint32 = 9011
	EVTrapMathBadLenF64   uint32 = 9100
	EVTrapMathDivZeroI32  uint32 = 9101
	EVTrapMathShiftOOB    uint32 = 9102
	EVTrapMathOverflowI64 uint32 = 9103
)

// catalog is the authoritative code -> name table; Name (and through it
// the host runner's trap decoder) reads this map. The C backend emits no
// `#define`s; it writes the numeric constants above directly.
var catalog = map[uint32]string{
	EVTrapAllocOOM:        "alloc out of memory",
	EVTrapDoubleFree:      "double free",
	EVTrapUseAfterFree:    "use after free",
	EVTrapFuelExhausted:   "fuel exhausted",
	EVTrapMemLimit:        "memory limit exceeded",
	EVTrapMathBadLenF64:   "EV_TRAP_MATH_BADLEN_F64",
	EVTrapMathDivZeroI32:  "integer division by zero",
	EVTrapMathShiftOOB:    "shift amount out of [0, bitwidth)",
	EVTrapMathOverflowI64: "i64 overflow",
}

// Name returns the catalogued name for a trap code, or "" if unknown.
func Name(code uint32) string {
	return catalog[code]
}

// InRange reports whether code falls in one of the reserved ranges and
// thus names a recognized (if not individually catalogued) trap family.
func InRange(code uint32) bool {
	return (code >= RangeRuntimeLo && code <= RangeRuntimeHi) ||
		(code >= RangeMathLo && code <= RangeMathHi) ||
		(code >= RangeTimeLo && code <= RangeTimeHi)
}

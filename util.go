package pymarshal

import (
	"math"

	"golang.org/x/exp/constraints"
)

// clampAlloc bounds a wire-declared element count by the input actually
// remaining, so a corrupt count cannot force a huge preallocation. Each
// element of the sequence occupies at least unit bytes of input.
func clampAlloc(n, remaining, unit int) int {
	if unit > 1 {
		remaining /= unit
	}
	return min(n, remaining)
}

// fitsCount reports whether n can travel as a signed 32-bit count.
func fitsCount[T constraints.Integer](n T) bool {
	return int64(n) >= 0 && int64(n) <= math.MaxInt32
}

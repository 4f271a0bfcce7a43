package pymarshal

import (
	"math/big"
	"math/bits"

	"golang.org/x/exp/slices"
)

// Longs travel sign-magnitude: a signed digit count (the sign of the count is
// the sign of the number) followed by that many little-endian base-2**15
// digits, one per uint16 cell. A normalized long never ends in a zero digit.
const (
	longDigitBits = 15
	longDigitBase = 1 << longDigitBits
)

// bigFromDigits assembles the magnitude encoded by little-endian 15-bit
// digits. The bit accumulator follows _PyLong_AsByteArray in CPython's
// longobject.c. The caller has already validated digit range and
// normalization.
func bigFromDigits(digits []uint16) *big.Int {
	if len(digits) == 0 {
		return new(big.Int)
	}
	var (
		accum     uint64
		accumbits uint
	)
	buf := make([]byte, 0, len(digits)*2+1)
	for i, d := range digits {
		accum |= uint64(d) << accumbits
		if i == len(digits)-1 {
			accumbits += 16 - uint(bits.LeadingZeros16(d))
		} else {
			accumbits += longDigitBits
		}
		for accumbits >= 8 {
			buf = append(buf, byte(accum))
			accumbits -= 8
			accum >>= 8
		}
	}
	if accumbits > 0 {
		buf = append(buf, byte(accum))
	}
	slices.Reverse(buf) // SetBytes wants big-endian
	return new(big.Int).SetBytes(buf)
}

// pylongDigits splits the magnitude of n into little-endian 15-bit digits.
// Zero yields no digits; the top digit of any other value is nonzero.
func pylongDigits(n *big.Int) []uint16 {
	m := new(big.Int).Abs(n)
	if m.Sign() == 0 {
		return nil
	}
	digits := make([]uint16, 0, (m.BitLen()+longDigitBits-1)/longDigitBits)
	mask := big.NewInt(longDigitBase - 1)
	t := new(big.Int)
	for m.Sign() != 0 {
		t.And(m, mask)
		digits = append(digits, uint16(t.Uint64()))
		m.Rsh(m, longDigitBits)
	}
	return digits
}

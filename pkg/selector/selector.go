// Package selector implements the bijection between bytes and Unicode
// variation selectors used to carry payload bytes invisibly inside text.
//
// The selector set is the 256 code points formed by concatenating
// U+FE00..U+FE0F (16 selectors) and U+E0100..U+E01EF (240 selectors), in
// that order. Index i in [0,255] maps to the i-th element of that ordered
// set. The mapping is total and its inverse is partial (not every rune is
// a selector).
package selector

// lowRangeStart is the first code point of the 16-selector block.
const lowRangeStart = 0xFE00

// lowRangeEnd is the last code point of the 16-selector block (inclusive).
const lowRangeEnd = 0xFE0F

// highRangeStart is the first code point of the 240-selector block.
const highRangeStart = 0xE0100

// highRangeEnd is the last code point of the 240-selector block (inclusive).
const highRangeEnd = 0xE01EF

// lowRangeSize is the number of selectors in the low block.
const lowRangeSize = lowRangeEnd - lowRangeStart + 1

// ByteToRune maps a byte (0..255) to its variation selector code point.
func ByteToRune(b byte) rune {
	if int(b) < lowRangeSize {
		return lowRangeStart + rune(b)
	}
	return highRangeStart + rune(int(b)-lowRangeSize)
}

// RuneToByte inverts ByteToRune. ok is false if r is not a selector.
func RuneToByte(r rune) (b byte, ok bool) {
	switch {
	case r >= lowRangeStart && r <= lowRangeEnd:
		return byte(r - lowRangeStart), true
	case r >= highRangeStart && r <= highRangeEnd:
		return byte(int(r-highRangeStart) + lowRangeSize), true
	default:
		return 0, false
	}
}

// IsSelector reports whether r is a variation selector in either range.
func IsSelector(r rune) bool {
	_, ok := RuneToByte(r)
	return ok
}

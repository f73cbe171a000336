// Package carrier interleaves and extracts byte sequences with a carrier
// text using variation selectors placed at target positions.
package carrier

import (
	"strings"

	"github.com/inkmark/inkmark/pkg/locator"
	"github.com/inkmark/inkmark/pkg/selector"
	"github.com/inkmark/inkmark/pkg/werrors"
)

// Embed interleaves the bytes of data into text at the first len(data)
// target positions under mode (or, if distribute is true, evenly spread
// across all available targets). It returns werrors.InsufficientTargets
// if there are fewer eligible positions than bytes.
func Embed(text string, data []byte, mode locator.Mode, distribute bool) (string, error) {
	runes := []rune(text)
	targets, err := locator.Targets(runes, mode)
	if err != nil {
		return "", err
	}
	if len(targets) < len(data) {
		return "", werrors.New(werrors.InsufficientTargets,
			"carrier has fewer eligible target positions than envelope bytes")
	}

	chosen := make([]int, len(data))
	if distribute && len(data) > 0 {
		for k := range data {
			chosen[k] = targets[(k*len(targets))/len(data)]
		}
	} else {
		copy(chosen, targets[:len(data)])
	}

	// Group selectors by insertion position. With len(targets) >=
	// len(data), both placement rules choose distinct targets, so each
	// position receives at most one selector.
	insertions := make(map[int][]rune, len(chosen))
	for k, pos := range chosen {
		insertions[pos] = append(insertions[pos], selector.ByteToRune(data[k]))
	}

	var out strings.Builder
	out.Grow(len(runes) + len(data))
	for i, r := range runes {
		out.WriteRune(r)
		for _, sel := range insertions[i] {
			out.WriteRune(sel)
		}
	}
	return out.String(), nil
}

// Extract scans text in scalar order and returns every embedded byte, in
// order of appearance. It never fails: absence of selectors yields an
// empty slice.
func Extract(text string) []byte {
	var out []byte
	for _, r := range text {
		if b, ok := selector.RuneToByte(r); ok {
			out = append(out, b)
		}
	}
	return out
}

// HasSelectors reports whether text already contains any variation
// selector, used to implement the embed-time carrier-purity check.
func HasSelectors(text string) bool {
	for _, r := range text {
		if selector.IsSelector(r) {
			return true
		}
	}
	return false
}

// Strip removes every variation selector from text, returning the
// original carrier. Removing all selectors from an embedded string must
// yield the carrier it was built from (spec invariant).
func Strip(text string) string {
	var out strings.Builder
	out.Grow(len(text))
	for _, r := range text {
		if !selector.IsSelector(r) {
			out.WriteRune(r)
		}
	}
	return out.String()
}

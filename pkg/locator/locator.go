// Package locator identifies the carrier positions eligible to host an
// embedded variation selector, per the target mode policies in the
// specification.
package locator

import (
	"unicode"

	"github.com/inkmark/inkmark/pkg/selector"
	"github.com/inkmark/inkmark/pkg/werrors"
)

// Mode selects which carrier characters may host an embedded selector.
type Mode string

const (
	Whitespace   Mode = "whitespace"
	Punctuation  Mode = "punctuation"
	FirstLetter  Mode = "first_letter"
	LastLetter   Mode = "last_letter"
	AllCharacters Mode = "all_characters"
	None         Mode = "none"
)

// Valid reports whether m is one of the recognized target modes.
func (m Mode) Valid() bool {
	switch m {
	case Whitespace, Punctuation, FirstLetter, LastLetter, AllCharacters, None:
		return true
	default:
		return false
	}
}

// Targets returns the ordered (ascending) rune indices in text after
// which a selector may legally be appended under mode m. Runes that are
// themselves selectors are never targets, regardless of mode.
func Targets(text []rune, m Mode) ([]int, error) {
	if !m.Valid() {
		return nil, werrors.New(werrors.InvalidTargetMode, "unrecognized target mode: "+string(m))
	}

	var targets []int
	if m == None {
		return targets, nil
	}

	for i, r := range text {
		if selector.IsSelector(r) {
			continue
		}
		if matches(text, i, m) {
			targets = append(targets, i)
		}
	}
	return targets, nil
}

func matches(text []rune, i int, m Mode) bool {
	r := text[i]
	switch m {
	case Whitespace:
		return unicode.IsSpace(r)
	case Punctuation:
		return unicode.IsPunct(r)
	case FirstLetter:
		if !unicode.IsLetter(r) {
			return false
		}
		prev := precedingNonSelector(text, i)
		return prev < 0 || !unicode.IsLetter(text[prev])
	case LastLetter:
		if !unicode.IsLetter(r) {
			return false
		}
		next := followingNonSelector(text, i)
		return next >= len(text) || !unicode.IsLetter(text[next])
	case AllCharacters:
		return !selector.IsSelector(r)
	default:
		return false
	}
}

// precedingNonSelector returns the index of the nearest preceding rune
// that is not itself a selector, or -1 if none exists.
func precedingNonSelector(text []rune, i int) int {
	for j := i - 1; j >= 0; j-- {
		if !selector.IsSelector(text[j]) {
			return j
		}
	}
	return -1
}

// followingNonSelector returns the index of the nearest following rune
// that is not itself a selector, or len(text) if none exists.
func followingNonSelector(text []rune, i int) int {
	for j := i + 1; j < len(text); j++ {
		if !selector.IsSelector(text[j]) {
			return j
		}
	}
	return len(text)
}

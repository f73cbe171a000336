package carrier

import (
	"testing"

	"github.com/inkmark/inkmark/pkg/locator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedExtractRoundTrip(t *testing.T) {
	text := "Hello world, this is a longer carrier sentence with plenty of spaces, " +
		"enough of them to hold every byte of the short test payload below."
	data := []byte("the quick brown fox")

	embedded, err := Embed(text, data, locator.Whitespace, false)
	require.NoError(t, err)

	got := Extract(embedded)
	assert.Equal(t, data, got)

	assert.Equal(t, text, Strip(embedded))
}

func TestEmbedDistributed(t *testing.T) {
	text := "one two three four five six seven eight nine ten eleven twelve"
	data := []byte{1, 2, 3, 4}

	embedded, err := Embed(text, data, locator.Whitespace, true)
	require.NoError(t, err)
	assert.Equal(t, data, Extract(embedded))
	assert.Equal(t, text, Strip(embedded))
}

func TestEmbedInsufficientTargets(t *testing.T) {
	_, err := Embed("ab", []byte{1, 2, 3}, locator.Whitespace, false)
	require.Error(t, err)
}

func TestExtractEmptyWithoutSelectors(t *testing.T) {
	assert.Empty(t, Extract("plain text, no selectors here."))
}

func TestEmbedIsDeterministic(t *testing.T) {
	text := "a b c d e f g h"
	data := []byte{9, 8, 7}

	first, err := Embed(text, data, locator.Whitespace, false)
	require.NoError(t, err)
	second, err := Embed(text, data, locator.Whitespace, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

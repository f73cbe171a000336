//go:build property
// +build property

package carrier_test

import (
	"testing"

	"github.com/inkmark/inkmark/pkg/carrier"
	"github.com/inkmark/inkmark/pkg/locator"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// repeatedCarrier(300) has enough whitespace targets to host any byte sequence
// gen.SliceOf(gen.UInt8()) is likely to generate within gopter's default
// size bounds.
const longCarrierTemplate = "word "

func repeatedCarrier(n int) string {
	out := make([]byte, 0, n*len(longCarrierTemplate))
	for i := 0; i < n; i++ {
		out = append(out, longCarrierTemplate...)
	}
	return string(out)
}

// TestEmbedExtractRoundTrip is the spec §8 round-trip law:
// extract_bytes(embed_bytes(C, B)) == B for any byte sequence B and
// carrier C with enough targets.
func TestEmbedExtractRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	carrierText := repeatedCarrier(300)

	properties.Property("extracting an embedded byte sequence returns it unchanged", prop.ForAll(
		func(data []byte) bool {
			embedded, err := carrier.Embed(carrierText, data, locator.Whitespace, false)
			if err != nil {
				return false
			}
			got := carrier.Extract(embedded)
			if len(got) != len(data) {
				return false
			}
			for i := range data {
				if got[i] != data[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.UInt8()).Map(func(bs []uint8) []byte {
			b := make([]byte, len(bs))
			for i, v := range bs {
				b[i] = byte(v)
			}
			return b
		}),
	))

	properties.TestingRun(t)
}

// TestStripRemovesAllSelectors is the spec §8 law that removing all
// selectors from an embedded string yields the original carrier exactly.
func TestStripRemovesAllSelectors(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	carrierText := repeatedCarrier(300)

	properties.Property("stripping an embedded carrier returns the original carrier", prop.ForAll(
		func(bs []uint8) bool {
			data := make([]byte, len(bs))
			for i, v := range bs {
				data[i] = byte(v)
			}
			embedded, err := carrier.Embed(carrierText, data, locator.Whitespace, false)
			if err != nil {
				return false
			}
			return carrier.Strip(embedded) == carrierText
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}

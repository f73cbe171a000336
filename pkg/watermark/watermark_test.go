package watermark

import (
	"context"
	"strings"
	"testing"

	"github.com/inkmark/inkmark/pkg/canon"
	"github.com/inkmark/inkmark/pkg/carrier"
	"github.com/inkmark/inkmark/pkg/crypto"
	"github.com/inkmark/inkmark/pkg/selector"
	"github.com/inkmark/inkmark/pkg/werrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// longCarrier has enough whitespace targets to host a full signed
// envelope; the spec's seed scenario 1 carrier ("Hello world. Foo
// bar.") only has 3, which is illustrative, not literally reproducible
// once Ed25519's 64-byte signature is accounted for.
var longCarrier = "Hello world. Foo bar. This carrier sentence has many more words " +
	"than the seed example so that there are enough whitespace target " +
	"positions to host a full signed envelope end to end without " +
	"running out of room, which is the point of this longer sentence. " +
	strings.Repeat("More filler words keep the carrier long enough. ", 30)

func TestEmbedVerifyScenario1(t *testing.T) {
	signer, err := crypto.NewEd25519Signer()
	require.NoError(t, err)

	payload, err := canon.NewBasic("k1", 1714832824, "gpt-4", "", nil)
	require.NoError(t, err)

	embedded, err := Embed(context.Background(), longCarrier, payload, signer, Options{})
	require.NoError(t, err)
	assert.Equal(t, longCarrier, carrier.Strip(embedded))

	result := Verify(context.Background(), embedded, func(signerID string) ([]byte, bool) {
		if signerID != "k1" {
			return nil, false
		}
		return signer.PublicKey(), true
	})

	require.True(t, result.OK)
	assert.Equal(t, "k1", result.Metadata.SignerID())
	basic, ok := result.Metadata.(*canon.Basic)
	require.True(t, ok)
	assert.Equal(t, "2024-05-04T14:27:04Z", basic.TimestampField)
	assert.Equal(t, "gpt-4", basic.ModelID)
}

func TestScenario2TamperFlipsVerifyToFailure(t *testing.T) {
	signer, err := crypto.NewEd25519Signer()
	require.NoError(t, err)
	payload, err := canon.NewBasic("k1", 1714832824, "gpt-4", "", nil)
	require.NoError(t, err)

	embedded, err := Embed(context.Background(), longCarrier, payload, signer, Options{})
	require.NoError(t, err)

	// The signature covers only the canonical metadata payload, not the
	// visible carrier text (spec §4.5/§6), so flipping a plain carrier
	// letter with no selector attached to it is invisible to Verify —
	// the extracted selector bytes, and therefore the signed material,
	// are unchanged. Tamper with an actual selector instead: that is
	// the only kind of edit this scheme can detect. See DESIGN.md's
	// Open Question notes for the §1/§8-vs-§4.5 discussion.
	runes := []rune(embedded)
	flipped := false
	for i, r := range runes {
		if b, ok := selector.RuneToByte(r); ok {
			runes[i] = selector.ByteToRune(b ^ 0x01)
			flipped = true
			break
		}
	}
	require.True(t, flipped, "embedded text must contain at least one selector to tamper with")
	tampered := string(runes)

	result := Verify(context.Background(), tampered, func(string) ([]byte, bool) { return signer.PublicKey(), true })
	assert.False(t, result.OK)
	assert.Contains(t, []werrors.Kind{werrors.BadSignature, werrors.CorruptEnvelope}, result.Kind)
}

func TestScenario3InsufficientTargets(t *testing.T) {
	signer, err := crypto.NewEd25519Signer()
	require.NoError(t, err)
	payload, err := canon.NewBasic("k1", 1714832824, "", "", nil)
	require.NoError(t, err)

	_, err = Embed(context.Background(), "ab", payload, signer, Options{})
	require.Error(t, err)
	kind, ok := werrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, werrors.InsufficientTargets, kind)
}

func TestScenario5UnknownSigner(t *testing.T) {
	signer, err := crypto.NewEd25519Signer()
	require.NoError(t, err)
	payload, err := canon.NewBasic("k1", 1714832824, "", "", nil)
	require.NoError(t, err)

	embedded, err := Embed(context.Background(), longCarrier, payload, signer, Options{})
	require.NoError(t, err)

	result := Verify(context.Background(), embedded, func(string) ([]byte, bool) { return nil, false })
	assert.False(t, result.OK)
	assert.Equal(t, werrors.UnknownSigner, result.Kind)
}

func TestScenario6FieldCollision(t *testing.T) {
	signer, err := crypto.NewEd25519Signer()
	require.NoError(t, err)
	payload, err := canon.NewBasic("k1", 1714832824, "", "", map[string]interface{}{"signer_id": "spoof"})
	require.NoError(t, err)

	_, err = Embed(context.Background(), longCarrier, payload, signer, Options{})
	require.Error(t, err)
	kind, ok := werrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, werrors.FieldCollision, kind)
}

func TestEmbedRejectsCarrierWithExistingSelectors(t *testing.T) {
	signer, err := crypto.NewEd25519Signer()
	require.NoError(t, err)
	payload, err := canon.NewBasic("k1", 1714832824, "", "", nil)
	require.NoError(t, err)

	poisoned := longCarrier[:5] + string(rune(0xFE00)) + longCarrier[5:]
	_, err = Embed(context.Background(), poisoned, payload, signer, Options{})
	require.Error(t, err)
	kind, ok := werrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, werrors.CarrierHasSelectors, kind)
}

func TestExtractIsLossyAndNeverFails(t *testing.T) {
	payload, ok := Extract(context.Background(), "plain text with no embedded metadata at all")
	assert.False(t, ok)
	assert.Nil(t, payload)
}

func TestExtractRecoversUnverifiedMetadata(t *testing.T) {
	signer, err := crypto.NewEd25519Signer()
	require.NoError(t, err)
	payload, err := canon.NewBasic("k1", 1714832824, "gpt-4", "", nil)
	require.NoError(t, err)

	embedded, err := Embed(context.Background(), longCarrier, payload, signer, Options{})
	require.NoError(t, err)

	extracted, ok := Extract(context.Background(), embedded)
	require.True(t, ok)
	assert.Equal(t, "k1", extracted.SignerID())
}

//go:build property
// +build property

package envelope_test

import (
	"testing"

	"github.com/inkmark/inkmark/pkg/canon"
	"github.com/inkmark/inkmark/pkg/crypto"
	"github.com/inkmark/inkmark/pkg/envelope"
	"github.com/inkmark/inkmark/pkg/werrors"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestTamperAlwaysDetected is the spec §8 tamper-detection law: flipping
// any single byte of a signed, wire-ready envelope must make Verify
// fail with BadSignature or CorruptEnvelope, never succeed.
func TestTamperAlwaysDetected(t *testing.T) {
	signer, err := crypto.NewEd25519Signer()
	if err != nil {
		t.Fatal(err)
	}
	payload, err := canon.NewBasic("k1", int64(1714832824), "gpt-4", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	wire, err := envelope.Sign(payload, signer)
	if err != nil {
		t.Fatal(err)
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	resolve := func(string) ([]byte, bool) { return signer.PublicKey(), true }

	properties.Property("flipping any byte of a signed envelope breaks verification", prop.ForAll(
		func(idx int, flip uint8) bool {
			pos := idx % len(wire)
			tampered := append([]byte(nil), wire...)
			tampered[pos] ^= (flip | 1) // guarantee a nonzero XOR

			result := envelope.Verify(tampered, resolve)
			if result.OK {
				return false
			}
			return result.Kind == werrors.BadSignature || result.Kind == werrors.CorruptEnvelope
		},
		gen.IntRange(0, 1<<20),
		gen.UInt8(),
	))

	properties.TestingRun(t)
}

// Package envelope assembles and verifies the signed, versioned,
// DEFLATE-compressed envelope that carries a canonicalized metadata
// payload (spec §4.5, §6). Its shape — a typed record with a stable
// error surface over a canonicalize-then-sign pipeline — is adapted
// from Mindburn-Labs-helm/core/pkg/envelope.Validator and
// pkg/manifest's ToolArgError-style deterministic error codes.
package envelope

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/inkmark/inkmark/pkg/canon"
	"github.com/inkmark/inkmark/pkg/config"
	"github.com/inkmark/inkmark/pkg/crypto"
	"github.com/inkmark/inkmark/pkg/werrors"
)

// SupportedVersion is the only envelope version this implementation
// understands (spec §6: "Version 1 is defined").
const SupportedVersion uint8 = 1

// signVersion and deflateLevel are the knobs pkg/config.Load exposes as
// INKMARK_ENVELOPE_VERSION and INKMARK_DEFLATE_LEVEL. Both default to
// the spec's normative values (version 1, flate.DefaultCompression);
// Verify always rejects anything but SupportedVersion regardless of
// what Sign was told to write, so raising signVersion only makes sense
// once a future spec revision defines a version 2 to pair it with.
var (
	signVersion  = config.Load().EnvelopeVersion
	deflateLevel = config.Load().DeflateLevel
)

// Resolver looks up the Ed25519 public key registered for a signer_id.
// It is caller-supplied (spec §1: key storage and the resolver itself
// are external collaborators) and MUST be safe to call from any
// goroutine; its result is never cached by this package.
type Resolver func(signerID string) (publicKey []byte, ok bool)

// State names the verification state machine steps from spec §4.5.
// Verify reports only the terminal state: StateVerified on success and
// StateFailed on any failure, with VerifyResult.Kind naming the check
// that failed.
type State string

const (
	StateStart          State = "start"
	StateExtracted      State = "extracted"
	StateDecompressed   State = "decompressed"
	StateParsed         State = "parsed"
	StateSignerResolved State = "signer_resolved"
	StateVerified       State = "verified"
	StateFailed         State = "failed"
)

// Envelope is the parsed, not-yet-verified wire record.
type Envelope struct {
	Version   uint8
	Format    canon.Format
	Payload   []byte // canonical payload bytes (signed material, minus the version/format prefix)
	Signature []byte // 64-byte Ed25519 signature
}

// Sign canonicalizes payload, signs version||format||canonicalPayload
// with signer, and returns the DEFLATE-compressed wire bytes ready to
// be embedded by pkg/carrier.
func Sign(payload canon.Payload, signer crypto.Signer) ([]byte, error) {
	canonical, err := canon.Canonicalize(payload)
	if err != nil {
		return nil, err
	}

	signable := signableBytes(signVersion, payload.Format(), canonical)
	sig, err := signer.Sign(signable)
	if err != nil {
		return nil, werrors.New(werrors.SigningFailed, err.Error())
	}
	if len(sig) != 64 {
		return nil, werrors.New(werrors.SigningFailed, "signer returned a signature of unexpected length")
	}

	wire := serialize(signVersion, payload.Format(), canonical, sig)
	return deflate(wire)
}

// signableBytes builds version||format||payload, the exact bytes the
// Ed25519 signature is computed over (spec §6 — pre-compression, no
// separate hashing step; Ed25519 already hashes its message internally).
func signableBytes(version uint8, format canon.Format, payload []byte) []byte {
	buf := make([]byte, 0, 2+len(payload))
	buf = append(buf, version, byte(format))
	buf = append(buf, payload...)
	return buf
}

// serialize builds [version:1][format:1][len(payload):4 BE][payload][sig:64].
func serialize(version uint8, format canon.Format, payload, sig []byte) []byte {
	out := make([]byte, 0, 2+4+len(payload)+len(sig))
	out = append(out, version, byte(format))

	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(payload)))
	out = append(out, lenBuf...)

	out = append(out, payload...)
	out = append(out, sig...)
	return out
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, deflateLevel)
	if err != nil {
		return nil, fmt.Errorf("envelope: open deflate writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("envelope: deflate write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("envelope: deflate close: %w", err)
	}
	return buf.Bytes(), nil
}

func inflate(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Parse decompresses and structurally parses wire bytes into an
// Envelope, without checking the signature. Used both by Verify (which
// checks the signature afterward) and by the lossy diagnostic extract
// path (which never checks it).
func Parse(wireBytes []byte) (*Envelope, error) {
	raw, err := inflate(wireBytes)
	if err != nil {
		return nil, werrors.New(werrors.CorruptEnvelope, "DEFLATE decompression failed: "+err.Error())
	}

	if len(raw) < 2+4+64 {
		return nil, werrors.New(werrors.CorruptEnvelope, "envelope shorter than the minimum header+signature size")
	}

	version := raw[0]
	format := canon.Format(raw[1])
	payloadLen := binary.BigEndian.Uint32(raw[2:6])

	if uint32(len(raw)-6-64) != payloadLen {
		return nil, werrors.New(werrors.CorruptEnvelope, "declared payload length does not match envelope size")
	}

	payload := raw[6 : 6+payloadLen]
	sig := raw[6+payloadLen:]
	if len(sig) != 64 {
		return nil, werrors.New(werrors.CorruptEnvelope, "signature is not 64 bytes")
	}

	return &Envelope{Version: version, Format: format, Payload: payload, Signature: sig}, nil
}

// VerifyResult is the outcome of Verify: its terminal State and, on
// failure, the Kind of the failed check (spec §7: the failing kind must
// be surfaced via "an accompanying diagnostic channel").
type VerifyResult struct {
	OK      bool
	Payload canon.Payload
	State   State
	Kind    werrors.Kind // zero value when OK is true
}

// Verify runs the full spec §4.5 state machine: extract (done by the
// caller via pkg/carrier before calling Verify) → decompress → parse →
// resolve signer → verify signature. It never returns a Go error for
// verification-class failures; those are reported in VerifyResult.
func Verify(wireBytes []byte, resolve Resolver) VerifyResult {
	env, err := Parse(wireBytes)
	if err != nil {
		kind, _ := werrors.KindOf(err)
		return VerifyResult{State: StateFailed, Kind: kind}
	}

	if env.Version != SupportedVersion {
		return VerifyResult{State: StateFailed, Kind: werrors.UnsupportedVersion}
	}

	payload, err := canon.Decode(env.Format, env.Payload)
	if err != nil {
		return VerifyResult{State: StateFailed, Kind: werrors.CorruptEnvelope}
	}

	signerID := payload.SignerID()
	if signerID == "" {
		return VerifyResult{State: StateFailed, Kind: werrors.MissingSignerId}
	}

	pubKey, ok := resolve(signerID)
	if !ok {
		return VerifyResult{State: StateFailed, Kind: werrors.UnknownSigner}
	}

	signable := signableBytes(env.Version, env.Format, env.Payload)
	if !crypto.Verify(pubKey, signable, env.Signature) {
		return VerifyResult{State: StateFailed, Kind: werrors.BadSignature}
	}

	return VerifyResult{OK: true, Payload: payload, State: StateVerified}
}

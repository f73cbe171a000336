// Package werrors defines the closed set of error kinds this module
// raises for caller contract violations, mirroring the deterministic
// error-code convention used throughout the retrieval pack (e.g. a
// struct with a stable Kind/Code plus a human Message and an optional
// Field), rather than ad-hoc fmt.Errorf strings.
package werrors

import (
	"errors"
	"fmt"
)

// Kind is a closed enumeration of the error kinds this module raises.
type Kind string

const (
	// MissingRequiredField — signer_id or timestamp absent at embed.
	MissingRequiredField Kind = "MISSING_REQUIRED_FIELD"
	// FieldCollision — a custom key shadows a reserved top-level name.
	FieldCollision Kind = "FIELD_COLLISION"
	// InsufficientTargets — carrier has fewer eligible positions than envelope bytes.
	InsufficientTargets Kind = "INSUFFICIENT_TARGETS"
	// InvalidTargetMode — unrecognized target mode string.
	InvalidTargetMode Kind = "INVALID_TARGET_MODE"
	// SigningFailed — the underlying Ed25519 primitive rejected its inputs.
	SigningFailed Kind = "SIGNING_FAILED"
	// UnknownStream — operation referenced an unregistered stream_id.
	UnknownStream Kind = "UNKNOWN_STREAM"
	// AlreadyFinalized — process_chunk called after finalize.
	AlreadyFinalized Kind = "ALREADY_FINALIZED"
	// CorruptEnvelope — DEFLATE or structural parse failure during verify.
	CorruptEnvelope Kind = "CORRUPT_ENVELOPE"
	// UnsupportedVersion — envelope version byte not recognized.
	UnsupportedVersion Kind = "UNSUPPORTED_VERSION"
	// MissingSignerId — envelope payload lacks signer_id.
	MissingSignerId Kind = "MISSING_SIGNER_ID"
	// UnknownSigner — the resolver returned no public key for signer_id.
	UnknownSigner Kind = "UNKNOWN_SIGNER"
	// BadSignature — the Ed25519 signature check failed.
	BadSignature Kind = "BAD_SIGNATURE"
	// CarrierHasSelectors — carrier already contains variation selectors
	// at embed time (spec's Open Question, resolved as a rejection).
	CarrierHasSelectors Kind = "CARRIER_HAS_SELECTORS"
)

// Error is the single exported error type this module raises for
// embedding-time contract violations and stream-session misuse. It is
// never used for verification-class failures (those are reported via
// return values, not a Go error — see pkg/watermark).
type Error struct {
	Kind    Kind
	Message string
	Field   string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New constructs an *Error of the given kind with no field context.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithField constructs an *Error annotated with the offending field name.
func WithField(kind Kind, message, field string) *Error {
	return &Error{Kind: kind, Message: message, Field: field}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

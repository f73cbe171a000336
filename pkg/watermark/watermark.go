// Package watermark provides the one-shot embed/extract/verify API
// (spec §4.6, §6) over pkg/selector, pkg/locator, pkg/carrier,
// pkg/canon, and pkg/envelope. It is a thin composition layer with no
// direct teacher analogue (the teacher has no single "embed a
// document" entrypoint); its style — constructors returning plain
// structs, no functional-options boilerplate — follows
// Mindburn-Labs-helm/core/pkg/crypto and pkg/envelope.
package watermark

import (
	"context"

	"github.com/inkmark/inkmark/internal/telemetry"
	"github.com/inkmark/inkmark/pkg/canon"
	"github.com/inkmark/inkmark/pkg/carrier"
	"github.com/inkmark/inkmark/pkg/config"
	"github.com/inkmark/inkmark/pkg/crypto"
	"github.com/inkmark/inkmark/pkg/envelope"
	"github.com/inkmark/inkmark/pkg/locator"
	"github.com/inkmark/inkmark/pkg/werrors"
)

// Options configures Embed. An empty TargetMode defers to the
// process-wide default from config.Load ("whitespace" unless
// INKMARK_TARGET_MODE says otherwise). Distribute is used as given;
// INKMARK_DISTRIBUTE does not affect it.
type Options struct {
	TargetMode locator.Mode
	Distribute bool
}

// defaulted fills in the ambient defaults from config.Load for a
// zero-value Options. Distribute has no usable zero value of its own
// (false is indistinguishable from "not set"), so it is left to the
// caller; only TargetMode is filled in here.
func (o Options) defaulted() Options {
	if o.TargetMode == "" {
		o.TargetMode = config.Load().TargetMode
	}
	return o
}

// Embed canonicalizes and signs metadata, then interleaves the signed
// envelope into carrier at target positions, returning the embedded
// string. It rejects carriers that already contain variation selectors
// (the spec's Open Question on multi-selector collisions, resolved as
// a rejection: see DESIGN.md).
func Embed(ctx context.Context, carrierText string, metadata canon.Payload, signer crypto.Signer, opts Options) (string, error) {
	telemetry.Default.RecordAttempt(ctx, "embed")
	ctx, span := telemetry.Tracer().Start(ctx, "inkmark.Embed")
	defer span.End()

	opts = opts.defaulted()

	if carrier.HasSelectors(carrierText) {
		err := werrors.New(werrors.CarrierHasSelectors, "carrier already contains variation selectors")
		telemetry.Default.RecordFailure(ctx, "embed", string(err.Kind))
		return "", err
	}

	wire, err := envelope.Sign(metadata, signer)
	if err != nil {
		if kind, ok := werrors.KindOf(err); ok {
			telemetry.Default.RecordFailure(ctx, "embed", string(kind))
		}
		return "", err
	}

	embedded, err := carrier.Embed(carrierText, wire, opts.TargetMode, opts.Distribute)
	if err != nil {
		if kind, ok := werrors.KindOf(err); ok {
			telemetry.Default.RecordFailure(ctx, "embed", string(kind))
		}
		return "", err
	}

	telemetry.Default.RecordBytes(ctx, len(wire))
	return embedded, nil
}

// Extract is a lossy diagnostic: it recovers whatever selectors are
// present and attempts to parse them as an envelope, WITHOUT checking
// the signature. It must never be used for trust decisions — use
// Verify for that. It returns (nil, false) for text with no selectors
// or a malformed/unparsable envelope; it never returns a Go error.
func Extract(ctx context.Context, text string) (canon.Payload, bool) {
	telemetry.Default.RecordAttempt(ctx, "extract")

	raw := carrier.Extract(text)
	if len(raw) == 0 {
		return nil, false
	}

	env, err := envelope.Parse(raw)
	if err != nil {
		return nil, false
	}

	payload, err := canon.Decode(env.Format, env.Payload)
	if err != nil {
		return nil, false
	}
	return payload, true
}

// Result is the outcome of Verify.
type Result struct {
	OK       bool
	Metadata canon.Payload
	Kind     werrors.Kind // zero value when OK is true
}

// Verify extracts, decompresses, parses, resolves the signer, and
// checks the Ed25519 signature (the full spec §4.5 state machine). It
// never returns a Go error for verification-class failures — failures
// are reported via Result.Kind (spec §7's "accompanying diagnostic
// channel").
func Verify(ctx context.Context, text string, resolve envelope.Resolver) Result {
	telemetry.Default.RecordAttempt(ctx, "verify")

	raw := carrier.Extract(text)
	env := envelope.Verify(raw, resolve)
	if !env.OK {
		telemetry.Default.RecordFailure(ctx, "verify", string(env.Kind))
		return Result{OK: false, Kind: env.Kind}
	}
	return Result{OK: true, Metadata: env.Payload}
}

// Package stream implements the chunked analogue of pkg/watermark's
// one-shot Embed: a single-owner session that buffers carrier chunks,
// tracks how much of a pre-signed envelope has been embedded, and
// guarantees the concatenation of its outputs equals a one-shot embed
// of the concatenated input. Its session-handle shape (mutated only
// through its own methods, never shared across goroutines) follows
// Mindburn-Labs-helm/core/pkg/kernel's Limiter and Conversation
// session types; see the pkg/stream entry of DESIGN.md's grounding
// ledger.
package stream

import (
	"context"
	"strings"
	"unicode"

	"github.com/inkmark/inkmark/internal/telemetry"
	"github.com/inkmark/inkmark/pkg/canon"
	"github.com/inkmark/inkmark/pkg/crypto"
	"github.com/inkmark/inkmark/pkg/envelope"
	"github.com/inkmark/inkmark/pkg/locator"
	"github.com/inkmark/inkmark/pkg/selector"
	"github.com/inkmark/inkmark/pkg/werrors"
)

// Info is the read-only snapshot returned by Session.Info (spec's
// stream_info).
type Info struct {
	TargetMode      locator.Mode
	FirstOnly       bool
	Emitted         int
	Drained         bool
	Finalized       bool
	IncompleteEmbed bool
}

// Session is a single streaming embed in progress. A Session MUST only
// be used by one goroutine at a time; it is not reentrant on itself,
// though distinct sessions are fully independent.
type Session struct {
	id         string
	env        []byte
	targetMode locator.Mode
	firstOnly  bool

	buffer          []rune
	emitted         int
	drained         bool
	finalized       bool
	incompleteEmbed bool
}

// NewSession canonicalizes and signs metadata once, up front, and
// returns a session ready to accept chunks via Process. id is an
// opaque debug label (spec §9's "expose the stream_id only as a debug
// label"); callers that need lookup-by-id should go through Manager
// instead of holding raw Sessions in a map themselves.
func NewSession(id string, metadata canon.Payload, targetMode locator.Mode, firstOnly bool, signer crypto.Signer) (*Session, error) {
	if !targetMode.Valid() {
		return nil, werrors.New(werrors.InvalidTargetMode, "unrecognized target mode: "+string(targetMode))
	}

	env, err := envelope.Sign(metadata, signer)
	if err != nil {
		return nil, err
	}

	return &Session{
		id:         id,
		env:        env,
		targetMode: targetMode,
		firstOnly:  firstOnly,
	}, nil
}

// ID returns the session's debug label.
func (s *Session) ID() string { return s.id }

// Info returns a snapshot of the session's current state.
func (s *Session) Info() Info {
	return Info{
		TargetMode:      s.targetMode,
		FirstOnly:       s.firstOnly,
		Emitted:         s.emitted,
		Drained:         s.drained,
		Finalized:       s.finalized,
		IncompleteEmbed: s.incompleteEmbed,
	}
}

// Process appends chunk to the session's buffer, embeds as much of the
// envelope as is safely possible, and returns the text the caller
// should emit downstream now. If isLast is true, Process additionally
// performs the effect of Finalize and folds its flush into the
// returned string, so a caller that always threads is_last through
// never needs to call Finalize separately.
func (s *Session) Process(ctx context.Context, chunk string, isFirst, isLast bool) (string, error) {
	telemetry.Default.RecordAttempt(ctx, "stream_process")

	if s.finalized {
		err := werrors.New(werrors.AlreadyFinalized, "process_chunk called after finalize")
		telemetry.Default.RecordFailure(ctx, "stream_process", string(err.Kind))
		return "", err
	}

	var out string
	if s.drained {
		out = chunk
	} else {
		out = s.processBuffered(chunk, isLast)
	}

	if isLast {
		flush, err := s.Finalize(ctx)
		if err != nil {
			return "", err
		}
		out += flush
	}
	return out, nil
}

// processBuffered appends chunk to the buffer and embeds as much of the
// envelope as is safely possible. isLast tells it whether the buffer is
// guaranteed to be the true end of the carrier text: target_mode's
// whitespace/punctuation/all_characters predicates only ever look at
// the rune itself, so their classification of anything in the buffer
// can never be overturned by a later chunk. last_letter also looks at
// the following rune, so a buffer that currently ends on a letter
// cannot yet tell whether that letter is truly the end of its word —
// unless isLast says no more text is coming, that classification is
// withheld until it is resolved. first_letter looks at the preceding
// rune, which a partial flush would remove from the buffer, so a
// trailing run of letters is likewise held back (see
// withholdUnstableTail).
func (s *Session) processBuffered(chunk string, isLast bool) string {
	s.buffer = append(s.buffer, []rune(chunk)...)

	// Targets is only ever called with s.targetMode, already validated
	// in NewSession, so the error return is unreachable here.
	targets, _ := locator.Targets(s.buffer, s.targetMode)

	safeTargets, safeBoundary := targets, len(s.buffer)-1
	if !isLast {
		safeTargets, safeBoundary = withholdUnstableTail(s.buffer, s.targetMode, targets)
	}
	remaining := len(s.env) - s.emitted

	if len(safeTargets) >= remaining {
		// Enough stable targets exist to place every remaining envelope
		// byte without relying on a classification a later chunk could
		// still overturn. Whatever the rest of the buffer turns out to
		// be, it was never going to host a selector, so it is safe to
		// flush it in full rather than hold it back.
		data := s.env[s.emitted:]
		out := embedSegment(s.buffer, safeTargets[:len(data)], data, len(s.buffer)-1)
		s.emitted = len(s.env)
		s.drained = true
		s.buffer = nil
		return out
	}

	if s.firstOnly {
		return ""
	}

	n := len(safeTargets)
	if n == 0 {
		return ""
	}

	data := s.env[s.emitted : s.emitted+n]
	out := embedSegment(s.buffer, safeTargets[:n], data, safeBoundary)
	s.emitted += n
	s.buffer = append([]rune(nil), s.buffer[safeBoundary+1:]...)
	return out
}

// withholdUnstableTail drops any trailing target whose classification
// depends on a rune a future chunk might still append, and caps the
// safe flush boundary at the position just before it. For last_letter,
// the predicate is "alphabetic and the following scalar is absent or
// non-alphabetic", and "absent" is true of the last rune in any buffer
// regardless of whether more text is still coming, so that rune's
// status is provisional until either a non-letter follows it or the
// stream is known to have ended (isLast). For first_letter, a flushed
// prefix is no longer in the buffer when the next chunk is classified,
// so a trailing run of letters is kept back whole: the retained text
// then starts right after a non-letter, where "no preceding scalar"
// and "non-alphabetic preceding scalar" classify alike.
func withholdUnstableTail(buf []rune, mode locator.Mode, targets []int) ([]int, int) {
	boundary := len(buf) - 1
	if len(buf) == 0 || !unicode.IsLetter(buf[len(buf)-1]) {
		return targets, boundary
	}
	if mode == locator.FirstLetter {
		start := len(buf) - 1
		for start > 0 && unicode.IsLetter(buf[start-1]) {
			start--
		}
		for len(targets) > 0 && targets[len(targets)-1] >= start {
			targets = targets[:len(targets)-1]
		}
		return targets, start - 1
	}
	if mode != locator.LastLetter {
		return targets, boundary
	}
	boundary = len(buf) - 2
	if len(targets) > 0 && targets[len(targets)-1] == len(buf)-1 {
		targets = targets[:len(targets)-1]
	}
	return targets, boundary
}

// embedSegment writes buf[0..boundary] to a string, inserting the
// selector for data[k] immediately after buf[targets[k]] for each k.
// targets must be sorted ascending and all <= boundary.
func embedSegment(buf []rune, targets []int, data []byte, boundary int) string {
	selAt := make(map[int]rune, len(targets))
	for k, pos := range targets {
		selAt[pos] = selector.ByteToRune(data[k])
	}

	var out strings.Builder
	out.Grow(boundary + 1 + len(targets))
	for i := 0; i <= boundary; i++ {
		out.WriteRune(buf[i])
		if sel, ok := selAt[i]; ok {
			out.WriteRune(sel)
		}
	}
	return out.String()
}

// Finalize flushes any remaining buffered text unmodified and closes
// the session. It never fails on an incomplete embed: per spec §4.7,
// a caller may still have a well-formed prefix, so Finalize records
// IncompleteEmbed instead of returning an error. Calling Finalize on an
// already-finalized session returns AlreadyFinalized.
func (s *Session) Finalize(ctx context.Context) (string, error) {
	telemetry.Default.RecordAttempt(ctx, "stream_finalize")

	if s.finalized {
		err := werrors.New(werrors.AlreadyFinalized, "finalize called more than once")
		telemetry.Default.RecordFailure(ctx, "stream_finalize", string(err.Kind))
		return "", err
	}

	s.finalized = true
	if s.drained {
		return "", nil
	}

	s.incompleteEmbed = true
	out := string(s.buffer)
	s.buffer = nil
	return out, nil
}

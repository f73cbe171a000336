// Package canon implements the deterministic payload canonicalizer
// (spec §4.4): a closed sum type for the two metadata payload shapes,
// timestamp normalization, reserved-field collision checking, and RFC
// 8785 (JCS) canonical serialization over the result.
//
// Canonicalization is done the way viruswami5511-guardclaw's Go
// verifier does it: json.Marshal the typed payload to get ordinary JSON
// bytes, then run those bytes through github.com/gowebpki/jcs, which
// re-sorts every object's keys (at every nesting level) and reformats
// numbers per RFC 8785 regardless of the input's key order. That makes
// the "lexicographic at every nesting level" requirement automatic: we
// never have to hand-sort struct fields or map keys ourselves.
package canon

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"
	"github.com/inkmark/inkmark/pkg/werrors"
)

// Format identifies which payload shape an envelope carries. The
// numeric values are normative (spec §6): 0 = basic, 1 = manifest.
type Format uint8

const (
	FormatBasic    Format = 0
	FormatManifest Format = 1
)

func (f Format) String() string {
	switch f {
	case FormatBasic:
		return "basic"
	case FormatManifest:
		return "manifest"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// Payload is implemented by Basic and Manifest.
type Payload interface {
	// Format reports which wire format tag this payload serializes as.
	Format() Format
	// SignerID returns the required signer_id field.
	SignerID() string
	// validate checks required fields and reserved-name collisions,
	// returning a *werrors.Error on violation.
	validate() error
}

// reservedBasic are the top-level field names a Basic payload's Custom
// map must not shadow.
var reservedBasic = map[string]bool{
	"signer_id": true, "timestamp": true, "model_id": true,
	"generation_id": true, "custom": true,
}

// reservedManifest are the top-level field names a Manifest payload's
// CustomClaims map must not shadow.
var reservedManifest = map[string]bool{
	"signer_id": true, "timestamp": true, "claim_generator": true,
	"actions": true, "ai_info": true, "custom_claims": true,
}

// Basic is the compact metadata payload form (spec §3).
type Basic struct {
	SignerIDField    string                 `json:"signer_id"`
	TimestampField   string                 `json:"timestamp"`
	ModelID          string                 `json:"model_id,omitempty"`
	GenerationID     string                 `json:"generation_id,omitempty"`
	Custom           map[string]interface{} `json:"custom,omitempty"`
}

func (b *Basic) Format() Format   { return FormatBasic }
func (b *Basic) SignerID() string { return b.SignerIDField }

// NewBasic builds a Basic payload, normalizing timestamp (an epoch
// int/int64/float64 seconds value or an ISO-8601 string) to the
// canonical form. It does not validate required fields or collisions;
// that happens in Canonicalize so extract-path callers can still
// construct a Basic from partial data.
func NewBasic(signerID string, timestamp interface{}, modelID, generationID string, custom map[string]interface{}) (*Basic, error) {
	ts, err := NormalizeTimestamp(timestamp)
	if err != nil {
		return nil, err
	}
	return &Basic{
		SignerIDField:  signerID,
		TimestampField: ts,
		ModelID:        modelID,
		GenerationID:   generationID,
		Custom:         custom,
	}, nil
}

func (b *Basic) validate() error {
	if b.SignerIDField == "" {
		return werrors.WithField(werrors.MissingRequiredField, "signer_id is required", "signer_id")
	}
	if b.TimestampField == "" {
		return werrors.WithField(werrors.MissingRequiredField, "timestamp is required", "timestamp")
	}
	for k := range b.Custom {
		if reservedBasic[k] {
			return werrors.WithField(werrors.FieldCollision, "custom field shadows a reserved top-level name", k)
		}
	}
	return nil
}

// Action is a single entry in a Manifest payload's ordered action list,
// modeled on a content-provenance manifest action record.
type Action struct {
	Action     string                 `json:"action"`
	When       string                 `json:"when,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// Manifest is the nested, content-provenance-manifest-shaped metadata
// payload form (spec §3).
type Manifest struct {
	SignerIDField  string                 `json:"signer_id"`
	TimestampField string                 `json:"timestamp"`
	ClaimGenerator string                 `json:"claim_generator,omitempty"`
	Actions        []Action               `json:"actions,omitempty"`
	AIInfo         map[string]interface{} `json:"ai_info,omitempty"`
	CustomClaims   map[string]interface{} `json:"custom_claims,omitempty"`
}

func (m *Manifest) Format() Format   { return FormatManifest }
func (m *Manifest) SignerID() string { return m.SignerIDField }

// NewManifest builds a Manifest payload, normalizing timestamp the same
// way NewBasic does.
func NewManifest(signerID string, timestamp interface{}, claimGenerator string, actions []Action, aiInfo, customClaims map[string]interface{}) (*Manifest, error) {
	ts, err := NormalizeTimestamp(timestamp)
	if err != nil {
		return nil, err
	}
	return &Manifest{
		SignerIDField:  signerID,
		TimestampField: ts,
		ClaimGenerator: claimGenerator,
		Actions:        actions,
		AIInfo:         aiInfo,
		CustomClaims:   customClaims,
	}, nil
}

func (m *Manifest) validate() error {
	if m.SignerIDField == "" {
		return werrors.WithField(werrors.MissingRequiredField, "signer_id is required", "signer_id")
	}
	if m.TimestampField == "" {
		return werrors.WithField(werrors.MissingRequiredField, "timestamp is required", "timestamp")
	}
	for k := range m.CustomClaims {
		if reservedManifest[k] {
			return werrors.WithField(werrors.FieldCollision, "custom_claims field shadows a reserved top-level name", k)
		}
	}
	return nil
}

// NormalizeTimestamp accepts an epoch seconds value (int64 or float64),
// or an ISO-8601 string, and returns the canonical ISO-8601 UTC
// second-precision string form ("2024-05-04T14:27:04Z").
func NormalizeTimestamp(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", werrors.WithField(werrors.MissingRequiredField, "timestamp is required", "timestamp")
		}
		parsed, err := parseISO8601(t)
		if err != nil {
			return "", werrors.WithField(werrors.MissingRequiredField, "timestamp is not a valid ISO-8601 string", "timestamp")
		}
		return formatCanonical(parsed), nil
	case int:
		return formatCanonical(time.Unix(int64(t), 0).UTC()), nil
	case int64:
		return formatCanonical(time.Unix(t, 0).UTC()), nil
	case float64:
		sec := int64(t)
		nsec := int64((t - float64(sec)) * 1e9)
		return formatCanonical(time.Unix(sec, nsec).UTC()), nil
	case time.Time:
		return formatCanonical(t.UTC()), nil
	case nil:
		return "", werrors.WithField(werrors.MissingRequiredField, "timestamp is required", "timestamp")
	default:
		return "", werrors.WithField(werrors.MissingRequiredField,
			fmt.Sprintf("timestamp has unsupported type %T", v), "timestamp")
	}
}

func formatCanonical(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

var iso8601Layouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

func parseISO8601(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range iso8601Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// Canonicalize validates p (required fields, reserved-name collisions)
// and returns its RFC 8785 JCS canonical serialization.
func Canonicalize(p Payload) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("canon: marshal payload: %w", err)
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canon: jcs transform: %w", err)
	}
	return canonical, nil
}

// Decode parses canonical (or merely well-formed) JSON payload bytes
// back into a Payload of the given format, without re-validating
// required fields (used by the lossy diagnostic extract path).
func Decode(format Format, data []byte) (Payload, error) {
	switch format {
	case FormatBasic:
		var b Basic
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return &b, nil
	case FormatManifest:
		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil
	default:
		return nil, werrors.New(werrors.CorruptEnvelope, fmt.Sprintf("unrecognized payload format tag %d", uint8(format)))
	}
}

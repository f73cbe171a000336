// Package config loads ambient defaults for embed/verify/stream
// operations from environment variables, the way
// Mindburn-Labs-helm/core/pkg/config.Load reads PORT, LOG_LEVEL, and
// friends with fallback defaults rather than failing on an unset var.
package config

import (
	"compress/flate"
	"os"
	"strconv"
	"time"

	"github.com/inkmark/inkmark/pkg/locator"
)

// Config holds the process-wide defaults read from the environment.
// watermark.Options takes TargetMode from it when left empty,
// pkg/envelope takes DeflateLevel and EnvelopeVersion, and
// stream.NewDefaultManager takes StreamTTL; Distribute is loaded but
// not applied by any of them.
type Config struct {
	TargetMode     locator.Mode
	Distribute     bool
	DeflateLevel   int
	EnvelopeVersion uint8
	StreamTTL      time.Duration
}

const (
	envTargetMode      = "INKMARK_TARGET_MODE"
	envDistribute      = "INKMARK_DISTRIBUTE"
	envDeflateLevel    = "INKMARK_DEFLATE_LEVEL"
	envEnvelopeVersion = "INKMARK_ENVELOPE_VERSION"
	envStreamTTL       = "INKMARK_STREAM_TTL"
)

// Load reads Config from the environment, falling back to the spec's
// stated defaults for any variable that is unset or unparsable.
func Load() *Config {
	targetMode := locator.Mode(os.Getenv(envTargetMode))
	if !targetMode.Valid() {
		targetMode = locator.Whitespace
	}

	distribute := os.Getenv(envDistribute) == "true"

	deflateLevel := flate.DefaultCompression
	if v := os.Getenv(envDeflateLevel); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= -2 && n <= 9 {
			deflateLevel = n
		}
	}

	envelopeVersion := uint8(1)
	if v := os.Getenv(envEnvelopeVersion); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 255 {
			envelopeVersion = uint8(n)
		}
	}

	streamTTL := 10 * time.Minute
	if v := os.Getenv(envStreamTTL); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			streamTTL = d
		}
	}

	return &Config{
		TargetMode:      targetMode,
		Distribute:      distribute,
		DeflateLevel:    deflateLevel,
		EnvelopeVersion: envelopeVersion,
		StreamTTL:       streamTTL,
	}
}

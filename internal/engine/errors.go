package engine

import "errors"

// Sentinel errors surfaced through the public API. Callers should use
// errors.Is against these rather than matching on message text.
var (
	// ErrInvalidGeometry is returned by New when image dimensions are not
	// exact multiples of the chunk dimensions, or either is zero.
	ErrInvalidGeometry = errors.New("waldovision: invalid geometry")

	// ErrInvalidBuffer is returned by ProcessFrame when the supplied RGBA
	// buffer length does not match the configured image geometry.
	ErrInvalidBuffer = errors.New("waldovision: invalid frame buffer")

	// ErrInvalidConfig is returned by New when a threshold is out of
	// [0, +Inf) or the disturbance entry/exit thresholds are inverted.
	ErrInvalidConfig = errors.New("waldovision: invalid config")
)

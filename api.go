package waldovision

import "github.com/TheGonzalezDesigns/waldo-vision/internal/engine"

// Public API — re-export internal types as a stable contract so callers
// never import internal/engine directly.

// PipelineConfig configures a Pipeline. See DefaultPipelineConfig for
// the documented defaults.
type PipelineConfig = engine.PipelineConfig

// DefaultPipelineConfig returns a PipelineConfig with every documented
// default filled in for the given image/chunk geometry.
func DefaultPipelineConfig(imageWidth, imageHeight, chunkWidth, chunkHeight int) PipelineConfig {
	return engine.DefaultPipelineConfig(imageWidth, imageHeight, chunkWidth, chunkHeight)
}

// Data model types, re-exported verbatim from the internal engine.
type (
	Pixel           = engine.Pixel
	ChunkAggregate  = engine.ChunkAggregate
	ChunkStatusKind = engine.ChunkStatusKind
	ChunkStatus     = engine.ChunkStatus
	SmartBlob       = engine.SmartBlob
	TrackState      = engine.TrackState
	TrackedBlob     = engine.TrackedBlob
	SceneState      = engine.SceneState
	Moment          = engine.Moment
	ReportKind      = engine.ReportKind
	MentionData     = engine.MentionData
	Report          = engine.Report
	FrameAnalysis   = engine.FrameAnalysis
	Point2D         = engine.Point2D
	GridPoint       = engine.GridPoint
)

// ChunkStatusKind values.
const (
	Calibrating = engine.Calibrating
	Stable      = engine.Stable
	Anomalous   = engine.Anomalous
)

// TrackState values.
const (
	TrackNew       = engine.TrackNew
	TrackTracked   = engine.TrackTracked
	TrackAnomalous = engine.TrackAnomalous
	TrackLost      = engine.TrackLost
)

// SceneState values.
const (
	SceneCalibrating = engine.SceneCalibrating
	SceneStable      = engine.SceneStable
	SceneVolatile    = engine.SceneVolatile
	SceneDisturbed   = engine.SceneDisturbed
)

// ReportKind values.
const (
	NoSignificantMention = engine.NoSignificantMention
	SignificantMention   = engine.SignificantMention
)

// Public API errors — re-export internal sentinel errors as a stable
// contract.
var (
	ErrInvalidGeometry = engine.ErrInvalidGeometry
	ErrInvalidBuffer   = engine.ErrInvalidBuffer
	ErrInvalidConfig   = engine.ErrInvalidConfig
)

// Pipeline is the public surface of the vision engine.
//
// Lifecycle: New(config) -> ProcessFrame(...) repeatedly. There is no
// Stop/Close: the pipeline holds no external resources, only in-memory
// state, and is discarded by dropping the reference.
//
// Not safe for concurrent use. ProcessFrame must be called from a
// single goroutine, with frames submitted in monotonically increasing
// order.
type Pipeline interface {
	// ProcessFrame advances the pipeline by exactly one frame and
	// returns that frame's analysis. Returns ErrInvalidBuffer if rgba's
	// length does not match the configured image geometry; on error,
	// pipeline state is left unchanged.
	ProcessFrame(rgba []byte) (FrameAnalysis, error)
}

// New creates a new Pipeline from the given configuration. All
// configuration mistakes — bad geometry, out-of-range thresholds — fail
// here rather than during ProcessFrame.
func New(cfg PipelineConfig) (Pipeline, error) {
	return engine.New(cfg)
}

package engine

import (
	"fmt"
	"log/slog"
)

// PipelineConfig holds every tunable threshold the engine needs:
// geometry, calibration, significance, blob filtering, and disturbance
// thresholds, plus a handful of knobs with no universal default.
// DefaultPipelineConfig documents the chosen value for each.
type PipelineConfig struct {
	ImageWidth, ImageHeight int
	ChunkWidth, ChunkHeight int

	// CalibrationFrames is how many observations a chunk needs before it
	// can leave the Calibrating status.
	CalibrationFrames int

	// NewAgeThreshold is both the minimum age for a New track to become
	// Tracked and the minimum-age rule for significance.
	NewAgeThreshold int

	// BehavioralAnomalyThreshold is the Z-score cutoff used both by the
	// per-chunk temporal model and by the tracker's behavioral scoring.
	BehavioralAnomalyThreshold float64

	AbsoluteMinBlobSize  int
	BlobSizeStdDevFilter float64

	DisturbanceEntryThreshold     float64
	DisturbanceExitThreshold      float64
	DisturbanceConfirmationFrames int

	// DecayAlpha is the EWMA decay constant for the temporal model. 0.01
	// gives each chunk roughly a 100-frame memory (1/alpha); see
	// DESIGN.md for why that value was chosen.
	DecayAlpha float64

	// RegionGrowThreshold gates region growing in the blob detector.
	RegionGrowThreshold float64

	// NewGraceFrames is how long an unmatched New track is kept alive
	// before being discarded without a moment.
	NewGraceFrames int

	// LostGraceFrames is how long an unmatched Tracked/Anomalous track
	// stays Lost before its moment is sealed and the track destroyed.
	LostGraceFrames int

	// AnomalyCooldownFrames is how many consecutive non-anomalous frames
	// an Anomalous track needs before reverting to Tracked.
	AnomalyCooldownFrames int

	// MaxAssociationDistance gates the cost matrix in grid-coordinate
	// units (a blob centroid is expressed in chunk-grid coordinates).
	MaxAssociationDistance float64

	// BehavioralHistoryWindow bounds each track's signature history ring
	// buffer.
	BehavioralHistoryWindow int

	// Logger receives lifecycle events: scene-state transitions (the end
	// of calibration shows up as the Calibrating -> Stable transition),
	// tracks becoming significant, and moment completion. Track births
	// and deaths are not logged. Defaults to slog.Default() when nil.
	Logger *slog.Logger
}

// DefaultPipelineConfig returns a config with every documented default
// filled in for the given image/chunk geometry. Callers typically start
// here and override only the fields they care about.
func DefaultPipelineConfig(imageWidth, imageHeight, chunkWidth, chunkHeight int) PipelineConfig {
	return PipelineConfig{
		ImageWidth:                    imageWidth,
		ImageHeight:                   imageHeight,
		ChunkWidth:                    chunkWidth,
		ChunkHeight:                   chunkHeight,
		CalibrationFrames:             100,
		NewAgeThreshold:               5,
		BehavioralAnomalyThreshold:    3.0,
		AbsoluteMinBlobSize:           1,
		BlobSizeStdDevFilter:          1.0,
		DisturbanceEntryThreshold:     0.5,
		DisturbanceExitThreshold:      0.2,
		DisturbanceConfirmationFrames: 5,
		DecayAlpha:                    0.01,
		RegionGrowThreshold:           1.0,
		NewGraceFrames:                3,
		LostGraceFrames:               10,
		AnomalyCooldownFrames:         5,
		MaxAssociationDistance:        3.0,
		BehavioralHistoryWindow:       30,
	}
}

// validateGeometry checks the construction-time geometry precondition:
// both image dimensions must be exact multiples of the chunk
// dimensions, and none of the four may be zero.
func validateGeometry(cfg PipelineConfig) error {
	if cfg.ImageWidth <= 0 || cfg.ImageHeight <= 0 || cfg.ChunkWidth <= 0 || cfg.ChunkHeight <= 0 {
		return fmt.Errorf("%w: dimensions must be positive (image %dx%d, chunk %dx%d)",
			ErrInvalidGeometry, cfg.ImageWidth, cfg.ImageHeight, cfg.ChunkWidth, cfg.ChunkHeight)
	}
	if cfg.ImageWidth%cfg.ChunkWidth != 0 || cfg.ImageHeight%cfg.ChunkHeight != 0 {
		return fmt.Errorf("%w: image %dx%d is not divisible by chunk %dx%d",
			ErrInvalidGeometry, cfg.ImageWidth, cfg.ImageHeight, cfg.ChunkWidth, cfg.ChunkHeight)
	}
	return nil
}

// validateConfig checks the construction-time threshold preconditions:
// everything must live in [0, +Inf) and the entry threshold must exceed
// the exit threshold (otherwise disturbance could never resolve back to
// Stable).
func validateConfig(cfg PipelineConfig) error {
	nonNegative := map[string]float64{
		"BehavioralAnomalyThreshold": cfg.BehavioralAnomalyThreshold,
		"BlobSizeStdDevFilter":       cfg.BlobSizeStdDevFilter,
		"DisturbanceEntryThreshold":  cfg.DisturbanceEntryThreshold,
		"DisturbanceExitThreshold":   cfg.DisturbanceExitThreshold,
		"DecayAlpha":                 cfg.DecayAlpha,
		"RegionGrowThreshold":        cfg.RegionGrowThreshold,
		"MaxAssociationDistance":     cfg.MaxAssociationDistance,
	}
	for name, v := range nonNegative {
		if v < 0 {
			return fmt.Errorf("%w: %s must be >= 0, got %g", ErrInvalidConfig, name, v)
		}
	}
	if cfg.CalibrationFrames < 0 || cfg.NewAgeThreshold < 0 || cfg.AbsoluteMinBlobSize < 0 ||
		cfg.DisturbanceConfirmationFrames < 0 || cfg.NewGraceFrames < 0 || cfg.LostGraceFrames < 0 ||
		cfg.AnomalyCooldownFrames < 0 || cfg.BehavioralHistoryWindow < 0 {
		return fmt.Errorf("%w: frame-count thresholds must be >= 0", ErrInvalidConfig)
	}
	if cfg.DisturbanceEntryThreshold <= cfg.DisturbanceExitThreshold {
		return fmt.Errorf("%w: disturbance entry threshold (%g) must exceed exit threshold (%g)",
			ErrInvalidConfig, cfg.DisturbanceEntryThreshold, cfg.DisturbanceExitThreshold)
	}
	return nil
}

func (cfg *PipelineConfig) logger() *slog.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return slog.Default()
}

// Package config loads a waldovision.PipelineConfig from a YAML file:
// read the file, unmarshal into a plain struct, apply documented
// defaults for anything left at its zero value, then validate.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	waldovision "github.com/TheGonzalezDesigns/waldo-vision"
)

// fileConfig mirrors waldovision.PipelineConfig's tunable fields with
// yaml tags. Logger is deliberately not representable in YAML.
type fileConfig struct {
	ImageWidth  int `yaml:"image_width"`
	ImageHeight int `yaml:"image_height"`
	ChunkWidth  int `yaml:"chunk_width"`
	ChunkHeight int `yaml:"chunk_height"`

	CalibrationFrames int `yaml:"calibration_frames"`
	NewAgeThreshold   int `yaml:"new_age_threshold"`

	BehavioralAnomalyThreshold float64 `yaml:"behavioral_anomaly_threshold"`

	AbsoluteMinBlobSize  int     `yaml:"absolute_min_blob_size"`
	BlobSizeStdDevFilter float64 `yaml:"blob_size_std_dev_filter"`

	DisturbanceEntryThreshold     float64 `yaml:"disturbance_entry_threshold"`
	DisturbanceExitThreshold      float64 `yaml:"disturbance_exit_threshold"`
	DisturbanceConfirmationFrames int     `yaml:"disturbance_confirmation_frames"`

	DecayAlpha              float64 `yaml:"decay_alpha"`
	RegionGrowThreshold     float64 `yaml:"region_grow_threshold"`
	NewGraceFrames          int     `yaml:"new_grace_frames"`
	LostGraceFrames         int     `yaml:"lost_grace_frames"`
	AnomalyCooldownFrames   int     `yaml:"anomaly_cooldown_frames"`
	MaxAssociationDistance  float64 `yaml:"max_association_distance"`
	BehavioralHistoryWindow int     `yaml:"behavioral_history_window"`
}

// Load reads and parses a YAML configuration file into a
// waldovision.PipelineConfig. Fields absent from the file fall back to
// DefaultPipelineConfig's values for the declared geometry; image/chunk
// geometry must always be present.
func Load(path string) (waldovision.PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return waldovision.PipelineConfig{}, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return waldovision.PipelineConfig{}, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	if fc.ImageWidth == 0 || fc.ImageHeight == 0 || fc.ChunkWidth == 0 || fc.ChunkHeight == 0 {
		return waldovision.PipelineConfig{}, fmt.Errorf("config: image_width, image_height, chunk_width and chunk_height are required")
	}

	cfg := waldovision.DefaultPipelineConfig(fc.ImageWidth, fc.ImageHeight, fc.ChunkWidth, fc.ChunkHeight)
	applyOverride(&cfg.CalibrationFrames, fc.CalibrationFrames)
	applyOverride(&cfg.NewAgeThreshold, fc.NewAgeThreshold)
	applyOverrideF(&cfg.BehavioralAnomalyThreshold, fc.BehavioralAnomalyThreshold)
	applyOverride(&cfg.AbsoluteMinBlobSize, fc.AbsoluteMinBlobSize)
	applyOverrideF(&cfg.BlobSizeStdDevFilter, fc.BlobSizeStdDevFilter)
	applyOverrideF(&cfg.DisturbanceEntryThreshold, fc.DisturbanceEntryThreshold)
	applyOverrideF(&cfg.DisturbanceExitThreshold, fc.DisturbanceExitThreshold)
	applyOverride(&cfg.DisturbanceConfirmationFrames, fc.DisturbanceConfirmationFrames)
	applyOverrideF(&cfg.DecayAlpha, fc.DecayAlpha)
	applyOverrideF(&cfg.RegionGrowThreshold, fc.RegionGrowThreshold)
	applyOverride(&cfg.NewGraceFrames, fc.NewGraceFrames)
	applyOverride(&cfg.LostGraceFrames, fc.LostGraceFrames)
	applyOverride(&cfg.AnomalyCooldownFrames, fc.AnomalyCooldownFrames)
	applyOverrideF(&cfg.MaxAssociationDistance, fc.MaxAssociationDistance)
	applyOverride(&cfg.BehavioralHistoryWindow, fc.BehavioralHistoryWindow)

	if _, err := waldovision.New(cfg); err != nil {
		return waldovision.PipelineConfig{}, fmt.Errorf("config: %s failed validation: %w", path, err)
	}
	return cfg, nil
}

func applyOverride(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func applyOverrideF(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

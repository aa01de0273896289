package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gaitworks/markerlab/internal/marker"
)

// TuningConfig represents the root configuration for labeling tuning
// parameters. All fields are pointers so a JSON file can override any
// subset of values; omitted fields fall back to the pipeline defaults.
type TuningConfig struct {
	// Windowing params
	WindowSize      *int `json:"window_size,omitempty"`
	WindowOverlap   *int `json:"window_overlap,omitempty"`
	MinWindowFrames *int `json:"min_window_frames,omitempty"`

	// Preprocessing params
	MaxGapFrames     *int     `json:"max_gap_frames,omitempty"`
	AnomalyThreshold *float64 `json:"anomaly_threshold,omitempty"`
	FilterCutoffHz   *float64 `json:"filter_cutoff_hz,omitempty"`
	SampleRateHz     *float64 `json:"sample_rate_hz,omitempty"`
	AlignMarkerRight *string  `json:"align_marker_right,omitempty"`
	AlignMarkerLeft  *string  `json:"align_marker_left,omitempty"`

	// Assignment and verification params
	UnlabeledCost *float64 `json:"unlabeled_cost,omitempty"`
	MinConfidence *float64 `json:"min_confidence,omitempty"`
	PriorBandK    *float64 `json:"prior_band_k,omitempty"`
	VerifyBlend   *float64 `json:"verify_blend,omitempty"`

	// Runtime params
	Workers   *int `json:"workers,omitempty"`
	BatchSize *int `json:"batch_size,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that any set fields carry usable values. Full
// cross-field validation happens when the resolved PipelineConfig is
// built, so only per-field sanity checks live here.
func (c *TuningConfig) Validate() error {
	if c.WindowSize != nil && *c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive, got %d", *c.WindowSize)
	}
	if c.WindowOverlap != nil && *c.WindowOverlap < 0 {
		return fmt.Errorf("window_overlap must be non-negative, got %d", *c.WindowOverlap)
	}
	if c.MinWindowFrames != nil && *c.MinWindowFrames <= 0 {
		return fmt.Errorf("min_window_frames must be positive, got %d", *c.MinWindowFrames)
	}
	if c.MaxGapFrames != nil && *c.MaxGapFrames < 0 {
		return fmt.Errorf("max_gap_frames must be non-negative, got %d", *c.MaxGapFrames)
	}
	if c.AnomalyThreshold != nil && *c.AnomalyThreshold <= 0 {
		return fmt.Errorf("anomaly_threshold must be positive, got %f", *c.AnomalyThreshold)
	}
	if c.SampleRateHz != nil && *c.SampleRateHz <= 0 {
		return fmt.Errorf("sample_rate_hz must be positive, got %f", *c.SampleRateHz)
	}
	if c.MinConfidence != nil {
		if *c.MinConfidence < 0 || *c.MinConfidence > 1 {
			return fmt.Errorf("min_confidence must be between 0 and 1, got %f", *c.MinConfidence)
		}
	}
	if c.VerifyBlend != nil {
		if *c.VerifyBlend < 0 || *c.VerifyBlend > 1 {
			return fmt.Errorf("verify_blend must be between 0 and 1, got %f", *c.VerifyBlend)
		}
	}
	return nil
}

// PipelineConfig resolves the tuning overrides against the pipeline
// defaults and returns the fully populated config. The result is
// validated so callers get a config that is safe to hand to the
// runtime.
func (c *TuningConfig) PipelineConfig() (marker.PipelineConfig, error) {
	cfg := marker.DefaultPipelineConfig()
	if c.WindowSize != nil {
		cfg.WindowSize = *c.WindowSize
	}
	if c.WindowOverlap != nil {
		cfg.WindowOverlap = *c.WindowOverlap
	}
	if c.MinWindowFrames != nil {
		cfg.MinWindowFrames = *c.MinWindowFrames
	}
	if c.MaxGapFrames != nil {
		cfg.MaxGapFrames = *c.MaxGapFrames
	}
	if c.AnomalyThreshold != nil {
		cfg.AnomalyThreshold = *c.AnomalyThreshold
	}
	if c.FilterCutoffHz != nil {
		cfg.FilterCutoffHz = *c.FilterCutoffHz
	}
	if c.SampleRateHz != nil {
		cfg.SampleRateHz = *c.SampleRateHz
	}
	if c.AlignMarkerRight != nil {
		cfg.AlignMarkerRight = *c.AlignMarkerRight
	}
	if c.AlignMarkerLeft != nil {
		cfg.AlignMarkerLeft = *c.AlignMarkerLeft
	}
	if c.UnlabeledCost != nil {
		cfg.UnlabeledCost = *c.UnlabeledCost
	}
	if c.MinConfidence != nil {
		cfg.MinConfidence = *c.MinConfidence
	}
	if c.PriorBandK != nil {
		cfg.PriorBandK = *c.PriorBandK
	}
	if c.VerifyBlend != nil {
		cfg.VerifyBlend = *c.VerifyBlend
	}
	if c.Workers != nil {
		cfg.Workers = *c.Workers
	}
	if c.BatchSize != nil {
		cfg.BatchSize = *c.BatchSize
	}
	if err := cfg.Validate(); err != nil {
		return marker.PipelineConfig{}, fmt.Errorf("resolved config invalid: %w", err)
	}
	return cfg, nil
}

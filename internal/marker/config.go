package marker

import "fmt"

// PipelineConfig is the single immutable configuration value for a labeling
// run. It is constructed once, validated, and passed explicitly into the
// pipeline; nothing reads tuning state from globals.
type PipelineConfig struct {
	// Window geometry (frames).
	WindowSize      int // analysis window length
	WindowOverlap   int // frames shared between consecutive windows
	MinWindowFrames int // segments shorter than this are reported, not windowed

	// Preprocessing.
	MaxGapFrames     int     // longest missing run that gap-fill may bridge
	AnomalyThreshold float64 // displacement z-score that forces a split
	FilterCutoffHz   float64 // low-pass cutoff
	SampleRateHz     float64 // capture rate of the trial

	// Alignment landmark names (bilateral pair on a rigid segment).
	AlignMarkerRight string
	AlignMarkerLeft  string

	// Assignment and aggregation.
	UnlabeledCost float64 // fixed cost of a dummy (unlabeled) pairing
	MinConfidence float64 // acceptance floor for a final label

	// Verification.
	PriorBandK  float64 // band half-width in prior standard deviations
	VerifyBlend float64 // weight of classifier confidence in the final blend

	// Concurrency.
	Workers   int // parallel window workers
	BatchSize int // windows per classifier call
}

// DefaultPipelineConfig returns production defaults for a 240 Hz capture
// with a 120-frame analysis window.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		WindowSize:       120,
		WindowOverlap:    0,
		MinWindowFrames:  12,
		MaxGapFrames:     24,
		AnomalyThreshold: 5.0,
		FilterCutoffHz:   6.0,
		SampleRateHz:     240.0,
		AlignMarkerRight: "RAC",
		AlignMarkerLeft:  "LAC",
		UnlabeledCost:    12.0, // ≈ -ln(6e-6): dummy pairings lose to any plausible label
		MinConfidence:    0.5,
		PriorBandK:       3.0,
		VerifyBlend:      0.7,
		Workers:          4,
		BatchSize:        8,
	}
}

// Validate checks every field; all are required. A zero value anywhere is a
// construction error, not a runtime fallback.
func (c PipelineConfig) Validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive, got %d", c.WindowSize)
	}
	if c.WindowOverlap < 0 || c.WindowOverlap >= c.WindowSize {
		return fmt.Errorf("window_overlap must be in [0, window_size), got %d", c.WindowOverlap)
	}
	if c.MinWindowFrames <= 0 || c.MinWindowFrames > c.WindowSize {
		return fmt.Errorf("min_window_frames must be in (0, window_size], got %d", c.MinWindowFrames)
	}
	if c.MaxGapFrames <= 0 {
		return fmt.Errorf("max_gap_frames must be positive, got %d", c.MaxGapFrames)
	}
	if c.AnomalyThreshold <= 0 {
		return fmt.Errorf("anomaly_threshold must be positive, got %g", c.AnomalyThreshold)
	}
	if c.SampleRateHz <= 0 {
		return fmt.Errorf("sample_rate_hz must be positive, got %g", c.SampleRateHz)
	}
	if c.FilterCutoffHz <= 0 || c.FilterCutoffHz >= c.SampleRateHz/2 {
		return fmt.Errorf("filter_cutoff_hz must be in (0, nyquist), got %g at %g Hz", c.FilterCutoffHz, c.SampleRateHz)
	}
	if c.AlignMarkerRight == "" || c.AlignMarkerLeft == "" {
		return fmt.Errorf("alignment landmark names are required")
	}
	if c.AlignMarkerRight == c.AlignMarkerLeft {
		return fmt.Errorf("alignment landmarks must differ, both %q", c.AlignMarkerRight)
	}
	if c.UnlabeledCost <= 0 {
		return fmt.Errorf("unlabeled_cost must be positive, got %g", c.UnlabeledCost)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in [0,1], got %g", c.MinConfidence)
	}
	if c.PriorBandK <= 0 {
		return fmt.Errorf("prior_band_k must be positive, got %g", c.PriorBandK)
	}
	if c.VerifyBlend < 0 || c.VerifyBlend > 1 {
		return fmt.Errorf("verify_blend must be in [0,1], got %g", c.VerifyBlend)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	return nil
}

// Stride returns the frame advance between consecutive windows.
func (c PipelineConfig) Stride() int {
	return c.WindowSize - c.WindowOverlap
}

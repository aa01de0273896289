// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math"
	"testing"

	"github.com/gaitworks/markerlab/internal/marker"
	"github.com/gaitworks/markerlab/internal/trialio"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// SyntheticTrial builds a trial with one smooth, distinct trajectory per
// name: each slot orbits its own centre so trajectories never collide
// and inter-slot distances stay nearly constant.
func SyntheticTrial(names []string, frames int, sampleRate float64) *trialio.Trial {
	slots := make([][]marker.Point3, len(names))
	for s := range names {
		pts := make([]marker.Point3, frames)
		cx := float64(s) * 0.4
		for f := 0; f < frames; f++ {
			t := float64(f) / sampleRate
			pts[f] = marker.Point3{
				X: cx + 0.02*math.Sin(2*math.Pi*t),
				Y: 0.5 + 0.02*math.Cos(2*math.Pi*t),
				Z: 1.0 + 0.01*math.Sin(2*math.Pi*0.5*t+float64(s)),
			}
		}
		slots[s] = pts
	}
	return &trialio.Trial{
		Name:       "synthetic",
		SampleRate: sampleRate,
		Names:      names,
		Slots:      slots,
	}
}

// PunchGap replaces frames [lo, hi] of one slot with missing samples.
func PunchGap(trial *trialio.Trial, slot, lo, hi int) {
	for f := lo; f <= hi && f < len(trial.Slots[slot]); f++ {
		trial.Slots[slot][f] = marker.MissingPoint
	}
}

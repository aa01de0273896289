// Package pipeline is the composition root for the labeling pipeline: it
// wires preprocessing, windowing, inference, assignment, aggregation, and
// verification into one run. It imports from the stage packages
// (s1clean..s6verify) and storage; none of those packages import pipeline.
package pipeline

import (
	"context"

	"github.com/gaitworks/markerlab/internal/marker"
	"github.com/gaitworks/markerlab/internal/marker/s3infer"
	"github.com/gaitworks/markerlab/internal/marker/s4assign"
)

// InferenceStage abstracts the classifier adapter for dependency injection
// in tests; s3infer.Classifier satisfies it.
type InferenceStage interface {
	Infer(ctx context.Context, batch []s3infer.Encoded) ([]s3infer.ProbMatrix, error)
	Labels() []string
}

// ResultSink receives the completed run for persistence. Implementations
// live outside the stage packages (storage/sqlite); a nil sink skips
// persistence.
type ResultSink interface {
	PersistRun(res *Result) error
}

// Result is the output of one labeling run: best-effort labels for every
// emitted segment plus the structured warnings accumulated along the way.
type Result struct {
	RunID       string
	Trial       string
	Assignments []marker.LabelAssignment
	Warnings    []marker.Warning

	// WindowAssignments keeps the raw per-window decisions for reporting
	// and debugging; downstream consumers normally only need Assignments.
	WindowAssignments []s4assign.Assignment

	// Arena holds the segmented trial the labels refer to, for plotting
	// and inspection. It is not persisted.
	Arena *marker.Arena
}

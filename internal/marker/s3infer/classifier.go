// Package s3infer defines the inference contract between the pipeline and
// an external marker classifier, plus the relative geometric feature
// encoding that classifiers consume. The classifier's architecture and
// training are external; only the window → probability-matrix contract
// matters here.
package s3infer

import "context"

// ProbMatrix is the classifier output for one analysis window: one row per
// segment present in the window, one column per known label, each entry the
// probability that the segment is that marker.
type ProbMatrix struct {
	SegIDs []int    // row order, matching the window's segment order
	Labels []string // column order, fixed per classifier
	P      [][]float64
}

// Rows returns the slot (row) count.
func (m ProbMatrix) Rows() int { return len(m.P) }

// Cols returns the label (column) count.
func (m ProbMatrix) Cols() int {
	if len(m.P) == 0 {
		return len(m.Labels)
	}
	return len(m.P[0])
}

// Classifier is the external inference contract. Implementations must be
// pure functions of their input with no hidden state across calls, so the
// pipeline is free to batch, reorder, or parallelize invocations.
//
// Infer returns one ProbMatrix per input window, in input order. A nil
// error guarantees len(out) == len(batch).
type Classifier interface {
	Infer(ctx context.Context, batch []Encoded) ([]ProbMatrix, error)
	Labels() []string
}

// Encoded is one window's feature encoding ready for inference: per
// segment, the per-frame relative geometric features against all other
// segments in the window.
type Encoded struct {
	SegIDs   []int
	Frames   int         // window length
	Features [][]float64 // [segment][frame*featuresPerFrame]
	Valid    [][]bool    // [segment][frame]
}

// InferFunc adapts a plain function to the Classifier interface. Used for
// built-in heuristics and test stubs.
type InferFunc struct {
	LabelSet []string
	Fn       func(Encoded) ProbMatrix
}

func (f InferFunc) Labels() []string { return f.LabelSet }

func (f InferFunc) Infer(_ context.Context, batch []Encoded) ([]ProbMatrix, error) {
	out := make([]ProbMatrix, len(batch))
	for i, e := range batch {
		out[i] = f.Fn(e)
	}
	return out, nil
}

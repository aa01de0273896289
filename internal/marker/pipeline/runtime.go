package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/gaitworks/markerlab/internal/marker"
	"github.com/gaitworks/markerlab/internal/marker/s1clean"
	"github.com/gaitworks/markerlab/internal/marker/s2window"
	"github.com/gaitworks/markerlab/internal/marker/s3infer"
	"github.com/gaitworks/markerlab/internal/marker/s4assign"
	"github.com/gaitworks/markerlab/internal/marker/s5label"
	"github.com/gaitworks/markerlab/internal/marker/s6verify"
	"github.com/gaitworks/markerlab/internal/trialio"
)

// Runtime runs the full labeling pipeline over trials. Configuration and
// priors are read-only after construction, so one Runtime may process
// trials concurrently from separate goroutines.
type Runtime struct {
	cfg        marker.PipelineConfig
	classifier InferenceStage
	priors     *s6verify.PriorTable
	sink       ResultSink
}

// NewRuntime validates the configuration and builds a pipeline runtime.
// priors must be non-nil (an empty table disables distance checks); sink
// may be nil to skip persistence.
func NewRuntime(cfg marker.PipelineConfig, classifier InferenceStage, priors *s6verify.PriorTable, sink ResultSink) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	if classifier == nil {
		return nil, fmt.Errorf("pipeline requires a classifier")
	}
	if priors == nil {
		priors = s6verify.NewPriorTable()
	}
	return &Runtime{cfg: cfg, classifier: classifier, priors: priors, sink: sink}, nil
}

// batchResult carries one batch's outcome from a worker back to the
// collector.
type batchResult struct {
	assignments []s4assign.Assignment
	warnings    []marker.Warning
}

// Run labels one trial end to end. Only trial-wide preconditions (missing
// alignment landmarks, empty input) return an error; per-window and
// per-segment failures are isolated into warnings and the run completes
// with best-effort labels.
func (r *Runtime) Run(ctx context.Context, trial *trialio.Trial) (*Result, error) {
	if trial == nil || len(trial.Slots) == 0 {
		return nil, marker.ErrEmptyTrial
	}

	res := &Result{RunID: uuid.NewString(), Trial: trial.Name}
	diagf("run %s: trial %q, %d slots, %d frames", res.RunID, trial.Name, len(trial.Slots), trial.Frames())

	// Stage 1: preprocess. The config's sample rate is authoritative; a
	// trial recorded at a different rate is a caller error surfaced here.
	if trial.SampleRate != 0 && trial.SampleRate != r.cfg.SampleRateHz {
		return nil, fmt.Errorf("trial sampled at %g Hz, pipeline configured for %g Hz", trial.SampleRate, r.cfg.SampleRateHz)
	}
	pre, err := s1clean.Preprocess(trial.Slots, trial.Names, r.cfg)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(res.Warnings, pre.Warnings...)
	res.Arena = pre.Arena
	diagf("run %s: %d segments after preprocessing (yaw %.3f rad)", res.RunID, pre.Arena.Len(), pre.Yaw)

	// Stage 2: window grid.
	windows := s2window.Collect(pre.Arena, r.cfg)
	tracef("run %s: %d analysis windows", res.RunID, len(windows))

	// Stages 3+4: inference and assignment across the worker pool. Windows
	// share no mutable state, so batches proceed in parallel; the wait
	// below is the barrier guaranteeing every window of a segment has
	// returned before aggregation.
	results := r.processWindows(ctx, windows)

	for _, br := range results {
		res.WindowAssignments = append(res.WindowAssignments, br.assignments...)
		res.Warnings = append(res.Warnings, br.warnings...)
	}
	sortAssignments(res.WindowAssignments)

	// Stage 5: aggregate and resolve cross-segment conflicts.
	labels := s5label.Aggregate(res.WindowAssignments)
	s5label.ResolveConflicts(labels, pre.Arena, r.cfg.UnlabeledCost)

	// Segments that were windowed but never got any assignment still need
	// an output entry; give them an empty vote record.
	ensureAllLeaves(labels, pre.Arena, r.cfg)

	// Stage 6: verify against anatomical priors.
	assignments, verifyWarnings := s6verify.Verify(pre.Arena, labels, r.priors, r.cfg)
	res.Assignments = assignments
	res.Warnings = append(res.Warnings, verifyWarnings...)

	diagf("run %s: %d segments labeled, %d warnings", res.RunID, len(res.Assignments), len(res.Warnings))

	if r.sink != nil {
		if err := r.sink.PersistRun(res); err != nil {
			opsf("run %s: persist failed: %v", res.RunID, err)
		}
	}
	return res, nil
}

// processWindows fans window batches out to the worker pool and collects
// their assignments. Results are returned in deterministic batch order
// regardless of worker scheduling.
func (r *Runtime) processWindows(ctx context.Context, windows []s2window.Window) []batchResult {
	batches := batchWindows(windows, r.cfg.BatchSize)
	results := make([]batchResult, len(batches))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < r.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = r.processBatch(ctx, batches[idx])
			}
		}()
	}
	for idx := range batches {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return results
}

// processBatch runs one classifier call over a batch of windows and solves
// each window's assignment. Inference failure discards the whole batch's
// windows with warnings; assignment failure discards only that window.
func (r *Runtime) processBatch(ctx context.Context, batch []s2window.Window) batchResult {
	var br batchResult

	encoded := s3infer.EncodeBatch(batch, r.cfg.SampleRateHz)
	matrices, err := r.classifier.Infer(ctx, encoded)
	if err != nil {
		opsf("inference failed for %d windows: %v", len(batch), err)
		for _, w := range batch {
			br.warnings = append(br.warnings, marker.Warning{
				Kind: marker.WarnInferenceFailed, SegID: -1, Frame: w.StartFrame,
				Detail: fmt.Sprintf("window %d: %v", w.Index, err),
			})
		}
		return br
	}

	for i, w := range batch {
		asgs, err := s4assign.AssignWindow(w.Index, matrices[i], r.cfg.UnlabeledCost)
		if err != nil {
			tracef("window %d skipped: %v", w.Index, err)
			br.warnings = append(br.warnings, marker.Warning{
				Kind: marker.WarnWindowSkipped, SegID: -1, Frame: w.StartFrame,
				Detail: fmt.Sprintf("window %d: %v", w.Index, err),
			})
			continue
		}
		br.assignments = append(br.assignments, asgs...)
	}
	return br
}

func batchWindows(windows []s2window.Window, size int) [][]s2window.Window {
	var out [][]s2window.Window
	for lo := 0; lo < len(windows); lo += size {
		hi := lo + size
		if hi > len(windows) {
			hi = len(windows)
		}
		out = append(out, windows[lo:hi])
	}
	return out
}

// sortAssignments fixes a deterministic order for aggregation regardless
// of worker completion order.
func sortAssignments(asgs []s4assign.Assignment) {
	sort.Slice(asgs, func(i, j int) bool {
		if asgs[i].WindowIndex != asgs[j].WindowIndex {
			return asgs[i].WindowIndex < asgs[j].WindowIndex
		}
		return asgs[i].SegID < asgs[j].SegID
	})
}

// ensureAllLeaves adds an empty (unlabeled) record for every usable leaf
// segment that received no window assignment, so the output stage emits it
// rather than silently dropping it.
func ensureAllLeaves(labels map[int]*s5label.SegmentLabel, a *marker.Arena, cfg marker.PipelineConfig) {
	for _, seg := range a.Leaves() {
		if seg.Len() < cfg.MinWindowFrames {
			continue
		}
		if _, ok := labels[seg.SegID]; !ok {
			labels[seg.SegID] = &s5label.SegmentLabel{SegID: seg.SegID, Votes: map[string]float64{}}
		}
	}
}

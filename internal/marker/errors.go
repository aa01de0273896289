package marker

import (
	"errors"
	"fmt"
)

// Trial-wide preconditions. These abort the whole run; everything else in
// the taxonomy is isolated per window or per segment and surfaces as a
// Warning instead.
var (
	// ErrMissingAlignmentLandmarks indicates that one or both alignment
	// landmarks have no valid sample anywhere in the trial, so the data
	// cannot be oriented.
	ErrMissingAlignmentLandmarks = errors.New("alignment landmarks missing from trial")

	// ErrEmptyTrial indicates a trial with no marker slots or no frames.
	ErrEmptyTrial = errors.New("trial contains no marker data")

	// ErrUnassignableWindow indicates a degenerate cost matrix: zero slots
	// or zero candidate labels. The window is skipped.
	ErrUnassignableWindow = errors.New("window has no slots or no labels to assign")
)

// WarningKind discriminates the structured warnings attached to a run.
type WarningKind string

const (
	WarnShortSegment      WarningKind = "short_segment"      // segment below minimum usable window length
	WarnWindowSkipped     WarningKind = "window_skipped"     // assignment skipped for one window
	WarnInferenceFailed   WarningKind = "inference_failed"   // classifier call failed, window discarded
	WarnAnomalousDistance WarningKind = "anomalous_distance" // inter-marker distance outside prior band
	WarnDuplicateLabel    WarningKind = "duplicate_label"    // two live segments share a label in overlapping frames
	WarnLowConfidence     WarningKind = "low_confidence"     // best label below minimum confidence
)

// Warning is a non-fatal, structured finding attached to the run output.
// Nothing is silently dropped: every skipped window or downgraded segment
// produces exactly one of these.
type Warning struct {
	Kind   WarningKind
	SegID  int    // -1 when not tied to a segment
	Label  string // affected label, if any
	Frame  int    // affected frame, or -1
	Detail string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s seg=%d label=%q frame=%d: %s", w.Kind, w.SegID, w.Label, w.Frame, w.Detail)
}

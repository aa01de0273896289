package s1clean

import (
	"fmt"

	"github.com/gaitworks/markerlab/internal/marker"
)

// Result carries the preprocessing outputs for one trial: the populated
// segment arena plus the warnings raised along the way.
type Result struct {
	Arena    *marker.Arena
	Yaw      float64 // applied alignment rotation, radians
	Warnings []marker.Warning
}

// Preprocess runs the full cleaning stage over raw slot point sequences:
// alignment, low-pass filtering, gap filling, and gap/anomaly splitting.
// slots is slot-major, frame-minor; names gives the marker-slot name for
// each row (generic names are fine for unlabeled captures, the alignment
// landmarks are the only two that must be present).
//
// Frame data in slots is modified in place by alignment and filtering.
// Only trial-wide preconditions return an error; everything else degrades
// to warnings on the Result.
func Preprocess(slots [][]marker.Point3, names []string, cfg marker.PipelineConfig) (*Result, error) {
	if len(slots) == 0 || len(slots[0]) == 0 {
		return nil, marker.ErrEmptyTrial
	}

	yaw, err := AlignYaw(slots, names, cfg.AlignMarkerRight, cfg.AlignMarkerLeft)
	if err != nil {
		return nil, err
	}

	for _, pts := range slots {
		LowPass(pts, cfg.SampleRateHz, cfg.FilterCutoffHz)
	}

	res := &Result{Arena: marker.NewArena(), Yaw: yaw}

	// One root segment per slot, trimmed to its first and last valid frame.
	// A slot with no valid sample at all never becomes a segment.
	for slot, pts := range slots {
		lo, hi := validSpan(pts)
		if lo < 0 {
			res.warn(marker.Warning{
				Kind: marker.WarnShortSegment, SegID: -1, Frame: -1,
				Detail: fmt.Sprintf("slot %d has no valid samples", slot),
			})
			continue
		}
		res.Arena.NewSegment(slot, lo, pts[lo:hi+1])
	}

	res.splitOnGaps(cfg)
	res.splitOnAnomalies(cfg)
	res.Arena.TerminateAll()
	res.reportShortSegments(cfg)
	return res, nil
}

// splitOnGaps walks every segment, filling missing runs up to MaxGapFrames
// with spline interpolation and splitting at longer ones. Children are
// appended to the arena and visited by the same loop, so a trajectory with
// several long gaps partitions fully.
func (r *Result) splitOnGaps(cfg marker.PipelineConfig) {
	for id := 0; id < r.Arena.Len(); id++ {
		seg := r.Arena.Get(id)
		if seg.State == marker.SegSplit {
			continue
		}
		r.cleanSegmentGaps(seg, cfg)
	}
}

// cleanSegmentGaps resolves missing runs in one segment, re-scanning after
// every mutation. Fillable interior gaps are interpolated; edge gaps are
// trimmed; an unfillable interior gap splits the segment so the left child
// ends at the last frame before the gap. The right child (gap onward) is
// re-examined when the arena walk reaches it.
func (r *Result) cleanSegmentGaps(seg *marker.Segment, cfg marker.PipelineConfig) {
	for {
		gaps := findGaps(seg.Points)
		if len(gaps) == 0 {
			return
		}
		g := gaps[0]

		if !g.interior(len(seg.Points)) {
			r.trimEdgeGap(seg, g)
			continue
		}

		if g.len() <= cfg.MaxGapFrames {
			seg.State = marker.SegGapPending
			ok := fillGap(seg.Points, g)
			seg.State = marker.SegActive
			if ok {
				continue
			}
		}

		r.Arena.Split(seg.SegID, seg.StartFrame+g.lo)
		return
	}
}

// trimEdgeGap removes a leading or trailing missing run that cannot be
// split off (the cut would not be interior).
func (r *Result) trimEdgeGap(seg *marker.Segment, g gapRun) {
	switch {
	case g.lo == 0:
		seg.Points = seg.Points[g.hi:]
		seg.StartFrame += g.hi
	case g.hi == len(seg.Points):
		seg.Points = seg.Points[:g.lo]
	}
}

// splitOnAnomalies splits segments whose motion jumps away from the locally
// expected displacement of neighbouring trajectories, the signature of a
// marker swap. Children are re-examined so repeated swaps partition fully.
func (r *Result) splitOnAnomalies(cfg marker.PipelineConfig) {
	for id := 0; id < r.Arena.Len(); id++ {
		seg := r.Arena.Get(id)
		if seg.State == marker.SegSplit {
			continue
		}
		if f := anomalyFrame(r.Arena, seg, cfg.AnomalyThreshold); f >= 0 {
			r.Arena.Split(seg.SegID, f)
		}
	}
}

// reportShortSegments warns for every leaf below the minimum usable window
// length. They stay in the arena so callers can see them, but the windower
// will produce nothing for them.
func (r *Result) reportShortSegments(cfg marker.PipelineConfig) {
	for _, seg := range r.Arena.Leaves() {
		if seg.Len() < cfg.MinWindowFrames {
			r.warn(marker.Warning{
				Kind: marker.WarnShortSegment, SegID: seg.SegID, Frame: seg.StartFrame,
				Detail: fmt.Sprintf("segment has %d frames, minimum usable window is %d", seg.Len(), cfg.MinWindowFrames),
			})
		}
	}
}

func (r *Result) warn(w marker.Warning) {
	r.Warnings = append(r.Warnings, w)
}

// validSpan returns the first and last valid indices of pts, or -1, -1
// when every sample is missing.
func validSpan(pts []marker.Point3) (lo, hi int) {
	lo, hi = -1, -1
	for i, p := range pts {
		if !p.Missing() {
			if lo < 0 {
				lo = i
			}
			hi = i
		}
	}
	return lo, hi
}

// Package s2window slices trajectory segments into fixed-length analysis
// windows on a frame grid shared by all segments, so that every window
// covers the same span of trial time across slots. Windows carry their
// original frame indices, letting window-local assignment results scatter
// back to trajectory-global time.
package s2window

import (
	"iter"

	"github.com/gaitworks/markerlab/internal/marker"
)

// SegmentWindow is one segment's view of an analysis window. Points always
// has exactly the configured window length; frames outside the segment's
// range are padded with the missing sentinel and masked invalid.
type SegmentWindow struct {
	SegID      int
	Slot       int
	StartFrame int // global frame of Points[0]
	Points     []marker.Point3
	Valid      []bool
}

// ValidCount returns the number of unmasked frames in the window.
func (w SegmentWindow) ValidCount() int {
	n := 0
	for _, v := range w.Valid {
		if v {
			n++
		}
	}
	return n
}

// Window is one time bucket of the analysis grid: the per-segment windows
// of every labelable segment live in its frame span.
type Window struct {
	Index      int // ordinal on the grid
	StartFrame int
	Segments   []SegmentWindow
}

// Grid returns a lazy, restartable sequence of analysis windows over the
// arena's leaf segments. Consecutive windows advance by the configured
// stride; segments shorter than the minimum usable window length are
// excluded (the preprocessor has already reported them). Windows with no
// live segment are skipped, so iteration is proportional to occupied trial
// time. Each call to Grid restarts from the first window; the sequence
// holds no iteration state of its own.
func Grid(a *marker.Arena, cfg marker.PipelineConfig) iter.Seq[Window] {
	leaves := usable(a, cfg)
	return func(yield func(Window) bool) {
		lo, hi, ok := frameExtent(leaves)
		if !ok {
			return
		}
		stride := cfg.Stride()
		idx := 0
		for start := gridOrigin(lo, stride); start <= hi; start += stride {
			w := Window{Index: idx, StartFrame: start}
			idx++
			for _, seg := range leaves {
				if seg.EndFrame() < start || seg.StartFrame >= start+cfg.WindowSize {
					continue
				}
				w.Segments = append(w.Segments, cut(seg, start, cfg.WindowSize))
			}
			if len(w.Segments) == 0 {
				continue
			}
			if !yield(w) {
				return
			}
		}
	}
}

// Collect materialises the grid, for callers that dispatch windows to a
// worker pool rather than consuming them in place.
func Collect(a *marker.Arena, cfg marker.PipelineConfig) []Window {
	var out []Window
	for w := range Grid(a, cfg) {
		out = append(out, w)
	}
	return out
}

// usable filters the arena's leaves down to segments long enough to window.
func usable(a *marker.Arena, cfg marker.PipelineConfig) []*marker.Segment {
	var out []*marker.Segment
	for _, seg := range a.Leaves() {
		if seg.Len() >= cfg.MinWindowFrames {
			out = append(out, seg)
		}
	}
	return out
}

// frameExtent returns the span covered by any usable segment.
func frameExtent(segs []*marker.Segment) (lo, hi int, ok bool) {
	if len(segs) == 0 {
		return 0, 0, false
	}
	lo, hi = segs[0].StartFrame, segs[0].EndFrame()
	for _, s := range segs[1:] {
		if s.StartFrame < lo {
			lo = s.StartFrame
		}
		if e := s.EndFrame(); e > hi {
			hi = e
		}
	}
	return lo, hi, true
}

// gridOrigin snaps the first window start onto the stride grid at or below
// the first occupied frame, keeping window boundaries stable regardless of
// which segments survive preprocessing.
func gridOrigin(lo, stride int) int {
	return (lo / stride) * stride
}

// cut extracts a segment's view of the window starting at global frame
// start, padding outside the segment's range with the missing sentinel.
func cut(seg *marker.Segment, start, size int) SegmentWindow {
	w := SegmentWindow{
		SegID:      seg.SegID,
		Slot:       seg.Slot,
		StartFrame: start,
		Points:     make([]marker.Point3, size),
		Valid:      make([]bool, size),
	}
	for i := 0; i < size; i++ {
		p := seg.At(start + i)
		w.Points[i] = p
		w.Valid[i] = !p.Missing()
	}
	return w
}

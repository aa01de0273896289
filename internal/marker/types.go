// Package marker holds the core domain types for the labeling pipeline:
// 3D points, trajectory segments, the segment arena, configuration, and
// the warning/error taxonomy shared by all pipeline stages.
package marker

import "math"

// Point3 is a single 3D sample. A missing sample is represented by NaN in
// all three axes (see MissingPoint).
type Point3 struct {
	X, Y, Z float64
}

// MissingPoint is the sentinel for a frame with no observation.
var MissingPoint = Point3{math.NaN(), math.NaN(), math.NaN()}

// Missing reports whether the point is the missing-sample sentinel.
func (p Point3) Missing() bool {
	return math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z)
}

// Sub returns p - q.
func (p Point3) Sub(q Point3) Point3 {
	return Point3{p.X - q.X, p.Y - q.Y, p.Z - q.Z}
}

// Add returns p + q.
func (p Point3) Add(q Point3) Point3 {
	return Point3{p.X + q.X, p.Y + q.Y, p.Z + q.Z}
}

// Scale returns p scaled by s.
func (p Point3) Scale(s float64) Point3 {
	return Point3{p.X * s, p.Y * s, p.Z * s}
}

// Norm returns the Euclidean length of p.
func (p Point3) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Dist returns the Euclidean distance between p and q.
func (p Point3) Dist(q Point3) float64 {
	return p.Sub(q).Norm()
}

// SegState represents the lifecycle state of a trajectory segment.
type SegState string

const (
	SegActive     SegState = "active"      // Live segment, may still gain frames
	SegGapPending SegState = "gap_pending" // Fillable gap open, awaiting interpolation
	SegSplit      SegState = "split"       // Terminal: partitioned into two children
	SegTerminated SegState = "terminated"  // Terminal: trial ended
)

// Segment is a temporally contiguous run of 3D positions believed to come
// from one physical marker. Segments are arena records addressed by SegID;
// split lineage is recorded through ParentID and ChildIDs rather than
// shared handles.
type Segment struct {
	SegID      int
	Slot       int // marker-slot index in the source trial container
	StartFrame int // global frame index of Points[0]
	Points     []Point3
	State      SegState

	ParentID int // -1 for root segments
	ChildIDs []int
}

// EndFrame returns the global frame index of the segment's last sample.
func (s *Segment) EndFrame() int {
	return s.StartFrame + len(s.Points) - 1
}

// Len returns the number of frames covered by the segment.
func (s *Segment) Len() int {
	return len(s.Points)
}

// At returns the sample at global frame f, or MissingPoint when f lies
// outside the segment's frame range.
func (s *Segment) At(f int) Point3 {
	i := f - s.StartFrame
	if i < 0 || i >= len(s.Points) {
		return MissingPoint
	}
	return s.Points[i]
}

// Live reports whether the segment can still carry a final label
// (terminated segments remain labelable; split parents do not).
func (s *Segment) Live() bool {
	return s.State != SegSplit
}

// Overlaps reports whether the frame ranges of s and t intersect.
func (s *Segment) Overlaps(t *Segment) bool {
	return s.StartFrame <= t.EndFrame() && t.StartFrame <= s.EndFrame()
}

// LabelAssignment maps one trajectory segment to a marker name with a
// confidence in [0,1]. Unlabeled segments carry an empty Label.
type LabelAssignment struct {
	SegID      int
	Slot       int
	StartFrame int
	EndFrame   int
	Label      string
	Confidence float64
}

// Unlabeled reports whether the segment received no acceptable label.
func (a LabelAssignment) Unlabeled() bool {
	return a.Label == ""
}

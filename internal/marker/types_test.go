package marker

import (
	"math"
	"testing"
)

func TestPoint3Missing(t *testing.T) {
	if !MissingPoint.Missing() {
		t.Error("MissingPoint must report missing")
	}
	if (Point3{X: 1, Y: 2, Z: 3}).Missing() {
		t.Error("valid point must not report missing")
	}
	// A NaN on any single axis counts as missing; partial samples are
	// never usable.
	if !(Point3{X: math.NaN(), Y: 2, Z: 3}).Missing() {
		t.Error("point with one NaN axis must report missing")
	}
}

func TestPoint3Dist(t *testing.T) {
	a := Point3{X: 1, Y: 2, Z: 3}
	b := Point3{X: 4, Y: 6, Z: 3}
	if got := a.Dist(b); got != 5 {
		t.Errorf("Dist = %f, want 5", got)
	}
	if got := a.Sub(b).Norm(); got != 5 {
		t.Errorf("Sub().Norm() = %f, want 5", got)
	}
}

func TestSegmentAt(t *testing.T) {
	s := Segment{StartFrame: 50, Points: linearTrack(10)} // frames 50..59

	if got := s.At(50); got.X != 0 {
		t.Errorf("At(50).X = %f, want 0", got.X)
	}
	if got := s.At(59); got.X != 9 {
		t.Errorf("At(59).X = %f, want 9", got.X)
	}
	if !s.At(49).Missing() || !s.At(60).Missing() {
		t.Error("At outside range must return MissingPoint")
	}
}

func TestSegmentOverlaps(t *testing.T) {
	a := Segment{StartFrame: 0, Points: linearTrack(10)}  // 0..9
	b := Segment{StartFrame: 9, Points: linearTrack(10)}  // 9..18
	c := Segment{StartFrame: 10, Points: linearTrack(10)} // 10..19

	if !a.Overlaps(&b) || !b.Overlaps(&a) {
		t.Error("segments sharing frame 9 must overlap")
	}
	if a.Overlaps(&c) || c.Overlaps(&a) {
		t.Error("adjacent segments must not overlap")
	}
}

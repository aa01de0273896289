package s1clean

import (
	"math"
	"testing"

	"github.com/gaitworks/markerlab/internal/marker"
)

func TestFindGaps(t *testing.T) {
	p := marker.Point3{X: 1, Y: 1, Z: 1}
	m := marker.MissingPoint
	pts := []marker.Point3{m, m, p, p, m, p, m, m}

	got := findGaps(pts)
	want := []gapRun{{0, 2}, {4, 5}, {6, 8}}
	if len(got) != len(want) {
		t.Fatalf("got %d gaps %v, want %v", len(got), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("gap %d = %v, want %v", i, got[i], want[i])
		}
	}

	if got[0].interior(len(pts)) {
		t.Error("leading gap reported as interior")
	}
	if !got[1].interior(len(pts)) {
		t.Error("middle gap not reported as interior")
	}
	if got[2].interior(len(pts)) {
		t.Error("trailing gap reported as interior")
	}
	if got[2].len() != 2 {
		t.Errorf("trailing gap len = %d, want 2", got[2].len())
	}
}

func TestFillGapLinearTrajectory(t *testing.T) {
	// A cubic spline through collinear support points reproduces the line,
	// so a linear trajectory is reconstructed exactly.
	pts := make([]marker.Point3, 40)
	for i := range pts {
		f := float64(i)
		pts[i] = marker.Point3{X: 0.01 * f, Y: 0.5 - 0.002*f, Z: 1.0}
	}
	for i := 15; i < 22; i++ {
		pts[i] = marker.MissingPoint
	}

	if !fillGap(pts, gapRun{15, 22}) {
		t.Fatal("fillGap failed with full support on both sides")
	}
	for i := 15; i < 22; i++ {
		f := float64(i)
		if math.Abs(pts[i].X-0.01*f) > 1e-9 ||
			math.Abs(pts[i].Y-(0.5-0.002*f)) > 1e-9 ||
			math.Abs(pts[i].Z-1.0) > 1e-9 {
			t.Errorf("frame %d = %+v, want on the line", i, pts[i])
		}
	}
}

func TestFillGapInsufficientSupport(t *testing.T) {
	// A single valid sample cannot anchor a spline.
	pts := []marker.Point3{
		{X: 1, Y: 1, Z: 1},
		marker.MissingPoint,
		marker.MissingPoint,
		marker.MissingPoint,
	}
	if fillGap(pts, gapRun{1, 4}) {
		t.Fatal("fillGap succeeded with one support sample")
	}
	for i := 1; i < 4; i++ {
		if !pts[i].Missing() {
			t.Errorf("frame %d was written despite failed fill", i)
		}
	}
}

func TestFillGapSupportSkipsMissing(t *testing.T) {
	// Missing samples inside the support range are excluded so the spline
	// abscissae stay strictly increasing.
	pts := make([]marker.Point3, 20)
	for i := range pts {
		pts[i] = marker.Point3{X: float64(i), Y: 0, Z: 1}
	}
	pts[8] = marker.MissingPoint // inside left support of the gap below
	for i := 10; i < 13; i++ {
		pts[i] = marker.MissingPoint
	}

	if !fillGap(pts, gapRun{10, 13}) {
		t.Fatal("fillGap failed")
	}
	for i := 10; i < 13; i++ {
		if math.Abs(pts[i].X-float64(i)) > 1e-9 {
			t.Errorf("frame %d X = %f, want %d", i, pts[i].X, i)
		}
	}
}

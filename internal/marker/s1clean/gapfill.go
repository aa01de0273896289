package s1clean

import (
	"gonum.org/v1/gonum/interp"

	"github.com/gaitworks/markerlab/internal/marker"
)

// gapSupport is how many valid samples on each side of a gap feed the
// spline fit. More support smooths the reconstruction; four matches the
// local behaviour of the surrounding motion without dragging in unrelated
// dynamics.
const gapSupport = 4

// gapRun is a maximal run of missing samples within a point sequence,
// half-open [lo, hi) in local indices.
type gapRun struct {
	lo, hi int
}

// findGaps returns every missing run in pts, including runs touching
// either end of the sequence.
func findGaps(pts []marker.Point3) []gapRun {
	var runs []gapRun
	lo := -1
	for i, p := range pts {
		if p.Missing() {
			if lo < 0 {
				lo = i
			}
			continue
		}
		if lo >= 0 {
			runs = append(runs, gapRun{lo, i})
			lo = -1
		}
	}
	if lo >= 0 {
		runs = append(runs, gapRun{lo, len(pts)})
	}
	return runs
}

// interior reports whether the gap has valid samples on both sides.
func (g gapRun) interior(n int) bool {
	return g.lo > 0 && g.hi < n
}

func (g gapRun) len() int {
	return g.hi - g.lo
}

// fillGap interpolates the missing run g in place using a natural cubic
// spline fit per axis over up to gapSupport valid samples on each side.
// Returns false when there is not enough surrounding support to fit.
func fillGap(pts []marker.Point3, g gapRun) bool {
	xs, samples := gapSupportSamples(pts, g)
	if len(xs) < 2 {
		return false
	}

	for axis := 0; axis < 3; axis++ {
		ys := make([]float64, len(samples))
		for i, p := range samples {
			ys[i] = axisValue(p, axis)
		}
		var spline interp.NaturalCubic
		if err := spline.Fit(xs, ys); err != nil {
			return false
		}
		for f := g.lo; f < g.hi; f++ {
			setAxis(&pts[f], axis, spline.Predict(float64(f)))
		}
	}
	return true
}

// gapSupportSamples collects up to gapSupport valid samples on each side
// of g, in frame order so xs is strictly increasing for the spline fit.
func gapSupportSamples(pts []marker.Point3, g gapRun) (xs []float64, samples []marker.Point3) {
	lo := g.lo - gapSupport
	if lo < 0 {
		lo = 0
	}
	hi := g.hi + gapSupport
	if hi > len(pts) {
		hi = len(pts)
	}
	for f := lo; f < g.lo; f++ {
		if !pts[f].Missing() {
			xs = append(xs, float64(f))
			samples = append(samples, pts[f])
		}
	}
	for f := g.hi; f < hi; f++ {
		if !pts[f].Missing() {
			xs = append(xs, float64(f))
			samples = append(samples, pts[f])
		}
	}
	return xs, samples
}

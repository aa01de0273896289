package s1clean

import (
	"math"

	"github.com/gaitworks/markerlab/internal/marker"
)

// biquad is one second-order IIR section in direct form II transposed.
type biquad struct {
	a0, a1, a2, b1, b2 float64
	z1, z2             float64
}

func (f *biquad) process(in float64) float64 {
	out := in*f.a0 + f.z1
	f.z1 = in*f.a1 - out*f.b1 + f.z2
	f.z2 = in*f.a2 - out*f.b2
	return out
}

// primeTo seeds the delay line with the steady state for a constant
// input x. Without this every run would start with a transient from
// zero toward the signal level, which for metre-scale coordinates
// dwarfs the motion being filtered.
func (f *biquad) primeTo(x float64) {
	f.z2 = x * (f.a2 - f.b2)
	f.z1 = x*(f.a1-f.b1) + f.z2
}

// newLowPass builds a second-order Butterworth low-pass section via the
// bilinear transform. The cutoff is clamped just under Nyquist where
// tan() blows up.
func newLowPass(sampleRate, cutoff float64) *biquad {
	if cutoff >= sampleRate*0.499 {
		cutoff = sampleRate * 0.499
	}
	wc := math.Tan(math.Pi * cutoff / sampleRate)
	k1 := math.Sqrt2 * wc
	k2 := wc * wc
	den := 1 + k1 + k2

	return &biquad{
		a0: k2 / den,
		a1: 2 * k2 / den,
		a2: k2 / den,
		b1: 2 * (k2 - 1) / den,
		b2: (1 - k1 + k2) / den,
	}
}

// LowPass applies a zero-phase second-order Butterworth low-pass to each
// axis of the sequence, independently per contiguous run of valid samples.
// Missing-sample runs are skipped untouched. Zero phase comes from a
// forward pass followed by a backward pass, so the filtered signal is not
// shifted in time relative to the raw one.
func LowPass(pts []marker.Point3, sampleRate, cutoff float64) {
	forEachValidRun(pts, func(lo, hi int) {
		filterRun(pts[lo:hi], sampleRate, cutoff)
	})
}

// forEachValidRun invokes fn(lo, hi) for every maximal half-open run of
// valid samples in pts.
func forEachValidRun(pts []marker.Point3, fn func(lo, hi int)) {
	lo := -1
	for i, p := range pts {
		if p.Missing() {
			if lo >= 0 {
				fn(lo, i)
				lo = -1
			}
			continue
		}
		if lo < 0 {
			lo = i
		}
	}
	if lo >= 0 {
		fn(lo, len(pts))
	}
}

func filterRun(run []marker.Point3, sampleRate, cutoff float64) {
	// A second-order section needs a few samples of history to settle;
	// shorter runs pass through unfiltered.
	if len(run) < 4 {
		return
	}
	for axis := 0; axis < 3; axis++ {
		buf := make([]float64, len(run))
		for i, p := range run {
			buf[i] = axisValue(p, axis)
		}

		f := newLowPass(sampleRate, cutoff)
		f.primeTo(buf[0])
		for i := range buf {
			buf[i] = f.process(buf[i])
		}
		f.primeTo(buf[len(buf)-1])
		for i := len(buf) - 1; i >= 0; i-- {
			buf[i] = f.process(buf[i])
		}

		for i := range run {
			setAxis(&run[i], axis, buf[i])
		}
	}
}

func axisValue(p marker.Point3, axis int) float64 {
	switch axis {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

func setAxis(p *marker.Point3, axis int, v float64) {
	switch axis {
	case 0:
		p.X = v
	case 1:
		p.Y = v
	default:
		p.Z = v
	}
}

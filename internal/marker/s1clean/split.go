package s1clean

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/gaitworks/markerlab/internal/marker"
)

// minAnomalyPeers is the minimum number of neighbouring trajectories needed
// to estimate the locally expected motion. With fewer peers the displacement
// statistics are meaningless and the anomaly check is skipped.
const minAnomalyPeers = 3

// anomalyFrame returns the first global frame at which the segment's
// frame-to-frame displacement deviates from the displacement statistics of
// the other live segments by more than threshold standard deviations, or -1
// if none. A deviation like this usually means the capture system swapped
// two nearby markers between frames.
func anomalyFrame(a *marker.Arena, seg *marker.Segment, threshold float64) int {
	for f := seg.StartFrame + 1; f <= seg.EndFrame(); f++ {
		d := displacement(seg, f)
		if math.IsNaN(d) {
			continue
		}

		peers := peerDisplacements(a, seg, f)
		if len(peers) < minAnomalyPeers {
			continue
		}
		mean, std := stat.MeanStdDev(peers, nil)
		if std == 0 || math.IsNaN(std) {
			continue
		}
		if (d-mean)/std > threshold {
			return f
		}
	}
	return -1
}

// displacement is the distance moved into frame f, or NaN when either
// sample is missing.
func displacement(seg *marker.Segment, f int) float64 {
	p, q := seg.At(f-1), seg.At(f)
	if p.Missing() || q.Missing() {
		return math.NaN()
	}
	return p.Dist(q)
}

// peerDisplacements gathers the frame-to-frame displacements of every other
// live segment at frame f.
func peerDisplacements(a *marker.Arena, seg *marker.Segment, f int) []float64 {
	var out []float64
	for _, other := range a.LiveAt(f) {
		if other.SegID == seg.SegID || other.Slot == seg.Slot {
			continue
		}
		d := displacement(other, f)
		if !math.IsNaN(d) {
			out = append(out, d)
		}
	}
	return out
}

package s3infer

import (
	"math"

	"github.com/gaitworks/markerlab/internal/marker"
	"github.com/gaitworks/markerlab/internal/marker/s2window"
)

// FeaturesPerPair is the number of features one segment contributes per
// frame per other segment: distance (1), relative velocity vector (3), and
// relative acceleration magnitude (1). A window with n segments therefore
// encodes (n-1)*FeaturesPerPair features per segment per frame.
const FeaturesPerPair = 5

// Encode builds the relative geometric feature tensor for one window.
// Features are computed between every ordered pair of segments present in
// the window; frames where either sample is missing contribute zeros, the
// same convention the training pipeline uses for padding.
func Encode(w s2window.Window, sampleRate float64) Encoded {
	n := len(w.Segments)
	enc := Encoded{
		SegIDs:   make([]int, n),
		Frames:   frames(w),
		Features: make([][]float64, n),
		Valid:    make([][]bool, n),
	}
	dt := 1.0 / sampleRate

	for i, sw := range w.Segments {
		enc.SegIDs[i] = sw.SegID
		enc.Valid[i] = sw.Valid
		row := make([]float64, enc.Frames*(n-1)*FeaturesPerPair)

		col := 0
		for j, other := range w.Segments {
			if j == i {
				continue
			}
			writePairFeatures(row, col, sw, other, enc.Frames, n-1, dt)
			col++
		}
		enc.Features[i] = row
	}
	return enc
}

func frames(w s2window.Window) int {
	if len(w.Segments) == 0 {
		return 0
	}
	return len(w.Segments[0].Points)
}

// writePairFeatures fills the feature slots for the (sw, other) pair. The
// row layout is frame-major: frame f occupies
// row[f*pairs*FeaturesPerPair : (f+1)*pairs*FeaturesPerPair], with each
// pair's five features contiguous.
func writePairFeatures(row []float64, pairIdx int, sw, other s2window.SegmentWindow, nFrames, pairs int, dt float64) {
	rel := make([]marker.Point3, nFrames)
	ok := make([]bool, nFrames)
	for f := 0; f < nFrames; f++ {
		p, q := sw.Points[f], other.Points[f]
		if p.Missing() || q.Missing() {
			continue
		}
		rel[f] = p.Sub(q)
		ok[f] = true
	}

	for f := 0; f < nFrames; f++ {
		base := (f*pairs + pairIdx) * FeaturesPerPair
		if !ok[f] {
			continue // leave zeros
		}
		row[base] = rel[f].Norm()

		if f > 0 && ok[f-1] {
			v := rel[f].Sub(rel[f-1]).Scale(1 / dt)
			row[base+1] = v.X
			row[base+2] = v.Y
			row[base+3] = v.Z

			if f > 1 && ok[f-2] {
				prev := rel[f-1].Sub(rel[f-2]).Scale(1 / dt)
				row[base+4] = v.Sub(prev).Scale(1 / dt).Norm()
			}
		}
	}
}

// EncodeBatch encodes a slice of windows for one classifier call.
func EncodeBatch(ws []s2window.Window, sampleRate float64) []Encoded {
	out := make([]Encoded, len(ws))
	for i, w := range ws {
		out[i] = Encode(w, sampleRate)
	}
	return out
}

// Normalize scales a feature row to zero mean and unit variance in place,
// ignoring zero (padded) entries. Remote classifiers trained on normalized
// inputs call this before inference.
func Normalize(row []float64) {
	var sum, n float64
	for _, v := range row {
		if v != 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return
	}
	mean := sum / n
	var ss float64
	for _, v := range row {
		if v != 0 {
			d := v - mean
			ss += d * d
		}
	}
	std := math.Sqrt(ss / n)
	if std == 0 {
		return
	}
	for i, v := range row {
		if v != 0 {
			row[i] = (v - mean) / std
		}
	}
}

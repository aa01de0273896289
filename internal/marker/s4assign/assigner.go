package s4assign

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gaitworks/markerlab/internal/marker"
	"github.com/gaitworks/markerlab/internal/marker/s3infer"
)

// minProb floors probabilities before the log transform so a zero entry
// becomes a large finite cost rather than +Inf, which would destabilize
// the potentials.
const minProb = 1e-12

// Assignment is one (segment, label) pairing chosen for a window, with the
// classifier probability that backs it.
type Assignment struct {
	WindowIndex int
	SegID       int
	Label       string
	Prob        float64
}

// AssignWindow solves the optimal one-to-one matching between the window's
// segments and the label set. Costs are negative log-probabilities; when
// segment and label counts differ, the smaller side is padded with dummy
// entries at unlabeledCost so the solver always returns a complete matching
// over the square matrix. Segments matched to a dummy column come back
// unlabeled (no Assignment is emitted for them).
//
// Returns ErrUnassignableWindow when the matrix is degenerate: zero
// segments or zero labels.
func AssignWindow(windowIndex int, pm s3infer.ProbMatrix, unlabeledCost float64) ([]Assignment, error) {
	n, m := pm.Rows(), len(pm.Labels)
	if n == 0 || m == 0 {
		return nil, marker.ErrUnassignableWindow
	}
	// A ragged matrix means the classifier response was malformed; refuse
	// the window rather than index past a short row.
	for i := 0; i < n; i++ {
		if len(pm.P[i]) != m {
			return nil, fmt.Errorf("probability row %d has %d entries for %d labels", i, len(pm.P[i]), m)
		}
	}

	dim := n
	if m > dim {
		dim = m
	}

	c := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			if i < n && j < m {
				c.Set(i, j, -math.Log(math.Max(pm.P[i][j], minProb)))
			} else {
				c.Set(i, j, unlabeledCost)
			}
		}
	}

	assign := hungarian(c)

	out := make([]Assignment, 0, n)
	for i := 0; i < n; i++ {
		j := assign[i]
		if j < 0 || j >= m {
			continue // matched to a dummy column: unlabeled this window
		}
		out = append(out, Assignment{
			WindowIndex: windowIndex,
			SegID:       pm.SegIDs[i],
			Label:       pm.Labels[j],
			Prob:        pm.P[i][j],
		})
	}
	return out, nil
}

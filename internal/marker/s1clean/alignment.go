// Package s1clean implements the preprocessing stage: trial alignment,
// low-pass filtering, gap filling, and splitting of raw marker-slot point
// sequences into clean trajectory segments.
package s1clean

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gaitworks/markerlab/internal/marker"
)

// AlignYaw orients the trial so the subject faces the +X axis. For every
// frame where both alignment landmarks are valid it takes the horizontal
// vector from the right to the left landmark, derives the forward direction
// (up × mediolateral), averages it over the trial, and rotates all slots
// about the vertical axis by a single yaw that maps the mean forward
// direction onto +X.
//
// slots is slot-major, frame-minor and is rotated in place. Returns the
// applied yaw in radians, or ErrMissingAlignmentLandmarks when either
// landmark never has a valid simultaneous sample.
func AlignYaw(slots [][]marker.Point3, names []string, right, left string) (float64, error) {
	ri, li := -1, -1
	for i, n := range names {
		switch n {
		case right:
			ri = i
		case left:
			li = i
		}
	}
	if ri < 0 || li < 0 {
		return 0, marker.ErrMissingAlignmentLandmarks
	}

	var fx, fy float64
	seen := 0
	for f := range slots[ri] {
		r, l := slots[ri][f], slots[li][f]
		if r.Missing() || l.Missing() {
			continue
		}
		// Mediolateral vector right→left; forward = up × mediolateral.
		mx, my := l.X-r.X, l.Y-r.Y
		fx += -my
		fy += mx
		seen++
	}
	if seen == 0 {
		return 0, marker.ErrMissingAlignmentLandmarks
	}

	yaw := -math.Atan2(fy, fx) // rotates mean forward onto +X
	rot := yawMatrix(yaw)
	applyRotation(slots, rot)
	return yaw, nil
}

// yawMatrix returns the 3x3 rotation about the vertical (Z) axis.
func yawMatrix(yaw float64) *mat.Dense {
	c, s := math.Cos(yaw), math.Sin(yaw)
	return mat.NewDense(3, 3, []float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})
}

// applyRotation rotates every valid sample of every slot in place.
func applyRotation(slots [][]marker.Point3, r *mat.Dense) {
	m := r.RawMatrix().Data // row-major 3x3
	for _, pts := range slots {
		for i, p := range pts {
			if p.Missing() {
				continue
			}
			pts[i] = marker.Point3{
				X: m[0]*p.X + m[1]*p.Y + m[2]*p.Z,
				Y: m[3]*p.X + m[4]*p.Y + m[5]*p.Z,
				Z: m[6]*p.X + m[7]*p.Y + m[8]*p.Z,
			}
		}
	}
}

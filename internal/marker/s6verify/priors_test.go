package s6verify

import (
	"math"
	"testing"

	"github.com/gaitworks/markerlab/internal/marker"
)

func TestLearnPriors(t *testing.T) {
	const n = 40
	fixed := make([]marker.Point3, n)
	offset := make([]marker.Point3, n)
	for f := range fixed {
		fixed[f] = marker.Point3{X: 0, Y: 0, Z: 1}
		// Distance alternates between 0.3 and 0.5.
		d := 0.3
		if f%2 == 1 {
			d = 0.5
		}
		offset[f] = marker.Point3{X: d, Y: 0, Z: 1}
	}

	pt, err := LearnPriors(map[string][]marker.Point3{"LASI": fixed, "RASI": offset})
	if err != nil {
		t.Fatalf("LearnPriors failed: %v", err)
	}
	p, ok := pt.Get("RASI", "LASI") // unordered lookup
	if !ok {
		t.Fatal("no prior for the trained pair")
	}
	if math.Abs(p.Mean-0.4) > 1e-12 {
		t.Errorf("mean = %f, want 0.4", p.Mean)
	}
	if math.Abs(p.Std-0.1) > 0.002 {
		t.Errorf("std = %f, want about 0.1", p.Std)
	}
	if p.N != n {
		t.Errorf("N = %d, want %d", p.N, n)
	}
}

func TestLearnPriorsSkipsSparsePairs(t *testing.T) {
	good := make([]marker.Point3, 30)
	sparse := make([]marker.Point3, 30)
	third := make([]marker.Point3, 30)
	for f := range good {
		good[f] = marker.Point3{X: 0, Z: 1}
		third[f] = marker.Point3{X: 1, Z: 1}
		if f < 5 { // below the sample floor
			sparse[f] = marker.Point3{Y: 0.2, Z: 1}
		} else {
			sparse[f] = marker.MissingPoint
		}
	}

	pt, err := LearnPriors(map[string][]marker.Point3{
		"LASI": good, "RASI": third, "SACR": sparse,
	})
	if err != nil {
		t.Fatalf("LearnPriors failed: %v", err)
	}
	if _, ok := pt.Get("LASI", "SACR"); ok {
		t.Error("sparse pair produced a prior")
	}
	if _, ok := pt.Get("LASI", "RASI"); !ok {
		t.Error("dense pair missing")
	}
	if pt.Len() != 1 {
		t.Errorf("table has %d pairs, want 1", pt.Len())
	}
}

func TestLearnPriorsErrors(t *testing.T) {
	if _, err := LearnPriors(map[string][]marker.Point3{"LASI": make([]marker.Point3, 10)}); err == nil {
		t.Error("single marker accepted")
	}

	// Two markers but never simultaneously valid.
	a := make([]marker.Point3, 20)
	b := make([]marker.Point3, 20)
	for f := range a {
		if f%2 == 0 {
			a[f] = marker.Point3{X: 1, Z: 1}
			b[f] = marker.MissingPoint
		} else {
			a[f] = marker.MissingPoint
			b[f] = marker.Point3{X: 2, Z: 1}
		}
	}
	if _, err := LearnPriors(map[string][]marker.Point3{"LASI": a, "RASI": b}); err == nil {
		t.Error("disjoint visibility accepted")
	}
}

func TestPriorTablePairsDeterministic(t *testing.T) {
	pt := NewPriorTable()
	pt.Put("RASI", "LASI", Prior{Mean: 0.4, Std: 0.01, N: 100})
	pt.Put("SACR", "LASI", Prior{Mean: 0.5, Std: 0.02, N: 100})
	pt.Put("LASI", "C7", Prior{Mean: 0.6, Std: 0.03, N: 100})

	pairs := pt.Pairs()
	if len(pairs) != 3 {
		t.Fatalf("got %d pairs, want 3", len(pairs))
	}
	// Keys are stored unordered-normalized and listed sorted.
	want := [][2]string{{"C7", "LASI"}, {"LASI", "RASI"}, {"LASI", "SACR"}}
	for i, p := range pairs {
		if p.A != want[i][0] || p.B != want[i][1] {
			t.Errorf("pair %d = (%s, %s), want (%s, %s)", i, p.A, p.B, want[i][0], want[i][1])
		}
	}
}

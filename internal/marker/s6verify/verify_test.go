package s6verify

import (
	"math"
	"testing"

	"github.com/gaitworks/markerlab/internal/marker"
	"github.com/gaitworks/markerlab/internal/marker/s5label"
)

func verifyConfig() marker.PipelineConfig {
	cfg := marker.DefaultPipelineConfig()
	cfg.MinConfidence = 0.5
	cfg.PriorBandK = 3
	cfg.VerifyBlend = 0.7
	return cfg
}

func stillTrack(p marker.Point3, n int) []marker.Point3 {
	out := make([]marker.Point3, n)
	for i := range out {
		out[i] = p
	}
	return out
}

// pairArena holds two fully overlapping segments a fixed distance apart.
func pairArena(dist float64) *marker.Arena {
	a := marker.NewArena()
	a.NewSegment(0, 0, stillTrack(marker.Point3{X: 0, Y: 0, Z: 1}, 50))
	a.NewSegment(1, 0, stillTrack(marker.Point3{X: dist, Y: 0, Z: 1}, 50))
	return a
}

func segLabels(l0, l1 string, c0, c1 float64) map[int]*s5label.SegmentLabel {
	return map[int]*s5label.SegmentLabel{
		0: {SegID: 0, Label: l0, Confidence: c0},
		1: {SegID: 1, Label: l1, Confidence: c1},
	}
}

func countKind(ws []marker.Warning, kind marker.WarningKind) int {
	n := 0
	for _, w := range ws {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

func TestVerifyDuplicateLabelWarnsBothSides(t *testing.T) {
	a := pairArena(0.4)
	labels := segLabels("LASI", "LASI", 0.9, 0.8)

	out, warnings := Verify(a, labels, NewPriorTable(), verifyConfig())

	if got := countKind(warnings, marker.WarnDuplicateLabel); got != 2 {
		t.Fatalf("got %d duplicate warnings, want 2", got)
	}
	flagged := map[int]bool{}
	for _, w := range warnings {
		if w.Kind == marker.WarnDuplicateLabel {
			flagged[w.SegID] = true
			if w.Label != "LASI" {
				t.Errorf("duplicate warning label = %q", w.Label)
			}
		}
	}
	if !flagged[0] || !flagged[1] {
		t.Errorf("warnings cover %v, want both segments", flagged)
	}
	// Duplicates are flagged but not stripped; downstream decides.
	for _, la := range out {
		if la.Label != "LASI" {
			t.Errorf("segment %d label = %q after duplicate flag", la.SegID, la.Label)
		}
	}
}

func TestVerifyConsistentDistanceRaisesConfidence(t *testing.T) {
	a := pairArena(0.4)
	labels := segLabels("LASI", "RASI", 0.6, 0.6)
	priors := NewPriorTable()
	priors.Put("LASI", "RASI", Prior{Mean: 0.4, Std: 0.01, N: 100})

	out, warnings := Verify(a, labels, priors, verifyConfig())

	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	// All checks pass: confidence blends toward 1.
	want := 0.7*0.6 + 0.3*1.0
	for _, la := range out {
		if math.Abs(la.Confidence-want) > 1e-12 {
			t.Errorf("segment %d confidence = %f, want %f", la.SegID, la.Confidence, want)
		}
		if la.Label == "" {
			t.Errorf("segment %d lost its label", la.SegID)
		}
	}
}

func TestVerifyAnomalousDistanceDowngrades(t *testing.T) {
	a := pairArena(0.8) // twice the prior mean
	labels := segLabels("LASI", "RASI", 0.9, 0.6)
	priors := NewPriorTable()
	priors.Put("LASI", "RASI", Prior{Mean: 0.4, Std: 0.01, N: 100})

	out, warnings := Verify(a, labels, priors, verifyConfig())

	if got := countKind(warnings, marker.WarnAnomalousDistance); got == 0 {
		t.Fatal("no anomalous-distance warnings for an out-of-band pair")
	}
	// Both members of the anomalous pair carry the flag.
	flagged := map[int]bool{}
	for _, w := range warnings {
		if w.Kind == marker.WarnAnomalousDistance {
			flagged[w.SegID] = true
		}
	}
	if !flagged[0] || !flagged[1] {
		t.Errorf("anomalous-distance warnings cover %v, want both segments", flagged)
	}
	if got := countKind(warnings, marker.WarnLowConfidence); got != 1 {
		t.Fatalf("got %d low-confidence warnings, want 1", got)
	}

	byID := map[int]marker.LabelAssignment{}
	for _, la := range out {
		byID[la.SegID] = la
	}
	// Every check failed: blend pulls both toward zero consistency.
	if want := 0.7 * 0.9; math.Abs(byID[0].Confidence-want) > 1e-12 {
		t.Errorf("segment 0 confidence = %f, want %f", byID[0].Confidence, want)
	}
	if byID[0].Label != "LASI" {
		t.Errorf("segment 0 label = %q, want kept above the floor", byID[0].Label)
	}
	// Segment 1 drops below the floor and is unlabeled.
	if want := 0.7 * 0.6; math.Abs(byID[1].Confidence-want) > 1e-12 {
		t.Errorf("segment 1 confidence = %f, want %f", byID[1].Confidence, want)
	}
	if byID[1].Label != "" {
		t.Errorf("segment 1 label = %q, want cleared", byID[1].Label)
	}
}

func TestVerifyNoPriorNoDistanceCheck(t *testing.T) {
	a := pairArena(3.7) // would be wildly out of band if checked
	labels := segLabels("LASI", "RASI", 0.8, 0.8)

	out, warnings := Verify(a, labels, NewPriorTable(), verifyConfig())
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	for _, la := range out {
		if la.Confidence != 0.8 {
			t.Errorf("confidence changed without any check: %f", la.Confidence)
		}
	}
}

func TestVerifyLowConfidenceClearsLabel(t *testing.T) {
	a := marker.NewArena()
	a.NewSegment(2, 10, stillTrack(marker.Point3{X: 1, Z: 1}, 30))
	labels := map[int]*s5label.SegmentLabel{
		0: {SegID: 0, Label: "SACR", Confidence: 0.3},
	}

	out, warnings := Verify(a, labels, NewPriorTable(), verifyConfig())

	if got := countKind(warnings, marker.WarnLowConfidence); got != 1 {
		t.Fatalf("got %d low-confidence warnings, want 1", got)
	}
	if len(out) != 1 {
		t.Fatalf("got %d assignments, want 1", len(out))
	}
	la := out[0]
	if la.Label != "" || la.Confidence != 0.3 {
		t.Errorf("assignment = %+v, want unlabeled at 0.3", la)
	}
	if la.Slot != 2 || la.StartFrame != 10 || la.EndFrame != 39 {
		t.Errorf("assignment span = %+v, want slot 2 frames [10, 39]", la)
	}
}

func TestVerifyUnlabeledSegmentFlagged(t *testing.T) {
	// A segment whose every window vote lost out still gets an output
	// entry, and that entry must carry a low-confidence flag.
	a := pairArena(0.4)
	labels := segLabels("", "RASI", 0, 0.9)

	out, warnings := Verify(a, labels, NewPriorTable(), verifyConfig())
	if got := countKind(warnings, marker.WarnLowConfidence); got != 1 {
		t.Fatalf("got %d low-confidence warnings, want 1", got)
	}
	w := warnings[0]
	if w.SegID != 0 || w.Label != "" {
		t.Errorf("warning = %+v, want unlabeled segment 0 flagged", w)
	}
	if len(out) != 2 {
		t.Fatalf("got %d assignments, want 2", len(out))
	}
	if out[0].Label != "" || out[1].Label != "RASI" {
		t.Errorf("labels = %q, %q", out[0].Label, out[1].Label)
	}
}

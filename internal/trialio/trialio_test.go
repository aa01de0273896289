package trialio

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/gaitworks/markerlab/internal/marker"
)

func writeTrialFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trial.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadTrial(t *testing.T) {
	path := writeTrialFile(t, `{
		"name": "walk01",
		"sample_rate_hz": 120,
		"markers": [
			{"name": "LASI", "points": [[0.1, 0.2, 1.0], [0.11, 0.21, 1.01], null]},
			{"name": "RASI", "points": [[-0.1, 0.2, 1.0], [null, 0.2, 1.0], [-0.12, 0.22, 1.02]]}
		]
	}`)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := &Trial{
		Name:       "walk01",
		SampleRate: 120,
		Names:      []string{"LASI", "RASI"},
		Slots: [][]marker.Point3{
			{{X: 0.1, Y: 0.2, Z: 1.0}, {X: 0.11, Y: 0.21, Z: 1.01}, marker.MissingPoint},
			{{X: -0.1, Y: 0.2, Z: 1.0}, marker.MissingPoint, {X: -0.12, Y: 0.22, Z: 1.02}},
		},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("trial mismatch (-want +got):\n%s", diff)
	}
	if got.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", got.Frames())
	}
}

func TestLoadTrialPartialNullIsMissing(t *testing.T) {
	// A triple with any null component, or the wrong arity, is a missing
	// sample rather than a guess.
	path := writeTrialFile(t, `{
		"name": "t",
		"sample_rate_hz": 120,
		"markers": [
			{"name": "LASI", "points": [[1.0, null, 1.0], [1.0, 2.0]]}
		]
	}`)
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for f := 0; f < 2; f++ {
		if !got.Slots[0][f].Missing() {
			t.Errorf("frame %d = %+v, want missing", f, got.Slots[0][f])
		}
	}
}

func TestLoadTrialFrameCountMismatch(t *testing.T) {
	path := writeTrialFile(t, `{
		"name": "t",
		"sample_rate_hz": 120,
		"markers": [
			{"name": "LASI", "points": [[1, 1, 1], [2, 2, 2]]},
			{"name": "RASI", "points": [[1, 1, 1]]}
		]
	}`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("ragged trial accepted")
	}
	if !strings.Contains(err.Error(), "RASI") {
		t.Errorf("error %q does not name the offending marker", err)
	}
}

func TestLoadTrialEmpty(t *testing.T) {
	for name, content := range map[string]string{
		"no markers": `{"name": "t", "sample_rate_hz": 120, "markers": []}`,
		"no frames":  `{"name": "t", "sample_rate_hz": 120, "markers": [{"name": "LASI", "points": []}]}`,
	} {
		path := writeTrialFile(t, content)
		if _, err := Load(path); !errors.Is(err, marker.ErrEmptyTrial) {
			t.Errorf("%s: err = %v, want ErrEmptyTrial", name, err)
		}
	}
}

func TestLoadTrialBadFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("missing file accepted")
	}
	path := writeTrialFile(t, `{not json`)
	if _, err := Load(path); err == nil {
		t.Error("malformed JSON accepted")
	}
}

func TestBuildOutput(t *testing.T) {
	assignments := []marker.LabelAssignment{
		{SegID: 0, Slot: 0, StartFrame: 0, EndFrame: 99, Label: "LASI", Confidence: 0.93},
		{SegID: 1, Slot: 1, StartFrame: 10, EndFrame: 80, Label: "", Confidence: 0.2},
	}
	warnings := []marker.Warning{
		{Kind: marker.WarnLowConfidence, SegID: 1, Label: "RASI", Frame: 10, Detail: "confidence 0.200 below minimum 0.500"},
	}

	out := BuildOutput("walk01", "run-1", assignments, warnings)

	want := &LabeledOutput{
		Trial: "walk01",
		RunID: "run-1",
		Segments: []LabeledSegment{
			{SegID: 0, Slot: 0, StartFrame: 0, EndFrame: 99, Label: "LASI", Confidence: 0.93},
			{SegID: 1, Slot: 1, StartFrame: 10, EndFrame: 80, Label: "unlabeled", Confidence: 0.2},
		},
		Warnings: []OutputWarning{
			{Kind: "low_confidence", SegID: 1, Label: "RASI", Frame: 10, Detail: "confidence 0.200 below minimum 0.500"},
		},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestLabeledOutputSaveRoundTrip(t *testing.T) {
	out := BuildOutput("walk01", "run-1",
		[]marker.LabelAssignment{{SegID: 3, Slot: 2, StartFrame: 5, EndFrame: 60, Label: "SACR", Confidence: 0.88}},
		[]marker.Warning{{Kind: marker.WarnShortSegment, SegID: -1, Frame: -1, Detail: "slot 4 has no valid samples"}},
	)

	path := filepath.Join(t.TempDir(), "labels.json")
	if err := out.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var got LabeledOutput
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("parse saved output: %v", err)
	}
	if diff := cmp.Diff(out, &got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

package monitor

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gaitworks/markerlab/internal/marker"
	"github.com/gaitworks/markerlab/internal/trialio"
)

func testArena(t *testing.T) *marker.Arena {
	t.Helper()
	arena := marker.NewArena()
	pts := make([]marker.Point3, 50)
	for i := range pts {
		pts[i] = marker.Point3{X: float64(i) * 0.01, Y: 0.5, Z: 1.0}
	}
	arena.NewSegment(0, 0, pts)

	// Second slot with a NaN hole, to exercise the skip path.
	pts2 := make([]marker.Point3, 50)
	for i := range pts2 {
		pts2[i] = marker.Point3{X: 0.2, Y: float64(i) * 0.01, Z: 1.1}
	}
	pts2[25] = marker.MissingPoint
	arena.NewSegment(1, 0, pts2)
	arena.TerminateAll()
	return arena
}

func TestTrajectoryPlotterGeneratePlots(t *testing.T) {
	outputDir := t.TempDir()
	tp := NewTrajectoryPlotter(outputDir)

	labels := []marker.LabelAssignment{
		{SegID: 0, Slot: 0, StartFrame: 0, EndFrame: 49, Label: "RAC", Confidence: 0.9},
		{SegID: 1, Slot: 1, StartFrame: 0, EndFrame: 49, Label: "", Confidence: 0},
	}

	n, err := tp.GeneratePlots(testArena(t), labels)
	if err != nil {
		t.Fatalf("GeneratePlots failed: %v", err)
	}
	// Three axis plots plus the confidence plot.
	if n != 4 {
		t.Errorf("expected 4 plots, got %d", n)
	}

	for _, name := range []string{"traj_x.png", "traj_y.png", "traj_z.png", "confidence.png"} {
		path := filepath.Join(outputDir, name)
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("expected plot file %s: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("plot file %s is empty", name)
		}
	}
}

func TestTrajectoryPlotterEmptyArena(t *testing.T) {
	tp := NewTrajectoryPlotter(t.TempDir())
	n, err := tp.GeneratePlots(marker.NewArena(), nil)
	if err != nil {
		t.Fatalf("GeneratePlots failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 plots for empty arena, got %d", n)
	}
}

func TestTrajectoryPlotterNoOutputDir(t *testing.T) {
	tp := NewTrajectoryPlotter("")
	if _, err := tp.GeneratePlots(testArena(t), nil); err == nil {
		t.Error("expected error with no output directory")
	}
}

func TestMakePlotOutputDir(t *testing.T) {
	dir := MakePlotOutputDir("plots", "walk01")
	if !strings.HasPrefix(dir, filepath.Join("plots", "walk01")) {
		t.Errorf("unexpected dir %q", dir)
	}

	live := MakePlotOutputDir("plots", "")
	if !strings.Contains(live, "run_") {
		t.Errorf("unexpected dir %q", live)
	}
}

func TestRenderReport(t *testing.T) {
	trial := &trialio.Trial{
		Name:       "walk01",
		SampleRate: 240,
		Names:      []string{"m0", "m1"},
		Slots: [][]marker.Point3{
			make([]marker.Point3, 50),
			make([]marker.Point3, 50),
		},
	}
	for i := 0; i < 50; i++ {
		trial.Slots[0][i] = marker.Point3{X: float64(i), Y: 1, Z: 0}
		trial.Slots[1][i] = marker.Point3{X: float64(i), Y: 2, Z: 0}
	}
	trial.Slots[1][10] = marker.Point3{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}

	out := &trialio.LabeledOutput{
		Trial: "walk01",
		RunID: "run-1",
		Segments: []trialio.LabeledSegment{
			{SegID: 0, Slot: 0, StartFrame: 0, EndFrame: 49, Label: "RAC", Confidence: 0.92},
			{SegID: 1, Slot: 1, StartFrame: 0, EndFrame: 49, Label: "unlabeled", Confidence: 0},
		},
		Warnings: []trialio.OutputWarning{
			{Kind: "low_confidence", SegID: 1, Frame: -1},
		},
	}

	var buf bytes.Buffer
	if err := RenderReport(&buf, trial, out); err != nil {
		t.Fatalf("RenderReport failed: %v", err)
	}

	html := buf.String()
	if !strings.Contains(html, "Labeled trajectories") {
		t.Error("report missing trajectory chart")
	}
	if !strings.Contains(html, "RAC") {
		t.Error("report missing label series")
	}
	if !strings.Contains(html, "low_confidence") {
		t.Error("report missing warning kind")
	}
}

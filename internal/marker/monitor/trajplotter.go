// Package monitor renders diagnostic output for labeling runs: static
// PNG trajectory plots via gonum/plot and an interactive HTML report via
// go-echarts.
package monitor

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/gaitworks/markerlab/internal/marker"
)

// TrajectoryPlotter renders the segmented trial as per-axis time series
// plots, one line per segment, so gap fills, splits, and label coverage
// can be inspected after a run.
type TrajectoryPlotter struct {
	outputDir string
}

// NewTrajectoryPlotter creates a plotter that writes PNG files under
// outputDir.
func NewTrajectoryPlotter(outputDir string) *TrajectoryPlotter {
	return &TrajectoryPlotter{outputDir: outputDir}
}

// GeneratePlots creates one PNG per axis (x, y, z) covering every leaf
// segment in the arena, plus a confidence plot when labels are given.
// Returns the number of plots generated and any error.
func (tp *TrajectoryPlotter) GeneratePlots(arena *marker.Arena, labels []marker.LabelAssignment) (int, error) {
	if tp.outputDir == "" {
		return 0, fmt.Errorf("no output directory configured")
	}
	if err := os.MkdirAll(tp.outputDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}

	leaves := arena.Leaves()
	if len(leaves) == 0 {
		return 0, nil
	}

	// Legend names come from the final labels where available.
	names := make(map[int]string)
	for _, a := range labels {
		if !a.Unlabeled() {
			names[a.SegID] = a.Label
		}
	}

	sort.Slice(leaves, func(i, j int) bool { return leaves[i].SegID < leaves[j].SegID })
	colors := generateColors(len(leaves))

	plotCount := 0
	for axis, axisName := range []string{"x", "y", "z"} {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("Segment trajectories (%s)", axisName)
		p.X.Label.Text = "Frame"
		p.Y.Label.Text = fmt.Sprintf("%s position", axisName)

		for i, seg := range leaves {
			pts := make(plotter.XYs, 0, seg.Len())
			for f := seg.StartFrame; f <= seg.EndFrame(); f++ {
				pt := seg.At(f)
				v := [3]float64{pt.X, pt.Y, pt.Z}[axis]
				if math.IsNaN(v) {
					continue
				}
				pts = append(pts, plotter.XY{X: float64(f), Y: v})
			}
			if len(pts) == 0 {
				continue
			}

			line, err := plotter.NewLine(pts)
			if err != nil {
				return plotCount, err
			}
			line.Color = colors[i]
			line.Width = vg.Points(1)
			p.Add(line)
			p.Legend.Add(segmentLegend(seg, names), line)
		}

		p.Legend.Top = true
		p.Legend.Left = false
		p.Legend.XOffs = -10
		p.Legend.YOffs = -10

		file := filepath.Join(tp.outputDir, fmt.Sprintf("traj_%s.png", axisName))
		if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
			return plotCount, fmt.Errorf("save %s plot: %w", axisName, err)
		}
		plotCount++
	}

	if len(labels) > 0 {
		if err := tp.generateConfidencePlot(labels); err != nil {
			return plotCount, err
		}
		plotCount++
	}

	return plotCount, nil
}

// generateConfidencePlot draws final per-segment confidence as bars so
// low-confidence and unlabeled segments stand out.
func (tp *TrajectoryPlotter) generateConfidencePlot(labels []marker.LabelAssignment) error {
	sorted := make([]marker.LabelAssignment, len(labels))
	copy(sorted, labels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SegID < sorted[j].SegID })

	vals := make(plotter.Values, len(sorted))
	for i, a := range sorted {
		vals[i] = a.Confidence
	}

	p := plot.New()
	p.Title.Text = "Label confidence by segment"
	p.X.Label.Text = "Segment"
	p.Y.Label.Text = "Confidence"
	p.Y.Max = 1.0

	bars, err := plotter.NewBarChart(vals, vg.Points(8))
	if err != nil {
		return err
	}
	bars.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	p.Add(bars)

	ticks := make([]string, len(sorted))
	for i, a := range sorted {
		if a.Unlabeled() {
			ticks[i] = fmt.Sprintf("seg %d", a.SegID)
		} else {
			ticks[i] = a.Label
		}
	}
	p.NominalX(ticks...)

	file := filepath.Join(tp.outputDir, "confidence.png")
	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save confidence plot: %w", err)
	}
	return nil
}

func segmentLegend(seg *marker.Segment, names map[int]string) string {
	if name, ok := names[seg.SegID]; ok {
		return name
	}
	return fmt.Sprintf("seg %d (slot %d)", seg.SegID, seg.Slot)
}

// generateColors creates a palette of distinct colors for segment lines
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MakePlotOutputDir creates a timestamped output directory path for one
// run's plots: plots/<trial>/<timestamp>.
func MakePlotOutputDir(baseDir, trial string) string {
	ts := FormatTimestamp(time.Now())
	if trial != "" {
		return filepath.Join(baseDir, trial, ts)
	}
	return filepath.Join(baseDir, "run_"+ts)
}

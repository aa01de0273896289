package monitor

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/gaitworks/markerlab/internal/trialio"
)

// maxReportPoints caps the scatter payload so long trials still render
// responsively in the browser.
const maxReportPoints = 8000

// RenderReport writes an interactive HTML report for one labeling run:
// a top-down scatter of every labeled segment's trajectory, per-segment
// confidence bars, and warning counts by kind.
func RenderReport(w io.Writer, trial *trialio.Trial, out *trialio.LabeledOutput) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("markerlab run %s", out.RunID)

	page.AddCharts(
		trajectoryScatter(trial, out),
		confidenceBar(out),
		warningBar(out),
	)

	return page.Render(w)
}

// trajectoryScatter plots each segment's x/y path, one series per final
// label so unlabeled stretches are immediately visible.
func trajectoryScatter(trial *trialio.Trial, out *trialio.LabeledOutput) components.Charter {
	totalFrames := 0
	for _, seg := range out.Segments {
		totalFrames += seg.EndFrame - seg.StartFrame + 1
	}
	stride := 1
	if totalFrames > maxReportPoints {
		stride = int(math.Ceil(float64(totalFrames) / float64(maxReportPoints)))
	}

	bySeries := make(map[string][]opts.ScatterData)
	for _, seg := range out.Segments {
		name := seg.Label
		if name == "" || name == "unlabeled" {
			name = fmt.Sprintf("unlabeled (seg %d)", seg.SegID)
		}
		if seg.Slot < 0 || seg.Slot >= len(trial.Slots) {
			continue
		}
		track := trial.Slots[seg.Slot]
		for f := seg.StartFrame; f <= seg.EndFrame && f < len(track); f += stride {
			p := track[f]
			if math.IsNaN(p.X) || math.IsNaN(p.Y) {
				continue
			}
			bySeries[name] = append(bySeries[name], opts.ScatterData{Value: []interface{}{p.X, p.Y, f}})
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Labeled trajectories (top-down)",
			Subtitle: fmt.Sprintf("trial=%s segments=%d stride=%d", out.Trial, len(out.Segments), stride),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y", NameLocation: "middle", NameGap: 30}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll"}),
	)

	for _, name := range sortedKeys(bySeries) {
		scatter.AddSeries(name, bySeries[name], charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	}
	return scatter
}

func confidenceBar(out *trialio.LabeledOutput) components.Charter {
	segs := make([]trialio.LabeledSegment, len(out.Segments))
	copy(segs, out.Segments)
	sort.Slice(segs, func(i, j int) bool { return segs[i].SegID < segs[j].SegID })

	labels := make([]string, len(segs))
	vals := make([]opts.BarData, len(segs))
	for i, seg := range segs {
		labels[i] = fmt.Sprintf("%s #%d", seg.Label, seg.SegID)
		vals[i] = opts.BarData{Value: seg.Confidence}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Label confidence by segment"}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("confidence", vals)
	return bar
}

func warningBar(out *trialio.LabeledOutput) components.Charter {
	counts := make(map[string]int)
	for _, w := range out.Warnings {
		counts[w.Kind]++
	}

	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	vals := make([]opts.BarData, len(kinds))
	for i, k := range kinds {
		vals[i] = opts.BarData{Value: counts[k]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Warnings by kind"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(kinds)
	bar.AddSeries("warnings", vals)
	return bar
}

func sortedKeys(m map[string][]opts.ScatterData) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

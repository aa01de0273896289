package s6verify

import (
	"fmt"
	"math"
	"sort"

	"github.com/gaitworks/markerlab/internal/marker"
	"github.com/gaitworks/markerlab/internal/marker/s5label"
)

// anomalyCheckStride spaces the frame-wise distance checks so long overlaps
// don't dominate runtime; the consistency fraction converges well before
// every frame is sampled.
const anomalyCheckStride = 5

// Verify runs the anatomical checks over the aggregated labels and returns
// the final assignments plus structured warnings. For every overlapping
// labeled segment pair it compares observed inter-marker distance against
// the prior band mean ± k·std; it flags duplicate labels on overlapping
// live segments and segments that ship unlabeled or whose best label sits
// below the confidence floor. Final confidence blends the classifier-derived
// confidence with the fraction of pairwise checks that passed.
func Verify(a *marker.Arena, labels map[int]*s5label.SegmentLabel, priors *PriorTable, cfg marker.PipelineConfig) ([]marker.LabelAssignment, []marker.Warning) {
	segIDs := sortedSegIDs(labels)
	var warnings []marker.Warning

	consistency := make(map[int]fraction)
	for i := 0; i < len(segIDs); i++ {
		for j := i + 1; j < len(segIDs); j++ {
			warnings = append(warnings, checkPair(a, labels, priors, cfg, segIDs[i], segIDs[j], consistency)...)
		}
	}

	out := make([]marker.LabelAssignment, 0, len(segIDs))
	for _, segID := range segIDs {
		sl := labels[segID]
		seg := a.Get(segID)
		if seg == nil {
			continue
		}

		conf := sl.Confidence
		if frac, ok := consistency[segID]; ok && frac.total > 0 {
			conf = cfg.VerifyBlend*sl.Confidence + (1-cfg.VerifyBlend)*frac.value()
		}

		label := sl.Label
		switch {
		case label == "":
			// Every window vote lost out; the segment ships unlabeled, so
			// flag it rather than let it pass silently.
			warnings = append(warnings, marker.Warning{
				Kind: marker.WarnLowConfidence, SegID: segID, Frame: seg.StartFrame,
				Detail: fmt.Sprintf("no label above minimum confidence %.3f", cfg.MinConfidence),
			})
		case conf < cfg.MinConfidence:
			warnings = append(warnings, marker.Warning{
				Kind: marker.WarnLowConfidence, SegID: segID, Label: label, Frame: seg.StartFrame,
				Detail: fmt.Sprintf("confidence %.3f below minimum %.3f", conf, cfg.MinConfidence),
			})
			label = ""
		}

		out = append(out, marker.LabelAssignment{
			SegID:      segID,
			Slot:       seg.Slot,
			StartFrame: seg.StartFrame,
			EndFrame:   seg.EndFrame(),
			Label:      label,
			Confidence: conf,
		})
	}
	return out, warnings
}

// fraction accumulates pass/total counts for the anatomical consistency
// blend.
type fraction struct {
	pass, total int
}

func (f fraction) value() float64 {
	if f.total == 0 {
		return 1
	}
	return float64(f.pass) / float64(f.total)
}

// checkPair examines one segment pair: duplicate labels on overlapping
// frames, and distance-band checks where both carry distinct labels with a
// known prior.
func checkPair(a *marker.Arena, labels map[int]*s5label.SegmentLabel, priors *PriorTable, cfg marker.PipelineConfig, si, sj int, consistency map[int]fraction) []marker.Warning {
	li, lj := labels[si], labels[sj]
	if li.Label == "" || lj.Label == "" {
		return nil
	}
	segI, segJ := a.Get(si), a.Get(sj)
	if segI == nil || segJ == nil || !segI.Overlaps(segJ) {
		return nil
	}

	if li.Label == lj.Label {
		// Same label alive twice in the same frames. Warn on both sides so
		// each output entry carries its own flag.
		return []marker.Warning{
			{Kind: marker.WarnDuplicateLabel, SegID: si, Label: li.Label, Frame: overlapStart(segI, segJ),
				Detail: fmt.Sprintf("label also carried by segment %d in overlapping frames", sj)},
			{Kind: marker.WarnDuplicateLabel, SegID: sj, Label: lj.Label, Frame: overlapStart(segI, segJ),
				Detail: fmt.Sprintf("label also carried by segment %d in overlapping frames", si)},
		}
	}

	prior, ok := priors.Get(li.Label, lj.Label)
	if !ok || prior.Std == 0 {
		return nil
	}

	var warnings []marker.Warning
	lo, hi := overlapRange(segI, segJ)
	fi, fj := consistency[si], consistency[sj]
	for f := lo; f <= hi; f += anomalyCheckStride {
		p, q := segI.At(f), segJ.At(f)
		if p.Missing() || q.Missing() {
			continue
		}
		d := p.Dist(q)
		fi.total++
		fj.total++
		if math.Abs(d-prior.Mean) <= cfg.PriorBandK*prior.Std {
			fi.pass++
			fj.pass++
			continue
		}
		// The anomaly belongs to the pair; warn on both sides like the
		// duplicate check above.
		warnings = append(warnings,
			marker.Warning{
				Kind: marker.WarnAnomalousDistance, SegID: si, Label: li.Label, Frame: f,
				Detail: fmt.Sprintf("distance to %s is %.1f, prior %.1f ± %.1f·%.1f", lj.Label, d, prior.Mean, cfg.PriorBandK, prior.Std),
			},
			marker.Warning{
				Kind: marker.WarnAnomalousDistance, SegID: sj, Label: lj.Label, Frame: f,
				Detail: fmt.Sprintf("distance to %s is %.1f, prior %.1f ± %.1f·%.1f", li.Label, d, prior.Mean, cfg.PriorBandK, prior.Std),
			})
	}
	consistency[si] = fi
	consistency[sj] = fj
	return warnings
}

func overlapStart(a, b *marker.Segment) int {
	if a.StartFrame > b.StartFrame {
		return a.StartFrame
	}
	return b.StartFrame
}

func overlapRange(a, b *marker.Segment) (lo, hi int) {
	lo = overlapStart(a, b)
	hi = a.EndFrame()
	if b.EndFrame() < hi {
		hi = b.EndFrame()
	}
	return lo, hi
}

func sortedSegIDs(labels map[int]*s5label.SegmentLabel) []int {
	out := make([]int, 0, len(labels))
	for segID := range labels {
		out = append(out, segID)
	}
	sort.Ints(out)
	return out
}

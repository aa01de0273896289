// Package s5label reconciles per-window assignments into one label per
// trajectory segment by confidence-weighted voting, then resolves
// cross-segment conflicts with a trajectory-level re-assignment.
package s5label

import (
	"sort"

	"github.com/gaitworks/markerlab/internal/marker"
	"github.com/gaitworks/markerlab/internal/marker/s3infer"
	"github.com/gaitworks/markerlab/internal/marker/s4assign"
)

// SegmentLabel is the aggregated labeling decision for one segment.
type SegmentLabel struct {
	SegID      int
	Label      string // empty when unlabeled
	Confidence float64
	Votes      map[string]float64 // total probability weight per candidate label
	Windows    int                // windows that contributed an assignment
}

// Aggregate combines per-window assignments into one decision per segment.
// Each window's assignment votes for its label with the classifier
// probability as weight; the label with the highest total weight wins and
// its confidence is the winning weight over the total weight. The caller
// must only invoke this after every window of a segment has returned
// (the pipeline barrier).
//
// Ties in total weight resolve toward the lexicographically smaller label
// so repeated runs stay byte-identical.
func Aggregate(asgs []s4assign.Assignment) map[int]*SegmentLabel {
	bySeg := make(map[int]*SegmentLabel)
	for _, a := range asgs {
		sl := bySeg[a.SegID]
		if sl == nil {
			sl = &SegmentLabel{SegID: a.SegID, Votes: make(map[string]float64)}
			bySeg[a.SegID] = sl
		}
		sl.Votes[a.Label] += a.Prob
		sl.Windows++
	}

	for _, sl := range bySeg {
		sl.Label, sl.Confidence = winner(sl.Votes)
	}
	return bySeg
}

// winner picks the label with the highest total weight and returns its
// normalized confidence.
func winner(votes map[string]float64) (string, float64) {
	labels := make([]string, 0, len(votes))
	for l := range votes {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	var best string
	var bestW, total float64
	for _, l := range labels {
		w := votes[l]
		total += w
		if w > bestW {
			bestW = w
			best = l
		}
	}
	if total == 0 {
		return "", 0
	}
	return best, bestW / total
}

// ResolveConflicts detects segments that settled on the same label within
// overlapping frames and re-runs the assignment at trajectory level over
// exactly the conflicting segments and their voted labels, using the
// aggregated probability sums as the cost basis. Segments that lose their
// label in the re-assignment become unlabeled.
func ResolveConflicts(labels map[int]*SegmentLabel, a *marker.Arena, unlabeledCost float64) {
	conflicted := findConflicts(labels, a)
	if len(conflicted) == 0 {
		return
	}

	labelSet := votedLabels(labels, conflicted)
	pm := s3infer.ProbMatrix{
		SegIDs: conflicted,
		Labels: labelSet,
		P:      make([][]float64, len(conflicted)),
	}
	for i, segID := range conflicted {
		sl := labels[segID]
		var total float64
		for _, w := range sl.Votes {
			total += w
		}
		row := make([]float64, len(labelSet))
		if total > 0 {
			for j, l := range labelSet {
				row[j] = sl.Votes[l] / total
			}
		}
		pm.P[i] = row
	}

	resolved, err := s4assign.AssignWindow(-1, pm, unlabeledCost)
	if err != nil {
		return // degenerate conflict set; verifier will flag the duplicates
	}

	bySeg := make(map[int]s4assign.Assignment, len(resolved))
	for _, r := range resolved {
		bySeg[r.SegID] = r
	}
	for _, segID := range conflicted {
		sl := labels[segID]
		if r, ok := bySeg[segID]; ok {
			sl.Label = r.Label
			sl.Confidence = r.Prob
		} else {
			sl.Label = ""
			sl.Confidence = 0
		}
	}
}

// findConflicts returns, in ascending SegID order, every segment that
// shares its final label with another segment over overlapping frames.
func findConflicts(labels map[int]*SegmentLabel, a *marker.Arena) []int {
	byLabel := make(map[string][]int)
	for segID, sl := range labels {
		if sl.Label != "" {
			byLabel[sl.Label] = append(byLabel[sl.Label], segID)
		}
	}

	set := make(map[int]bool)
	for _, segIDs := range byLabel {
		if len(segIDs) < 2 {
			continue
		}
		sort.Ints(segIDs)
		for i := 0; i < len(segIDs); i++ {
			for j := i + 1; j < len(segIDs); j++ {
				si, sj := a.Get(segIDs[i]), a.Get(segIDs[j])
				if si != nil && sj != nil && si.Overlaps(sj) {
					set[segIDs[i]] = true
					set[segIDs[j]] = true
				}
			}
		}
	}

	out := make([]int, 0, len(set))
	for segID := range set {
		out = append(out, segID)
	}
	sort.Ints(out)
	return out
}

// votedLabels returns the sorted union of labels the conflicted segments
// voted for.
func votedLabels(labels map[int]*SegmentLabel, segIDs []int) []string {
	set := make(map[string]bool)
	for _, segID := range segIDs {
		for l := range labels[segID].Votes {
			set[l] = true
		}
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

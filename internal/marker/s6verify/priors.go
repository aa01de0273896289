// Package s6verify checks aggregated labels against learned anatomical
// distance priors, flags duplicates and low-confidence segments, and blends
// anatomical consistency into each label's final confidence. It never
// rejects an assignment outright; it downgrades and warns.
package s6verify

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/gaitworks/markerlab/internal/marker"
)

// Prior holds learned statistics for the distance between one unordered
// pair of markers, in the trial's length units.
type Prior struct {
	Mean float64
	Std  float64
	N    int // samples behind the estimate
}

// PriorTable maps unordered marker-name pairs to distance priors. It is
// loaded or learned once per labeling run and read-only thereafter, so
// workers share it without locking.
type PriorTable struct {
	pairs map[[2]string]Prior
}

// NewPriorTable creates an empty table.
func NewPriorTable() *PriorTable {
	return &PriorTable{pairs: make(map[[2]string]Prior)}
}

func pairKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

// Put records the prior for the unordered pair (a, b).
func (t *PriorTable) Put(a, b string, p Prior) {
	t.pairs[pairKey(a, b)] = p
}

// Get returns the prior for the unordered pair (a, b).
func (t *PriorTable) Get(a, b string) (Prior, bool) {
	p, ok := t.pairs[pairKey(a, b)]
	return p, ok
}

// Len returns the number of pairs with a prior.
func (t *PriorTable) Len() int {
	return len(t.pairs)
}

// Pairs returns every (a, b, prior) triple in deterministic order.
func (t *PriorTable) Pairs() []PairPrior {
	out := make([]PairPrior, 0, len(t.pairs))
	for k, p := range t.pairs {
		out = append(out, PairPrior{A: k[0], B: k[1], Prior: p})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// PairPrior is one row of the table in exported form, for persistence.
type PairPrior struct {
	A, B  string
	Prior Prior
}

// minPriorSamples is the minimum frame count before a pair's statistics
// are trustworthy enough to verify against.
const minPriorSamples = 10

// LearnPriors builds a PriorTable from labeled training trajectories:
// for every marker pair, the mean and standard deviation of the frame-wise
// distance over all frames where both markers are valid. Pairs with fewer
// than minPriorSamples common frames are omitted.
func LearnPriors(labeled map[string][]marker.Point3) (*PriorTable, error) {
	names := make([]string, 0, len(labeled))
	for n := range labeled {
		names = append(names, n)
	}
	if len(names) < 2 {
		return nil, fmt.Errorf("prior learning needs at least two labeled markers, got %d", len(names))
	}
	sort.Strings(names)

	t := NewPriorTable()
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			dists := pairDistances(labeled[names[i]], labeled[names[j]])
			if len(dists) < minPriorSamples {
				continue
			}
			mean, std := stat.MeanStdDev(dists, nil)
			t.Put(names[i], names[j], Prior{Mean: mean, Std: std, N: len(dists)})
		}
	}
	if t.Len() == 0 {
		return nil, fmt.Errorf("no marker pair had %d or more common valid frames", minPriorSamples)
	}
	return t, nil
}

func pairDistances(a, b []marker.Point3) []float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var out []float64
	for f := 0; f < n; f++ {
		if a[f].Missing() || b[f].Missing() {
			continue
		}
		out = append(out, a[f].Dist(b[f]))
	}
	return out
}

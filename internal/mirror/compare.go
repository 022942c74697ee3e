// Package mirror diffs two grids position by position and reflects a single
// grid back as its strongest and weakest tendencies.
package mirror

import (
	"fmt"
	"math"
	"sort"

	"mandala/internal/grid"
)

// Verdict buckets the mean absolute bias delta between two grids.
type Verdict string

const (
	VerdictAligned   Verdict = "aligned"
	VerdictSimilar   Verdict = "similar"
	VerdictDivergent Verdict = "divergent"
	VerdictDistinct  Verdict = "distinct"
)

// Upper bounds (exclusive) for each verdict. Anything at or above
// DivergentBelow is distinct.
const (
	AlignedBelow   = 0.05
	SimilarBelow   = 0.15
	DivergentBelow = 0.30
)

// precision is the rounding step applied to deltas and the mean so that
// float noise such as 0.049999999999 lands on the intended bucket.
const precision = 1e9

func round(v float64) float64 {
	return math.Round(v*precision) / precision
}

// Classify maps a mean absolute delta onto a Verdict.
func Classify(meanAbs float64) Verdict {
	switch {
	case meanAbs < AlignedBelow:
		return VerdictAligned
	case meanAbs < SimilarBelow:
		return VerdictSimilar
	case meanAbs < DivergentBelow:
		return VerdictDivergent
	}
	return VerdictDistinct
}

// Delta is the bias change at one index, from grid A to grid B.
type Delta struct {
	Index int
	Label string
	From  float64
	To    float64
	Delta float64 // To - From
}

// Summary aggregates the per-position deltas.
//
// Verdict buckets ChangedMeanAbsDelta, the mean over positions whose bias
// actually moved. MeanAbsDelta spreads the same total over every position and
// is reported alongside it. A single position moved by 0.45 therefore reads
// distinct, although its nine-position mean of 0.05 would read similar.
type Summary struct {
	MeanAbsDelta        float64
	ChangedMeanAbsDelta float64
	MaxAbsDelta         float64
	ChangedCount        int
	Verdict             Verdict
}

// Result is the outcome of one comparison. It is never persisted.
type Result struct {
	NameA   string
	NameB   string
	Deltas  []Delta // ascending index
	Summary Summary
}

// PerPositionDelta returns index -> signed delta.
func (r *Result) PerPositionDelta() map[int]float64 {
	out := make(map[int]float64, len(r.Deltas))
	for _, d := range r.Deltas {
		out[d.Index] = d.Delta
	}
	return out
}

// Changed returns the non-zero deltas.
func (r *Result) Changed() []Delta {
	var out []Delta
	for _, d := range r.Deltas {
		if d.Delta != 0 {
			out = append(out, d)
		}
	}
	return out
}

// Identical reports whether every delta is zero.
func (r *Result) Identical() bool {
	for _, d := range r.Deltas {
		if d.Delta != 0 {
			return false
		}
	}
	return true
}

// Compare computes b - a for every index. The grids must share the same
// index set; only biases are compared, decorative fields are ignored.
func Compare(a, b *grid.Grid) (*Result, error) {
	ia, ib := a.Indices(), b.Indices()
	if !sameIndices(ia, ib) {
		return nil, grid.Errorf(grid.KindIncompatibleGrids,
			"%q has indices %v, %q has indices %v", a.Name(), ia, b.Name(), ib)
	}
	if len(ia) == 0 {
		return nil, grid.Errorf(grid.KindIncompatibleGrids, "no positions to compare")
	}

	res := &Result{NameA: a.Name(), NameB: b.Name()}
	var (
		total, max float64
		changed    int
	)
	for _, idx := range ia {
		pa, err := a.Get(idx)
		if err != nil {
			return nil, err
		}
		pb, err := b.Get(idx)
		if err != nil {
			return nil, err
		}
		d := round(pb.Bias - pa.Bias)
		res.Deltas = append(res.Deltas, Delta{
			Index: idx,
			Label: pa.Label,
			From:  pa.Bias,
			To:    pb.Bias,
			Delta: d,
		})
		if d != 0 {
			changed++
			total += math.Abs(d)
			max = math.Max(max, math.Abs(d))
		}
	}

	res.Summary = Summary{
		MeanAbsDelta: round(total / float64(len(ia))),
		MaxAbsDelta:  max,
		ChangedCount: changed,
	}
	if changed > 0 {
		res.Summary.ChangedMeanAbsDelta = round(total / float64(changed))
	}
	res.Summary.Verdict = Classify(res.Summary.ChangedMeanAbsDelta)
	return res, nil
}

// SelfMirror compares g against the built-in default, reporting how far a
// profile has drifted from the baseline.
func SelfMirror(g *grid.Grid) (*Result, error) {
	return Compare(g, grid.Default())
}

// sameIndices reports whether a and b hold the same indices, all within
// 0..grid.Size-1.
func sameIndices(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]int(nil), a...)
	sb := append([]int(nil), b...)
	sort.Ints(sa)
	sort.Ints(sb)
	for i := range sa {
		if sa[i] != sb[i] || sa[i] < 0 || sa[i] >= grid.Size {
			return false
		}
	}
	return true
}

// String formats a delta like "-0.25" or "+0.10".
func (d Delta) String() string {
	return fmt.Sprintf("%+.2f", d.Delta)
}

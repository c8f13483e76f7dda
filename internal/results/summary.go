package results

import (
	"math"
	"slices"
)

// Summarize adds mean, median and the 2.5/97.5 percentile columns computed
// across the replicate columns of every row. Existing summary columns are
// recomputed.
func (t *Table) Summarize() {
	n := t.Len()
	mean := make([]float64, n)
	median := make([]float64, n)
	low := make([]float64, n)
	high := make([]float64, n)
	for i := range n {
		row := t.Row(i)
		mean[i] = Mean(row)
		slices.Sort(row)
		median[i] = quantileSorted(row, 0.5)
		low[i] = quantileSorted(row, 0.025)
		high[i] = quantileSorted(row, 0.975)
	}
	t.addColumn(ColMean, mean)
	t.addColumn(ColMedian, median)
	t.addColumn(ColLow, low)
	t.addColumn(ColHigh, high)
}

// Mean returns the arithmetic mean, or NaN for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Quantile returns the q-quantile with linear interpolation between the
// closest ranks.
func Quantile(values []float64, q float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return quantileSorted(sorted, q)
}

func quantileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

package services

// CronbachAlpha estimates the internal consistency of a scale from a matrix
// shaped [responses][questions] of option weights. Population variance is
// used throughout, so perfectly correlated questions yield 1. The result is
// clamped to [0, 1]; fewer than two questions or ragged rows yield 0.
func CronbachAlpha(matrix [][]float64) float64 {
	n := len(matrix)
	if n == 0 {
		return 0
	}
	k := len(matrix[0])
	if k < 2 {
		return 0
	}

	sums := make([]float64, k)
	totals := make([]float64, n)
	for i, row := range matrix {
		if len(row) != k {
			return 0
		}
		for j, v := range row {
			sums[j] += v
			totals[i] += v
		}
	}

	var sumItemVars float64
	for j := 0; j < k; j++ {
		mean := sums[j] / float64(n)
		var ss float64
		for i := 0; i < n; i++ {
			d := matrix[i][j] - mean
			ss += d * d
		}
		sumItemVars += ss / float64(n)
	}

	totalVar := variance(totals)
	if totalVar == 0 {
		return 0
	}
	kf := float64(k)
	alpha := (kf / (kf - 1)) * (1 - sumItemVars/totalVar)
	switch {
	case alpha < 0:
		return 0
	case alpha > 1:
		return 1
	}
	return alpha
}

func variance(xs []float64) float64 {
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return ss / float64(len(xs))
}

package services

import (
	"math"
	"testing"
)

func TestCronbachAlpha(t *testing.T) {
	cases := []struct {
		name   string
		matrix [][]float64
		want   float64
	}{
		{"items move together", [][]float64{{0, 0, 0}, {2, 2, 2}, {4, 4, 4}, {1, 1, 1}}, 1},
		{"no responses", nil, 0},
		{"single item", [][]float64{{1}, {3}}, 0},
		{"constant totals", [][]float64{{4, 0}, {0, 4}, {2, 2}}, 0},
		{"ragged rows", [][]float64{{1, 2}, {3}}, 0},
		// item variances 6/9 and 8/9, total variance 26/9
		{"partial agreement", [][]float64{{1, 2}, {2, 2}, {3, 4}}, 2 * (1 - 14.0/26)},
	}
	for _, tc := range cases {
		if got := CronbachAlpha(tc.matrix); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%s: want %f, got %f", tc.name, tc.want, got)
		}
	}
}

func TestCronbachAlphaStaysInRange(t *testing.T) {
	// opposite items drive the raw estimate below zero
	got := CronbachAlpha([][]float64{{0, 4, 0}, {4, 0, 4}, {1, 3, 0}, {3, 1, 4}})
	if got < 0 || got > 1 {
		t.Fatalf("alpha out of [0,1]: %f", got)
	}
}

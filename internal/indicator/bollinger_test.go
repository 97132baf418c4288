package indicator

import (
	"math"
	"testing"
)

func TestBollinger(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	upper, middle, lower := Bollinger(values, 3, 2)

	if Defined(middle[1]) {
		t.Error("middle band should be undefined during warm-up")
	}
	if middle[2] != 2 || middle[4] != 4 {
		t.Errorf("middle band wrong: %f, %f", middle[2], middle[4])
	}

	sigma := math.Sqrt(2.0 / 3.0)
	if !almostEqual(upper[2], 2+2*sigma, 1e-9) {
		t.Errorf("upper[2] = %f, want %f", upper[2], 2+2*sigma)
	}
	if !almostEqual(lower[2], 2-2*sigma, 1e-9) {
		t.Errorf("lower[2] = %f, want %f", lower[2], 2-2*sigma)
	}
}

func TestBollinger_FlatSeriesCollapses(t *testing.T) {
	values := []float64{5, 5, 5, 5}
	upper, middle, lower := Bollinger(values, 3, 2)
	if upper[3] != 5 || middle[3] != 5 || lower[3] != 5 {
		t.Errorf("flat series should collapse the bands, got %f/%f/%f",
			upper[3], middle[3], lower[3])
	}
}

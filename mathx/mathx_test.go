package mathx

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	cases := []struct {
		x, unit, want float64
	}{
		{1.26, 0.1, 1.3},
		{1.24, 0.1, 1.2},
		{-1.26, 0.1, -1.3},
		{0.0015004, 1e-6, 0.0015},
		{0, 1e-6, 0},
	}
	for _, c := range cases {
		if got := Round(c.x, c.unit); math.Abs(got-c.want) > c.unit/100 {
			t.Errorf("Round(%v, %v) = %v, want %v", c.x, c.unit, got, c.want)
		}
	}
}

// Package mathx contains small numeric helpers for reporting timings
package mathx

// Round rounds x to the nearest multiple of unit (1e-6 for microseconds of a
// value in seconds, and so on).  Halves round away from zero.
func Round(x, unit float64) float64 {
	if x < 0 {
		return -Round(-x, unit)
	}
	return float64(int64(x/unit+0.5)) * unit
}

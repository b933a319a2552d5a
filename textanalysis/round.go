package textanalysis

import "strconv"

// round2 rounds f to two decimal places from the exact binary value of f,
// ties to even. Scaling by 100 first would introduce a second rounding step.
func round2(f float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 2, 64), 64)
	if err != nil {
		return f
	}
	return r
}

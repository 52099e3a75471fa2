package util

import "math"

// RoundUp rounds the input number up, with places representing the number of decimal places.
func RoundUp(input float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Ceil(pow*input) / pow
}

// Average returns the average of the vals, NaN when vals is empty.
func Average(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}

	total := 0.0
	for _, v := range vals {
		total += v
	}
	return total / float64(len(vals))
}

// IsFiniteAll reports whether every value is a finite number.
func IsFiniteAll(vals []float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

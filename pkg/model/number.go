package model

import (
	"math"
	"strconv"
	"strings"
)

var numberNoise = strings.NewReplacer(",", "", "$", "", "%", "")

// ParseNumber reads a number field answer. Thousands separators and currency
// or percent signs are ignored, so "$1,200" and "45%" parse. Empty, NaN and
// infinite values do not.
func ParseNumber(raw string) (float64, bool) {
	cleaned := numberNoise.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

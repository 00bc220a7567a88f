package merge

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Median returns the median of xs: the middle value for an odd count and the
// mean of the two middle values for an even count. xs is not modified.
// Returns NaN if xs is empty or contains NaN.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	for _, x := range sorted {
		if math.IsNaN(x) {
			return math.NaN()
		}
	}
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// BlockScore is the median score of the blocks containing a gene pair.
type BlockScore struct {
	Median float64
	Blocks int
}

// NewBlockScore computes the block score from the matching block scores.
func NewBlockScore(scores []float64) BlockScore {
	if len(scores) == 0 {
		return BlockScore{}
	}
	return BlockScore{Median: Median(scores), Blocks: len(scores)}
}

// Value returns the numeric score, 0 when no block matched.
func (s BlockScore) Value() float64 {
	if s.Blocks == 0 {
		return 0
	}
	return s.Median
}

// String formats the score for the output column. No match prints "0";
// otherwise the median is printed as a float that always shows a fraction
// or exponent, e.g. "2.0", "1.5", "1e-05".
func (s BlockScore) String() string {
	if s.Blocks == 0 {
		return "0"
	}
	return FormatFloat(s.Median)
}

// FormatFloat renders f with the fewest digits that round-trip. Magnitudes
// below 1e-4 or at least 1e16 use exponent notation; integral values keep
// a trailing ".0".
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}

	exp := decimalExponent(f)
	if exp < -4 || exp >= 16 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// decimalExponent returns the exponent of f in shortest scientific notation.
func decimalExponent(f float64) int {
	s := strconv.FormatFloat(f, 'e', -1, 64)
	i := strings.IndexByte(s, 'e')
	exp, _ := strconv.Atoi(s[i+1:])
	return exp
}

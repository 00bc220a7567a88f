package tsvio

import (
	"errors"
	"strconv"
	"strings"
)

// ParseInt parses a base-10 integer column. Surrounding whitespace is ignored
// and single underscores between digits are accepted as group separators.
// Values outside the int range are an error.
func ParseInt(s string) (int, error) {
	clean, ok := stripDigitSeparators(strings.TrimSpace(s))
	if !ok {
		return 0, &strconv.NumError{Func: "ParseInt", Num: s, Err: strconv.ErrSyntax}
	}
	return strconv.Atoi(clean)
}

// ParseFloat parses a float column. Like ParseInt it ignores surrounding
// whitespace and accepts underscores between digits. Values too large for a
// float64 parse to ±Inf instead of failing.
func ParseFloat(s string) (float64, error) {
	clean, ok := stripDigitSeparators(strings.TrimSpace(s))
	if !ok {
		return 0, &strconv.NumError{Func: "ParseFloat", Num: s, Err: strconv.ErrSyntax}
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil && errors.Is(err, strconv.ErrRange) {
		return f, nil
	}
	return f, err
}

// stripDigitSeparators removes underscores that sit between two digits.
// Any other underscore makes the input invalid.
func stripDigitSeparators(s string) (string, bool) {
	if !strings.Contains(s, "_") {
		return s, true
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			b.WriteByte(s[i])
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return "", false
		}
	}
	return b.String(), true
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

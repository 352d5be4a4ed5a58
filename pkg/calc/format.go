package calc

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrorDisplay is the display text of the error state.
const ErrorDisplay = "Error"

const (
	sciUpper      = 1e10
	sciLower      = 1e-4
	fixedDigits   = 10
	sciFracDigits = 4
)

// FormatResult renders v the way the display shows it: scientific notation
// for very large or very small magnitudes, otherwise fixed point without
// trailing zeros.
func FormatResult(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrorDisplay
	}

	abs := math.Abs(v)
	if abs >= sciUpper || (abs < sciLower && v != 0) {
		return fmt.Sprintf("%.*e", sciFracDigits, v)
	}

	s := strconv.FormatFloat(v, 'f', fixedDigits, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}

	switch s {
	case "", "-", "-0":
		return "0"
	}
	return s
}

// numeral matches what the display can hold: an optional sign, digits, an
// optional fraction and an optional exponent. Words like NaN or Inf and hex
// floats are rejected even though strconv accepts them.
var numeral = regexp.MustCompile(`^[-+]?[0-9]+(\.[0-9]*)?([eE][-+]?[0-9]+)?$`)

// ParseDisplay converts display text back to a number. Numerals beyond the
// float64 range yield ±Inf without error; anything else that is not a
// numeral fails with ErrInvalidDisplayState.
func ParseDisplay(s string) (float64, error) {
	if !numeral.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDisplayState, s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return v, nil
		}
		return 0, fmt.Errorf("%w: %q", ErrInvalidDisplayState, s)
	}
	return v, nil
}

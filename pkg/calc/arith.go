package calc

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidOperand      = errors.New("invalid operand")
	ErrDivideByZero        = errors.New("division by zero")
	ErrOverflow            = errors.New("overflow")
	ErrInvalidDisplayState = errors.New("invalid display state")
)

const (
	// Epsilon is the magnitude below which a divisor counts as zero.
	Epsilon = 1e-10
	// MaxMagnitude bounds every result in absolute value.
	MaxMagnitude = 1e15
	// MaxFactorial is the largest argument whose factorial fits in a uint64.
	MaxFactorial = 20
)

func arithError(op string, kind error, reason string) error {
	return fmt.Errorf("%s: %w: %s", op, kind, reason)
}

func checkInputs(op string, values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) {
			return arithError(op, ErrInvalidOperand, "input cannot be NaN")
		}
		if math.IsInf(v, 0) {
			return arithError(op, ErrInvalidOperand, "input cannot be infinite")
		}
	}
	return nil
}

func checkResult(op string, r float64) (float64, error) {
	switch {
	case math.IsNaN(r):
		return 0, arithError(op, ErrOverflow, "result is NaN")
	case math.IsInf(r, 0):
		return 0, arithError(op, ErrOverflow, "result is infinite")
	case math.Abs(r) > MaxMagnitude:
		return 0, arithError(op, ErrOverflow, "result too large")
	}
	return r, nil
}

func Add(a, b float64) (float64, error) {
	if err := checkInputs("add", a, b); err != nil {
		return 0, err
	}
	return checkResult("add", a+b)
}

func Subtract(a, b float64) (float64, error) {
	if err := checkInputs("subtract", a, b); err != nil {
		return 0, err
	}
	return checkResult("subtract", a-b)
}

func Multiply(a, b float64) (float64, error) {
	if err := checkInputs("multiply", a, b); err != nil {
		return 0, err
	}
	return checkResult("multiply", a*b)
}

func Divide(a, b float64) (float64, error) {
	if err := checkInputs("divide", a, b); err != nil {
		return 0, err
	}
	if math.Abs(b) < Epsilon {
		return 0, arithError("divide", ErrDivideByZero, "divisor is zero")
	}
	return checkResult("divide", a/b)
}

// Power raises base to exp. Results that are not real numbers, such as a
// negative base with a fractional exponent, are reported as ErrOverflow.
func Power(base, exp float64) (float64, error) {
	if err := checkInputs("power", base, exp); err != nil {
		return 0, err
	}
	if base == 0 && exp < 0 {
		return 0, arithError("power", ErrInvalidOperand, "zero cannot be raised to a negative power")
	}
	return checkResult("power", math.Pow(base, exp))
}

// Percentage, Absolute and Negate only validate their input. They never
// grow a magnitude, so an entry above MaxMagnitude passes through them.
func Percentage(x float64) (float64, error) {
	if err := checkInputs("percentage", x); err != nil {
		return 0, err
	}
	return x / 100, nil
}

func SquareRoot(x float64) (float64, error) {
	if err := checkInputs("square root", x); err != nil {
		return 0, err
	}
	if x < 0 {
		return 0, arithError("square root", ErrInvalidOperand, "negative number")
	}
	return checkResult("square root", math.Sqrt(x))
}

func Reciprocal(x float64) (float64, error) {
	if err := checkInputs("reciprocal", x); err != nil {
		return 0, err
	}
	if math.Abs(x) < Epsilon {
		return 0, arithError("reciprocal", ErrDivideByZero, "reciprocal of zero")
	}
	return checkResult("reciprocal", 1/x)
}

func Square(x float64) (float64, error) {
	if err := checkInputs("square", x); err != nil {
		return 0, err
	}
	return checkResult("square", x*x)
}

func Absolute(x float64) (float64, error) {
	if err := checkInputs("absolute", x); err != nil {
		return 0, err
	}
	return math.Abs(x), nil
}

func Negate(x float64) (float64, error) {
	if err := checkInputs("negate", x); err != nil {
		return 0, err
	}
	return -x, nil
}

// Factorial returns x! for integral 0 <= x <= MaxFactorial. The product is
// accumulated in a uint64, so it is exact over the whole domain. It is not
// subject to MaxMagnitude.
func Factorial(x float64) (float64, error) {
	if err := checkInputs("factorial", x); err != nil {
		return 0, err
	}
	if x < 0 {
		return 0, arithError("factorial", ErrInvalidOperand, "negative number")
	}
	if x != math.Floor(x) {
		return 0, arithError("factorial", ErrInvalidOperand, "not an integer")
	}
	if x > MaxFactorial {
		return 0, arithError("factorial", ErrOverflow, fmt.Sprintf("maximum is %d!", MaxFactorial))
	}

	result := uint64(1)
	for i := uint64(2); i <= uint64(x); i++ {
		result *= i
	}
	return float64(result), nil
}

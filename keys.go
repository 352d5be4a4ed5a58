package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/turbekoff/calcpad/pkg/calc"
)

var ErrUnsupported = errors.New("unsupported input format")

var keyEvents = map[string]calc.Event{
	".": calc.DecimalEvent(),
	",": calc.DecimalEvent(),

	"+":  calc.OperatorEvent(calc.OpAdd),
	"-":  calc.OperatorEvent(calc.OpSubtract),
	"−":  calc.OperatorEvent(calc.OpSubtract),
	"*":  calc.OperatorEvent(calc.OpMultiply),
	"×":  calc.OperatorEvent(calc.OpMultiply),
	"x":  calc.OperatorEvent(calc.OpMultiply),
	"/":  calc.OperatorEvent(calc.OpDivide),
	"÷":  calc.OperatorEvent(calc.OpDivide),
	"^":  calc.OperatorEvent(calc.OpPower),
	"xʸ": calc.OperatorEvent(calc.OpPower),

	"%":    calc.OperatorEvent(calc.OpPercentage),
	"√":    calc.OperatorEvent(calc.OpSquareRoot),
	"sqrt": calc.OperatorEvent(calc.OpSquareRoot),
	"1/x":  calc.OperatorEvent(calc.OpReciprocal),
	"inv":  calc.OperatorEvent(calc.OpReciprocal),
	"x!":   calc.OperatorEvent(calc.OpFactorial),
	"!":    calc.OperatorEvent(calc.OpFactorial),
	"fact": calc.OperatorEvent(calc.OpFactorial),
	"x²":   calc.OperatorEvent(calc.OpSquare),
	"sq":   calc.OperatorEvent(calc.OpSquare),
	"±":    calc.OperatorEvent(calc.OpNegate),
	"neg":  calc.OperatorEvent(calc.OpNegate),

	"=":         calc.OperatorEvent(calc.OpEquals),
	"enter":     calc.OperatorEvent(calc.OpEquals),
	"c":         calc.OperatorEvent(calc.OpClear),
	"ac":        calc.OperatorEvent(calc.OpClear),
	"esc":       calc.OperatorEvent(calc.OpClear),
	"ce":        calc.OperatorEvent(calc.OpClearEntry),
	"del":       calc.OperatorEvent(calc.OpClearEntry),
	"⌫":         calc.OperatorEvent(calc.OpBackspace),
	"bs":        calc.OperatorEvent(calc.OpBackspace),
	"backspace": calc.OperatorEvent(calc.OpBackspace),
}

func init() {
	for d := '0'; d <= '9'; d++ {
		keyEvents[string(d)] = calc.DigitEvent(string(d))
	}
}

// ParseKey decodes a keypad token into a calculator event. Word tokens are
// matched case-insensitively.
func ParseKey(token string) (calc.Event, error) {
	if ev, ok := keyEvents[token]; ok {
		return ev, nil
	}
	if ev, ok := keyEvents[strings.ToLower(token)]; ok {
		return ev, nil
	}
	return calc.Event{}, fmt.Errorf("%w: key %q", ErrUnsupported, token)
}

// ParseKeys decodes every token or none.
func ParseKeys(tokens []string) ([]calc.Event, error) {
	events := make([]calc.Event, 0, len(tokens))
	for _, token := range tokens {
		ev, err := ParseKey(token)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

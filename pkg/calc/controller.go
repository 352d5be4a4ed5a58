package calc

import (
	"fmt"
	"strings"
)

type EventKind int

const (
	EventDigit EventKind = iota + 1
	EventDecimal
	EventOperator
)

// Event is one decoded keypad input.
type Event struct {
	Kind  EventKind
	Digit string
	Op    Operator
}

func DigitEvent(d string) Event { return Event{Kind: EventDigit, Digit: d} }

func DecimalEvent() Event { return Event{Kind: EventDecimal} }

func OperatorEvent(op Operator) Event { return Event{Kind: EventOperator, Op: op} }

func (e Event) String() string {
	switch e.Kind {
	case EventDigit:
		return e.Digit
	case EventDecimal:
		return "."
	case EventOperator:
		return e.Op.Symbol()
	default:
		return fmt.Sprintf("Event(%d)", int(e.Kind))
	}
}

// Controller drives a State from keypad input. Arithmetic failures put it
// into a sticky error state that only OpClear and OpClearEntry leave.
//
// A Controller is not safe for concurrent use.
type Controller struct {
	state State
}

func NewController() *Controller {
	c := new(Controller)
	c.state.Reset()
	return c
}

// Handle applies ev and returns the new display text.
func (c *Controller) Handle(ev Event) string {
	switch ev.Kind {
	case EventDigit:
		return c.HandleNumberInput(ev.Digit)
	case EventDecimal:
		return c.HandleDecimalInput()
	case EventOperator:
		return c.HandleOperation(ev.Op)
	default:
		return c.state.Display
	}
}

// HandleNumberInput enters a single decimal digit. Anything else is ignored.
func (c *Controller) HandleNumberInput(digit string) string {
	s := &c.state
	if s.HasError || !isDigit(digit) {
		return s.Display
	}

	switch {
	case s.Waiting:
		s.Display = digit
		s.Waiting = false
	case s.Display == "0":
		s.Display = digit
	default:
		s.Display += digit
	}
	return s.Display
}

func (c *Controller) HandleDecimalInput() string {
	s := &c.state
	if s.HasError {
		return s.Display
	}

	if s.Waiting {
		s.Display = "0."
		s.Waiting = false
	} else if !strings.Contains(s.Display, ".") {
		s.Display += "."
	}
	return s.Display
}

func (c *Controller) HandleOperation(op Operator) string {
	s := &c.state
	if s.HasError && op != OpClear && op != OpClearEntry {
		return s.Display
	}

	var err error
	switch op.Class() {
	case Binary:
		err = c.binary(op)
	case Unary:
		err = c.unary(op)
	case Control:
		err = c.control(op)
	}

	if err != nil {
		s.setError(err)
	}
	return s.Display
}

func (c *Controller) control(op Operator) error {
	s := &c.state
	switch op {
	case OpClear:
		s.Reset()
	case OpClearEntry:
		s.ClearEntry()
	case OpBackspace:
		c.backspace()
	case OpEquals:
		return c.equals()
	}
	return nil
}

func (c *Controller) binary(op Operator) error {
	s := &c.state
	operand := c.operand()

	if s.Pending != NoOp && !s.Waiting {
		result, err := s.Pending.binary(s.Previous, operand)
		if err != nil {
			return err
		}
		s.Current = result
		s.Display = FormatResult(result)
	} else {
		s.Current = operand
	}

	s.Previous = s.Current
	s.Pending = op
	s.Waiting = true
	return nil
}

func (c *Controller) unary(op Operator) error {
	s := &c.state
	operand := c.operand()

	result, err := op.unary(operand)
	if err != nil {
		return err
	}

	if op == OpNegate {
		// Sign toggling edits the entry in place so typing can continue.
		if operand != 0 {
			if rest, ok := strings.CutPrefix(s.Display, "-"); ok {
				s.Display = rest
			} else {
				s.Display = "-" + s.Display
			}
			s.Current = result
		}
		return nil
	}

	s.Current = result
	s.Display = FormatResult(result)
	s.Waiting = true
	return nil
}

func (c *Controller) equals() error {
	s := &c.state
	if s.Pending == NoOp || s.Waiting {
		return nil
	}

	result, err := s.Pending.binary(s.Previous, c.operand())
	if err != nil {
		return err
	}

	s.Current = result
	s.Display = FormatResult(result)
	s.Pending = NoOp
	s.Waiting = true
	return nil
}

func (c *Controller) backspace() {
	s := &c.state
	if s.Waiting {
		return
	}

	if len(s.Display) <= 1 {
		s.Display = "0"
		s.Waiting = true
		return
	}

	s.Display = s.Display[:len(s.Display)-1]
	if s.Display == "-" {
		s.Display = "0"
		s.Waiting = true
	}
}

// operand parses the display. The display is only written by the
// controller, so a parse failure is a bug and panics.
func (c *Controller) operand() float64 {
	v, err := ParseDisplay(c.state.Display)
	if err != nil {
		panic(err)
	}
	return v
}

func (c *Controller) Display() string {
	return c.state.Display
}

func (c *Controller) HasError() bool {
	return c.state.HasError
}

func (c *Controller) ErrorMessage() string {
	return c.state.ErrorMessage
}

// State returns a copy of the controller's state.
func (c *Controller) State() State {
	return c.state
}

func isDigit(s string) bool {
	return len(s) == 1 && '0' <= s[0] && s[0] <= '9'
}

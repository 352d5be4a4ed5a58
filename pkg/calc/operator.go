package calc

import "fmt"

// Class groups operators by how the controller dispatches them.
type Class int

const (
	Control Class = iota
	Binary
	Unary
)

func (c Class) String() string {
	switch c {
	case Control:
		return "control"
	case Binary:
		return "binary"
	case Unary:
		return "unary"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

type Operator int

// NoOp is the zero Operator; a State with Pending == NoOp has no chain in
// progress.
const (
	NoOp Operator = iota
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpPower
	OpPercentage
	OpSquareRoot
	OpReciprocal
	OpFactorial
	OpSquare
	OpNegate
	OpEquals
	OpClear
	OpClearEntry
	OpBackspace
)

type operatorInfo struct {
	symbol string
	name   string
	class  Class
}

var operators = [...]operatorInfo{
	NoOp:         {"", "none", Control},
	OpAdd:        {"+", "add", Binary},
	OpSubtract:   {"−", "subtract", Binary},
	OpMultiply:   {"×", "multiply", Binary},
	OpDivide:     {"÷", "divide", Binary},
	OpPower:      {"^", "power", Binary},
	OpPercentage: {"%", "percentage", Unary},
	OpSquareRoot: {"√", "square root", Unary},
	OpReciprocal: {"1/x", "reciprocal", Unary},
	OpFactorial:  {"x!", "factorial", Unary},
	OpSquare:     {"x²", "square", Unary},
	OpNegate:     {"±", "negate", Unary},
	OpEquals:     {"=", "equals", Control},
	OpClear:      {"C", "clear", Control},
	OpClearEntry: {"CE", "clear entry", Control},
	OpBackspace:  {"⌫", "backspace", Control},
}

// Operators lists every operator except NoOp, in declaration order.
func Operators() []Operator {
	ops := make([]Operator, 0, len(operators)-1)
	for op := OpAdd; int(op) < len(operators); op++ {
		ops = append(ops, op)
	}
	return ops
}

func (op Operator) valid() bool {
	return op > NoOp && int(op) < len(operators)
}

func (op Operator) Class() Class {
	if !op.valid() {
		return Control
	}
	return operators[op].class
}

// Symbol is the keypad label of the operator.
func (op Operator) Symbol() string {
	if !op.valid() {
		return ""
	}
	return operators[op].symbol
}

func (op Operator) String() string {
	if op == NoOp {
		return operators[NoOp].name
	}
	if !op.valid() {
		return fmt.Sprintf("Operator(%d)", int(op))
	}
	return operators[op].name
}

func (op Operator) binary(a, b float64) (float64, error) {
	switch op {
	case OpAdd:
		return Add(a, b)
	case OpSubtract:
		return Subtract(a, b)
	case OpMultiply:
		return Multiply(a, b)
	case OpDivide:
		return Divide(a, b)
	case OpPower:
		return Power(a, b)
	default:
		panic(fmt.Sprintf("calc: %v is not a binary operator", op))
	}
}

func (op Operator) unary(x float64) (float64, error) {
	switch op {
	case OpPercentage:
		return Percentage(x)
	case OpSquareRoot:
		return SquareRoot(x)
	case OpReciprocal:
		return Reciprocal(x)
	case OpFactorial:
		return Factorial(x)
	case OpSquare:
		return Square(x)
	case OpNegate:
		return Negate(x)
	default:
		panic(fmt.Sprintf("calc: %v is not a unary operator", op))
	}
}

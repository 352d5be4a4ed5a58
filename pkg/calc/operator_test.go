package calc

import "testing"

func TestOperatorClass(t *testing.T) {
	want := map[Operator]Class{
		OpAdd:        Binary,
		OpSubtract:   Binary,
		OpMultiply:   Binary,
		OpDivide:     Binary,
		OpPower:      Binary,
		OpPercentage: Unary,
		OpSquareRoot: Unary,
		OpReciprocal: Unary,
		OpFactorial:  Unary,
		OpSquare:     Unary,
		OpNegate:     Unary,
		OpEquals:     Control,
		OpClear:      Control,
		OpClearEntry: Control,
		OpBackspace:  Control,
	}

	ops := Operators()
	if len(ops) != len(want) {
		t.Fatalf("Operators() returned %d operators, want %d", len(ops), len(want))
	}
	for _, op := range ops {
		if got := op.Class(); got != want[op] {
			t.Errorf("%v.Class() = %v, want %v", op, got, want[op])
		}
		if op.Symbol() == "" {
			t.Errorf("%v has no symbol", op)
		}
	}
}

func TestOperatorOutOfRange(t *testing.T) {
	op := Operator(99)
	if op.Class() != Control {
		t.Errorf("Class() = %v, want control", op.Class())
	}
	if op.Symbol() != "" {
		t.Errorf("Symbol() = %q, want empty", op.Symbol())
	}
	if got := op.String(); got != "Operator(99)" {
		t.Errorf("String() = %q", got)
	}

	c := NewController()
	c.HandleNumberInput("4")
	if got := c.HandleOperation(op); got != "4" {
		t.Errorf("unknown operator changed display to %q", got)
	}
}

package calc

// State is the record behind a Controller's display.
type State struct {
	// Display is a numeral, "0", or ErrorDisplay.
	Display  string
	Current  float64
	Previous float64
	// Pending is a Binary operator or NoOp.
	Pending Operator
	// Waiting means the next digit starts a new number.
	Waiting      bool
	HasError     bool
	ErrorMessage string
}

// Reset returns the state to its zero form.
func (s *State) Reset() *State {
	*s = State{Display: "0", Waiting: true}
	return s
}

// ClearEntry discards the current entry and any error, keeping Pending and
// Previous so the second operand of a chain can be re-entered.
func (s *State) ClearEntry() *State {
	s.Current = 0
	s.Display = "0"
	s.Waiting = true
	s.HasError = false
	s.ErrorMessage = ""
	return s
}

func (s *State) setError(err error) {
	s.HasError = true
	s.ErrorMessage = err.Error()
	s.Display = ErrorDisplay
}

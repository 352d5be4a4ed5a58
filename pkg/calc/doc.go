// Package calc implements a pocket calculator: float64 arithmetic with
// range checks, display formatting, and the keypad state machine that holds
// at most one pending binary operator.
package calc

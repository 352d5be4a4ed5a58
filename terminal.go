package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	displayColor = color.New(color.FgGreen, color.Bold).SprintFunc()
	errorColor   = color.New(color.FgRed, color.Bold).SprintFunc()
	pendingColor = color.New(color.FgYellow).SprintFunc()
	hintColor    = color.New(color.FgHiBlack).SprintFunc()
)

const terminalHelp = `keys: 0-9 . + - * / ^ % sqrt inv fact sq neg = C CE bs
type several keys per line separated by spaces, "quit" to leave`

// Terminal is a line-oriented keypad on a pair of streams.
type Terminal struct {
	in      io.Reader
	out     io.Writer
	session *Session
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:      in,
		out:     out,
		session: NewSession(),
	}
}

// Run reads keys until the input ends or the user quits.
func (t *Terminal) Run() error {
	fmt.Fprintln(t.out, hintColor(terminalHelp))
	fmt.Fprintln(t.out, t.render(t.session.Snapshot()))

	scanner := bufio.NewScanner(t.in)
	for scanner.Scan() {
		keys := strings.Fields(scanner.Text())
		if len(keys) == 0 {
			continue
		}
		if len(keys) == 1 && (keys[0] == "quit" || keys[0] == "exit") {
			return nil
		}

		snapshot, err := t.session.Press(keys...)
		if err != nil {
			if !errors.Is(err, ErrUnsupported) {
				return err
			}
			fmt.Fprintln(t.out, errorColor(err.Error()))
			continue
		}
		fmt.Fprintln(t.out, t.render(snapshot))
	}
	return scanner.Err()
}

func (t *Terminal) render(s Snapshot) string {
	if s.Error != "" {
		return fmt.Sprintf("%s  %s", errorColor(s.Display), hintColor(s.Error))
	}
	if s.Pending != "" {
		return fmt.Sprintf("%s  %s", displayColor(s.Display), pendingColor(s.Pending))
	}
	return displayColor(s.Display)
}

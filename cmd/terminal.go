package cmd

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/pranavmangal/otpfill/otp"
	"github.com/pranavmangal/otpfill/screen"
)

// terminal renders the OTP form as a row of boxes and reports results.
// All methods are called from the screen's goroutine.
type terminal struct {
	w         io.Writer
	digits    [otp.Length]string
	focus     int
	onValid   func()
	submitted bool
	last      otp.Result
}

func newTerminal(w io.Writer) *terminal {
	return &terminal{w: w}
}

func (t *terminal) SlotFilled(index int) {
	if index < otp.Length-1 {
		t.focus = index + 1
	} else {
		t.focus = -1
	}
}

func (t *terminal) Changed(digits [otp.Length]string) {
	t.digits = digits
	t.render()
}

func (t *terminal) Notify(result otp.Result, code string) {
	t.submitted = true
	t.last = result
	fmt.Fprintln(t.w, result.Message())

	if result == otp.Valid {
		copyToClipboard(code)
		if t.onValid != nil {
			t.onValid()
		}
	}
}

func (t *terminal) render() {
	var b strings.Builder
	for i, d := range t.digits {
		switch {
		case d != "":
			b.WriteString("[" + d + "]")
		case i == t.focus:
			b.WriteString("[_]")
		default:
			b.WriteString("[ ]")
		}
	}

	fmt.Fprintln(t.w, b.String())
}

// exitErr reports a non-zero exit when the form was never submitted or the
// last submit was invalid. Call it only after the screen has stopped.
func (t *terminal) exitErr() error {
	if t.submitted && t.last == otp.Valid {
		return nil
	}

	return cli.Exit("", 1)
}

const inputHelp = "Commands: <slot 1-6> [char], submit, clear, quit"

// readInput turns lines typed by the user into screen events until the
// input ends or the screen closes.
func readInput(r io.Reader, w io.Writer, scr *screen.Screen, logger *slog.Logger) {
	fmt.Fprintln(w, inputHelp)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := handleInput(scanner.Text(), w, scr); err != nil {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Error("Failed to read input", "error", err)
	}

	scr.Close()
}

func handleInput(line string, w io.Writer, scr *screen.Screen) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "submit":
		return scr.Submit()
	case "clear":
		return scr.Clear()
	case "quit":
		scr.Close()
		return screen.ErrClosed
	}

	slot, err := strconv.Atoi(fields[0])
	if err != nil || slot < 1 || slot > otp.Length || len(fields) > 2 {
		fmt.Fprintln(w, inputHelp)
		return nil
	}

	value := ""
	if len(fields) == 2 {
		value = fields[1]
	}

	return scr.DigitTyped(slot-1, value)
}

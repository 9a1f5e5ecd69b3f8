// Package console renders build progress and verdicts for a terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/agentic-research/protocli/api"
	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

var (
	successColor = pterm.FgLightGreen
	warnColor    = pterm.FgYellow
	errorColor   = pterm.FgRed
	errorStyle   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	dimColor     = pterm.FgGray
)

// Verdict messages.
const (
	MsgSucceeded = "Successfully compiled *.proto files"
	MsgFailed    = "Failed to compile all *.proto files"
	MsgNoInput   = "No *.proto files could be found"
)

// Console writes human-readable output to w. Colors are used only when w is
// a terminal and NO_COLOR is unset.
type Console struct {
	w     io.Writer
	color bool
}

// New returns a Console for w, detecting color support.
func New(w io.Writer) *Console {
	return &Console{w: w, color: colorEnabled(w)}
}

// Plain returns a Console that never emits escape sequences.
func Plain(w io.Writer) *Console {
	return &Console{w: w}
}

func colorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *Console) paint(col pterm.Color, s string) string {
	if !c.color {
		return s
	}
	return col.Sprint(s)
}

func (c *Console) println(s string) {
	_, _ = fmt.Fprintln(c.w, s)
}

// Success prints msg in green.
func (c *Console) Success(msg string) {
	c.println(c.paint(successColor, msg))
}

// Warn prints msg in yellow.
func (c *Console) Warn(msg string) {
	c.println(c.paint(warnColor, msg))
}

// Failure prints msg in red.
func (c *Console) Failure(msg string) {
	c.println(c.paint(errorColor, msg))
}

// Error prints err behind a highlighted tag.
func (c *Console) Error(err error) {
	tag := "error"
	if c.color {
		tag = errorStyle.Sprint(" " + tag + " ")
	}
	c.println(tag + " " + c.paint(errorColor, err.Error()))
}

// Progress prints one line for a finished invocation.
func (c *Console) Progress(inv api.Invocation) {
	mark := c.paint(successColor, "ok  ")
	switch {
	case inv.TimedOut:
		mark = c.paint(errorColor, "time")
	case !inv.Succeeded():
		mark = c.paint(errorColor, "fail")
	}
	c.println(fmt.Sprintf("%s %s %s %s", mark, inv.File, c.paint(dimColor, "->"), inv.OutputDir))
}

// Outcome prints the compiler output of every failed invocation followed
// by the verdict line.
func (c *Console) Outcome(res api.Result) {
	for _, inv := range res.Failed() {
		c.println("")
		c.Failure(fmt.Sprintf("%s (exit %d)", inv.File, inv.ExitCode))
		if inv.TimedOut {
			c.Warn("  timed out")
		}
		c.println(c.paint(dimColor, "  $ "+inv.Command))
		for _, line := range strings.Split(strings.TrimRight(string(inv.Output), "\n"), "\n") {
			if line != "" {
				c.println("  " + line)
			}
		}
	}

	switch res.Outcome {
	case api.NoInputFound:
		c.Failure(MsgNoInput)
	case api.AllSucceeded:
		msg := fmt.Sprintf("%s (%d files in %s)", MsgSucceeded, len(res.Invocations), res.Elapsed.Round(time.Millisecond))
		if res.Formatted > 0 {
			msg += fmt.Sprintf(", %d formatted", res.Formatted)
		}
		c.Success(msg)
	case api.SomeFailed:
		c.Failure(fmt.Sprintf("%s (%d of %d failed)", MsgFailed, len(res.Failed()), len(res.Invocations)))
	}
}

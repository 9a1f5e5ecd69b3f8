package api

import "time"

// Outcome is the terminal verdict of a build run.
type Outcome int

const (
	NoInputFound Outcome = iota
	AllSucceeded
	SomeFailed
)

func (o Outcome) String() string {
	switch o {
	case NoInputFound:
		return "no_input"
	case AllSucceeded:
		return "succeeded"
	case SomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Invocation records one compiler run against one schema file.
type Invocation struct {
	Seq       int
	File      string
	OutputDir string
	Args      []string
	Command   string
	ExitCode  int
	TimedOut  bool
	Duration  time.Duration
	// Output is the combined stdout/stderr of the compiler.
	Output []byte
}

// Succeeded reports whether the compiler exited cleanly.
func (i Invocation) Succeeded() bool {
	return i.ExitCode == 0 && !i.TimedOut
}

// Result is the aggregate of a build run handed to the presentation layer.
type Result struct {
	Root        string
	Outcome     Outcome
	Invocations []Invocation // ordered by Seq
	Started     time.Time
	Elapsed     time.Duration
	// Formatted counts Go files rewritten by the gofumpt pass.
	Formatted int
}

// Failed returns the invocations that did not succeed, in Seq order.
func (r Result) Failed() []Invocation {
	var out []Invocation
	for _, inv := range r.Invocations {
		if !inv.Succeeded() {
			out = append(out, inv)
		}
	}
	return out
}

// Err converts a non-successful outcome into an *Error carrying the
// matching exit code. It returns nil for AllSucceeded.
func (r Result) Err() error {
	switch r.Outcome {
	case NoInputFound:
		return Errorf(KindNoInput, "no *%s files could be found", SchemaSuffix)
	case SomeFailed:
		return Errorf(KindInvocation, "%d of %d *%s files failed to compile", len(r.Failed()), len(r.Invocations), SchemaSuffix)
	default:
		return nil
	}
}

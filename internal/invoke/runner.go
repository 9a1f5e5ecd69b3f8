package invoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// waitDelay bounds how long Wait blocks on pipes held open by grandchildren
// after the compiler itself was killed.
const waitDelay = 2 * time.Second

// Status is the outcome of one compiler run.
type Status struct {
	ExitCode int
	TimedOut bool
	Output   []byte // combined stdout and stderr
	Duration time.Duration
}

// LaunchError means the compiler process could not be started at all.
// Unlike a non-zero exit it aborts the whole build.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Runner executes Specs.
type Runner struct {
	// Timeout kills an invocation that runs longer. Zero disables it.
	Timeout time.Duration
	// Dir is the working directory of the compiler; empty inherits ours.
	Dir string
}

// Run starts spec, waits for it and reports its status. A non-zero exit or a
// timeout is reported through Status, not as an error. Errors are either a
// *LaunchError or the cancellation of ctx.
func (r *Runner) Run(ctx context.Context, spec Spec) (Status, error) {
	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(runCtx, spec.Path, spec.Args...)
	cmd.Dir = r.Dir
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = waitDelay

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return Status{}, ctx.Err()
		}
		return Status{}, &LaunchError{Path: spec.Path, Err: err}
	}
	err := cmd.Wait()

	st := Status{
		ExitCode: -1,
		Output:   out.Bytes(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		st.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err == nil {
		return st, nil
	}

	if ctx.Err() != nil {
		return st, ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		st.TimedOut = true
		return st, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		// I/O failure after a successful start; count it against the file.
		st.Output = append(st.Output, []byte("\n"+err.Error())...)
		if st.ExitCode == 0 {
			st.ExitCode = -1
		}
	}
	return st, nil
}

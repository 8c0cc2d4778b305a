// Package process runs external programs for probing and installation.
//
// Programs are started directly, never through a shell, and on Windows
// without a console window. Waits are bounded by the caller's context and
// an optional runner timeout.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Wait blocks on output pipes after the process
// has been killed (grandchildren may keep them open).
const waitDelay = 5 * time.Second

// Result is the outcome of a process that was started.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Duration time.Duration
}

// Combined returns stdout followed by stderr.
func (r Result) Combined() string {
	switch {
	case r.Stderr == "":
		return r.Stdout
	case r.Stdout == "":
		return r.Stderr
	default:
		return strings.TrimRight(r.Stdout, "\n") + "\n" + r.Stderr
	}
}

// Runner starts external programs.
type Runner interface {
	// Run executes name with args and waits for it. The error is non-nil
	// only when the program could not be started; a non-zero exit or a
	// timeout is reported through Result.
	Run(ctx context.Context, name string, args ...string) (Result, error)

	// Launch starts name visibly and returns without waiting.
	Launch(name string, args ...string) error
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct {
	// Timeout bounds each Run. Zero means only the context bounds it.
	Timeout time.Duration
}

// NewRunner returns an ExecRunner with the given per-run timeout.
func NewRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay
	hideWindow(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctx.Err() != nil && cmd.ProcessState != nil {
		res.TimedOut = true
		res.ExitCode = cmd.ProcessState.ExitCode()
		return res, nil
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case errors.Is(err, exec.ErrWaitDelay):
		// exited, but descendants held the output pipes open
		res.ExitCode = cmd.ProcessState.ExitCode()
	default:
		if ctx.Err() != nil {
			return res, fmt.Errorf("failed to run %s: %w", name, ctx.Err())
		}
		return res, fmt.Errorf("failed to run %s: %w", name, err)
	}
	return res, nil
}

// Launch implements Runner.
func (r *ExecRunner) Launch(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch %s: %w", name, err)
	}
	return cmd.Process.Release()
}

// IsNotFound reports whether err means the program does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, exec.ErrDot) || isNotExist(err)
}

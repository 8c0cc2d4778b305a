package installer

import (
	"errors"
	"fmt"
)

// Exit code sentinels for outcomes that carry no real process exit code.
const (
	// ExitCodeNotRun marks a failure before any installer process ran:
	// missing privileges, download or validation failure, unexpected error.
	ExitCodeNotRun = -1

	// ExitCodeTimedOut marks an installer that was killed after the
	// install timeout.
	ExitCodeTimedOut = -2
)

var (
	// ErrElevationRequired is returned when an install needs administrator
	// privileges the process does not have.
	ErrElevationRequired = errors.New("administrator privileges are required")

	// ErrNotDetected means the installer exited successfully but the tool
	// could not be found afterwards.
	ErrNotDetected = errors.New("installer ran but the tool was not detected")

	// ErrNotValidated is returned for an artifact that did not pass fetch
	// validation.
	ErrNotValidated = errors.New("artifact has not been validated")
)

// ProcessError is a failed installer run.
type ProcessError struct {
	Program  string
	ExitCode int
	Output   string
	TimedOut bool
}

func (e *ProcessError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("%s did not finish in time and was stopped", e.Program)
	}
	return fmt.Sprintf("%s failed with exit code %d", e.Program, e.ExitCode)
}

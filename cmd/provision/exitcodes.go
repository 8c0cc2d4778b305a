package main

import "os"

// Exit codes for different error types.
// These enable scripts to distinguish between failure modes.
const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0

	// ExitGeneral indicates a general error
	ExitGeneral = 1

	// ExitUsage indicates invalid arguments or usage error
	ExitUsage = 2

	// ExitNetwork indicates every failed install failed to download
	ExitNetwork = 5

	// ExitInstallFailed indicates at least one installation failed
	ExitInstallFailed = 6

	// ExitDependencyMissing indicates check found missing dependencies
	ExitDependencyMissing = 8

	// ExitNotElevated indicates installs were refused for lack of privileges
	ExitNotElevated = 9
)

// exitWithCode exits with the specified exit code
func exitWithCode(code int) {
	os.Exit(code)
}

//go:build windows

package elevation

import "golang.org/x/sys/windows"

// isElevated reports whether the process token is elevated (UAC "run as
// administrator").
func isElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// Hint describes how to obtain elevation on this platform.
const Hint = "Run provision from an administrator command prompt"

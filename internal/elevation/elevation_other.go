//go:build !windows

package elevation

import "golang.org/x/sys/unix"

func isElevated() bool {
	return unix.Geteuid() == 0
}

// Hint describes how to obtain elevation on this platform.
const Hint = "Run provision as root (for example with sudo)"

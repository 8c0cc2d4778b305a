//go:build !windows

package hostinfo

import (
	"golang.org/x/sys/unix"
)

func fillPlatform(info *Info) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		info.Kernel = unix.ByteSliceToString(uts.Release[:])
		info.Name = unix.ByteSliceToString(uts.Sysname[:])
	}
	if name, err := parseOSRelease("/etc/os-release"); err == nil && name != "" {
		info.Name = name
	}
}

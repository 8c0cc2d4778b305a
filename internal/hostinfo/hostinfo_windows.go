//go:build windows

package hostinfo

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// fillPlatform uses RtlGetVersion, which is not subject to the manifest
// based version lie of GetVersionEx.
func fillPlatform(info *Info) {
	v := windows.RtlGetVersion()
	info.Major = v.MajorVersion
	info.Minor = v.MinorVersion
	info.Build = v.BuildNumber
	info.Name = fmt.Sprintf("Windows %d.%d.%d", v.MajorVersion, v.MinorVersion, v.BuildNumber)
}

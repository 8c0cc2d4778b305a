//go:build !windows

package sysenv

// PathVar is the name of the search path variable.
const PathVar = "PATH"

// HostRules are the list rules of the running platform.
var HostRules = UnixRules

// NewMachineStore returns the file-backed store at envFile.
func NewMachineStore(envFile string) Store {
	return NewFileStore(envFile)
}

//go:build windows

package sysenv

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

// PathVar is the name of the search path variable.
const PathVar = "Path"

// HostRules are the list rules of the running platform.
var HostRules = WindowsRules

const environmentKey = `SYSTEM\CurrentControlSet\Control\Session Manager\Environment`

// RegistryStore reads and writes HKLM system environment variables.
// Writes require elevation.
type RegistryStore struct{}

// NewMachineStore returns the registry-backed store. envFile is unused on
// Windows.
func NewMachineStore(envFile string) Store {
	return RegistryStore{}
}

// Get implements Store.
func (RegistryStore) Get(name string) (string, bool, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, environmentKey, registry.QUERY_VALUE)
	if err != nil {
		return "", false, fmt.Errorf("failed to open environment key: %w", err)
	}
	defer k.Close()

	val, _, err := k.GetStringValue(name)
	if errors.Is(err, registry.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return val, true, nil
}

// Set implements Store. Values containing %VAR% references, and the search
// path, are stored as REG_EXPAND_SZ.
func (RegistryStore) Set(name, value string) error {
	if err := validateName(name); err != nil {
		return err
	}
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, environmentKey, registry.QUERY_VALUE|registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to open environment key for writing: %w", err)
	}
	defer k.Close()

	expand := strings.Contains(value, "%")
	if _, valType, err := k.GetValue(name, nil); err == nil && valType == registry.EXPAND_SZ {
		expand = true
	}
	if expand {
		err = k.SetExpandStringValue(name, value)
	} else {
		err = k.SetStringValue(name, value)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	broadcastEnvironmentChange()
	return nil
}

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSendMessageTimeoutW = user32.NewProc("SendMessageTimeoutW")
)

const (
	hwndBroadcast   = 0xFFFF
	wmSettingChange = 0x001A
	smtoAbortIfHung = 0x0002
)

// broadcastEnvironmentChange tells running shells (Explorer) to reload the
// environment. Failures are ignored; a new session picks the values up.
func broadcastEnvironmentChange() {
	param, err := windows.UTF16PtrFromString("Environment")
	if err != nil {
		return
	}
	var result uintptr
	_, _, _ = procSendMessageTimeoutW.Call(
		hwndBroadcast,
		wmSettingChange,
		0,
		uintptr(unsafe.Pointer(param)),
		smtoAbortIfHung,
		5000,
		uintptr(unsafe.Pointer(&result)),
	)
}

// Package hostinfo describes the host for compatibility checks and
// diagnostics, and opens install pages in the user's browser.
package hostinfo

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/tsukumogami/provision/internal/process"
)

// MinWindowsMajor is the oldest supported Windows major version.
const MinWindowsMajor = 10

// Info is a snapshot of the host.
type Info struct {
	OS       string `json:"os"`     // runtime.GOOS
	Arch     string `json:"arch"`   // runtime.GOARCH
	Name     string `json:"name"`   // e.g. "Windows 10.0.19045", "Ubuntu 22.04.4 LTS"
	Major    uint32 `json:"major"`  // OS major version (Windows only)
	Minor    uint32 `json:"minor"`  // OS minor version (Windows only)
	Build    uint32 `json:"build"`  // OS build number (Windows only)
	Kernel   string `json:"kernel"` // kernel release (non-Windows)
	Hostname string `json:"hostname"`
	CPUs     int    `json:"cpus"`
	MemoryMB uint64 `json:"memory_mb"` // memory obtained by this process from the OS
}

// Collect gathers host information. Fields that cannot be determined are
// left empty.
func Collect() Info {
	info := Info{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
		CPUs: runtime.NumCPU(),
	}
	info.Hostname, _ = os.Hostname()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	info.MemoryMB = ms.Sys / (1024 * 1024)

	fillPlatform(&info)
	return info
}

// Compatible reports whether installs are supported on this host:
// Windows 10 or later.
func (i Info) Compatible() bool {
	return i.OS == "windows" && i.Major >= MinWindowsMajor
}

// String renders the multi-line summary shown by `provision doctor`.
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "OS: %s (%s/%s)\n", i.Name, i.OS, i.Arch)
	if i.Kernel != "" {
		fmt.Fprintf(&b, "Kernel: %s\n", i.Kernel)
	}
	fmt.Fprintf(&b, "Machine: %s\n", i.Hostname)
	fmt.Fprintf(&b, "Processors: %d\n", i.CPUs)
	fmt.Fprintf(&b, "Memory: %d MB", i.MemoryMB)
	return b.String()
}

// OpenURL opens url with the platform's default handler, without waiting.
func OpenURL(r process.Runner, url string) error {
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return fmt.Errorf("refusing to open non-web URL: %s", url)
	}
	name, args := openCommand(runtime.GOOS, url)
	if err := r.Launch(name, args...); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

func openCommand(goos, url string) (string, []string) {
	switch goos {
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		return "open", []string{url}
	default:
		return "xdg-open", []string{url}
	}
}

// parseOSRelease returns PRETTY_NAME (or NAME VERSION_ID) from an
// os-release file.
func parseOSRelease(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fields := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		fields[key] = strings.Trim(value, `"'`)
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}

	if pretty := fields["PRETTY_NAME"]; pretty != "" {
		return pretty, nil
	}
	return strings.TrimSpace(fields["NAME"] + " " + fields["VERSION_ID"]), nil
}

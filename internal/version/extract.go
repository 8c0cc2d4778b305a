// Package version turns tool version-command output into normalized version
// strings and compares them.
package version

import (
	"regexp"
	"strings"
)

// toolPattern is tried when marker occurs in the output.
type toolPattern struct {
	marker string
	re     *regexp.Regexp
}

// Tool-specific patterns. Only the first pattern whose marker is present is
// tried; if it does not match, extraction falls through to the generic list.
var toolPatterns = []toolPattern{
	{"Nmap version", regexp.MustCompile(`(?i)Nmap version (\d+\.\d+)`)},
	{"node", regexp.MustCompile(`(?i)v(\d+\.\d+\.\d+)`)},
	{"git version", regexp.MustCompile(`(?i)git version (\d+\.\d+\.\d+)`)},
	{"scrcpy", regexp.MustCompile(`(?i)scrcpy (\d+\.\d+\.\d+)`)},
	{"Android Debug Bridge", regexp.MustCompile(`(?i)Android Debug Bridge version (\d+\.\d+\.\d+)`)},
}

// Generic fallbacks, most specific first.
var genericPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)version\s+(\d+\.\d+\.\d+)`),
	regexp.MustCompile(`(?i)v(\d+\.\d+\.\d+)`),
	regexp.MustCompile(`(\d+\.\d+\.\d+)`),
	regexp.MustCompile(`(\d+\.\d+)`),
	regexp.MustCompile(`(\d+)`),
}

// Extract returns a best-effort version string from raw command output.
//
// It never fails: when no pattern matches, the trimmed input is returned.
// Extract is idempotent on its own output.
//
//	Extract("git version 2.43.0.windows.1")          // "2.43.0"
//	Extract("Nmap version 7.94 ( https://nmap.org )") // "7.94"
//	Extract("v20.11.0")                              // "20.11.0"
func Extract(output string) string {
	for _, tp := range toolPatterns {
		if !strings.Contains(output, tp.marker) {
			continue
		}
		if m := tp.re.FindStringSubmatch(output); m != nil {
			return m[1]
		}
		break
	}

	for _, re := range genericPatterns {
		if m := re.FindStringSubmatch(output); m != nil {
			return m[1]
		}
	}

	return strings.TrimSpace(output)
}

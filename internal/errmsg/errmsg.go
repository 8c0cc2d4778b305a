// Package errmsg provides enhanced error message formatting with actionable suggestions.
package errmsg

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/tsukumogami/provision/internal/catalog"
	"github.com/tsukumogami/provision/internal/elevation"
	"github.com/tsukumogami/provision/internal/fetch"
	"github.com/tsukumogami/provision/internal/installer"
	"github.com/tsukumogami/provision/internal/release"
)

// ErrorContext provides additional context for error formatting
type ErrorContext struct {
	DependencyName string // The dependency being operated on (for suggestions)
	InstallPageURL string // Vendor page for manual installation
}

// suggester is implemented by structured errors that carry their own hint.
type suggester interface {
	Suggestion() string
}

// Format returns a formatted error message with possible causes and suggestions.
// The context parameter is optional - pass nil for generic formatting.
func Format(err error, ctx *ErrorContext) string {
	if err == nil {
		return ""
	}

	errMsg := err.Error()

	if errors.Is(err, installer.ErrElevationRequired) {
		return formatElevationError(errMsg)
	}

	var procErr *installer.ProcessError
	if errors.As(err, &procErr) {
		return formatProcessError(errMsg, procErr, ctx)
	}

	if errors.Is(err, installer.ErrNotDetected) {
		return formatNotDetectedError(errMsg, ctx)
	}

	var fetchErr *fetch.Error
	if errors.As(err, &fetchErr) {
		return formatFetchError(errMsg, fetchErr, ctx)
	}

	var releaseErr *release.Error
	if errors.As(err, &releaseErr) {
		return withSuggestions(errMsg, nil, []string{releaseErr.Suggestion()})
	}

	// Check for rate limit errors (string matching for unstructured errors)
	if isRateLimitError(errMsg) {
		return formatRateLimitError(errMsg)
	}

	// Check for network errors
	var netErr net.Error
	if errors.As(err, &netErr) {
		return formatNetworkError(netErr)
	}

	if isNetworkError(errMsg) {
		return withSuggestions(errMsg,
			[]string{"Network connectivity issue", "DNS resolution failure", "Service temporarily unavailable"},
			[]string{"Check your internet connection", "Try again in a few minutes"})
	}

	if isPermissionError(errMsg) {
		return formatPermissionError(errMsg)
	}

	var s suggester
	if errors.As(err, &s) && s.Suggestion() != "" {
		return withSuggestions(errMsg, nil, []string{s.Suggestion()})
	}

	// Return original error for unrecognized types
	return errMsg
}

// FormatOutcome renders a failed install outcome for the operator.
// Successful outcomes render as "".
func FormatOutcome(o installer.Outcome, ctx *ErrorContext) string {
	if o.Success {
		return ""
	}
	if o.Err != nil {
		return Format(o.Err, ctx)
	}
	return o.ErrorMessage
}

func withSuggestions(errMsg string, causes, suggestions []string) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	if len(causes) > 0 {
		sb.WriteString("\nPossible causes:\n")
		for _, c := range causes {
			sb.WriteString("  - " + c + "\n")
		}
	}

	var kept []string
	for _, s := range suggestions {
		if s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) > 0 {
		sb.WriteString("\nSuggestions:\n")
		for _, s := range kept {
			sb.WriteString("  - " + s + "\n")
		}
	}
	return sb.String()
}

func manualInstallHint(ctx *ErrorContext) string {
	if ctx != nil && ctx.InstallPageURL != "" {
		return fmt.Sprintf("Install it manually from %s", ctx.InstallPageURL)
	}
	if ctx != nil && ctx.DependencyName != "" {
		slug := catalog.Descriptor{Name: ctx.DependencyName}.Slug()
		return fmt.Sprintf("Run 'provision open %s' to install it manually", slug)
	}
	return "Install the tool manually from its vendor page"
}

func formatElevationError(errMsg string) string {
	return withSuggestions(errMsg,
		[]string{"provision was not started with administrator privileges"},
		[]string{elevation.Hint, "Or install the listed tools manually with 'provision open <tool>'"})
}

func formatFetchError(errMsg string, err *fetch.Error, ctx *ErrorContext) string {
	var causes []string
	switch err.Kind {
	case fetch.ErrKindNetwork:
		causes = []string{"Network connectivity issue", "Firewall or proxy blocking the connection"}
	case fetch.ErrKindNotFound:
		causes = []string{"The vendor moved or renamed the download"}
	case fetch.ErrKindValidation:
		causes = []string{"The server returned an HTML error page", "The transfer was truncated"}
	case fetch.ErrKindChecksum, fetch.ErrKindSignature:
		causes = []string{"The vendor republished the file", "The download was tampered with"}
	}

	suggestions := []string{err.Suggestion()}
	switch err.Kind {
	case fetch.ErrKindNotFound, fetch.ErrKindEmpty, fetch.ErrKindValidation:
		suggestions = append(suggestions, manualInstallHint(ctx))
	}
	return withSuggestions(errMsg, causes, suggestions)
}

// Windows Installer exit codes with a known meaning.
var msiExitCodes = map[int]string{
	1602: "The installation was cancelled",
	1603: "The installer hit a fatal error",
	1618: "Another installation is already in progress",
	1638: "Another version of the product is already installed",
	1641: "The installer started a reboot",
	3010: "A reboot is required to finish the installation",
}

func formatProcessError(errMsg string, err *installer.ProcessError, ctx *ErrorContext) string {
	if err.TimedOut {
		return withSuggestions(errMsg,
			[]string{"The installer is waiting for input in a hidden window", "The installer is very slow on this machine"},
			[]string{"Raise PROVISION_INSTALL_TIMEOUT and retry", manualInstallHint(ctx)})
	}

	var causes []string
	if meaning, ok := msiExitCodes[err.ExitCode]; ok {
		causes = append(causes, meaning)
	}
	suggestions := []string{"Check the installer log output with --verbose"}
	switch err.ExitCode {
	case 1618:
		suggestions = append([]string{"Wait for the other installation to finish, then retry"}, suggestions...)
	case 1641, 3010:
		suggestions = append([]string{"Restart the computer, then run 'provision check'"}, suggestions...)
	}
	suggestions = append(suggestions, manualInstallHint(ctx))
	return withSuggestions(errMsg, causes, suggestions)
}

func formatNotDetectedError(errMsg string, ctx *ErrorContext) string {
	return withSuggestions(errMsg,
		[]string{"The installer needs a restart to update PATH", "The tool was installed to an unexpected location"},
		[]string{"Open a new terminal and run 'provision check'", manualInstallHint(ctx)})
}

func formatRateLimitError(errMsg string) string {
	return withSuggestions(errMsg,
		[]string{"Too many requests to the API", "Unauthenticated requests have lower limits"},
		[]string{"Set GITHUB_TOKEN environment variable to increase rate limit", "Wait a few minutes before retrying"})
}

func formatNetworkError(err net.Error) string {
	var causes []string
	if err.Timeout() {
		causes = append(causes, "Request timed out", "Slow or unstable network connection")
	} else {
		causes = append(causes, "Network connectivity issue", "DNS resolution failure")
	}
	causes = append(causes, "Firewall or proxy blocking the connection")

	suggestions := []string{"Check your internet connection", "Try again in a few minutes"}
	if err.Timeout() {
		suggestions = append(suggestions, "Check if you're behind a slow proxy")
	}
	return withSuggestions(err.Error(), causes, suggestions)
}

func formatPermissionError(errMsg string) string {
	return withSuggestions(errMsg,
		[]string{"Insufficient permissions on the program files or temp directory", "File locked by a running program"},
		[]string{elevation.Hint, "Close programs that use the tool and retry"})
}

// isRateLimitError checks if the error message indicates a rate limit
func isRateLimitError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "rate-limit") ||
		strings.Contains(lower, "too many requests")
}

// isNetworkError checks if the error message indicates a network issue
func isNetworkError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "network is unreachable") ||
		strings.Contains(lower, "dial tcp") ||
		strings.Contains(lower, "i/o timeout")
}

// isPermissionError checks if the error message indicates a permission issue
func isPermissionError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "access denied") ||
		strings.Contains(lower, "access is denied") ||
		strings.Contains(lower, "operation not permitted")
}

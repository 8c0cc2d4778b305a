package fetch

import (
	"fmt"

	"github.com/tsukumogami/provision/internal/log"
)

// ErrorKind classifies a fetch failure.
type ErrorKind int

const (
	// ErrKindNetwork is a transport failure: DNS, connect, TLS, timeout.
	ErrKindNetwork ErrorKind = iota + 1
	// ErrKindNotFound is an HTTP 404, usually a moved or renamed asset.
	ErrKindNotFound
	// ErrKindHTTP is any other non-success HTTP status.
	ErrKindHTTP
	// ErrKindEmpty means the server returned a zero-byte body.
	ErrKindEmpty
	// ErrKindValidation is a disallowed extension or a file signature mismatch.
	ErrKindValidation
	// ErrKindChecksum is a SHA-256 mismatch against the descriptor.
	ErrKindChecksum
	// ErrKindSignature is a failed detached PGP signature check.
	ErrKindSignature
	// ErrKindRelease means no download URL could be resolved from GitHub.
	ErrKindRelease
)

var kindNames = map[ErrorKind]string{
	ErrKindNetwork:    "network error",
	ErrKindNotFound:   "not found",
	ErrKindHTTP:       "HTTP error",
	ErrKindEmpty:      "empty download",
	ErrKindValidation: "validation failed",
	ErrKindChecksum:   "checksum mismatch",
	ErrKindSignature:  "signature verification failed",
	ErrKindRelease:    "release lookup failed",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown error"
}

// Error is returned by Fetch for every failure.
type Error struct {
	Kind       ErrorKind
	Dependency string
	URL        string
	StatusCode int // set for ErrKindNotFound and ErrKindHTTP
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("download %s: %s", e.Dependency, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.URL != "" {
		msg += " from " + log.SanitizeURL(e.URL)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Suggestion returns an actionable hint for the operator.
func (e *Error) Suggestion() string {
	switch e.Kind {
	case ErrKindNetwork:
		return "Check your internet connection and proxy settings (HTTPS_PROXY), then retry"
	case ErrKindNotFound:
		return "The download has probably moved; install it manually from the install page or update the catalog URL"
	case ErrKindHTTP:
		return "The download server returned an error; try again later"
	case ErrKindEmpty:
		return "The server sent an empty file; retry, or download it manually from the install page"
	case ErrKindValidation:
		return "The downloaded file is not a valid installer; it may be an error page or a corrupt transfer"
	case ErrKindChecksum:
		return "The file does not match the pinned checksum; do not install it, and update the catalog if the vendor republished it"
	case ErrKindSignature:
		return "The file signature could not be verified; do not install it"
	case ErrKindRelease:
		return "Set a GitHub token (see `provision config get github_token_env`) or disable resolve_latest"
	default:
		return ""
	}
}

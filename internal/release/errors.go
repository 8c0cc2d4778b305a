package release

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrorType classifies release lookup errors for better handling
type ErrorType int

const (
	// ErrTypeNetwork indicates a generic network-related error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeNotFound indicates the repository or release does not exist
	ErrTypeNotFound
	// ErrTypeNoMatchingAsset indicates the release has no asset matching the pattern
	ErrTypeNoMatchingAsset
	// ErrTypeRateLimit indicates the GitHub API rate limit was exceeded
	ErrTypeRateLimit
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeDNS indicates DNS resolution failure
	ErrTypeDNS
	// ErrTypeConnection indicates connection refused or reset
	ErrTypeConnection
	// ErrTypeTLS indicates TLS/SSL certificate errors
	ErrTypeTLS
)

// Error provides structured information for release lookup failures.
type Error struct {
	Type    ErrorType
	Repo    string // owner/name
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("release lookup %s: %s: %v", e.Repo, e.Message, e.Err)
	}
	return fmt.Sprintf("release lookup %s: %s", e.Repo, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Suggestion returns an actionable hint for the user, or "".
func (e *Error) Suggestion() string {
	switch e.Type {
	case ErrTypeRateLimit:
		return "Set a GitHub token (see `provision config get github_token_env`) or disable resolve_latest"
	case ErrTypeTimeout, ErrTypeNetwork:
		return "Check your internet connection and try again"
	case ErrTypeDNS:
		return "Check your DNS settings and internet connection"
	case ErrTypeConnection:
		return "GitHub may be down or blocked. Check if you can access it in a browser"
	case ErrTypeTLS:
		return "There may be a certificate issue. Check your system time is correct"
	case ErrTypeNotFound, ErrTypeNoMatchingAsset:
		return "Disable resolve_latest to use the pinned download URL"
	default:
		return ""
	}
}

// ClassifyError examines an error and returns the most specific ErrorType.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrTypeNetwork
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTypeTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return ErrTypeTimeout
		}
		return ErrTypeDNS
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return ErrTypeTLS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return ErrTypeTimeout
		}
		return ErrTypeConnection
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return ErrTypeTimeout
		}
		msg := urlErr.Err.Error()
		if strings.Contains(msg, "certificate") || strings.Contains(msg, "x509") {
			return ErrTypeTLS
		}
		return ClassifyError(urlErr.Err)
	}

	return ErrTypeNetwork
}

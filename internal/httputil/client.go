// Package httputil builds the hardened HTTP clients used to download
// installer artifacts and query release metadata.
package httputil

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpproxy"

	"github.com/tsukumogami/provision/internal/config"
)

// ClientOptions configures the secure HTTP client.
type ClientOptions struct {
	// Timeout bounds the whole request including the body. Default: 30s.
	Timeout time.Duration

	// DialTimeout is the TCP dial timeout. Default: 30s.
	DialTimeout time.Duration

	// TLSHandshakeTimeout is the TLS handshake timeout. Default: 10s.
	TLSHandshakeTimeout time.Duration

	// ResponseHeaderTimeout is the time to wait for response headers. Default: 10s.
	ResponseHeaderTimeout time.Duration

	// MaxRedirects is the maximum redirect depth. Default: 10.
	MaxRedirects int

	// EnableCompression enables Accept-Encoding. Default: false, which keeps
	// decompression bombs out of the download path.
	EnableCompression bool

	// Proxy selects a proxy per request. Default: HTTPS_PROXY/HTTP_PROXY/NO_PROXY.
	Proxy func(*http.Request) (*url.URL, error)
}

// DefaultOptions returns the default client options.
func DefaultOptions() ClientOptions {
	return ClientOptions{
		Timeout:               30 * time.Second,
		DialTimeout:           30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		MaxRedirects:          10,
	}
}

// ProxyFromEnvironment returns a proxy selector that reads the proxy
// variables once, when called.
func ProxyFromEnvironment() func(*http.Request) (*url.URL, error) {
	proxyFunc := httpproxy.FromEnvironment().ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return proxyFunc(req.URL)
	}
}

// NewSecureClient creates an HTTP client with SSRF protection on redirects.
//
// Redirects must stay on HTTPS, are limited in depth, and may not land on
// private, loopback, link-local, multicast or unspecified addresses (all
// resolved IPs of a redirect host are checked).
func NewSecureClient(opts ClientOptions) *http.Client {
	def := DefaultOptions()
	if opts.Timeout == 0 {
		opts.Timeout = def.Timeout
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = def.DialTimeout
	}
	if opts.TLSHandshakeTimeout == 0 {
		opts.TLSHandshakeTimeout = def.TLSHandshakeTimeout
	}
	if opts.ResponseHeaderTimeout == 0 {
		opts.ResponseHeaderTimeout = def.ResponseHeaderTimeout
	}
	if opts.MaxRedirects == 0 {
		opts.MaxRedirects = def.MaxRedirects
	}
	if opts.Proxy == nil {
		opts.Proxy = ProxyFromEnvironment()
	}

	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			Proxy:              opts.Proxy,
			DisableCompression: !opts.EnableCompression,
			DialContext: (&net.Dialer{
				Timeout:   opts.DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   opts.TLSHandshakeTimeout,
			ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
			ExpectContinueTimeout: 1 * time.Second,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: makeRedirectChecker(opts.MaxRedirects, net.LookupIP),
	}
}

// NewDownloadClient returns the client for installer downloads. The overall
// timeout comes from PROVISION_DOWNLOAD_TIMEOUT.
func NewDownloadClient() *http.Client {
	return NewSecureClient(ClientOptions{
		Timeout:               config.GetDownloadTimeout(),
		ResponseHeaderTimeout: 30 * time.Second,
	})
}

// NewAPIClient returns the client for small metadata requests (release
// lookups, signature and key files).
func NewAPIClient() *http.Client {
	return NewSecureClient(ClientOptions{
		Timeout:     30 * time.Second,
		DialTimeout: 10 * time.Second,
	})
}

// makeRedirectChecker creates a redirect validation function.
func makeRedirectChecker(maxRedirects int, lookup lookupFunc) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if req.URL.Scheme != "https" {
			return fmt.Errorf("redirect to non-HTTPS URL is not allowed: %s", req.URL)
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("too many redirects")
		}
		return validateHost(req.URL.Hostname(), lookup)
	}
}

package httputil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestNewSecureClient_Defaults(t *testing.T) {
	client := NewSecureClient(ClientOptions{})

	if client.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", client.Timeout)
	}
	transport := client.Transport.(*http.Transport)
	if !transport.DisableCompression {
		t.Error("expected compression disabled by default")
	}
	if transport.Proxy == nil {
		t.Error("expected environment proxy selector")
	}
	if transport.ResponseHeaderTimeout != 10*time.Second {
		t.Errorf("ResponseHeaderTimeout = %v", transport.ResponseHeaderTimeout)
	}
}

func TestNewSecureClient_Options(t *testing.T) {
	client := NewSecureClient(ClientOptions{Timeout: 5 * time.Minute, EnableCompression: true})
	if client.Timeout != 5*time.Minute {
		t.Errorf("Timeout = %v, want 5m", client.Timeout)
	}
	if client.Transport.(*http.Transport).DisableCompression {
		t.Error("expected compression enabled when requested")
	}
}

func TestNewDownloadClient_UsesConfiguredTimeout(t *testing.T) {
	t.Setenv("PROVISION_DOWNLOAD_TIMEOUT", "3m")
	if got := NewDownloadClient().Timeout; got != 3*time.Minute {
		t.Errorf("Timeout = %v, want 3m", got)
	}
}

func TestProxyFromEnvironment(t *testing.T) {
	t.Setenv("HTTPS_PROXY", "http://proxy.internal:3128")
	t.Setenv("NO_PROXY", "nodejs.org")

	proxy := ProxyFromEnvironment()

	req := &http.Request{URL: &url.URL{Scheme: "https", Host: "github.com"}}
	got, err := proxy(req)
	if err != nil {
		t.Fatalf("proxy() error = %v", err)
	}
	if got == nil || got.Host != "proxy.internal:3128" {
		t.Errorf("proxy for github.com = %v", got)
	}

	req = &http.Request{URL: &url.URL{Scheme: "https", Host: "nodejs.org"}}
	if got, _ := proxy(req); got != nil {
		t.Errorf("NO_PROXY host should bypass proxy, got %v", got)
	}
}

func redirectingServer(t *testing.T, target string) *httptest.Server {
	t.Helper()
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRedirectChecker_Blocks(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		wantSub string
	}{
		{"downgrade to http", "http://example.com/evil", "non-HTTPS"},
		{"private ip", "https://192.168.1.1/admin", "private"},
		{"loopback", "https://127.0.0.1/evil", "loopback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := redirectingServer(t, tt.target)

			client := NewSecureClient(ClientOptions{})
			client.Transport = server.Client().Transport

			resp, err := client.Get(server.URL)
			if resp != nil {
				resp.Body.Close()
			}
			if err == nil {
				t.Fatal("expected redirect to be refused")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %v, want %q", err, tt.wantSub)
			}
		})
	}
}

func TestRedirectChecker_TooManyRedirects(t *testing.T) {
	checker := makeRedirectChecker(3, nil)
	req, _ := http.NewRequest("GET", "https://8.8.8.8/page4", nil)

	err := checker(req, make([]*http.Request, 3))
	if err == nil || !strings.Contains(err.Error(), "too many redirects") {
		t.Errorf("expected too many redirects, got %v", err)
	}
	if err := checker(req, make([]*http.Request, 2)); err != nil {
		t.Errorf("redirect within limit refused: %v", err)
	}
}

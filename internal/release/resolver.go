// Package release resolves the newest GitHub release asset for descriptors
// that name a repository, as an alternative to their pinned download URL.
package release

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/tsukumogami/provision/internal/buildinfo"
)

// Asset is a downloadable file attached to a release.
type Asset struct {
	Tag  string // release tag, e.g. "v3.3.1"
	Name string // asset file name
	URL  string // browser download URL
	Size int64
}

// Resolver queries the GitHub releases API.
type Resolver struct {
	client        *github.Client
	authenticated bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClient replaces the GitHub client (used by tests to target a mock server).
func WithClient(c *github.Client) Option {
	return func(r *Resolver) {
		r.client = c
	}
}

// New creates a resolver. A non-empty token authenticates requests, which
// raises the API rate limit. base is the transport client for API calls and
// may be nil.
func New(token string, base *http.Client, opts ...Option) *Resolver {
	httpClient := base
	authenticated := false
	if token != "" {
		ctx := context.Background()
		if base != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
		authenticated = true
	}

	client := github.NewClient(httpClient)
	client.UserAgent = buildinfo.UserAgent()

	r := &Resolver{
		client:        client,
		authenticated: authenticated,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Authenticated reports whether requests carry a token.
func (r *Resolver) Authenticated() bool {
	return r.authenticated
}

// LatestAsset returns the first asset of the latest release of repo whose
// name matches pattern (path.Match syntax).
func (r *Resolver) LatestAsset(ctx context.Context, repo, pattern string) (*Asset, error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid repo format: %s (expected owner/repo)", repo)
	}
	owner, name := parts[0], parts[1]

	rel, _, err := r.client.Repositories.GetLatestRelease(ctx, owner, name)
	if err != nil {
		return nil, r.wrapError(repo, err)
	}

	for _, a := range rel.Assets {
		matched, err := path.Match(pattern, a.GetName())
		if err != nil {
			return nil, fmt.Errorf("invalid asset pattern %q: %w", pattern, err)
		}
		if matched {
			return &Asset{
				Tag:  rel.GetTagName(),
				Name: a.GetName(),
				URL:  a.GetBrowserDownloadURL(),
				Size: int64(a.GetSize()),
			}, nil
		}
	}

	return nil, &Error{
		Type:    ErrTypeNoMatchingAsset,
		Repo:    repo,
		Message: fmt.Sprintf("release %s has no asset matching %q", rel.GetTagName(), pattern),
	}
}

func (r *Resolver) wrapError(repo string, err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		msg := fmt.Sprintf("GitHub API rate limit exceeded (resets at %s)", rateErr.Rate.Reset.Format("15:04:05"))
		if !r.authenticated {
			msg += ", requests are unauthenticated"
		}
		return &Error{Type: ErrTypeRateLimit, Repo: repo, Message: msg, Err: err}
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		if respErr.Response.StatusCode == http.StatusNotFound {
			return &Error{Type: ErrTypeNotFound, Repo: repo, Message: "no published release", Err: err}
		}
		return &Error{
			Type:    ErrTypeNetwork,
			Repo:    repo,
			Message: fmt.Sprintf("GitHub API returned %d", respErr.Response.StatusCode),
			Err:     err,
		}
	}

	return &Error{Type: ClassifyError(err), Repo: repo, Message: "failed to get latest release", Err: err}
}

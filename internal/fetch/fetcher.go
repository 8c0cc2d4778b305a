// Package fetch downloads installer artifacts and validates them before
// they are handed to the installer.
//
// Validation is layered: an extension allow-list (archives only for the
// archive strategy), a zero-byte hard failure with a soft warning below
// 1 MiB, leading-byte signatures for .msi and archives, and optionally a
// pinned SHA-256 and a detached PGP signature. A file that fails any check
// is removed before Fetch returns.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tsukumogami/provision/internal/archive"
	"github.com/tsukumogami/provision/internal/buildinfo"
	"github.com/tsukumogami/provision/internal/catalog"
	"github.com/tsukumogami/provision/internal/config"
	"github.com/tsukumogami/provision/internal/httputil"
	"github.com/tsukumogami/provision/internal/log"
	"github.com/tsukumogami/provision/internal/progress"
	"github.com/tsukumogami/provision/internal/release"
)

// SizeWarningThreshold is the body size below which a download is reported
// as suspicious. Genuine installers are larger; the check is advisory.
const SizeWarningThreshold = 1 << 20

// headerSize is how many leading bytes are kept for signature checks.
const headerSize = 8

// ReleaseResolver looks up the newest release asset of a repository.
type ReleaseResolver interface {
	LatestAsset(ctx context.Context, repo, pattern string) (*release.Asset, error)
}

// Fetcher downloads artifacts for descriptors.
type Fetcher struct {
	client      *http.Client
	apiClient   *http.Client
	logger      log.Logger
	tempDir     string
	keys        *KeyCache
	keyDir      string
	resolver    ReleaseResolver
	progressOut io.Writer
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client used for artifact downloads and, unless
// WithAPIClient is given, for signatures and keys.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
		if f.apiClient == nil {
			f.apiClient = c
		}
	}
}

// WithAPIClient sets the client for signature and key downloads.
func WithAPIClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.apiClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// WithTempDir overrides the download directory.
func WithTempDir(dir string) Option {
	return func(f *Fetcher) {
		f.tempDir = dir
	}
}

// WithKeyCacheDir enables the on-disk public key cache.
func WithKeyCacheDir(dir string) Option {
	return func(f *Fetcher) {
		f.keyDir = dir
	}
}

// WithReleaseResolver enables latest-release resolution for descriptors
// that name a GitHub repository.
func WithReleaseResolver(r ReleaseResolver) Option {
	return func(f *Fetcher) {
		f.resolver = r
	}
}

// WithProgressOutput draws a download progress bar on w.
func WithProgressOutput(w io.Writer) Option {
	return func(f *Fetcher) {
		f.progressOut = w
	}
}

// New creates a Fetcher. Without options it uses the hardened download
// client and <os temp>/provision-installers.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		logger:  log.Default(),
		tempDir: filepath.Join(os.TempDir(), config.InstallerTempDirName),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = httputil.NewDownloadClient()
	}
	if f.apiClient == nil {
		f.apiClient = httputil.NewAPIClient()
	}
	f.keys = NewKeyCache(f.keyDir, f.apiClient, f.logger)
	return f
}

// TempDir returns the directory artifacts are written to.
func (f *Fetcher) TempDir() string {
	return f.tempDir
}

// Fetch downloads and validates the artifact for d. The primary URL is
// tried first, then each mirror. When every URL fails the error of the
// first attempt is returned, as it describes the canonical source.
func (f *Fetcher) Fetch(ctx context.Context, d catalog.Descriptor, r progress.Reporter) (*Artifact, error) {
	r = progress.OrDiscard(r)
	logger := f.logger.With("dependency", d.Name)

	urls, err := f.candidateURLs(ctx, d, r, logger)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(f.tempDir, 0755); err != nil {
		return nil, &Error{Kind: ErrKindValidation, Dependency: d.Name, Err: fmt.Errorf("failed to create download directory: %w", err)}
	}

	var firstErr error
	for i, u := range urls {
		if i == 0 {
			r.Report(fmt.Sprintf("Downloading %s...", d.Name))
		} else {
			r.Report(fmt.Sprintf("Retrying %s download from mirror %s...", d.Name, log.SanitizeURL(u)))
		}

		art, err := f.fetchURL(ctx, d, u, r, logger)
		if err == nil {
			r.Report(fmt.Sprintf("Downloaded %s (%s)", d.Name, progress.FormatBytes(art.Size)))
			return art, nil
		}
		logger.Warn("download attempt failed", "url", log.SanitizeURL(u), "error", err)
		if firstErr == nil {
			firstErr = err
		}
		if ctx.Err() != nil {
			break
		}
	}
	return nil, firstErr
}

// candidateURLs returns the URLs to try in order. A resolved release asset
// takes precedence over the pinned URL, which remains as a fallback.
func (f *Fetcher) candidateURLs(ctx context.Context, d catalog.Descriptor, r progress.Reporter, logger log.Logger) ([]string, error) {
	urls := d.URLs()
	if f.resolver == nil || d.Release == nil {
		if len(urls) == 0 {
			return nil, &Error{Kind: ErrKindValidation, Dependency: d.Name, Err: errors.New("no download URL configured")}
		}
		return urls, nil
	}

	r.Report(fmt.Sprintf("Resolving latest %s release...", d.Name))
	asset, err := f.resolver.LatestAsset(ctx, d.Release.Repo, d.Release.AssetPattern)
	switch {
	case err == nil && strings.HasPrefix(asset.URL, "https://"):
		logger.Info("resolved release asset", "tag", asset.Tag, "asset", asset.Name)
		return append([]string{asset.URL}, urls...), nil
	case err == nil:
		err = fmt.Errorf("asset %s has a non-HTTPS download URL", asset.Name)
	}

	if len(urls) == 0 {
		return nil, &Error{Kind: ErrKindRelease, Dependency: d.Name, Err: err}
	}
	logger.Warn("release lookup failed, using pinned download URL", "repo", d.Release.Repo, "error", err)
	return urls, nil
}

// fetchURL downloads one URL into the temp dir and validates the result.
func (f *Fetcher) fetchURL(ctx context.Context, d catalog.Descriptor, rawURL string, r progress.Reporter, logger log.Logger) (*Artifact, error) {
	fail := func(kind ErrorKind, status int, err error) error {
		return &Error{Kind: kind, Dependency: d.Name, URL: rawURL, StatusCode: status, Err: err}
	}

	ext := urlExtension(rawURL)
	kind, format, err := classify(d, ext)
	if err != nil {
		return nil, fail(ErrKindValidation, 0, err)
	}

	dest := filepath.Join(f.tempDir, d.Slug()+"-installer"+ext)
	logger.Debug("downloading artifact", "url", log.SanitizeURL(rawURL), "dest", dest)

	art, err := f.download(ctx, d, rawURL, dest, kind, format, r, logger)
	if err != nil {
		if rmErr := os.Remove(dest); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warn("failed to remove rejected download", "path", dest, "error", rmErr)
		}
		var fe *Error
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, fail(ErrKindNetwork, 0, err)
	}
	return art, nil
}

// download streams the body to dest while hashing it, then runs the
// content checks.
func (f *Fetcher) download(ctx context.Context, d catalog.Descriptor, rawURL, dest string, kind ArtifactKind, format archive.Format, r progress.Reporter, logger log.Logger) (*Artifact, error) {
	fail := func(k ErrorKind, status int, err error) error {
		return &Error{Kind: k, Dependency: d.Name, URL: rawURL, StatusCode: status, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fail(ErrKindValidation, 0, err)
	}
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fail(ErrKindNetwork, 0, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fail(ErrKindNotFound, resp.StatusCode, nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fail(ErrKindHTTP, resp.StatusCode, nil)
	}
	if enc := resp.Header.Get("Content-Encoding"); enc != "" && enc != "identity" {
		return nil, fail(ErrKindValidation, 0, fmt.Errorf("compressed responses are not supported (got %s)", enc))
	}

	out, err := os.Create(dest)
	if err != nil {
		return nil, fail(ErrKindValidation, 0, fmt.Errorf("failed to create %s: %w", dest, err))
	}

	hasher := sha256.New()
	head := &headerWriter{limit: headerSize}
	var w io.Writer = io.MultiWriter(out, hasher, head)
	if f.progressOut != nil {
		bar := progress.NewBar(w, resp.ContentLength, filepath.Base(dest), f.progressOut)
		defer bar.Finish()
		w = bar
	}

	size, copyErr := io.Copy(w, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		return nil, fail(ErrKindNetwork, 0, fmt.Errorf("download interrupted: %w", copyErr))
	}
	if closeErr != nil {
		return nil, fail(ErrKindValidation, 0, fmt.Errorf("failed to write %s: %w", dest, closeErr))
	}

	if size == 0 {
		return nil, fail(ErrKindEmpty, 0, errors.New("server returned zero bytes"))
	}
	if size < SizeWarningThreshold {
		logger.Warn("download is unusually small", "bytes", size)
		r.Report(fmt.Sprintf("Warning: %s download is only %s; the file may be incomplete", d.Name, progress.FormatBytes(size)))
	}

	r.Report(fmt.Sprintf("Validating %s download...", d.Name))
	if err := checkSignature(kind, format, head.buf); err != nil {
		return nil, fail(ErrKindValidation, 0, err)
	}

	digest := hex.EncodeToString(hasher.Sum(nil))
	if d.SHA256 != "" && !strings.EqualFold(d.SHA256, digest) {
		return nil, fail(ErrKindChecksum, 0, fmt.Errorf("expected %s, got %s", strings.ToLower(d.SHA256), digest))
	}
	if d.Signature != nil {
		r.Report(fmt.Sprintf("Verifying %s signature...", d.Name))
		if err := f.verifySignature(ctx, d.Signature, dest); err != nil {
			return nil, fail(ErrKindSignature, 0, err)
		}
	}

	logger.Info("artifact downloaded", "path", dest, "bytes", size, "sha256", digest)
	return &Artifact{
		Path:      dest,
		Size:      size,
		Kind:      kind,
		Format:    format,
		URL:       rawURL,
		SHA256:    digest,
		Validated: true,
	}, nil
}

// headerWriter keeps the first limit bytes written to it.
type headerWriter struct {
	buf   []byte
	limit int
}

func (h *headerWriter) Write(p []byte) (int, error) {
	if room := h.limit - len(h.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		h.buf = append(h.buf, p[:room]...)
	}
	return len(p), nil
}

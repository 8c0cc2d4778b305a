// Package catalog defines the dependencies provision can check and install.
//
// A Descriptor is static data: how to probe a tool, where to download it and
// which install strategy applies. Descriptors are built once at startup from
// the default table, optionally merged with a user catalog file, and shared
// read-only afterwards.
package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/tsukumogami/provision/internal/version"
)

// ErrInvalidDescriptor is wrapped by every Validate failure.
var ErrInvalidDescriptor = errors.New("invalid dependency descriptor")

// Strategy selects how an artifact is installed.
// The zero value is deliberately invalid.
type Strategy int

const (
	StrategyUnknown Strategy = iota
	// StrategyPackageInstaller runs an .msi/.msu/.exe silently and re-probes.
	StrategyPackageInstaller
	// StrategyArchiveExpand extracts an archive into program files and
	// configures machine environment variables.
	StrategyArchiveExpand
	// StrategyManualFallback launches the installer visibly and leaves
	// completion to the operator.
	StrategyManualFallback
)

var strategyNames = map[Strategy]string{
	StrategyPackageInstaller: "package_installer",
	StrategyArchiveExpand:    "archive_expand",
	StrategyManualFallback:   "manual_fallback",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler for catalog files.
func (s Strategy) MarshalText() ([]byte, error) {
	if _, ok := strategyNames[s]; !ok {
		return nil, fmt.Errorf("unknown strategy %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for catalog files.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStrategy converts a strategy name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
	for s, n := range strategyNames {
		if n == normalized {
			return s, nil
		}
	}
	return StrategyUnknown, fmt.Errorf("unknown install strategy %q", name)
}

// ArchiveLayout describes where an archive-distributed tool lands.
type ArchiveLayout struct {
	// InstallSubdir is relative to the program-files root, slash separated.
	InstallSubdir string `toml:"install_subdir"`

	// BinSubdir is the executable directory relative to the install dir.
	// Empty means the install dir itself.
	BinSubdir string `toml:"bin_subdir"`

	// BinFallbackFirstChild uses the first extracted subdirectory when
	// BinSubdir does not exist (release archives with versioned folders).
	BinFallbackFirstChild bool `toml:"bin_fallback_first_child"`

	// HomeVars are machine variables set to the install directory.
	HomeVars []string `toml:"home_vars"`
}

// SignatureSpec pins a detached PGP signature for the artifact.
type SignatureSpec struct {
	URL         string `toml:"url"`
	KeyURL      string `toml:"key_url"`
	Fingerprint string `toml:"fingerprint"`
}

// ReleaseSource lets the fetcher resolve the newest GitHub release asset.
type ReleaseSource struct {
	Repo         string `toml:"repo"`          // owner/name
	AssetPattern string `toml:"asset_pattern"` // path.Match pattern against asset names
}

// Descriptor is the static definition of a checkable and installable tool.
type Descriptor struct {
	Name              string         `toml:"name"`
	ProbeCommand      string         `toml:"probe_command"`
	ProbeArgs         []string       `toml:"probe_args"`
	InstallPageURL    string         `toml:"install_page_url"`
	DownloadURL       string         `toml:"download_url"`
	MirrorURLs        []string       `toml:"mirror_urls"`
	KnownInstallPaths []string       `toml:"known_install_paths"`
	Strategy          Strategy       `toml:"strategy"`
	SilentArgs        []string       `toml:"silent_args"`
	Archive           *ArchiveLayout `toml:"archive"`
	MinVersion        string         `toml:"min_version"`
	SHA256            string         `toml:"sha256"`
	Signature         *SignatureSpec `toml:"signature"`
	Release           *ReleaseSource `toml:"release"`
}

var (
	sha256Regex      = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
	fingerprintRegex = regexp.MustCompile(`^[0-9A-Fa-f]{40}$`)
	slugRegex        = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slug returns a filesystem-safe identifier derived from the name,
// e.g. "Node.js" -> "node-js", "Android SDK Tools" -> "android-sdk-tools".
func (d Descriptor) Slug() string {
	return strings.Trim(slugRegex.ReplaceAllString(strings.ToLower(d.Name), "-"), "-")
}

// URLs returns the primary download URL followed by the mirrors.
func (d Descriptor) URLs() []string {
	urls := make([]string, 0, 1+len(d.MirrorURLs))
	if d.DownloadURL != "" {
		urls = append(urls, d.DownloadURL)
	}
	return append(urls, d.MirrorURLs...)
}

// Validate checks that the descriptor is internally consistent.
func (d Descriptor) Validate() error {
	fail := func(format string, args ...any) error {
		name := d.Name
		if name == "" {
			name = "<unnamed>"
		}
		return fmt.Errorf("%w: %s: %s", ErrInvalidDescriptor, name, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(d.Name) == "" {
		return fail("name is required")
	}
	if err := validateCommandName(d.ProbeCommand); err != nil {
		return fail("%v", err)
	}
	if d.DownloadURL == "" && d.Release == nil {
		return fail("download_url is required")
	}
	for _, u := range d.URLs() {
		if err := validateDownloadURL(u); err != nil {
			return fail("%v", err)
		}
	}

	switch d.Strategy {
	case StrategyArchiveExpand:
		if d.Archive == nil {
			return fail("archive_expand strategy requires an archive layout")
		}
		if err := validateRelative(d.Archive.InstallSubdir, true); err != nil {
			return fail("install_subdir: %v", err)
		}
		if err := validateRelative(d.Archive.BinSubdir, false); err != nil {
			return fail("bin_subdir: %v", err)
		}
		for _, v := range d.Archive.HomeVars {
			if v == "" || strings.ContainsAny(v, "=\x00") {
				return fail("invalid home variable name %q", v)
			}
		}
	case StrategyPackageInstaller, StrategyManualFallback:
		if d.Archive != nil {
			return fail("archive layout is only valid with archive_expand strategy")
		}
	default:
		return fail("unknown install strategy")
	}

	if d.SHA256 != "" && !sha256Regex.MatchString(d.SHA256) {
		return fail("sha256 must be 64 hex characters")
	}
	if d.Signature != nil {
		if d.Signature.URL == "" || d.Signature.KeyURL == "" {
			return fail("signature requires url and key_url")
		}
		if !fingerprintRegex.MatchString(d.Signature.Fingerprint) {
			return fail("signature fingerprint must be 40 hex characters")
		}
	}
	if d.Release != nil {
		if parts := strings.Split(d.Release.Repo, "/"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fail("release repo must be owner/name, got %q", d.Release.Repo)
		}
		if _, err := path.Match(d.Release.AssetPattern, ""); err != nil || d.Release.AssetPattern == "" {
			return fail("invalid release asset pattern %q", d.Release.AssetPattern)
		}
	}
	if d.MinVersion != "" {
		if _, err := version.Parse(d.MinVersion); err != nil {
			return fail("min_version: %v", err)
		}
	}
	return nil
}

// validateCommandName ensures the probe command is a bare executable name.
// Only alphanumerics, hyphen, underscore and dot are allowed.
func validateCommandName(name string) error {
	if name == "" {
		return fmt.Errorf("probe_command is required")
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("probe_command cannot contain path separators: %s", name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("probe_command cannot contain '..': %s", name)
	}
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.') {
			return fmt.Errorf("probe_command contains invalid character '%c': %s", c, name)
		}
	}
	return nil
}

func validateDownloadURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid download url %q: %w", raw, err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("download url must use HTTPS: %s", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("download url has no host: %s", raw)
	}
	return nil
}

func validateRelative(p string, required bool) error {
	if p == "" {
		if required {
			return fmt.Errorf("required")
		}
		return nil
	}
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) || strings.Contains(p, ":") {
		return fmt.Errorf("must be relative: %s", p)
	}
	for _, part := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return fmt.Errorf("cannot contain '..': %s", p)
		}
	}
	return nil
}

// Find returns the descriptor whose name matches case-insensitively.
func Find(descs []Descriptor, name string) (Descriptor, bool) {
	for _, d := range descs {
		if strings.EqualFold(d.Name, name) || d.Slug() == strings.ToLower(name) {
			return d, true
		}
	}
	return Descriptor{}, false
}

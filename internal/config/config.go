package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

const (
	// EnvProvisionHome overrides the default provision home directory
	EnvProvisionHome = "PROVISION_HOME"

	// EnvDownloadTimeout configures the per-request download timeout
	EnvDownloadTimeout = "PROVISION_DOWNLOAD_TIMEOUT"

	// EnvProbeTimeout bounds a single version-command invocation
	EnvProbeTimeout = "PROVISION_PROBE_TIMEOUT"

	// EnvInstallTimeout bounds a single silent installer run
	EnvInstallTimeout = "PROVISION_INSTALL_TIMEOUT"

	// EnvSettleDelay is the wait between a successful installer exit and re-verification
	EnvSettleDelay = "PROVISION_SETTLE_DELAY"

	// EnvBatchPause is the pause between two dependencies of a batch
	EnvBatchPause = "PROVISION_BATCH_PAUSE"

	// EnvProgramFiles overrides the root that archive-distributed tools are copied into
	EnvProgramFiles = "PROVISION_PROGRAM_FILES"

	// DefaultDownloadTimeout is generous because installers run to hundreds of MB
	DefaultDownloadTimeout = 10 * time.Minute

	// DefaultProbeTimeout is the default bound on a version command
	DefaultProbeTimeout = 30 * time.Second

	// DefaultInstallTimeout is the default bound on an installer process
	DefaultInstallTimeout = 30 * time.Minute

	// DefaultSettleDelay lets installers finish writing files before re-probing
	DefaultSettleDelay = 2 * time.Second

	// DefaultBatchPause is the pause between dependencies in a batch
	DefaultBatchPause = 1 * time.Second

	// InstallerTempDirName is the fixed per-run download directory under the OS temp dir.
	// It is not randomized: one wizard instance is expected per host.
	InstallerTempDirName = "provision-installers"
)

// durationBounds describes the accepted range of a duration tunable.
// A zero minimum with allowZero lets tests and CI disable delays.
type durationBounds struct {
	min, max  time.Duration
	allowZero bool
}

// durationFromEnv reads a duration from the named variable, clamping it to
// bounds. Invalid values fall back to def with a warning on stderr.
func durationFromEnv(name string, def time.Duration, b durationBounds) time.Duration {
	envValue := os.Getenv(name)
	if envValue == "" {
		return def
	}

	duration, err := time.ParseDuration(envValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %v\n",
			name, envValue, def)
		return def
	}

	if duration == 0 && b.allowZero {
		return 0
	}
	if duration < b.min {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%v), using minimum %v\n",
			name, duration, b.min)
		return b.min
	}
	if duration > b.max {
		fmt.Fprintf(os.Stderr, "Warning: %s too high (%v), using maximum %v\n",
			name, duration, b.max)
		return b.max
	}

	return duration
}

// GetDownloadTimeout returns the download request timeout from
// PROVISION_DOWNLOAD_TIMEOUT (10s to 2h, default 10m).
func GetDownloadTimeout() time.Duration {
	return durationFromEnv(EnvDownloadTimeout, DefaultDownloadTimeout,
		durationBounds{min: 10 * time.Second, max: 2 * time.Hour})
}

// GetProbeTimeout returns the probe timeout from PROVISION_PROBE_TIMEOUT
// (1s to 5m, default 30s).
func GetProbeTimeout() time.Duration {
	return durationFromEnv(EnvProbeTimeout, DefaultProbeTimeout,
		durationBounds{min: 1 * time.Second, max: 5 * time.Minute})
}

// GetInstallTimeout returns the installer timeout from PROVISION_INSTALL_TIMEOUT
// (1m to 4h, default 30m).
func GetInstallTimeout() time.Duration {
	return durationFromEnv(EnvInstallTimeout, DefaultInstallTimeout,
		durationBounds{min: 1 * time.Minute, max: 4 * time.Hour})
}

// GetSettleDelay returns the post-install settle delay from PROVISION_SETTLE_DELAY.
// Zero disables the delay.
func GetSettleDelay() time.Duration {
	return durationFromEnv(EnvSettleDelay, DefaultSettleDelay,
		durationBounds{min: 100 * time.Millisecond, max: 2 * time.Minute, allowZero: true})
}

// GetBatchPause returns the inter-dependency pause from PROVISION_BATCH_PAUSE.
// Zero disables the pause.
func GetBatchPause() time.Duration {
	return durationFromEnv(EnvBatchPause, DefaultBatchPause,
		durationBounds{min: 100 * time.Millisecond, max: 1 * time.Minute, allowZero: true})
}

// Config holds provision paths.
type Config struct {
	HomeDir          string // $PROVISION_HOME
	ConfigFile       string // $PROVISION_HOME/config.toml
	CatalogFile      string // $PROVISION_HOME/catalog.toml (optional descriptor overrides)
	EnvFile          string // $PROVISION_HOME/env.toml (machine env store on non-Windows hosts)
	KeyCacheDir      string // $PROVISION_HOME/keys (PGP public keys)
	InstallerTempDir string // <os temp>/provision-installers
	ExtractRoot      string // <os temp>, parent of per-tool extraction directories
	ProgramFilesDir  string // install root for archive-distributed tools
}

// DefaultConfig returns the default configuration
func DefaultConfig() (*Config, error) {
	home := os.Getenv(EnvProvisionHome)
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		home = filepath.Join(userHome, ".provision")
	}

	return &Config{
		HomeDir:          home,
		ConfigFile:       filepath.Join(home, "config.toml"),
		CatalogFile:      filepath.Join(home, "catalog.toml"),
		EnvFile:          filepath.Join(home, "env.toml"),
		KeyCacheDir:      filepath.Join(home, "keys"),
		InstallerTempDir: filepath.Join(os.TempDir(), InstallerTempDirName),
		ExtractRoot:      os.TempDir(),
		ProgramFilesDir:  programFilesDir(home),
	}, nil
}

// programFilesDir resolves the system program-files location. On hosts
// without one, archive tools go under the provision home.
func programFilesDir(home string) string {
	if dir := os.Getenv(EnvProgramFiles); dir != "" {
		return dir
	}
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("ProgramFiles"); dir != "" {
			return dir
		}
		return `C:\Program Files`
	}
	return filepath.Join(home, "programs")
}

// EnsureDirectories creates the home and key cache directories.
// Temp directories are created on demand by the fetcher and installer.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.HomeDir, c.KeyCacheDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ExtractDir returns the isolated extraction directory for a tool slug.
func (c *Config) ExtractDir(slug string) string {
	return filepath.Join(c.ExtractRoot, slug+"_extract")
}

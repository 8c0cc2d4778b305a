// Package userconfig provides user configuration management for provision.
// Settings live in $PROVISION_HOME/config.toml and can be changed with
// `provision config set`.
package userconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tsukumogami/provision/internal/config"
)

// Architecture choices for download URL selection.
const (
	ArchAuto = "auto"
	Arch64   = "64"
	Arch32   = "32"
)

// Config represents user-configurable settings.
type Config struct {
	// ResolveLatest asks GitHub for the newest release asset of descriptors
	// that name a repository instead of using the pinned download URL.
	ResolveLatest bool `toml:"resolve_latest"`

	// Arch forces 64-bit or 32-bit download URLs. "auto" follows the host.
	Arch string `toml:"arch"`

	// GitHubTokenEnv names the environment variable holding a GitHub token
	// used when ResolveLatest is enabled.
	GitHubTokenEnv string `toml:"github_token_env"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		ResolveLatest:  false,
		Arch:           ArchAuto,
		GitHubTokenEnv: "GITHUB_TOKEN",
	}
}

// Load reads the config file and returns the configuration.
// A missing file yields defaults; only parse failures are errors.
func Load() (*Config, error) {
	cfg, err := config.DefaultConfig()
	if err != nil {
		return DefaultConfig(), nil
	}
	return loadFromPath(cfg.ConfigFile)
}

func loadFromPath(path string) (*Config, error) {
	userCfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return userCfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if _, err := toml.Decode(string(data), userCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := validateArch(userCfg.Arch); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return userCfg, nil
}

// Save writes the configuration to the config file.
func (c *Config) Save() error {
	cfg, err := config.DefaultConfig()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return c.saveToPath(cfg.ConfigFile)
}

func (c *Config) saveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Get returns the value of a config key as a string.
func (c *Config) Get(key string) (string, bool) {
	switch strings.ToLower(key) {
	case "resolve_latest":
		return strconv.FormatBool(c.ResolveLatest), true
	case "arch":
		return c.Arch, true
	case "github_token_env":
		return c.GitHubTokenEnv, true
	default:
		return "", false
	}
}

// Set updates a config value from a string.
func (c *Config) Set(key, value string) error {
	switch strings.ToLower(key) {
	case "resolve_latest":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for resolve_latest: must be true or false")
		}
		c.ResolveLatest = b
	case "arch":
		if err := validateArch(value); err != nil {
			return err
		}
		c.Arch = value
	case "github_token_env":
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("github_token_env cannot be empty")
		}
		c.GitHubTokenEnv = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// GitHubToken returns the token from the configured variable, if any.
func (c *Config) GitHubToken() string {
	if c.GitHubTokenEnv == "" {
		return ""
	}
	return os.Getenv(c.GitHubTokenEnv)
}

func validateArch(v string) error {
	switch v {
	case ArchAuto, Arch64, Arch32:
		return nil
	default:
		return fmt.Errorf("invalid value for arch: %q (expected auto, 64 or 32)", v)
	}
}

// AvailableKeys returns all configurable keys with descriptions.
func AvailableKeys() map[string]string {
	return map[string]string{
		"resolve_latest":   "Resolve newest GitHub release assets instead of pinned URLs (true/false)",
		"arch":             "Download architecture: auto, 64 or 32",
		"github_token_env": "Environment variable holding a GitHub token",
	}
}

// SortedKeys returns AvailableKeys names in stable order.
func SortedKeys() []string {
	keys := make([]string, 0, len(AvailableKeys()))
	for k := range AvailableKeys() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package testutil holds fixtures shared by package tests: throwaway
// configurations, a recording process runner and archive builders.
package testutil

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/tsukumogami/provision/internal/config"
	"github.com/tsukumogami/provision/internal/process"
)

// NewTestConfig creates a config whose every directory lives under a
// per-test temporary directory. Home and key cache directories are created;
// program files and extraction directories are left to the code under test.
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()
	tmpDir := t.TempDir()

	home := filepath.Join(tmpDir, "home")
	cfg := &config.Config{
		HomeDir:          home,
		ConfigFile:       filepath.Join(home, "config.toml"),
		CatalogFile:      filepath.Join(home, "catalog.toml"),
		EnvFile:          filepath.Join(home, "env.toml"),
		KeyCacheDir:      filepath.Join(home, "keys"),
		InstallerTempDir: filepath.Join(tmpDir, "tmp", config.InstallerTempDirName),
		ExtractRoot:      filepath.Join(tmpDir, "tmp"),
		ProgramFilesDir:  filepath.Join(tmpDir, "Program Files"),
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("failed to create test directories: %v", err)
	}
	return cfg
}

// Call is one recorded process invocation.
type Call struct {
	Name string
	Args []string
}

// Runner is a process.Runner that records invocations and answers with
// Result and Err.
type Runner struct {
	mu       sync.Mutex
	Result   process.Result
	Err      error
	Runs     []Call
	Launches []Call
}

// Run implements process.Runner.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (process.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Runs = append(r.Runs, Call{Name: name, Args: args})
	return r.Result, r.Err
}

// Launch implements process.Runner.
func (r *Runner) Launch(name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Launches = append(r.Launches, Call{Name: name, Args: args})
	return r.Err
}

// ZipBytes builds an in-memory zip archive. Entries are written in name
// order so archives are reproducible.
func ZipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// FakeMSI returns n bytes starting with the compound document signature
// that Windows Installer packages carry.
func FakeMSI(n int) []byte {
	b := make([]byte, n)
	copy(b, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	return b
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// AssertFileExists checks if a file exists at the given path
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if !FileExists(path) {
		t.Errorf("file does not exist: %s", path)
	}
}

// AssertFileNotExists checks if a file does NOT exist at the given path
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if FileExists(path) {
		t.Errorf("file should not exist: %s", path)
	}
}

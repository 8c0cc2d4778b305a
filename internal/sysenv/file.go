package sysenv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// FileStore keeps machine variables in a TOML file ($PROVISION_HOME/env.toml).
type FileStore struct {
	path string
	mu   sync.Mutex
}

type envFile struct {
	Vars map[string]string `toml:"vars"`
}

// NewFileStore returns a store backed by path. The file is created on the
// first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	var ef envFile
	if _, err := toml.Decode(string(data), &ef); err != nil {
		return nil, fmt.Errorf("failed to parse env file %s: %w", f.path, err)
	}
	if ef.Vars == nil {
		ef.Vars = map[string]string{}
	}
	return ef.Vars, nil
}

func lookupFold(vars map[string]string, name string) (string, string, bool) {
	for k, v := range vars {
		if strings.EqualFold(k, name) {
			return k, v, true
		}
	}
	return "", "", false
}

// Get implements Store.
func (f *FileStore) Get(name string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vars, err := f.load()
	if err != nil {
		return "", false, err
	}
	_, v, ok := lookupFold(vars, name)
	return v, ok, nil
}

// Set implements Store.
func (f *FileStore) Set(name, value string) error {
	if err := validateName(name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	vars, err := f.load()
	if err != nil {
		return err
	}
	if existing, _, ok := lookupFold(vars, name); ok {
		name = existing
	}
	vars[name] = value

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create env directory: %w", err)
	}
	tmp := f.path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to write env file: %w", err)
	}
	if err := toml.NewEncoder(out).Encode(envFile{Vars: vars}); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode env file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, f.path)
}

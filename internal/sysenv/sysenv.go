// Package sysenv reads and writes machine-wide environment variables.
//
// On Windows the store is the system environment key in the registry. Other
// hosts use a TOML file under the provision home so the archive install
// path can be exercised there as well.
package sysenv

import (
	"fmt"
	"strings"
	"sync"
)

// Store is a machine-wide environment variable store. Names are compared
// case-insensitively, as Windows does.
type Store interface {
	Get(name string) (value string, ok bool, err error)
	Set(name, value string) error
}

// ListRules describes how a PATH-style list is split and compared.
type ListRules struct {
	Separator  string
	FoldCase   bool
	TrimSuffix string // characters ignored at the end of each segment
}

// WindowsRules split on ';' and compare case-insensitively.
var WindowsRules = ListRules{Separator: ";", FoldCase: true, TrimSuffix: `\/`}

// UnixRules split on ':' and compare exactly.
var UnixRules = ListRules{Separator: ":", TrimSuffix: "/"}

func (r ListRules) normalize(seg string) string {
	seg = strings.TrimSpace(seg)
	if trimmed := strings.TrimRight(seg, r.TrimSuffix); trimmed != "" {
		seg = trimmed
	}
	if r.FoldCase {
		seg = strings.ToLower(seg)
	}
	return seg
}

// ContainsSegment reports whether list holds dir as a whole segment.
// "C:\nodejs2" does not contain "C:\nodejs".
func (r ListRules) ContainsSegment(list, dir string) bool {
	want := r.normalize(dir)
	if want == "" {
		return false
	}
	for _, seg := range strings.Split(list, r.Separator) {
		if r.normalize(seg) == want {
			return true
		}
	}
	return false
}

// Append returns list with dir appended unless it is already a segment.
func (r ListRules) Append(list, dir string) (string, bool) {
	if r.ContainsSegment(list, dir) {
		return list, false
	}
	trimmed := strings.TrimRight(list, r.Separator)
	if trimmed == "" {
		return dir, true
	}
	return trimmed + r.Separator + dir, true
}

// AppendPath adds dir to the store's PATH variable once. It reports whether
// the variable changed.
func AppendPath(s Store, rules ListRules, dir string) (bool, error) {
	current, _, err := s.Get(PathVar)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", PathVar, err)
	}
	updated, changed := rules.Append(current, dir)
	if !changed {
		return false, nil
	}
	if err := s.Set(PathVar, updated); err != nil {
		return false, fmt.Errorf("failed to update %s: %w", PathVar, err)
	}
	return true, nil
}

// MemoryStore is an in-process Store for tests and dry runs.
type MemoryStore struct {
	mu   sync.Mutex
	vars map[string]memoryVar
}

type memoryVar struct {
	name, value string
}

// NewMemoryStore returns a store seeded with initial values.
func NewMemoryStore(initial map[string]string) *MemoryStore {
	m := &MemoryStore{vars: make(map[string]memoryVar, len(initial))}
	for k, v := range initial {
		m.vars[strings.ToUpper(k)] = memoryVar{k, v}
	}
	return m
}

// Get implements Store.
func (m *MemoryStore) Get(name string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vars[strings.ToUpper(name)]
	return v.value, ok, nil
}

// Set implements Store.
func (m *MemoryStore) Set(name, value string) error {
	if err := validateName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToUpper(name)
	if existing, ok := m.vars[key]; ok {
		name = existing.name
	}
	m.vars[key] = memoryVar{name, value}
	return nil
}

// Snapshot returns a copy of all variables keyed by their original name.
func (m *MemoryStore) Snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.vars))
	for _, v := range m.vars {
		out[v.name] = v.value
	}
	return out
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, "=\x00") {
		return fmt.Errorf("invalid environment variable name %q", name)
	}
	return nil
}

package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// File is the on-disk catalog override format ($PROVISION_HOME/catalog.toml).
//
//	exclude = ["Nmap"]
//
//	[[dependency]]
//	name = "Git"
//	probe_command = "git"
//	probe_args = ["--version"]
//	download_url = "https://example.com/Git-2.45.0-64-bit.exe"
//	strategy = "package_installer"
//	silent_args = ["/VERYSILENT", "/NORESTART"]
type File struct {
	Exclude      []string     `toml:"exclude"`
	Dependencies []Descriptor `toml:"dependency"`
}

// LoadFile parses a catalog file. A missing file yields an empty File.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var f File
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("catalog file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return &f, nil
}

// Merge applies f to base: excluded names are dropped, entries whose name
// matches a base descriptor replace it in place, and the rest are appended.
// Every resulting descriptor is validated.
func (f *File) Merge(base []Descriptor) ([]Descriptor, error) {
	excluded := func(name string) bool {
		for _, e := range f.Exclude {
			if strings.EqualFold(e, name) {
				return true
			}
		}
		return false
	}

	out := make([]Descriptor, 0, len(base)+len(f.Dependencies))
	for _, d := range base {
		if !excluded(d.Name) {
			out = append(out, d)
		}
	}

	for _, o := range f.Dependencies {
		if excluded(o.Name) {
			continue
		}
		replaced := false
		for i := range out {
			if strings.EqualFold(out[i].Name, o.Name) {
				out[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, o)
		}
	}

	seen := make(map[string]bool, len(out))
	for _, d := range out {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		slug := d.Slug()
		if seen[slug] {
			return nil, fmt.Errorf("%w: duplicate dependency %q", ErrInvalidDescriptor, d.Name)
		}
		seen[slug] = true
	}
	return out, nil
}

// Load returns the default table for arch merged with the catalog file at
// path (which may not exist).
func Load(path string, arch Arch) ([]Descriptor, error) {
	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return f.Merge(Default(arch))
}

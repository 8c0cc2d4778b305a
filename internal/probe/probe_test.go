package probe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tsukumogami/provision/internal/catalog"
	"github.com/tsukumogami/provision/internal/log"
	"github.com/tsukumogami/provision/internal/process"
)

type fakeResponse struct {
	res   process.Result
	err   error
	panic bool
}

type fakeRunner struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	calls     []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (process.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	resp, ok := f.responses[name]
	f.mu.Unlock()

	if !ok {
		return process.Result{}, fmt.Errorf("failed to run %s: %w", name, exec.ErrNotFound)
	}
	if resp.panic {
		panic("runner exploded")
	}
	return resp.res, resp.err
}

func (f *fakeRunner) Launch(name string, args ...string) error { return nil }

func stdout(s string) fakeResponse {
	return fakeResponse{res: process.Result{Stdout: s}}
}

func noEnv(string) (string, bool) { return "", false }

func newTestProber(r process.Runner, lookup func(string) (string, bool)) *Prober {
	return New(WithRunner(r), WithLogger(log.NewNoop()), WithLookupEnv(lookup), WithTimeout(time.Second))
}

func descriptor(name, cmd string, paths ...string) catalog.Descriptor {
	return catalog.Descriptor{
		Name:              name,
		ProbeCommand:      cmd,
		ProbeArgs:         []string{"--version"},
		KnownInstallPaths: paths,
		Strategy:          catalog.StrategyPackageInstaller,
	}
}

func TestProbe_OnPath(t *testing.T) {
	r := &fakeRunner{responses: map[string]fakeResponse{"node": stdout("v20.11.0\r\n")}}
	p := newTestProber(r, noEnv)

	res := p.Probe(context.Background(), descriptor("Node.js", "node"))
	if !res.Installed || res.Status != StatusInstalled {
		t.Fatalf("Probe() = %+v, want installed", res)
	}
	if res.Version != "20.11.0" {
		t.Errorf("Version = %q, want 20.11.0", res.Version)
	}
	if res.Path != "node" || res.Name != "Node.js" {
		t.Errorf("Path/Name = %q/%q", res.Path, res.Name)
	}
}

func TestProbe_KnownPathFallback(t *testing.T) {
	root := t.TempDir()
	exe := filepath.Join(root, "Git", "bin", "git.exe")
	if err := os.MkdirAll(filepath.Dir(exe), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(exe, []byte("binary"), 0755); err != nil {
		t.Fatal(err)
	}
	// a directory where a file is expected must be skipped
	if err := os.MkdirAll(filepath.Join(root, "dir.exe"), 0755); err != nil {
		t.Fatal(err)
	}

	lookup := func(name string) (string, bool) {
		if name == "ROOT" {
			return root, true
		}
		return "", false
	}
	r := &fakeRunner{responses: map[string]fakeResponse{
		exe:                            stdout("git version 2.43.0.windows.1\n"),
		filepath.Join(root, "dir.exe"): stdout("should not run"),
	}}
	p := newTestProber(r, lookup)

	d := descriptor("Git", "git",
		filepath.Join("%UNSET_VAR%", "Git", "bin", "git.exe"),
		filepath.Join("%ROOT%", "absent", "git.exe"),
		filepath.Join("%ROOT%", "dir.exe"),
		filepath.Join("%ROOT%", "Git", "bin", "git.exe"),
	)
	res := p.Probe(context.Background(), d)
	if !res.Installed || res.Version != "2.43.0" {
		t.Fatalf("Probe() = %+v", res)
	}
	if res.Path != exe {
		t.Errorf("Path = %q", res.Path)
	}
	// PATH attempt plus the one existing file
	if len(r.calls) != 2 {
		t.Errorf("runner calls = %v, want 2", r.calls)
	}
}

func TestProbe_NotFound(t *testing.T) {
	tests := []struct {
		name string
		resp fakeResponse
	}{
		{"non-zero exit", fakeResponse{res: process.Result{ExitCode: 1, Stdout: "v1.0.0"}}},
		{"empty stdout", stdout("  \n")},
		{"timed out", fakeResponse{res: process.Result{TimedOut: true, Stdout: "v1.0.0"}}},
		{"start error", fakeResponse{err: fmt.Errorf("access denied")}},
		{"panic", fakeResponse{panic: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{responses: map[string]fakeResponse{"tool": tt.resp}}
			p := newTestProber(r, noEnv)

			res := p.Probe(context.Background(), descriptor("Tool", "tool"))
			if res.Installed || res.Status != StatusNotFound || res.Version != "" {
				t.Errorf("Probe() = %+v, want NotFound", res)
			}
		})
	}
}

func TestProbe_MissingCommandRealRunner(t *testing.T) {
	p := New(WithLogger(log.NewNoop()), WithTimeout(5*time.Second))
	res := p.Probe(context.Background(), descriptor("Ghost", "provision-ghost-tool-xyz", `%ProgramFiles%\Ghost\ghost.exe`))
	if res.Status != StatusNotFound {
		t.Errorf("Probe() = %+v, want NotFound", res)
	}
}

func TestProbeAll_PreservesOrder(t *testing.T) {
	r := &fakeRunner{responses: map[string]fakeResponse{
		"node": stdout("v20.11.0"),
		"nmap": stdout("Nmap version 7.94 ( https://nmap.org )"),
	}}
	p := New(WithRunner(r), WithLogger(log.NewNoop()), WithLookupEnv(noEnv), WithConcurrency(2))

	descs := []catalog.Descriptor{
		descriptor("Node.js", "node"),
		descriptor("Git", "git"),
		descriptor("Nmap", "nmap"),
	}
	results := p.ProbeAll(context.Background(), descs)

	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	want := []struct {
		name    string
		status  Status
		version string
	}{
		{"Node.js", StatusInstalled, "20.11.0"},
		{"Git", StatusNotFound, ""},
		{"Nmap", StatusInstalled, "7.94"},
	}
	for i, w := range want {
		if results[i].Name != w.name || results[i].Status != w.status || results[i].Version != w.version {
			t.Errorf("results[%d] = %+v, want %+v", i, results[i], w)
		}
	}
}

func TestStatusString(t *testing.T) {
	tests := map[Status]string{
		StatusUnknown:   "Unknown",
		StatusInstalled: "Installed",
		StatusNotFound:  "NotFound",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}

func TestExpandWindowsEnv(t *testing.T) {
	env := map[string]string{
		"ProgramFiles": `C:\Program Files`,
		"USERNAME":     "operator",
		"EMPTY":        "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{`%ProgramFiles%\nodejs\node.exe`, `C:\Program Files\nodejs\node.exe`, true},
		{`C:\Users\%USERNAME%\AppData`, `C:\Users\operator\AppData`, true},
		{`C:\Nmap\nmap.exe`, `C:\Nmap\nmap.exe`, true},
		{`%ANDROID_HOME%\platform-tools\adb.exe`, `%ANDROID_HOME%\platform-tools\adb.exe`, false},
		{`%EMPTY%\x`, `%EMPTY%\x`, false},
		{`100%%done`, `100%done`, true},
		{`dangling%percent`, `dangling%percent`, true},
	}
	for _, tt := range tests {
		got, ok := ExpandWindowsEnv(tt.in, lookup)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ExpandWindowsEnv(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

// Package probe detects whether a dependency is installed and which version
// it reports.
package probe

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tsukumogami/provision/internal/catalog"
	"github.com/tsukumogami/provision/internal/config"
	"github.com/tsukumogami/provision/internal/log"
	"github.com/tsukumogami/provision/internal/process"
	"github.com/tsukumogami/provision/internal/version"
)

// Status is the detection state shown for a dependency.
type Status int

const (
	StatusUnknown Status = iota
	StatusInstalled
	StatusNotFound
)

func (s Status) String() string {
	switch s {
	case StatusInstalled:
		return "Installed"
	case StatusNotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// MarshalText renders the status label in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the outcome of probing one descriptor.
//
// Installed implies Status == StatusInstalled. Version may be empty even
// when Installed is true (the tool answered with unrecognizable text).
type Result struct {
	Name      string `json:"name"`
	Installed bool   `json:"installed"`
	Version   string `json:"version"`
	Status    Status `json:"status"`
	Path      string `json:"path,omitempty"` // executable that answered
}

func notFound(name string) Result {
	return Result{Name: name, Status: StatusNotFound}
}

// Prober runs version commands to detect dependencies.
type Prober struct {
	runner      process.Runner
	logger      log.Logger
	lookupEnv   func(string) (string, bool)
	timeout     time.Duration
	concurrency int
}

// Option configures a Prober.
type Option func(*Prober)

// WithRunner sets the process runner.
func WithRunner(r process.Runner) Option {
	return func(p *Prober) { p.runner = r }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(p *Prober) { p.logger = l }
}

// WithLookupEnv sets the environment lookup used to expand %VAR%
// placeholders in known install paths.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(p *Prober) { p.lookupEnv = fn }
}

// WithTimeout bounds each version command.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) { p.timeout = d }
}

// WithConcurrency limits parallel probes in ProbeAll.
func WithConcurrency(n int) Option {
	return func(p *Prober) { p.concurrency = n }
}

// New creates a Prober. Defaults: exec runner, default logger, process
// environment, PROVISION_PROBE_TIMEOUT, NumCPU parallel probes.
func New(opts ...Option) *Prober {
	p := &Prober{
		runner:      process.NewRunner(0),
		logger:      log.Default(),
		lookupEnv:   os.LookupEnv,
		timeout:     config.GetProbeTimeout(),
		concurrency: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe checks one descriptor: first the command on PATH, then each known
// install path in order. It never returns an error; every failure folds
// into a NotFound result.
func (p *Prober) Probe(ctx context.Context, d catalog.Descriptor) Result {
	if res, ok := p.try(ctx, d, d.ProbeCommand); ok {
		return res
	}

	for _, candidate := range d.KnownInstallPaths {
		path, ok := ExpandWindowsEnv(candidate, p.lookupEnv)
		if !ok {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if res, ok := p.try(ctx, d, path); ok {
			return res
		}
	}

	p.logger.Debug("dependency not found", "name", d.Name)
	return notFound(d.Name)
}

// try runs one candidate executable. A panic inside the attempt counts as a
// failed attempt.
func (p *Prober) try(ctx context.Context, d catalog.Descriptor, exe string) (res Result, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Debug("probe attempt panicked", "name", d.Name, "exe", exe, "panic", fmt.Sprint(r))
			res, ok = Result{}, false
		}
	}()

	runCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	out, err := p.runner.Run(runCtx, exe, d.ProbeArgs...)
	if err != nil {
		if process.IsNotFound(err) {
			p.logger.Debug("probe command not found", "name", d.Name, "exe", exe)
		} else {
			p.logger.Debug("probe command failed to start", "name", d.Name, "exe", exe, "error", err)
		}
		return Result{}, false
	}
	if out.TimedOut {
		p.logger.Debug("probe command timed out", "name", d.Name, "exe", exe)
		return Result{}, false
	}
	stdout := strings.TrimSpace(out.Stdout)
	if out.ExitCode != 0 || stdout == "" {
		p.logger.Debug("probe command gave no version", "name", d.Name, "exe", exe, "exit_code", out.ExitCode)
		return Result{}, false
	}

	return Result{
		Name:      d.Name,
		Installed: true,
		Version:   version.Extract(stdout),
		Status:    StatusInstalled,
		Path:      exe,
	}, true
}

// ProbeAll probes descriptors concurrently and returns results in
// descriptor order.
func (p *Prober) ProbeAll(ctx context.Context, descs []catalog.Descriptor) []Result {
	results := make([]Result, len(descs))

	g, gCtx := errgroup.WithContext(ctx)
	if p.concurrency > 0 {
		g.SetLimit(p.concurrency)
	}
	for i, d := range descs {
		g.Go(func() error {
			results[i] = p.Probe(gCtx, d)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// ExpandWindowsEnv replaces %NAME% placeholders using lookup. It reports
// false when a placeholder names an unset variable, in which case the path
// cannot point anywhere meaningful.
func ExpandWindowsEnv(s string, lookup func(string) (string, bool)) (string, bool) {
	var b strings.Builder
	rest := s
	for {
		start := strings.IndexByte(rest, '%')
		if start < 0 {
			b.WriteString(rest)
			return b.String(), true
		}
		end := strings.IndexByte(rest[start+1:], '%')
		if end < 0 {
			b.WriteString(rest)
			return b.String(), true
		}
		name := rest[start+1 : start+1+end]
		b.WriteString(rest[:start])
		if name == "" {
			b.WriteByte('%')
		} else {
			val, ok := lookup(name)
			if !ok || val == "" {
				return s, false
			}
			b.WriteString(val)
		}
		rest = rest[start+end+2:]
	}
}

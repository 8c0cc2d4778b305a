// Package installer installs a validated artifact with the strategy its
// descriptor names: a silent package installer, archive expansion with
// machine environment configuration, or a visible manual installer.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tsukumogami/provision/internal/catalog"
	"github.com/tsukumogami/provision/internal/config"
	"github.com/tsukumogami/provision/internal/elevation"
	"github.com/tsukumogami/provision/internal/fetch"
	"github.com/tsukumogami/provision/internal/log"
	"github.com/tsukumogami/provision/internal/probe"
	"github.com/tsukumogami/provision/internal/process"
	"github.com/tsukumogami/provision/internal/progress"
	"github.com/tsukumogami/provision/internal/sysenv"
)

// Outcome is the result of one dependency install attempt.
type Outcome struct {
	DependencyName string `json:"dependency"`
	Success        bool   `json:"success"`
	ErrorMessage   string `json:"error,omitempty"`
	LogOutput      string `json:"log,omitempty"`
	ExitCode       int    `json:"exit_code"`

	// NeedsConfirmation is set on the soft success of a manual install:
	// the installer was launched but completion cannot be verified.
	NeedsConfirmation bool `json:"needs_confirmation,omitempty"`

	// Err is the underlying failure, for errors.Is/As by callers.
	Err error `json:"-"`
}

// Failed builds a failure outcome for err with the given exit code.
func Failed(name string, exitCode int, err error) Outcome {
	o := Outcome{
		DependencyName: name,
		ExitCode:       exitCode,
		ErrorMessage:   err.Error(),
		Err:            err,
	}
	var pe *ProcessError
	if errors.As(err, &pe) {
		o.LogOutput = pe.Output
	}
	return o
}

// Verifier re-checks a dependency after installation.
type Verifier interface {
	Probe(ctx context.Context, d catalog.Descriptor) probe.Result
}

// Installer runs install strategies.
type Installer struct {
	runner       process.Runner
	verifier     Verifier
	env          sysenv.Store
	rules        sysenv.ListRules
	elevation    elevation.Checker
	logger       log.Logger
	programFiles string
	extractDir   func(slug string) string
	settleDelay  time.Duration
	sleep        func(time.Duration)
}

// Option configures an Installer.
type Option func(*Installer)

// WithRunner sets the process runner. Its timeout bounds each installer run.
func WithRunner(r process.Runner) Option {
	return func(i *Installer) { i.runner = r }
}

// WithVerifier sets the post-install prober.
func WithVerifier(v Verifier) Option {
	return func(i *Installer) { i.verifier = v }
}

// WithEnvStore sets the machine environment store and its list rules.
func WithEnvStore(s sysenv.Store, rules sysenv.ListRules) Option {
	return func(i *Installer) {
		i.env = s
		i.rules = rules
	}
}

// WithElevation sets the privilege check.
func WithElevation(c elevation.Checker) Option {
	return func(i *Installer) { i.elevation = c }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(i *Installer) { i.logger = l }
}

// WithSettleDelay sets the wait between a successful installer exit and
// re-verification.
func WithSettleDelay(d time.Duration) Option {
	return func(i *Installer) { i.settleDelay = d }
}

// New creates an Installer rooted at cfg's program-files and extraction
// directories. Defaults: exec runner bounded by PROVISION_INSTALL_TIMEOUT,
// default prober, host machine environment, host elevation check.
func New(cfg *config.Config, opts ...Option) *Installer {
	i := &Installer{
		logger:       log.Default(),
		programFiles: cfg.ProgramFilesDir,
		extractDir:   cfg.ExtractDir,
		settleDelay:  config.GetSettleDelay(),
		sleep:        time.Sleep,
		rules:        sysenv.HostRules,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.runner == nil {
		i.runner = process.NewRunner(config.GetInstallTimeout())
	}
	if i.verifier == nil {
		i.verifier = probe.New(probe.WithLogger(i.logger))
	}
	if i.env == nil {
		i.env = sysenv.NewMachineStore(cfg.EnvFile)
	}
	if i.elevation == nil {
		i.elevation = elevation.Host()
	}
	return i
}

// Install installs art for d and always removes the artifact afterwards.
// Every failure is reported in the Outcome; Install does not panic on
// installer errors and returns no error.
func (i *Installer) Install(ctx context.Context, d catalog.Descriptor, art *fetch.Artifact, r progress.Reporter) Outcome {
	r = progress.OrDiscard(r)
	logger := i.logger.With("dependency", d.Name, "strategy", d.Strategy.String())

	if art != nil {
		defer i.removeArtifact(art.Path, logger)
	}

	if !i.elevation.IsElevated() {
		r.Report(fmt.Sprintf("Administrator privileges are required to install %s", d.Name))
		return Failed(d.Name, ExitCodeNotRun, fmt.Errorf("install %s: %w", d.Name, ErrElevationRequired))
	}
	if art == nil || !art.Validated {
		return Failed(d.Name, ExitCodeNotRun, fmt.Errorf("install %s: %w", d.Name, ErrNotValidated))
	}

	var out Outcome
	switch d.Strategy {
	case catalog.StrategyArchiveExpand:
		out = i.expandArchive(d, art, r, logger)
	case catalog.StrategyPackageInstaller:
		out = i.runPackageInstaller(ctx, d, art, r, logger)
	case catalog.StrategyManualFallback:
		out = i.launchManual(d, art, r, logger)
	default:
		out = Failed(d.Name, ExitCodeNotRun, fmt.Errorf("install %s: %w", d.Name, catalog.ErrInvalidDescriptor))
	}
	out.DependencyName = d.Name

	if out.Success {
		logger.Info("install succeeded", "needs_confirmation", out.NeedsConfirmation)
	} else {
		logger.Error("install failed", "error", out.ErrorMessage, "exit_code", out.ExitCode)
	}
	return out
}

func (i *Installer) removeArtifact(path string, logger log.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Debug("failed to remove artifact", "path", path, "error", err)
	}
}

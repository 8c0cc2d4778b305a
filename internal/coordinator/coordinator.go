// Package coordinator runs a batch of dependency installs: one privilege
// check, then fetch, install and verify for each dependency in order.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/tsukumogami/provision/internal/catalog"
	"github.com/tsukumogami/provision/internal/config"
	"github.com/tsukumogami/provision/internal/elevation"
	"github.com/tsukumogami/provision/internal/fetch"
	"github.com/tsukumogami/provision/internal/installer"
	"github.com/tsukumogami/provision/internal/log"
	"github.com/tsukumogami/provision/internal/progress"
)

// ErrCancelled marks dependencies skipped because the batch was cancelled
// before they were started.
var ErrCancelled = errors.New("batch cancelled before this dependency was started")

// Fetcher downloads and validates an artifact.
type Fetcher interface {
	Fetch(ctx context.Context, d catalog.Descriptor, r progress.Reporter) (*fetch.Artifact, error)
}

// Installer installs a validated artifact.
type Installer interface {
	Install(ctx context.Context, d catalog.Descriptor, art *fetch.Artifact, r progress.Reporter) installer.Outcome
}

// BatchInstallResult aggregates one InstallAll run. Outcomes has one entry
// per input descriptor, in input order.
type BatchInstallResult struct {
	AllSuccessful bool                `json:"all_successful"`
	Outcomes      []installer.Outcome `json:"outcomes"`
}

// Failures returns the unsuccessful outcomes.
func (b BatchInstallResult) Failures() []installer.Outcome {
	var out []installer.Outcome
	for _, o := range b.Outcomes {
		if !o.Success {
			out = append(out, o)
		}
	}
	return out
}

// Unconfirmed returns outcomes that succeeded without verification and
// need the operator to confirm the install finished.
func (b BatchInstallResult) Unconfirmed() []installer.Outcome {
	var out []installer.Outcome
	for _, o := range b.Outcomes {
		if o.Success && o.NeedsConfirmation {
			out = append(out, o)
		}
	}
	return out
}

// Coordinator runs install batches. It is not safe for concurrent use:
// batches share the download directory and machine environment.
type Coordinator struct {
	fetcher   Fetcher
	installer Installer
	elevation elevation.Checker
	reporter  progress.Reporter
	logger    log.Logger
	pause     time.Duration
	sleep     func(time.Duration)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithReporter sets the progress sink.
func WithReporter(r progress.Reporter) Option {
	return func(c *Coordinator) { c.reporter = r }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithPause sets the pause between two dependencies.
func WithPause(d time.Duration) Option {
	return func(c *Coordinator) { c.pause = d }
}

// New creates a Coordinator. The pause defaults to PROVISION_BATCH_PAUSE.
func New(f Fetcher, inst Installer, elev elevation.Checker, opts ...Option) *Coordinator {
	c := &Coordinator{
		fetcher:   f,
		installer: inst,
		elevation: elev,
		logger:    log.Default(),
		pause:     config.GetBatchPause(),
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.reporter = progress.OrDiscard(c.reporter)
	return c
}

// InstallAll installs every descriptor in missing, sequentially and in
// order. Per-dependency failures never stop the batch and are only
// reported through the result; the returned error is non-nil only for an
// invalid descriptor, detected before anything is touched.
//
// Without elevation every dependency fails with the same message and no
// download or file operation happens. Cancelling ctx stops the batch
// between dependencies; a dependency in progress always completes.
func (c *Coordinator) InstallAll(ctx context.Context, missing []catalog.Descriptor) (BatchInstallResult, error) {
	for _, d := range missing {
		if err := d.Validate(); err != nil {
			return BatchInstallResult{}, err
		}
	}

	result := BatchInstallResult{
		AllSuccessful: true,
		Outcomes:      make([]installer.Outcome, 0, len(missing)),
	}
	if len(missing) == 0 {
		return result, nil
	}

	if !c.elevation.IsElevated() {
		err := fmt.Errorf("%w: %s", installer.ErrElevationRequired, elevation.Hint)
		c.reporter.Report("Administrator privileges are required for automatic installation")
		c.reporter.Report(elevation.Hint)
		c.logger.Error("not elevated, skipping batch", "dependencies", len(missing))
		for _, d := range missing {
			result.Outcomes = append(result.Outcomes, installer.Failed(d.Name, installer.ExitCodeNotRun, err))
		}
		result.AllSuccessful = false
		return result, nil
	}

	// A started dependency runs to completion even if ctx is cancelled.
	attemptCtx := context.WithoutCancel(ctx)

	for i, d := range missing {
		if i > 0 && ctx.Err() == nil && c.pause > 0 {
			c.sleep(c.pause)
		}

		var out installer.Outcome
		if ctx.Err() != nil {
			out = installer.Failed(d.Name, installer.ExitCodeNotRun, fmt.Errorf("%s: %w", d.Name, ErrCancelled))
		} else {
			c.reporter.Report(fmt.Sprintf("Installing %s (%d/%d)...", d.Name, i+1, len(missing)))
			out = c.attempt(attemptCtx, d)
			if !out.Success {
				c.reporter.Report(fmt.Sprintf("Failed to install %s: %s", d.Name, out.ErrorMessage))
			}
		}

		result.Outcomes = append(result.Outcomes, out)
		result.AllSuccessful = result.AllSuccessful && out.Success
	}

	c.logger.Info("batch finished", "dependencies", len(missing), "failed", len(result.Failures()))
	return result, nil
}

// attempt runs fetch and install for one dependency. Panics are recovered
// into a failed outcome so that the batch continues.
func (c *Coordinator) attempt(ctx context.Context, d catalog.Descriptor) (out installer.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("unexpected failure", "dependency", d.Name, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			out = installer.Failed(d.Name, installer.ExitCodeNotRun, fmt.Errorf("unexpected error installing %s: %v", d.Name, r))
		}
	}()

	art, err := c.fetcher.Fetch(ctx, d, c.reporter)
	if err != nil {
		return installer.Failed(d.Name, installer.ExitCodeNotRun, err)
	}

	out = c.installer.Install(ctx, d, art, c.reporter)
	out.DependencyName = d.Name
	return out
}

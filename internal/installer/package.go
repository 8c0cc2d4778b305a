package installer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tsukumogami/provision/internal/catalog"
	"github.com/tsukumogami/provision/internal/fetch"
	"github.com/tsukumogami/provision/internal/log"
	"github.com/tsukumogami/provision/internal/progress"
)

// maxLogOutput caps the installer output kept in an Outcome.
const maxLogOutput = 64 * 1024

// installerCommand returns the program and arguments that install art.
// Packages go through msiexec or wusa; executables run directly.
func installerCommand(art *fetch.Artifact, silentArgs []string) (string, []string) {
	switch art.Kind {
	case fetch.KindPackageInstaller:
		return "msiexec", append([]string{"/i", art.Path}, silentArgs...)
	case fetch.KindUpdatePackage:
		return "wusa", append([]string{art.Path}, silentArgs...)
	default:
		return art.Path, append([]string(nil), silentArgs...)
	}
}

// runPackageInstaller runs the installer silently, then waits the settle
// delay and re-probes. Only a detected tool counts as success.
func (i *Installer) runPackageInstaller(ctx context.Context, d catalog.Descriptor, art *fetch.Artifact, r progress.Reporter, logger log.Logger) Outcome {
	if art.Kind == fetch.KindArchive {
		return Failed(d.Name, ExitCodeNotRun, fmt.Errorf("install %s: cannot run an archive as an installer", d.Name))
	}

	name, args := installerCommand(art, d.SilentArgs)
	r.Report(fmt.Sprintf("Running %s installer...", d.Name))
	logger.Debug("running installer", "program", name, "args", args)

	res, err := i.runner.Run(ctx, name, args...)
	if err != nil {
		r.Report(fmt.Sprintf("%s installer could not be started", d.Name))
		return Failed(d.Name, ExitCodeNotRun, fmt.Errorf("install %s: %w", d.Name, err))
	}
	output := truncate(res.Combined(), maxLogOutput)

	if res.TimedOut {
		r.Report(fmt.Sprintf("%s installer timed out after %s", d.Name, res.Duration.Round(time.Second)))
		return Failed(d.Name, ExitCodeTimedOut, &ProcessError{
			Program:  name,
			ExitCode: ExitCodeTimedOut,
			Output:   output,
			TimedOut: true,
		})
	}
	if res.ExitCode != 0 {
		r.Report(fmt.Sprintf("%s installer failed (exit code %d)", d.Name, res.ExitCode))
		return Failed(d.Name, res.ExitCode, &ProcessError{
			Program:  name,
			ExitCode: res.ExitCode,
			Output:   output,
		})
	}

	r.Report(fmt.Sprintf("%s installer finished", d.Name))
	if i.settleDelay > 0 {
		i.sleep(i.settleDelay)
	}

	r.Report(fmt.Sprintf("Verifying %s installation...", d.Name))
	result := i.verifier.Probe(ctx, d)
	if !result.Installed {
		r.Report(fmt.Sprintf("%s was not detected after installation", d.Name))
		return Outcome{
			ExitCode:     0,
			ErrorMessage: fmt.Sprintf("%s: %v; check manually whether it is installed", d.Name, ErrNotDetected),
			LogOutput:    output,
			Err:          fmt.Errorf("install %s: %w", d.Name, ErrNotDetected),
		}
	}

	msg := fmt.Sprintf("%s installed and verified", d.Name)
	if result.Version != "" {
		msg = fmt.Sprintf("%s %s installed and verified", d.Name, result.Version)
	}
	r.Report(msg)
	return Outcome{Success: true, ExitCode: 0, LogOutput: output}
}

// launchManual starts the installer visibly and reports a soft success:
// the operator must confirm completion.
func (i *Installer) launchManual(d catalog.Descriptor, art *fetch.Artifact, r progress.Reporter, logger log.Logger) Outcome {
	if art.Kind == fetch.KindArchive {
		return Failed(d.Name, ExitCodeNotRun, fmt.Errorf("install %s: cannot launch an archive", d.Name))
	}

	r.Report(fmt.Sprintf("%s needs a manual installation; launching the installer...", d.Name))
	name, args := installerCommand(art, nil)
	if err := i.runner.Launch(name, args...); err != nil {
		r.Report(fmt.Sprintf("%s installer could not be launched", d.Name))
		return Failed(d.Name, ExitCodeNotRun, fmt.Errorf("install %s: %w", d.Name, err))
	}
	logger.Info("launched manual installer", "program", name)

	r.Report(fmt.Sprintf("Complete the %s installation in the installer window, then confirm", d.Name))
	return Outcome{
		Success:           true,
		ExitCode:          0,
		NeedsConfirmation: true,
		LogOutput:         fmt.Sprintf("manual %s installation launched; confirm once it has finished", d.Name),
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "...\n" + strings.TrimLeft(s[len(s)-max:], "\n")
}

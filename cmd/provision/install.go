package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tsukumogami/provision/internal/catalog"
	"github.com/tsukumogami/provision/internal/coordinator"
	"github.com/tsukumogami/provision/internal/elevation"
	"github.com/tsukumogami/provision/internal/errmsg"
	"github.com/tsukumogami/provision/internal/fetch"
	"github.com/tsukumogami/provision/internal/httputil"
	"github.com/tsukumogami/provision/internal/installer"
	"github.com/tsukumogami/provision/internal/log"
	"github.com/tsukumogami/provision/internal/probe"
	"github.com/tsukumogami/provision/internal/progress"
	"github.com/tsukumogami/provision/internal/release"
)

var installCmd = &cobra.Command{
	Use:   "install [dependency]...",
	Short: "Install missing dependencies",
	Long: `Probe the catalog, then download and install every missing dependency.
Dependencies are installed one at a time; a failure does not stop the rest.

Installing requires administrator privileges. Press Ctrl+C to stop after the
dependency currently being installed.

Examples:
  provision install
  provision install --yes
  provision install git "android sdk tools"`,
	Run: func(cmd *cobra.Command, args []string) {
		yes, _ := cmd.Flags().GetBool("yes")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		env := loadEnvironment()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		prober := probe.New(probe.WithLogger(log.Default()))
		results := prober.ProbeAll(ctx, env.catalog)
		missing, err := selectMissing(env.catalog, results, args)
		if err != nil {
			printError(err)
			exitWithCode(ExitUsage)
		}

		if len(missing) == 0 {
			if jsonOutput {
				printJSON(coordinator.BatchInstallResult{AllSuccessful: true, Outcomes: []installer.Outcome{}})
				return
			}
			printInfo("All dependencies are installed.")
			return
		}

		if !yes {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				fmt.Fprintln(os.Stderr, "Error: refusing to install without confirmation; pass --yes when not running interactively")
				exitWithCode(ExitUsage)
			}
			ok, err := confirm(os.Stdin, os.Stdout, fmt.Sprintf("Install %s?", dependencyNames(missing)))
			if err != nil {
				printError(err)
				exitWithCode(ExitGeneral)
			}
			if !ok {
				printInfo("Nothing installed.")
				return
			}
		}

		// The spinner and the download bar both redraw stderr, so verbose
		// runs print one line per message and draw the bar instead.
		detailed := verboseFlag || debugFlag
		var reporter progress.Reporter
		var spinner *progress.Spinner
		var lines *progress.Channel
		printed := make(chan struct{})
		switch {
		case jsonOutput || quietFlag:
			reporter = progress.Logger(log.Default())
		case detailed:
			lines = progress.NewChannel(64)
			go func() {
				defer close(printed)
				for msg := range lines.C() {
					fmt.Fprintln(os.Stderr, msg)
				}
			}()
			reporter = lines
		default:
			spinner = progress.NewSpinner(os.Stderr)
			reporter = spinner
		}

		showBar := detailed && !jsonOutput && !quietFlag && progress.ShouldShowProgress()
		fetcher := newFetcher(env, showBar)
		inst := installer.New(env.cfg,
			installer.WithLogger(log.Default()),
			installer.WithVerifier(prober),
		)

		coord := coordinator.New(fetcher, inst, elevation.Host(),
			coordinator.WithReporter(reporter),
			coordinator.WithLogger(log.Default()),
		)
		res, err := coord.InstallAll(ctx, missing)
		if spinner != nil {
			spinner.Stop()
		}
		if lines != nil {
			lines.Close()
			<-printed
			if n := lines.Dropped(); n > 0 {
				log.Default().Debug("progress messages dropped", "count", n)
			}
		}
		if err != nil {
			printError(err)
			exitWithCode(ExitGeneral)
		}

		if jsonOutput {
			printJSON(res)
		} else {
			renderInstall(os.Stdout, missing, res)
			after := prober.ProbeAll(context.Background(), missing)
			printInfo()
			renderCheck(os.Stdout, checkRows(missing, after))
		}

		if code := installExitCode(res); code != ExitSuccess {
			exitWithCode(code)
		}
	},
}

func init() {
	installCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	installCmd.Flags().Bool("json", false, "Print the batch result as JSON")
}

func newFetcher(env *environment, showProgress bool) *fetch.Fetcher {
	opts := []fetch.Option{
		fetch.WithLogger(log.Default()),
		fetch.WithTempDir(env.cfg.InstallerTempDir),
		fetch.WithKeyCacheDir(env.cfg.KeyCacheDir),
	}
	if showProgress {
		opts = append(opts, fetch.WithProgressOutput(os.Stderr))
	}
	if env.user.ResolveLatest {
		resolver := release.New(env.user.GitHubToken(), httputil.NewAPIClient())
		if !resolver.Authenticated() {
			log.Default().Warn("resolving releases without a GitHub token; requests may be rate limited",
				"token_env", env.user.GitHubTokenEnv)
		}
		opts = append(opts, fetch.WithReleaseResolver(resolver))
	}
	return fetch.New(opts...)
}

// confirm asks question on out and reads a yes/no answer from in.
// Anything but "y" or "yes" declines.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// renderInstall prints one line per outcome, failure details with
// suggestions, and a notice for installers the operator must finish.
func renderInstall(w io.Writer, descs []catalog.Descriptor, res coordinator.BatchInstallResult) {
	for i, o := range res.Outcomes {
		status := "ok"
		switch {
		case !o.Success:
			status = "FAILED"
		case o.NeedsConfirmation:
			status = "launched"
		}
		fmt.Fprintf(w, "  %s ... %s\n", o.DependencyName, status)

		if !o.Success {
			ctx := &errmsg.ErrorContext{DependencyName: o.DependencyName}
			if i < len(descs) {
				ctx.InstallPageURL = descs[i].InstallPageURL
			}
			for _, line := range strings.Split(strings.TrimRight(errmsg.FormatOutcome(o, ctx), "\n"), "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}

	if unconfirmed := res.Unconfirmed(); len(unconfirmed) > 0 {
		fmt.Fprintln(w)
		for _, o := range unconfirmed {
			fmt.Fprintf(w, "Complete the %s installer window, then run 'provision check' to confirm.\n", o.DependencyName)
		}
	}

	fmt.Fprintln(w)
	if res.AllSuccessful {
		fmt.Fprintln(w, "All dependencies installed.")
	} else {
		fmt.Fprintf(w, "%d of %d dependencies failed to install.\n", len(res.Failures()), len(res.Outcomes))
	}
}

// installExitCode maps a batch result to the process exit code. Uniform
// failures get a specific code; mixed failures get ExitInstallFailed.
func installExitCode(res coordinator.BatchInstallResult) int {
	failures := res.Failures()
	if len(failures) == 0 {
		return ExitSuccess
	}

	allElevation, allNetwork := true, true
	for _, o := range failures {
		if !errors.Is(o.Err, installer.ErrElevationRequired) {
			allElevation = false
		}
		var fe *fetch.Error
		if !errors.As(o.Err, &fe) || fe.Kind != fetch.ErrKindNetwork {
			allNetwork = false
		}
	}

	switch {
	case allElevation:
		return ExitNotElevated
	case allNetwork:
		return ExitNetwork
	default:
		return ExitInstallFailed
	}
}

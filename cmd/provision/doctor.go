package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/provision/internal/elevation"
	"github.com/tsukumogami/provision/internal/hostinfo"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that this machine can run installs",
	Long: `Print system information and verify that installs can run here: the OS
is supported, provision runs elevated, and its directories are writable.

Exits with a non-zero status if a check fails:

  provision doctor || exit 1`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := loadEnvironment()
		info := hostinfo.Collect()

		fmt.Println(info.String())
		fmt.Println()
		fmt.Println("Checking provision environment...")
		failed := false

		fmt.Fprintf(os.Stdout, "  Supported OS (Windows %d or later)", hostinfo.MinWindowsMajor)
		if info.Compatible() {
			fmt.Println(" ... ok")
		} else {
			fmt.Println(" ... FAIL")
			fmt.Fprintf(os.Stderr, "    Automatic installs are only supported on Windows %d or later\n", hostinfo.MinWindowsMajor)
			failed = true
		}

		fmt.Fprintf(os.Stdout, "  Administrator privileges")
		if elevation.Host().IsElevated() {
			fmt.Println(" ... ok")
		} else {
			fmt.Println(" ... FAIL")
			fmt.Fprintf(os.Stderr, "    %s\n", elevation.Hint)
			failed = true
		}

		fmt.Fprintf(os.Stdout, "  Home directory: %s", env.cfg.HomeDir)
		if err := env.cfg.EnsureDirectories(); err != nil {
			fmt.Println(" ... FAIL")
			fmt.Fprintf(os.Stderr, "    %v\n", err)
			failed = true
		} else {
			fmt.Println(" ... ok")
		}

		fmt.Fprintf(os.Stdout, "  Download directory: %s", env.cfg.InstallerTempDir)
		if err := checkWritable(env.cfg.InstallerTempDir); err != nil {
			fmt.Println(" ... FAIL")
			fmt.Fprintf(os.Stderr, "    %v\n", err)
			failed = true
		} else {
			fmt.Println(" ... ok")
		}

		fmt.Fprintf(os.Stdout, "  Catalog: %d dependencies", len(env.catalog))
		fmt.Println(" ... ok")

		fmt.Println()
		if failed {
			return fmt.Errorf("environment check failed")
		}
		fmt.Println("Everything looks good!")
		return nil
	},
}

// checkWritable creates dir if needed and writes a probe file into it.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".provision-doctor-*")
	if err != nil {
		return fmt.Errorf("cannot write to %s: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

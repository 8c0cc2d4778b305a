package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/provision/internal/catalog"
	"github.com/tsukumogami/provision/internal/log"
	"github.com/tsukumogami/provision/internal/probe"
	"github.com/tsukumogami/provision/internal/version"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check which dependencies are installed",
	Long: `Probe every dependency in the catalog and print its status and version.

Exits with status 8 when a dependency is missing, so it can gate scripts:

  provision check || provision install --yes`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		env := loadEnvironment()

		prober := probe.New(probe.WithLogger(log.Default()))
		results := prober.ProbeAll(context.Background(), env.catalog)
		rows := checkRows(env.catalog, results)

		if jsonOutput {
			printJSON(rows)
		} else {
			renderCheck(os.Stdout, rows)
		}

		for _, r := range rows {
			if !r.Installed {
				exitWithCode(ExitDependencyMissing)
			}
		}
	},
}

func init() {
	checkCmd.Flags().Bool("json", false, "Print results as JSON")
}

// checkRow is one line of check output.
type checkRow struct {
	probe.Result
	MinVersion string `json:"min_version,omitempty"`
	Outdated   bool   `json:"outdated,omitempty"`
}

// checkRows pairs probe results with their descriptors. Outdated is only
// informative: install never replaces a present tool.
func checkRows(descs []catalog.Descriptor, results []probe.Result) []checkRow {
	rows := make([]checkRow, len(results))
	for i, r := range results {
		rows[i] = checkRow{Result: r, MinVersion: descs[i].MinVersion}
		if r.Installed && r.Version != "" && descs[i].MinVersion != "" {
			rows[i].Outdated = !version.Satisfies(r.Version, descs[i].MinVersion)
		}
	}
	return rows
}

func renderCheck(w io.Writer, rows []checkRow) {
	maxName := len("NAME")
	for _, r := range rows {
		if len(r.Name) > maxName {
			maxName = len(r.Name)
		}
	}

	fmt.Fprintf(w, "%-*s  %-10s  %s\n", maxName, "NAME", "STATUS", "VERSION")
	missing := 0
	for _, r := range rows {
		ver := r.Version
		if ver == "" {
			ver = "-"
		}
		if r.Outdated {
			ver += fmt.Sprintf(" (older than %s)", r.MinVersion)
		}
		fmt.Fprintf(w, "%-*s  %-10s  %s\n", maxName, r.Name, r.Status, ver)
		if !r.Installed {
			missing++
		}
	}

	if missing > 0 {
		fmt.Fprintf(w, "\n%d of %d dependencies missing. Run 'provision install' to install them.\n", missing, len(rows))
	}
}

// selectMissing returns the descriptors whose probe reported them absent,
// in catalog order. When names is non-empty only those dependencies are
// considered; an unknown name is an error.
func selectMissing(descs []catalog.Descriptor, results []probe.Result, names []string) ([]catalog.Descriptor, error) {
	wanted := map[string]bool{}
	for _, n := range names {
		d, ok := catalog.Find(descs, n)
		if !ok {
			return nil, fmt.Errorf("unknown dependency %q (run 'provision list' to see the catalog)", n)
		}
		wanted[d.Name] = true
	}

	var missing []catalog.Descriptor
	for i, d := range descs {
		if len(wanted) > 0 && !wanted[d.Name] {
			continue
		}
		if !results[i].Installed {
			missing = append(missing, d)
		}
	}
	return missing, nil
}

// dependencyNames joins descriptor names for display.
func dependencyNames(descs []catalog.Descriptor) string {
	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = d.Name
	}
	return strings.Join(names, ", ")
}

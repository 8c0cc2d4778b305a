package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/provision/internal/catalog"
	"github.com/tsukumogami/provision/internal/hostinfo"
	"github.com/tsukumogami/provision/internal/process"
)

var openCmd = &cobra.Command{
	Use:   "open <dependency>",
	Short: "Open a dependency's install page in the browser",
	Long: `Open the vendor install page of a dependency, for manual installation.

Examples:
  provision open nmap
  provision open "Android SDK Tools"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		env := loadEnvironment()

		d, ok := catalog.Find(env.catalog, args[0])
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown dependency %q\n", args[0])
			exitWithCode(ExitUsage)
		}
		if d.InstallPageURL == "" {
			fmt.Fprintf(os.Stderr, "Error: %s has no install page\n", d.Name)
			exitWithCode(ExitGeneral)
		}

		if err := hostinfo.OpenURL(process.NewRunner(0), d.InstallPageURL); err != nil {
			printError(err)
			fmt.Fprintf(os.Stderr, "Open %s manually.\n", d.InstallPageURL)
			exitWithCode(ExitGeneral)
		}
		printInfof("Opened %s\n", d.InstallPageURL)
	},
}

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/provision/internal/buildinfo"
	"github.com/tsukumogami/provision/internal/log"
)

var (
	quietFlag   bool
	verboseFlag bool
	debugFlag   bool
	catalogFlag string
)

var rootCmd = &cobra.Command{
	Use:   "provision",
	Short: "Detect and install the external tools a workstation needs",
	Long: `provision checks whether the tools required on this machine are
installed, and downloads and installs the missing ones.

Each tool has an install strategy: a silent package installer, an archive
expanded into Program Files with PATH configured, or a visible installer
the operator completes by hand.

Examples:
  provision check
  provision install --yes
  provision install git nodejs`,
	Version:       buildinfo.Version(),
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetDefault(log.New(log.NewCLIHandler(os.Stderr, determineLogLevel())))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Only print errors")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Print informational logs")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Print debug logs")
	rootCmd.PersistentFlags().StringVar(&catalogFlag, "catalog", "", "Catalog file overriding the built-in dependency table (default $PROVISION_HOME/catalog.toml)")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitWithCode(ExitUsage)
	}
}

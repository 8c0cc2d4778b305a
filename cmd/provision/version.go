package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/provision/internal/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the provision version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("provision %s\n", buildinfo.Version())
	},
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/provision/internal/catalog"
	"github.com/tsukumogami/provision/internal/log"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the dependency catalog",
	Long: `List every dependency provision knows about, with its install strategy
and download location. Entries from the catalog file are included.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		env := loadEnvironment()

		if jsonOutput {
			printJSON(env.catalog)
			return
		}
		renderList(os.Stdout, env.catalog)
	},
}

func init() {
	listCmd.Flags().Bool("json", false, "Print the catalog as JSON")
}

func renderList(w io.Writer, descs []catalog.Descriptor) {
	maxName := len("NAME")
	for _, d := range descs {
		if len(d.Name) > maxName {
			maxName = len(d.Name)
		}
	}

	fmt.Fprintf(w, "%-*s  %-17s  %s\n", maxName, "NAME", "STRATEGY", "DOWNLOAD")
	for _, d := range descs {
		source := log.SanitizeURL(d.DownloadURL)
		if d.Release != nil {
			source = fmt.Sprintf("%s (latest release of %s)", source, d.Release.Repo)
		}
		fmt.Fprintf(w, "%-*s  %-17s  %s\n", maxName, d.Name, d.Strategy, source)
	}
}

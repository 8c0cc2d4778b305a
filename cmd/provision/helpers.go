package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tsukumogami/provision/internal/catalog"
	"github.com/tsukumogami/provision/internal/config"
	"github.com/tsukumogami/provision/internal/errmsg"
	"github.com/tsukumogami/provision/internal/log"
	"github.com/tsukumogami/provision/internal/userconfig"
)

// Environment variables mirroring the verbosity flags.
const (
	envQuiet   = "PROVISION_QUIET"
	envVerbose = "PROVISION_VERBOSE"
	envDebug   = "PROVISION_DEBUG"
)

// isTruthy reports whether an environment value enables a setting.
func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// determineLogLevel maps the verbosity flags to a level. Flags take
// precedence over environment variables.
func determineLogLevel() slog.Level {
	if quietFlag || verboseFlag || debugFlag {
		return log.LevelFromFlags(quietFlag, verboseFlag, debugFlag)
	}
	return log.LevelFromFlags(isTruthy(os.Getenv(envQuiet)), isTruthy(os.Getenv(envVerbose)), isTruthy(os.Getenv(envDebug)))
}

// printInfo prints an informational message unless quiet mode is enabled
func printInfo(a ...interface{}) {
	if !quietFlag {
		fmt.Println(a...)
	}
}

// printInfof prints a formatted informational message unless quiet mode is enabled
func printInfof(format string, a ...interface{}) {
	if !quietFlag {
		fmt.Printf(format, a...)
	}
}

// printJSON marshals the given value to JSON and prints it to stdout
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		exitWithCode(ExitGeneral)
	}
}

// printError prints an error to stderr with suggestions if available.
func printError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", errmsg.Format(err, nil))
}

// environment bundles what every command needs: paths, user settings and
// the dependency table.
type environment struct {
	cfg     *config.Config
	user    *userconfig.Config
	catalog []catalog.Descriptor
}

// loadEnvironment reads the configuration and the catalog, honoring
// --catalog. Any failure exits the process.
func loadEnvironment() *environment {
	cfg, err := config.DefaultConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get config: %v\n", err)
		exitWithCode(ExitGeneral)
	}

	user, err := userconfig.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		exitWithCode(ExitGeneral)
	}

	path := cfg.CatalogFile
	if catalogFlag != "" {
		path = catalogFlag
	}
	descs, err := catalog.Load(path, catalog.ParseArch(user.Arch))
	if err != nil {
		printError(err)
		exitWithCode(ExitUsage)
	}
	log.Default().Debug("catalog loaded", "path", path, "dependencies", len(descs))

	return &environment{cfg: cfg, user: user, catalog: descs}
}

package cli

import (
	"azdoexport/internal/flags"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "azdoexport",
	Short: "Export an Azure DevOps project's process configuration to JSON",
	Long: `azdoexport reads one Azure DevOps project over the core, analytics and
identity APIs and writes its process configuration and activity metrics as a
single JSON document.

azdoexport is read-only: it fetches, it never mutates.

Examples:
	# Show available commands and global flags
	azdoexport --help

	# Export a project
	azdoexport process "Fabrikam Fiber" --organization fabrikam

	# List the document sections an export produces
	azdoexport sections

	# Print build info
	azdoexport version

Output:
	The process command writes the export document to --out (default:
	process.json). Human-readable progress and the run summary go to stderr,
	as JSON log lines and a short colored epilogue.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfg.Logging.Level, flags.FlagLogLevel, cfg.Logging.Level, "Log level: trace|debug|info|warning|error")
	rootCmd.PersistentFlags().StringVar(&cfg.Logging.File, flags.FlagLogFile, "", "Also write JSON log lines to this file")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

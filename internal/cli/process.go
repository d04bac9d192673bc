package cli

import (
	"azdoexport/internal/config"
	"azdoexport/internal/engine"
	"azdoexport/internal/flags"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfg = config.New()

var configPath string

const processHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
	azdoexport authenticates to Azure DevOps with one credential, resolved
	once per run and validated against the organization before any fetch.

	Sources (in order):
	1) --pat flag or AZDO_PAT environment variable (authoritative when set)
	2) Ambient Azure credential chain (environment, managed identity, Azure CLI)

  Token guidance (brief):
  - The PAT needs read access to Project and Team, Work Items, Analytics,
    Graph and Identity.
  - AZDO_ORGANIZATION can stand in for --organization.

  Examples:
    # macOS/Linux
    export AZDO_PAT="<your_token>"
    azdoexport process Fabrikam --organization fabrikam

		# Azure CLI auth
		az login
		azdoexport process Fabrikam --organization fabrikam

    # Windows PowerShell
    $env:AZDO_PAT = "<your_token>"
    azdoexport process Fabrikam --organization fabrikam

{{if .HasAvailableSubCommands}}Available Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasHelpSubCommands}}Additional help topics:
{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

var processCmd = &cobra.Command{
	Use:   "process <project>",
	Short: "Export one project's process configuration",
	Long: `Export one Azure DevOps project's process configuration and twelve months
of activity metrics as a single JSON document.

azdoexport is read-only: it reads project, process, team, identity and
analytics data over the REST APIs and never mutates state.

Authentication:
  An explicit PAT (--pat or AZDO_PAT) is authoritative; when it is rejected
  the run fails rather than silently trying something else. Without one, the
  ambient Azure credential chain is consulted (environment, managed
  identity, Azure CLI).

Output:
	The export document is written to --out (default: process.json). The
	document is deterministic: every list is sorted, and re-running against
	unchanged data differs only in the exportedAt timestamp.

	Sections that could not be fetched degrade to warnings; warnings appear
	in the document and in the end-of-run summary on stderr.

Exit codes:
	0 = export complete, no warnings
	1 = export complete with warnings, or a configuration error
	2 = authentication failed, or the run aborted on a fatal error

Examples:
  # PAT via environment variable
  export AZDO_PAT="<your_token>"
  azdoexport process Fabrikam --organization fabrikam

  # Organization as a URL, document to a custom path
  azdoexport process Fabrikam --organization https://dev.azure.com/fabrikam --out fabrikam.json

	# Skip the analytics counters
	azdoexport process Fabrikam --organization fabrikam --skip-metrics

	# Tune retry/breaker behavior via config file
	azdoexport process Fabrikam --organization fabrikam --config export.yaml
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg.Target.Project = args[0]

		if err := loadConfigFile(cmd, cfg, configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		applyEnvDefaults(cfg)

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		eng := engine.NewEngine()
		os.Exit(eng.Run(context.Background(), cfg))
	},
}

// loadConfigFile applies the YAML override file. Flags bind straight into
// cfg, so values given on the command line are stashed and re-applied after
// the load: flags win over the file, the file wins over defaults.
func loadConfigFile(cmd *cobra.Command, cfg *config.Config, path string) error {
	level, file := cfg.Logging.Level, cfg.Logging.File

	var err error
	if path != "" {
		err = config.LoadFile(path, cfg)
	} else {
		err = config.LoadFileOrDefault(config.DefaultFileName, cfg)
	}
	if err != nil {
		return err
	}

	if cmd.Flags().Changed(flags.FlagLogLevel) {
		cfg.Logging.Level = level
	}
	if cmd.Flags().Changed(flags.FlagLogFile) {
		cfg.Logging.File = file
	}
	return nil
}

// applyEnvDefaults fills from the environment only what the command line
// left empty. The PAT read here becomes the explicit token of the credential
// resolver; the ambient Azure chain has its own environment handling.
func applyEnvDefaults(cfg *config.Config) {
	if cfg.Target.Organization == "" {
		cfg.Target.Organization = os.Getenv("AZDO_ORGANIZATION")
	}
	if cfg.Auth.PAT == "" {
		cfg.Auth.PAT = os.Getenv("AZDO_PAT")
	}
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.SetHelpTemplate(processHelpTemplate)

	// MAINTAINER NOTE: If you add/change/remove flags here, keep the
	// defaults in internal/config/config.go and the override handling in
	// loadConfigFile in sync.

	// Target
	processCmd.Flags().StringVar(&cfg.Target.Organization, flags.FlagOrganization, "", "Azure DevOps organization (name or https://dev.azure.com/{org} URL)")

	// Auth
	processCmd.Flags().StringVar(&cfg.Auth.PAT, flags.FlagPAT, "", "Personal access token (default: AZDO_PAT, then the ambient Azure credential chain)")

	// Fetch
	processCmd.Flags().IntVar(&cfg.Fetch.Concurrency, flags.FlagConcurrency, cfg.Fetch.Concurrency, "Concurrent fetch tasks")
	processCmd.Flags().DurationVar(&cfg.Fetch.Timeout, flags.FlagTimeout, cfg.Fetch.Timeout, "Global run timeout")
	processCmd.Flags().BoolVar(&cfg.Fetch.SkipMetrics, flags.FlagSkipMetrics, false, "Skip the analytics activity counters (metrics: null in the document)")

	// Output
	processCmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, cfg.Output.Out, "Write the export document to this path")

	// Config file
	processCmd.Flags().StringVar(&configPath, flags.FlagConfig, "", "YAML file with retry/breaker/classification/logging overrides (default: "+config.DefaultFileName+" if present)")
}

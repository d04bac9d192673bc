package flags

// Package flags defines canonical CLI flag names shared across the CLI.
// Keeping these as constants helps avoid drift between Cobra flag wiring and
// other code paths that need to reference flags (e.g. precedence handling
// after the config file load).
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Target.Organization, flags.FlagOrganization, "", "...")
//	arg := "--" + flags.FlagOrganization
const (
	// Target
	FlagOrganization = "organization"

	// Auth
	FlagPAT = "pat"

	// Fetch
	FlagConcurrency = "concurrency"
	FlagTimeout     = "timeout"
	FlagSkipMetrics = "skip-metrics"

	// Output
	FlagOut = "out"

	// Logging
	FlagLogLevel = "log-level"
	FlagLogFile  = "log-file"

	// Config file
	FlagConfig = "config"
)

package config

import (
	"azdoexport/internal/fetcher"
	"azdoexport/internal/logging"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields that affect run
	// behavior, keep the CLI flags in internal/cli/process.go in sync.
	Target  Target
	Auth    Auth
	Fetch   Fetch
	Retry   fetcher.RetryPolicy
	Breaker fetcher.BreakerPolicy

	// Classify overrides the per-entity-class failure policies. Classes
	// absent here keep the stock policy.
	Classify fetcher.ClassificationTable

	Output  Output
	Logging Logging
}

type Target struct {
	// Organization is the Azure DevOps organization to export from
	// (name or https://dev.azure.com/{org} URL; see --organization).
	Organization string

	// Project is the project whose process configuration is exported
	// (positional argument of the process command).
	Project string
}

type Auth struct {
	// PAT is an explicit personal access token (see --pat, env AZDO_PAT).
	// When empty the ambient Azure credential chain is consulted instead.
	PAT string
}

type Fetch struct {
	// Concurrency caps how many fetch tasks are in flight at once
	// (see --concurrency). Must be >= 1.
	Concurrency int

	// Timeout bounds the whole run; the run context is cancelled when it
	// elapses (see --timeout). Must be > 0.
	Timeout time.Duration

	// SkipMetrics drops the analytics counter tasks from the plan
	// (see --skip-metrics). The document then carries metrics: null.
	SkipMetrics bool
}

type Output struct {
	// Out is the path the export document is written to (see --out).
	Out string
}

type Logging struct {
	// Level is the minimum level emitted (see --log-level).
	// Allowed values: trace, debug, info, warning, error.
	Level string `yaml:"level"`

	// File mirrors every log record to this path when set (see --log-file).
	File string `yaml:"file"`
}

func New() *Config {
	return &Config{
		Fetch: Fetch{
			Concurrency: 10,
			Timeout:     10 * time.Minute,
		},
		Retry:    fetcher.DefaultRetryPolicy(),
		Breaker:  fetcher.DefaultBreakerPolicy(),
		Classify: fetcher.DefaultClassificationTable(),
		Output: Output{
			Out: "process.json",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

func (c *Config) Validate() error {
	// Normalize the organization selector. A missing organization is not an
	// error here: the credential resolver reports it as a ConfigurationError
	// so the process command can point at --organization/AZDO_ORGANIZATION.
	if c.Target.Organization != "" {
		org, err := normalizeOrganization(c.Target.Organization)
		if err != nil {
			return fmt.Errorf("invalid --organization value: %w", err)
		}
		c.Target.Organization = org
	}

	c.Target.Project = strings.TrimSpace(c.Target.Project)
	if c.Target.Project == "" {
		return errors.New("a project must be provided")
	}

	if c.Fetch.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Fetch.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}

	if err := c.Retry.Validate(); err != nil {
		return err
	}
	if err := c.Breaker.Validate(); err != nil {
		return err
	}
	if err := c.Classify.Validate(); err != nil {
		return err
	}

	if strings.TrimSpace(c.Output.Out) == "" {
		return errors.New("--out must not be empty")
	}

	c.Logging.Level = normalizeEnumValue(c.Logging.Level)
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}

	return nil
}

// LogLevel returns the parsed minimum log level. Call after Validate.
func (c *Config) LogLevel() logging.Level {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return logging.LevelInfo
	}
	return level
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func normalizeOrganization(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	// Accept a raw organization name, or an Azure DevOps URL like:
	//   https://dev.azure.com/<org>
	//   dev.azure.com/<org>
	//   https://<org>.visualstudio.com (legacy host)
	if strings.HasPrefix(raw, "dev.azure.com/") {
		raw = "https://" + raw
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%q", raw)
		}
		host := strings.ToLower(u.Hostname())
		if host == "dev.azure.com" {
			parts := strings.FieldsFunc(strings.Trim(u.Path, "/"), func(r rune) bool { return r == '/' })
			if len(parts) == 0 {
				return "", fmt.Errorf("%q", raw)
			}
			return parts[0], nil
		}
		if org, ok := strings.CutSuffix(host, ".visualstudio.com"); ok && org != "" {
			return org, nil
		}
		return "", fmt.Errorf("%q", raw)
	}

	// Basic sanity: reject org/project-like inputs.
	if strings.Contains(raw, "/") {
		return "", fmt.Errorf("%q", raw)
	}
	return raw, nil
}

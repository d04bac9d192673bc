package engine

import (
	"azdoexport/internal/azdo"
	"azdoexport/internal/config"
	"azdoexport/internal/export"
	"azdoexport/internal/fetcher"
	"azdoexport/internal/logging"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

func exitCodeForRun(report *export.Report) int {
	// Exit code contract:
	// 0 = complete, no warnings
	// 1 = complete with warnings
	// 2 = aborted (fatal error)
	if report.Status == export.StatusAborted {
		return 2
	}
	if len(report.Warnings) > 0 {
		return 1
	}
	return 0
}

// exitCodeForSetupError maps failures that stop the run before any task is
// dispatched onto the same contract: missing configuration exits 1; a
// credential that could not be established, like any other abort, exits 2.
func exitCodeForSetupError(err error) int {
	var confErr *azdo.ConfigurationError
	if errors.As(err, &confErr) {
		return 1
	}
	return 2
}

// Engine wires one export run end to end: credential, client, plan,
// scheduler, aggregation, assembly, document write.
type Engine struct {
	// clientOptions are applied to every client the run builds, the
	// credential validation probe included. Tests point them at fake
	// servers.
	clientOptions []azdo.Option

	// console receives human-facing errors and the end-of-run summary.
	// The structured log stream goes through logConsole instead, so both
	// default to stderr and stdout stays clean.
	console    io.Writer
	logConsole io.Writer

	// now feeds the document's exportedAt stamp.
	now func() time.Time
}

func NewEngine(opts ...azdo.Option) *Engine {
	return &Engine{
		clientOptions: opts,
		console:       os.Stderr,
		logConsole:    os.Stderr,
		now:           time.Now,
	}
}

// Run executes one export and returns the process exit code.
func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	log := logging.New(cfg.LogLevel(), e.logConsole).With(logging.F("run_id", uuid.NewString()))
	if cfg.Logging.File != "" {
		if err := log.AttachFile(cfg.Logging.File); err != nil {
			fmt.Fprintf(e.console, "Error: %v\n", err)
			return 1
		}
	}
	// The file sink is flushed on every exit path below, aborts included.
	defer log.Close()

	runCtx, cancel := context.WithTimeout(ctx, cfg.Fetch.Timeout)
	defer cancel()

	resolver := azdo.NewResolver(log, cfg.Target.Organization, cfg.Auth.PAT, e.clientOptions...)
	cred, err := resolver.Resolve(runCtx)
	if err != nil {
		e.reportSetupError(err)
		return exitCodeForSetupError(err)
	}

	client, err := azdo.NewClient(cfg.Target.Organization, cred,
		append([]azdo.Option{azdo.WithLogger(log)}, e.clientOptions...)...)
	if err != nil {
		e.reportSetupError(err)
		return exitCodeForSetupError(err)
	}

	f, err := fetcher.NewFetcher(client, cfg.Target.Project, log)
	if err != nil {
		e.reportSetupError(err)
		return exitCodeForSetupError(err)
	}
	executor, err := fetcher.NewExecutor(f, cfg.Retry, cfg.Breaker, cfg.Classify, log)
	if err != nil {
		e.reportSetupError(err)
		return exitCodeForSetupError(err)
	}
	plan, err := BuildPlan(cfg.Fetch.SkipMetrics)
	if err != nil {
		e.reportSetupError(err)
		return exitCodeForSetupError(err)
	}
	scheduler, err := NewScheduler(executor, cfg.Fetch.Concurrency)
	if err != nil {
		e.reportSetupError(err)
		return exitCodeForSetupError(err)
	}

	log.Info("run.started",
		logging.F("organization", cfg.Target.Organization),
		logging.F("project", cfg.Target.Project),
		logging.F("tasks", len(plan.Tasks)),
		logging.F("concurrency", cfg.Fetch.Concurrency))

	resCh, errCh := scheduler.Execute(runCtx, plan)
	report := Aggregate(resCh, cancel, log.Named("aggregate"))

	var schedErr error
	// Drain scheduler errors; keep one non-nil error.
	for err := range errCh {
		if err != nil {
			schedErr = err
		}
	}
	// A scheduler-level error with no fatal task result still aborts: an
	// empty or partial report must never be written as a clean export.
	if schedErr != nil && report.Fatal == nil {
		report.Fatal = schedErr
		report.Status = export.StatusAborted
	}

	if report.Status == export.StatusComplete {
		doc, err := export.Assemble(report, cfg.Target.Organization, e.now().UTC())
		if err == nil {
			err = export.Write(cfg.Output.Out, doc)
		}
		if err != nil {
			report.Fatal = err
			report.Status = export.StatusAborted
		}
	}

	code := exitCodeForRun(report)
	log.Info("run.finished",
		logging.F("status", string(report.Status)),
		logging.F("warnings", len(report.Warnings)),
		logging.F("exit_code", code))
	e.printSummary(report, cfg.Output.Out)
	return code
}

func (e *Engine) reportSetupError(err error) {
	fmt.Fprintf(e.console, "Error: %v\n", err)
	var authErr *azdo.AuthenticationError
	if errors.As(err, &authErr) {
		fmt.Fprintln(e.console, authErr.Hint())
	}
}

func (e *Engine) printSummary(report *export.Report, outPath string) {
	if report.Status == export.StatusAborted {
		color.New(color.FgRed).Fprintf(e.console, "Export aborted: %v\n", report.Fatal)
		return
	}
	color.New(color.FgGreen).Fprintf(e.console, "Export written to %s\n", outPath)
	if len(report.Warnings) == 0 {
		return
	}
	yellow := color.New(color.FgYellow)
	yellow.Fprintf(e.console, "Completed with %d warning(s):\n", len(report.Warnings))
	for _, w := range report.Warnings {
		yellow.Fprintf(e.console, "  %s: %s\n", w.Entity, w.Message)
	}
}

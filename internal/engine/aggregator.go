package engine

import (
	"azdoexport/internal/export"
	"azdoexport/internal/fetcher"
	"azdoexport/internal/logging"
	"context"
	"fmt"
)

// Aggregate folds the scheduler's result stream into a report. It always
// drains the stream to the close so the scheduler never blocks on a send.
//
// The first fatal result records the cause, cancels the run via cancel, and
// switches the aggregator to discard mode: later results are observed (so
// the stream drains) but no longer mutate the report. Re-observing a task
// that already merged is a no-op, so the folded report does not depend on
// completion order.
func Aggregate(results <-chan fetcher.Result, cancel context.CancelFunc, log *logging.Logger) *export.Report {
	report := export.NewReport()
	seen := make(map[fetcher.EntityClass]bool)

	for res := range results {
		if seen[res.Task.Entity] {
			log.Debug("aggregate.duplicate", logging.F("task", res.Task.ID))
			continue
		}
		seen[res.Task.Entity] = true

		if report.Fatal != nil {
			log.Debug("aggregate.discard",
				logging.F("task", res.Task.ID),
				logging.F("disposition", string(res.Disposition)))
			continue
		}

		switch res.Disposition {
		case fetcher.DispositionSuccess:
			report.Sections[res.Task.Entity] = res.Payload
			log.Debug("aggregate.merge",
				logging.F("task", res.Task.ID),
				logging.F("attempts", res.Attempts))

		case fetcher.DispositionWarning:
			report.Warnings = append(report.Warnings, export.Warning{
				Entity:  res.Task.Entity,
				Message: res.Err.Error(),
			})

		case fetcher.DispositionFatal:
			report.Fatal = fmt.Errorf("%s: %w", res.Task.Entity, res.Err)
			report.Status = export.StatusAborted
			if cancel != nil {
				cancel()
			}

		default:
			report.Fatal = fmt.Errorf("%s: unknown disposition %q", res.Task.Entity, res.Disposition)
			report.Status = export.StatusAborted
			if cancel != nil {
				cancel()
			}
		}
	}
	return report
}

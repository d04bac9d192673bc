package engine

import (
	"azdoexport/internal/fetcher"
	"context"
	"errors"
	"fmt"
	"sync"
)

type Scheduler struct {
	executor    *fetcher.Executor
	concurrency int
}

func NewScheduler(executor *fetcher.Executor, concurrency int) (*Scheduler, error) {
	if executor == nil {
		return nil, errors.New("executor is nil")
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", concurrency)
	}
	return &Scheduler{executor: executor, concurrency: concurrency}, nil
}

// Execute streams one terminal result per planned task.
//
// Channel semantics:
//   - Every task in the plan yields exactly one Result, cancellation
//     included: tasks that never dispatched come back as fatal with the
//     cancellation cause. The consumer must drain the results channel.
//   - Dispatch follows plan order; completion order is whatever the service
//     gives us.
//   - Once cancelled, no new task is dispatched; in-flight tasks finish
//     their current attempt and report.
//   - Both channels are closed when the run is drained. The error channel
//     carries at most one scheduler-level error.
func (s *Scheduler) Execute(ctx context.Context, plan *Plan) (<-chan fetcher.Result, <-chan error) {
	resultsCh := make(chan fetcher.Result)
	errCh := make(chan error, 1)

	go func() {
		defer close(resultsCh)
		defer close(errCh)

		trySendErr := func(err error) {
			if err == nil {
				return
			}
			select {
			case errCh <- err:
			default:
			}
		}

		if ctx == nil {
			trySendErr(errors.New("context is nil"))
			return
		}
		if plan == nil {
			trySendErr(errors.New("plan is nil"))
			return
		}

		// Even when the run cannot start, every planned task still owes its
		// terminal result.
		abortAll := func(cause error) {
			for _, task := range plan.Tasks {
				resultsCh <- fetcher.Result{
					Task:        task,
					Disposition: fetcher.DispositionFatal,
					Err:         cause,
				}
			}
		}

		if s == nil || s.executor == nil {
			err := errors.New("scheduler executor is nil")
			abortAll(err)
			trySendErr(err)
			return
		}
		if s.concurrency <= 0 {
			err := fmt.Errorf("scheduler concurrency must be >= 1, got %d", s.concurrency)
			abortAll(err)
			trySendErr(err)
			return
		}

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		// Limit in-flight tasks.
		sem := make(chan struct{}, s.concurrency)
		var wg sync.WaitGroup

		dispatched := 0

	scheduleLoop:
		for _, task := range plan.Tasks {
			if runCtx.Err() != nil {
				break
			}

			select {
			case sem <- struct{}{}:
				// Re-check after acquiring: a slot freed by a task that
				// finished during cancellation must not admit new work.
				if runCtx.Err() != nil {
					<-sem
					break scheduleLoop
				}
			case <-runCtx.Done():
				break scheduleLoop
			}

			dispatched++
			wg.Add(1)
			go func(task fetcher.Task) {
				defer wg.Done()
				defer func() { <-sem }()

				// The send is unconditional: the consumer drains to the
				// close, so a dispatched task always delivers its result.
				resultsCh <- s.executor.Do(runCtx, task)
			}(task)
		}

		wg.Wait()

		// Dispatch stops only on cancellation, so the cut-off tasks report
		// the context error as their cause.
		if dispatched < len(plan.Tasks) {
			cause := runCtx.Err()
			for _, task := range plan.Tasks[dispatched:] {
				resultsCh <- fetcher.Result{
					Task:        task,
					Disposition: fetcher.DispositionFatal,
					Err:         fmt.Errorf("not dispatched: %w", cause),
				}
			}
		}

		trySendErr(ctx.Err())
	}()

	return resultsCh, errCh
}

package fetcher

import (
	"azdoexport/internal/azdo"
	"azdoexport/internal/logging"
	"context"
	"fmt"
	"sync"
	"time"
)

// attemptOutcome is the classification of a single adapter attempt.
type attemptOutcome string

const (
	outcomeSuccess   attemptOutcome = "success"
	outcomeTransient attemptOutcome = "transient"
	outcomeFatal     attemptOutcome = "fatal"
)

// Executor runs one task through the adapter with retry, backoff and
// per-source-class circuit breaking, and classifies the terminal result.
// Classification happens here, at the lowest layer that sees the raw error.
type Executor struct {
	fetcher *Fetcher
	retry   RetryPolicy
	breaker BreakerPolicy
	table   ClassificationTable
	log     *logging.Logger

	mu       sync.Mutex
	breakers map[SourceClass]*Breaker

	// sleep is context-aware backoff sleeping. Swapped in tests for a
	// recording fake.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewExecutor(f *Fetcher, retry RetryPolicy, breaker BreakerPolicy, table ClassificationTable, log *logging.Logger) (*Executor, error) {
	if f == nil {
		return nil, fmt.Errorf("executor: nil fetcher")
	}
	if err := retry.Validate(); err != nil {
		return nil, err
	}
	if err := breaker.Validate(); err != nil {
		return nil, err
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		return nil, fmt.Errorf("executor: nil logger")
	}
	return &Executor{
		fetcher:  f,
		retry:    retry,
		breaker:  breaker,
		table:    table,
		log:      log.Named("executor"),
		breakers: make(map[SourceClass]*Breaker),
		sleep:    sleepCtx,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// BreakerFor returns the breaker guarding a source class, creating it on
// first use.
func (e *Executor) BreakerFor(source SourceClass) *Breaker {
	e.mu.Lock()
	defer e.mu.Unlock()
	br, ok := e.breakers[source]
	if !ok {
		br = NewBreaker(e.breaker)
		br.OnStateChange(func(from, to string) {
			e.log.Warning("breaker.transition",
				logging.F("source", string(source)),
				logging.F("from", from),
				logging.F("to", to))
		})
		e.breakers[source] = br
	}
	return br
}

// Do executes one task to a terminal Result. It never panics and never
// returns an error: failures come back as data.
func (e *Executor) Do(ctx context.Context, task Task) Result {
	if err := ctx.Err(); err != nil {
		return Result{Task: task, Disposition: DispositionFatal, Err: err}
	}

	adapter, ok := ResolveAdapter(task.Entity)
	if !ok {
		return Result{
			Task:        task,
			Disposition: DispositionFatal,
			Err:         fmt.Errorf("no adapter registered for entity class %q", task.Entity),
		}
	}

	br := e.BreakerFor(task.Source)
	if !br.Allow() {
		err := fmt.Errorf("circuit open for source class %q", task.Source)
		e.log.Warning("fetch.rejected",
			logging.F("task", task.ID),
			logging.F("source", string(task.Source)))
		return Result{Task: task, Disposition: DispositionFatal, Err: err}
	}

	policy := e.table.For(task.Entity)

	for attempt := 1; ; attempt++ {
		payload, err := adapter.Fetch(ctx, e.fetcher)
		outcome := classifyAttempt(ctx, err)

		var backoff time.Duration
		if outcome == outcomeTransient && attempt < e.retry.MaxAttempts {
			backoff = e.retry.Delay(attempt)
		}
		e.log.Debug("fetch.attempt",
			logging.F("task", task.ID),
			logging.F("source", string(task.Source)),
			logging.F("attempt", attempt),
			logging.F("outcome", string(outcome)),
			logging.F("backoff_ms", backoff.Milliseconds()),
			logging.Err(err))

		switch outcome {
		case outcomeSuccess:
			br.RecordSuccess()
			return Result{Task: task, Disposition: DispositionSuccess, Payload: payload, Attempts: attempt}

		case outcomeTransient:
			br.RecordFailure()
			if attempt >= e.retry.MaxAttempts {
				err = fmt.Errorf("retries exhausted after %d attempts: %w", attempt, err)
				return e.terminal(task, policy.OnExhausted, err, attempt)
			}
			if sleepErr := e.sleep(ctx, backoff); sleepErr != nil {
				// Cancelled mid-backoff: the task is abandoned at the
				// attempt boundary.
				return Result{Task: task, Disposition: DispositionFatal, Err: sleepErr, Attempts: attempt}
			}

		default:
			if ctx.Err() != nil {
				// Cancellation is not a source failure; it bypasses both
				// the breaker count and the classification table.
				return Result{Task: task, Disposition: DispositionFatal, Err: ctx.Err(), Attempts: attempt}
			}
			// Fatal outcomes bypass retry and breaker counting entirely.
			return e.terminal(task, policy.OnFatal, err, attempt)
		}
	}
}

func (e *Executor) terminal(task Task, mode FailureMode, err error, attempts int) Result {
	if mode == FailWarn {
		e.log.Warning("fetch.degraded",
			logging.F("task", task.ID),
			logging.F("attempts", attempts),
			logging.Err(err))
		return Result{Task: task, Disposition: DispositionWarning, Err: err, Attempts: attempts}
	}
	e.log.Error("fetch.failed",
		logging.F("task", task.ID),
		logging.F("attempts", attempts),
		logging.Err(err))
	return Result{Task: task, Disposition: DispositionFatal, Err: err, Attempts: attempts}
}

func classifyAttempt(ctx context.Context, err error) attemptOutcome {
	switch {
	case err == nil:
		return outcomeSuccess
	case ctx.Err() != nil:
		return outcomeFatal
	case azdo.IsTransient(err):
		return outcomeTransient
	default:
		return outcomeFatal
	}
}

package engine

import (
	"azdoexport/internal/azdo"
	"azdoexport/internal/fetcher"
	"azdoexport/internal/logging"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeAdapter is a controllable adapter for scheduler tests. Entity classes
// must be unique per test: the registry is global and forbids duplicates.
type fakeAdapter struct {
	entity fetcher.EntityClass
	source fetcher.SourceClass
	fetch  func(ctx context.Context) (any, error)
}

func (a *fakeAdapter) Entity() fetcher.EntityClass { return a.entity }
func (a *fakeAdapter) Source() fetcher.SourceClass { return a.source }
func (a *fakeAdapter) Fetch(ctx context.Context, _ *fetcher.Fetcher) (any, error) {
	return a.fetch(ctx)
}

func newTestExecutor(t *testing.T) *fetcher.Executor {
	t.Helper()

	// The fake adapters never touch the client; the address only has to
	// parse.
	client, err := azdo.NewClient("fabrikam", azdo.NewPATCredential("pat"), azdo.WithBaseURL("http://127.0.0.1:1"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	log := logging.New(logging.LevelError, io.Discard)
	f, err := fetcher.NewFetcher(client, "Fabrikam", log)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	executor, err := fetcher.NewExecutor(f, fetcher.RetryPolicy{
		MaxAttempts: 1,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
	}, fetcher.DefaultBreakerPolicy(), nil, log)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	return executor
}

// registerFakeTasks registers n fake adapters under the given prefix and
// returns the plan listing them in index order.
func registerFakeTasks(t *testing.T, prefix string, n int, fetch func(ctx context.Context, i int) (any, error)) *Plan {
	t.Helper()
	plan := &Plan{}
	for i := 0; i < n; i++ {
		entity := fetcher.EntityClass(fmt.Sprintf("%s.%d", prefix, i))
		fetcher.RegisterAdapter(&fakeAdapter{
			entity: entity,
			source: fetcher.SourceCore,
			fetch:  func(ctx context.Context) (any, error) { return fetch(ctx, i) },
		})
		plan.Tasks = append(plan.Tasks, fetcher.NewTask(entity, fetcher.SourceCore))
	}
	return plan
}

func TestScheduler_Execute_OneResultPerTask_AndChannelsClose(t *testing.T) {
	plan := registerFakeTasks(t, "sched-all", 5, func(ctx context.Context, i int) (any, error) {
		return fmt.Sprintf("payload-%d", i), nil
	})

	scheduler, err := NewScheduler(newTestExecutor(t), 3)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	resCh, errCh := scheduler.Execute(context.Background(), plan)

	got := make(map[fetcher.EntityClass]fetcher.Result)
	for res := range resCh {
		if _, dup := got[res.Task.Entity]; dup {
			t.Fatalf("duplicate result for %s", res.Task.ID)
		}
		got[res.Task.Entity] = res
	}
	for err := range errCh {
		if err != nil {
			t.Fatalf("expected no scheduler error, got %v", err)
		}
	}

	if len(got) != len(plan.Tasks) {
		t.Fatalf("expected %d results, got %d", len(plan.Tasks), len(got))
	}
	for _, task := range plan.Tasks {
		res, ok := got[task.Entity]
		if !ok {
			t.Fatalf("missing result for %s", task.ID)
		}
		if res.Disposition != fetcher.DispositionSuccess {
			t.Fatalf("task %s: expected success, got %s (%v)", task.ID, res.Disposition, res.Err)
		}
		if res.Payload == nil {
			t.Fatalf("task %s: expected a payload", task.ID)
		}
	}
}

func TestScheduler_Execute_CeilingHolds(t *testing.T) {
	var mu sync.Mutex
	inflight, high := 0, 0

	plan := registerFakeTasks(t, "sched-ceiling", 12, func(ctx context.Context, i int) (any, error) {
		mu.Lock()
		inflight++
		if inflight > high {
			high = inflight
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inflight--
		mu.Unlock()
		return i, nil
	})

	scheduler, err := NewScheduler(newTestExecutor(t), 3)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	resCh, errCh := scheduler.Execute(context.Background(), plan)

	count := 0
	for range resCh {
		count++
	}
	for range errCh {
		// no scheduler errors expected
	}

	if count != 12 {
		t.Fatalf("expected 12 results, got %d", count)
	}
	if high > 3 {
		t.Fatalf("concurrency ceiling exceeded: %d tasks in flight", high)
	}
}

func TestScheduler_Execute_DispatchFollowsPlanOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string

	plan := registerFakeTasks(t, "sched-order", 6, func(ctx context.Context, i int) (any, error) {
		mu.Lock()
		order = append(order, fmt.Sprintf("sched-order.%d", i))
		mu.Unlock()
		return i, nil
	})

	// Concurrency 1 serializes dispatch, so invocation order is plan order.
	scheduler, err := NewScheduler(newTestExecutor(t), 1)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	resCh, errCh := scheduler.Execute(context.Background(), plan)
	for range resCh {
		// drain
	}
	for range errCh {
		// drain
	}

	if len(order) != 6 {
		t.Fatalf("expected 6 dispatches, got %d", len(order))
	}
	for i, id := range order {
		if want := fmt.Sprintf("sched-order.%d", i); id != want {
			t.Fatalf("dispatch order[%d] = %s, want %s", i, id, want)
		}
	}
}

func TestScheduler_Execute_CancellationEmitsPendingAsFatal(t *testing.T) {
	started := make(chan struct{})
	plan := registerFakeTasks(t, "sched-cancel", 3, func(ctx context.Context, i int) (any, error) {
		if i == 0 {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return i, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Concurrency 1: task 0 holds the only slot, tasks 1 and 2 never start.
	scheduler, err := NewScheduler(newTestExecutor(t), 1)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	resCh, errCh := scheduler.Execute(ctx, plan)

	<-started
	cancel()

	got := make(map[fetcher.EntityClass]fetcher.Result)
	for res := range resCh {
		if _, dup := got[res.Task.Entity]; dup {
			t.Fatalf("duplicate result for %s", res.Task.ID)
		}
		got[res.Task.Entity] = res
	}

	if len(got) != 3 {
		t.Fatalf("expected one result per planned task, got %d", len(got))
	}
	first := got[fetcher.EntityClass("sched-cancel.0")]
	if first.Disposition != fetcher.DispositionFatal || !errors.Is(first.Err, context.Canceled) {
		t.Fatalf("expected the in-flight task to abort with the context error, got %s (%v)", first.Disposition, first.Err)
	}
	for _, i := range []int{1, 2} {
		res := got[fetcher.EntityClass(fmt.Sprintf("sched-cancel.%d", i))]
		if res.Disposition != fetcher.DispositionFatal {
			t.Fatalf("expected pending task %d to come back fatal, got %s", i, res.Disposition)
		}
		if !strings.Contains(res.Err.Error(), "not dispatched") || !errors.Is(res.Err, context.Canceled) {
			t.Fatalf("expected a not-dispatched cause for task %d, got %v", i, res.Err)
		}
	}

	var gotErr error
	for err := range errCh {
		gotErr = err
	}
	if !errors.Is(gotErr, context.Canceled) {
		t.Fatalf("expected cancellation on the error channel, got %v", gotErr)
	}
}

func TestScheduler_Execute_UnknownEntityClassYieldsFatalResult(t *testing.T) {
	plan := &Plan{Tasks: []fetcher.Task{fetcher.NewTask("sched-unknown.0", fetcher.SourceCore)}}

	scheduler, err := NewScheduler(newTestExecutor(t), 2)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	resCh, errCh := scheduler.Execute(context.Background(), plan)

	var results []fetcher.Result
	for res := range resCh {
		results = append(results, res)
	}
	for range errCh {
		// drain
	}

	if len(results) != 1 {
		t.Fatalf("expected exactly 1 result, got %d", len(results))
	}
	if results[0].Disposition != fetcher.DispositionFatal {
		t.Fatalf("expected fatal, got %s", results[0].Disposition)
	}
	if !strings.Contains(results[0].Err.Error(), "no adapter registered") {
		t.Fatalf("expected an unregistered-adapter cause, got %v", results[0].Err)
	}
}

func TestNewScheduler_Validation(t *testing.T) {
	if _, err := NewScheduler(nil, 2); err == nil {
		t.Fatalf("expected error for nil executor")
	}
	if _, err := NewScheduler(newTestExecutor(t), 0); err == nil {
		t.Fatalf("expected error for zero concurrency")
	}
}

func TestScheduler_Execute_NilPlan(t *testing.T) {
	scheduler, err := NewScheduler(newTestExecutor(t), 2)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	resCh, errCh := scheduler.Execute(context.Background(), nil)

	for range resCh {
		t.Fatalf("expected no results for a nil plan")
	}
	var gotErr error
	for err := range errCh {
		gotErr = err
	}
	if gotErr == nil {
		t.Fatalf("expected a scheduler error")
	}
}

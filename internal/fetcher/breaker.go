package fetcher

import (
	"fmt"
	"sync"
	"time"
)

// BreakerPolicy configures the per-source-class circuit breakers.
type BreakerPolicy struct {
	// FailureThreshold is the number of consecutive failed attempts that
	// opens the breaker.
	FailureThreshold int `yaml:"failure_threshold"`
	// Cooldown is how long an open breaker rejects work before admitting a
	// single half-open probe.
	Cooldown time.Duration `yaml:"cooldown"`
}

func DefaultBreakerPolicy() BreakerPolicy {
	return BreakerPolicy{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

func (p BreakerPolicy) Validate() error {
	if p.FailureThreshold < 1 {
		return fmt.Errorf("breaker: failure threshold must be >= 1, got %d", p.FailureThreshold)
	}
	if p.Cooldown <= 0 {
		return fmt.Errorf("breaker: cooldown must be > 0, got %s", p.Cooldown)
	}
	return nil
}

const (
	BreakerClosed   = "closed"
	BreakerOpen     = "open"
	BreakerHalfOpen = "half-open"
)

// Breaker is a single circuit breaker. Closed admits everything and counts
// consecutive failures; open rejects everything until the cooldown passes;
// half-open admits exactly one probe whose outcome decides the next state.
type Breaker struct {
	mu       sync.Mutex
	policy   BreakerPolicy
	state    string
	failures int
	openedAt time.Time
	probing  bool

	now           func() time.Time
	onStateChange func(from, to string)
}

func NewBreaker(policy BreakerPolicy) *Breaker {
	return &Breaker{
		policy: policy,
		state:  BreakerClosed,
		now:    time.Now,
	}
}

// OnStateChange installs a transition hook, invoked outside the lock.
func (b *Breaker) OnStateChange(fn func(from, to string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// Allow reports whether a call may proceed right now. An open breaker whose
// cooldown has elapsed moves to half-open and admits one probe; concurrent
// callers are rejected until the probe's outcome is recorded.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	var notify func()
	defer func() {
		b.mu.Unlock()
		if notify != nil {
			notify()
		}
	}()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.policy.Cooldown {
			return false
		}
		notify = b.transitionLocked(BreakerHalfOpen)
		b.probing = true
		return true
	default: // half-open
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
}

// RecordSuccess closes the breaker and resets the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	notify := b.transitionLocked(BreakerClosed)
	b.failures = 0
	b.probing = false
	b.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// RecordFailure counts one failed attempt. It opens a closed breaker at the
// threshold and re-opens a half-open breaker whose probe failed.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	var notify func()
	switch b.state {
	case BreakerHalfOpen:
		notify = b.transitionLocked(BreakerOpen)
		b.openedAt = b.now()
		b.probing = false
	case BreakerClosed:
		b.failures++
		if b.failures >= b.policy.FailureThreshold {
			notify = b.transitionLocked(BreakerOpen)
			b.openedAt = b.now()
		}
	}
	b.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// State returns the current state name, honoring an elapsed cooldown.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.policy.Cooldown {
		return BreakerHalfOpen
	}
	return b.state
}

func (b *Breaker) transitionLocked(to string) func() {
	from := b.state
	if from == to {
		return nil
	}
	b.state = to
	if b.onStateChange == nil {
		return nil
	}
	fn := b.onStateChange
	return func() { fn(from, to) }
}

package fetcher

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// RetryPolicy bounds the retry loop for transient failures.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, first try included.
	MaxAttempts int `yaml:"max_attempts"`
	// BaseDelay is the backoff before the second attempt; it doubles per
	// attempt after that.
	BaseDelay time.Duration `yaml:"base_delay"`
	// MaxDelay caps every chosen delay, jitter included.
	MaxDelay time.Duration `yaml:"max_delay"`
	// Jitter adds up to Jitter*delay of random spread, as a fraction in
	// [0,1]. Values above 1 would let a later delay undercut an earlier one.
	Jitter float64 `yaml:"jitter"`
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Jitter:      0.25,
	}
}

func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry: max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay <= 0 {
		return fmt.Errorf("retry: base delay must be > 0, got %s", p.BaseDelay)
	}
	if p.MaxDelay < p.BaseDelay {
		return fmt.Errorf("retry: max delay %s must be >= base delay %s", p.MaxDelay, p.BaseDelay)
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		return fmt.Errorf("retry: jitter must be within [0,1], got %g", p.Jitter)
	}
	return nil
}

// Delay returns the backoff after the given failed attempt (1-based):
// BaseDelay doubled per attempt, plus jitter, clamped to MaxDelay. With
// Jitter <= 1 the sequence of chosen delays never decreases.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay || d <= 0 {
			d = p.MaxDelay
			break
		}
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}

	if p.Jitter > 0 {
		span := time.Duration(float64(d) * p.Jitter)
		if span > 0 {
			d += rand.N(span)
		}
		if d > p.MaxDelay {
			d = p.MaxDelay
		}
	}
	return d
}

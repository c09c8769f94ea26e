package streamforwarder

import (
	"context"
	"fmt"
	"math"
	"time"
)

type Backoff interface {
	// Delay returns how long to wait before the given attempt. It is first called for the 2nd attempt.
	Delay(attempt int) time.Duration
}

// constant backoff always applies the same duration regardless of the retry history
type constantBackoff struct {
	delay time.Duration
}

func ConstantBackoff(delay time.Duration) *constantBackoff {
	return &constantBackoff{delay}
}

func (b *constantBackoff) Delay(attempt int) time.Duration {
	return b.delay
}

// linear backoff applies the backoff according to: min(c + k * i, l)
type linearBackoff struct {
	c float64
	k float64
	l time.Duration
}

func LinearBackoff(c float64, k float64, l time.Duration) *linearBackoff {
	return &linearBackoff{c, k, l}
}

func (b *linearBackoff) Delay(attempt int) time.Duration {
	i := float64(attempt - 2)
	s := b.c + b.k*i
	if s >= b.l.Seconds() {
		return b.l
	}
	// the duration will be rounded to the closest second
	return time.Second * time.Duration(math.Round(s))
}

// exponential backoff applies the backoff according to: min(c + a * (e^(b * i) - 1), l)
type exponentialBackoff struct {
	c float64
	a float64
	b float64
	l time.Duration
}

func ExponentialBackoff(c float64, a float64, b float64, l time.Duration) *exponentialBackoff {
	return &exponentialBackoff{c, a, b, l}
}

func (b *exponentialBackoff) Delay(attempt int) time.Duration {
	i := float64(attempt - 2)
	s := b.c + b.a*(math.Pow(math.E, b.b*i)-1)
	if s > b.l.Seconds() {
		return b.l
	}
	// the duration will be rounded to the closest second
	return time.Second * time.Duration(math.Round(s))
}

// retry calls fn until it succeeds, attempts are used up or ctx is done. onFailure is told about every failed
// attempt before waiting.
func retry(
	ctx context.Context,
	attempts int,
	backoff Backoff,
	fn func(attempt int) error,
	onFailure func(attempt int, wait time.Duration, err error),
) error {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt += 1 {
		if lastErr = fn(attempt); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		wait := backoff.Delay(attempt + 1)
		if onFailure != nil {
			onFailure(attempt, wait, lastErr)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

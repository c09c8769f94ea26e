package streamforwarder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConstantBackoff(t *testing.T) {
	backoff := ConstantBackoff(5 * time.Second)
	expected, attempt := []int64{5, 5, 5}, 2
	for i := 0; i < len(expected); i += 1 {
		delay := backoff.Delay(attempt)
		assert.Equal(t, float64(expected[i]), delay.Seconds())
		attempt += 1
	}
}

func TestLinearBackoff(t *testing.T) {
	c, k := 5.0, 2.0
	backoff := LinearBackoff(c, k, 15*time.Second)
	expected, attempt := []int64{5, 7, 9, 11, 13, 15, 15}, 2
	for i := 0; i < len(expected); i += 1 {
		delay := backoff.Delay(attempt)
		assert.Equal(t, float64(expected[i]), delay.Seconds())
		attempt += 1
	}
}

func TestExponentialBackoff(t *testing.T) {
	c, a, b := 5.0, 2.0, 2.0
	backoff := ExponentialBackoff(c, a, b, 10000*time.Second)
	expected, attempt := []int64{5, 18, 112, 810, 5965, 10000}, 2
	for i := 0; i < len(expected); i += 1 {
		delay := backoff.Delay(attempt)
		assert.Equal(t, float64(expected[i]), delay.Seconds())
		attempt += 1
	}
}

func TestRetry(t *testing.T) {
	t.Run("stops retrying once the call succeeds", func(t *testing.T) {
		calls, failures := 0, []int{}
		err := retry(context.Background(), 5, ConstantBackoff(time.Millisecond),
			func(attempt int) error {
				calls += 1
				if attempt < 3 {
					return errors.New("not yet")
				}
				return nil
			},
			func(attempt int, wait time.Duration, err error) {
				failures = append(failures, attempt)
				assert.Equal(t, time.Millisecond, wait)
			},
		)
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []int{1, 2}, failures)
	})

	t.Run("returns the last error once attempts are used up", func(t *testing.T) {
		calls := 0
		cause := errors.New("connection refused")
		err := retry(context.Background(), 3, ConstantBackoff(time.Millisecond),
			func(attempt int) error {
				calls += 1
				return cause
			},
			nil,
		)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 3, calls)
	})

	t.Run("calls at least once", func(t *testing.T) {
		calls := 0
		err := retry(context.Background(), 0, ConstantBackoff(time.Hour),
			func(attempt int) error {
				calls += 1
				return errors.New("failed")
			},
			nil,
		)
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := retry(ctx, 5, ConstantBackoff(time.Hour),
			func(attempt int) error {
				calls += 1
				return errors.New("failed")
			},
			func(attempt int, wait time.Duration, err error) {
				cancel()
			},
		)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

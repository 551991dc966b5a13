package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tarpmill/erp-api/pkg/logger"
)

var errPermanent = errors.New("permanent failure")
var errTransient = errors.New("transient failure")

func testConfig(maxAttempts int, retryable ...error) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     maxAttempts,
		BackoffStrategy: &ConstantBackoff{Interval: 0},
		Logger:          logger.NewLogger("error"),
		RetryableErrors: retryable,
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		return nil
	}, testConfig(3))

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	}, testConfig(5))

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		return errTransient
	}, testConfig(3))

	assert.Error(t, err)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		return errPermanent
	}, testConfig(5, errTransient))

	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, calls)
}

func TestRetryMatchesWrappedRetryableError(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		return fmt.Errorf("attempt failed: %w", errTransient)
	}, testConfig(2, errTransient))

	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, func() error {
		return errTransient
	}, testConfig(3))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithDiscardAppliesPolicy(t *testing.T) {
	discarded := false

	err := RetryWithDiscard(context.Background(), func() error {
		return errTransient
	}, testConfig(2), func(err error) error {
		discarded = true
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, discarded)
}

func TestRetryWithDiscardSkipsPolicyOnSuccess(t *testing.T) {
	discarded := false

	err := RetryWithDiscard(context.Background(), func() error {
		return nil
	}, testConfig(2), func(err error) error {
		discarded = true
		return nil
	})

	assert.NoError(t, err)
	assert.False(t, discarded)
}

func TestExponentialBackoffGrowth(t *testing.T) {
	b := &ExponentialBackoff{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     1 * time.Second,
		Multiplier:      2.0,
	}

	assert.Equal(t, 100*time.Millisecond, b.NextBackoff(1))
	assert.Equal(t, 200*time.Millisecond, b.NextBackoff(2))
	assert.Equal(t, 400*time.Millisecond, b.NextBackoff(3))
	assert.Equal(t, 1*time.Second, b.NextBackoff(10))
}

func TestConstantBackoff(t *testing.T) {
	b := &ConstantBackoff{Interval: 50 * time.Millisecond}

	assert.Equal(t, 50*time.Millisecond, b.NextBackoff(1))
	assert.Equal(t, 50*time.Millisecond, b.NextBackoff(7))
}

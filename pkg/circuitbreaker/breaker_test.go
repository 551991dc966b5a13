package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestBreaker(resetTimeout time.Duration) *CircuitBreaker {
	return New(Config{
		FailureThreshold: 3,
		ResetTimeout:     resetTimeout,
		HalfOpenMaxCalls: 2,
	})
}

func TestBreakerStartsClosed(t *testing.T) {
	cb := newTestBreaker(time.Minute)

	assert.Equal(t, StateClosed, cb.GetState())
	assert.True(t, cb.Allow())
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := newTestBreaker(time.Minute)

	cb.Failure()
	cb.Failure()
	assert.Equal(t, StateClosed, cb.GetState())

	cb.Failure()
	assert.Equal(t, StateOpen, cb.GetState())
	assert.False(t, cb.Allow())
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := newTestBreaker(time.Minute)

	cb.Failure()
	cb.Failure()
	cb.Success()

	cb.Failure()
	cb.Failure()
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestBreakerHalfOpensAfterTimeout(t *testing.T) {
	cb := newTestBreaker(10 * time.Millisecond)

	cb.Failure()
	cb.Failure()
	cb.Failure()
	assert.Equal(t, StateOpen, cb.GetState())

	time.Sleep(20 * time.Millisecond)

	assert.True(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.GetState())
}

func TestHalfOpenLimitsProbes(t *testing.T) {
	cb := newTestBreaker(10 * time.Millisecond)

	cb.Failure()
	cb.Failure()
	cb.Failure()
	time.Sleep(20 * time.Millisecond)

	assert.True(t, cb.Allow())
	assert.True(t, cb.Allow())
	assert.False(t, cb.Allow())
}

func TestHalfOpenSuccessCloses(t *testing.T) {
	cb := newTestBreaker(10 * time.Millisecond)

	cb.Failure()
	cb.Failure()
	cb.Failure()
	time.Sleep(20 * time.Millisecond)

	assert.True(t, cb.Allow())
	cb.Success()

	assert.Equal(t, StateClosed, cb.GetState())
	assert.True(t, cb.Allow())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := newTestBreaker(10 * time.Millisecond)

	cb.Failure()
	cb.Failure()
	cb.Failure()
	time.Sleep(20 * time.Millisecond)

	assert.True(t, cb.Allow())
	cb.Failure()

	assert.Equal(t, StateOpen, cb.GetState())
	assert.False(t, cb.Allow())
}

func TestGetMetrics(t *testing.T) {
	cb := newTestBreaker(time.Minute)

	metrics := cb.GetMetrics()
	assert.Equal(t, "closed", metrics["state"])

	cb.Failure()
	cb.Failure()
	cb.Failure()

	metrics = cb.GetMetrics()
	assert.Equal(t, "open", metrics["state"])
}

package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketStartsFull(t *testing.T) {
	tb := NewTokenBucket(5, 1)

	assert.InDelta(t, 5.0, tb.Available(), 0.01)
}

func TestAllowConsumesTokens(t *testing.T) {
	tb := NewTokenBucket(3, 0)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestAllowNRejectsWhenInsufficient(t *testing.T) {
	tb := NewTokenBucket(10, 0)

	assert.True(t, tb.AllowN(7))
	assert.False(t, tb.AllowN(4))
	assert.True(t, tb.AllowN(3))
}

func TestBucketRefills(t *testing.T) {
	tb := NewTokenBucket(2, 100)

	assert.True(t, tb.AllowN(2))
	assert.False(t, tb.Allow())

	time.Sleep(50 * time.Millisecond)

	assert.True(t, tb.Allow())
}

func TestRefillCapsAtMax(t *testing.T) {
	tb := NewTokenBucket(2, 1000)

	time.Sleep(20 * time.Millisecond)

	assert.True(t, tb.AllowN(2))
	assert.False(t, tb.AllowN(2))
}

func TestReset(t *testing.T) {
	tb := NewTokenBucket(4, 0)

	assert.True(t, tb.AllowN(4))
	assert.False(t, tb.Allow())

	tb.Reset()

	assert.True(t, tb.AllowN(4))
}

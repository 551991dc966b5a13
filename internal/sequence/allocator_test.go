package sequence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextInSequence(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		last   string
		want   string
	}{
		{"first id of a prefix", "ORD", "", "ORD001"},
		{"increments the suffix", "ORD", "ORD001", "ORD002"},
		{"carries zero padding", "DIS", "DIS009", "DIS010"},
		{"dashed prefix convention", "RM-", "RM-003", "RM-004"},
		{"grows past the pad width", "ORD", "ORD999", "ORD1000"},
		{"keeps counting when wider", "ORD", "ORD1042", "ORD1043"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextInSequence(tt.prefix, tt.last, DefaultPadWidth)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("rejects a non-numeric suffix", func(t *testing.T) {
		_, err := NextInSequence("ORD", "ORDXYZ", DefaultPadWidth)
		assert.Error(t, err)
	})

	t.Run("rejects an id without the prefix", func(t *testing.T) {
		_, err := NextInSequence("ORD", "DIS001", DefaultPadWidth)
		assert.Error(t, err)
	})
}

func TestAllocatorNext(t *testing.T) {
	alloc := New(func(ctx context.Context, prefix string) (string, error) {
		return prefix + "041", nil
	})

	id, err := alloc.Next(context.Background(), "DIS")
	require.NoError(t, err)
	assert.Equal(t, "DIS042", id)
}

func TestAllocatorNextLookupError(t *testing.T) {
	alloc := New(func(ctx context.Context, prefix string) (string, error) {
		return "", errors.New("db down")
	})

	_, err := alloc.Next(context.Background(), "ORD")
	assert.Error(t, err)
}

func TestAllocatorNextScoped(t *testing.T) {
	var seenPrefix string
	alloc := New(func(ctx context.Context, prefix string) (string, error) {
		seenPrefix = prefix
		return "", nil
	})

	day := time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)
	id, err := alloc.NextScoped(context.Background(), "TR-", day)
	require.NoError(t, err)
	assert.Equal(t, "TR-20260901-", seenPrefix)
	assert.Equal(t, "TR-20260901-001", id)
}

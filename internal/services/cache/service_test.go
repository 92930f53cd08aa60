package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/quaestus/internal/common"
)

func TestGetOrCompute_CachesUntilExpiry(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	svc := NewService(common.GetLogger()).WithClock(func() time.Time { return now })

	calls := 0
	compute := func(ctx context.Context) (interface{}, error) {
		calls++
		return calls, nil
	}

	v, err := svc.GetOrCompute(context.Background(), "overview", time.Hour, false, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// Within TTL the cached value is served
	now = now.Add(30 * time.Minute)
	v, err = svc.GetOrCompute(context.Background(), "overview", time.Hour, false, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, calls)

	// Past TTL the value is recomputed
	now = now.Add(31 * time.Minute)
	v, err = svc.GetOrCompute(context.Background(), "overview", time.Hour, false, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, calls)
}

func TestGetOrCompute_ForceRefreshesFreshEntry(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	svc := NewService(common.GetLogger()).WithClock(func() time.Time { return now })

	calls := 0
	compute := func(ctx context.Context) (interface{}, error) {
		calls++
		return calls, nil
	}

	_, err := svc.GetOrCompute(context.Background(), "overview", time.Hour, false, compute)
	require.NoError(t, err)

	v, err := svc.GetOrCompute(context.Background(), "overview", time.Hour, true, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, calls)
}

func TestGetOrCompute_FailureKeepsPreviousEntry(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	svc := NewService(common.GetLogger()).WithClock(func() time.Time { return now })

	_, err := svc.GetOrCompute(context.Background(), "overview", time.Hour, false, func(ctx context.Context) (interface{}, error) {
		return "first", nil
	})
	require.NoError(t, err)

	_, err = svc.GetOrCompute(context.Background(), "overview", time.Hour, true, func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("compute failed")
	})
	require.Error(t, err)

	// The previous value survives the failed refresh
	v, ok := svc.Peek("overview")
	require.True(t, ok)
	assert.Equal(t, "first", v)
}

func TestInvalidate(t *testing.T) {
	svc := NewService(common.GetLogger())

	_, err := svc.GetOrCompute(context.Background(), "a", time.Hour, false, func(ctx context.Context) (interface{}, error) {
		return 1, nil
	})
	require.NoError(t, err)

	svc.Invalidate("a")
	_, ok := svc.Peek("a")
	assert.False(t, ok)
}

func TestInvalidateAll(t *testing.T) {
	svc := NewService(common.GetLogger())

	for _, key := range []string{"a", "b"} {
		_, err := svc.GetOrCompute(context.Background(), key, time.Hour, false, func(ctx context.Context) (interface{}, error) {
			return key, nil
		})
		require.NoError(t, err)
	}

	svc.InvalidateAll()
	_, ok := svc.Peek("a")
	assert.False(t, ok)
	_, ok = svc.Peek("b")
	assert.False(t, ok)
}

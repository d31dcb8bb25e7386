package specsource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/toolsetgen/spec"
	"github.com/erraggy/toolsetgen/tserrors"
)

func TestCacheFetchesOncePerKey(t *testing.T) {
	var calls atomic.Int32
	f := FetcherFunc(func(_ context.Context, source string) (spec.RawSpec, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return spec.RawSpec{"source": source}, nil
	})
	c := NewCache(f)
	key := Key{Provider: "slack", API: "web_api"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw, _, err := c.Get(context.Background(), key, "slack.json")
			assert.NoError(t, err)
			assert.Equal(t, "slack.json", raw["source"])
		}()
	}
	wg.Wait()

	raw, hit, err := c.Get(context.Background(), key, "slack.json")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "slack.json", raw["source"])
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int64(1), c.Misses())
	assert.Equal(t, int64(8), c.Hits())
	assert.Equal(t, 1, c.Len())
}

func TestCacheKeysAreIndependent(t *testing.T) {
	var calls atomic.Int32
	c := NewCache(FetcherFunc(func(_ context.Context, source string) (spec.RawSpec, error) {
		calls.Add(1)
		return spec.RawSpec{"source": source}, nil
	}))

	a, hit, err := c.Get(context.Background(), Key{"google", "calendar"}, "cal.json")
	require.NoError(t, err)
	assert.False(t, hit)
	b, _, err := c.Get(context.Background(), Key{"google", "drive"}, "drive.json")
	require.NoError(t, err)

	assert.Equal(t, "cal.json", a["source"])
	assert.Equal(t, "drive.json", b["source"])
	assert.Equal(t, int32(2), calls.Load())
}

func TestCacheDoesNotKeepFailures(t *testing.T) {
	var calls atomic.Int32
	c := NewCache(FetcherFunc(func(_ context.Context, _ string) (spec.RawSpec, error) {
		if calls.Add(1) == 1 {
			return nil, &tserrors.SpecError{Unavailable: true, Cause: errors.New("connection reset")}
		}
		return spec.RawSpec{"ok": true}, nil
	}))
	key := Key{"slack", "web_api"}

	_, _, err := c.Get(context.Background(), key, "x")
	assert.ErrorIs(t, err, tserrors.ErrSpecUnavailable)

	raw, hit, err := c.Get(context.Background(), key, "x")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, true, raw["ok"])
}

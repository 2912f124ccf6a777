package loadercache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/f1-race-predictor/pkg/utils/cache"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestLoaderCache(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 3, 16, 4, 0, 0, 0, time.UTC)}
	calls := 0
	c := New(
		WithExpiration[string, int](time.Minute),
		WithClock[string, int](clock.now),
		WithLoader[string, int](func(ctx context.Context, key string) (*int, error) {
			calls++
			if key == "bad" {
				return nil, errors.New("boom")
			}
			v := calls
			return &v, nil
		}),
	)

	v, err := c.Get(ctx, "teams")
	assert.NoError(t, err)
	assert.Equal(t, 1, *v)

	v, _ = c.Get(ctx, "teams")
	assert.Equal(t, 1, *v, "second read is served from cache")

	clock.t = clock.t.Add(2 * time.Minute)
	v, _ = c.Get(ctx, "teams")
	assert.Equal(t, 2, *v, "expired entry is reloaded")

	c.Invalidate(ctx, "teams")
	v, _ = c.Get(ctx, "teams")
	assert.Equal(t, 3, *v)

	_, err = c.Get(ctx, "bad")
	assert.Error(t, err)
	_, err = c.Get(ctx, "bad")
	assert.Error(t, err)
	assert.Equal(t, 5, calls, "errors are not cached")

	c.InvalidateAll(ctx)
	v, _ = c.Get(ctx, "teams")
	assert.Equal(t, 6, *v)
}

func TestLoaderCache_NoLoader(t *testing.T) {
	c := New[string, int]()
	_, err := c.Get(context.Background(), "x")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

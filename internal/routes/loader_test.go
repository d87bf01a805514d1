package routes

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prasenjit/route-explorer/internal/cache"
	"github.com/prasenjit/route-explorer/internal/models"
)

type countingSource struct {
	calls atomic.Int32
	src   mapSource
}

func (c *countingSource) GetRoutes(ctx context.Context) (map[string]models.RawRoute, error) {
	c.calls.Add(1)
	return c.src.GetRoutes(ctx)
}

func TestLoaderCachesCatalog(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{src: tenRoutes()}
	l := NewLoader(src, newTestNormalizer(), cache.NewMemoryCache(), "test", time.Hour, nil)

	first, err := l.Load(ctx)
	require.NoError(t, err)
	second, err := l.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, first.Stats(), second.Stats())

	r, err := second.Get("/wp/v2/items0")
	require.NoError(t, err)
	assert.True(t, r.IsPublic)
	assert.Equal(t, models.PermissionAlwaysAllow, r.Methods["GET"].Permission.Kind)
}

func TestLoaderInvalidate(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{src: tenRoutes()}
	l := NewLoader(src, newTestNormalizer(), cache.NewMemoryCache(), "test", time.Hour, nil)

	_, err := l.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, l.Invalidate(ctx))
	_, err = l.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(2), src.calls.Load())
}

func TestLoaderWithoutTTLAlwaysReloads(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{src: tenRoutes()}
	l := NewLoader(src, newTestNormalizer(), cache.NewMemoryCache(), "test", 0, nil)

	for i := 0; i < 3; i++ {
		_, err := l.Load(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestLoaderDiscardsCorruptCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	require.NoError(t, c.Set(ctx, "test", []byte("{not json"), time.Hour))

	l := NewLoader(tenRoutes(), newTestNormalizer(), c, "test", time.Hour, nil)
	catalog, err := l.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, catalog.Len())
}

package citation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/storage"
)

func newRedisRegistry(t *testing.T) *RedisRegistry {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	reg := NewRedisRegistry(client, "test:citations:")
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

func newSQLiteRegistry(t *testing.T) *SQLiteRegistry {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	reg, err := NewSQLiteRegistry(store.DB())
	require.NoError(t, err)
	return reg
}

// backends runs fn against a fresh registry of every kind.
func backends(t *testing.T, fn func(t *testing.T, reg Registry)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryRegistry()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteRegistry(t)) })
	t.Run("redis", func(t *testing.T) { fn(t, newRedisRegistry(t)) })
}

func TestRegistry_FirstSeenNumbering(t *testing.T) {
	backends(t, func(t *testing.T, reg Registry) {
		ctx := context.Background()

		a, err := reg.Register(ctx, "docA#c1")
		require.NoError(t, err)
		b, err := reg.Register(ctx, "docB#c7")
		require.NoError(t, err)
		again, err := reg.Register(ctx, "docA#c1")
		require.NoError(t, err)

		assert.Equal(t, models.Registration{Number: 1, IsNew: true, TotalDistinctCitations: 1}, *a)
		assert.Equal(t, models.Registration{Number: 2, IsNew: true, TotalDistinctCitations: 2}, *b)
		assert.Equal(t, models.Registration{Number: 1, IsNew: false, TotalDistinctCitations: 2}, *again)

		list, err := reg.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.CitationRecord{{Key: "docA#c1", Number: 1}, {Key: "docB#c7", Number: 2}}, list)

		rec, err := reg.Lookup(ctx, "docB#c7")
		require.NoError(t, err)
		assert.Equal(t, 2, rec.Number)
		_, err = reg.Lookup(ctx, "nope")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestRegistry_EmptyKey(t *testing.T) {
	backends(t, func(t *testing.T, reg Registry) {
		ctx := context.Background()
		_, err := reg.Register(ctx, "first")
		require.NoError(t, err)

		for _, key := range []string{"", "   ", "\t\n"} {
			_, err := reg.Register(ctx, key)
			assert.True(t, errors.Is(err, models.ErrInvalidArgument), "key %q: %v", key, err)
		}
		n, err := reg.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		next, err := reg.Register(ctx, "second")
		require.NoError(t, err)
		assert.Equal(t, 2, next.Number)
	})
}

func TestRegistry_ConcurrentRegistration(t *testing.T) {
	backends(t, func(t *testing.T, reg Registry) {
		ctx := context.Background()
		const keys = 20
		const workers = 8

		var wg sync.WaitGroup
		results := make([][]int, workers)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				nums := make([]int, keys)
				for i := 0; i < keys; i++ {
					r, err := reg.Register(ctx, fmt.Sprintf("key-%d", i))
					if err != nil {
						t.Error(err)
						return
					}
					nums[i] = r.Number
				}
				results[w] = nums
			}(w)
		}
		wg.Wait()

		// Every worker saw the same number for each key.
		for w := 1; w < workers; w++ {
			assert.Equal(t, results[0], results[w])
		}
		seen := make(map[int]bool)
		for _, n := range results[0] {
			assert.False(t, seen[n], "number %d assigned twice", n)
			seen[n] = true
		}
		for n := 1; n <= keys; n++ {
			assert.True(t, seen[n], "number %d missing", n)
		}
		count, err := reg.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, keys, count)
	})
}

func TestSQLiteRegistry_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")
	ctx := context.Background()

	store, err := storage.NewSQLiteStorage(path)
	require.NoError(t, err)
	reg, err := NewSQLiteRegistry(store.DB())
	require.NoError(t, err)
	_, err = reg.Register(ctx, "a")
	require.NoError(t, err)
	_, err = reg.Register(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = storage.NewSQLiteStorage(path)
	require.NoError(t, err)
	defer store.Close()
	reg, err = NewSQLiteRegistry(store.DB())
	require.NoError(t, err)
	r, err := reg.Register(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 3, r.Number)
	r, err = reg.Register(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Number)
	assert.False(t, r.IsNew)
}

func TestRedisRegistry_SharedBetweenClients(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	r1 := NewRedisRegistry(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	r2 := NewRedisRegistry(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	defer r1.Close()
	defer r2.Close()

	a, err := r1.Register(ctx, "x")
	require.NoError(t, err)
	b, err := r2.Register(ctx, "y")
	require.NoError(t, err)
	c, err := r2.Register(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, 1, a.Number)
	assert.Equal(t, 2, b.Number)
	assert.Equal(t, 1, c.Number)
	assert.True(t, mr.Exists(defaultKeyPrefix+"numbers"))
}

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry(config.CitationConfig{Backend: config.BackendMemory}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryRegistry{}, reg)

	_, err = NewRegistry(config.CitationConfig{Backend: config.BackendSQLite}, nil, nil)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = NewRegistry(config.CitationConfig{Backend: "etcd"}, nil, nil)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	mr := miniredis.RunT(t)
	reg, err = NewRegistry(config.CitationConfig{
		Backend: config.BackendRedis,
		Redis:   config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "p:"},
	}, nil, nil)
	require.NoError(t, err)
	defer reg.Close()
	r, err := reg.Register(context.Background(), Key("doc", "chunk"))
	require.NoError(t, err)
	assert.Equal(t, 1, r.Number)
	assert.True(t, mr.Exists("p:numbers"))
}

func TestNewRegistry_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	reg, err := NewRegistry(config.CitationConfig{
		Backend: config.BackendRedis,
		Redis:   config.RedisConfig{Addr: addr},
	}, nil, nil)
	require.Error(t, err)
	assert.Nil(t, reg)
	assert.Contains(t, err.Error(), addr)
}

func TestRedisRegistry_Ping(t *testing.T) {
	mr := miniredis.RunT(t)
	reg := NewRedisRegistry(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	defer reg.Close()
	require.NoError(t, reg.Ping(context.Background()))

	mr.Close()
	assert.Error(t, reg.Ping(context.Background()))
}

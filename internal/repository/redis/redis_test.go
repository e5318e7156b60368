package redisrepo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kirinyoku/periodic-tables/internal/domain"
	redisx "github.com/kirinyoku/periodic-tables/internal/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

func TestCache_GetOrSetJSON(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestClient(t)
	c := New(rdb)

	var loads int32
	loader := func(context.Context) ([]domain.Table, error) {
		atomic.AddInt32(&loads, 1)
		return []domain.Table{{ID: 1, Name: "A1", Capacity: 4, Status: domain.TableFree}}, nil
	}

	first, err := GetOrSetJSON(ctx, c, redisx.KeyTables(), time.Minute, loader)
	require.NoError(t, err)
	second, err := GetOrSetJSON(ctx, c, redisx.KeyTables(), time.Minute, loader)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))

	require.NoError(t, c.InvalidateTables(ctx))

	_, err = GetOrSetJSON(ctx, c, redisx.KeyTables(), time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))
}

func TestCache_LoaderErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestClient(t)
	c := New(rdb)

	boom := errors.New("boom")
	_, err := GetOrSetJSON(ctx, c, "k", time.Minute, func(context.Context) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)

	_, ok, err := c.GetString(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_InvalidateReservationDates(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestClient(t)
	c := New(rdb)

	require.NoError(t, SetJSON(ctx, c, redisx.KeyReservationsByDate("2030-01-01"), []int{1}, time.Minute))
	require.NoError(t, SetJSON(ctx, c, redisx.KeyReservationsByDate("2030-01-02"), []int{2}, time.Minute))

	require.NoError(t, c.InvalidateReservationDates(ctx, "2030-01-01", ""))

	assert.False(t, mr.Exists(redisx.KeyReservationsByDate("2030-01-01")))
	assert.True(t, mr.Exists(redisx.KeyReservationsByDate("2030-01-02")))
}

func TestIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestClient(t)
	s := NewIdempotencyStore(rdb, time.Hour)
	key := redisx.KeyIdempotency("reservations", "abc")

	locked, err := s.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)

	again, err := s.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	_, ok, err := s.GetResult(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveResult(ctx, key, `{"data":{"reservation_id":1}}`))

	payload, ok, err := s.GetResult(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"data":{"reservation_id":1}}`, payload)

	require.NoError(t, s.Release(ctx, key))
	_, ok, err = s.GetResult(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSlidingWindowLimiter(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestClient(t)

	l := NewSlidingWindowLimiter(rdb, "test", 2, time.Minute)
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, _, _, err := l.Allow(ctx, "ip:1")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, current, retry, err := l.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(3), current)
	assert.Equal(t, time.Minute, retry)

	other, _, _, err := l.Allow(ctx, "ip:2")
	require.NoError(t, err)
	assert.True(t, other)
}

func TestChangesPubSub(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, rdb := newTestClient(t)
	ps := NewChangesPubSub(rdb)

	var (
		mu  sync.Mutex
		got []ChangeMessage
	)

	done := make(chan error, 1)
	go func() {
		done <- ps.Subscribe(ctx, func(_ context.Context, msg ChangeMessage) {
			mu.Lock()
			got = append(got, msg)
			mu.Unlock()
		})
	}()

	change := domain.Change{Kind: domain.ChangeTableSeated, TableID: 1, ReservationID: 2}

	assert.Eventually(t, func() bool {
		_ = ps.Publish(ctx, change)
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	assert.Equal(t, change, got[0].Change)
	assert.NotEmpty(t, got[0].ID)
	mu.Unlock()

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

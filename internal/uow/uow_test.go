package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/kirinyoku/periodic-tables/internal/repository"
	"github.com/kirinyoku/periodic-tables/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// retryingStore replays fn once before committing, like the postgres
// store does after a serialization failure.
type retryingStore struct {
	*memory.Store
}

func (s retryingStore) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repos) error) error {
	_ = s.Store.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		_ = fn(ctx, tx)
		return errors.New("serialization failure")
	})
	return s.Store.RunTx(ctx, fn)
}

func TestUoW_RunsHooksAfterCommit(t *testing.T) {
	u := NewUoW(memory.NewStore())

	var calls int
	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Repos, after func(AfterCommit)) error {
		after(func(context.Context) { calls++ })
		assert.Zero(t, calls)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestUoW_SkipsHooksOnError(t *testing.T) {
	u := NewUoW(memory.NewStore())
	boom := errors.New("boom")

	var calls int
	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Repos, after func(AfterCommit)) error {
		after(func(context.Context) { calls++ })
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Zero(t, calls)
}

func TestUoW_DropsHooksFromRetriedAttempts(t *testing.T) {
	u := NewUoW(retryingStore{memory.NewStore()})

	var calls int
	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Repos, after func(AfterCommit)) error {
		after(func(context.Context) { calls++ })
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazy_RetriesAfterFailedInit(t *testing.T) {
	calls := 0
	lazy := NewLazy(func(_ context.Context) (*pgxpool.Pool, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("secret store unreachable")
		}
		return &pgxpool.Pool{}, nil
	})

	_, err := lazy.Get(context.Background())
	require.Error(t, err, "first attempt surfaces the transient failure")
	assert.Equal(t, 1, calls)

	pool, err := lazy.Get(context.Background())
	require.NoError(t, err, "a failed init must not be sticky")
	require.NotNil(t, pool)
	assert.Equal(t, 2, calls)
}

func TestLazy_CachesSuccessfulInit(t *testing.T) {
	calls := 0
	lazy := NewLazy(func(_ context.Context) (*pgxpool.Pool, error) {
		calls++
		return &pgxpool.Pool{}, nil
	})

	first, err := lazy.Get(context.Background())
	require.NoError(t, err)

	second, err := lazy.Get(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second, "one pool per process")
	assert.Equal(t, 1, calls, "opener runs once after success")
}

func TestLazy_BeginSurfacesInitError(t *testing.T) {
	initErr := errors.New("db unreachable")
	lazy := NewLazy(func(_ context.Context) (*pgxpool.Pool, error) {
		return nil, initErr
	})

	_, err := lazy.Begin(context.Background())
	require.ErrorIs(t, err, initErr)
}

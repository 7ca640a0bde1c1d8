package db

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxBeginner is the slice of the pool the services need. *pgxpool.Pool and
// *Lazy both satisfy it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Lazy defers pool construction to first use. Only a successful
// initialization is cached: a failed attempt (secret store blip, DB not yet
// reachable) surfaces its error and the next call tries again, so a
// transient failure at cold start never bricks the process.
type Lazy struct {
	mu   sync.Mutex
	open func(ctx context.Context) (*pgxpool.Pool, error)

	pool *pgxpool.Pool
}

func NewLazy(open func(ctx context.Context) (*pgxpool.Pool, error)) *Lazy {
	return &Lazy{open: open}
}

// Get returns the shared pool, initializing it on first success. Concurrent
// first callers serialize on the lock; the one that wins initializes, the
// rest reuse the pool.
func (l *Lazy) Get(ctx context.Context) (*pgxpool.Pool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pool != nil {
		return l.pool, nil
	}

	pool, err := l.open(ctx)
	if err != nil {
		return nil, err
	}

	l.pool = pool
	return l.pool, nil
}

func (l *Lazy) Begin(ctx context.Context) (pgx.Tx, error) {
	pool, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}

	return pool.Begin(ctx)
}

func (l *Lazy) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pool != nil {
		l.pool.Close()
	}
}

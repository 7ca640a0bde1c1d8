package db

import (
	"context"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nibir1/Nexus-Marine/internal/secrets"
)

type PoolConfig struct {
	Credentials secrets.Credentials
	Host        string
	Port        int
	Database    string
}

// NewPostgresPool builds a bounded, traced connection pool. Host and port
// from the secret win over the static config.
func NewPostgresPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	host := cfg.Host
	if cfg.Credentials.Host != "" {
		host = cfg.Credentials.Host
	}
	port := cfg.Port
	if cfg.Credentials.Port != 0 {
		port = cfg.Credentials.Port
	}

	url := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		cfg.Credentials.Username,
		cfg.Credentials.Password,
		host,
		port,
		cfg.Database,
	)

	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create new pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return pool, nil
}

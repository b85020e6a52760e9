package materialize

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPool wraps pgxpool.Pool for dependency injection, grounded on the
// teacher's internal/storage/postgres.Pool.
type PostgresPool struct {
	*pgxpool.Pool
}

// NewPostgresPool creates and pings a Postgres connection pool.
func NewPostgresPool(ctx context.Context, dsn string) (*PostgresPool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresPool{Pool: pool}, nil
}

// Close closes the underlying pool.
func (p *PostgresPool) Close() {
	p.Pool.Close()
}

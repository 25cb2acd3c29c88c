package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPostgresPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, errors.New("postgres connection url is empty")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(dialCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the turns table and its read-path index. The seq
// column breaks created_at ties by insertion order so that history ordering
// stays deterministic even under timestamp collisions.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return errors.New("postgres pool is nil")
	}

	statements := []string{
		strings.Join([]string{
			"CREATE TABLE IF NOT EXISTS turns (",
			"    id TEXT PRIMARY KEY,",
			"    user_id TEXT NOT NULL,",
			"    session_id TEXT NOT NULL,",
			"    prompt TEXT NOT NULL,",
			"    response TEXT NOT NULL,",
			"    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),",
			"    seq BIGINT GENERATED ALWAYS AS IDENTITY",
			")",
		}, "\n"),
		"CREATE INDEX IF NOT EXISTS idx_turns_session_recency ON turns (user_id, session_id, created_at DESC, seq DESC)",
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}

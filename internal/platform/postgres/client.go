package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"gtm-backend/internal/common/config"
	"gtm-backend/internal/common/logger"
)

const (
	connectAttempts = 3
	pingTimeout     = 5 * time.Second
)

// Client owns the lib/pq pool used by the results store.
type Client struct {
	db *sql.DB
}

// Open builds the pool from config and waits for the server to answer,
// retrying a few times so the app can start alongside the database.
func Open(ctx context.Context, cfg *config.Config) (*Client, error) {
	db, err := sql.Open("postgres", cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)

	c := &Client{db: db}
	for attempt := 1; ; attempt++ {
		err = c.Ping(ctx)
		if err == nil {
			break
		}
		if attempt == connectAttempts || ctx.Err() != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres after %d attempts: %w", attempt, err)
		}
		logger.Warn().Err(err).Int("attempt", attempt).Msg("postgres not ready, retrying")
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}

	logger.Info().
		Str("host", cfg.Postgres.Host).
		Int("port", cfg.Postgres.Port).
		Str("database", cfg.Postgres.Database).
		Int("max_open_conns", cfg.Postgres.MaxOpenConns).
		Msg("postgres client initialized")
	return c, nil
}

func (c *Client) DB() *sql.DB {
	return c.db
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.db.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.db.Close()
}

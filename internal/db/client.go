// Package db provides the Postgres message store for the chat server.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Client wraps a pgx connection pool.
type Client struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewClient connects to Postgres and verifies the connection.
func NewClient(ctx context.Context, databaseURL string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Client{pool: pool, logger: logger}, nil
}

// InitSchema creates the tables if they do not exist.
func (c *Client) InitSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS messages (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			role       TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
			content    TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			deleted_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages (created_at DESC, id DESC);

		CREATE TABLE IF NOT EXISTS habits (
			id   SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		);
		CREATE TABLE IF NOT EXISTS habit_entries (
			id       SERIAL PRIMARY KEY,
			habit_id INT NOT NULL REFERENCES habits(id),
			date     DATE NOT NULL,
			value    JSONB NOT NULL DEFAULT '{}',
			UNIQUE (habit_id, date)
		);
		CREATE TABLE IF NOT EXISTS daily_journal (
			id         SERIAL PRIMARY KEY,
			date       DATE NOT NULL UNIQUE,
			text       TEXT,
			meta       JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS plans (
			id         SERIAL PRIMARY KEY,
			date       DATE NOT NULL UNIQUE,
			tasks      JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`
	if _, err := c.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() {
	c.pool.Close()
}

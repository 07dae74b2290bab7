package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/srm-faq/backend/pkg/logger"
)

var ErrNotFound = errors.New("knowledge entry not found")

// Client owns the pgx connection pool. Each call leases its own connection
// from the pool, so no locking happens at this layer.
type Client struct {
	pool         *pgxpool.Pool
	embeddingDim int
}

func NewClient(ctx context.Context, url string, maxConns, embeddingDim int) (*Client, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info("Postgres client initialized", zap.Int("embedding_dim", embeddingDim))

	return &Client{pool: pool, embeddingDim: embeddingDim}, nil
}

func (c *Client) Close() {
	c.pool.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *Client) InitSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS knowledge_base (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		category TEXT,
		tags TEXT[],
		embedding vector(%d) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_knowledge_embedding
		ON knowledge_base USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100);
	CREATE INDEX IF NOT EXISTS idx_knowledge_category ON knowledge_base(category);
	CREATE INDEX IF NOT EXISTS idx_knowledge_active ON knowledge_base(is_active);
	`, c.embeddingDim)

	if _, err := c.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("Postgres schema initialized")
	return nil
}

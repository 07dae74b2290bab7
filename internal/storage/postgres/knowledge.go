package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/srm-faq/backend/internal/storage/models"
	"github.com/srm-faq/backend/pkg/logger"
)

const entryColumns = "id, title, content, category, tags, is_active, created_at, updated_at"

func (c *Client) InsertEntry(ctx context.Context, entry models.KnowledgeEntry, embedding []float32) (*models.KnowledgeEntry, error) {
	query := `
		INSERT INTO knowledge_base (title, content, category, tags, embedding)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		RETURNING ` + entryColumns

	row := c.pool.QueryRow(ctx, query,
		entry.Title,
		entry.Content,
		entry.Category,
		entry.Tags,
		pgvector.NewVector(embedding),
	)

	created, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert knowledge entry: %w", err)
	}

	logger.Debug("Knowledge entry inserted", zap.Int64("entry_id", created.ID))
	return created, nil
}

// UpdateEntry writes the merged entry back. The caller passes a freshly
// generated embedding whenever title or content changed; a nil embedding
// leaves the stored vector untouched.
func (c *Client) UpdateEntry(ctx context.Context, entry models.KnowledgeEntry, embedding []float32) (*models.KnowledgeEntry, error) {
	var row pgx.Row
	if embedding != nil {
		query := `
			UPDATE knowledge_base
			SET title = $1, content = $2, category = NULLIF($3, ''), tags = $4,
			    is_active = $5, embedding = $6, updated_at = NOW()
			WHERE id = $7
			RETURNING ` + entryColumns
		row = c.pool.QueryRow(ctx, query,
			entry.Title, entry.Content, entry.Category, entry.Tags,
			entry.IsActive, pgvector.NewVector(embedding), entry.ID,
		)
	} else {
		query := `
			UPDATE knowledge_base
			SET title = $1, content = $2, category = NULLIF($3, ''), tags = $4,
			    is_active = $5, updated_at = NOW()
			WHERE id = $6
			RETURNING ` + entryColumns
		row = c.pool.QueryRow(ctx, query,
			entry.Title, entry.Content, entry.Category, entry.Tags,
			entry.IsActive, entry.ID,
		)
	}

	updated, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update knowledge entry: %w", err)
	}

	return updated, nil
}

func (c *Client) GetEntry(ctx context.Context, id int64) (*models.KnowledgeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM knowledge_base WHERE id = $1`

	entry, err := scanEntry(c.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get knowledge entry: %w", err)
	}

	return entry, nil
}

// ListEntries returns entries newest first. Inactive entries are excluded
// unless includeInactive is set.
func (c *Client) ListEntries(ctx context.Context, includeInactive bool) ([]models.KnowledgeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM knowledge_base`
	if !includeInactive {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge entries: %w", err)
	}
	defer rows.Close()

	var entries []models.KnowledgeEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan knowledge entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

// SoftDeleteEntry flips is_active off so all default read paths skip the
// entry while the row survives for audit.
func (c *Client) SoftDeleteEntry(ctx context.Context, id int64) error {
	tag, err := c.pool.Exec(ctx, `UPDATE knowledge_base SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate knowledge entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Client) DeleteEntry(ctx context.Context, id int64) error {
	tag, err := c.pool.Exec(ctx, `DELETE FROM knowledge_base WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Search runs the nearest-neighbor query store-side: cosine similarity,
// threshold filter and ordering all happen in postgres. Only active entries
// participate.
func (c *Client) Search(ctx context.Context, embedding []float32, threshold float64, limit int) ([]models.SearchResult, error) {
	query := `
		SELECT id, title, content, COALESCE(category, ''), tags,
		       1 - (embedding <=> $1) AS similarity
		FROM knowledge_base
		WHERE is_active = true
		  AND 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1, updated_at DESC
		LIMIT $3
	`

	rows, err := c.pool.Query(ctx, query, pgvector.NewVector(embedding), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge base: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var r models.SearchResult
		if err := rows.Scan(&r.ID, &r.Title, &r.Content, &r.Category, &r.Tags, &r.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, r)
	}

	return results, rows.Err()
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT DISTINCT category FROM knowledge_base
		WHERE category IS NOT NULL AND is_active = true
		ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	return categories, rows.Err()
}

func (c *Client) EntryStats(ctx context.Context) (total, active, categories int, err error) {
	err = c.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM knowledge_base),
			(SELECT COUNT(*) FROM knowledge_base WHERE is_active = true),
			(SELECT COUNT(DISTINCT category) FROM knowledge_base WHERE category IS NOT NULL)
	`).Scan(&total, &active, &categories)
	if err != nil {
		err = fmt.Errorf("failed to collect entry stats: %w", err)
	}
	return total, active, categories, err
}

func scanEntry(row pgx.Row) (*models.KnowledgeEntry, error) {
	var entry models.KnowledgeEntry
	var category *string
	err := row.Scan(
		&entry.ID,
		&entry.Title,
		&entry.Content,
		&category,
		&entry.Tags,
		&entry.IsActive,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if category != nil {
		entry.Category = *category
	}
	return &entry, nil
}

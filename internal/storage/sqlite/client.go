package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/srm-faq/backend/internal/storage/models"
	"github.com/srm-faq/backend/pkg/logger"
)

// Client persists the append-only conversation log. Exchanges are inserted
// exactly once per chat invocation and never updated or deleted.
type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation log: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("Conversation log initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_exchanges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		user_message TEXT NOT NULL,
		matched_entry_id INTEGER,
		bot_response TEXT NOT NULL,
		similarity_score REAL NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_exchanges_session ON chat_exchanges(session_id);
	CREATE INDEX IF NOT EXISTS idx_exchanges_created ON chat_exchanges(created_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize conversation log schema: %w", err)
	}

	logger.Info("Conversation log schema initialized")
	return nil
}

func (c *Client) InsertExchange(ctx context.Context, exchange *models.ChatExchange) error {
	query := `
		INSERT INTO chat_exchanges (session_id, user_message, matched_entry_id, bot_response, similarity_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var matchedID sql.NullInt64
	if exchange.MatchedEntryID != nil {
		matchedID = sql.NullInt64{Int64: *exchange.MatchedEntryID, Valid: true}
	}

	_, err := c.db.ExecContext(ctx, query,
		exchange.SessionID,
		exchange.UserMessage,
		matchedID,
		exchange.BotResponse,
		exchange.SimilarityScore,
		exchange.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert chat exchange: %w", err)
	}

	logger.Debug("Chat exchange recorded",
		zap.String("session_id", exchange.SessionID),
		zap.Float64("similarity", exchange.SimilarityScore),
	)

	return nil
}

// GetSessionHistory returns the most recent exchanges for a session, newest
// first.
func (c *Client) GetSessionHistory(ctx context.Context, sessionID string, limit int) ([]models.ChatExchange, error) {
	query := `
		SELECT id, session_id, user_message, matched_entry_id, bot_response, similarity_score, created_at
		FROM chat_exchanges
		WHERE session_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get session history: %w", err)
	}
	defer rows.Close()

	var exchanges []models.ChatExchange
	for rows.Next() {
		var e models.ChatExchange
		var matchedID sql.NullInt64
		var createdAt int64

		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserMessage, &matchedID, &e.BotResponse, &e.SimilarityScore, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat exchange: %w", err)
		}

		if matchedID.Valid {
			e.MatchedEntryID = &matchedID.Int64
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		exchanges = append(exchanges, e)
	}

	return exchanges, rows.Err()
}

func (c *Client) CountExchanges(ctx context.Context) (int, error) {
	var count int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_exchanges`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chat exchanges: %w", err)
	}
	return count, nil
}

package models

import "time"

// KnowledgeEntry is one retrievable unit of the knowledge base. Content is
// the authoritative answer text; Title is synthesized from Content when the
// caller does not supply one.
type KnowledgeEntry struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchResult is a KnowledgeEntry projection with the store-computed cosine
// similarity in [0,1]. Results arrive ordered by the store, best first.
type SearchResult struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Category   string   `json:"category,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Similarity float64  `json:"similarity"`
}

// ChatExchange is the append-only log record written once per chat
// invocation. MatchedEntryID is nil when no entry cleared the threshold.
type ChatExchange struct {
	ID              int64     `json:"id"`
	SessionID       string    `json:"session_id"`
	UserMessage     string    `json:"user_message"`
	MatchedEntryID  *int64    `json:"matched_entry_id"`
	BotResponse     string    `json:"bot_response"`
	SimilarityScore float64   `json:"similarity_score"`
	CreatedAt       time.Time `json:"created_at"`
}

type Stats struct {
	TotalEntries       int `json:"total_entries"`
	ActiveEntries      int `json:"active_entries"`
	TotalConversations int `json:"total_conversations"`
	Categories         int `json:"categories"`
}

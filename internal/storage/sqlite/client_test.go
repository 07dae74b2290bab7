package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srm-faq/backend/internal/storage/models"
)

func newTestLog(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(filepath.Join(t.TempDir(), "convlog.db"))
	require.NoError(t, err)
	require.NoError(t, client.InitSchema())

	t.Cleanup(func() { client.Close() })
	return client
}

func TestInsertAndReadBackExchange(t *testing.T) {
	client := newTestLog(t)
	ctx := context.Background()

	matchedID := int64(42)
	err := client.InsertExchange(ctx, &models.ChatExchange{
		SessionID:       "sess-1",
		UserMessage:     "como pagar?",
		MatchedEntryID:  &matchedID,
		BotResponse:     "Use o menu financeiro.",
		SimilarityScore: 0.82,
		CreatedAt:       time.Now(),
	})
	require.NoError(t, err)

	history, err := client.GetSessionHistory(ctx, "sess-1", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)

	got := history[0]
	assert.Equal(t, "como pagar?", got.UserMessage)
	assert.Equal(t, "Use o menu financeiro.", got.BotResponse)
	require.NotNil(t, got.MatchedEntryID)
	assert.Equal(t, int64(42), *got.MatchedEntryID)
	assert.Equal(t, 0.82, got.SimilarityScore)
}

func TestNoMatchExchangeKeepsNullEntryID(t *testing.T) {
	client := newTestLog(t)
	ctx := context.Background()

	err := client.InsertExchange(ctx, &models.ChatExchange{
		SessionID:   "sess-2",
		UserMessage: "pergunta fora do escopo",
		BotResponse: "resposta padrao",
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)

	history, err := client.GetSessionHistory(ctx, "sess-2", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)

	assert.Nil(t, history[0].MatchedEntryID)
	assert.Zero(t, history[0].SimilarityScore)
}

func TestSessionHistoryOrderAndIsolation(t *testing.T) {
	client := newTestLog(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, client.InsertExchange(ctx, &models.ChatExchange{
			SessionID:   "sess-a",
			UserMessage: string(rune('a' + i)),
			BotResponse: "r",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, client.InsertExchange(ctx, &models.ChatExchange{
		SessionID:   "sess-b",
		UserMessage: "other session",
		BotResponse: "r",
		CreatedAt:   base,
	}))

	history, err := client.GetSessionHistory(ctx, "sess-a", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, "c", history[0].UserMessage)
	assert.Equal(t, "b", history[1].UserMessage)

	count, err := client.CountExchanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestHistoryForUnknownSessionIsEmpty(t *testing.T) {
	client := newTestLog(t)

	history, err := client.GetSessionHistory(context.Background(), "missing", 10)

	require.NoError(t, err)
	assert.Empty(t, history)
}

package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srm-faq/backend/internal/storage/models"
)

type mockEmbedder struct {
	calls  []string
	vector []float32
	err    error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls = append(m.calls, text)
	if m.err != nil {
		return nil, m.err
	}
	return m.vector, nil
}

type mockStore struct {
	inserted        *models.KnowledgeEntry
	insertEmbedding []float32
	updated         *models.KnowledgeEntry
	updateEmbedding []float32
	existing        map[int64]models.KnowledgeEntry
	searchResults   []models.SearchResult
	searchThreshold float64
	searchLimit     int
	softDeleted     []int64
	hardDeleted     []int64
	err             error
}

func (m *mockStore) InsertEntry(_ context.Context, entry models.KnowledgeEntry, embedding []float32) (*models.KnowledgeEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	entry.ID = 1
	entry.IsActive = true
	m.inserted = &entry
	m.insertEmbedding = embedding
	return &entry, nil
}

func (m *mockStore) UpdateEntry(_ context.Context, entry models.KnowledgeEntry, embedding []float32) (*models.KnowledgeEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.updated = &entry
	m.updateEmbedding = embedding
	return &entry, nil
}

func (m *mockStore) GetEntry(_ context.Context, id int64) (*models.KnowledgeEntry, error) {
	entry, ok := m.existing[id]
	if !ok {
		return nil, errors.New("entry not found")
	}
	return &entry, nil
}

func (m *mockStore) ListEntries(_ context.Context, _ bool) ([]models.KnowledgeEntry, error) {
	return nil, m.err
}

func (m *mockStore) SoftDeleteEntry(_ context.Context, id int64) error {
	m.softDeleted = append(m.softDeleted, id)
	return m.err
}

func (m *mockStore) DeleteEntry(_ context.Context, id int64) error {
	m.hardDeleted = append(m.hardDeleted, id)
	return m.err
}

func (m *mockStore) Search(_ context.Context, _ []float32, threshold float64, limit int) ([]models.SearchResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.searchThreshold = threshold
	m.searchLimit = limit
	return m.searchResults, nil
}

func (m *mockStore) Categories(_ context.Context) ([]string, error) {
	return []string{"pagamentos"}, m.err
}

func (m *mockStore) EntryStats(_ context.Context) (int, int, int, error) {
	return 10, 8, 3, m.err
}

type mockCache struct {
	entries map[string][]float32
	sets    int
	getErr  error
}

func (m *mockCache) GetEmbedding(_ context.Context, hash string) ([]float32, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	vec, ok := m.entries[hash]
	return vec, ok, nil
}

func (m *mockCache) SetEmbedding(_ context.Context, hash string, embedding []float32) error {
	if m.entries == nil {
		m.entries = make(map[string][]float32)
	}
	m.entries[hash] = embedding
	m.sets++
	return nil
}

func TestServiceCreate(t *testing.T) {
	t.Run("embeds title plus content", func(t *testing.T) {
		embedder := &mockEmbedder{vector: []float32{0.1, 0.2}}
		store := &mockStore{}
		svc := NewService(store, embedder, nil, 0.5, 5)

		entry, err := svc.Create(context.Background(), CreateInput{
			Title:   "Redefinir senha",
			Content: "Acesse configuracoes e clique em redefinir.",
		})

		require.NoError(t, err)
		require.Len(t, embedder.calls, 1)
		assert.Equal(t, "Redefinir senha Acesse configuracoes e clique em redefinir.", embedder.calls[0])
		assert.Equal(t, []float32{0.1, 0.2}, store.insertEmbedding)
		assert.Equal(t, "Redefinir senha", entry.Title)
	})

	t.Run("synthesizes missing title", func(t *testing.T) {
		embedder := &mockEmbedder{vector: []float32{0.1}}
		store := &mockStore{}
		svc := NewService(store, embedder, nil, 0.5, 5)

		entry, err := svc.Create(context.Background(), CreateInput{
			Content: "Aceitamos cartao e boleto. Consulte o financeiro.",
		})

		require.NoError(t, err)
		assert.Equal(t, "Aceitamos cartao e boleto", entry.Title)
		assert.Equal(t, "Aceitamos cartao e boleto Aceitamos cartao e boleto. Consulte o financeiro.", embedder.calls[0])
	})

	t.Run("embedding failure propagates and nothing is stored", func(t *testing.T) {
		embedErr := errors.New("provider down")
		embedder := &mockEmbedder{err: embedErr}
		store := &mockStore{}
		svc := NewService(store, embedder, nil, 0.5, 5)

		_, err := svc.Create(context.Background(), CreateInput{Content: "qualquer coisa"})

		require.ErrorIs(t, err, embedErr)
		assert.Nil(t, store.inserted)
	})
}

func TestServiceUpdate(t *testing.T) {
	base := models.KnowledgeEntry{
		ID:       7,
		Title:    "Pagamentos",
		Content:  "Aceitamos cartao.",
		Category: "financeiro",
		IsActive: true,
	}

	t.Run("content change regenerates embedding", func(t *testing.T) {
		embedder := &mockEmbedder{vector: []float32{0.3}}
		store := &mockStore{existing: map[int64]models.KnowledgeEntry{7: base}}
		svc := NewService(store, embedder, nil, 0.5, 5)

		newContent := "Aceitamos cartao, boleto e pix."
		updated, err := svc.Update(context.Background(), 7, UpdateInput{Content: &newContent})

		require.NoError(t, err)
		require.Len(t, embedder.calls, 1)
		assert.Equal(t, "Pagamentos Aceitamos cartao, boleto e pix.", embedder.calls[0])
		assert.Equal(t, []float32{0.3}, store.updateEmbedding)
		assert.Equal(t, newContent, updated.Content)
		assert.Equal(t, "Pagamentos", updated.Title)
	})

	t.Run("title change regenerates embedding", func(t *testing.T) {
		embedder := &mockEmbedder{vector: []float32{0.4}}
		store := &mockStore{existing: map[int64]models.KnowledgeEntry{7: base}}
		svc := NewService(store, embedder, nil, 0.5, 5)

		newTitle := "Formas de pagamento"
		_, err := svc.Update(context.Background(), 7, UpdateInput{Title: &newTitle})

		require.NoError(t, err)
		require.Len(t, embedder.calls, 1)
		assert.Equal(t, "Formas de pagamento Aceitamos cartao.", embedder.calls[0])
		assert.NotNil(t, store.updateEmbedding)
	})

	t.Run("metadata only change keeps stored embedding", func(t *testing.T) {
		embedder := &mockEmbedder{vector: []float32{0.5}}
		store := &mockStore{existing: map[int64]models.KnowledgeEntry{7: base}}
		svc := NewService(store, embedder, nil, 0.5, 5)

		newCategory := "cobranca"
		inactive := false
		updated, err := svc.Update(context.Background(), 7, UpdateInput{
			Category: &newCategory,
			IsActive: &inactive,
		})

		require.NoError(t, err)
		assert.Empty(t, embedder.calls)
		assert.Nil(t, store.updateEmbedding)
		assert.Equal(t, "cobranca", updated.Category)
		assert.False(t, updated.IsActive)
	})

	t.Run("unknown entry fails before embedding", func(t *testing.T) {
		embedder := &mockEmbedder{vector: []float32{0.5}}
		store := &mockStore{existing: map[int64]models.KnowledgeEntry{}}
		svc := NewService(store, embedder, nil, 0.5, 5)

		newTitle := "x"
		_, err := svc.Update(context.Background(), 99, UpdateInput{Title: &newTitle})

		require.Error(t, err)
		assert.Empty(t, embedder.calls)
	})
}

func TestServiceSearch(t *testing.T) {
	t.Run("negative threshold uses configured default", func(t *testing.T) {
		embedder := &mockEmbedder{vector: []float32{0.1}}
		store := &mockStore{searchResults: []models.SearchResult{{ID: 1, Similarity: 0.9}}}
		svc := NewService(store, embedder, nil, 0.5, 5)

		results, err := svc.Search(context.Background(), "como pagar", -1)

		require.NoError(t, err)
		assert.Equal(t, 0.5, store.searchThreshold)
		assert.Equal(t, 5, store.searchLimit)
		assert.Len(t, results, 1)
	})

	t.Run("explicit threshold passed through", func(t *testing.T) {
		embedder := &mockEmbedder{vector: []float32{0.1}}
		store := &mockStore{}
		svc := NewService(store, embedder, nil, 0.5, 5)

		_, err := svc.Search(context.Background(), "como pagar", 0.35)

		require.NoError(t, err)
		assert.Equal(t, 0.35, store.searchThreshold)
	})

	t.Run("embeds the raw query", func(t *testing.T) {
		embedder := &mockEmbedder{vector: []float32{0.1}}
		store := &mockStore{}
		svc := NewService(store, embedder, nil, 0.5, 5)

		_, err := svc.Search(context.Background(), "como pagar", -1)

		require.NoError(t, err)
		require.Len(t, embedder.calls, 1)
		assert.Equal(t, "como pagar", embedder.calls[0])
	})
}

func TestServiceEmbeddingCache(t *testing.T) {
	t.Run("cache hit skips the provider", func(t *testing.T) {
		embedder := &mockEmbedder{vector: []float32{0.9}}
		store := &mockStore{}
		cache := &mockCache{}
		svc := NewService(store, embedder, cache, 0.5, 5)

		_, err := svc.Search(context.Background(), "como pagar", -1)
		require.NoError(t, err)
		require.Len(t, embedder.calls, 1)
		assert.Equal(t, 1, cache.sets)

		_, err = svc.Search(context.Background(), "como pagar", -1)
		require.NoError(t, err)
		assert.Len(t, embedder.calls, 1)
	})

	t.Run("cache read failure falls through to the provider", func(t *testing.T) {
		embedder := &mockEmbedder{vector: []float32{0.9}}
		store := &mockStore{}
		cache := &mockCache{getErr: errors.New("redis down")}
		svc := NewService(store, embedder, cache, 0.5, 5)

		_, err := svc.Search(context.Background(), "como pagar", -1)

		require.NoError(t, err)
		assert.Len(t, embedder.calls, 1)
	})
}

func TestServiceDelete(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store, &mockEmbedder{}, nil, 0.5, 5)

	require.NoError(t, svc.Delete(context.Background(), 3, false))
	require.NoError(t, svc.Delete(context.Background(), 4, true))

	assert.Equal(t, []int64{3}, store.softDeleted)
	assert.Equal(t, []int64{4}, store.hardDeleted)
}

package knowledge

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/srm-faq/backend/internal/storage/models"
	"github.com/srm-faq/backend/pkg/logger"
	"github.com/srm-faq/backend/pkg/utils"
)

// Embedder produces a fixed-dimension vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the persistence contract consumed by the service. Search is
// store-side ranked nearest-neighbor: the service never computes similarity.
type Store interface {
	InsertEntry(ctx context.Context, entry models.KnowledgeEntry, embedding []float32) (*models.KnowledgeEntry, error)
	UpdateEntry(ctx context.Context, entry models.KnowledgeEntry, embedding []float32) (*models.KnowledgeEntry, error)
	GetEntry(ctx context.Context, id int64) (*models.KnowledgeEntry, error)
	ListEntries(ctx context.Context, includeInactive bool) ([]models.KnowledgeEntry, error)
	SoftDeleteEntry(ctx context.Context, id int64) error
	DeleteEntry(ctx context.Context, id int64) error
	Search(ctx context.Context, embedding []float32, threshold float64, limit int) ([]models.SearchResult, error)
	Categories(ctx context.Context) ([]string, error)
	EntryStats(ctx context.Context) (total, active, categories int, err error)
}

// EmbeddingCache is optional; a nil cache means every text hits the provider.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32) error
}

type Service struct {
	store     Store
	embedder  Embedder
	cache     EmbeddingCache
	threshold float64
	limit     int
}

type CreateInput struct {
	Title    string
	Content  string
	Category string
	Tags     []string
}

type UpdateInput struct {
	Title    *string
	Content  *string
	Category *string
	Tags     *[]string
	IsActive *bool
}

func NewService(store Store, embedder Embedder, cache EmbeddingCache, threshold float64, limit int) *Service {
	return &Service{
		store:     store,
		embedder:  embedder,
		cache:     cache,
		threshold: threshold,
		limit:     limit,
	}
}

// Create stores a new entry. A missing title is synthesized from the
// content, and the embedding always covers title + content.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.KnowledgeEntry, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = SynthesizeTitle(input.Content)
	}

	embedding, err := s.embedText(ctx, embeddableText(title, input.Content))
	if err != nil {
		return nil, err
	}

	entry := models.KnowledgeEntry{
		Title:    title,
		Content:  input.Content,
		Category: input.Category,
		Tags:     input.Tags,
	}

	created, err := s.store.InsertEntry(ctx, entry, embedding)
	if err != nil {
		return nil, err
	}

	logger.Info("Knowledge entry created",
		zap.Int64("entry_id", created.ID),
		zap.String("title", created.Title),
	)

	return created, nil
}

// Update merges the partial input into the stored entry. The embedding is
// regenerated whenever title or content changes, in either combination, so a
// stored vector never goes stale relative to its text.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (*models.KnowledgeEntry, error) {
	existing, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *existing
	if input.Title != nil {
		merged.Title = *input.Title
	}
	if input.Content != nil {
		merged.Content = *input.Content
	}
	if input.Category != nil {
		merged.Category = *input.Category
	}
	if input.Tags != nil {
		merged.Tags = *input.Tags
	}
	if input.IsActive != nil {
		merged.IsActive = *input.IsActive
	}

	var embedding []float32
	if input.Title != nil || input.Content != nil {
		embedding, err = s.embedText(ctx, embeddableText(merged.Title, merged.Content))
		if err != nil {
			return nil, err
		}
	}

	updated, err := s.store.UpdateEntry(ctx, merged, embedding)
	if err != nil {
		return nil, err
	}

	logger.Info("Knowledge entry updated",
		zap.Int64("entry_id", updated.ID),
		zap.Bool("embedding_regenerated", embedding != nil),
	)

	return updated, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.KnowledgeEntry, error) {
	return s.store.GetEntry(ctx, id)
}

func (s *Service) List(ctx context.Context, includeInactive bool) ([]models.KnowledgeEntry, error) {
	return s.store.ListEntries(ctx, includeInactive)
}

// Delete deactivates by default; hard removes the row only when asked.
func (s *Service) Delete(ctx context.Context, id int64, hard bool) error {
	if hard {
		return s.store.DeleteEntry(ctx, id)
	}
	return s.store.SoftDeleteEntry(ctx, id)
}

// Search embeds the query and delegates ranking to the store. A negative
// threshold override falls back to the configured default.
func (s *Service) Search(ctx context.Context, query string, threshold float64) ([]models.SearchResult, error) {
	if threshold < 0 {
		threshold = s.threshold
	}

	embedding, err := s.embedText(ctx, query)
	if err != nil {
		return nil, err
	}

	return s.store.Search(ctx, embedding, threshold, s.limit)
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.store.Categories(ctx)
}

func (s *Service) EntryStats(ctx context.Context) (total, active, categories int, err error) {
	return s.store.EntryStats(ctx)
}

func (s *Service) DefaultThreshold() float64 {
	return s.threshold
}

func (s *Service) embedText(ctx context.Context, text string) ([]float32, error) {
	if s.cache == nil {
		return s.embedder.Embed(ctx, text)
	}

	hash := utils.HashText(text)

	cached, ok, err := s.cache.GetEmbedding(ctx, hash)
	if err != nil {
		logger.Warn("Embedding cache read failed", zap.Error(err))
	} else if ok {
		return cached, nil
	}

	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetEmbedding(ctx, hash, embedding); err != nil {
		logger.Warn("Embedding cache write failed", zap.Error(err))
	}

	return embedding, nil
}

func embeddableText(title, content string) string {
	return fmt.Sprintf("%s %s", title, content)
}

package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/srm-faq/backend/internal/humanizer"
	"github.com/srm-faq/backend/internal/metrics"
	"github.com/srm-faq/backend/internal/storage/models"
	"github.com/srm-faq/backend/pkg/logger"
)

// NoMatchAnswer is returned whenever no entry clears the similarity
// threshold. It is never sent through the humanizer.
const NoMatchAnswer = "Sou o assistente do SRM e posso ajudar apenas com dúvidas sobre o sistema.\n\n" +
	"Exemplos do que posso responder:\n" +
	"- Como redefinir senha\n" +
	"- Formas de pagamento\n" +
	"- Funcionalidades do sistema\n\n" +
	"Como posso ajudar?"

// Searcher embeds a message and returns ranked matches at or above threshold,
// best first.
type Searcher interface {
	Search(ctx context.Context, query string, threshold float64) ([]models.SearchResult, error)
}

// Humanizer rewrites a factual answer; it degrades internally and never fails.
type Humanizer interface {
	Humanize(ctx context.Context, content, userMessage string) humanizer.Result
}

// ConversationLog records one exchange per invocation, append-only.
type ConversationLog interface {
	InsertExchange(ctx context.Context, exchange *models.ChatExchange) error
}

// Engine is the retrieval pipeline. It holds no per-request state: every
// invocation runs embed, search, decide, humanize, log in sequence and may be
// executed concurrently with any other.
type Engine struct {
	searcher        Searcher
	humanizer       Humanizer
	convlog         ConversationLog
	threshold       float64
	humanizeDefault bool
}

type Request struct {
	Message   string
	SessionID string
	// Humanize overrides the process-wide default when set.
	Humanize *bool
}

type Response struct {
	Answer    string                `json:"answer"`
	Sources   []models.SearchResult `json:"sources"`
	SessionID string                `json:"session_id"`
	Humanized bool                  `json:"humanized"`
}

func NewEngine(searcher Searcher, h Humanizer, convlog ConversationLog, threshold float64, humanizeDefault bool) *Engine {
	return &Engine{
		searcher:        searcher,
		humanizer:       h,
		convlog:         convlog,
		threshold:       threshold,
		humanizeDefault: humanizeDefault,
	}
}

// Chat answers a user message from the knowledge base. Embedding and store
// failures propagate: with no data there is no safe degraded answer. A
// humanizer failure never surfaces here; its fallback already produced a
// valid answer.
func (e *Engine) Chat(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	shouldHumanize := e.humanizeDefault
	if req.Humanize != nil {
		shouldHumanize = *req.Humanize
	}

	results, err := e.searcher.Search(ctx, req.Message, e.threshold)
	if err != nil {
		metrics.ChatTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	// The store already filters at threshold; the top-score check keeps the
	// decision local and covers stores that return unfiltered results.
	hasMatch := len(results) > 0 && results[0].Similarity >= e.threshold

	var answer string
	sources := []models.SearchResult{}

	if !hasMatch {
		answer = NoMatchAnswer
	} else {
		if shouldHumanize {
			result := e.humanizer.Humanize(ctx, results[0].Content, req.Message)
			if !result.Humanized {
				metrics.HumanizeFallbackTotal.Inc()
				logger.Warn("Humanizer degraded to fallback",
					zap.String("session_id", sessionID),
					zap.Error(result.Err),
				)
			}
			answer = result.Text
		} else {
			answer = results[0].Content
		}
		sources = results
		metrics.SimilarityScore.Observe(results[0].Similarity)
	}

	e.recordExchange(ctx, sessionID, req.Message, answer, results, hasMatch)

	metrics.ChatTotal.WithLabelValues(matchLabel(hasMatch)).Inc()
	metrics.ChatDuration.Observe(time.Since(start).Seconds())

	logger.Info("Chat processed",
		zap.String("session_id", sessionID),
		zap.Bool("matched", hasMatch),
		zap.Bool("humanize", shouldHumanize),
		zap.Duration("latency", time.Since(start)),
	)

	return &Response{
		Answer:    answer,
		Sources:   sources,
		SessionID: sessionID,
		Humanized: shouldHumanize,
	}, nil
}

// recordExchange appends the log entry after the answer is final. A logging
// failure is reported and counted but never alters the response.
func (e *Engine) recordExchange(ctx context.Context, sessionID, message, answer string, results []models.SearchResult, hasMatch bool) {
	exchange := &models.ChatExchange{
		SessionID:   sessionID,
		UserMessage: message,
		BotResponse: answer,
		CreatedAt:   time.Now(),
	}
	if hasMatch {
		exchange.MatchedEntryID = &results[0].ID
		exchange.SimilarityScore = results[0].Similarity
	}

	if err := e.convlog.InsertExchange(ctx, exchange); err != nil {
		metrics.LogFailureTotal.Inc()
		logger.Error("Failed to record chat exchange",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}

func matchLabel(hasMatch bool) string {
	if hasMatch {
		return "match"
	}
	return "no_match"
}

package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/srm-faq/backend/internal/embedding"
	"github.com/srm-faq/backend/internal/humanizer"
	"github.com/srm-faq/backend/internal/knowledge"
	"github.com/srm-faq/backend/internal/metrics"
	"github.com/srm-faq/backend/internal/storage/models"
	"github.com/srm-faq/backend/internal/storage/postgres"
	"github.com/srm-faq/backend/internal/storage/sqlite"
	"github.com/srm-faq/backend/pkg/logger"
)

type SystemHandler struct {
	service   *knowledge.Service
	pg        *postgres.Client
	convlog   *sqlite.Client
	embedder  *embedding.Client
	humanizer *humanizer.Client
}

func NewSystemHandler(service *knowledge.Service, pg *postgres.Client, convlog *sqlite.Client, embedder *embedding.Client, h *humanizer.Client) *SystemHandler {
	return &SystemHandler{
		service:   service,
		pg:        pg,
		convlog:   convlog,
		embedder:  embedder,
		humanizer: h,
	}
}

// HandleHealth reports per-dependency reachability. The humanizer being down
// does not make the service unhealthy: chat degrades to the fallback answer.
func (h *SystemHandler) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()

	dbOK := h.pg.Ping(ctx) == nil
	logOK := h.convlog.Ping(ctx) == nil
	embeddingOK := h.embedder.CheckHealth(ctx)
	humanizerOK := h.humanizer.CheckHealth(ctx)

	healthy := dbOK && logOK && embeddingOK

	status := fiber.StatusOK
	if !healthy {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"healthy": healthy,
		"checks": fiber.Map{
			"postgres":  dbOK,
			"convlog":   logOK,
			"embedding": embeddingOK,
			"humanizer": humanizerOK,
		},
		"time": time.Now().Unix(),
	})
}

func (h *SystemHandler) HandleStats(c *fiber.Ctx) error {
	total, active, categories, err := h.service.EntryStats(c.Context())
	if err != nil {
		logger.Error("Failed to collect knowledge stats", zap.Error(err))
		return internalError(c, "Failed to collect stats")
	}

	conversations, err := h.convlog.CountExchanges(c.Context())
	if err != nil {
		logger.Error("Failed to count conversations", zap.Error(err))
		return internalError(c, "Failed to collect stats")
	}

	metrics.KnowledgeEntriesActive.Set(float64(active))

	return c.JSON(fiber.Map{
		"success": true,
		"data": models.Stats{
			TotalEntries:       total,
			ActiveEntries:      active,
			TotalConversations: conversations,
			Categories:         categories,
		},
	})
}

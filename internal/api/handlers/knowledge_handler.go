package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/srm-faq/backend/internal/embedding"
	"github.com/srm-faq/backend/internal/ingestion"
	"github.com/srm-faq/backend/internal/knowledge"
	"github.com/srm-faq/backend/internal/metrics"
	"github.com/srm-faq/backend/internal/storage/models"
	"github.com/srm-faq/backend/internal/storage/postgres"
	"github.com/srm-faq/backend/pkg/logger"
)

type KnowledgeHandler struct {
	service   *knowledge.Service
	processor *ingestion.Processor
}

func NewKnowledgeHandler(service *knowledge.Service, processor *ingestion.Processor) *KnowledgeHandler {
	return &KnowledgeHandler{
		service:   service,
		processor: processor,
	}
}

func (h *KnowledgeHandler) Create(c *fiber.Ctx) error {
	var req struct {
		Title    string   `json:"title"`
		Content  string   `json:"content"`
		Category string   `json:"category"`
		Tags     []string `json:"tags"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Content == "" {
		return badRequest(c, "Content is required")
	}

	entry, err := h.service.Create(c.Context(), knowledge.CreateInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Tags:     req.Tags,
	})
	if err != nil {
		logger.Error("Failed to create knowledge entry", zap.Error(err))
		return providerAwareError(c, err, "Failed to create knowledge entry")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    entry,
	})
}

func (h *KnowledgeHandler) List(c *fiber.Ctx) error {
	includeInactive := c.Query("include_inactive") == "true"

	entries, err := h.service.List(c.Context(), includeInactive)
	if err != nil {
		logger.Error("Failed to list knowledge entries", zap.Error(err))
		return internalError(c, "Failed to list knowledge entries")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    entries,
		"total":   len(entries),
	})
}

func (h *KnowledgeHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "Invalid entry id")
	}

	entry, err := h.service.Get(c.Context(), int64(id))
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return notFound(c)
		}
		logger.Error("Failed to get knowledge entry", zap.Error(err))
		return internalError(c, "Failed to get knowledge entry")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    entry,
	})
}

func (h *KnowledgeHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "Invalid entry id")
	}

	var req struct {
		Title    *string   `json:"title"`
		Content  *string   `json:"content"`
		Category *string   `json:"category"`
		Tags     *[]string `json:"tags"`
		IsActive *bool     `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	entry, err := h.service.Update(c.Context(), int64(id), knowledge.UpdateInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Tags:     req.Tags,
		IsActive: req.IsActive,
	})
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return notFound(c)
		}
		logger.Error("Failed to update knowledge entry", zap.Error(err))
		return providerAwareError(c, err, "Failed to update knowledge entry")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    entry,
	})
}

func (h *KnowledgeHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "Invalid entry id")
	}

	hard := c.Query("hard") == "true"

	if err := h.service.Delete(c.Context(), int64(id), hard); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return notFound(c)
		}
		logger.Error("Failed to delete knowledge entry", zap.Error(err))
		return internalError(c, "Failed to delete knowledge entry")
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *KnowledgeHandler) Search(c *fiber.Ctx) error {
	var req struct {
		Query     string   `json:"query"`
		Threshold *float64 `json:"threshold"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Query == "" {
		return badRequest(c, "Query is required")
	}

	threshold := -1.0
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	results, err := h.service.Search(c.Context(), req.Query, threshold)
	if err != nil {
		metrics.SearchTotal.WithLabelValues("error").Inc()
		logger.Error("Failed to search knowledge base", zap.Error(err))
		return providerAwareError(c, err, "Failed to search knowledge base")
	}

	metrics.SearchTotal.WithLabelValues("ok").Inc()

	if results == nil {
		results = []models.SearchResult{}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    results,
	})
}

func (h *KnowledgeHandler) Categories(c *fiber.Ctx) error {
	categories, err := h.service.Categories(c.Context())
	if err != nil {
		logger.Error("Failed to list categories", zap.Error(err))
		return internalError(c, "Failed to list categories")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    categories,
	})
}

func (h *KnowledgeHandler) Import(c *fiber.Ctx) error {
	var req struct {
		HTML     string   `json:"html"`
		Category string   `json:"category"`
		Tags     []string `json:"tags"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.HTML == "" {
		return badRequest(c, "HTML content is required")
	}

	entry, err := h.processor.ImportHTML(c.Context(), req.HTML, req.Category, req.Tags)
	if err != nil {
		logger.Error("Failed to import HTML content", zap.Error(err))
		return providerAwareError(c, err, "Failed to import HTML content")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    entry,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success": false,
		"error":   "Knowledge entry not found",
	})
}

func internalError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

// providerAwareError maps embedding provider outages to 503 so callers can
// tell "try again later" apart from a genuine server fault.
func providerAwareError(c *fiber.Ctx, err error, msg string) error {
	if errors.Is(err, embedding.ErrProviderUnavailable) || errors.Is(err, embedding.ErrEmbeddingFailure) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"error":   "Embedding provider unavailable",
		})
	}
	return internalError(c, msg)
}

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/srm-faq/backend/pkg/circuitbreaker"
	"github.com/srm-faq/backend/pkg/config"
	"github.com/srm-faq/backend/pkg/logger"
	"github.com/srm-faq/backend/pkg/retry"
)

var (
	// ErrProviderUnavailable means the endpoint could not be reached at all.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	// ErrEmbeddingFailure means the endpoint answered but without a usable vector.
	ErrEmbeddingFailure = errors.New("embedding generation failed")
)

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Client talks to the Ollama embeddings endpoint. It performs no retries of
// its own; the circuit breaker only sheds load once the provider is known bad.
type Client struct {
	baseURL    string
	model      string
	dimensions int
	timeout    time.Duration
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
}

func NewClient(cfg config.OllamaConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	cb := circuitbreaker.New("ollama-embeddings", circuitbreaker.Config{
		MaxRequests:      3,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	logger.Info("Embedding client initialized",
		zap.String("model", cfg.EmbeddingModel),
		zap.Int("dimensions", cfg.EmbeddingDim),
	)

	return &Client{
		baseURL:    cfg.BaseURL,
		model:      cfg.EmbeddingModel,
		dimensions: cfg.EmbeddingDim,
		timeout:    timeout,
		httpClient: &http.Client{},
		cb:         cb,
	}
}

// Embed turns text into a fixed-length vector. A vector whose length differs
// from the configured dimensionality is treated as unusable data: stored
// vectors and query vectors must always agree.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var result []float32

	err := c.cb.Execute(ctx, func() error {
		vec, err := c.embed(ctx, text)
		if err != nil {
			return err
		}
		result = vec
		return nil
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return nil, err
	}

	return result, nil
}

func (c *Client) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", ErrEmbeddingFailure, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", ErrEmbeddingFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailure, resp.StatusCode, string(payload))
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrEmbeddingFailure, err)
	}

	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("%w: response contained no vector", ErrEmbeddingFailure)
	}
	if c.dimensions > 0 && len(parsed.Embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: model returned %d dimensions, expected %d",
			ErrEmbeddingFailure, len(parsed.Embedding), c.dimensions)
	}

	return parsed.Embedding, nil
}

// WaitReady polls the provider until it answers, for use at process start.
// The configured model is also probed once so a dimensionality mismatch
// surfaces as a startup failure instead of poisoning the first request.
func (c *Client) WaitReady(ctx context.Context) error {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 10
	cfg.InitialDelay = 3 * time.Second
	cfg.Multiplier = 1.0
	cfg.Logger = logger.GetLogger()

	err := retry.Do(ctx, cfg, func() error {
		return c.healthProbe(ctx)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if _, err := c.embed(ctx, "ping"); err != nil {
		return fmt.Errorf("embedding self-check failed: %w", err)
	}

	return nil
}

func (c *Client) CheckHealth(ctx context.Context) bool {
	return c.healthProbe(ctx) == nil
}

func (c *Client) healthProbe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

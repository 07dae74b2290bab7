package humanizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/srm-faq/backend/pkg/config"
	"github.com/srm-faq/backend/pkg/logger"
)

const systemPrompt = `Você é um assistente do sistema SRM. Responda de forma amigável e direta.
REGRAS:
- Cumprimente o usuário de forma breve
- Máximo 3 frases
- Use APENAS as informações fornecidas
- Português do Brasil
- Não invente nada`

// Result carries the humanized text or the deterministic fallback. Humanized
// is false when the fallback fired; Err then holds the cause for logging.
// Humanize never returns an error to its caller.
type Result struct {
	Text      string
	Humanized bool
	Err       error
}

type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	greeting    string
}

func NewClient(cfg config.GroqConfig, greeting string) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	logger.Info("Humanizer client initialized",
		zap.String("model", cfg.Model),
		zap.String("base_url", clientCfg.BaseURL),
	)

	return &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
		greeting:    greeting,
	}
}

// Humanize rewrites factual content into a conversational reply constrained
// to that content. Any failure degrades to greeting+content: the cached
// answer always survives, only the rewrite is lost.
func (c *Client) Humanize(ctx context.Context, content, userMessage string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	userPrompt := fmt.Sprintf("Pergunta: %q\n\nInformação para usar: %q\n\nResponda:", userMessage, content)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		logger.Warn("Humanizer call failed, using fallback", zap.Error(err))
		return c.fallback(content, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		logger.Warn("Humanizer returned empty completion, using fallback")
		return c.fallback(content, fmt.Errorf("empty completion"))
	}

	return Result{Text: resp.Choices[0].Message.Content, Humanized: true}
}

// Fallback exposes the deterministic degraded answer, also used when
// humanization is skipped entirely because no API key is configured.
func (c *Client) Fallback(content string) string {
	return c.greeting + content
}

func (c *Client) fallback(content string, err error) Result {
	return Result{Text: c.Fallback(content), Humanized: false, Err: err}
}

// CheckHealth probes the models listing so the health endpoint can report
// humanizer reachability without spending completion tokens.
func (c *Client) CheckHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.client.ListModels(ctx)
	return err == nil
}

package ingestion

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/srm-faq/backend/internal/knowledge"
	"github.com/srm-faq/backend/internal/storage/models"
	"github.com/srm-faq/backend/pkg/logger"
)

var whitespaceRuns = regexp.MustCompile(`\s+`)

// Creator is the slice of the knowledge service the processor needs.
type Creator interface {
	Create(ctx context.Context, input knowledge.CreateInput) (*models.KnowledgeEntry, error)
}

// Processor turns HTML pages into knowledge entries: boilerplate elements are
// stripped, the visible text becomes the entry content, and the page title
// the entry title when present.
type Processor struct {
	service Creator
}

func NewProcessor(service Creator) *Processor {
	return &Processor{service: service}
}

func (p *Processor) ImportHTML(ctx context.Context, htmlContent, category string, tags []string) (*models.KnowledgeEntry, error) {
	text, err := ExtractText(htmlContent)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("no content extracted from HTML")
	}

	title := ExtractTitle(htmlContent)

	entry, err := p.service.Create(ctx, knowledge.CreateInput{
		Title:    title,
		Content:  text,
		Category: category,
		Tags:     tags,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store imported entry: %w", err)
	}

	logger.Info("HTML content imported",
		zap.Int64("entry_id", entry.ID),
		zap.Int("content_length", len(text)),
	)

	return entry, nil
}

// ExtractText returns visible body text with scripts, styles and page chrome
// removed and whitespace collapsed.
func ExtractText(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Find("body").Text()
	text = whitespaceRuns.ReplaceAllString(text, " ")

	return strings.TrimSpace(text), nil
}

// ExtractTitle prefers the document title, then the first h1. An empty
// return lets the knowledge service synthesize one from the content.
func ExtractTitle(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	return title
}

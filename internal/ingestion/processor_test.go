package ingestion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srm-faq/backend/internal/knowledge"
	"github.com/srm-faq/backend/internal/storage/models"
)

type stubCreator struct {
	input knowledge.CreateInput
	err   error
}

func (s *stubCreator) Create(_ context.Context, input knowledge.CreateInput) (*models.KnowledgeEntry, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &models.KnowledgeEntry{ID: 1, Title: input.Title, Content: input.Content}, nil
}

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Formas de Pagamento</title>
  <style>body { color: red; }</style>
  <script>console.log("tracking");</script>
</head>
<body>
  <nav>Home | FAQ | Contato</nav>
  <header>Portal SRM</header>
  <h1>Pagamentos</h1>
  <p>Aceitamos cartao de credito,   boleto
  e pix.</p>
  <footer>Copyright 2026</footer>
</body>
</html>`

func TestExtractText(t *testing.T) {
	text, err := ExtractText(samplePage)

	require.NoError(t, err)
	assert.Equal(t, "Pagamentos Aceitamos cartao de credito, boleto e pix.", text)
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "Contato")
	assert.NotContains(t, text, "Copyright")
}

func TestExtractTitle(t *testing.T) {
	t.Run("prefers document title", func(t *testing.T) {
		assert.Equal(t, "Formas de Pagamento", ExtractTitle(samplePage))
	})

	t.Run("falls back to first h1", func(t *testing.T) {
		page := `<html><body><h1>Cadastro</h1><p>Conteudo.</p></body></html>`
		assert.Equal(t, "Cadastro", ExtractTitle(page))
	})

	t.Run("empty when neither present", func(t *testing.T) {
		page := `<html><body><p>Conteudo.</p></body></html>`
		assert.Equal(t, "", ExtractTitle(page))
	})
}

func TestImportHTML(t *testing.T) {
	t.Run("creates entry from page", func(t *testing.T) {
		creator := &stubCreator{}
		processor := NewProcessor(creator)

		entry, err := processor.ImportHTML(context.Background(), samplePage, "pagamentos", []string{"faq"})

		require.NoError(t, err)
		assert.Equal(t, int64(1), entry.ID)
		assert.Equal(t, "Formas de Pagamento", creator.input.Title)
		assert.Equal(t, "pagamentos", creator.input.Category)
		assert.Equal(t, []string{"faq"}, creator.input.Tags)
		assert.Contains(t, creator.input.Content, "boleto e pix")
	})

	t.Run("rejects pages with no visible text", func(t *testing.T) {
		creator := &stubCreator{}
		processor := NewProcessor(creator)

		_, err := processor.ImportHTML(context.Background(), `<html><body><script>x()</script></body></html>`, "", nil)

		require.Error(t, err)
		assert.Empty(t, creator.input.Content)
	})
}

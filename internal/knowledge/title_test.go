package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSynthesizeTitle(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "short content used verbatim",
			content:  "Como redefinir senha",
			expected: "Como redefinir senha",
		},
		{
			name:     "markdown markers stripped",
			content:  "# Como **redefinir** a _senha_",
			expected: "Como redefinir a senha",
		},
		{
			name:     "whitespace collapsed",
			content:  "Como   redefinir\n\ta  senha",
			expected: "Como redefinir a senha",
		},
		{
			name:     "first sentence on period",
			content:  "Acesse o painel de controle. Depois clique em configuracoes.",
			expected: "Acesse o painel de controle",
		},
		{
			name:     "first sentence on question mark",
			content:  "Esqueceu a senha? Use a recuperacao automatica.",
			expected: "Esqueceu a senha",
		},
		{
			name:     "first sentence on newline",
			content:  "Formas de pagamento aceitas\nCartao, boleto e pix",
			expected: "Formas de pagamento aceitas",
		},
		{
			name:     "empty content",
			content:  "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SynthesizeTitle(tt.content))
		})
	}
}

func TestSynthesizeTitleTruncation(t *testing.T) {
	t.Run("truncates at last word boundary past the minimum", func(t *testing.T) {
		content := "the quick brown fox jumps over the lazy dog while the sun sets slowly"
		got := SynthesizeTitle(content)

		assert.Equal(t, "the quick brown fox jumps over the lazy dog while the sun...", got)
	})

	t.Run("hard cut when no usable word boundary", func(t *testing.T) {
		content := strings.Repeat("a", 80)
		got := SynthesizeTitle(content)

		assert.Equal(t, strings.Repeat("a", 60)+"...", got)
	})

	t.Run("exactly sixty characters kept whole", func(t *testing.T) {
		content := strings.Repeat("b", 60)
		got := SynthesizeTitle(content)

		assert.Equal(t, content, got)
		assert.NotContains(t, got, "...")
	})

	t.Run("multibyte content counted in runes", func(t *testing.T) {
		content := strings.Repeat("ç", 61)
		got := SynthesizeTitle(content)

		assert.Equal(t, strings.Repeat("ç", 60)+"...", got)
	})
}

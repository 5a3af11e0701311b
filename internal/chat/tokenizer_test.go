package chat

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizerFallbackCount(t *testing.T) {
	tk := &Tokenizer{}

	assert.Equal(t, 0, tk.Count(""))
	assert.Equal(t, 1, tk.Count("abc"))
	assert.Equal(t, 2, tk.Count("abcde"))
}

func TestTokenizerFallbackTruncate(t *testing.T) {
	tk := &Tokenizer{}

	got, cut := tk.Truncate("short", 10)
	assert.Equal(t, "short", got)
	assert.False(t, cut)

	got, cut = tk.Truncate(strings.Repeat("a", 100), 5)
	assert.True(t, cut)
	assert.Len(t, got, 5*fallbackCharsPerToken)
}

func TestTokenizerFallbackTruncateKeepsValidUTF8(t *testing.T) {
	tk := &Tokenizer{}

	// Each rune is three bytes, so a byte-count cut lands mid-rune
	// unless the cut backs off to a rune boundary.
	text := strings.Repeat("你", 10)
	got, cut := tk.Truncate(text, 5)
	require.True(t, cut)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 5*fallbackCharsPerToken)
	assert.NotEmpty(t, got)
}

func TestTokenizerZeroBudget(t *testing.T) {
	tk := &Tokenizer{}

	got, cut := tk.Truncate("anything", 0)
	assert.Empty(t, got)
	assert.True(t, cut)
}

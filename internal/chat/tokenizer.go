package chat

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// fallbackCharsPerToken approximates token counts when the encoder is
// unavailable.
const fallbackCharsPerToken = 4

// Tokenizer counts and truncates text against token budgets. The gpt-4
// encoding is close enough for budgeting across all routed models.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

func NewTokenizer() *Tokenizer {
	enc, err := tiktoken.EncodingForModel("gpt-4")
	if err != nil {
		return &Tokenizer{}
	}
	return &Tokenizer{enc: enc}
}

// Count returns the token count of text.
func (t *Tokenizer) Count(text string) int {
	if t.enc == nil {
		return (len(text) + fallbackCharsPerToken - 1) / fallbackCharsPerToken
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Truncate cuts text down to at most budget tokens. The second return
// reports whether anything was removed.
func (t *Tokenizer) Truncate(text string, budget int) (string, bool) {
	if budget <= 0 {
		return "", text != ""
	}

	if t.enc == nil {
		limit := budget * fallbackCharsPerToken
		if len(text) <= limit {
			return text, false
		}
		// Back off to a rune boundary so the cut never leaves a
		// partial multi-byte sequence behind.
		for limit > 0 && !utf8.RuneStart(text[limit]) {
			limit--
		}
		return text[:limit], true
	}

	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text, false
	}
	return t.enc.Decode(tokens[:budget]), true
}

package search

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Encodings tried in order. o200k_base is the gpt-4o family encoding.
var encodingPreference = []string{"o200k_base", "cl100k_base"}

var (
	loadOnce   sync.Once
	sharedEnc  *tiktoken.Tiktoken
	sharedName string
)

// Tokenizer counts and truncates text by BPE tokens.
//
// Truncation is token-exact: text is encoded, cut to the first n tokens and
// decoded. If no encoding can be loaded the tokenizer falls back to
// whitespace-separated words, which is approximate.
type Tokenizer struct {
	enc  *tiktoken.Tiktoken
	name string
}

// NewTokenizer returns a tokenizer backed by the embedded BPE ranks.
func NewTokenizer() *Tokenizer {
	loadOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		for _, name := range encodingPreference {
			enc, err := tiktoken.GetEncoding(name)
			if err == nil {
				sharedEnc, sharedName = enc, name
				return
			}
		}
	})
	return &Tokenizer{enc: sharedEnc, name: sharedName}
}

// Encoding names the BPE encoding in use, or "words" for the fallback.
func (t *Tokenizer) Encoding() string {
	if t.enc == nil {
		return "words"
	}
	return t.name
}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	if t.enc == nil {
		return len(strings.Fields(text))
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Truncate returns at most maxTokens tokens of text.
func (t *Tokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if t.enc == nil {
		words := strings.Fields(text)
		if len(words) <= maxTokens {
			return text
		}
		return strings.Join(words[:maxTokens], " ")
	}

	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	// A cut inside a multi-byte rune decodes to invalid UTF-8.
	return strings.ToValidUTF8(t.enc.Decode(tokens[:maxTokens]), "")
}

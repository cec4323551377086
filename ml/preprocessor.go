package ml

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Preprocessor turns text into term frequencies and remembers recent results.
// Frequencies are a pure function of the text, so cached entries never go stale.
type Preprocessor struct {
	tokenizer *Tokenizer
	cache     *lru.Cache[string, TermFrequencies]
}

// NewPreprocessor creates a Preprocessor. A cacheSize of zero or less disables caching.
func NewPreprocessor(tokenizer *Tokenizer, cacheSize int) (*Preprocessor, error) {
	if tokenizer == nil {
		tokenizer = defaultTokenizer
	}
	p := &Preprocessor{tokenizer: tokenizer}
	if cacheSize > 0 {
		cache, err := lru.New[string, TermFrequencies](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create feature cache: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

// Tokenizer returns the tokenizer used by the preprocessor.
func (p *Preprocessor) Tokenizer() *Tokenizer {
	return p.tokenizer
}

// Tokenize splits text with the preprocessor's tokenizer.
func (p *Preprocessor) Tokenize(text string) []Token {
	return p.tokenizer.Tokenize(text)
}

// Extract returns the term frequencies of text. The result is owned by the caller.
func (p *Preprocessor) Extract(text string) TermFrequencies {
	if p.cache == nil {
		return ExtractFeatures(p.tokenizer.Tokenize(text))
	}
	if cached, ok := p.cache.Get(text); ok {
		return cached.Clone()
	}
	frequencies := ExtractFeatures(p.tokenizer.Tokenize(text))
	p.cache.Add(text, frequencies.Clone())
	return frequencies
}

// CacheLen returns the number of cached texts.
func (p *Preprocessor) CacheLen() int {
	if p.cache == nil {
		return 0
	}
	return p.cache.Len()
}

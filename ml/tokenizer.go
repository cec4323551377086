package ml

import (
	"strings"

	"github.com/reiver/go-porterstemmer"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Token is a normalized word. Two tokens are equal when their text is equal.
type Token string

// Tokenizer splits raw text on single spaces and uppercases every fragment.
// A Tokenizer holds no mutable state and may be shared between goroutines.
type Tokenizer struct {
	stem bool
}

// TokenizerOption customizes a Tokenizer.
type TokenizerOption func(*Tokenizer)

// WithStemming reduces every fragment to its Porter stem before it is uppercased.
func WithStemming() TokenizerOption {
	return func(t *Tokenizer) {
		t.stem = true
	}
}

// NewTokenizer creates a Tokenizer.
func NewTokenizer(opts ...TokenizerOption) *Tokenizer {
	t := &Tokenizer{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var defaultTokenizer = NewTokenizer()

// Tokenize splits text with the default tokenizer.
func Tokenize(text string) []Token {
	return defaultTokenizer.Tokenize(text)
}

// Stemming reports whether the tokenizer stems fragments.
func (t *Tokenizer) Stemming() bool {
	return t.stem
}

// Tokenize returns the uppercased, non-blank fragments of text in order of
// appearance. Only the space character separates fragments.
func (t *Tokenizer) Tokenize(text string) []Token {
	fragments := strings.Split(norm.NFC.String(text), " ")
	tokens := make([]Token, 0, len(fragments))
	// cases.Caser is stateful, one per call.
	upper := cases.Upper(language.Und)
	for _, fragment := range fragments {
		if strings.TrimSpace(fragment) == "" {
			continue
		}
		if t.stem {
			fragment = porterstemmer.StemString(fragment)
		}
		tokens = append(tokens, Token(upper.String(fragment)))
	}
	return tokens
}

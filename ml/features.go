package ml

import (
	"sort"

	"github.com/samber/lo"
)

// TermFrequencies maps a token's text to the number of times it occurs.
type TermFrequencies map[string]int

// ExtractFeatures counts every distinct token in a single pass.
func ExtractFeatures(tokens []Token) TermFrequencies {
	frequencies := make(TermFrequencies, len(tokens))
	for _, token := range tokens {
		frequencies[string(token)]++
	}
	return frequencies
}

// ExtractTextFeatures tokenizes text with the default tokenizer and counts the tokens.
func ExtractTextFeatures(text string) TermFrequencies {
	return ExtractFeatures(Tokenize(text))
}

// Total returns the sum of all counts, which equals the number of tokens counted.
func (tf TermFrequencies) Total() int {
	return lo.Sum(lo.Values(tf))
}

// Keys returns the distinct terms in lexical order.
func (tf TermFrequencies) Keys() []string {
	keys := lo.Keys(tf)
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy.
func (tf TermFrequencies) Clone() TermFrequencies {
	clone := make(TermFrequencies, len(tf))
	for term, count := range tf {
		clone[term] = count
	}
	return clone
}

// Features converts the counts into named features ordered by name.
func (tf TermFrequencies) Features(weighting Weighting) []Feature {
	features := make([]Feature, 0, len(tf))
	for _, term := range tf.Keys() {
		features = append(features, Feature{
			Name:  term,
			Value: weighting.Weight(tf[term]),
		})
	}
	return features
}

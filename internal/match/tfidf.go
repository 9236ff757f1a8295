package match

import (
	"errors"
	"math"
	"sort"
	"strings"
	"unicode"
)

// Vectorizer configuration mirrors the shape of the similarity model the
// matcher was tuned against: lowercased word tokens, English stop-words
// removed, unigrams plus bigrams, vocabulary capped at maxVocabulary terms.
const (
	maxVocabulary = 5000
	minTokenLen   = 2
)

// ErrEmptyVocabulary is returned when neither document yields any terms.
var ErrEmptyVocabulary = errors.New("tfidf: empty vocabulary")

var englishStopwords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {}, "all": {},
	"an": {}, "and": {}, "any": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"because": {}, "been": {}, "before": {}, "being": {}, "below": {},
	"between": {}, "both": {}, "but": {}, "by": {}, "can": {}, "did": {},
	"do": {}, "does": {}, "doing": {}, "down": {}, "during": {}, "each": {},
	"few": {}, "for": {}, "from": {}, "further": {}, "had": {}, "has": {},
	"have": {}, "having": {}, "he": {}, "her": {}, "here": {}, "hers": {},
	"him": {}, "his": {}, "how": {}, "i": {}, "if": {}, "in": {}, "into": {},
	"is": {}, "it": {}, "its": {}, "just": {}, "me": {}, "more": {},
	"most": {}, "my": {}, "no": {}, "nor": {}, "not": {}, "now": {}, "of": {},
	"off": {}, "on": {}, "once": {}, "only": {}, "or": {}, "other": {},
	"our": {}, "out": {}, "over": {}, "own": {}, "same": {}, "she": {},
	"so": {}, "some": {}, "such": {}, "than": {}, "that": {}, "the": {},
	"their": {}, "them": {}, "then": {}, "there": {}, "these": {}, "they": {},
	"this": {}, "those": {}, "through": {}, "to": {}, "too": {}, "under": {},
	"until": {}, "up": {}, "very": {}, "was": {}, "we": {}, "were": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "while": {}, "who": {},
	"whom": {}, "why": {}, "will": {}, "with": {}, "you": {}, "your": {},
	"yours": {},
}

// tfidfCosine vectorizes the two documents with a TF-IDF model fitted on both
// and returns the cosine similarity of the resulting vectors, clamped to
// [0,1]. The fit is symmetric in its inputs.
func tfidfCosine(textA, textB string) (float64, error) {
	termsA := ngrams(tokenize(textA))
	termsB := ngrams(tokenize(textB))

	vocabulary := buildVocabulary(termsA, termsB)
	if len(vocabulary) == 0 {
		return 0, ErrEmptyVocabulary
	}

	vecA := tfidfVector(termsA, termsB, vocabulary)
	vecB := tfidfVector(termsB, termsA, vocabulary)

	similarity := dot(vecA, vecB)
	return clamp01(similarity), nil
}

// tokenize lowercases the text and extracts word tokens of at least
// minTokenLen characters, dropping English stop-words.
func tokenize(text string) []string {
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() >= minTokenLen {
			token := current.String()
			if _, stop := englishStopwords[token]; !stop {
				tokens = append(tokens, token)
			}
		}
		current.Reset()
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

// ngrams expands tokens into unigrams plus adjacent bigrams.
func ngrams(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]string, 0, 2*len(tokens)-1)
	out = append(out, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

// buildVocabulary selects up to maxVocabulary terms across both documents,
// highest total frequency first, ties broken alphabetically.
func buildVocabulary(termsA, termsB []string) map[string]int {
	counts := make(map[string]int, len(termsA)+len(termsB))
	for _, term := range termsA {
		counts[term]++
	}
	for _, term := range termsB {
		counts[term]++
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxVocabulary {
		terms = terms[:maxVocabulary]
	}

	vocabulary := make(map[string]int, len(terms))
	for i, term := range terms {
		vocabulary[term] = i
	}
	return vocabulary
}

// tfidfVector computes the l2-normalized TF-IDF vector for doc against a
// two-document corpus of doc and other.
func tfidfVector(doc, other []string, vocabulary map[string]int) []float64 {
	tf := make([]float64, len(vocabulary))
	for _, term := range doc {
		if idx, ok := vocabulary[term]; ok {
			tf[idx]++
		}
	}

	otherSet := make(map[string]struct{}, len(other))
	for _, term := range other {
		otherSet[term] = struct{}{}
	}

	const docCount = 2.0
	vec := make([]float64, len(vocabulary))
	for term, idx := range vocabulary {
		if tf[idx] == 0 {
			continue
		}
		df := 1.0
		if _, ok := otherSet[term]; ok {
			df = 2.0
		}
		// Smoothed idf: ln((1+n)/(1+df)) + 1.
		idf := math.Log((1+docCount)/(1+df)) + 1
		vec[idx] = tf[idx] * idf
	}
	normalize(vec)
	return vec
}

func normalize(vec []float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

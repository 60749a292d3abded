// Package cosine ranks a document collection against a query by the cosine
// similarity of their bag-of-words term-frequency vectors. The vocabulary is
// rebuilt on every call from the query and the documents, so vector positions
// are only comparable within a single Search.
package cosine

import (
	"math"
	"slices"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/errors"
)

// Vocabulary is the sorted set of distinct lowercase tokens shared by a query
// and its documents.
type Vocabulary []string

// TermVector holds one non-negative count per Vocabulary entry.
type TermVector []int

// Result is the outcome of a Search. Scores are in document order.
type Result struct {
	BestMatch      string    `json:"best_match"`
	BestIndex      int       `json:"best_index"`
	Scores         []float64 `json:"scores"`
	VocabularySize int       `json:"vocabulary_size"`
}

// Tokenize lower-cases text and splits it on whitespace. Punctuation is kept.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// BuildVocabulary returns the sorted distinct tokens across all texts.
func BuildVocabulary(texts ...string) Vocabulary {
	seen := make(map[string]struct{})
	for _, text := range texts {
		for _, tok := range Tokenize(text) {
			seen[tok] = struct{}{}
		}
	}
	vocab := make(Vocabulary, 0, len(seen))
	for tok := range seen {
		vocab = append(vocab, tok)
	}
	slices.Sort(vocab)
	return vocab
}

// Index returns the position of word in the vocabulary, or -1.
func (v Vocabulary) Index(word string) int {
	i, ok := slices.BinarySearch(v, word)
	if !ok {
		return -1
	}
	return i
}

// Vectorize counts each vocabulary word in text. Tokens outside the
// vocabulary are ignored.
func Vectorize(text string, vocab Vocabulary) TermVector {
	counts := make(map[string]int)
	for _, tok := range Tokenize(text) {
		counts[tok]++
	}
	vec := make(TermVector, len(vocab))
	for i, word := range vocab {
		vec[i] = counts[word]
	}
	return vec
}

// Dot returns the dot product of a and b over their common length.
func Dot(a, b TermVector) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Magnitude returns the Euclidean norm of v.
func Magnitude(v TermVector) float64 {
	return math.Sqrt(squaredNorm(v))
}

func squaredNorm(v TermVector) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return sum
}

// Similarity returns dot(a,b) / (|a| * |b|). A zero-magnitude vector on
// either side scores 0.
func Similarity(a, b TermVector) float64 {
	normA := squaredNorm(a)
	normB := squaredNorm(b)
	if normA == 0 || normB == 0 {
		return 0
	}
	// sqrt of the product keeps identical vectors at exactly 1
	score := Dot(a, b) / math.Sqrt(normA*normB)
	if score > 1 {
		score = 1
	}
	return score
}

// Search scores every document against query and returns the first document
// with the highest score. An empty query scores every document 0 and so
// selects the first one.
func Search(query string, documents []string) (*Result, error) {
	if len(documents) == 0 {
		return nil, apperrors.InvalidInput("documents must not be empty")
	}

	texts := make([]string, 0, len(documents)+1)
	texts = append(texts, query)
	texts = append(texts, documents...)
	vocab := BuildVocabulary(texts...)

	queryVec := Vectorize(query, vocab)
	scores := make([]float64, len(documents))
	best := 0
	for i, doc := range documents {
		scores[i] = Similarity(queryVec, Vectorize(doc, vocab))
		if scores[i] > scores[best] {
			best = i
		}
	}
	return &Result{
		BestMatch:      documents[best],
		BestIndex:      best,
		Scores:         scores,
		VocabularySize: len(vocab),
	}, nil
}

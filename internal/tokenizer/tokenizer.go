// Package tokenizer provides the basic text tokenisation methods: whitespace
// splitting, regex word extraction and character splitting. Subword
// tokenisation lives in the bpe subpackage.
package tokenizer

import (
	"regexp"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/errors"
)

// wordRegex matches runs of Unicode letters, digits and underscores.
var wordRegex = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Method names accepted by ByName.
const (
	MethodWhitespace = "whitespace"
	MethodWord       = "word"
	MethodChar       = "char"
)

// Tokenizer splits text into tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Func adapts a plain function to the Tokenizer interface.
type Func func(text string) []string

func (f Func) Tokenize(text string) []string {
	return f(text)
}

// Whitespace lower-cases text and splits it on runs of whitespace.
func Whitespace(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Word lower-cases text and extracts runs of word characters, dropping
// punctuation. Letters and digits from any script count as word characters.
func Word(text string) []string {
	tokens := wordRegex.FindAllString(strings.ToLower(text), -1)
	if tokens == nil {
		return []string{}
	}
	return tokens
}

// Char splits text into one token per rune. Case and whitespace are kept.
func Char(text string) []string {
	tokens := make([]string, 0, len(text))
	for _, r := range text {
		tokens = append(tokens, string(r))
	}
	return tokens
}

// Unique returns the distinct tokens in order of first appearance.
func Unique(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// ByName returns the tokenizer registered under name.
func ByName(name string) (Tokenizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case MethodWhitespace, "":
		return Func(Whitespace), nil
	case MethodWord:
		return Func(Word), nil
	case MethodChar:
		return Func(Char), nil
	default:
		return nil, apperrors.InvalidInput("unknown tokenization method %q", name)
	}
}

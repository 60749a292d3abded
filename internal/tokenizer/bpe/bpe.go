// Package bpe learns a byte-pair-encoding subword vocabulary from a corpus.
//
// Every whitespace-separated word starts as its characters followed by an
// end-of-word marker. Each step counts adjacent symbol pairs across all words,
// weighted by word frequency, and merges the most frequent pair everywhere it
// occurs. Learning stops after the requested number of merges or when no word
// has two symbols left.
//
// A merge matches whole adjacent symbols, never raw substrings, so "l o"
// does not match inside the symbol sequence "lo w".
//
// Ties between equally frequent pairs are broken by a fixed TieBreak policy
// so that the merge order is reproducible.
package bpe

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"unicode"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/errors"
)

// DefaultEndOfWord marks the end of every word's symbol sequence.
const DefaultEndOfWord = "</w>"

// TieBreak selects among pairs that share the highest frequency.
type TieBreak int

const (
	// TieBreakLexicographic picks the smallest (Left, Right) pair by byte-wise
	// string comparison.
	TieBreakLexicographic TieBreak = iota
	// TieBreakFirstSeen picks the pair encountered first when walking entries
	// in first-appearance order and each entry's pairs left to right.
	TieBreakFirstSeen
)

func (t TieBreak) String() string {
	switch t {
	case TieBreakLexicographic:
		return "lexicographic"
	case TieBreakFirstSeen:
		return "first_seen"
	default:
		return "unknown"
	}
}

// ParseTieBreak maps a policy name to a TieBreak. The empty string selects
// TieBreakLexicographic.
func ParseTieBreak(name string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lexicographic":
		return TieBreakLexicographic, nil
	case "first_seen", "first-seen":
		return TieBreakFirstSeen, nil
	default:
		return 0, apperrors.InvalidInput("unknown tie-break policy %q", name)
	}
}

// Pair is two adjacent symbols.
type Pair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Merged returns the symbol that replaces the pair.
func (p Pair) Merged() string {
	return p.Left + p.Right
}

func (p Pair) String() string {
	return p.Left + " " + p.Right
}

func (p Pair) less(o Pair) bool {
	if p.Left != o.Left {
		return p.Left < o.Left
	}
	return p.Right < o.Right
}

// Merge records one learning step.
type Merge struct {
	Pair Pair `json:"pair"`
	Freq int  `json:"freq"`
}

// Entry is one symbol sequence and the number of corpus words it stands for.
type Entry struct {
	Symbols string `json:"symbols"`
	Freq    int    `json:"freq"`
}

// Vocab maps space-delimited symbol sequences to frequencies. Entries keep
// the order in which their word first appeared in the corpus.
type Vocab struct {
	entries []Entry
	index   map[string]int
}

// NewVocab builds the character-level vocabulary of corpus using the given
// end-of-word marker. Identical words collapse into one entry.
func NewVocab(corpus string, endOfWord string) *Vocab {
	v := &Vocab{index: make(map[string]int)}
	for _, word := range strings.Fields(corpus) {
		symbols := make([]string, 0, len(word)+1)
		for _, r := range word {
			symbols = append(symbols, string(r))
		}
		symbols = append(symbols, endOfWord)
		v.Add(strings.Join(symbols, " "), 1)
	}
	return v
}

// Add increases the frequency of the sequence, creating it if needed.
func (v *Vocab) Add(symbols string, freq int) {
	if v.index == nil {
		v.index = make(map[string]int)
	}
	if i, ok := v.index[symbols]; ok {
		v.entries[i].Freq += freq
		return
	}
	v.index[symbols] = len(v.entries)
	v.entries = append(v.entries, Entry{Symbols: symbols, Freq: freq})
}

// Len returns the number of distinct sequences.
func (v *Vocab) Len() int {
	return len(v.entries)
}

// Freq returns the frequency of a sequence, or 0 if absent.
func (v *Vocab) Freq(symbols string) int {
	if i, ok := v.index[symbols]; ok {
		return v.entries[i].Freq
	}
	return 0
}

// Entries returns a copy of the sequences in first-appearance order.
func (v *Vocab) Entries() []Entry {
	return slices.Clone(v.entries)
}

// Map returns the sequences as a sequence -> frequency map.
func (v *Vocab) Map() map[string]int {
	m := make(map[string]int, len(v.entries))
	for _, e := range v.entries {
		m[e.Symbols] = e.Freq
	}
	return m
}

// TotalFrequency sums the frequency of every sequence. Merging never changes
// it.
func (v *Vocab) TotalFrequency() int {
	total := 0
	for _, e := range v.entries {
		total += e.Freq
	}
	return total
}

// Symbols returns the sorted distinct symbols currently in use.
func (v *Vocab) Symbols() []string {
	seen := make(map[string]struct{})
	for _, e := range v.entries {
		for _, s := range strings.Split(e.Symbols, " ") {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// MergePair replaces every adjacent occurrence of pair, left to right and
// without overlap, by its merged symbol. Sequences that become identical are
// combined and their frequencies summed. It returns the number of
// replacements made.
func (v *Vocab) MergePair(pair Pair) int {
	merged := &Vocab{
		entries: make([]Entry, 0, len(v.entries)),
		index:   make(map[string]int, len(v.entries)),
	}
	replaced := 0
	for _, e := range v.entries {
		out, n := mergeSymbols(strings.Split(e.Symbols, " "), pair)
		replaced += n
		merged.Add(strings.Join(out, " "), e.Freq)
	}
	*v = *merged
	return replaced
}

func mergeSymbols(symbols []string, pair Pair) ([]string, int) {
	out := make([]string, 0, len(symbols))
	n := 0
	for i := 0; i < len(symbols); i++ {
		if i+1 < len(symbols) && symbols[i] == pair.Left && symbols[i+1] == pair.Right {
			out = append(out, pair.Merged())
			n++
			i++
			continue
		}
		out = append(out, symbols[i])
	}
	return out, n
}

// mergeCapacity is the most merges v can still take: every merge removes at
// least one symbol from some entry.
func (v *Vocab) mergeCapacity() int {
	n := 0
	for _, e := range v.entries {
		n += strings.Count(e.Symbols, " ")
	}
	return n
}

// PairCounts is the weighted frequency of every adjacent pair, together with
// the order in which the pairs were first seen.
type PairCounts struct {
	Counts map[Pair]int
	Order  []Pair
}

// CountPairs tallies adjacent symbol pairs, adding each sequence's frequency
// once per occurrence.
func CountPairs(v *Vocab) PairCounts {
	pc := PairCounts{Counts: make(map[Pair]int)}
	for _, e := range v.entries {
		symbols := strings.Split(e.Symbols, " ")
		for i := 0; i+1 < len(symbols); i++ {
			p := Pair{Left: symbols[i], Right: symbols[i+1]}
			if _, ok := pc.Counts[p]; !ok {
				pc.Order = append(pc.Order, p)
			}
			pc.Counts[p] += e.Freq
		}
	}
	return pc
}

// Best returns the most frequent pair under the tie-break policy. ok is false
// when there are no pairs.
func (pc PairCounts) Best(tb TieBreak) (best Pair, freq int, ok bool) {
	for _, p := range pc.Order {
		c := pc.Counts[p]
		switch {
		case !ok, c > freq:
			best, freq, ok = p, c, true
		case c == freq && tb == TieBreakLexicographic && p.less(best):
			best = p
		}
	}
	return best, freq, ok
}

// Result is the outcome of Learn.
type Result struct {
	Vocab     *Vocab
	Merges    []Merge
	EndOfWord string
}

// Segment splits every whitespace-separated word of text into subword
// symbols by replaying the learned merges in order, and returns the symbols
// of all words in text order. Each word's last symbol carries the
// end-of-word marker. Text without words yields nil.
func (r *Result) Segment(text string) []string {
	eow := r.EndOfWord
	if eow == "" {
		eow = DefaultEndOfWord
	}
	var out []string
	seen := make(map[string][]string)
	for _, word := range strings.Fields(text) {
		symbols, ok := seen[word]
		if !ok {
			for _, c := range word {
				symbols = append(symbols, string(c))
			}
			symbols = append(symbols, eow)
			for _, m := range r.Merges {
				symbols, _ = mergeSymbols(symbols, m.Pair)
			}
			seen[word] = symbols
		}
		out = append(out, symbols...)
	}
	return out
}

// Observer is called after every merge with the 1-based step number.
type Observer func(step int, m Merge, v *Vocab)

type options struct {
	ctx       context.Context
	endOfWord string
	tieBreak  TieBreak
	observer  Observer
}

// Option configures Learn.
type Option func(*options)

// WithEndOfWord overrides DefaultEndOfWord.
func WithEndOfWord(marker string) Option {
	return func(o *options) {
		o.endOfWord = marker
	}
}

// WithTieBreak selects the tie-break policy.
func WithTieBreak(tb TieBreak) Option {
	return func(o *options) {
		o.tieBreak = tb
	}
}

// WithObserver registers a callback invoked after each merge.
func WithObserver(fn Observer) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// WithContext makes Learn stop with ErrTimeout once ctx is done. The context
// is checked before every merge.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		o.ctx = ctx
	}
}

// Learn performs up to numMerges merges on the vocabulary of corpus. An
// empty corpus yields an empty vocabulary.
func Learn(corpus string, numMerges int, opts ...Option) (*Result, error) {
	o := options{ctx: context.Background(), endOfWord: DefaultEndOfWord, tieBreak: TieBreakLexicographic}
	for _, opt := range opts {
		opt(&o)
	}
	if numMerges < 0 {
		return nil, apperrors.InvalidInput("num_merges must be >= 0, got %d", numMerges)
	}
	if err := validateEndOfWord(o.endOfWord); err != nil {
		return nil, err
	}
	if o.tieBreak != TieBreakLexicographic && o.tieBreak != TieBreakFirstSeen {
		return nil, apperrors.InvalidInput("unknown tie-break policy %d", int(o.tieBreak))
	}

	vocab := NewVocab(corpus, o.endOfWord)
	merges := make([]Merge, 0, min(numMerges, vocab.mergeCapacity()))
	for step := 1; step <= numMerges; step++ {
		if err := o.ctx.Err(); err != nil {
			return nil, apperrors.Newf(apperrors.ErrTimeout, http.StatusServiceUnavailable,
				"bpe learning stopped after %d of %d merges: %v", step-1, numMerges, err)
		}
		pair, freq, ok := CountPairs(vocab).Best(o.tieBreak)
		if !ok {
			break
		}
		vocab.MergePair(pair)
		m := Merge{Pair: pair, Freq: freq}
		merges = append(merges, m)
		if o.observer != nil {
			o.observer(step, m, vocab)
		}
	}
	return &Result{Vocab: vocab, Merges: merges, EndOfWord: o.endOfWord}, nil
}

func validateEndOfWord(marker string) error {
	if marker == "" {
		return apperrors.InvalidInput("end-of-word marker must not be empty")
	}
	if strings.IndexFunc(marker, unicode.IsSpace) >= 0 {
		return apperrors.InvalidInput("end-of-word marker %q must not contain whitespace", marker)
	}
	return nil
}

// FormatMerge renders a merge as "left + right -> merged (freq: n)".
func FormatMerge(m Merge) string {
	return fmt.Sprintf("%s + %s -> %s (freq: %d)", m.Pair.Left, m.Pair.Right, m.Pair.Merged(), m.Freq)
}

// Package executor runs the search and tokenization algorithms on behalf of
// the HTTP layer, adding timeouts, tracing spans, metrics and logging.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/search/cosine"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/search/elementary"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/tokenizer/bpe"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/tracing"
)

// Algorithm labels used in metrics and analytics.
const (
	AlgorithmCosine = "cosine"
	AlgorithmBPE    = "bpe"
)

// Algorithms lists every algorithm label the executor records.
func Algorithms() []string {
	return []string{
		AlgorithmCosine,
		searcher.AlgorithmLinear,
		searcher.AlgorithmBinary,
		searcher.AlgorithmJump,
		searcher.AlgorithmInterpolation,
		"tokenize_" + tokenizer.MethodWhitespace,
		"tokenize_" + tokenizer.MethodWord,
		"tokenize_" + tokenizer.MethodChar,
		AlgorithmBPE,
	}
}

// Executor runs the search and tokenization algorithms for the handlers. It
// applies the configured timeout, records per-algorithm metrics and opens a
// span per run. It is safe for concurrent use.
type Executor struct {
	timeout         time.Duration
	defaultMerges   int
	endOfWord       string
	defaultTieBreak bpe.TieBreak
	metrics         *metrics.Metrics
	logger          *slog.Logger
}

// New creates an Executor. It fails when tokCfg names an unknown tie-break
// policy.
func New(searchCfg config.SearchConfig, tokCfg config.TokenizerConfig, m *metrics.Metrics) (*Executor, error) {
	tb, err := bpe.ParseTieBreak(tokCfg.TieBreak)
	if err != nil {
		return nil, fmt.Errorf("tokenizer.tieBreak: %w", err)
	}
	return &Executor{
		timeout:         searchCfg.Timeout,
		defaultMerges:   tokCfg.DefaultMerges,
		endOfWord:       tokCfg.EndOfWord,
		defaultTieBreak: tb,
		metrics:         m,
		logger:          slog.Default().With("component", "executor"),
	}, nil
}

// Cosine ranks documents against query.
func (e *Executor) Cosine(ctx context.Context, query string, documents []string) (*searcher.CosineResponse, error) {
	start := time.Now()
	ctx, span := e.startSpan(ctx, "cosine.search")
	span.SetAttr("documents", len(documents))
	defer e.finishSpan(ctx, span)

	var res *cosine.Result
	err := resilience.WithTimeout(ctx, e.timeout, "cosine search", func(context.Context) error {
		var err error
		res, err = cosine.Search(query, documents)
		return err
	})
	e.observe(AlgorithmCosine, start, err, err == nil)
	if err != nil {
		return nil, err
	}

	e.metrics.CosineDocuments.Observe(float64(len(documents)))
	span.SetAttr("best_index", res.BestIndex)
	span.SetAttr("vocabulary_size", res.VocabularySize)
	logger.FromContext(ctx).Debug("cosine search completed",
		"documents", len(documents),
		"vocabulary_size", res.VocabularySize,
		"best_index", res.BestIndex,
		"best_score", res.Scores[res.BestIndex],
	)
	return &searcher.CosineResponse{
		BestMatch:      res.BestMatch,
		BestIndex:      res.BestIndex,
		Scores:         res.Scores,
		VocabularySize: res.VocabularySize,
	}, nil
}

// Elementary runs the named index search. Validation of the algorithm name
// and ordering precondition happens before this is called; an unknown name
// here is still rejected.
func (e *Executor) Elementary(ctx context.Context, algorithm string, values []int64, target int64) (*searcher.ElementaryResponse, error) {
	start := time.Now()
	algorithm = strings.ToLower(strings.TrimSpace(algorithm))

	var search func([]int64, int64) int
	switch algorithm {
	case searcher.AlgorithmLinear:
		search = elementary.Linear[int64]
	case searcher.AlgorithmBinary:
		search = elementary.Binary[int64]
	case searcher.AlgorithmJump:
		search = elementary.Jump[int64]
	case searcher.AlgorithmInterpolation:
		search = elementary.Interpolation[int64]
	default:
		err := apperrors.InvalidInput("unknown algorithm %q", algorithm)
		e.observe("unknown", start, err, false)
		return nil, err
	}

	idx := search(values, target)
	found := idx != elementary.NotFound
	e.observe(algorithm, start, nil, found)
	logger.FromContext(ctx).Debug("elementary search completed",
		"algorithm", algorithm,
		"length", len(values),
		"index", idx,
	)
	return &searcher.ElementaryResponse{Algorithm: algorithm, Index: idx, Found: found}, nil
}

// Tokenize splits text with the named basic tokenizer.
func (e *Executor) Tokenize(ctx context.Context, text, method string) (*searcher.TokenizeResponse, error) {
	start := time.Now()
	tok, err := tokenizer.ByName(method)
	if err != nil {
		e.observe("tokenize", start, err, false)
		return nil, err
	}
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		method = tokenizer.MethodWhitespace
	}
	tokens := tok.Tokenize(text)
	e.observe("tokenize_"+method, start, nil, len(tokens) > 0)
	return &searcher.TokenizeResponse{
		Method: method,
		Tokens: tokens,
		Unique: tokenizer.Unique(tokens),
	}, nil
}

// BPEOptions resolves the defaults for a BPE request.
func (e *Executor) BPEOptions(numMerges *int, tieBreak string) (int, bpe.TieBreak, error) {
	n := e.defaultMerges
	if numMerges != nil {
		n = *numMerges
	}
	tb := e.defaultTieBreak
	if strings.TrimSpace(tieBreak) != "" {
		var err error
		if tb, err = bpe.ParseTieBreak(tieBreak); err != nil {
			return 0, 0, err
		}
	}
	return n, tb, nil
}

// EndOfWord returns the configured end-of-word marker.
func (e *Executor) EndOfWord() string {
	return e.endOfWord
}

// LearnBPE learns numMerges merges from corpus. Each merge is logged at
// debug level.
func (e *Executor) LearnBPE(ctx context.Context, corpus string, numMerges int, tb bpe.TieBreak) (*searcher.BPEResponse, error) {
	start := time.Now()
	ctx, span := e.startSpan(ctx, "bpe.learn")
	span.SetAttr("requested_merges", numMerges)
	span.SetAttr("tie_break", tb.String())
	defer e.finishSpan(ctx, span)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	log := logger.FromContext(ctx)
	res, err := bpe.Learn(corpus, numMerges,
		bpe.WithContext(ctx),
		bpe.WithEndOfWord(e.endOfWord),
		bpe.WithTieBreak(tb),
		bpe.WithObserver(func(step int, m bpe.Merge, v *bpe.Vocab) {
			log.Debug("bpe merge", "step", step, "merge", bpe.FormatMerge(m), "vocab_size", v.Len())
		}),
	)
	e.observe(AlgorithmBPE, start, err, err == nil)
	if err != nil {
		return nil, err
	}

	e.metrics.BPEMergesPerformed.Observe(float64(len(res.Merges)))
	span.SetAttr("merges", len(res.Merges))
	if len(res.Merges) < numMerges {
		log.Debug("bpe stopped early, no pairs left", "requested", numMerges, "performed", len(res.Merges))
	}

	merges := make([]searcher.MergeStep, len(res.Merges))
	for i, m := range res.Merges {
		merges[i] = searcher.MergeStep{
			Left:   m.Pair.Left,
			Right:  m.Pair.Right,
			Merged: m.Pair.Merged(),
			Freq:   m.Freq,
		}
	}
	tokens := res.Segment(corpus)
	if tokens == nil {
		tokens = []string{}
	}
	return &searcher.BPEResponse{
		Vocab:    res.Vocab.Map(),
		Merges:   merges,
		Symbols:  res.Vocab.Symbols(),
		Tokens:   tokens,
		TieBreak: tb.String(),
	}, nil
}

func (e *Executor) observe(algorithm string, start time.Time, err error, found bool) {
	result := "found"
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		result = "invalid"
	case errors.Is(err, apperrors.ErrTimeout):
		result = "timeout"
	case err != nil:
		result = "error"
	case !found:
		result = "not_found"
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(algorithm, result).Inc()
	e.metrics.SearchLatency.WithLabelValues(algorithm).Observe(time.Since(start).Seconds())
}

func (e *Executor) startSpan(ctx context.Context, name string) (context.Context, *tracing.Span) {
	if tracing.SpanFromContext(ctx) != nil {
		return tracing.StartChildSpan(ctx, name)
	}
	traceID, _ := logger.RequestID(ctx)
	return tracing.StartSpan(ctx, name, traceID)
}

func (e *Executor) finishSpan(ctx context.Context, span *tracing.Span) {
	span.End()
	span.Log(logger.FromContext(ctx).With("component", "tracing"))
}

package executor

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/tokenizer/bpe"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/metrics"
)

func newTestExecutor(t *testing.T) (*Executor, *metrics.Metrics) {
	t.Helper()
	cfg := config.Default()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	e, err := New(cfg.Search, cfg.Tokenizer, m)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e, m
}

func TestNewRejectsUnknownTieBreak(t *testing.T) {
	cfg := config.Default()
	cfg.Tokenizer.TieBreak = "coin_flip"
	if _, err := New(cfg.Search, cfg.Tokenizer, metrics.NewWithRegistry(prometheus.NewRegistry())); err == nil {
		t.Fatal("expected error for unknown tie-break")
	}
}

func TestCosine(t *testing.T) {
	e, m := newTestExecutor(t)
	res, err := e.Cosine(context.Background(), "machine learning", []string{
		"Football is a popular sport",
		"Machine learning uses algorithms",
	})
	if err != nil {
		t.Fatalf("Cosine() error = %v", err)
	}
	if res.BestIndex != 1 || res.Scores[0] != 0 {
		t.Errorf("Cosine() = %+v", res)
	}
	if res.VocabularySize != 9 {
		t.Errorf("VocabularySize = %d, want 9", res.VocabularySize)
	}
	if got := testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues(AlgorithmCosine, "found")); got != 1 {
		t.Errorf("cosine found counter = %v, want 1", got)
	}

	_, err = e.Cosine(context.Background(), "x", nil)
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Cosine(no documents) error = %v, want ErrInvalidInput", err)
	}
	if got := testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues(AlgorithmCosine, "invalid")); got != 1 {
		t.Errorf("cosine invalid counter = %v, want 1", got)
	}
}

func TestElementary(t *testing.T) {
	e, m := newTestExecutor(t)
	values := []int64{10, 20, 30, 40, 50, 60, 70, 80, 90}
	tests := []struct {
		algorithm string
		target    int64
		want      int
	}{
		{"linear", 60, 5},
		{"binary", 60, 5},
		{"BINARY", 61, -1},
		{"jump", 80, 7},
		{"interpolation", 30, 2},
	}
	for _, tt := range tests {
		res, err := e.Elementary(context.Background(), tt.algorithm, values, tt.target)
		if err != nil {
			t.Fatalf("Elementary(%s) error = %v", tt.algorithm, err)
		}
		if res.Index != tt.want || res.Found != (tt.want >= 0) {
			t.Errorf("Elementary(%s, %d) = %+v, want index %d", tt.algorithm, tt.target, res, tt.want)
		}
	}
	if got := testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("binary", "not_found")); got != 1 {
		t.Errorf("binary not_found counter = %v, want 1", got)
	}

	if _, err := e.Elementary(context.Background(), "ternary", values, 1); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("unknown algorithm error = %v", err)
	}
}

func TestTokenize(t *testing.T) {
	e, _ := newTestExecutor(t)
	res, err := e.Tokenize(context.Background(), "Hello, hello world!", "word")
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	if len(res.Tokens) != 3 || len(res.Unique) != 2 || res.Method != "word" {
		t.Errorf("Tokenize() = %+v", res)
	}

	res, err = e.Tokenize(context.Background(), "a b", "")
	if err != nil || res.Method != "whitespace" {
		t.Errorf("default method = %+v, %v", res, err)
	}
}

func TestLearnBPE(t *testing.T) {
	e, _ := newTestExecutor(t)
	n, tb, err := e.BPEOptions(nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if n != config.Default().Tokenizer.DefaultMerges || tb != bpe.TieBreakLexicographic {
		t.Errorf("BPEOptions defaults = %d, %v", n, tb)
	}

	res, err := e.LearnBPE(context.Background(), "low lower newest widest low lower", 8, bpe.TieBreakLexicographic)
	if err != nil {
		t.Fatalf("LearnBPE() error = %v", err)
	}
	if len(res.Merges) != 8 {
		t.Fatalf("got %d merges, want 8", len(res.Merges))
	}
	first := res.Merges[0]
	if first.Left != "l" || first.Right != "o" || first.Merged != "lo" || first.Freq != 4 {
		t.Errorf("first merge = %+v", first)
	}
	if res.Vocab["low</w>"] != 2 || res.TieBreak != "lexicographic" {
		t.Errorf("LearnBPE() = %+v", res)
	}
	wantTokens := []string{"low</w>", "low", "er</w>", "n", "e", "w", "est</w>", "w", "i", "d", "est</w>", "low</w>", "low", "er</w>"}
	if !slices.Equal(res.Tokens, wantTokens) {
		t.Errorf("Tokens = %v, want %v", res.Tokens, wantTokens)
	}

	empty, err := e.LearnBPE(context.Background(), "  ", 8, bpe.TieBreakLexicographic)
	if err != nil {
		t.Fatalf("LearnBPE(blank) error = %v", err)
	}
	if empty.Tokens == nil || len(empty.Tokens) != 0 || len(empty.Merges) != 0 {
		t.Errorf("LearnBPE(blank) = %+v", empty)
	}
}

func TestBPEOptionsOverrides(t *testing.T) {
	e, _ := newTestExecutor(t)
	three := 3
	n, tb, err := e.BPEOptions(&three, "first-seen")
	if err != nil || n != 3 || tb != bpe.TieBreakFirstSeen {
		t.Errorf("BPEOptions() = %d, %v, %v", n, tb, err)
	}
	if _, _, err := e.BPEOptions(nil, "bogus"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("BPEOptions(bogus) error = %v", err)
	}
}

func TestLearnBPECancelled(t *testing.T) {
	e, _ := newTestExecutor(t)
	e.timeout = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.LearnBPE(ctx, "aaa bbb", 5, bpe.TieBreakLexicographic)
	if !errors.Is(err, apperrors.ErrTimeout) {
		t.Errorf("LearnBPE(cancelled) error = %v, want ErrTimeout", err)
	}
}

package validator

import (
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/errors"
)

var limits = Limits{
	MaxDocuments:   3,
	MaxTextBytes:   64,
	MaxArrayLength: 5,
	MaxMerges:      100,
	MaxCorpusBytes: 32,
}

func intPtr(n int) *int { return &n }

func assertFields(t *testing.T, err error, want ...string) {
	t.Helper()
	if len(want) == 0 {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return
	}
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	fields := apperrors.FieldErrors(err)
	if len(fields) != len(want) {
		t.Errorf("fields = %v, want keys %v", fields, want)
	}
	for _, f := range want {
		if _, ok := fields[f]; !ok {
			t.Errorf("missing field error %q in %v", f, fields)
		}
	}
}

func TestValidateCosine(t *testing.T) {
	tests := []struct {
		name string
		req  searcher.CosineRequest
		want []string
	}{
		{"valid", searcher.CosineRequest{Query: "ml", Documents: []string{"a", "b"}}, nil},
		{"empty query allowed", searcher.CosineRequest{Documents: []string{"a"}}, nil},
		{"no documents", searcher.CosineRequest{Query: "x"}, []string{"documents"}},
		{"too many documents", searcher.CosineRequest{Documents: []string{"a", "b", "c", "d"}}, []string{"documents"}},
		{"documents too large", searcher.CosineRequest{Documents: []string{string(make([]byte, 65))}}, []string{"documents"}},
		{"query too large", searcher.CosineRequest{Query: string(make([]byte, 65)), Documents: []string{"a"}}, []string{"query"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFields(t, ValidateCosine(&tt.req, limits), tt.want...)
		})
	}
}

func TestValidateElementary(t *testing.T) {
	tests := []struct {
		name string
		req  searcher.ElementaryRequest
		want []string
	}{
		{"binary sorted", searcher.ElementaryRequest{Algorithm: "binary", Values: []int64{1, 2, 3}}, nil},
		{"linear unsorted", searcher.ElementaryRequest{Algorithm: "linear", Values: []int64{3, 1, 2}}, nil},
		{"case insensitive", searcher.ElementaryRequest{Algorithm: " Jump ", Values: []int64{1}}, nil},
		{"empty values", searcher.ElementaryRequest{Algorithm: "interpolation"}, nil},
		{"jump unsorted", searcher.ElementaryRequest{Algorithm: "jump", Values: []int64{3, 1}}, []string{"values"}},
		{"missing algorithm", searcher.ElementaryRequest{Values: []int64{1}}, []string{"algorithm"}},
		{"unknown algorithm", searcher.ElementaryRequest{Algorithm: "ternary"}, []string{"algorithm"}},
		{"too many values", searcher.ElementaryRequest{Algorithm: "linear", Values: make([]int64, 6)}, []string{"values"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFields(t, ValidateElementary(&tt.req, limits), tt.want...)
		})
	}
}

func TestValidateTokenize(t *testing.T) {
	assertFields(t, ValidateTokenize(&searcher.TokenizeRequest{Text: "a b", Method: "word"}, limits))
	assertFields(t, ValidateTokenize(&searcher.TokenizeRequest{Text: "a b"}, limits))
	assertFields(t, ValidateTokenize(&searcher.TokenizeRequest{Method: "bpe"}, limits), "method")
	assertFields(t, ValidateTokenize(&searcher.TokenizeRequest{Text: string(make([]byte, 65))}, limits), "text")
}

func TestValidateBPE(t *testing.T) {
	tests := []struct {
		name string
		req  searcher.BPERequest
		want []string
	}{
		{"defaults", searcher.BPERequest{Corpus: "low lower"}, nil},
		{"empty corpus", searcher.BPERequest{NumMerges: intPtr(5)}, nil},
		{"zero merges", searcher.BPERequest{Corpus: "a", NumMerges: intPtr(0), TieBreak: "first_seen"}, nil},
		{"negative merges", searcher.BPERequest{NumMerges: intPtr(-1)}, []string{"num_merges"}},
		{"too many merges", searcher.BPERequest{NumMerges: intPtr(101)}, []string{"num_merges"}},
		{"unknown tie break", searcher.BPERequest{TieBreak: "random"}, []string{"tie_break"}},
		{"corpus too large", searcher.BPERequest{Corpus: string(make([]byte, 33))}, []string{"corpus"}},
		{"several", searcher.BPERequest{NumMerges: intPtr(-3), TieBreak: "x"}, []string{"num_merges", "tie_break"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFields(t, ValidateBPE(&tt.req, limits), tt.want...)
		})
	}
}

func TestLimitsFromConfig(t *testing.T) {
	cfg := config.Default()
	l := LimitsFromConfig(cfg)
	if l.MaxDocuments != cfg.Search.MaxDocuments || l.MaxMerges != cfg.Tokenizer.MaxMerges {
		t.Errorf("LimitsFromConfig() = %+v", l)
	}
}

// Package validator checks search-service requests against configured size
// limits and returns per-field error details.
package validator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/tokenizer/bpe"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/errors"
)

// Limits bounds request sizes.
type Limits struct {
	MaxDocuments   int
	MaxTextBytes   int
	MaxArrayLength int
	MaxMerges      int
	MaxCorpusBytes int
}

// LimitsFromConfig reads Limits from the search and tokenizer sections.
func LimitsFromConfig(cfg *config.Config) Limits {
	return Limits{
		MaxDocuments:   cfg.Search.MaxDocuments,
		MaxTextBytes:   cfg.Search.MaxTextBytes,
		MaxArrayLength: cfg.Search.MaxArrayLength,
		MaxMerges:      cfg.Tokenizer.MaxMerges,
		MaxCorpusBytes: cfg.Tokenizer.MaxCorpusBytes,
	}
}

func fieldsError(errs map[string]string) error {
	if len(errs) == 0 {
		return nil
	}
	return apperrors.InvalidFields(errs)
}

// ValidateCosine requires at least one document and bounds the text size.
// An empty query is allowed and scores every document 0.
func ValidateCosine(req *searcher.CosineRequest, l Limits) error {
	errs := make(map[string]string)
	if len(req.Query) > l.MaxTextBytes {
		errs["query"] = fmt.Sprintf("query must be at most %d bytes", l.MaxTextBytes)
	}
	switch {
	case len(req.Documents) == 0:
		errs["documents"] = "at least one document is required"
	case len(req.Documents) > l.MaxDocuments:
		errs["documents"] = fmt.Sprintf("at most %d documents are allowed", l.MaxDocuments)
	default:
		total := 0
		for _, d := range req.Documents {
			total += len(d)
		}
		if total > l.MaxTextBytes {
			errs["documents"] = fmt.Sprintf("documents must total at most %d bytes", l.MaxTextBytes)
		}
	}
	return fieldsError(errs)
}

// ValidateElementary checks the algorithm name and, for every algorithm that
// relies on order, that values are sorted ascending.
func ValidateElementary(req *searcher.ElementaryRequest, l Limits) error {
	errs := make(map[string]string)
	algorithm := strings.ToLower(strings.TrimSpace(req.Algorithm))
	switch algorithm {
	case searcher.AlgorithmLinear:
	case searcher.AlgorithmBinary, searcher.AlgorithmJump, searcher.AlgorithmInterpolation:
		if !slices.IsSorted(req.Values) {
			errs["values"] = fmt.Sprintf("values must be sorted ascending for %s search", algorithm)
		}
	case "":
		errs["algorithm"] = "algorithm is required"
	default:
		errs["algorithm"] = fmt.Sprintf("unknown algorithm %q (want linear, binary, jump or interpolation)", req.Algorithm)
	}
	if len(req.Values) > l.MaxArrayLength {
		errs["values"] = fmt.Sprintf("at most %d values are allowed", l.MaxArrayLength)
	}
	return fieldsError(errs)
}

// ValidateTokenize checks the method name and text size.
func ValidateTokenize(req *searcher.TokenizeRequest, l Limits) error {
	errs := make(map[string]string)
	if len(req.Text) > l.MaxTextBytes {
		errs["text"] = fmt.Sprintf("text must be at most %d bytes", l.MaxTextBytes)
	}
	if _, err := tokenizer.ByName(req.Method); err != nil {
		errs["method"] = fmt.Sprintf("unknown method %q (want whitespace, word or char)", req.Method)
	}
	return fieldsError(errs)
}

// ValidateBPE checks the merge count, tie-break policy and corpus size. An
// empty corpus is valid.
func ValidateBPE(req *searcher.BPERequest, l Limits) error {
	errs := make(map[string]string)
	if len(req.Corpus) > l.MaxCorpusBytes {
		errs["corpus"] = fmt.Sprintf("corpus must be at most %d bytes", l.MaxCorpusBytes)
	}
	if req.NumMerges != nil {
		switch n := *req.NumMerges; {
		case n < 0:
			errs["num_merges"] = "num_merges must be >= 0"
		case n > l.MaxMerges:
			errs["num_merges"] = fmt.Sprintf("num_merges must be at most %d", l.MaxMerges)
		}
	}
	if _, err := bpe.ParseTieBreak(req.TieBreak); err != nil {
		errs["tie_break"] = fmt.Sprintf("unknown tie_break %q (want lexicographic or first_seen)", req.TieBreak)
	}
	return fieldsError(errs)
}

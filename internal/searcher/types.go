// Package searcher defines the request and response types of the search
// service's JSON API.
package searcher

// CosineRequest is the body of POST /api/v1/search/cosine.
type CosineRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

// CosineResponse reports the best-matching document and every score.
type CosineResponse struct {
	BestMatch      string    `json:"best_match"`
	BestIndex      int       `json:"best_index"`
	Scores         []float64 `json:"scores"`
	VocabularySize int       `json:"vocabulary_size"`
	Cached         bool      `json:"cached"`
}

// ElementaryRequest is the body of POST /api/v1/search/elementary. Values
// must be sorted ascending for every algorithm except linear.
type ElementaryRequest struct {
	Algorithm string  `json:"algorithm"`
	Values    []int64 `json:"values"`
	Target    int64   `json:"target"`
}

// ElementaryResponse holds the found index, or -1.
type ElementaryResponse struct {
	Algorithm string `json:"algorithm"`
	Index     int    `json:"index"`
	Found     bool   `json:"found"`
}

// TokenizeRequest is the body of POST /api/v1/tokenize.
type TokenizeRequest struct {
	Text   string `json:"text"`
	Method string `json:"method"`
}

// TokenizeResponse lists the tokens and the distinct tokens in
// first-appearance order.
type TokenizeResponse struct {
	Method string   `json:"method"`
	Tokens []string `json:"tokens"`
	Unique []string `json:"unique"`
}

// BPERequest is the body of POST /api/v1/tokenize/bpe. A nil NumMerges
// selects the configured default.
type BPERequest struct {
	Corpus    string `json:"corpus"`
	NumMerges *int   `json:"num_merges"`
	TieBreak  string `json:"tie_break"`
}

// MergeStep is one learned merge.
type MergeStep struct {
	Left   string `json:"left"`
	Right  string `json:"right"`
	Merged string `json:"merged"`
	Freq   int    `json:"freq"`
}

// BPEResponse is the learned vocabulary, merges in order, the resulting
// symbol inventory and the corpus segmented with the learned merges.
type BPEResponse struct {
	Vocab    map[string]int `json:"vocab"`
	Merges   []MergeStep    `json:"merges"`
	Symbols  []string       `json:"symbols"`
	Tokens   []string       `json:"tokens"`
	TieBreak string         `json:"tie_break"`
	Cached   bool           `json:"cached"`
}

// Algorithm names for elementary search.
const (
	AlgorithmLinear        = "linear"
	AlgorithmBinary        = "binary"
	AlgorithmJump          = "jump"
	AlgorithmInterpolation = "interpolation"
)

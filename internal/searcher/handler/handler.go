// Package handler exposes the search and tokenization operations as JSON
// HTTP endpoints.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/searcher/validator"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/tokenizer/bpe"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/middleware"
)

// Executor runs the algorithms. *executor.Executor satisfies it.
type Executor interface {
	Cosine(ctx context.Context, query string, documents []string) (*searcher.CosineResponse, error)
	Elementary(ctx context.Context, algorithm string, values []int64, target int64) (*searcher.ElementaryResponse, error)
	Tokenize(ctx context.Context, text, method string) (*searcher.TokenizeResponse, error)
	BPEOptions(numMerges *int, tieBreak string) (int, bpe.TieBreak, error)
	EndOfWord() string
	LearnBPE(ctx context.Context, corpus string, numMerges int, tb bpe.TieBreak) (*searcher.BPEResponse, error)
}

// Tracker receives analytics events. *analytics.Collector and
// *analytics.Aggregator satisfy it.
type Tracker interface {
	Track(event any)
}

type Handler struct {
	executor     Executor
	cache        *cache.ResultCache
	trackers     []Tracker
	limits       validator.Limits
	maxBodyBytes int64
	logger       *slog.Logger
}

// New creates a Handler. resultCache may be nil to disable caching.
func New(exec Executor, resultCache *cache.ResultCache, limits validator.Limits, maxBodyBytes int64, trackers ...Tracker) *Handler {
	return &Handler{
		executor:     exec,
		cache:        resultCache,
		trackers:     trackers,
		limits:       limits,
		maxBodyBytes: maxBodyBytes,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every endpoint on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/search/cosine", h.Cosine)
	mux.HandleFunc("POST /api/v1/search/elementary", h.Elementary)
	mux.HandleFunc("POST /api/v1/tokenize", h.Tokenize)
	mux.HandleFunc("POST /api/v1/tokenize/bpe", h.BPE)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Cosine(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req searcher.CosineRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := validator.ValidateCosine(&req, h.limits); err != nil {
		h.writeError(w, r, err)
		return
	}

	key := cache.CosineKey(req.Query, req.Documents)
	resp, hit, err := cache.GetOrCompute(ctx, h.cache, key, func() (searcher.CosineResponse, error) {
		res, err := h.executor.Cosine(ctx, req.Query, req.Documents)
		if err != nil {
			return searcher.CosineResponse{}, err
		}
		return *res, nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp.Cached = hit

	latency := time.Since(start)
	logger.FromContext(ctx).Info("cosine search completed",
		"documents", len(req.Documents),
		"best_index", resp.BestIndex,
		"cache_hit", hit,
		"latency_us", latency.Microseconds(),
	)
	h.track(analytics.SearchEvent{
		Type:      analytics.EventSearch,
		Algorithm: executor.AlgorithmCosine,
		InputSize: len(req.Documents),
		Found:     true,
		LatencyUs: latency.Microseconds(),
		CacheHit:  hit,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	})
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Elementary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req searcher.ElementaryRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := validator.ValidateElementary(&req, h.limits); err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.executor.Elementary(ctx, req.Algorithm, req.Values, req.Target)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	latency := time.Since(start)
	logger.FromContext(ctx).Info("elementary search completed",
		"algorithm", resp.Algorithm,
		"length", len(req.Values),
		"index", resp.Index,
		"latency_us", latency.Microseconds(),
	)
	h.track(analytics.SearchEvent{
		Type:      analytics.EventSearch,
		Algorithm: resp.Algorithm,
		InputSize: len(req.Values),
		Found:     resp.Found,
		LatencyUs: latency.Microseconds(),
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	})
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Tokenize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req searcher.TokenizeRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := validator.ValidateTokenize(&req, h.limits); err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.executor.Tokenize(ctx, req.Text, req.Method)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	latency := time.Since(start)
	h.track(analytics.TokenizeEvent{
		Type:      analytics.EventTokenize,
		Method:    resp.Method,
		Tokens:    len(resp.Tokens),
		LatencyUs: latency.Microseconds(),
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	})
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) BPE(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req searcher.BPERequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := validator.ValidateBPE(&req, h.limits); err != nil {
		h.writeError(w, r, err)
		return
	}
	numMerges, tb, err := h.executor.BPEOptions(req.NumMerges, req.TieBreak)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	key := cache.BPEKey(req.Corpus, numMerges, tb.String(), h.executor.EndOfWord())
	resp, hit, err := cache.GetOrCompute(ctx, h.cache, key, func() (searcher.BPEResponse, error) {
		res, err := h.executor.LearnBPE(ctx, req.Corpus, numMerges, tb)
		if err != nil {
			return searcher.BPEResponse{}, err
		}
		return *res, nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp.Cached = hit

	latency := time.Since(start)
	logger.FromContext(ctx).Info("bpe learning completed",
		"requested_merges", numMerges,
		"merges", len(resp.Merges),
		"tie_break", resp.TieBreak,
		"cache_hit", hit,
		"latency_us", latency.Microseconds(),
	)
	h.track(analytics.TokenizeEvent{
		Type:      analytics.EventTokenize,
		Method:    executor.AlgorithmBPE,
		Tokens:    len(resp.Tokens),
		Merges:    len(resp.Merges),
		LatencyUs: latency.Microseconds(),
		CacheHit:  hit,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	})
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %w", apperrors.ErrUnavailable, err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

// decode reads a single JSON value into dst. Malformed bodies and values of
// the wrong JSON type are reported as invalid input.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(dst)
	if err == nil {
		if dec.More() {
			return apperrors.InvalidInput("request body must contain a single JSON object")
		}
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return apperrors.InvalidFields(map[string]string{
			field: fmt.Sprintf("must be %s, got %s", jsonTypeName(typeErr.Type.String()), typeErr.Value),
		})
	case errors.As(err, &maxErr):
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusRequestEntityTooLarge,
			"request body exceeds %d bytes", maxErr.Limit)
	case errors.As(err, &syntaxErr):
		return apperrors.InvalidInput("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.Is(err, io.EOF):
		return apperrors.InvalidInput("request body is empty")
	default:
		return apperrors.InvalidInput("malformed JSON: %v", err)
	}
}

func jsonTypeName(goType string) string {
	switch goType {
	case "string":
		return "a string"
	case "[]string":
		return "an array of strings"
	case "[]int64":
		return "an array of integers"
	case "int", "int64", "*int":
		return "an integer"
	default:
		return goType
	}
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	resp := errorResponse{Error: err.Error(), Fields: apperrors.FieldErrors(err)}
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
		if status == http.StatusInternalServerError {
			resp.Error = "internal error"
		}
	} else {
		log.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) track(event any) {
	for _, t := range h.trackers {
		t.Track(event)
	}
}

package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalSearches      int64            `json:"total_searches"`
	TotalTokenizations int64            `json:"total_tokenizations"`
	NotFound           int64            `json:"not_found"`
	CacheHits          int64            `json:"cache_hits"`
	CacheMisses        int64            `json:"cache_misses"`
	BPEMerges          int64            `json:"bpe_merges"`
	TokensProduced     int64            `json:"tokens_produced"`
	AvgLatencyUs       float64          `json:"avg_latency_us"`
	P50LatencyUs       int64            `json:"p50_latency_us"`
	P95LatencyUs       int64            `json:"p95_latency_us"`
	P99LatencyUs       int64            `json:"p99_latency_us"`
	Algorithms         []AlgorithmCount `json:"algorithms"`
	RequestsPerMinute  float64          `json:"requests_per_minute"`
}

type AlgorithmCount struct {
	Algorithm string `json:"algorithm"`
	Count     int64  `json:"count"`
}

// Aggregator folds events into running statistics. It is fed either by a
// Kafka consumer through HandleEvent or directly through Track.
type Aggregator struct {
	mu                 sync.RWMutex
	totalSearches      int64
	totalTokenizations int64
	notFound           int64
	cacheHits          int64
	cacheMisses        int64
	bpeMerges          int64
	tokensProduced     int64
	latencies          []int64
	next               int
	counts             map[string]int64
	startTime          time.Time

	consumer *kafka.Consumer
	logger   *slog.Logger
}

// NewAggregator creates an aggregator. consumer may be nil when events are
// delivered in-process with Track.
func NewAggregator(consumer *kafka.Consumer) *Aggregator {
	return &Aggregator{
		latencies: make([]int64, 0, 1024),
		counts:    make(map[string]int64),
		startTime: time.Now(),
		consumer:  consumer,
		logger:    slog.Default().With("component", "analytics-aggregator"),
	}
}

// Start consumes events until ctx is cancelled.
func (a *Aggregator) Start(ctx context.Context) error {
	if a.consumer == nil {
		return errors.New("aggregator has no kafka consumer")
	}
	a.logger.Info("analytics aggregator starting")
	return a.consumer.Start(ctx, HandleEvent(a))
}

// HandleEvent adapts the aggregator to a Kafka message handler. Undecodable
// messages are logged and skipped so they are still committed.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := DecodeEvent(value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
			return nil
		}
		agg.Track(event)
		return nil
	}
}

// Track records a SearchEvent or TokenizeEvent. Other values are ignored.
func (a *Aggregator) Track(event any) {
	switch e := event.(type) {
	case SearchEvent:
		a.recordSearch(e)
	case TokenizeEvent:
		a.recordTokenize(e)
	default:
		a.logger.Warn("ignoring unknown analytics event", "type", fmt.Sprintf("%T", event))
	}
}

func (a *Aggregator) recordSearch(e SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalSearches++
	if !e.Found {
		a.notFound++
	}
	a.counts[e.Algorithm]++
	a.recordCommon(e.CacheHit, e.LatencyUs)
}

func (a *Aggregator) recordTokenize(e TokenizeEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalTokenizations++
	a.tokensProduced += int64(e.Tokens)
	a.bpeMerges += int64(e.Merges)
	a.counts[e.Method]++
	a.recordCommon(e.CacheHit, e.LatencyUs)
}

// recordCommon must be called with mu held.
func (a *Aggregator) recordCommon(cacheHit bool, latencyUs int64) {
	if cacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, latencyUs)
		return
	}
	a.latencies[a.next] = latencyUs
	a.next = (a.next + 1) % maxLatencySamples
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:      a.totalSearches,
		TotalTokenizations: a.totalTokenizations,
		NotFound:           a.notFound,
		CacheHits:          a.cacheHits,
		CacheMisses:        a.cacheMisses,
		BPEMerges:          a.bpeMerges,
		TokensProduced:     a.tokensProduced,
	}
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyUs = float64(sum) / float64(len(sorted))
		stats.P50LatencyUs = percentile(sorted, 50)
		stats.P95LatencyUs = percentile(sorted, 95)
		stats.P99LatencyUs = percentile(sorted, 99)
	}
	stats.Algorithms = topN(a.counts, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.RequestsPerMinute = float64(a.totalSearches+a.totalTokenizations) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, then name, so output is stable.
func topN(counts map[string]int64, n int) []AlgorithmCount {
	result := make([]AlgorithmCount, 0, len(counts))
	for name, count := range counts {
		result = append(result, AlgorithmCount{Algorithm: name, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Algorithm < result[j].Algorithm
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}

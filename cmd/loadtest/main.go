// Command loadtest drives a running search service with a mix of cosine,
// elementary, tokenize and BPE requests and prints latency and cache
// statistics.
//
// Usage:
//
//	go run ./cmd/loadtest [-url http://localhost:8080] [-concurrency 10] [-duration 30s]
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/middleware"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Scenarios   []Scenario
}

// Scenario is one request shape sent by the workers.
type Scenario struct {
	Name string
	Path string
	Body any
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	cacheHits     atomic.Int64
	latencies     map[string][]time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make(map[string][]time.Duration),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

func (s *Stats) RecordRequest(scenario string, duration time.Duration, statusCode int, cached bool, err error) {
	s.totalRequests.Add(1)

	if err != nil {
		s.errorCount.Add(1)
		return
	}

	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}
	if cached {
		s.cacheHits.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies[scenario] = append(s.latencies[scenario], duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

func defaultScenarios() []Scenario {
	documents := []string{
		"Python is a programming language for machine learning",
		"Football is a popular sport worldwide",
		"Deep learning uses neural networks for machine learning",
		"Machine learning algorithms can predict outcomes",
	}
	sorted := make([]int64, 10000)
	for i := range sorted {
		sorted[i] = int64(i * 3)
	}
	merges := 8
	return []Scenario{
		{"cosine", "/api/v1/search/cosine", searcher.CosineRequest{Query: "machine learning algorithms", Documents: documents}},
		{"cosine_empty_query", "/api/v1/search/cosine", searcher.CosineRequest{Query: "", Documents: documents}},
		{"binary", "/api/v1/search/elementary", searcher.ElementaryRequest{Algorithm: "binary", Values: sorted, Target: 2997}},
		{"jump", "/api/v1/search/elementary", searcher.ElementaryRequest{Algorithm: "jump", Values: sorted, Target: 2998}},
		{"interpolation", "/api/v1/search/elementary", searcher.ElementaryRequest{Algorithm: "interpolation", Values: sorted, Target: 29997}},
		{"linear", "/api/v1/search/elementary", searcher.ElementaryRequest{Algorithm: "linear", Values: sorted, Target: 29997}},
		{"tokenize_word", "/api/v1/tokenize", searcher.TokenizeRequest{Text: strings.Join(documents, ". "), Method: "word"}},
		{"bpe", "/api/v1/tokenize/bpe", searcher.BPERequest{Corpus: "low lower newest widest low lower", NumMerges: &merges}},
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	only := flag.String("scenario", "", "run only the named scenario")
	flag.Parse()

	scenarios := defaultScenarios()
	if *only != "" {
		var picked []Scenario
		for _, s := range scenarios {
			if s.Name == *only {
				picked = append(picked, s)
			}
		}
		if len(picked) == 0 {
			fmt.Fprintf(os.Stderr, "unknown scenario %q\n", *only)
			os.Exit(2)
		}
		scenarios = picked
	}

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		Scenarios:   scenarios,
	}

	fmt.Println("=== Search Algorithms Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Scenarios:   %d\n", len(cfg.Scenarios))
	fmt.Println()

	stats, err := runLoadTest(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load test failed: %v\n", err)
		os.Exit(1)
	}
	printReport(stats, cfg.Duration)
}

type encodedScenario struct {
	name string
	url  string
	body []byte
}

func runLoadTest(cfg Config) (*Stats, error) {
	encoded := make([]encodedScenario, len(cfg.Scenarios))
	for i, s := range cfg.Scenarios {
		body, err := json.Marshal(s.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding scenario %s: %w", s.Name, err)
		}
		encoded[i] = encodedScenario{name: s.Name, url: cfg.BaseURL + s.Path, body: body}
	}

	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			idx := workerID

			for ctx.Err() == nil {
				s := encoded[idx%len(encoded)]
				idx++

				start := time.Now()
				code, cached, err := send(ctx, client, s)
				if ctx.Err() != nil {
					return
				}
				stats.RecordRequest(s.name, time.Since(start), code, cached, err)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats, nil
}

func send(ctx context.Context, client *http.Client, s encodedScenario) (int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(s.body))
	if err != nil {
		return 0, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.RequestIDHeader, "loadtest-"+uuid.NewString())

	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()

	var body struct {
		Cached bool `json:"cached"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, body.Cached, nil
}

func printReport(stats *Stats, duration time.Duration) {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	errors := stats.errorCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", errors)

	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", float64(errors)/float64(total)*100)
		fmt.Printf("Cache Hit Rate:  %.2f%%\n", float64(stats.cacheHits.Load())/float64(total)*100)
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.latenciesMu.Lock()
	names := make([]string, 0, len(stats.latencies))
	for name := range stats.latencies {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) > 0 {
		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("%-20s %8s %10s %10s %10s %10s %10s\n", "scenario", "count", "avg", "p50", "p95", "p99", "stddev")
	}
	for _, name := range names {
		latencies := append([]time.Duration(nil), stats.latencies[name]...)
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		var sumSquared float64
		for _, l := range latencies {
			diff := float64(l - avg)
			sumSquared += diff * diff
		}
		stddev := time.Duration(math.Sqrt(sumSquared / float64(len(latencies))))

		fmt.Printf("%-20s %8d %10s %10s %10s %10s %10s\n", name, len(latencies),
			avg.Round(time.Microsecond),
			percentile(latencies, 50).Round(time.Microsecond),
			percentile(latencies, 95).Round(time.Microsecond),
			percentile(latencies, 99).Round(time.Microsecond),
			stddev.Round(time.Microsecond),
		)
	}
	stats.latenciesMu.Unlock()

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, stats.statusCodes[code].Load())
	}
	stats.statusCodesMu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	tests := []struct {
		p    float64
		want time.Duration
	}{
		{0, 1}, {50, 5}, {90, 9}, {99, 10}, {100, 10},
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.p); got != tt.want {
			t.Errorf("percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if percentile(nil, 50) != 0 {
		t.Error("percentile(nil) should be 0")
	}
}

func TestDefaultScenariosEncode(t *testing.T) {
	for _, s := range defaultScenarios() {
		if !strings.HasPrefix(s.Path, "/api/v1/") {
			t.Errorf("%s: path %q", s.Name, s.Path)
		}
		if _, err := json.Marshal(s.Body); err != nil {
			t.Errorf("%s: %v", s.Name, err)
		}
	}
}

func TestRunLoadTestRecordsCacheHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("X-Request-ID") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cached":true}`))
	}))
	defer srv.Close()

	stats, err := runLoadTest(Config{
		BaseURL:     srv.URL,
		Concurrency: 2,
		Duration:    100 * time.Millisecond,
		Scenarios:   defaultScenarios()[:2],
	})
	if err != nil {
		t.Fatalf("runLoadTest() error = %v", err)
	}
	total := stats.totalRequests.Load()
	if total == 0 {
		t.Fatal("no requests recorded")
	}
	if stats.successCount.Load() != total || stats.cacheHits.Load() != total {
		t.Errorf("total=%d success=%d hits=%d", total, stats.successCount.Load(), stats.cacheHits.Load())
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/ratelimit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestIDGeneratesAndPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" {
		t.Fatal("no request ID in context")
	}
	if got := rec.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("response header = %q, context = %q", got, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "client-id" {
		t.Errorf("incoming ID not reused: %q", seen)
	}
}

func TestMetricsRecordsRequests(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	h := Metrics(m)(okHandler())
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/search/cosine", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin", nil))

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/search/cosine", "200")); got != 1 {
		t.Errorf("cosine requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "other", "200")); got != 1 {
		t.Errorf("unknown path requests = %v, want 1", got)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/api/v1/tokenize":        "/api/v1/tokenize",
		"/api/v1/tokenize/bpe":    "/api/v1/tokenize/bpe",
		"/api/v1/cache/stats":     "/api/v1/cache/stats",
		"/health/ready":           "/health/ready",
		"/api/v1/search/cosine/x": "/api/v1/search/cosine",
		"/api/v1/tokenizer":       "other",
	}
	for in, want := range tests {
		if got := normalizePath(in); got != want {
			t.Errorf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(ratelimit.New(1, time.Hour))(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tokenize", nil)
	req.RemoteAddr = "192.0.2.1:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}

	health := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	health.RemoteAddr = "192.0.2.1:5000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, health)
	if rec.Code != http.StatusOK {
		t.Errorf("health probe limited: %d", rec.Code)
	}
}

func TestClientAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	if got := clientAddr(req); got != "198.51.100.7" {
		t.Errorf("clientAddr() = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientAddr(req); got != "203.0.113.9" {
		t.Errorf("clientAddr() with XFF = %q", got)
	}
}

func TestCORS(t *testing.T) {
	h := CORS(DefaultCORSConfig([]string{"https://example.com"}))(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/tokenize", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://example.com" {
		t.Error("allow-origin header missing")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/tokenize", nil)
	req.Header.Set("Origin", "https://evil.test")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("disallowed origin received CORS headers")
	}
}

func TestTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	rec := httptest.NewRecorder()
	Timeout(10*time.Millisecond)(slow).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rec.Code)
	}

	rec = httptest.NewRecorder()
	Timeout(time.Second)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("fast handler status = %d, want 200", rec.Code)
	}
}

func TestTimeoutIgnoresLateHandlerWrites(t *testing.T) {
	finished := make(chan struct{})
	late := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(finished)
		<-r.Context().Done()
		time.Sleep(5 * time.Millisecond)
		w.Header().Set("X-Late", "1")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("late")); err != http.ErrHandlerTimeout {
			t.Errorf("late write err = %v, want ErrHandlerTimeout", err)
		}
	})
	rec := httptest.NewRecorder()
	Timeout(10*time.Millisecond)(late).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	<-finished
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rec.Code)
	}
	if rec.Header().Get("X-Late") != "" {
		t.Error("header set after timeout leaked into the response")
	}
	if strings.Contains(rec.Body.String(), "late") {
		t.Errorf("body = %q, late write leaked", rec.Body.String())
	}
}

func TestTimeoutLetsStartedResponseFinish(t *testing.T) {
	started := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Started", "1")
		w.WriteHeader(http.StatusOK)
		<-r.Context().Done()
		w.Write([]byte("tail"))
	})
	rec := httptest.NewRecorder()
	Timeout(10*time.Millisecond)(started).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Started") != "1" {
		t.Error("header set before first write missing")
	}
	if rec.Body.String() != "tail" {
		t.Errorf("body = %q, want tail", rec.Body.String())
	}
}

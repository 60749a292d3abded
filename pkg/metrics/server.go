package metrics

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"
)

var indexTmpl = template.Must(template.New("index").Parse(`<html><head><title>Search Algorithms Metrics</title></head><body>
<h1>Search Algorithms Metrics</h1>
<p>Scrape endpoint: <a href="/metrics">/metrics</a></p>
<h2>Per-algorithm series</h2>
<table>
<tr><th>algorithm</th><th>operations</th><th>latency p95</th></tr>
{{- range .}}
<tr><td>{{.}}</td><td><code>search_queries_total{algorithm="{{.}}"}</code></td><td><code>histogram_quantile(0.95, rate(search_latency_seconds_bucket{algorithm="{{.}}"}[5m]))</code></td></tr>
{{- end}}
</table>
<h2>Other series</h2>
<ul>
<li><code>cosine_documents_count</code></li>
<li><code>bpe_merges_performed</code></li>
<li><code>cache_hits_total</code>, <code>cache_misses_total</code></li>
<li><code>circuit_breaker_state{name="redis"}</code></li>
<li><code>analytics_events_dropped_total</code></li>
</ul>
</body></html>
`))

// IndexHandler renders a landing page that lists the series recorded for
// each algorithm.
func IndexHandler(algorithms []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := indexTmpl.Execute(w, algorithms); err != nil {
			slog.Error("metrics index render failed", "error", err)
		}
	})
}

// StartServer serves /metrics and the index page on port in the background.
// The returned function shuts the server down.
func StartServer(port int, algorithms []string) (shutdown func(context.Context) error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.Handle("/", IndexHandler(algorithms))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", server.Addr, "algorithms", len(algorithms))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return server.Shutdown
}

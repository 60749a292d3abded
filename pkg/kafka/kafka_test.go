package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/health"
)

type sample struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

func TestEncodeEvents(t *testing.T) {
	msgs, err := encodeEvents([]Event{
		{Key: "cosine", Value: sample{Type: "search", Count: 3}},
		{Key: "bpe", Value: map[string]int{"merges": 8}},
	})
	if err != nil {
		t.Fatalf("encodeEvents() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if string(msgs[0].Key) != "cosine" {
		t.Errorf("key = %q, want cosine", msgs[0].Key)
	}
	got, err := DecodeJSON[sample](msgs[0].Value)
	if err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	if got != (sample{Type: "search", Count: 3}) {
		t.Errorf("decoded %+v", got)
	}
}

func TestEncodeEventsRejectsUnmarshalable(t *testing.T) {
	if _, err := encodeEvents([]Event{{Key: "x", Value: make(chan int)}}); err == nil {
		t.Fatal("expected marshal error")
	}
}

func TestDecodeJSONInvalid(t *testing.T) {
	if _, err := DecodeJSON[sample]([]byte("{not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestHealthCheckUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if h := HealthCheck([]string{"127.0.0.1:1"})(ctx); h.Status != health.StatusDegraded {
		t.Errorf("HealthCheck() = %+v, want degraded", h)
	}
	if h := HealthCheck(nil)(ctx); h.Message != "no brokers configured" {
		t.Errorf("HealthCheck(nil) = %+v", h)
	}
}

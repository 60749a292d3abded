// Package analytics records what the search service does: handlers emit
// events, a Collector batches them onto Kafka, and an Aggregator folds them
// into running statistics.
package analytics

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventSearch   EventType = "search"
	EventTokenize EventType = "tokenize"
)

// SearchEvent describes one cosine or elementary search. InputSize is the
// number of documents or array values searched.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Algorithm string    `json:"algorithm"`
	InputSize int       `json:"input_size"`
	Found     bool      `json:"found"`
	LatencyUs int64     `json:"latency_us"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// TokenizeEvent describes one basic tokenization or BPE learning run.
// Method is the tokenizer name, or "bpe".
type TokenizeEvent struct {
	Type      EventType `json:"type"`
	Method    string    `json:"method"`
	Tokens    int       `json:"tokens"`
	Merges    int       `json:"merges"`
	LatencyUs int64     `json:"latency_us"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// DecodeEvent decodes a JSON event, choosing the concrete type from its
// "type" field.
func DecodeEvent(data []byte) (any, error) {
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decoding event type: %w", err)
	}
	switch head.Type {
	case EventSearch:
		var e SearchEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decoding search event: %w", err)
		}
		return e, nil
	case EventTokenize:
		var e TokenizeEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decoding tokenize event: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", head.Type)
	}
}

// eventKey is the Kafka partition key for an event.
func eventKey(event any) string {
	switch e := event.(type) {
	case SearchEvent:
		return e.Algorithm
	case TokenizeEvent:
		return e.Method
	default:
		return "analytics"
	}
}

package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/kafka"
)

// Publisher writes a batch of events. *kafka.Producer satisfies it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// CollectorConfig tunes batching. Zero values select defaults.
type CollectorConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	// OnDrop is called for each event rejected because the buffer is full.
	OnDrop func()
}

// Collector buffers events in a channel and publishes them in batches, when
// a batch fills up or on every flush interval. Track never blocks.
type Collector struct {
	publisher     Publisher
	eventCh       chan any
	batchSize     int
	flushInterval time.Duration
	onDrop        func()
	logger        *slog.Logger
	done          chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewCollector(publisher Publisher, cfg CollectorConfig) *Collector {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	return &Collector{
		publisher:     publisher,
		eventCh:       make(chan any, cfg.BufferSize),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		onDrop:        cfg.OnDrop,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the publish loop. It runs until ctx is cancelled or Close
// is called, flushing whatever is buffered before returning.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		batch := make([]kafka.Event, 0, c.batchSize)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					c.finalFlush(batch)
					return
				}
				batch = append(batch, kafka.Event{Key: eventKey(event), Value: event})
				if len(batch) >= c.batchSize {
					batch = c.flush(ctx, batch)
				}
			case <-ticker.C:
				batch = c.flush(ctx, batch)
			case <-ctx.Done():
				c.finalFlush(c.drain(batch))
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

// Track enqueues event, dropping it if the buffer is full or the collector
// has been closed.
func (c *Collector) Track(event any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.dropped("collector closed")
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.dropped("buffer full")
	}
}

func (c *Collector) dropped(reason string) {
	if c.onDrop != nil {
		c.onDrop()
	}
	c.logger.Warn("analytics event dropped", "reason", reason)
}

// Close stops accepting events and waits for the final flush. It is safe to
// call more than once, and Track calls after Close are dropped.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.done
		return
	}
	c.closed = true
	close(c.eventCh)
	c.mu.Unlock()
	<-c.done
}

// flush publishes batch and returns an empty slice to reuse. Failed batches
// are logged and discarded; analytics are best effort.
func (c *Collector) flush(ctx context.Context, batch []kafka.Event) []kafka.Event {
	if len(batch) == 0 {
		return batch
	}
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish analytics batch", "events", len(batch), "error", err)
	} else {
		c.logger.Debug("analytics batch published", "events", len(batch))
	}
	return batch[:0]
}

func (c *Collector) finalFlush(batch []kafka.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.flush(ctx, batch)
}

func (c *Collector) drain(batch []kafka.Event) []kafka.Event {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, kafka.Event{Key: eventKey(event), Value: event})
		default:
			return batch
		}
	}
}

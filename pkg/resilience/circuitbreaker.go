// Package resilience guards calls to the result store and the other backing
// services. CircuitBreaker diverts traffic to a fallback while a dependency
// keeps failing; Retry and WithTimeout bound connection setup and algorithm
// runs.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Execute while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker phase. The numeric values are exported as the
// circuit_breaker_state gauge.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes a breaker. Zero values select a threshold of 5
// and a 30s cooldown.
type CircuitBreakerConfig struct {
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold int
	// Cooldown is how long an open breaker rejects calls before letting a
	// single trial call through.
	Cooldown time.Duration
	// Ignore reports errors that are answers rather than failures, such as
	// a cache miss or a caller that went away. They are returned to the
	// caller but do not count against the threshold.
	Ignore func(err error) bool
	// OnStateChange is called with the lock held after every transition.
	OnStateChange func(name string, from, to State)
}

// BreakerStatus is a point-in-time view of a breaker for health reports.
type BreakerStatus struct {
	State    State
	Failures int
	// RetryIn is the remaining cooldown while open.
	RetryIn time.Duration
}

// CircuitBreaker counts consecutive failures of a dependency. Once open it
// fails fast with ErrCircuitOpen so callers can fall back, and after the
// cooldown it admits one trial call whose outcome closes or reopens it.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trial    bool
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
		now:    time.Now,
	}
}

// Execute runs fn unless the breaker is open. Errors from fn are returned
// unchanged.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Status returns the state together with the failure count and remaining
// cooldown.
func (cb *CircuitBreaker) Status() BreakerStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	st := BreakerStatus{State: cb.state, Failures: cb.failures}
	if cb.state == StateOpen {
		st.RetryIn = max(cb.cfg.Cooldown-cb.now().Sub(cb.openedAt), 0)
	}
	return st
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateOpen:
		wait := cb.cfg.Cooldown - cb.now().Sub(cb.openedAt)
		if wait > 0 {
			return fmt.Errorf("%w: %s (retry in %v)", ErrCircuitOpen, cb.name, wait)
		}
		cb.transition(StateHalfOpen)
		cb.trial = true
		cb.logger.Info("cooldown elapsed, admitting trial call", "cooldown", cb.cfg.Cooldown)
	case StateHalfOpen:
		if cb.trial {
			return fmt.Errorf("%w: %s (trial call in flight)", ErrCircuitOpen, cb.name)
		}
		cb.trial = true
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	failed := err != nil && (cb.cfg.Ignore == nil || !cb.cfg.Ignore(err))
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.trial = false
	if !failed {
		switch cb.state {
		case StateHalfOpen:
			cb.logger.Info("trial call succeeded, circuit closed")
			cb.failures = 0
			cb.transition(StateClosed)
		case StateClosed:
			cb.failures = 0
		}
		return
	}
	cb.failures++
	switch {
	case cb.state == StateHalfOpen:
		cb.open()
		cb.logger.Warn("trial call failed, circuit reopened", "error", err)
	case cb.state == StateClosed && cb.failures >= cb.cfg.FailureThreshold:
		cb.open()
		cb.logger.Warn("circuit opened", "consecutive_failures", cb.failures, "error", err)
	}
}

func (cb *CircuitBreaker) open() {
	cb.openedAt = cb.now()
	cb.transition(StateOpen)
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}

// Package breaker implements a simple failure-driven circuit breaker that
// stops the proxy from hammering a consecutively failing upstream.
package breaker

import (
	"sync"
	"time"
)

// Config controls breaker behavior.
type Config struct {
	Enabled          bool
	FailureThreshold int
	Cooldown         time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

// Breaker is a three-state (closed/open/half-open) gate, safe for
// concurrent use by many request tasks.
type Breaker struct {
	cfg Config

	mu                 sync.Mutex
	consecutiveFailures int
	isOpen             bool
	openedAt           time.Time
	probeInFlight      bool
}

// New creates a Breaker with the given config.
func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg}
}

// ShouldAllowRequest reports whether a new request may proceed. It returns
// false iff the breaker is enabled, open, and the cooldown has not yet
// elapsed. Once the cooldown elapses it transitions to half-open and admits
// exactly one probe request; further calls are rejected until that probe
// resolves via RecordSuccess or RecordFailure.
func (b *Breaker) ShouldAllowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.cfg.Enabled || !b.isOpen {
		return true
	}

	if b.probeInFlight {
		return false
	}

	if time.Since(b.openedAt) < b.cfg.Cooldown {
		return false
	}

	b.probeInFlight = true
	return true
}

// RecordSuccess resets the failure count and closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0
	b.isOpen = false
	b.probeInFlight = false
}

// RecordFailure increments the consecutive failure count, opening the
// breaker once the threshold is reached.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	b.probeInFlight = false

	if b.cfg.FailureThreshold > 0 && b.consecutiveFailures >= b.cfg.FailureThreshold {
		b.isOpen = true
		b.openedAt = time.Now()
	}
}

// State is a snapshot of the breaker's condition for reporting (e.g. on the
// health endpoint).
type State struct {
	Enabled             bool
	IsOpen              bool
	ConsecutiveFailures int
}

// Snapshot returns the current breaker state without mutating it.
func (b *Breaker) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return State{
		Enabled:             b.cfg.Enabled,
		IsOpen:              b.isOpen,
		ConsecutiveFailures: b.consecutiveFailures,
	}
}

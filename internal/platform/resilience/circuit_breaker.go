package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// CircuitCounts is a snapshot of breaker bookkeeping.
type CircuitCounts struct {
	State               CircuitState
	ConsecutiveFailures int
	Rejected            uint64
}

// CircuitBreaker guards a data origin: after FailureThreshold consecutive failures it
// rejects calls for OpenTimeout, then admits up to HalfOpenMaxReq probes. All probes
// must succeed to close again; any probe failure reopens it.
type CircuitBreaker struct {
	mu  sync.Mutex
	cfg CircuitBreakerConfig
	now func() time.Time

	state    CircuitState
	failures int
	openedAt time.Time
	inFlight int
	passed   int
	rejected uint64
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		cfg:   NormalizeCircuitBreakerConfig(cfg),
		now:   time.Now,
		state: CircuitStateClosed,
	}
}

// Execute runs fn when the breaker allows it. isFailure decides which errors count
// against the origin; nil treats every error as a failure.
func (b *CircuitBreaker) Execute(fn func() error, isFailure func(error) bool) error {
	if !b.cfg.Enabled {
		return fn()
	}
	if err := b.Allow(); err != nil {
		return err
	}

	err := fn()
	if err != nil && (isFailure == nil || isFailure(err)) {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return err
}

func (b *CircuitBreaker) Allow() error {
	changed, err := b.allow()
	b.notify(changed)
	return err
}

func (b *CircuitBreaker) allow() (*[2]CircuitState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var changed *[2]CircuitState
	if b.state == CircuitStateOpen {
		if b.now().Sub(b.openedAt) < b.cfg.OpenTimeout {
			b.rejected++
			return nil, ErrCircuitOpen
		}
		changed = b.transition(CircuitStateHalfOpen)
	}

	if b.state == CircuitStateHalfOpen {
		if b.inFlight+b.passed >= b.cfg.HalfOpenMaxReq {
			b.rejected++
			return changed, ErrCircuitOpen
		}
		b.inFlight++
	}
	return changed, nil
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	var changed *[2]CircuitState
	switch b.state {
	case CircuitStateClosed:
		b.failures = 0
	case CircuitStateHalfOpen:
		b.inFlight = max(b.inFlight-1, 0)
		b.passed++
		if b.passed >= b.cfg.HalfOpenMaxReq {
			changed = b.transition(CircuitStateClosed)
		}
	}
	b.mu.Unlock()
	b.notify(changed)
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	var changed *[2]CircuitState
	switch b.state {
	case CircuitStateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			changed = b.transition(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		changed = b.transition(CircuitStateOpen)
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
	b.mu.Unlock()
	b.notify(changed)
}

// State reports half_open once the open window elapsed, even before the next Allow.
func (b *CircuitBreaker) State() CircuitState {
	return b.Counts().State
}

func (b *CircuitBreaker) Counts() CircuitCounts {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.state
	if state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		state = CircuitStateHalfOpen
	}
	return CircuitCounts{State: state, ConsecutiveFailures: b.failures, Rejected: b.rejected}
}

// transition must be called with mu held. It returns the (from, to) pair for notify.
func (b *CircuitBreaker) transition(next CircuitState) *[2]CircuitState {
	prev := b.state
	b.state = next
	b.inFlight = 0
	b.passed = 0
	switch next {
	case CircuitStateOpen:
		b.openedAt = b.now()
	case CircuitStateClosed:
		b.failures = 0
		b.openedAt = time.Time{}
	}
	if prev == next {
		return nil
	}
	return &[2]CircuitState{prev, next}
}

func (b *CircuitBreaker) notify(changed *[2]CircuitState) {
	if changed == nil || b.cfg.OnStateChange == nil {
		return
	}
	b.cfg.OnStateChange(changed[0], changed[1])
}

// Package circuit provides a small circuit breaker for outbound service
// calls.
package circuit

import (
	"errors"
	"sync"
	"time"
)

var ErrOpen = errors.New("circuit breaker is open")

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
	}
	return "unknown"
}

// Breaker trips open after maxFailures consecutive failures and rejects
// calls until cooldown has passed; it then admits probe calls and closes
// again after a few consecutive successes.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	lastFailure time.Time

	maxFailures int
	cooldown    time.Duration
	probeCount  int
}

func New(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		state:       StateClosed,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		probeCount:  3,
	}
}

// Do runs fn under the breaker's admission policy. When the breaker is
// open it returns ErrOpen without invoking fn.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	if b.state == StateOpen {
		if time.Since(b.lastFailure) > b.cooldown {
			b.state = StateHalfOpen
			b.successes = 0
		} else {
			b.mu.Unlock()
			return ErrOpen
		}
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		b.lastFailure = time.Now()
		if b.failures >= b.maxFailures {
			b.state = StateOpen
		}
		return err
	}

	if b.state == StateHalfOpen {
		b.successes++
		if b.successes >= b.probeCount {
			b.state = StateClosed
			b.failures = 0
		}
	} else {
		b.failures = 0
	}

	return nil
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

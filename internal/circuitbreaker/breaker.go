package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

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

var ErrOpen = errors.New("circuit breaker is open")

// Breaker suppresses calls to a failing dependency. After maxFailures
// consecutive failures it opens and rejects calls until the cooldown elapses,
// then lets a single probe through; a successful probe closes it again.
type Breaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration

	mu          sync.Mutex
	state       State
	failures    int
	probing     bool
	lastFailure time.Time

	logger *logrus.Logger
}

func New(name string, maxFailures int, cooldown time.Duration, logger *logrus.Logger) *Breaker {
	if maxFailures <= 0 {
		logger.WithFields(logrus.Fields{
			"circuit_breaker": name,
			"invalid_value":   maxFailures,
			"default_value":   3,
		}).Warn("Invalid max failures value, using default")
		maxFailures = 3
	}
	if cooldown <= 0 {
		logger.WithFields(logrus.Fields{
			"circuit_breaker": name,
			"invalid_value":   cooldown,
			"default_value":   "30s",
		}).Warn("Invalid cooldown value, using default")
		cooldown = 30 * time.Second
	}
	return &Breaker{
		name:        name,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		state:       StateClosed,
		logger:      logger,
	}
}

func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()

	if b.state == StateOpen {
		if time.Since(b.lastFailure) < b.cooldown {
			b.mu.Unlock()
			return ErrOpen
		}
		b.setState(StateHalfOpen)
	}

	if b.state == StateHalfOpen {
		if b.probing {
			b.mu.Unlock()
			return ErrOpen
		}
		b.probing = true
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false

	if err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

func (b *Breaker) onSuccess() {
	b.failures = 0
	if b.state == StateHalfOpen {
		b.setState(StateClosed)
	}
}

func (b *Breaker) onFailure() {
	b.failures++
	b.lastFailure = time.Now()

	if b.state == StateHalfOpen {
		b.setState(StateOpen)
	} else if b.state == StateClosed && b.failures >= b.maxFailures {
		b.setState(StateOpen)
	}
}

func (b *Breaker) setState(newState State) {
	if b.state == newState {
		return
	}
	oldState := b.state
	b.state = newState

	b.logger.WithFields(logrus.Fields{
		"circuit_breaker": b.name,
		"from_state":      oldState.String(),
		"to_state":        newState.String(),
	}).Info("Circuit breaker state changed")
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Package circuitbreaker stops calling a failing upstream provider for a
// cool-down period instead of letting every request wait on it.
package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// ErrOpen is returned in place of a call while the circuit is open.
var ErrOpen = errors.New("circuit breaker open")

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "HalfOpen"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

type Config struct {
	// FailureThreshold consecutive failures open the circuit.
	FailureThreshold int
	// SuccessThreshold successes in HalfOpen close it again.
	SuccessThreshold int
	// Timeout is how long the circuit stays Open before probing.
	Timeout time.Duration
}

// DefaultConfig is used for every provider unless overridden.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

type CircuitBreaker struct {
	serviceName string
	config      Config
	now         func() time.Time

	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time
}

func NewWithConfig(serviceName string, config Config) *CircuitBreaker {
	defaults := DefaultConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = defaults.SuccessThreshold
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &CircuitBreaker{
		serviceName: serviceName,
		config:      config,
		now:         time.Now,
		state:       Closed,
	}
}

// CanExecute reports whether a call may proceed. An Open circuit moves to
// HalfOpen once the timeout since the last failure has elapsed.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case Closed, HalfOpen:
		return true
	case Open:
		if cb.now().Sub(cb.lastFailureTime) > cb.config.Timeout {
			cb.transitionLocked(HalfOpen)
			return true
		}
		return false
	default:
		return false
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	if cb.state != HalfOpen {
		return
	}

	cb.successCount++
	if cb.successCount >= cb.config.SuccessThreshold {
		cb.transitionLocked(Closed)
		fiberlog.Infof("CircuitBreaker: %s transitioned to Closed state after success", cb.serviceName)
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureTime = cb.now()

	if (cb.state == Closed && cb.failureCount >= cb.config.FailureThreshold) || cb.state == HalfOpen {
		cb.transitionLocked(Open)
		fiberlog.Warnf("CircuitBreaker: %s transitioned to Open state after %d failures", cb.serviceName, cb.failureCount)
		return
	}
	fiberlog.Debugf("CircuitBreaker: %s recorded failure (%d/%d)", cb.serviceName, cb.failureCount, cb.config.FailureThreshold)
}

func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.transitionLocked(Closed)
	cb.failureCount = 0
	fiberlog.Infof("CircuitBreaker: Reset circuit breaker for service %s", cb.serviceName)
}

func (cb *CircuitBreaker) transitionLocked(newState State) {
	if cb.state == newState {
		return
	}
	cb.state = newState
	cb.successCount = 0
	fiberlog.Debugf("CircuitBreaker: %s transitioned to %s", cb.serviceName, newState)
}

// Package breaker wraps outbound collaborator calls in a circuit breaker.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// Config holds the circuit breaker settings of one collaborator.
type Config struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration

	// The breaker trips when at least MinRequests were made in the current
	// interval and the failure ratio reaches FailureThreshold.
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultConfig returns the settings used for the search index and the
// double record service.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// ErrUnavailable is returned when the breaker rejects a call.
var ErrUnavailable = errors.New("collaborator temporarily unavailable")

// Breaker guards calls to one collaborator.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New creates a Breaker. State changes are logged on logger.
func New(cfg Config, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// A cancelled caller says nothing about the collaborator.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &Breaker{cb: cb}
}

// Do runs fn through the breaker. Rejections by an open or half-open
// breaker are reported as ErrUnavailable.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	out, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, errors.Join(ErrUnavailable, err)
	}
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	return out.(T), nil
}

// State returns the current breaker state name: "closed", "open" or
// "half-open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}

package source

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/eapache/go-resiliency/breaker"
)

const (
	breakerErrors    = 3
	breakerSuccesses = 1
	breakerCooldown  = time.Minute
)

// Guard wraps provider calls in a circuit breaker and
// tracks its open state so that the aggregator can skip
// a tripped provider without issuing a network call
type Guard struct {
	circuit  *breaker.Breaker
	openedAt atomic.Int64 // unix nano of last rejection, 0 when closed
}

func NewGuard() *Guard {
	return &Guard{
		circuit: breaker.New(breakerErrors, breakerSuccesses, breakerCooldown),
	}
}

// Run executes work through the breaker and records the outcome
func (g *Guard) Run(work func() error) error {
	err := g.circuit.Run(work)
	switch {
	case err == nil:
		g.openedAt.Store(0)
	case errors.Is(err, breaker.ErrBreakerOpen):
		g.openedAt.Store(time.Now().UnixNano())
	}
	return err
}

// Available reports false while the breaker is open.
// After the cooldown it reports true again so the next
// fetch can probe the provider and re-open on failure.
func (g *Guard) Available() bool {
	at := g.openedAt.Load()
	return at == 0 || time.Since(time.Unix(0, at)) > breakerCooldown
}

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

const breakerLogPrefix = "transport:breaker"

// errServerStatus marks a 5xx response as a breaker failure without hiding it
// from the caller.
var errServerStatus = errors.New("server error status")

// BreakerSettings configures WithCircuitBreaker.
type BreakerSettings struct {
	Name string
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// breakerDoer runs every attempt through a circuit breaker. Transport failures
// and 5xx responses count as failures; cancellations do not.
type breakerDoer struct {
	next HTTPDoer
	cb   *gobreaker.CircuitBreaker
}

func newBreakerDoer(next HTTPDoer, s BreakerSettings) *breakerDoer {
	if s.Name == "" {
		s.Name = "apiclient"
	}
	if s.Threshold == 0 {
		s.Threshold = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	threshold := s.Threshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn(fmt.Sprintf("%s - breaker %s changed from %s to %s", breakerLogPrefix, name, from, to))
		},
	})
	return &breakerDoer{next: next, cb: cb}
}

func (b *breakerDoer) Do(req *http.Request) (*http.Response, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		resp, err := b.next.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})
	if resp, ok := result.(*http.Response); ok && resp != nil {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%s - empty breaker result", breakerLogPrefix)
}

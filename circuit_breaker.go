package respwire

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards a server pool against sending batches to a server
// that keeps failing. *gobreaker.CircuitBreaker[*Response] satisfies it.
type CircuitBreaker interface {
	Execute(fn func() (*Response, error)) (*Response, error)
	State() gobreaker.State
	Counts() gobreaker.Counts
}

// NewCircuitBreakerConfig returns a function that creates circuit breakers
// for servers. This is a helper for common use cases.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) CircuitBreaker {
	return func(serverAddr string) CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        serverAddr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		}
		return gobreaker.NewCircuitBreaker[*Response](settings)
	}
}

package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker"
)

const (
	minRequests  = 5
	failureRatio = 0.6
)

// NewCircuitBreaker returns a breaker for one upstream dependency. Trips after
// minRequests calls fail at failureRatio or worse within the interval.
func NewCircuitBreaker(nameof string) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        nameof,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && ratio >= failureRatio
		},
	}
	return gobreaker.NewCircuitBreaker(settings)
}

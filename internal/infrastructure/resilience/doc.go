/*
Package resilience provides a circuit breaker for calls to the storage backend.

# Overview

The breaker stops sending requests to a backend that keeps failing and lets
a limited number of probes through once a timeout has passed. Callers decide
which errors count as failures through Settings.IsSuccessful; a "not found"
or a rejected optimistic-concurrency check is an answer from a healthy
backend and should not trip it.

# Usage

	breaker := resilience.New("contents-api", resilience.Settings{
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !objectstore.IsUnavailable(err)
		},
	})

	err := breaker.Do(func() error {
		return call(ctx)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                          Open
*/
package resilience

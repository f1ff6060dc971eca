// Package types defines common types and interfaces used throughout the rate limiter.
package types

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEmptyKey is returned when an admission is requested without a key.
	ErrEmptyKey = errors.New("rate limit key must not be empty")
	// ErrStoreClosed is returned by a store that has been shut down.
	ErrStoreClosed = errors.New("rate limit store is closed")
	// ErrInvalidConfig is wrapped by every configuration error.
	ErrInvalidConfig = errors.New("invalid rate limiter configuration")
)

// Decision is the outcome of a single admission check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool
	// Limit is the maximum number of requests per window for the policy.
	Limit int64
	// Remaining is the number of requests still available in the current window.
	Remaining int64
	// ResetAt is the time at which the window measured from this request ends.
	ResetAt time.Time
}

// Limiter is the interface that every configured rate limit policy implements.
type Limiter interface {
	// Admit decides whether one more request for the given identifier is allowed.
	// An error is returned only for contract violations (empty identifier, closed store).
	Admit(ctx context.Context, identifier string) (Decision, error)
}

// CompactionObserver receives the outcome of every store compaction cycle.
type CompactionObserver interface {
	ObserveCompaction(limiterKey string, evictedKeys, trackedKeys int, took time.Duration)
}

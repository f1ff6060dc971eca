// Package slidingwindowlog provides an in-memory implementation of the Sliding Window Log rate limiting algorithm.
package slidingwindowlog

import (
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/rs/zerolog/log"

	"learn.slidingwindow/types"
)

const (
	// DefaultRetention bounds how long a timestamp survives compaction. It must exceed every window served by the store.
	DefaultRetention = 10 * time.Minute
	// DefaultCompactionInterval is how often idle keys are reclaimed.
	DefaultCompactionInterval = time.Minute
)

// Store keeps, per key, the timestamps of recent requests in arrival order.
type Store struct {
	name      string
	nowFunc   func() time.Time
	retention time.Duration
	interval  time.Duration
	observer  types.CompactionObserver

	mu      sync.Mutex
	windows map[string]*deque.Deque[time.Time]
	closed  bool

	stopCh       chan struct{}
	doneCh       chan struct{}
	shutdownOnce sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithName sets the limiter key used in logs and metrics.
func WithName(name string) Option {
	return func(s *Store) {
		s.name = name
	}
}

// WithClock sets a custom clock (nowFunc) for the Store.
func WithClock(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = nowFunc
	}
}

// WithRetention sets how long timestamps are kept before compaction drops them.
func WithRetention(retention time.Duration) Option {
	return func(s *Store) {
		s.retention = retention
	}
}

// WithCompactionInterval sets the period of the background compaction loop.
func WithCompactionInterval(interval time.Duration) Option {
	return func(s *Store) {
		s.interval = interval
	}
}

// WithObserver registers an observer notified after every compaction.
func WithObserver(observer types.CompactionObserver) Option {
	return func(s *Store) {
		s.observer = observer
	}
}

// NewStore creates a store and starts its compaction loop. Call Shutdown to stop it.
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{
		nowFunc:   time.Now,
		retention: DefaultRetention,
		interval:  DefaultCompactionInterval,
		windows:   make(map[string]*deque.Deque[time.Time]),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retention <= 0 {
		return nil, fmt.Errorf("%w: retention must be positive, got %s", types.ErrInvalidConfig, s.retention)
	}
	if s.interval <= 0 {
		return nil, fmt.Errorf("%w: compaction interval must be positive, got %s", types.ErrInvalidConfig, s.interval)
	}

	go s.run()

	log.Info().Str("limiter_type", "SlidingWindowLog").Str("backend", "InMemory").Str("limiter_key", s.name).Dur("retention", s.retention).Dur("compaction_interval", s.interval).Msg("Store: Initialized")
	return s, nil
}

// Admit records a request for key if fewer than limit requests were recorded within the trailing window.
// A denied request is not recorded. A limit of zero denies every request.
func (s *Store) Admit(key string, limit int64, window time.Duration) (types.Decision, error) {
	if key == "" {
		return types.Decision{}, types.ErrEmptyKey
	}
	if limit < 0 {
		return types.Decision{}, fmt.Errorf("%w: limit must not be negative, got %d", types.ErrInvalidConfig, limit)
	}
	if window <= 0 {
		return types.Decision{}, fmt.Errorf("%w: window must be positive, got %s", types.ErrInvalidConfig, window)
	}

	now := s.nowFunc()
	windowStart := now.Add(-window)
	resetAt := now.Add(window)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.Decision{}, types.ErrStoreClosed
	}

	requests, tracked := s.windows[key]
	var count int64
	if tracked {
		for requests.Len() > 0 && !requests.Front().After(windowStart) {
			requests.PopFront()
		}
		count = int64(requests.Len())
	}

	if count < limit {
		if !tracked {
			requests = new(deque.Deque[time.Time])
			s.windows[key] = requests
		}
		requests.PushBack(now)
		return types.Decision{Allowed: true, Limit: limit, Remaining: limit - count - 1, ResetAt: resetAt}, nil
	}

	if tracked && requests.Len() == 0 {
		delete(s.windows, key)
	}
	return types.Decision{Allowed: false, Limit: limit, Remaining: 0, ResetAt: resetAt}, nil
}

// Compact drops timestamps older than the retention threshold and forgets keys left without history.
func (s *Store) Compact() {
	start := time.Now()
	now := s.nowFunc()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	evicted := 0
	for key, requests := range s.windows {
		for requests.Len() > 0 && now.Sub(requests.Front()) >= s.retention {
			requests.PopFront()
		}
		if requests.Len() == 0 {
			delete(s.windows, key)
			evicted++
		}
	}
	tracked := len(s.windows)
	s.mu.Unlock()

	took := time.Since(start)
	log.Debug().Str("limiter_type", "SlidingWindowLog").Str("backend", "InMemory").Str("limiter_key", s.name).Int("evicted_keys", evicted).Int("tracked_keys", tracked).Dur("took", took).Msg("Store: Compaction finished")
	if s.observer != nil {
		s.observer.ObserveCompaction(s.name, evicted, tracked, took)
	}
}

// Len returns the number of keys currently tracked.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// Shutdown stops the compaction loop and releases all state. It is safe to call more than once.
func (s *Store) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh

		s.mu.Lock()
		s.closed = true
		s.windows = nil
		s.mu.Unlock()

		log.Info().Str("limiter_type", "SlidingWindowLog").Str("backend", "InMemory").Str("limiter_key", s.name).Msg("Store: Shut down")
	})
}

// Close implements io.Closer.
func (s *Store) Close() error {
	s.Shutdown()
	return nil
}

func (s *Store) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Compact()
		case <-s.stopCh:
			return
		}
	}
}

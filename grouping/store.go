// Package grouping buffers inbound messages sharing a correlation id into one
// unit of work, guarantees at-most-once processing per group, and bounds
// processing time with a timeout plus a watchdog safety net.
package grouping

import (
	"sync"
	"time"

	"echopost/types"
)

// Store owns the buffering map, the currently-processing set and the
// processing start times. It replaces the module-level globals of earlier
// incarnations of this pipeline so tests can run independent coordinators.
type Store struct {
	mu         sync.Mutex
	buffered   map[string][]*types.RawMessage
	processing map[string]struct{}
	started    map[string]time.Time
}

// NewStore creates an empty group store.
func NewStore() *Store {
	return &Store{
		buffered:   make(map[string][]*types.RawMessage),
		processing: make(map[string]struct{}),
		started:    make(map[string]time.Time),
	}
}

// Append adds a message to its group buffer, creating the group if absent,
// and returns the buffered count.
func (s *Store) Append(key string, msg *types.RawMessage) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffered[key] = append(s.buffered[key], msg)
	return len(s.buffered[key])
}

// TryBegin marks the group as processing and records the start time. It
// returns false when the group is already being processed, which is the
// at-most-once guarantee for bursts of album messages.
func (s *Store) TryBegin(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.processing[key]; busy {
		return false
	}
	s.processing[key] = struct{}{}
	s.started[key] = now
	return true
}

// Snapshot returns a copy of the group's buffered messages.
func (s *Store) Snapshot(key string) []*types.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.buffered[key]
	out := make([]*types.RawMessage, len(msgs))
	copy(out, msgs)
	return out
}

// Remove clears the group from the buffer, the processing set and the start
// times. Safe to call multiple times; both the processing goroutine and the
// watchdog may race to clean the same group.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buffered, key)
	delete(s.processing, key)
	delete(s.started, key)
}

// Contains reports whether the group has buffered messages.
func (s *Store) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.buffered[key]
	return ok
}

// InFlight returns the keys currently marked as processing.
func (s *Store) InFlight() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.processing))
	for k := range s.processing {
		keys = append(keys, k)
	}
	return keys
}

// Expired returns keys whose processing started more than timeout ago.
func (s *Store) Expired(timeout time.Duration, now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stuck []string
	for key, startedAt := range s.started {
		if now.Sub(startedAt) > timeout {
			stuck = append(stuck, key)
		}
	}
	return stuck
}

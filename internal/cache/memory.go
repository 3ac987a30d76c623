package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is the in-process backend.
type Memory struct {
	mu sync.Mutex
	m  map[string]Entry
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{m: make(map[string]Entry)}
}

func (s *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[key]
	return e, ok, nil
}

func (s *Memory) Set(_ context.Context, key string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = e
	return nil
}

func (s *Memory) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = make(map[string]Entry)
	return nil
}

// Sweep deletes entries older than the TTL they were stored with.
func (s *Memory) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.m {
		if e.TTL > 0 && now.Sub(e.FetchedAt) >= e.TTL {
			delete(s.m, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries.
func (s *Memory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

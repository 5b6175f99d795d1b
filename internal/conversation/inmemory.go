package conversation

import (
	"context"
	"sync"
)

// MemoryStore keeps each scope's most recent turns in a ring buffer.
type MemoryStore struct {
	mu        sync.Mutex
	retention int
	scopes    map[string]*ring
}

type ring struct {
	turns []Turn
	start int
	size  int
}

func NewMemoryStore(retention int) *MemoryStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &MemoryStore{
		retention: retention,
		scopes:    make(map[string]*ring),
	}
}

func (s *MemoryStore) Append(_ context.Context, scope string, turn Turn) error {
	if scope == "" {
		return ErrInvalidScope
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.scopes[scope]
	if !ok {
		r = &ring{turns: make([]Turn, s.retention)}
		s.scopes[scope] = r
	}
	if r.size < len(r.turns) {
		r.turns[(r.start+r.size)%len(r.turns)] = turn
		r.size++
		return nil
	}
	// Full: overwrite the oldest turn.
	r.turns[r.start] = turn
	r.start = (r.start + 1) % len(r.turns)
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, scope string, limit int) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.scopes[scope]
	if !ok || r.size == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > r.size {
		limit = r.size
	}
	out := make([]Turn, 0, limit)
	for i := r.size - limit; i < r.size; i++ {
		out = append(out, r.turns[(r.start+i)%len(r.turns)])
	}
	return out, nil
}

func (s *MemoryStore) Forget(_ context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scopes, scope)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

package store

import (
	"context"
	"sort"
	"sync"

	"holdem-live/holdem"
)

type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

func (s *MemoryStore) SaveTable(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// an older version never overwrites a newer one
	if cur, ok := s.docs[doc.ID]; ok && cur.Version > doc.Version {
		return nil
	}
	doc.Body = append([]byte(nil), doc.Body...)
	s.docs[doc.ID] = doc
	return nil
}

func (s *MemoryStore) LoadTable(_ context.Context, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc.Body = append([]byte(nil), doc.Body...)
	return doc, nil
}

func (s *MemoryStore) DeleteTable(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

func (s *MemoryStore) IDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.docs))
	for id := range s.docs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

type MemoryArchive struct {
	mu    sync.Mutex
	hands []*holdem.CompletedHand
	seen  map[string]bool
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{seen: make(map[string]bool)}
}

func (a *MemoryArchive) AppendHand(_ context.Context, rec *holdem.CompletedHand) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.seen[rec.HandID] {
		return nil
	}
	a.seen[rec.HandID] = true
	a.hands = append(a.hands, rec)
	return nil
}

// Hands returns the archived records in append order.
func (a *MemoryArchive) Hands() []*holdem.CompletedHand {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*holdem.CompletedHand(nil), a.hands...)
}

func (a *MemoryArchive) Hand(_ context.Context, handID string) (*holdem.CompletedHand, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, rec := range a.hands {
		if rec.HandID == handID {
			return rec, nil
		}
	}
	return nil, ErrNotFound
}

func (a *MemoryArchive) Close() error { return nil }

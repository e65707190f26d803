package wizard

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Record is a persisted wizard session.
type Record struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	OwnerID   string          `json:"owner_id"`
	Params    Params          `json:"params"`
	Step      int             `json:"step"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store persists wizard sessions between requests.
type Store interface {
	// Save inserts or replaces the record with the same ID.
	Save(ctx context.Context, r *Record) error
	// Load returns ErrNotFound when no record has id.
	Load(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
	// List returns the owner's records, most recently updated first.
	List(ctx context.Context, ownerID string) ([]*Record, error)
	// Purge deletes records not updated since before and returns how many.
	Purge(ctx context.Context, before time.Time) (int, error)
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Save(_ context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	cp.State = append(json.RawMessage(nil), r.State...)
	if prev, ok := s.records[r.ID]; ok {
		cp.CreatedAt = prev.CreatedAt
	}
	s.records[r.ID] = cp
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context, ownerID string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Record
	for _, r := range s.records {
		if r.OwnerID == ownerID {
			r := r
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *MemoryStore) Purge(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, r := range s.records {
		if r.UpdatedAt.Before(before) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

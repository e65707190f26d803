package account

import (
	"context"
	"sync"
	"time"
)

// Cooldowns records when a code was last sent to each phone.
type Cooldowns interface {
	// Reserve claims a send for phone at now. When the previous send is more
	// recent than cooldown it claims nothing and returns the remaining wait.
	Reserve(ctx context.Context, phone string, now time.Time, cooldown time.Duration) (time.Duration, error)
	// Release undoes the claim made at sentAt, e.g. after the send failed.
	Release(ctx context.Context, phone string, sentAt time.Time) error
}

type sendRecord struct {
	lastSent time.Time
	count    int
}

// MemoryCooldowns keeps cooldowns in process memory.
type MemoryCooldowns struct {
	mu    sync.Mutex
	sends map[string]*sendRecord
}

func NewMemoryCooldowns() *MemoryCooldowns {
	return &MemoryCooldowns{sends: make(map[string]*sendRecord)}
}

func (m *MemoryCooldowns) Reserve(_ context.Context, phone string, now time.Time, cooldown time.Duration) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.sends[phone]
	if !ok {
		m.sends[phone] = &sendRecord{lastSent: now, count: 1}
		return 0, nil
	}
	if wait := r.lastSent.Add(cooldown).Sub(now); wait > 0 {
		return wait, nil
	}
	r.lastSent = now
	r.count++
	return 0, nil
}

// Release forgets a phone whose only send failed. After earlier successful
// sends the cooldown runs from the failed attempt.
func (m *MemoryCooldowns) Release(_ context.Context, phone string, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.sends[phone]; ok && r.count == 1 && r.lastSent.Equal(sentAt) {
		delete(m.sends, phone)
	}
	return nil
}

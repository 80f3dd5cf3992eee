package repository

import (
	"context"
	"sync"
	"time"

	"portal/internal/models"
)

type memoryEntry struct {
	flashes   []models.Flash
	expiresAt time.Time
}

type MemoryFlashRepository struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryFlashRepository(ttl time.Duration) *MemoryFlashRepository {
	return &MemoryFlashRepository{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *MemoryFlashRepository) Push(ctx context.Context, sessionID string, flash models.Flash) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.evictExpired(now)

	entry, ok := r.entries[sessionID]
	if !ok {
		entry = &memoryEntry{}
		r.entries[sessionID] = entry
	}
	entry.flashes = append(entry.flashes, flash)
	entry.expiresAt = now.Add(r.ttl)
	return nil
}

func (r *MemoryFlashRepository) Pop(ctx context.Context, sessionID string) ([]models.Flash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[sessionID]
	if !ok {
		return nil, nil
	}
	delete(r.entries, sessionID)
	if r.ttl > 0 && !r.now().Before(entry.expiresAt) {
		return nil, nil
	}
	return entry.flashes, nil
}

// evictExpired drops abandoned sessions; callers hold the lock.
func (r *MemoryFlashRepository) evictExpired(now time.Time) {
	if r.ttl <= 0 {
		return
	}
	for id, entry := range r.entries {
		if !now.Before(entry.expiresAt) {
			delete(r.entries, id)
		}
	}
}

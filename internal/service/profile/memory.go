package profile

import (
	"context"
	"sync"

	"github.com/halwest-tech/kurdish-chat/backend/internal/model/profile"
)

// MemoryStore keeps profiles in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]profile.Profile
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]profile.Profile)}
}

// Write replaces the profile stored under userID.
func (s *MemoryStore) Write(_ context.Context, userID string, p profile.Profile) error {
	if userID == "" {
		return ErrUserIDMissing
	}
	p.UserID = userID

	s.mu.Lock()
	s.profiles[userID] = p
	s.mu.Unlock()
	return nil
}

// Get returns the profile for userID or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, userID string) (profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return profile.Profile{}, ErrNotFound
	}
	return p, nil
}

package storage

import (
	"context"
	"sync"

	"github.com/interviewlab/backend/internal/session"
)

// MemoryRepository keeps session records in a mutex-guarded map. Records
// are cloned on the way in and out so callers can never mutate stored
// state through a shared pointer.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]*session.Session),
	}
}

func (r *MemoryRepository) Create(_ context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s.Clone()
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id string, status session.Status, patch session.TimestampPatch) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	s.Status = status
	if patch.StartedAt != nil {
		s.StartedAt = patch.StartedAt
	}
	if patch.CompletedAt != nil {
		s.CompletedAt = patch.CompletedAt
	}
	return s.Clone(), nil
}

func (r *MemoryRepository) ListByOwner(_ context.Context, ownerID string) ([]*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*session.Session
	for _, s := range r.sessions {
		if s.OwnerID == ownerID {
			result = append(result, s.Clone())
		}
	}
	return result, nil
}

func (r *MemoryRepository) Close() error { return nil }

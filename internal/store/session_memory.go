package store

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/vocabtest/internal/domain"
	"github.com/google/uuid"
)

// MemorySessionStore keeps sessions in process memory. Used when no
// database is configured; nothing survives a restart.
type MemorySessionStore struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]domain.Session
	responses map[uuid.UUID][]domain.RecordedResponse
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions:  make(map[uuid.UUID]domain.Session),
		responses: make(map[uuid.UUID][]domain.RecordedResponse),
	}
}

func (s *MemorySessionStore) Create(ctx context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.ID]; ok {
		return ErrConflict
	}
	now := time.Now()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *MemorySessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (s *MemorySessionStore) UpdateState(ctx context.Context, id uuid.UUID, state domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.State = state
	sess.UpdatedAt = time.Now()
	s.sessions[id] = sess
	return nil
}

func (s *MemorySessionStore) AppendResponse(ctx context.Context, r *domain.RecordedResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[r.SessionID]; !ok {
		return ErrNotFound
	}
	for _, existing := range s.responses[r.SessionID] {
		if existing.Sequence == r.Sequence || existing.ItemID == r.ItemID {
			return ErrConflict
		}
	}
	r.CreatedAt = time.Now()
	s.responses[r.SessionID] = append(s.responses[r.SessionID], *r)
	return nil
}

func (s *MemorySessionStore) ListResponses(ctx context.Context, sessionID uuid.UUID) ([]domain.RecordedResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.RecordedResponse, len(s.responses[sessionID]))
	copy(out, s.responses[sessionID])
	return out, nil
}

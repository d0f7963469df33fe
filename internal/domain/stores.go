package domain

import (
	"context"

	"github.com/google/uuid"
)

// CatalogStore loads the ordered item catalog. Indices are stable for the
// lifetime of a session.
type CatalogStore interface {
	List(ctx context.Context) ([]CatalogEntry, error)
}

// SessionStore persists sessions and the responses applied to them, so a
// session can be rebuilt by replay.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	UpdateState(ctx context.Context, id uuid.UUID, state SessionState) error
	AppendResponse(ctx context.Context, r *RecordedResponse) error
	ListResponses(ctx context.Context, sessionID uuid.UUID) ([]RecordedResponse, error)
}

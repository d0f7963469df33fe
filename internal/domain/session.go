package domain

import (
	"time"

	"github.com/google/uuid"
)

type SessionState string

const (
	// SessionAwaiting has exactly one outstanding question.
	SessionAwaiting SessionState = "awaiting"
	// SessionCompleted ran out of unseen items.
	SessionCompleted SessionState = "completed"
	// SessionFailed hit a numerical failure and accepts no more responses.
	SessionFailed SessionState = "failed"
)

func (s SessionState) IsValid() bool {
	switch s {
	case SessionAwaiting, SessionCompleted, SessionFailed:
		return true
	}
	return false
}

type Session struct {
	ID        uuid.UUID    `json:"id"`
	State     SessionState `json:"state"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// RecordedResponse is one accepted response, in the order it was applied.
type RecordedResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Sequence  int       `json:"sequence"`
	ItemID    int       `json:"item_id"`
	Result    bool      `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}

// Belief is the JSON form of a Gaussian estimate.
type Belief struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
}

// SessionSnapshot is a read-only view of a session's progress.
type SessionSnapshot struct {
	Session
	Question *Question `json:"question,omitempty"`
	Answered int       `json:"answered"`
	Ability  Belief    `json:"ability"`
	Bias     Belief    `json:"bias"`
	Bounds   []float64 `json:"bounds,omitempty"`
}

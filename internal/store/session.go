package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/vocabtest/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionStore struct {
	db *pgxpool.Pool
}

func NewSessionStore(db *pgxpool.Pool) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context, sess *domain.Session) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO sessions (id, state) VALUES ($1, $2)
		 RETURNING created_at, updated_at`,
		sess.ID, sess.State,
	).Scan(&sess.CreatedAt, &sess.UpdatedAt)
}

func (s *SessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	sess := &domain.Session{}
	err := s.db.QueryRow(ctx,
		`SELECT id, state, created_at, updated_at
		 FROM sessions WHERE id = $1`,
		id,
	).Scan(&sess.ID, &sess.State, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

func (s *SessionStore) UpdateState(ctx context.Context, id uuid.UUID, state domain.SessionState) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE sessions SET state = $2, updated_at = NOW() WHERE id = $1`,
		id, state,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SessionStore) AppendResponse(ctx context.Context, r *domain.RecordedResponse) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO session_responses (session_id, sequence, item_id, result)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		r.SessionID, r.Sequence, r.ItemID, r.Result,
	).Scan(&r.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *SessionStore) ListResponses(ctx context.Context, sessionID uuid.UUID) ([]domain.RecordedResponse, error) {
	rows, err := s.db.Query(ctx,
		`SELECT session_id, sequence, item_id, result, created_at
		 FROM session_responses WHERE session_id = $1
		 ORDER BY sequence`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RecordedResponse
	for rows.Next() {
		var r domain.RecordedResponse
		if err := rows.Scan(&r.SessionID, &r.Sequence, &r.ItemID, &r.Result, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

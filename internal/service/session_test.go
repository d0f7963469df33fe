package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/Harshitk-cp/vocabtest/internal/domain"
	"github.com/Harshitk-cp/vocabtest/internal/inference"
	"github.com/Harshitk-cp/vocabtest/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// staticCatalogStore serves a fixed catalog.
type staticCatalogStore struct {
	entries []domain.CatalogEntry
	err     error
}

func (s *staticCatalogStore) List(ctx context.Context) ([]domain.CatalogEntry, error) {
	return s.entries, s.err
}

// MockSessionStore mocks the SessionStore interface.
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, s *domain.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionStore) UpdateState(ctx context.Context, id uuid.UUID, state domain.SessionState) error {
	args := m.Called(ctx, id, state)
	return args.Error(0)
}

func (m *MockSessionStore) AppendResponse(ctx context.Context, r *domain.RecordedResponse) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockSessionStore) ListResponses(ctx context.Context, sessionID uuid.UUID) ([]domain.RecordedResponse, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RecordedResponse), args.Error(1)
}

func testEngineConfig() EngineConfig {
	cfg := DefaultEngineConfig()
	cfg.MaxStimulus = 2000
	return cfg
}

func newTestSessionService(catalog []domain.CatalogEntry, sessions domain.SessionStore, cfg EngineConfig) *SessionService {
	logger := zap.NewNop()
	svc := NewSessionService(NewCatalogService(&staticCatalogStore{entries: catalog}, logger), sessions, cfg, logger)
	seed := uint64(0)
	svc.SetRandSource(func() *rand.Rand {
		seed++
		return rand.New(rand.NewPCG(seed, 99))
	})
	return svc
}

// knows answers correctly for every item easier than rank 500.
func knows(catalog []domain.CatalogEntry, id int) bool {
	return catalog[id].Difficulty < 500
}

func TestSessionService_StartAsksQuestion(t *testing.T) {
	catalog := testCatalog(10)
	svc := newTestSessionService(catalog, store.NewMemorySessionStore(), testEngineConfig())

	snap, err := svc.Start(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, snap.ID)
	assert.Equal(t, domain.SessionAwaiting, snap.State)
	assert.Equal(t, 0, snap.Answered)
	require.NotNil(t, snap.Question)
	require.Len(t, snap.Bounds, 3)
	assert.InDelta(t, 2007.51, snap.Bounds[0], 0.05)
	assert.Equal(t, snap.Bounds[0], snap.Question.Bounds[0])

	q := snap.Question
	assert.Equal(t, catalog[q.ID].Label, q.Label)
	assert.Equal(t, catalog[q.ID].CorrectAnswer, q.CorrectAnswer)
	assert.Len(t, q.Distractors, 3)
	for _, d := range q.Distractors {
		assert.NotEqual(t, q.CorrectAnswer, d)
	}
	assert.Equal(t, int64(1), svc.Stats().Started)
}

func TestSessionService_StartEmptyCatalog(t *testing.T) {
	svc := newTestSessionService(nil, store.NewMemorySessionStore(), testEngineConfig())

	_, err := svc.Start(context.Background())
	assert.ErrorIs(t, err, ErrCatalogEmpty)
}

func TestSessionService_IgnoresMismatchedResponse(t *testing.T) {
	ctx := context.Background()
	sessions := store.NewMemorySessionStore()
	svc := newTestSessionService(testCatalog(10), sessions, testEngineConfig())

	snap, err := svc.Start(ctx)
	require.NoError(t, err)
	q := snap.Question

	res, err := svc.Respond(ctx, snap.ID, domain.Response{ID: (q.ID + 1) % 10, Result: true})
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, domain.SessionAwaiting, res.State)
	require.NotNil(t, res.Question)
	assert.Equal(t, q.ID, res.Question.ID)

	recorded, err := sessions.ListResponses(ctx, snap.ID)
	require.NoError(t, err)
	assert.Empty(t, recorded)

	after, err := svc.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.Answered)
	assert.Equal(t, snap.Ability, after.Ability)
}

func TestSessionService_DuplicateResponseIgnored(t *testing.T) {
	ctx := context.Background()
	catalog := testCatalog(10)
	sessions := store.NewMemorySessionStore()
	svc := newTestSessionService(catalog, sessions, testEngineConfig())

	snap, err := svc.Start(ctx)
	require.NoError(t, err)
	first := snap.Question

	res, err := svc.Respond(ctx, snap.ID, domain.Response{ID: first.ID, Result: true})
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.NotNil(t, res.Question)
	next := res.Question

	before, err := svc.Get(ctx, snap.ID)
	require.NoError(t, err)

	for _, result := range []bool{true, false} {
		dup, err := svc.Respond(ctx, snap.ID, domain.Response{ID: first.ID, Result: result})
		require.NoError(t, err)
		assert.False(t, dup.Applied)
		assert.Equal(t, domain.SessionAwaiting, dup.State)
		require.NotNil(t, dup.Question)
		assert.Equal(t, next.ID, dup.Question.ID)
	}

	after, err := svc.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.Answered)
	assert.Equal(t, before.Ability, after.Ability)
	assert.Equal(t, before.Bias, after.Bias)
	assert.Equal(t, before.Bounds, after.Bounds)

	recorded, err := sessions.ListResponses(ctx, snap.ID)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, first.ID, recorded[0].ItemID)
	assert.Equal(t, int64(1), svc.Stats().Applied)
}

func TestSessionService_RunsToCompletion(t *testing.T) {
	ctx := context.Background()
	catalog := testCatalog(10)
	sessions := store.NewMemorySessionStore()
	svc := newTestSessionService(catalog, sessions, testEngineConfig())

	snap, err := svc.Start(ctx)
	require.NoError(t, err)

	asked := make(map[int]bool)
	q := snap.Question
	for q != nil {
		require.False(t, asked[q.ID], "item %d asked twice", q.ID)
		asked[q.ID] = true

		res, err := svc.Respond(ctx, snap.ID, domain.Response{ID: q.ID, Result: knows(catalog, q.ID)})
		require.NoError(t, err)
		require.True(t, res.Applied)
		q = res.Question
	}
	assert.Len(t, asked, 10)

	final, err := svc.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, final.State)
	assert.Nil(t, final.Question)
	assert.Equal(t, 10, final.Answered)
	require.Len(t, final.Bounds, 3)
	assert.Greater(t, final.Ability.Mean, 0.0)

	stored, err := sessions.GetByID(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, stored.State)

	recorded, err := sessions.ListResponses(ctx, snap.ID)
	require.NoError(t, err)
	require.Len(t, recorded, 10)
	for i, r := range recorded {
		assert.Equal(t, i, r.Sequence)
	}

	_, err = svc.Respond(ctx, snap.ID, domain.Response{ID: 0, Result: true})
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, int64(10), svc.Stats().Applied)
}

func TestSessionService_NotFound(t *testing.T) {
	ctx := context.Background()
	svc := newTestSessionService(testCatalog(10), store.NewMemorySessionStore(), testEngineConfig())

	_, err := svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Respond(ctx, uuid.New(), domain.Response{ID: 0, Result: true})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_RestoreReplaysResponses(t *testing.T) {
	ctx := context.Background()
	catalog := testCatalog(10)
	sessions := store.NewMemorySessionStore()
	first := newTestSessionService(catalog, sessions, testEngineConfig())

	snap, err := first.Start(ctx)
	require.NoError(t, err)
	q := snap.Question
	answered := make(map[int]bool)
	for range 4 {
		answered[q.ID] = true
		res, err := first.Respond(ctx, snap.ID, domain.Response{ID: q.ID, Result: knows(catalog, q.ID)})
		require.NoError(t, err)
		q = res.Question
	}
	before, err := first.Get(ctx, snap.ID)
	require.NoError(t, err)

	// A fresh service sharing only the store rebuilds the same beliefs.
	second := newTestSessionService(catalog, sessions, testEngineConfig())
	after, err := second.Get(ctx, snap.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.SessionAwaiting, after.State)
	assert.Equal(t, 4, after.Answered)
	assert.Equal(t, before.Ability, after.Ability)
	assert.Equal(t, before.Bias, after.Bias)
	assert.Equal(t, before.Bounds, after.Bounds)
	require.NotNil(t, after.Question)
	assert.False(t, answered[after.Question.ID])

	res, err := second.Respond(ctx, snap.ID, domain.Response{ID: after.Question.ID, Result: true})
	require.NoError(t, err)
	assert.True(t, res.Applied)
}

func TestSessionService_EstimationFailure(t *testing.T) {
	ctx := context.Background()
	cfg := testEngineConfig()
	cfg.MaxIterations = 1
	sessions := store.NewMemorySessionStore()
	svc := newTestSessionService(testCatalog(10), sessions, cfg)

	snap, err := svc.Start(ctx)
	require.NoError(t, err)

	_, err = svc.Respond(ctx, snap.ID, domain.Response{ID: snap.Question.ID, Result: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEstimationFailed)
	assert.ErrorIs(t, err, inference.ErrNotConverged)

	got, err := svc.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionFailed, got.State)
	assert.Nil(t, got.Question)
	assert.Nil(t, got.Bounds)

	stored, err := sessions.GetByID(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionFailed, stored.State)

	_, err = svc.Respond(ctx, snap.ID, domain.Response{ID: 0, Result: true})
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, int64(1), svc.Stats().Failed)
}

func TestSessionService_AppendFailureLeavesSessionUnchanged(t *testing.T) {
	ctx := context.Background()
	sessions := new(MockSessionStore)
	sessions.On("Create", mock.Anything, mock.Anything).Return(nil)
	sessions.On("AppendResponse", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
	svc := newTestSessionService(testCatalog(10), sessions, testEngineConfig())

	snap, err := svc.Start(ctx)
	require.NoError(t, err)

	_, err = svc.Respond(ctx, snap.ID, domain.Response{ID: snap.Question.ID, Result: true})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEstimationFailed)

	got, err := svc.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionAwaiting, got.State)
	assert.Equal(t, 0, got.Answered)
	require.NotNil(t, got.Question)
	assert.Equal(t, snap.Question.ID, got.Question.ID)

	sessions.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything)
	sessions.AssertExpectations(t)
}

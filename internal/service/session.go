package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/vocabtest/internal/domain"
	"github.com/Harshitk-cp/vocabtest/internal/inference"
	"github.com/Harshitk-cp/vocabtest/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionClosed    = errors.New("session is not awaiting a response")
	ErrEstimationFailed = errors.New("ability estimation failed")
)

// EngineConfig holds the priors and numerical limits each session's engine
// is created with.
type EngineConfig struct {
	AbilityPrior  inference.Gaussian
	BiasPrior     inference.Gaussian
	MaxIterations int
	MaxStimulus   int
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		AbilityPrior:  inference.Gaussian{Mean: 1e-3, Variance: 1e-6},
		BiasPrior:     inference.Gaussian{Mean: 2, Variance: 1},
		MaxIterations: inference.DefaultMaxIterations,
		MaxStimulus:   DefaultMaxStimulus,
	}
}

// RespondResult is the outcome of dispatching one response. Applied is false
// when the response did not match the outstanding question or repeated one
// already recorded; nothing changed in that case.
type RespondResult struct {
	Applied  bool                `json:"applied"`
	State    domain.SessionState `json:"state"`
	Question *domain.Question    `json:"question,omitempty"`
}

type SessionStats struct {
	Started int64 `json:"sessions_started"`
	Active  int   `json:"sessions_active"`
	Failed  int64 `json:"sessions_failed"`
	Applied int64 `json:"responses_applied"`
}

// session holds one test-taker's engine and the single outstanding
// question. All fields except lastUsed are guarded by mu.
type session struct {
	mu      sync.Mutex
	meta    domain.Session
	engine  *inference.Engine
	seen    map[int]struct{}
	pending *domain.Question
	bounds  [3]float64
	rng     *rand.Rand
	evicted bool

	lastUsed atomic.Int64 // unix nanoseconds
}

func (sess *session) touch(now time.Time) {
	sess.lastUsed.Store(now.UnixNano())
}

// SessionService runs adaptive test sessions. Sessions live in memory and are
// rebuilt from the session store on first access after a restart.
type SessionService struct {
	catalog *CatalogService
	store   domain.SessionStore
	cfg     EngineConfig
	logger  *zap.Logger
	newRand func() *rand.Rand
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*session

	started atomic.Int64
	failed  atomic.Int64
	applied atomic.Int64
}

func NewSessionService(catalog *CatalogService, store domain.SessionStore, cfg EngineConfig, logger *zap.Logger) *SessionService {
	return &SessionService{
		catalog:  catalog,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		newRand:  func() *rand.Rand { return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) },
		now:      time.Now,
		sessions: make(map[uuid.UUID]*session),
	}
}

// SetRandSource replaces the per-session random source factory.
func (s *SessionService) SetRandSource(f func() *rand.Rand) {
	s.newRand = f
}

func (s *SessionService) Stats() SessionStats {
	s.mu.RLock()
	active := len(s.sessions)
	s.mu.RUnlock()
	return SessionStats{
		Started: s.started.Load(),
		Active:  active,
		Failed:  s.failed.Load(),
		Applied: s.applied.Load(),
	}
}

// Start opens a session and returns its first question.
func (s *SessionService) Start(ctx context.Context) (*domain.SessionSnapshot, error) {
	sel, err := s.catalog.Selector(ctx)
	if err != nil {
		return nil, err
	}

	sess := s.newSession(uuid.New())
	sess.touch(s.now())
	if err := s.store.Create(ctx, &sess.meta); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	s.mu.Lock()
	s.sessions[sess.meta.ID] = sess
	s.mu.Unlock()
	s.started.Add(1)

	if err := s.ask(ctx, sess, sel); err != nil {
		return nil, err
	}

	s.logger.Info("session started",
		zap.String("session_id", sess.meta.ID.String()),
		zap.Int("catalog_items", len(sel.Catalog())))
	return s.snapshot(sess), nil
}

// Get returns a snapshot of the session.
func (s *SessionService) Get(ctx context.Context, id uuid.UUID) (*domain.SessionSnapshot, error) {
	sess, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	return s.snapshot(sess), nil
}

// Respond dispatches a response to the session's outstanding question and
// returns the next question.
func (s *SessionService) Respond(ctx context.Context, id uuid.UUID, resp domain.Response) (*RespondResult, error) {
	sel, err := s.catalog.Selector(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	return s.dispatch(ctx, sess, sel, resp)
}

// dispatch is the only transition out of the awaiting state.
func (s *SessionService) dispatch(ctx context.Context, sess *session, sel *Selector, resp domain.Response) (*RespondResult, error) {
	if sess.meta.State != domain.SessionAwaiting {
		return nil, fmt.Errorf("%w: state is %s", ErrSessionClosed, sess.meta.State)
	}

	_, dup := sess.seen[resp.ID]
	if sess.pending == nil || resp.ID != sess.pending.ID || dup {
		s.logger.Debug("response ignored",
			zap.String("session_id", sess.meta.ID.String()),
			zap.Int("item_id", resp.ID),
			zap.Bool("duplicate", dup))
		return &RespondResult{Applied: false, State: sess.meta.State, Question: sess.pending}, nil
	}

	rec := &domain.RecordedResponse{
		SessionID: sess.meta.ID,
		Sequence:  sess.engine.Len(),
		ItemID:    resp.ID,
		Result:    resp.Result,
	}
	if err := s.store.AppendResponse(ctx, rec); err != nil {
		return nil, fmt.Errorf("record response: %w", err)
	}
	sess.seen[resp.ID] = struct{}{}
	s.applied.Add(1)

	item := sel.Catalog()[resp.ID]
	if err := sess.engine.Push(item.Difficulty, resp.Result); err != nil {
		return nil, s.fail(ctx, sess, err)
	}

	if err := s.ask(ctx, sess, sel); err != nil {
		return nil, err
	}

	s.logger.Debug("response applied",
		zap.String("session_id", sess.meta.ID.String()),
		zap.Int("item_id", resp.ID),
		zap.Bool("result", resp.Result),
		zap.Float64("estimate", sess.bounds[0]))
	return &RespondResult{Applied: true, State: sess.meta.State, Question: sess.pending}, nil
}

// ask computes the next outstanding question, completing the session when
// the catalog runs out.
func (s *SessionService) ask(ctx context.Context, sess *session, sel *Selector) error {
	w, b := sess.engine.Ability(), sess.engine.Bias()

	bounds, err := ScoreBounds(w, b, s.cfg.MaxStimulus)
	if err != nil {
		return s.fail(ctx, sess, err)
	}
	sess.bounds = bounds

	i, err := sel.Next(w, b, sess.seen, sess.rng)
	if errors.Is(err, ErrCatalogExhausted) {
		sess.pending = nil
		return s.setState(ctx, sess, domain.SessionCompleted)
	}
	if err != nil {
		return s.fail(ctx, sess, err)
	}

	catalog := sel.Catalog()
	item := catalog[i]
	sess.pending = &domain.Question{
		ID:            i,
		Label:         item.Label,
		Category:      item.Category,
		CorrectAnswer: item.CorrectAnswer,
		Distractors:   Distractors(catalog, i),
		Bounds:        bounds,
	}
	return nil
}

// fail moves the session to the failed state and returns the cause wrapped
// in ErrEstimationFailed. No question is emitted afterwards.
func (s *SessionService) fail(ctx context.Context, sess *session, cause error) error {
	sess.pending = nil
	s.failed.Add(1)
	s.logger.Error("session failed",
		zap.String("session_id", sess.meta.ID.String()),
		zap.Int("observations", sess.engine.Len()),
		zap.Error(cause))
	if err := s.setState(ctx, sess, domain.SessionFailed); err != nil {
		s.logger.Warn("failed to persist session state", zap.Error(err))
	}
	return fmt.Errorf("%w: %w", ErrEstimationFailed, cause)
}

func (s *SessionService) setState(ctx context.Context, sess *session, state domain.SessionState) error {
	sess.meta.State = state
	if err := s.store.UpdateState(ctx, sess.meta.ID, state); err != nil {
		return fmt.Errorf("update session state: %w", err)
	}
	return nil
}

func (s *SessionService) newSession(id uuid.UUID) *session {
	return &session{
		meta: domain.Session{ID: id, State: domain.SessionAwaiting},
		engine: inference.NewEngine(s.cfg.AbilityPrior, s.cfg.BiasPrior,
			inference.WithMaxIterations(s.cfg.MaxIterations),
			inference.WithLogger(s.logger)),
		seen: make(map[int]struct{}),
		rng:  s.newRand(),
	}
}

// acquire returns the session with its mutex held, retrying when the
// session was evicted between lookup and lock.
func (s *SessionService) acquire(ctx context.Context, id uuid.UUID) (*session, error) {
	for {
		sess, err := s.lookup(ctx, id)
		if err != nil {
			return nil, err
		}
		sess.mu.Lock()
		if !sess.evicted {
			sess.touch(s.now())
			return sess, nil
		}
		sess.mu.Unlock()
	}
}

// EvictIdle drops sessions not used since before cutoff from memory and
// returns how many were dropped. Sessions busy with a request are skipped.
// An evicted session is rebuilt from the store on its next access.
func (s *SessionService) EvictIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		if sess.lastUsed.Load() >= cutoff.UnixNano() || !sess.mu.TryLock() {
			continue
		}
		sess.evicted = true
		sess.mu.Unlock()
		delete(s.sessions, id)
		evicted++
	}
	return evicted
}

func (s *SessionService) lookup(ctx context.Context, id uuid.UUID) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess, nil
	}
	return s.restore(ctx, id)
}

// restore rebuilds a session by replaying its recorded responses. The
// outstanding question is chosen afresh.
func (s *SessionService) restore(ctx context.Context, id uuid.UUID) (*session, error) {
	meta, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	sel, err := s.catalog.Selector(ctx)
	if err != nil {
		return nil, err
	}
	responses, err := s.store.ListResponses(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}

	sess := s.newSession(id)
	sess.meta = *meta
	sess.touch(s.now())
	catalog := sel.Catalog()
	for _, r := range responses {
		if r.ItemID < 0 || r.ItemID >= len(catalog) {
			return nil, fmt.Errorf("replay session %s: item %d outside catalog", id, r.ItemID)
		}
		sess.seen[r.ItemID] = struct{}{}
		if err := sess.engine.Push(catalog[r.ItemID].Difficulty, r.Result); err != nil {
			if meta.State != domain.SessionFailed {
				return nil, fmt.Errorf("replay session %s: %w", id, err)
			}
			break
		}
	}

	if sess.meta.State == domain.SessionAwaiting {
		if err := s.ask(ctx, sess, sel); err != nil {
			return nil, err
		}
	} else if b, err := ScoreBounds(sess.engine.Ability(), sess.engine.Bias(), s.cfg.MaxStimulus); err == nil {
		sess.bounds = b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		return existing, nil
	}
	s.sessions[id] = sess
	s.logger.Info("session restored",
		zap.String("session_id", id.String()),
		zap.Int("responses", len(responses)))
	return sess, nil
}

func (s *SessionService) snapshot(sess *session) *domain.SessionSnapshot {
	w, b := sess.engine.Ability(), sess.engine.Bias()
	snap := &domain.SessionSnapshot{
		Session:  sess.meta,
		Question: sess.pending,
		Answered: sess.engine.Len(),
		Ability:  domain.Belief{Mean: w.Mean, Variance: w.Variance},
		Bias:     domain.Belief{Mean: b.Mean, Variance: b.Variance},
	}
	if sess.meta.State != domain.SessionFailed {
		snap.Bounds = append([]float64(nil), sess.bounds[:]...)
	}
	return snap
}

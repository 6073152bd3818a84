// Package memory keeps in-flight survey sessions in process memory.
package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sngm3741/salon-survey-services/api/internal/apperr"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/flow"
)

// DefaultSessionTTL is the idle time after which a session is forgotten.
const DefaultSessionTTL = 30 * time.Minute

type entry struct {
	mu      sync.Mutex
	session flow.Session
	touched atomic.Int64
	removed atomic.Bool
}

// SessionStore maps session IDs to flow.Session values. Each session has its
// own lock so one respondent's slow submit never blocks another's step.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewSessionStore returns an empty store. ttl <= 0 selects DefaultSessionTTL.
func NewSessionStore(ttl time.Duration, logger *zap.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// NewID returns a fresh random session ID.
func (s *SessionStore) NewID() string {
	return uuid.NewString()
}

// Create stores session under session.ID.
func (s *SessionStore) Create(session flow.Session) error {
	if session.ID == "" {
		return fmt.Errorf("session id is required")
	}
	e := &entry{session: session.Clone()}
	e.touched.Store(s.now().UnixNano())

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	s.sessions[session.ID] = e
	return nil
}

// Get returns a copy of the session.
func (s *SessionStore) Get(id string) (flow.Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return flow.Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed.Load() {
		return flow.Session{}, apperr.ErrSessionNotFound
	}
	return e.session.Clone(), nil
}

// Update runs fn on a copy of the session under the session's lock and stores
// whatever session fn returns, even alongside an error, so a failed submit is
// remembered as SubmitError. Sessions that reach a terminal state are dropped.
func (s *SessionStore) Update(id string, fn func(flow.Session) (flow.Session, error)) (flow.Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return flow.Session{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed.Load() {
		return flow.Session{}, apperr.ErrSessionNotFound
	}

	next, fnErr := fn(e.session.Clone())
	if next.ID != id {
		return e.session.Clone(), fnErr
	}
	if next.State.Terminal() {
		s.remove(id, e)
		return next, fnErr
	}
	e.session = next.Clone()
	e.touched.Store(s.now().UnixNano())
	return next, fnErr
}

// Sweep drops every idle session and returns how many were dropped.
func (s *SessionStore) Sweep() int {
	deadline := s.now().Add(-s.ttl).UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for id, e := range s.sessions {
		if e.touched.Load() < deadline {
			e.removed.Store(true)
			delete(s.sessions, id)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Run sweeps every interval until ctx is done.
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if dropped := s.Sweep(); dropped > 0 {
				s.logger.Debug("期限切れのセッションを削除しました", zap.Int("count", dropped))
			}
		}
	}
}

func (s *SessionStore) lookup(id string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, apperr.ErrSessionNotFound
	}
	if e.touched.Load() < s.now().Add(-s.ttl).UnixNano() {
		e.removed.Store(true)
		delete(s.sessions, id)
		return nil, apperr.ErrSessionNotFound
	}
	return e, nil
}

func (s *SessionStore) remove(id string, e *entry) {
	e.removed.Store(true)
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions[id]; ok && current == e {
		delete(s.sessions, id)
	}
}

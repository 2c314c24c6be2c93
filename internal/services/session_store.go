package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/damacus/iron-blobs/internal/listing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type session struct {
	connKey  string
	cursor   *listing.Cursor
	lastUsed time.Time
}

// SessionStore keeps one browsing cursor per browser session.
// A session is bound to the connection it was created for; acquiring it with a
// different connection starts a fresh cursor.
type SessionStore struct {
	factory ListerFactory
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessionStore creates a store. A ttl of zero keeps sessions forever.
func NewSessionStore(factory ListerFactory, ttl time.Duration, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{
		factory:  factory,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// NewSessionID returns a random session identifier
func NewSessionID() string {
	return uuid.NewString()
}

// Acquire returns the cursor for sessionID, creating one when the session is
// unknown, expired, or was created for another connection. The lister is built
// without holding the store lock.
func (s *SessionStore) Acquire(sessionID string, conn Connection) (*listing.Cursor, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, fmt.Errorf("%w: malformed session id", ErrInvalidConnection)
	}
	key := conn.Key()

	if cursor, ok := s.lookup(sessionID, key); ok {
		return cursor, nil
	}

	lister, err := s.factory.NewLister(conn)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	// Another request for the same session may have won the race
	if sess, ok := s.sessions[sessionID]; ok && sess.connKey == key {
		sess.lastUsed = now
		return sess.cursor, nil
	}

	cursor := listing.NewCursor(lister, s.logger.With(zap.String("session", sessionID)))
	s.sessions[sessionID] = &session{connKey: key, cursor: cursor, lastUsed: now}
	s.logger.Debug("Created browsing session",
		zap.String("session", sessionID),
		zap.String("connection", conn.Label()))
	return cursor, nil
}

func (s *SessionStore) lookup(sessionID, key string) (*listing.Cursor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictLocked(now)

	sess, ok := s.sessions[sessionID]
	if !ok || sess.connKey != key {
		return nil, false
	}
	sess.lastUsed = now
	return sess.cursor, true
}

// Remove forgets a session
func (s *SessionStore) Remove(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) evictLocked(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, sess := range s.sessions {
		if now.Sub(sess.lastUsed) > s.ttl {
			delete(s.sessions, id)
			s.logger.Debug("Evicted idle session", zap.String("session", id))
		}
	}
}

package web

import (
	"time"

	"marketing-export/domain/session"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SessionStore holds sessions in memory. The least recently used session
// is dropped when the store is full and idle sessions expire after ttl.
type SessionStore struct {
	cache   *expirable.LRU[string, *session.Session]
	onCount func(int)
}

// NewSessionStore creates a bounded, expiring session store.
// onCount, when set, is told the session count after every access.
// Expired sessions are reflected on the next access.
func NewSessionStore(size int, ttl time.Duration, onCount func(int)) *SessionStore {
	if size <= 0 {
		size = 1000
	}
	if onCount == nil {
		onCount = func(int) {}
	}
	return &SessionStore{
		cache:   expirable.NewLRU[string, *session.Session](size, nil, ttl),
		onCount: onCount,
	}
}

// Get returns the live session for id
func (s *SessionStore) Get(id string) (*session.Session, bool) {
	if id == "" {
		return nil, false
	}
	sess, ok := s.cache.Get(id)
	s.onCount(s.cache.Len())
	return sess, ok
}

// Put stores sess under its ID
func (s *SessionStore) Put(sess *session.Session) {
	s.cache.Add(sess.ID, sess)
	s.onCount(s.cache.Len())
}

// Remove drops the session for id
func (s *SessionStore) Remove(id string) {
	s.cache.Remove(id)
	s.onCount(s.cache.Len())
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	return s.cache.Len()
}

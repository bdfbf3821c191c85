package session

import (
	"sort"
	"sync"

	"github.com/rflorenc/deploy-ledger/internal/logger"
)

type entry struct {
	session *Session
	events  *EventLog
}

// Store is an in-memory thread-safe store for import sessions. Every session
// it creates is followed by an EventLog.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]entry
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]entry)}
}

// Create starts a new session.
func (s *Store) Create() *Session {
	sess := New()
	events := &EventLog{}
	sess.AddListener(events)

	s.mu.Lock()
	s.sessions[sess.ID()] = entry{session: sess, events: events}
	s.mu.Unlock()

	logger.Infof("session %s created", sess.ID())
	return sess
}

// Get returns a session by ID, or nil if not found.
func (s *Store) Get(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id].session
}

// Events returns the event log of a session, or nil if not found.
func (s *Store) Events(id string) *EventLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id].events
}

// List returns all sessions, oldest first.
func (s *Store) List() []*Session {
	s.mu.RLock()
	result := make([]*Session, 0, len(s.sessions))
	for _, e := range s.sessions {
		result = append(result, e.session)
	}
	s.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Created().Equal(result[j].Created()) {
			return result[i].Created().Before(result[j].Created())
		}
		return result[i].ID() < result[j].ID()
	})
	return result
}

// Delete removes a session by ID.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	logger.Infof("session %s deleted", id)
	return true
}

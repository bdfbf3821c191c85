package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rflorenc/deploy-ledger/internal/contract"
	"github.com/rflorenc/deploy-ledger/internal/dependency"
	"github.com/rflorenc/deploy-ledger/internal/validation"
)

// EventKind names what changed in a session.
type EventKind string

const (
	PackageAdded     EventKind = "package_added"
	PackageValidated EventKind = "package_validated"
	PackageRemoved   EventKind = "package_removed"
)

// Event is delivered to listeners after every change to a session.
type Event struct {
	Kind    EventKind      `json:"kind"`
	Session string         `json:"session"`
	Key     dependency.Key `json:"key"`
	Time    time.Time      `json:"time"`
}

// Listener is notified of session changes. Notifications are delivered
// synchronously, in registration order, outside the session lock.
type Listener interface {
	SessionChanged(Event)
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) SessionChanged(e Event) { f(e) }

// Validator runs pre-install validation of one element against the target.
// Implementations live with the install orchestrator.
type Validator interface {
	Validate(ctx context.Context, el *dependency.DeployableElement) (*validation.Results, error)
}

// ValidatorFunc adapts a function to a Validator.
type ValidatorFunc func(ctx context.Context, el *dependency.DeployableElement) (*validation.Results, error)

func (f ValidatorFunc) Validate(ctx context.Context, el *dependency.DeployableElement) (*validation.Results, error) {
	return f(ctx, el)
}

// Session is the import context for one archive on the target server.
type Session struct {
	id        string
	created   time.Time
	mu        sync.Mutex
	packages  []*ImportPackage
	listeners []Listener
}

// New returns an empty session with a fresh UUID.
func New() *Session {
	return &Session{id: uuid.New().String(), created: time.Now().UTC()}
}

func (s *Session) ID() string         { return s.id }
func (s *Session) Created() time.Time { return s.created }

// AddListener registers l for every subsequent change.
func (s *Session) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Session) notify(kind EventKind, key dependency.Key) {
	s.mu.Lock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()
	e := Event{Kind: kind, Session: s.id, Key: key, Time: time.Now().UTC()}
	for _, l := range listeners {
		l.SessionChanged(e)
	}
}

func (s *Session) index(k dependency.Key) int {
	for i, p := range s.packages {
		if p.Key() == k {
			return i
		}
	}
	return -1
}

// AddPackage selects el for import. Selecting the same element twice is an
// error.
func (s *Session) AddPackage(el *dependency.DeployableElement) error {
	p, err := NewImportPackage(el)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.index(p.Key()) >= 0 {
		s.mu.Unlock()
		return contract.Invalid("deployableElement", fmt.Sprintf("%s already selected", p.Key()))
	}
	s.packages = append(s.packages, p)
	s.mu.Unlock()
	s.notify(PackageAdded, p.Key())
	return nil
}

// RemovePackage drops the package with key k.
func (s *Session) RemovePackage(k dependency.Key) bool {
	s.mu.Lock()
	i := s.index(k)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.packages = append(s.packages[:i:i], s.packages[i+1:]...)
	s.mu.Unlock()
	s.notify(PackageRemoved, k)
	return true
}

// Packages returns the selected packages in selection order.
func (s *Session) Packages() []*ImportPackage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ImportPackage(nil), s.packages...)
}

// Package returns the package with key k, or nil.
func (s *Session) Package(k dependency.Key) *ImportPackage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(k); i >= 0 {
		return s.packages[i]
	}
	return nil
}

// SetResults attaches results to the package with key k.
func (s *Session) SetResults(k dependency.Key, results *validation.Results) error {
	if results == nil {
		return contract.Required("validationResults")
	}
	s.mu.Lock()
	i := s.index(k)
	if i < 0 {
		s.mu.Unlock()
		return contract.Invalid("key", fmt.Sprintf("%s not selected", k))
	}
	s.packages[i] = s.packages[i].WithResults(results)
	s.mu.Unlock()
	s.notify(PackageValidated, k)
	return nil
}

// Validate runs v over every selected package in order and stores the
// results. It stops at the first validator error or when ctx is done;
// packages validated before that keep their results.
func (s *Session) Validate(ctx context.Context, v Validator) error {
	for _, p := range s.Packages() {
		if err := ctx.Err(); err != nil {
			return err
		}
		results, err := v.Validate(ctx, p.Element())
		if err != nil {
			return fmt.Errorf("validating %s: %w", p.Key(), err)
		}
		if err := s.SetResults(p.Key(), results); err != nil {
			return fmt.Errorf("validating %s: %w", p.Key(), err)
		}
	}
	return nil
}

// Installable returns the validated packages without blocking errors.
func (s *Session) Installable() []*ImportPackage {
	var out []*ImportPackage
	for _, p := range s.Packages() {
		if p.Installable() {
			out = append(out, p)
		}
	}
	return out
}

// EventLog is a Listener that buffers events so they can be polled by
// offset.
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *EventLog) SessionChanged(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

// Since returns the events starting from the given index.
func (l *EventLog) Since(offset int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if offset < 0 {
		offset = 0
	}
	if offset >= len(l.events) {
		return nil
	}
	out := make([]Event, len(l.events)-offset)
	copy(out, l.events[offset:])
	return out
}

func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

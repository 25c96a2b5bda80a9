package websocket

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// Session binds one negotiated duplex connection to its client identifier
// and the channels it subscribed to.
type Session struct {
	ClientID      string
	Conn          *Connection
	Registered    bool
	Subscriptions map[string]struct{}
	CreatedAt     time.Time
}

func (s *Session) clone() Session {
	subs := make(map[string]struct{}, len(s.Subscriptions))
	for ch := range s.Subscriptions {
		subs[ch] = struct{}{}
	}
	c := *s
	c.Subscriptions = subs
	return c
}

func (s Session) IsSubscribed(channel string) bool {
	_, ok := s.Subscriptions[channel]
	return ok
}

// Channels returns the subscriptions in sorted order.
func (s Session) Channels() []string {
	channels := make([]string, 0, len(s.Subscriptions))
	for ch := range s.Subscriptions {
		channels = append(channels, ch)
	}
	sort.Strings(channels)
	return channels
}

// SessionObserver is told about sessions entering and leaving the registry.
type SessionObserver interface {
	SessionOpened(clientID string)
	SessionClosed(clientID string)
}

type RegistryOption func(*Registry)

// WithIDGenerator replaces the client identifier generator.
func WithIDGenerator(gen func() string) RegistryOption {
	return func(r *Registry) { r.newID = gen }
}

// WithObserver adds a session observer.
func WithObserver(o SessionObserver) RegistryOption {
	return func(r *Registry) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// Registry is the set of live sessions. Every method is safe for concurrent
// use by the handlers of different connections.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	// one session per physical connection
	byConn map[*Connection]string

	newID     func() string
	observers []SessionObserver
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		byConn:   make(map[*Connection]string),
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create assigns a fresh client identifier to conn. A session previously
// created on the same connection is replaced.
func (r *Registry) Create(conn *Connection) Session {
	r.mu.Lock()
	var replaced string
	if old, ok := r.byConn[conn]; ok {
		delete(r.sessions, old)
		replaced = old
	}

	s := &Session{
		ClientID:      r.newID(),
		Conn:          conn,
		Subscriptions: make(map[string]struct{}),
		CreatedAt:     time.Now(),
	}
	r.sessions[s.ClientID] = s
	r.byConn[conn] = s.ClientID
	snapshot := s.clone()
	r.mu.Unlock()

	if replaced != "" {
		r.notifyClosed(replaced)
	}
	r.notifyOpened(snapshot.ClientID)
	return snapshot
}

// Lookup returns a snapshot of the session.
func (r *Registry) Lookup(clientID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[clientID]
	if !ok {
		return Session{}, false
	}
	return s.clone(), true
}

func (r *Registry) MarkRegistered(clientID string) error {
	return r.update(clientID, func(s *Session) error {
		s.Registered = true
		return nil
	})
}

func (r *Registry) AddSubscription(clientID, channel string) error {
	return r.update(clientID, func(s *Session) error {
		s.Subscriptions[channel] = struct{}{}
		return nil
	})
}

// RemoveSubscription reports whether channel was in the set.
func (r *Registry) RemoveSubscription(clientID, channel string) (bool, error) {
	var removed bool
	err := r.update(clientID, func(s *Session) error {
		_, removed = s.Subscriptions[channel]
		delete(s.Subscriptions, channel)
		return nil
	})
	return removed, err
}

// Remove drops the session. Removing an unknown session is a no-op.
func (r *Registry) Remove(clientID string) bool {
	r.mu.Lock()
	s, ok := r.sessions[clientID]
	if ok {
		delete(r.sessions, clientID)
		if r.byConn[s.Conn] == clientID {
			delete(r.byConn, s.Conn)
		}
	}
	r.mu.Unlock()

	if ok {
		r.notifyClosed(clientID)
	}
	return ok
}

// RemoveConnection drops the session owned by conn, if any.
func (r *Registry) RemoveConnection(conn *Connection) bool {
	r.mu.RLock()
	clientID, ok := r.byConn[conn]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return r.Remove(clientID)
}

// Subscribers returns the connections of every session subscribed to channel
// at the time of the call.
func (r *Registry) Subscribers(channel string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0)
	for _, s := range r.sessions {
		if _, ok := s.Subscriptions[channel]; ok {
			conns = append(conns, s.Conn)
		}
	}
	return conns
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// update runs fn on the live session under the write lock, so validation and
// mutation in fn are atomic with respect to other connections.
func (r *Registry) update(clientID string, fn func(s *Session) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[clientID]
	if !ok {
		return ErrSessionNotFound
	}
	return fn(s)
}

func (r *Registry) notifyOpened(clientID string) {
	for _, o := range r.observers {
		o.SessionOpened(clientID)
	}
}

func (r *Registry) notifyClosed(clientID string) {
	for _, o := range r.observers {
		o.SessionClosed(clientID)
	}
}

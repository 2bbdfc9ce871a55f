package session

import (
	"context"
	"sync"
	"time"

	"github.com/xy-planning-network/relay/logger"
)

// DefaultExpiry is the session lifetime a Registry uses when not configured
// with its own.
const DefaultExpiry = 24 * time.Hour

// A Registry is the synchronized set of live sessions one server owns,
// keyed by session ID.
//
// Lookup, insert-on-create and remove-on-terminate are atomic with respect
// to each other across concurrent requests.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	defaultExpiry time.Duration
	log           logger.Logger
	mirror        Mirror
}

// A RegistryOptFn is a functional option configuring a Registry when constructing a new one.
type RegistryOptFn func(*Registry)

// WithDefaultExpiry sets the expiry sessions receive when constructed
// without their own.
func WithDefaultExpiry(d time.Duration) RegistryOptFn {
	return func(r *Registry) { r.defaultExpiry = d }
}

// WithLogger sets the logger.Logger the Registry logs lifecycle events with.
func WithLogger(l logger.Logger) RegistryOptFn {
	return func(r *Registry) { r.log = l }
}

// WithMirror sets the Mirror the Registry reflects session lifecycle into.
func WithMirror(m Mirror) RegistryOptFn {
	return func(r *Registry) { r.mirror = m }
}

// NewRegistry constructs a Registry.
func NewRegistry(opts ...RegistryOptFn) *Registry {
	r := &Registry{
		sessions:      make(map[string]*Session),
		defaultExpiry: DefaultExpiry,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.log == nil {
		r.log = logger.New()
	}

	return r
}

// Resume looks up the session registered under id and attempts to resume
// it, resetting its expiry timer.
//
// A lookup miss returns (nil, false). A session that refuses to resume,
// because its hook errored or it terminated concurrently, is explicitly terminated
// rather than left dangling, and (nil, false) returns. Resume never raises:
// a stale or forged ID simply yields no session.
func (r *Registry) Resume(id string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()

	if !ok {
		return nil, false
	}

	if err := s.resume(); err != nil {
		r.log.Info("session refused resume, terminating", &logger.LogContext{Error: err, SessionID: id})
		s.Terminate("resume failed")
		return nil, false
	}

	if r.mirror != nil {
		if err := r.mirror.Refresh(context.Background(), id, s.Expiry()); err != nil {
			r.log.Warn("session mirror refresh failed", &logger.LogContext{Error: err, SessionID: id})
		}
	}

	return s, true
}

// Lookup returns the session registered under id without resuming it.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// add registers a newly constructed session. Only [New] calls it.
func (r *Registry) add(s *Session) {
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()

	if r.mirror != nil {
		if err := r.mirror.Put(context.Background(), s.id, s.Expiry()); err != nil {
			r.log.Warn("session mirror put failed", &logger.LogContext{Error: err, SessionID: s.id})
		}
	}
}

// remove drops a terminated session. Only [Session.Terminate] calls it.
func (r *Registry) remove(s *Session, reason string) {
	r.mu.Lock()
	delete(r.sessions, s.id)
	r.mu.Unlock()

	r.log.Debug("session terminated: "+reason, &logger.LogContext{SessionID: s.id})

	if r.mirror != nil {
		if err := r.mirror.Drop(context.Background(), s.id); err != nil {
			r.log.Warn("session mirror drop failed", &logger.LogContext{Error: err, SessionID: s.id})
		}
	}
}

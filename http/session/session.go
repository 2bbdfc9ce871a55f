// Package session manages relay's server-owned user sessions: their
// expiry-timer-based lifecycle, the synchronized registry a server tracks
// them in, and the extraction algorithm reconciling the session tokens a
// request may carry in its cookie, query and POST parameters.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xy-planning-network/relay"
)

// A Session represents one user's state, owned by the server-side
// [Registry] it was constructed against.
//
// Application code creates sessions explicitly; relay never starts one on
// its own. A live Session holds exactly one outstanding expiry timer, reset
// on every successful resume. Termination, whether explicit, by resume failure, or
// by the timer firing, is irreversible.
type Session struct {
	id        string
	createdAt time.Time
	reg       *Registry

	mu         sync.Mutex
	expiry     time.Duration
	terminated bool
	timer      *time.Timer
	props      map[string]any

	// onResume and onSuspend are the overridable lifecycle extension
	// points. Each runs at most once per request: onResume when the
	// request's session-ID extraction resumes the Session, onSuspend after
	// the request's response is finalized.
	onResume  func(*Session) error
	onSuspend func(*Session)
}

// An OptFn is a functional option configuring a Session when constructing a new one.
type OptFn func(*Session)

// WithExpiry overrides the Registry's default expiry for this Session.
func WithExpiry(d time.Duration) OptFn {
	return func(s *Session) { s.expiry = d }
}

// WithOnResume sets the hook run when the Session is resumed for a request.
// An error from the hook refuses the resume and terminates the Session.
func WithOnResume(fn func(*Session) error) OptFn {
	return func(s *Session) { s.onResume = fn }
}

// WithOnSuspend sets the hook run after a request the Session was active
// for finalizes its response.
func WithOnSuspend(fn func(*Session)) OptFn {
	return func(s *Session) { s.onSuspend = fn }
}

// New constructs a Session owned by reg, assigns it an opaque unique ID,
// registers it, and starts its expiry timer.
func New(reg *Registry, opts ...OptFn) (*Session, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: session requires a registry", relay.ErrBadConfig)
	}

	s := &Session{
		id:        uuid.NewString(),
		createdAt: time.Now(),
		reg:       reg,
		expiry:    reg.defaultExpiry,
		props:     make(map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.expiry <= 0 {
		return nil, fmt.Errorf("%w: session expiry must be positive", relay.ErrBadConfig)
	}

	reg.add(s)
	s.timer = time.AfterFunc(s.expiry, s.expire)
	return s, nil
}

func (s *Session) ID() string           { return s.id }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) Expiry() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiry
}

// Active reports whether the Session can still be resumed.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.terminated
}

// Get retrieves the property stored under key, nil when absent.
func (s *Session) Get(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.props[key]
}

// Set stores val under key.
func (s *Session) Set(key string, val any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props[key] = val
}

// Delete removes the property stored under key.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.props, key)
}

// Terminate irreversibly ends the Session, cancelling its expiry timer and
// removing it from its Registry. Terminating an already terminated Session
// is a no-op.
func (s *Session) Terminate(reason string) {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return
	}
	s.terminated = true
	s.timer.Stop()
	s.mu.Unlock()

	s.reg.remove(s, reason)
}

// Suspend runs the Session's suspend hook. Dispatch calls it exactly once
// per request, after response finalization.
func (s *Session) Suspend() {
	if s.onSuspend != nil {
		s.onSuspend(s)
	}
}

// resume attempts the Active→Active transition: run the resume hook, then
// atomically cancel-and-replace the expiry timer. A terminated Session
// refuses with an error rather than panicking; a resume-hook error refuses
// the resume and the caller terminates the Session.
func (s *Session) resume() error {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return fmt.Errorf("%w: session %s is terminated", relay.ErrNotExist, s.id)
	}
	hook := s.onResume
	s.mu.Unlock()

	// The hook runs unlocked so it may touch the Session's properties.
	if hook != nil {
		if err := hook(s); err != nil {
			return fmt.Errorf("resume hook refused: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		// The expiry timer fired while the hook ran.
		return fmt.Errorf("%w: session %s is terminated", relay.ErrNotExist, s.id)
	}
	s.timer.Stop()
	s.timer.Reset(s.expiry)
	return nil
}

// expire is the timer-fire path: unconditional termination, no resume attempt.
func (s *Session) expire() {
	s.Terminate("expired")
}

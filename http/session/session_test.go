package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xy-planning-network/relay/http/session"
	"github.com/xy-planning-network/relay/logger"
)

// tick is long enough to avoid scheduler flake while keeping tests quick.
const tick = 50 * time.Millisecond

func TestNewRequiresRegistry(t *testing.T) {
	// Act
	_, err := session.New(nil)

	// Assert
	require.Error(t, err)
}

func TestSessionProperties(t *testing.T) {
	// Arrange
	reg := session.NewRegistry(session.WithLogger(newStubLogger()))
	s, err := session.New(reg)
	require.NoError(t, err)
	defer s.Terminate("test over")

	// Act
	s.Set("user", uint(42))

	// Assert
	require.Equal(t, uint(42), s.Get("user"))
	require.Nil(t, s.Get("absent"))

	// Act
	s.Delete("user")

	// Assert
	require.Nil(t, s.Get("user"))
}

func TestSessionExpires(t *testing.T) {
	// Arrange
	reg := session.NewRegistry(session.WithLogger(newStubLogger()))
	s, err := session.New(reg, session.WithExpiry(tick))
	require.NoError(t, err)
	require.Equal(t, 1, reg.Len())

	// Act: wait past the expiry tick without resuming
	time.Sleep(3 * tick)

	// Assert
	require.False(t, s.Active())
	require.Equal(t, 0, reg.Len())

	_, ok := reg.Resume(s.ID())
	require.False(t, ok)
}

func TestResumeResetsExpiryTimer(t *testing.T) {
	// Arrange
	reg := session.NewRegistry(session.WithLogger(newStubLogger()))
	s, err := session.New(reg, session.WithExpiry(4*tick))
	require.NoError(t, err)
	defer s.Terminate("test over")

	// Act: keep resuming well past the original deadline
	for i := 0; i < 4; i++ {
		time.Sleep(2 * tick)
		_, ok := reg.Resume(s.ID())
		require.True(t, ok)
	}

	// Assert: 8 ticks elapsed against a 4-tick expiry, yet still active
	require.True(t, s.Active())
}

func TestTerminateIsAbsorbing(t *testing.T) {
	// Arrange
	reg := session.NewRegistry(session.WithLogger(newStubLogger()))
	s, err := session.New(reg)
	require.NoError(t, err)

	// Act
	s.Terminate("logout")
	s.Terminate("again")

	// Assert
	require.False(t, s.Active())
	require.Equal(t, 0, reg.Len())

	_, ok := reg.Resume(s.ID())
	require.False(t, ok, "a terminated session must refuse resume, not raise")
}

func TestResumeHookRefusalTerminates(t *testing.T) {
	// Arrange
	reg := session.NewRegistry(session.WithLogger(newStubLogger()))
	s, err := session.New(reg, session.WithOnResume(func(*session.Session) error {
		return errors.New("account locked")
	}))
	require.NoError(t, err)

	// Act
	_, ok := reg.Resume(s.ID())

	// Assert
	require.False(t, ok)
	require.False(t, s.Active(), "a session refusing resume must be terminated, not left dangling")
	require.Equal(t, 0, reg.Len())
}

func TestResumeRunsHook(t *testing.T) {
	// Arrange
	resumed := 0
	reg := session.NewRegistry(session.WithLogger(newStubLogger()))
	s, err := session.New(reg, session.WithOnResume(func(*session.Session) error {
		resumed++
		return nil
	}))
	require.NoError(t, err)
	defer s.Terminate("test over")

	// Act
	_, ok := reg.Resume(s.ID())

	// Assert
	require.True(t, ok)
	require.Equal(t, 1, resumed)
}

func TestSuspendRunsHook(t *testing.T) {
	// Arrange
	suspended := 0
	reg := session.NewRegistry(session.WithLogger(newStubLogger()))
	s, err := session.New(reg, session.WithOnSuspend(func(*session.Session) {
		suspended++
	}))
	require.NoError(t, err)
	defer s.Terminate("test over")

	// Act
	s.Suspend()

	// Assert
	require.Equal(t, 1, suspended)
}

func TestRegistryMirror(t *testing.T) {
	// Arrange
	m := &stubMirror{}
	reg := session.NewRegistry(session.WithLogger(newStubLogger()), session.WithMirror(m))

	// Act
	s, err := session.New(reg)
	require.NoError(t, err)
	_, ok := reg.Resume(s.ID())
	require.True(t, ok)
	s.Terminate("logout")

	// Assert
	require.Equal(t, []string{"put " + s.ID(), "refresh " + s.ID(), "drop " + s.ID()}, m.calls())
}

func TestConcurrentResumeAndTerminate(t *testing.T) {
	// Arrange
	reg := session.NewRegistry(session.WithLogger(newStubLogger()))
	s, err := session.New(reg, session.WithExpiry(time.Hour))
	require.NoError(t, err)

	// Act: hammer the registry from both sides
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.Resume(s.ID())
		}()
		go func() {
			defer wg.Done()
			s.Terminate("race")
		}()
	}
	wg.Wait()

	// Assert
	require.False(t, s.Active())
	require.Equal(t, 0, reg.Len())
}

// stubLogger records messages by level so tests can assert on them.
type stubLogger struct {
	mu   sync.Mutex
	msgs map[logger.LogLevel][]string
}

func newStubLogger() *stubLogger {
	return &stubLogger{msgs: make(map[logger.LogLevel][]string)}
}

func (l *stubLogger) record(ll logger.LogLevel, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs[ll] = append(l.msgs[ll], msg)
}

func (l *stubLogger) logged(ll logger.LogLevel) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.msgs[ll]
}

func (l *stubLogger) Debug(msg string, _ *logger.LogContext) { l.record(logger.LogLevelDebug, msg) }
func (l *stubLogger) Info(msg string, _ *logger.LogContext)  { l.record(logger.LogLevelInfo, msg) }
func (l *stubLogger) Warn(msg string, _ *logger.LogContext)  { l.record(logger.LogLevelWarn, msg) }
func (l *stubLogger) Error(msg string, _ *logger.LogContext) { l.record(logger.LogLevelError, msg) }
func (l *stubLogger) Fatal(msg string, _ *logger.LogContext) { l.record(logger.LogLevelFatal, msg) }
func (l *stubLogger) LogLevel() logger.LogLevel              { return logger.LogLevelDebug }

// stubMirror records lifecycle calls in order.
type stubMirror struct {
	mu  sync.Mutex
	ops []string
}

func (m *stubMirror) record(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
	return nil
}

func (m *stubMirror) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops
}

func (m *stubMirror) Put(_ context.Context, id string, _ time.Duration) error {
	return m.record("put " + id)
}

func (m *stubMirror) Refresh(_ context.Context, id string, _ time.Duration) error {
	return m.record("refresh " + id)
}

func (m *stubMirror) Drop(_ context.Context, id string) error {
	return m.record("drop " + id)
}

package session_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xy-planning-network/relay/http/reqres"
	"github.com/xy-planning-network/relay/http/session"
	"github.com/xy-planning-network/relay/logger"
)

const hexKey = "6368616e676520746869732070617373776f726420746f206120736563726574" // 32 bytes

func newExtractor(t *testing.T) (session.Extractor, *session.Registry, *stubLogger) {
	t.Helper()
	log := newStubLogger()
	reg := session.NewRegistry(session.WithLogger(log))
	return session.Extractor{
		CookieName: session.DefaultCookieName,
		ParamName:  session.DefaultParamName,
		Registry:   reg,
		Log:        log,
	}, reg, log
}

func TestExtractNoCandidates(t *testing.T) {
	// Arrange
	e, _, _ := newExtractor(t)
	rq := reqres.NewSimulated("GET", "/home")

	// Act + Assert
	require.Nil(t, e.Extract(rq))
}

func TestExtractAgreeingSources(t *testing.T) {
	// Arrange: the same ID in cookie, query and POST resumes normally
	e, reg, _ := newExtractor(t)
	s, err := session.New(reg)
	require.NoError(t, err)
	defer s.Terminate("test over")

	rq := reqres.NewSimulated("POST", "/home",
		reqres.WithCookie(session.DefaultCookieName, s.ID()),
		reqres.WithQuery(session.DefaultParamName, s.ID()),
		reqres.WithPost(session.DefaultParamName, s.ID()),
	)

	// Act
	actual := e.Extract(rq)

	// Assert
	require.NotNil(t, actual)
	require.Equal(t, s.ID(), actual.ID())

	stashed, ok := session.FromRequest(rq)
	require.True(t, ok)
	require.Equal(t, s, stashed)
}

func TestExtractScrubsParams(t *testing.T) {
	// Arrange
	e, reg, _ := newExtractor(t)
	s, err := session.New(reg)
	require.NoError(t, err)
	defer s.Terminate("test over")

	rq := reqres.NewSimulated("POST", "/home",
		reqres.WithQuery(session.DefaultParamName, s.ID()),
		reqres.WithQuery("q", "term"),
		reqres.WithPost(session.DefaultParamName, s.ID()),
	)

	// Act
	e.Extract(rq)

	// Assert: handlers never see the session parameter
	require.False(t, rq.Query().Has(session.DefaultParamName))
	require.False(t, rq.Post().Has(session.DefaultParamName))
	require.True(t, rq.Query().Has("q"))
}

func TestExtractDistinctCandidates(t *testing.T) {
	// Arrange: two different IDs must resume nothing, loudly
	e, reg, log := newExtractor(t)
	a, err := session.New(reg)
	require.NoError(t, err)
	defer a.Terminate("test over")
	b, err := session.New(reg)
	require.NoError(t, err)
	defer b.Terminate("test over")

	rq := reqres.NewSimulated("GET", "/home",
		reqres.WithCookie(session.DefaultCookieName, a.ID()),
		reqres.WithQuery(session.DefaultParamName, b.ID()),
	)

	// Act
	actual := e.Extract(rq)

	// Assert
	require.Nil(t, actual)
	require.True(t, a.Active(), "disagreement must not terminate either session")
	require.True(t, b.Active())

	errors := log.logged(logger.LogLevelError)
	require.Len(t, errors, 1)
	require.Contains(t, errors[0], "multiple distinct session IDs")
}

func TestExtractUnknownID(t *testing.T) {
	// Arrange
	e, _, _ := newExtractor(t)
	rq := reqres.NewSimulated("GET", "/home",
		reqres.WithCookie(session.DefaultCookieName, "stale-or-forged"),
	)

	// Act + Assert
	require.Nil(t, e.Extract(rq))
}

func TestExtractSignedCookie(t *testing.T) {
	// Arrange
	e, reg, log := newExtractor(t)
	codec, err := session.NewCookieCodec(session.DefaultCookieName, hexKey)
	require.NoError(t, err)
	e.Codec = codec

	s, err := session.New(reg)
	require.NoError(t, err)
	defer s.Terminate("test over")

	signed, err := codec.Encode(s.ID())
	require.NoError(t, err)

	// Act
	actual := e.Extract(reqres.NewSimulated("GET", "/home",
		reqres.WithCookie(session.DefaultCookieName, signed),
	))

	// Assert
	require.NotNil(t, actual)
	require.Equal(t, s.ID(), actual.ID())

	// Act: a tampered value fails verification and is discarded
	actual = e.Extract(reqres.NewSimulated("GET", "/home",
		reqres.WithCookie(session.DefaultCookieName, signed+"x"),
	))

	// Assert
	require.Nil(t, actual)
	require.NotEmpty(t, log.logged(logger.LogLevelWarn))
}

func TestNewCookieCodec(t *testing.T) {
	// Act + Assert
	_, err := session.NewCookieCodec("c", "not hex")
	require.Error(t, err)

	_, err = session.NewCookieCodec("c", "abcd")
	require.Error(t, err, "key must be 32 or 64 bytes")

	_, err = session.NewCookieCodec("c", strings.Repeat("ab", 32))
	require.NoError(t, err)
}

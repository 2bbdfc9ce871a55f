package baton_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xy-planning-network/relay"
	"github.com/xy-planning-network/relay/baton"
	"github.com/xy-planning-network/relay/http/pipeline"
	"github.com/xy-planning-network/relay/http/reqres"
)

// authKey is 32 bytes of hex for signing session cookies in tests.
const authKey = "4c6f72656d20697073756d20646f6c6f722073697420616d65742c20636f6e73"

func TestNewConfigDefaults(t *testing.T) {
	// Act
	cfg := baton.NewConfig()

	// Assert
	require.Equal(t, baton.DefaultPort, cfg.Port)
	require.Equal(t, baton.DefaultServerReadTimeout, cfg.ReadTimeout)
	require.Equal(t, baton.DefaultRateLimit, cfg.RateLimit)
	require.Equal(t, baton.DefaultRateBurst, cfg.RateBurst)
	require.Empty(t, cfg.RedisURL)
}

func TestNewConfigReadsEnv(t *testing.T) {
	// Arrange
	t.Setenv("PORT", ":8080")
	t.Setenv("ENVIRONMENT", "STAGING")
	t.Setenv("SERVER_READ_TIMEOUT", "10s")
	t.Setenv("RATE_LIMIT_PER_SECOND", "50")

	// Act
	cfg := baton.NewConfig()

	// Assert
	require.Equal(t, ":8080", cfg.Port)
	require.Equal(t, relay.Staging, cfg.Env)
	require.Equal(t, 10*time.Second, cfg.ReadTimeout)
	require.Equal(t, 50, cfg.RateLimit)
}

func TestNewRequiresAuthKeyInProduction(t *testing.T) {
	// Arrange
	cfg := baton.NewConfig()
	cfg.Env = relay.Production
	cfg.SessionAuthKey = ""

	// Act
	_, err := baton.New(baton.WithConfig(cfg))

	// Assert
	require.ErrorIs(t, err, relay.ErrBadConfig)
}

func TestNewRejectsBadAuthKey(t *testing.T) {
	// Arrange
	cfg := baton.NewConfig()
	cfg.SessionAuthKey = "not hex"

	// Act
	_, err := baton.New(baton.WithConfig(cfg))

	// Assert
	require.ErrorIs(t, err, relay.ErrBadConfig)
}

func TestNewRejectsBadRedisURL(t *testing.T) {
	// Arrange
	cfg := baton.NewConfig()
	cfg.RedisURL = "://nope"

	// Act
	_, err := baton.New(baton.WithConfig(cfg))

	// Assert
	require.ErrorIs(t, err, relay.ErrBadConfig)
}

func TestHandlerDispatches(t *testing.T) {
	// Arrange
	cfg := baton.NewConfig()
	cfg.SessionAuthKey = authKey
	b, err := baton.New(baton.WithConfig(cfg))
	require.NoError(t, err)
	require.NoError(t, b.Server().Get("~/ping", func(rq reqres.Request) pipeline.Result {
		return pipeline.Respond(reqres.Text(http.StatusOK, "pong"))
	}))
	rec := httptest.NewRecorder()

	// Act
	b.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "pong", rec.Body.String())
}

func TestHandlerRateLimits(t *testing.T) {
	// Arrange: a limiter with no burst headroom trips on the second hit.
	cfg := baton.NewConfig()
	cfg.SessionAuthKey = authKey
	cfg.RateLimit = 1
	cfg.RateBurst = 1
	b, err := baton.New(baton.WithConfig(cfg))
	require.NoError(t, err)
	require.NoError(t, b.Server().Get("~/ping", func(rq reqres.Request) pipeline.Result {
		return pipeline.Respond(reqres.Text(http.StatusOK, "pong"))
	}))

	hit := func() int {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.RemoteAddr = "203.0.113.9:4321"
		b.Handler().ServeHTTP(rec, r)
		return rec.Code
	}

	// Act + Assert
	require.Equal(t, http.StatusOK, hit())
	require.Equal(t, http.StatusTooManyRequests, hit())
}

func TestHandlerIsolatesRateLimitByIP(t *testing.T) {
	// Arrange
	cfg := baton.NewConfig()
	cfg.SessionAuthKey = authKey
	cfg.RateLimit = 1
	cfg.RateBurst = 1
	b, err := baton.New(baton.WithConfig(cfg))
	require.NoError(t, err)
	require.NoError(t, b.Server().Get("~/ping", func(rq reqres.Request) pipeline.Result {
		return pipeline.Respond(reqres.Text(http.StatusOK, "pong"))
	}))

	hit := func(addr string) int {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.RemoteAddr = addr
		b.Handler().ServeHTTP(rec, r)
		return rec.Code
	}

	// Act + Assert: exhausting one client leaves another untouched.
	require.Equal(t, http.StatusOK, hit("203.0.113.9:4321"))
	require.Equal(t, http.StatusTooManyRequests, hit("203.0.113.9:4321"))
	require.Equal(t, http.StatusOK, hit("198.51.100.7:4321"))
}

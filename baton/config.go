package baton

import (
	"net/url"
	"time"

	"github.com/xy-planning-network/relay"
	"github.com/xy-planning-network/relay/http/reqres"
	"github.com/xy-planning-network/relay/http/session"
)

const (
	baseURLEnvVar = "BASE_URL"
	hostEnvVar    = "HOST"
	portEnvVar    = "PORT"

	environmentEnvVar = "ENVIRONMENT"

	serverReadTimeoutEnvVar  = "SERVER_READ_TIMEOUT"
	serverIdleTimeoutEnvVar  = "SERVER_IDLE_TIMEOUT"
	serverWriteTimeoutEnvVar = "SERVER_WRITE_TIMEOUT"

	maxURLSizeEnvVar  = "MAX_URL_SIZE"
	maxBodySizeEnvVar = "MAX_BODY_SIZE"

	sessionAuthKeyEnvVar = "SESSION_AUTH_KEY"
	sessionExpiryEnvVar  = "SESSION_EXPIRY"
	redisURLEnvVar       = "REDIS_URL"

	rateLimitEnvVar = "RATE_LIMIT_PER_SECOND"
	rateBurstEnvVar = "RATE_LIMIT_BURST"

	// Web server defaults
	DefaultHost               = "localhost"
	DefaultPort               = ":3000"
	DefaultServerReadTimeout  = 5 * time.Second
	DefaultServerIdleTimeout  = 120 * time.Second
	DefaultServerWriteTimeout = 5 * time.Second

	// Rate limit defaults, per client IP.
	DefaultRateLimit = 5
	DefaultRateBurst = 20
)

var defaultBaseURL = "http://" + DefaultHost + DefaultPort

// A Config carries everything baton needs to assemble an application.
// Zero-value fields are filled with package defaults by [NewConfig].
type Config struct {
	Env     relay.Environment
	BaseURL *url.URL
	Port    string

	ReadTimeout  time.Duration
	IdleTimeout  time.Duration
	WriteTimeout time.Duration

	Limits reqres.Limits

	// SessionAuthKey, when non-empty, is the hex-encoded HMAC key session
	// cookies are signed with. Required outside development and testing.
	SessionAuthKey string
	SessionExpiry  time.Duration

	// RedisURL, when non-empty, enables the session mirror.
	RedisURL string

	// RateLimit and RateBurst bound per-IP request rates; a zero RateLimit
	// disables limiting.
	RateLimit int
	RateBurst int
}

// NewConfig reads a Config from the environment. Confer the *EnvVar
// constants for the variables consulted.
func NewConfig() Config {
	return Config{
		Env:     relay.EnvVarOrEnv(environmentEnvVar, relay.Development),
		BaseURL: relay.EnvVarOrURL(baseURLEnvVar, defaultBaseURL),
		Port:    relay.EnvVarOrString(portEnvVar, DefaultPort),

		ReadTimeout:  relay.EnvVarOrDuration(serverReadTimeoutEnvVar, DefaultServerReadTimeout),
		IdleTimeout:  relay.EnvVarOrDuration(serverIdleTimeoutEnvVar, DefaultServerIdleTimeout),
		WriteTimeout: relay.EnvVarOrDuration(serverWriteTimeoutEnvVar, DefaultServerWriteTimeout),

		Limits: reqres.Limits{
			MaxURLSize:  relay.EnvVarOrInt(maxURLSizeEnvVar, reqres.DefaultMaxURLSize),
			MaxBodySize: int64(relay.EnvVarOrInt(maxBodySizeEnvVar, int(reqres.DefaultMaxBodySize))),
		},

		SessionAuthKey: relay.EnvVarOrString(sessionAuthKeyEnvVar, ""),
		SessionExpiry:  relay.EnvVarOrDuration(sessionExpiryEnvVar, session.DefaultExpiry),
		RedisURL:       relay.EnvVarOrString(redisURLEnvVar, ""),

		RateLimit: relay.EnvVarOrInt(rateLimitEnvVar, DefaultRateLimit),
		RateBurst: relay.EnvVarOrInt(rateBurstEnvVar, DefaultRateBurst),
	}
}

package baton

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/handlers"
	// TODO: make the env file configurable instead of autoloading .env
	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/time/rate"

	"github.com/xy-planning-network/relay"
	"github.com/xy-planning-network/relay/http/serve"
	"github.com/xy-planning-network/relay/http/session"
	"github.com/xy-planning-network/relay/logger"
)

// A Baton holds the assembled components of a relay application and runs
// its web server.
type Baton struct {
	cfg   Config
	log   logger.Logger
	redis redis.UniversalClient
	srv   *serve.Server
	web   *http.Server
}

// New assembles a Baton from environment configuration, overridden by the
// provided options.
func New(opts ...OptFn) (*Baton, error) {
	b := &Baton{cfg: NewConfig()}
	for _, opt := range opts {
		opt(b)
	}

	if b.log == nil {
		b.log = logger.New(logger.WithEnv(string(b.cfg.Env)))
	}

	if b.srv == nil {
		srv, err := b.buildServer()
		if err != nil {
			return nil, err
		}
		b.srv = srv
	}

	if b.web == nil {
		b.web = &http.Server{
			Addr:         b.cfg.Port,
			ReadTimeout:  b.cfg.ReadTimeout,
			IdleTimeout:  b.cfg.IdleTimeout,
			WriteTimeout: b.cfg.WriteTimeout,
		}
	}
	b.web.Handler = b.middleware(b.srv)

	return b, nil
}

func (b *Baton) buildServer() (*serve.Server, error) {
	regOpts := []session.RegistryOptFn{
		session.WithLogger(b.log),
		session.WithDefaultExpiry(b.cfg.SessionExpiry),
	}

	if b.cfg.RedisURL != "" {
		ropts, err := redis.ParseURL(b.cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("%w: bad %s: %s", relay.ErrBadConfig, redisURLEnvVar, err)
		}
		b.redis = redis.NewClient(ropts)
		regOpts = append(regOpts, session.WithMirror(session.NewRedisMirror(b.redis, "")))
	}

	srvOpts := []serve.OptFn{
		serve.WithLogger(b.log),
		serve.WithEnvironment(b.cfg.Env),
		serve.WithLimits(b.cfg.Limits),
		serve.WithRegistry(session.NewRegistry(regOpts...)),
	}

	switch {
	case b.cfg.SessionAuthKey != "":
		codec, err := session.NewCookieCodec(session.DefaultCookieName, b.cfg.SessionAuthKey)
		if err != nil {
			return nil, err
		}
		srvOpts = append(srvOpts, serve.WithCookieCodec(codec))

	case b.cfg.Env.IsProduction():
		return nil, fmt.Errorf("%w: %s is required in production", relay.ErrBadConfig, sessionAuthKeyEnvVar)
	}

	return serve.New(srvOpts...), nil
}

// middleware wraps the dispatch server in the transport-level chain:
// proxy header resolution, then per-IP rate limiting, then response
// compression.
func (b *Baton) middleware(h http.Handler) http.Handler {
	wrapped := handlers.CompressHandler(h)
	if b.cfg.RateLimit > 0 {
		wrapped = rateLimit(newVisitors(rate.Limit(b.cfg.RateLimit), b.cfg.RateBurst), wrapped)
	}
	return handlers.ProxyHeaders(wrapped)
}

// Server exposes the dispatch server for registering rules and pipelines.
func (b *Baton) Server() *serve.Server { return b.srv }

// Logger exposes the application logger.
func (b *Baton) Logger() logger.Logger { return b.log }

// Config exposes the resolved configuration.
func (b *Baton) Config() Config { return b.cfg }

// Handler exposes the fully wrapped http.Handler, chiefly for tests that
// drive the middleware chain directly.
func (b *Baton) Handler() http.Handler { return b.web.Handler }

// Run begins the web server and blocks until one of these stops it:
//
// - os.Interrupt
// - syscall.SIGHUP
// - syscall.SIGINT
// - syscall.SIGQUIT
// - syscall.SIGTERM
// - (*Baton).Shutdown
func (b *Baton) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	go func() {
		s := <-ch
		b.log.Info(fmt.Sprint("received shutdown signal: ", s), nil)
		cancel()
	}()

	go func() {
		b.log.Info(fmt.Sprintf("running web server at %s", b.web.Addr), nil)
		if err := b.web.ListenAndServe(); err != http.ErrServerClosed {
			b.log.Error(fmt.Errorf("could not listen: %w", err).Error(), nil)
		}
	}()

	<-ctx.Done()
	return b.Shutdown()
}

// Shutdown gracefully stops the web server and closes the redis connection
// when one was opened.
func (b *Baton) Shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b.log.Info("shutting down web server", nil)
	if err := b.web.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("could not shutdown: %w", err)
	}

	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			b.log.Warn("could not close redis connection", &logger.LogContext{Error: err})
		}
	}

	b.log.Info("web server shutdown successfully", nil)
	return nil
}

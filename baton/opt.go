package baton

import (
	"net/http"

	"github.com/xy-planning-network/relay/http/serve"
	"github.com/xy-planning-network/relay/logger"
)

// An OptFn overrides part of the environment-derived assembly.
type OptFn func(*Baton)

// WithConfig replaces the Config read from the environment.
func WithConfig(cfg Config) OptFn {
	return func(b *Baton) { b.cfg = cfg }
}

// WithLogger supplies a logger in place of the default.
func WithLogger(l logger.Logger) OptFn {
	return func(b *Baton) { b.log = l }
}

// WithServer supplies a fully constructed dispatch server, skipping the
// registry and codec assembly New would otherwise perform.
func WithServer(srv *serve.Server) OptFn {
	return func(b *Baton) { b.srv = srv }
}

// WithWebServer supplies the *http.Server to run; its Handler is replaced
// with the middleware-wrapped dispatch server.
func WithWebServer(web *http.Server) OptFn {
	return func(b *Baton) { b.web = web }
}

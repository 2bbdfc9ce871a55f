package serve

import (
	"github.com/xy-planning-network/relay"
	"github.com/xy-planning-network/relay/http/pipeline"
	"github.com/xy-planning-network/relay/http/reqres"
	"github.com/xy-planning-network/relay/http/session"
	"github.com/xy-planning-network/relay/logger"
)

// An OptFn configures a Server under construction.
type OptFn func(*Server)

// WithLogger sets the Server's logger, shared with the pipelines and
// session registry it constructs.
func WithLogger(l logger.Logger) OptFn {
	return func(s *Server) { s.log = l }
}

// WithRegistry supplies a session registry in place of the one New would
// construct.
func WithRegistry(reg *session.Registry) OptFn {
	return func(s *Server) { s.registry = reg }
}

// WithCookieCodec signs session cookies on the way out and verifies them on
// the way in. Query and POST tokens remain unsigned.
func WithCookieCodec(c *session.CookieCodec) OptFn {
	return func(s *Server) { s.codec = c }
}

// WithSessionNames overrides where session tokens are carried: the cookie
// name and the query/POST parameter name.
func WithSessionNames(cookie, param string) OptFn {
	return func(s *Server) {
		s.sessionCookieName = cookie
		s.sessionParamName = param
	}
}

// WithBasePath mounts the Server under prefix, e.g. "/api/v2": requests
// outside the prefix answer 404, and the prefix is stripped before rules
// match.
func WithBasePath(prefix string) OptFn {
	return func(s *Server) { s.basePath = splitBasePath(prefix) }
}

// WithLimits bounds request URLs and bodies; zero fields keep the
// [reqres] package defaults.
func WithLimits(l reqres.Limits) OptFn {
	return func(s *Server) { s.limits = l }
}

// WithEnvironment fixes the deploy environment instead of reading it from
// ENVIRONMENT. Session cookies are marked Secure only in production.
func WithEnvironment(env relay.Environment) OptFn {
	return func(s *Server) { s.env = env }
}

// WithExceptionHandler sets the server-tier exception handler.
func WithExceptionHandler(h pipeline.ExceptionHandler) OptFn {
	return func(s *Server) { s.ExceptionHandler = h }
}

// WithRawHandler sets the last-resort handler invoked when the server tier
// itself fails.
func WithRawHandler(h RawExceptionHandler) OptFn {
	return func(s *Server) { s.Raw = h }
}

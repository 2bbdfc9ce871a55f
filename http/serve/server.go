// Package serve implements relay's top-level dispatch: walking pipelines
// and rules in registration order until a response is produced, funnelling
// every failure through the two-tier exception handler chain, and adapting
// the whole to net/http.
package serve

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/xy-planning-network/relay"
	"github.com/xy-planning-network/relay/http/pipeline"
	"github.com/xy-planning-network/relay/http/reqres"
	"github.com/xy-planning-network/relay/http/session"
	"github.com/xy-planning-network/relay/logger"
)

// A RawExceptionHandler is the last-resort tier: it must answer the request
// using only primitive transport facilities, never relay's response
// abstractions, since those may be what failed.
type RawExceptionHandler func(w http.ResponseWriter, r *http.Request, requestID string, err error, stack []byte)

// A Server owns an ordered list of pipelines, a session registry and the
// server-level exception handlers, and dispatches requests across them.
//
// Register rules before serving begins; Server does not guard its pipeline
// list against concurrent registration and dispatch.
type Server struct {
	pipelines []*pipeline.Pipeline
	registry  *session.Registry
	codec     *session.CookieCodec

	sessionCookieName string
	sessionParamName  string
	basePath          []string
	limits            reqres.Limits
	env               relay.Environment
	log               logger.Logger

	// ExceptionHandler is the server tier of the exception chain, offered
	// every condition a pipeline tier declines. When unset, a default
	// handler maps conditions to minimal status-coded responses.
	ExceptionHandler pipeline.ExceptionHandler

	// Raw is the last-resort tier, invoked only when the server tier
	// itself fails. Defaults to a minimal plain-text 500.
	Raw RawExceptionHandler
}

// New constructs a Server holding one default pipeline, configured by the
// provided options.
func New(opts ...OptFn) *Server {
	s := &Server{
		sessionCookieName: session.DefaultCookieName,
		sessionParamName:  session.DefaultParamName,
		env:               relay.EnvVarOrEnv("ENVIRONMENT", relay.Development),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		s.log = logger.New()
	}
	if s.registry == nil {
		s.registry = session.NewRegistry(session.WithLogger(s.log))
	}
	if s.Raw == nil {
		s.Raw = rawFallback
	}

	s.pipelines = append(s.pipelines, pipeline.New(pipeline.DefaultName, pipeline.WithLogger(s.log)))
	return s
}

// Default returns the Server's default pipeline, the one direct
// registrations land in.
func (s *Server) Default() *pipeline.Pipeline { return s.pipelines[0] }

// NewPipeline appends a pipeline with the given name and returns it.
// Requests unmatched by earlier pipelines fall through to it in order.
func (s *Server) NewPipeline(name string, opts ...pipeline.OptFn) *pipeline.Pipeline {
	opts = append([]pipeline.OptFn{pipeline.WithLogger(s.log)}, opts...)
	pl := pipeline.New(name, opts...)
	s.pipelines = append(s.pipelines, pl)
	return pl
}

// Pipelines returns the Server's pipelines in dispatch order.
func (s *Server) Pipelines() []*pipeline.Pipeline { return s.pipelines }

// Registry returns the session registry this Server owns; application code
// creates sessions against it.
func (s *Server) Registry() *session.Registry { return s.registry }

// Register registers a rule on the default pipeline; see
// [pipeline.Pipeline.Register].
func (s *Server) Register(method, raw string, h pipeline.Handler) error {
	return s.Default().Register(method, raw, h)
}

// Get registers a GET rule on the default pipeline.
func (s *Server) Get(raw string, h pipeline.Handler) error { return s.Default().Get(raw, h) }

// Post registers a POST rule on the default pipeline.
func (s *Server) Post(raw string, h pipeline.Handler) error { return s.Default().Post(raw, h) }

// Put registers a PUT rule on the default pipeline.
func (s *Server) Put(raw string, h pipeline.Handler) error { return s.Default().Put(raw, h) }

// Patch registers a PATCH rule on the default pipeline.
func (s *Server) Patch(raw string, h pipeline.Handler) error { return s.Default().Patch(raw, h) }

// Delete registers a DELETE rule on the default pipeline.
func (s *Server) Delete(raw string, h pipeline.Handler) error { return s.Default().Delete(raw, h) }

// extractor assembles the session extraction config for one request.
func (s *Server) extractor() session.Extractor {
	return session.Extractor{
		CookieName: s.sessionCookieName,
		ParamName:  s.sessionParamName,
		Registry:   s.registry,
		Codec:      s.codec,
		Log:        s.log,
	}
}

// Dispatch runs the full per-request state machine: session resumption,
// the pipeline walk, exception routing, response finalization and the
// session suspend hook.
//
// Dispatch returns a non-nil Response in every case but one: when the
// server-tier exception handler itself fails, the chained error returns
// for the caller to hand to the raw tier.
func (s *Server) Dispatch(rq reqres.Request) (reqres.Response, error) {
	return s.respond(rq, nil)
}

// respond is Dispatch with an optional pre-dispatch condition, e.g. a
// request construction failure, that skips the walk and goes straight to
// exception routing.
func (s *Server) respond(rq reqres.Request, preErr error) (reqres.Response, error) {
	rq.SetValue(relay.RequestIDKey, rq.ID())
	rq.SetValue(relay.RemoteAddrKey, rq.RemoteAddr())

	var sess *session.Session
	var resp reqres.Response
	var err error

	switch {
	case preErr != nil:
		// No pipeline was being processed; the server tier is first.
		resp, err = s.routeException(nil, rq, preErr)

	case rq.URLSize() > s.maxURLSize():
		tooLong := &reqres.PathTooLongError{Size: rq.URLSize(), Max: s.maxURLSize()}
		resp, err = s.routeException(nil, rq, tooLong)

	default:
		sess = s.extractor().Extract(rq)
		resp, err = s.walk(rq)
	}

	if err != nil {
		return nil, err
	}

	// A handler may have established a session mid-request (a login, say);
	// the request stash is authoritative over what extraction found.
	if stashed, ok := session.FromRequest(rq); ok {
		sess = stashed
	}

	s.settle(rq, sess, resp)
	return resp, nil
}

func splitBasePath(prefix string) []string {
	var segs []string
	for _, seg := range strings.Split(strings.Trim(prefix, "/"), "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

// underBasePath strips the server's mount prefix from the request's match
// segments, reporting false when the request lives outside it.
func (s *Server) underBasePath(segs []string) ([]string, bool) {
	if len(s.basePath) == 0 {
		return segs, true
	}
	if len(segs) < len(s.basePath) || !slices.Equal(segs[:len(s.basePath)], s.basePath) {
		return nil, false
	}

	rest := segs[len(s.basePath):]
	if len(rest) == 0 {
		// The bare prefix dispatches as the root path.
		rest = []string{""}
	}
	return rest, true
}

func (s *Server) maxURLSize() int {
	if s.limits.MaxURLSize <= 0 {
		return reqres.DefaultMaxURLSize
	}
	return s.limits.MaxURLSize
}

// settle issues the session cookie, finalizes the response and runs the
// session suspend hook, in that order, regardless of which path produced
// the response.
func (s *Server) settle(rq reqres.Request, sess *session.Session, resp reqres.Response) {
	if sess != nil && sess.Active() {
		if c, err := s.sessionCookie(sess); err == nil {
			resp.AddCookie(c)
		} else {
			s.log.Warn("could not issue session cookie", &logger.LogContext{Error: err, RequestID: rq.ID(), SessionID: sess.ID()})
		}
	}

	resp.Finalize()

	if sess != nil {
		sess.Suspend()
	}
}

func (s *Server) sessionCookie(sess *session.Session) (*http.Cookie, error) {
	val := sess.ID()
	if s.codec != nil {
		encoded, err := s.codec.Encode(val)
		if err != nil {
			return nil, err
		}
		val = encoded
	}

	return &http.Cookie{
		Name:     s.sessionCookieName,
		Value:    val,
		Path:     "/",
		MaxAge:   int(sess.Expiry().Seconds()),
		HttpOnly: true,
		Secure:   s.env.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// walk tries every pipeline in order and, within each, every rule for the
// request's method in registration order. The first rule that responds
// wins; passes fall through; a failure routes to the exception chain
// attributed to the pipeline being processed.
func (s *Server) walk(rq reqres.Request) (reqres.Response, error) {
	methodSupported := false
	matched := false
	staticMiss := false

	segs, ok := s.underBasePath(rq.Segments())
	if !ok {
		nf := &NotFoundError{Method: rq.Method(), Path: rq.Path(), Reason: ReasonPathUnsupported}
		return s.routeException(nil, rq, nf)
	}

	for _, pl := range s.pipelines {
		matches, supported := pl.Match(rq.Method(), segs)
		if supported {
			methodSupported = true
		}

		for _, m := range matches {
			rq.SetPathParams(m.Params)

			res := s.invoke(m.Rule.Handler(), rq)
			switch {
			case res.Responded():
				return res.Response(), nil

			case res.Failed():
				return s.routeException(pl, rq, res.Err())

			case res.StaticMiss():
				matched, staticMiss = true, true

			default:
				matched = true
			}
		}
	}

	reason := ReasonPathUnsupported
	switch {
	case !methodSupported:
		reason = ReasonMethodUnsupported
	case staticMiss:
		reason = ReasonStaticMiss
	case matched:
		reason = ReasonNothingProduced
	}

	nf := &NotFoundError{Method: rq.Method(), Path: rq.Path(), Reason: reason}
	return s.routeException(nil, rq, nf)
}

// invoke runs a handler with panic capture, then drains the request's
// async tasks so a fire-and-forget failure cannot escape the dispatch
// boundary uncaught.
func (s *Server) invoke(h pipeline.Handler, rq reqres.Request) pipeline.Result {
	res := callRecovered(func() pipeline.Result { return h(rq) })

	if err := rq.Wait(); err != nil {
		if res.Responded() {
			// The response stands; the failure is still captured and reported.
			s.log.Error("async task failed after a response was produced", &logger.LogContext{Error: err, RequestID: rq.ID()})
			return res
		}
		return pipeline.Fail(err)
	}

	return res
}

func callRecovered(fn func() pipeline.Result) (res pipeline.Result) {
	defer func() {
		if v := recover(); v != nil {
			res = pipeline.Fail(&HandlerPanicError{Value: v, Stack: debug.Stack()})
		}
	}()
	return fn()
}

// routeException offers err to the exception tiers in order: the pipeline
// being processed (when there is one and it has a handler), then the
// server. A tier that declines, by passing, failing or panicking, defers
// to the next with the original condition intact.
//
// A non-nil error return means the server tier itself failed and carries
// the chained *ExceptionHandlerError for the raw tier.
func (s *Server) routeException(pl *pipeline.Pipeline, rq reqres.Request, err error) (reqres.Response, error) {
	s.log.Debug("routing exception: "+err.Error(), &logger.LogContext{Error: err, RequestID: rq.ID()})

	if pl != nil && pl.ExceptionHandler != nil {
		res := callRecovered(func() pipeline.Result { return pl.ExceptionHandler(rq, err) })
		if res.Responded() {
			return res.Response(), nil
		}
		if res.Failed() {
			s.log.Error(
				fmt.Sprintf("exception handler of pipeline %q failed, deferring to server tier", pl.Name()),
				&logger.LogContext{Error: res.Err(), RequestID: rq.ID()},
			)
		}
	}

	handler := s.ExceptionHandler
	if handler == nil {
		handler = s.defaultExceptionHandler
	}

	res := callRecovered(func() pipeline.Result { return handler(rq, err) })
	if res.Responded() {
		return res.Response(), nil
	}

	handlerErr := res.Err()
	if handlerErr == nil {
		handlerErr = fmt.Errorf("%w: server exception handler produced no response", relay.ErrMissingData)
	}
	return nil, &ExceptionHandlerError{Original: err, HandlerErr: handlerErr}
}

// defaultExceptionHandler maps the error taxonomy to minimal status-coded
// responses, logging anything unexpected.
func (s *Server) defaultExceptionHandler(rq reqres.Request, err error) pipeline.Result {
	switch e := err.(type) {
	case *NotFoundError:
		return pipeline.Respond(reqres.Text(e.Reason.Status(), http.StatusText(e.Reason.Status())))

	case *reqres.PathTooLongError:
		return pipeline.Respond(reqres.Text(http.StatusRequestURITooLong, http.StatusText(http.StatusRequestURITooLong)))

	case *reqres.BodyTooLongError:
		return pipeline.Respond(reqres.Text(http.StatusRequestEntityTooLarge, http.StatusText(http.StatusRequestEntityTooLarge)))

	case *reqres.MalformedPathError:
		return pipeline.Respond(reqres.Text(http.StatusBadRequest, http.StatusText(http.StatusBadRequest)))

	case *ProxyError:
		s.log.Error("upstream proxy failure", &logger.LogContext{Error: e, RequestID: rq.ID()})
		return pipeline.Respond(reqres.Text(http.StatusBadGateway, http.StatusText(http.StatusBadGateway)))

	default:
		s.log.Error("unhandled condition reached the server exception handler", &logger.LogContext{Error: err, RequestID: rq.ID()})
		return pipeline.Respond(reqres.Text(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)))
	}
}

// ServeHTTP adapts the Server to net/http, guaranteeing exactly one
// response per request even under cascading handler failures.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rq, buildErr := reqres.NewHTTP(r, s.limits)

	resp, err := s.respond(rq, buildErr)
	if err != nil {
		var stack []byte
		if pe, ok := err.(*ExceptionHandlerError); ok {
			if hp, ok := pe.Original.(*HandlerPanicError); ok {
				stack = hp.Stack
			}
		}
		s.log.Error("dispatch exhausted its exception tiers", &logger.LogContext{Error: err, Request: r, RequestID: rq.ID()})
		s.Raw(w, r, rq.ID(), err, stack)
		return
	}

	if err := reqres.Write(w, resp); err != nil {
		s.log.Warn("writing response failed", &logger.LogContext{Error: err, RequestID: rq.ID()})
	}
}

// rawFallback answers with the bare minimum: primitive writes only, no
// relay abstractions, nothing that can fail the way the tiers above did.
func rawFallback(w http.ResponseWriter, _ *http.Request, requestID string, _ error, _ []byte) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, "request %s could not be served\n", requestID)
}

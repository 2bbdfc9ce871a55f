package reqres

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/xy-planning-network/relay/http/params"
)

// Simulated implements Request entirely in memory so dispatch, session
// extraction and handlers can be exercised without a transport.
type Simulated struct {
	core
	headers http.Header
	cookies map[string]string
	body    string
	ctx     context.Context
}

var _ Request = &Simulated{}

// A SimOptFn configures a Simulated request under construction.
type SimOptFn func(*Simulated)

// WithQuery adds query parameter values,
// appending to any stored under the same key.
func WithQuery(key string, vals ...string) SimOptFn {
	return func(s *Simulated) { s.query = addValues(s.query, key, vals) }
}

// WithPost adds POST parameter values,
// appending to any stored under the same key.
func WithPost(key string, vals ...string) SimOptFn {
	return func(s *Simulated) { s.post = addValues(s.post, key, vals) }
}

// WithCookie sets a cookie on the Simulated request.
func WithCookie(name, val string) SimOptFn {
	return func(s *Simulated) { s.cookies[name] = val }
}

// WithHeader sets a header on the Simulated request.
func WithHeader(name, val string) SimOptFn {
	return func(s *Simulated) { s.headers.Set(name, val) }
}

// WithBody sets the body of the Simulated request.
func WithBody(body string) SimOptFn {
	return func(s *Simulated) { s.body = body }
}

// WithRemoteAddr sets the remote address of the Simulated request.
func WithRemoteAddr(addr string) SimOptFn {
	return func(s *Simulated) { s.remote = addr }
}

// NewSimulated fabricates a Request for the method and path,
// configured by the provided options.
func NewSimulated(method, path string, opts ...SimOptFn) *Simulated {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	s := &Simulated{
		core: core{
			id:       uuid.NewString(),
			method:   method,
			path:     path,
			segments: splitPath(path),
			urlSize:  len(path),
			remote:   "127.0.0.1:0",
			query:    params.Empty(),
			post:     params.Empty(),
		},
		headers: make(http.Header),
		cookies: make(map[string]string),
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulated) Header(name string) string { return s.headers.Get(name) }
func (s *Simulated) Headers() http.Header      { return s.headers }

func (s *Simulated) Cookie(name string) (string, bool) {
	v, ok := s.cookies[name]
	return v, ok
}

func (s *Simulated) Body() io.Reader          { return strings.NewReader(s.body) }
func (s *Simulated) Context() context.Context { return s.ctx }

// addValues rebuilds a Params with vals appended under key; Params are
// immutable so construction options work on copies.
func addValues(p *params.Params, key string, vals []string) *params.Params {
	m := make(map[string][]string)
	for _, k := range p.Keys() {
		m[k] = p.Values(k, params.Raw)
	}
	m[key] = append(m[key], vals...)
	return params.New(m)
}

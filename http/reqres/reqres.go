package reqres

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/xy-planning-network/relay/http/params"
	"golang.org/x/sync/errgroup"
)

// A Request is the read side of one inbound HTTP request as the dispatch
// core sees it.
//
// Two implementations exist: the live one constructed by [NewHTTP] and the
// in-memory one constructed by [NewSimulated]. Handlers treat both
// identically.
type Request interface {
	// ID returns the unique ID relay assigned this request.
	ID() string

	Method() string

	// Path returns the decoded request path, always beginning with "/".
	Path() string

	// Segments returns the decoded path split on "/", without the leading
	// empty segment; "/" yields a single empty segment.
	Segments() []string

	// URLSize returns the byte length of the full request URL.
	URLSize() int

	Header(name string) string
	Headers() http.Header
	Cookie(name string) (string, bool)
	Body() io.Reader
	RemoteAddr() string
	Context() context.Context

	// Query, Post and PathParams return the request's three parameter
	// sources. PathParams is nil until dispatch matches a rule.
	Query() *params.Params
	Post() *params.Params
	PathParams() *params.Params

	// SetPathParams installs the parameters a matched pattern extracted.
	// Dispatch calls it before invoking a rule's handler.
	SetPathParams(*params.Params)

	// ScrubParam removes name from the query and POST parameter sets so
	// handlers never see it, returning the raw values that were stored.
	// Session-ID extraction is its only intended caller.
	ScrubParam(name string) []string

	// Value and SetValue stash request-scoped values, e.g. the resumed
	// session under [relay.SessionKey].
	Value(key any) any
	SetValue(key, val any)

	// Go runs fn asynchronously inside the dispatch boundary. A panic or
	// error in fn is captured and routed through exception handling rather
	// than escaping uncaught. Dispatch waits for all tasks via Wait before
	// finalizing the response; handlers must not call Wait themselves.
	Go(fn func() error)
	Wait() error
}

// core carries the state both Request implementations share.
type core struct {
	id       string
	method   string
	path     string
	segments []string
	urlSize  int
	remote   string

	mu         sync.Mutex
	query      *params.Params
	post       *params.Params
	pathParams *params.Params
	values     map[any]any
	tasks      *errgroup.Group
}

func (c *core) ID() string         { return c.id }
func (c *core) Method() string     { return c.method }
func (c *core) Path() string       { return c.path }
func (c *core) Segments() []string { return c.segments }
func (c *core) URLSize() int       { return c.urlSize }
func (c *core) RemoteAddr() string { return c.remote }

func (c *core) Query() *params.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

func (c *core) Post() *params.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.post
}

func (c *core) PathParams() *params.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pathParams
}

func (c *core) SetPathParams(p *params.Params) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pathParams = p
}

func (c *core) ScrubParam(name string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []string
	var vals []string
	c.query, vals = c.query.Without(name)
	removed = append(removed, vals...)
	c.post, vals = c.post.Without(name)
	removed = append(removed, vals...)
	return removed
}

func (c *core) Value(key any) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key]
}

func (c *core) SetValue(key, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[any]any)
	}
	c.values[key] = val
}

func (c *core) Go(fn func() error) {
	c.mu.Lock()
	if c.tasks == nil {
		c.tasks = new(errgroup.Group)
	}
	g := c.tasks
	c.mu.Unlock()

	g.Go(func() (err error) {
		defer func() {
			if v := recover(); v != nil {
				err = fmt.Errorf("async task panicked: %v", v)
			}
		}()
		return fn()
	})
}

func (c *core) Wait() error {
	c.mu.Lock()
	g := c.tasks
	c.mu.Unlock()

	if g == nil {
		return nil
	}
	return g.Wait()
}

// splitPath slices a decoded path into match segments.
// "/" yields a single empty segment so the root pattern's trailing-slash
// reconciliation applies.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(path, "/"), "/")
}

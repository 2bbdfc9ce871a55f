package reqres

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// A Response is the buffered, transport-agnostic output of one dispatched
// request. Exactly one Response is emitted per request; the transport
// adapter in http/serve writes it to the wire after finalization.
type Response interface {
	Status() int
	Header() http.Header
	Body() []byte

	// AddCookie queues a cookie to be set when the Response is written out.
	AddCookie(c *http.Cookie)
	Cookies() []*http.Cookie

	// OnFinalize registers fn to run when the Response is finalized.
	// Finalization happens exactly once, after dispatch settles and before
	// the session suspend hook runs.
	OnFinalize(fn func())
	Finalize()
}

// Buffered is the concrete Response produced by this package's constructors.
type Buffered struct {
	status  int
	header  http.Header
	body    []byte
	cookies []*http.Cookie

	once       sync.Once
	finalizers []func()
}

var _ Response = &Buffered{}

// NewBuffered constructs a Response with the given status, content type and
// body. Most handlers reach for [Text], [JSON] or [Redirect] instead.
func NewBuffered(status int, contentType string, body []byte) *Buffered {
	b := &Buffered{
		status: status,
		header: make(http.Header),
		body:   body,
	}
	if contentType != "" {
		b.header.Set("Content-Type", contentType)
	}
	return b
}

// Text builds a plain-text Response.
func Text(status int, body string) *Buffered {
	return NewBuffered(status, "text/plain; charset=utf-8", []byte(body))
}

// JSON builds an application/json Response by marshaling v.
func JSON(status int, v any) (*Buffered, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal response body: %w", err)
	}
	return NewBuffered(status, "application/json", body), nil
}

// Redirect builds a Response redirecting the client to url.
func Redirect(status int, url string) *Buffered {
	b := NewBuffered(status, "", nil)
	b.header.Set("Location", url)
	return b
}

// NoContent builds an empty 204 Response.
func NoContent() *Buffered { return NewBuffered(http.StatusNoContent, "", nil) }

func (b *Buffered) Status() int             { return b.status }
func (b *Buffered) Header() http.Header     { return b.header }
func (b *Buffered) Body() []byte            { return b.body }
func (b *Buffered) Cookies() []*http.Cookie { return b.cookies }

func (b *Buffered) AddCookie(c *http.Cookie) { b.cookies = append(b.cookies, c) }

func (b *Buffered) OnFinalize(fn func()) { b.finalizers = append(b.finalizers, fn) }

func (b *Buffered) Finalize() {
	b.once.Do(func() {
		for _, fn := range b.finalizers {
			fn()
		}
	})
}

// Write emits the Response to w: headers first, then cookies, the status
// code, and the body. Write is the real transport's side of the Response
// abstraction and must be called at most once.
func Write(w http.ResponseWriter, resp Response) error {
	for k, vs := range resp.Header() {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	for _, c := range resp.Cookies() {
		http.SetCookie(w, c)
	}

	status := resp.Status()
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if _, err := w.Write(resp.Body()); err != nil {
		return fmt.Errorf("writing response body: %w", err)
	}
	return nil
}

package reqres

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/xy-planning-network/relay/http/params"
)

const (
	// DefaultMaxURLSize bounds the full request URL when a server does not
	// configure its own limit.
	DefaultMaxURLSize = 8192

	// DefaultMaxBodySize bounds form-encoded request bodies when a server
	// does not configure its own limit.
	DefaultMaxBodySize int64 = 1 << 20

	formContentType = "application/x-www-form-urlencoded"
)

// Limits bound what [NewHTTP] accepts from the wire.
// Zero values fall back to the package defaults.
type Limits struct {
	MaxURLSize  int
	MaxBodySize int64
}

func (l Limits) urlSize() int {
	if l.MaxURLSize <= 0 {
		return DefaultMaxURLSize
	}
	return l.MaxURLSize
}

func (l Limits) bodySize() int64 {
	if l.MaxBodySize <= 0 {
		return DefaultMaxBodySize
	}
	return l.MaxBodySize
}

// HTTPRequest implements Request over a live *http.Request.
type HTTPRequest struct {
	core
	r    *http.Request
	body []byte
}

var _ Request = &HTTPRequest{}

// NewHTTP builds a Request from r, assigning it a unique ID, decoding its
// path into match segments and extracting query and form-encoded POST
// parameters.
//
// NewHTTP always returns a usable *HTTPRequest. The error, when non-nil, is
// the first per-request condition encountered (a *PathTooLongError,
// *MalformedPathError or *BodyTooLongError) which the caller routes through
// exception handling with the partially built request.
func NewHTTP(r *http.Request, limits Limits) (*HTTPRequest, error) {
	rq := &HTTPRequest{
		core: core{
			id:      uuid.NewString(),
			method:  r.Method,
			path:    r.URL.Path,
			urlSize: len(r.URL.String()),
			remote:  r.RemoteAddr,
			query:   params.Empty(),
			post:    params.Empty(),
		},
		r: r,
	}

	if rq.urlSize > limits.urlSize() {
		return rq, &PathTooLongError{Size: rq.urlSize, Max: limits.urlSize()}
	}

	segs, err := decodeSegments(r.URL.EscapedPath())
	if err != nil {
		return rq, err
	}
	rq.segments = segs
	rq.path = "/" + strings.Join(segs, "/")

	qvals, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		return rq, &MalformedPathError{Path: r.URL.String(), Reason: "bad query encoding"}
	}
	rq.query = params.New(qvals)

	if err := rq.parseForm(limits.bodySize()); err != nil {
		return rq, err
	}

	return rq, nil
}

// decodeSegments percent-decodes each path segment, rejecting bad encodings
// and traversal attempts before any rule sees the path.
func decodeSegments(escaped string) ([]string, error) {
	raw := splitPath(escaped)
	segs := make([]string, 0, len(raw))
	for _, s := range raw {
		dec, err := url.PathUnescape(s)
		if err != nil {
			return nil, &MalformedPathError{Path: escaped, Reason: "bad percent-encoding"}
		}
		if dec == ".." {
			return nil, &MalformedPathError{Path: escaped, Reason: "path traversal"}
		}
		segs = append(segs, dec)
	}
	return segs, nil
}

// parseForm reads a form-encoded body into the POST parameter set,
// buffering it so Body remains readable by handlers.
func (rq *HTTPRequest) parseForm(maxBody int64) error {
	ct := rq.r.Header.Get("Content-Type")
	if mediaType, _, _ := strings.Cut(ct, ";"); strings.TrimSpace(mediaType) != formContentType {
		return nil
	}
	if rq.r.Body == nil {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(rq.r.Body, maxBody+1))
	if err != nil {
		return err
	}
	if int64(len(body)) > maxBody {
		return &BodyTooLongError{Max: maxBody}
	}
	rq.body = body

	pvals, err := url.ParseQuery(string(body))
	if err != nil {
		return &MalformedPathError{Path: rq.path, Reason: "bad form encoding"}
	}
	rq.post = params.New(pvals)
	return nil
}

func (rq *HTTPRequest) Header(name string) string { return rq.r.Header.Get(name) }
func (rq *HTTPRequest) Headers() http.Header      { return rq.r.Header }

func (rq *HTTPRequest) Cookie(name string) (string, bool) {
	c, err := rq.r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

// Body returns the request body. A form-encoded body was buffered during
// construction and is replayed from the start.
func (rq *HTTPRequest) Body() io.Reader {
	if rq.body != nil {
		return bytes.NewReader(rq.body)
	}
	if rq.r.Body == nil {
		return strings.NewReader("")
	}
	return rq.r.Body
}

func (rq *HTTPRequest) Context() context.Context { return rq.r.Context() }

// Raw exposes the underlying *http.Request for collaborators, the
// reverse-proxy handler among them, that need transport details the
// Request interface does not carry.
func (rq *HTTPRequest) Raw() *http.Request { return rq.r }

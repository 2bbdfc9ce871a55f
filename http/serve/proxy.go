package serve

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/xy-planning-network/relay/http/params"
	"github.com/xy-planning-network/relay/http/pipeline"
	"github.com/xy-planning-network/relay/http/reqres"
)

// hopByHop are the connection-scoped headers a proxy must not forward in
// either direction (RFC 9110 §7.6.1).
var hopByHop = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Proxy returns a handler forwarding matched requests to upstream, e.g.
// "http://localhost:9000". The request's path and query travel as-is;
// hop-by-hop headers are stripped both ways. A nil client uses
// http.DefaultClient.
//
// An unreachable or unreadable upstream fails with a *ProxyError, which the
// default server exception handler answers with 502.
func Proxy(upstream string, client *http.Client) pipeline.Handler {
	if client == nil {
		client = http.DefaultClient
	}

	return func(rq reqres.Request) pipeline.Result {
		target := strings.TrimSuffix(upstream, "/") + rq.Path()
		if q := encodeQuery(rq.Query()); q != "" {
			target += "?" + q
		}

		out, err := http.NewRequestWithContext(rq.Context(), rq.Method(), target, rq.Body())
		if err != nil {
			return pipeline.Fail(&ProxyError{Upstream: upstream, Err: err})
		}
		copyHeaders(out.Header, rq.Headers())
		if addr := rq.RemoteAddr(); addr != "" {
			out.Header.Set("X-Forwarded-For", addr)
		}

		up, err := client.Do(out)
		if err != nil {
			return pipeline.Fail(&ProxyError{Upstream: upstream, Err: err})
		}
		defer up.Body.Close()

		body, err := io.ReadAll(up.Body)
		if err != nil {
			return pipeline.Fail(&ProxyError{Upstream: upstream, Err: err})
		}

		resp := reqres.NewBuffered(up.StatusCode, "", body)
		copyHeaders(resp.Header(), up.Header)
		return pipeline.Respond(resp)
	}
}

func encodeQuery(p *params.Params) string {
	vals := make(url.Values, p.Len())
	for _, k := range p.Keys() {
		vals[k] = p.Values(k, params.Raw)
	}
	return vals.Encode()
}

func copyHeaders(dst, src http.Header) {
	for k, vs := range src {
		if isHopByHop(k) {
			continue
		}
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

func isHopByHop(name string) bool {
	for _, h := range hopByHop {
		if http.CanonicalHeaderKey(name) == h {
			return true
		}
	}
	return false
}

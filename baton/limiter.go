package baton

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// A visitor tracks one client IP's limiter and when it was last seen.
type visitor struct {
	lastSeen time.Time
	limiter  *rate.Limiter
}

// visitors maps client IPs to their limiters, evicting those idle past an
// hour.
type visitors struct {
	mu    sync.Mutex
	val   map[string]*visitor
	limit rate.Limit
	burst int
}

func newVisitors(limit rate.Limit, burst int) *visitors {
	return &visitors{val: make(map[string]*visitor), limit: limit, burst: burst}
}

func (vs *visitors) fetch(ip string) *visitor {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	v, ok := vs.val[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(vs.limit, vs.burst)}
		vs.val[ip] = v
	}
	v.lastSeen = time.Now().UTC()
	return v
}

func (vs *visitors) cleanup() {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	for ip, v := range vs.val {
		if time.Since(v.lastSeen) > time.Hour {
			delete(vs.val, ip)
		}
	}
}

// rateLimit answers 429 when a client IP exceeds its limiter. It keys on
// r.RemoteAddr, which the ProxyHeaders middleware ahead of it has already
// rewritten to the originating client when running behind a proxy.
//
// Implementation adapted from
// https://www.alexedwards.net/blog/how-to-rate-limit-http-requests
func rateLimit(vs *visitors, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !vs.fetch(ip).limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		vs.cleanup()
		next.ServeHTTP(w, r)
	})
}

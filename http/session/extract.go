package session

import (
	"github.com/xy-planning-network/relay"
	"github.com/xy-planning-network/relay/http/reqres"
	"github.com/xy-planning-network/relay/logger"
)

const (
	// DefaultCookieName names the cookie a session token travels in when a
	// server does not configure its own.
	DefaultCookieName = "relay-session"

	// DefaultParamName names the query/POST parameter a session token
	// travels in when a server does not configure its own.
	DefaultParamName = "_relay_session"
)

// An Extractor reconciles the session-ID candidates a request carries into
// at most one resumed session. Dispatch runs it once per request, before
// any handler executes.
type Extractor struct {
	// CookieName and ParamName configure where tokens are looked for:
	// a cookie, a query parameter and a POST parameter, respectively
	// (the parameter sources share ParamName).
	CookieName string
	ParamName  string

	Registry *Registry

	// Codec, when set, verifies and strips the signature on cookie-borne
	// tokens. Query and POST tokens are never signed.
	Codec *CookieCodec

	Log logger.Logger
}

// Extract collects session-ID candidates from the request's cookie, query
// parameters and POST parameters, scrubbing the matched parameters so
// handlers never see them, and resumes the identified session.
//
// Reconciliation: no candidates yields no session; one distinct value
// (duplicates across sources are fine) is resumed; more than one distinct
// value yields no session at all and is logged at error level; guessing
// which token to trust would be worse than serving the request
// sessionless.
func (e Extractor) Extract(rq reqres.Request) *Session {
	var candidates []string
	if v, ok := rq.Cookie(e.CookieName); ok && v != "" {
		if e.Codec == nil {
			candidates = append(candidates, v)
		} else if id, err := e.Codec.Decode(v); err == nil {
			candidates = append(candidates, id)
		} else {
			e.Log.Warn("discarding session cookie that failed decoding", &logger.LogContext{Error: err, RequestID: rq.ID()})
		}
	}

	for _, v := range rq.ScrubParam(e.ParamName) {
		if v != "" {
			candidates = append(candidates, v)
		}
	}

	distinct := dedupe(candidates)
	switch len(distinct) {
	case 0:
		return nil

	case 1:
		s, ok := e.Registry.Resume(distinct[0])
		if !ok {
			return nil
		}
		rq.SetValue(relay.SessionKey, s)
		return s

	default:
		// A legitimate client never presents two different tokens; do not
		// guess which one it meant.
		e.Log.Error("request presented multiple distinct session IDs, resuming none", &logger.LogContext{
			RequestID: rq.ID(),
			Data:      map[string]any{"candidates": len(distinct)},
		})
		return nil
	}
}

// FromRequest retrieves the session Extract stashed on the request, if any.
func FromRequest(rq reqres.Request) (*Session, bool) {
	s, ok := rq.Value(relay.SessionKey).(*Session)
	return s, ok
}

func dedupe(vals []string) []string {
	seen := make(map[string]struct{}, len(vals))
	var out []string
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Package reqres defines the request and response abstractions the relay
// dispatch core reads inputs from and produces outputs into.
//
// [Request] has two implementations: [NewHTTP] wraps a live *http.Request,
// while [NewSimulated] fabricates one in memory so dispatch, session
// extraction and handlers are testable without a socket. [Response] values
// are buffered and transport-agnostic; the transport adapter in http/serve
// writes them out.
package reqres

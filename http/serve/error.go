package serve

import (
	"fmt"
	"net/http"
)

// A NotFoundReason records how far matching proceeded before dispatch gave
// up, determining the status code of the eventual response.
type NotFoundReason int

const (
	// ReasonMethodUnsupported: no pipeline has any rule for the request's
	// method. The only reason answered with 405 rather than 404.
	ReasonMethodUnsupported NotFoundReason = iota

	// ReasonPathUnsupported: rules exist for the method but none matched
	// the path.
	ReasonPathUnsupported

	// ReasonNothingProduced: at least one rule matched but every matching
	// handler passed.
	ReasonNothingProduced

	// ReasonStaticMiss: a static-file handler matched but found nothing
	// to serve.
	ReasonStaticMiss
)

func (r NotFoundReason) String() string {
	switch r {
	case ReasonMethodUnsupported:
		return "method unsupported"
	case ReasonPathUnsupported:
		return "path unsupported"
	case ReasonNothingProduced:
		return "nothing produced"
	case ReasonStaticMiss:
		return "static miss"
	default:
		return "unknown"
	}
}

// Status maps the reason to its HTTP status code: 405 for an unsupported
// method, 404 otherwise.
func (r NotFoundReason) Status() int {
	if r == ReasonMethodUnsupported {
		return http.StatusMethodNotAllowed
	}
	return http.StatusNotFound
}

// A NotFoundError is raised when no pipeline produces a response.
type NotFoundError struct {
	Method string
	Path   string
	Reason NotFoundReason
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no response for %s %s: %s", e.Method, e.Path, e.Reason)
}

// A HandlerPanicError captures a panic raised inside a handler so it can be
// routed through the exception handler chain like any other condition.
type HandlerPanicError struct {
	Value any
	Stack []byte
}

func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}

// A ProxyError reports a reverse-proxied upstream that could not be reached
// or read.
type ProxyError struct {
	Upstream string
	Err      error
}

func (e *ProxyError) Error() string {
	return fmt.Sprintf("proxying to %s: %v", e.Upstream, e.Err)
}

func (e *ProxyError) Unwrap() error { return e.Err }

// An ExceptionHandlerError chains the original condition with the failure
// of the exception handler that was processing it, preserving causality on
// the way to the raw last-resort tier.
type ExceptionHandlerError struct {
	Original   error
	HandlerErr error
}

func (e *ExceptionHandlerError) Error() string {
	return fmt.Sprintf("exception handler failed with %v while handling: %v", e.HandlerErr, e.Original)
}

func (e *ExceptionHandlerError) Unwrap() []error {
	return []error{e.Original, e.HandlerErr}
}

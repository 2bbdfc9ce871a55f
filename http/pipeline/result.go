package pipeline

import "github.com/xy-planning-network/relay/http/reqres"

// An outcome discriminates the three ways a handler invocation can settle.
type outcome int

const (
	passed outcome = iota
	passedStatic
	responded
	failed
)

// A Result is the tagged outcome of invoking a [Handler]: a response,
// a pass to the next matching rule, or a failure routed to exception
// handling. Passing is normal control flow, never an error.
type Result struct {
	outcome outcome
	resp    reqres.Response
	err     error
}

// Respond settles the request with resp; dispatch stops.
func Respond(resp reqres.Response) Result {
	return Result{outcome: responded, resp: resp}
}

// Pass signals the rule produced no response and dispatch should try the
// next matching rule, then the next pipeline.
func Pass() Result { return Result{outcome: passed} }

// PassStatic is Pass for static-file-style handlers that matched but found
// nothing to serve. Dispatch records the distinction so an eventual
// not-found can report it.
func PassStatic() Result { return Result{outcome: passedStatic} }

// Fail routes err through the pipeline-then-server exception handler chain.
func Fail(err error) Result { return Result{outcome: failed, err: err} }

// Responded reports whether the Result carries a response.
func (r Result) Responded() bool { return r.outcome == responded }

// Passed reports whether the Result defers to the next matching rule.
func (r Result) Passed() bool { return r.outcome == passed || r.outcome == passedStatic }

// StaticMiss reports whether the Result is a pass from a static-file-style
// handler that found nothing.
func (r Result) StaticMiss() bool { return r.outcome == passedStatic }

// Failed reports whether the Result carries an error.
func (r Result) Failed() bool { return r.outcome == failed }

// Response returns the response a Responded Result carries, else nil.
func (r Result) Response() reqres.Response { return r.resp }

// Err returns the error a Failed Result carries, else nil.
func (r Result) Err() error { return r.err }

// Package pipeline holds relay's ordered rule lists and the handler
// contracts dispatch invokes.
//
// A [Pipeline] maps HTTP methods to ordered lists of rules. Rule order is
// registration order and is semantically significant: the first matching
// rule wins, so callers register their most specific patterns first (the
// [pattern.Pattern.Compare] ordering exists to help them do so).
package pipeline

import (
	"fmt"
	"net/http"

	"github.com/xy-planning-network/relay/http/params"
	"github.com/xy-planning-network/relay/http/pattern"
	"github.com/xy-planning-network/relay/http/reqres"
	"github.com/xy-planning-network/relay/logger"
)

// DefaultName is the reserved name of the pipeline a server constructs
// for rules registered directly against it.
const DefaultName = "default"

// A Handler services one request, settling it with one of the three
// [Result] outcomes. Handlers are invoked by dispatch and never call back
// into it.
type Handler func(rq reqres.Request) Result

// An ExceptionHandler turns a condition raised during dispatch into a
// response. Returning a non-Responded Result, or failing, defers to the
// next tier of the exception handler chain.
type ExceptionHandler func(rq reqres.Request, err error) Result

// A Rule binds one parsed pattern to one handler. Rules are created at
// registration time and immutable; exactly one pipeline's per-method list
// owns each.
type Rule struct {
	pattern *pattern.Pattern
	handler Handler
}

func (r Rule) Pattern() *pattern.Pattern { return r.pattern }
func (r Rule) Handler() Handler          { return r.handler }

// A DuplicateRuleError rejects registering a rule whose pattern matches the
// same paths as one already registered for the method.
type DuplicateRuleError struct {
	Pipeline string
	Method   string
	Pattern  *pattern.Pattern

	// Existing and Duplicate are the handlers already registered and being
	// rejected, retained so registration code can report exactly what
	// collided.
	Existing  Handler
	Duplicate Handler
}

func (e *DuplicateRuleError) Error() string {
	return fmt.Sprintf(
		"pipeline %q already has a %s rule matching the same paths as %s",
		e.Pipeline, e.Method, e.Pattern,
	)
}

// A Pipeline is an ordered, per-method collection of rules plus an optional
// pipeline-level exception handler.
//
// Registration happens before serving begins; Pipeline performs no locking
// around its rule lists.
type Pipeline struct {
	name  string
	order []string
	rules map[string][]Rule
	log   logger.Logger

	// ExceptionHandler, when set, is offered conditions raised while
	// dispatch is processing this Pipeline, before the server-level
	// handler is.
	ExceptionHandler ExceptionHandler
}

// An OptFn is a functional option configuring a Pipeline when constructing a new one.
type OptFn func(*Pipeline)

// WithLogger sets the logger.Logger the Pipeline logs registrations with.
func WithLogger(l logger.Logger) OptFn {
	return func(pl *Pipeline) { pl.log = l }
}

// WithExceptionHandler sets the Pipeline's exception handler.
func WithExceptionHandler(h ExceptionHandler) OptFn {
	return func(pl *Pipeline) { pl.ExceptionHandler = h }
}

// New constructs a Pipeline with the provided name.
func New(name string, opts ...OptFn) *Pipeline {
	pl := &Pipeline{
		name:  name,
		rules: make(map[string][]Rule),
	}
	for _, opt := range opts {
		opt(pl)
	}

	if pl.log == nil {
		pl.log = logger.New()
	}

	return pl
}

func (pl *Pipeline) Name() string { return pl.name }

// Register parses raw into a pattern and appends a rule binding it to h at
// the end of method's rule list.
//
// Register fails with a *pattern.InvalidPatternError when raw cannot be
// parsed and with a *DuplicateRuleError when a rule whose pattern matches
// the same paths is already registered for method; nothing is mutated in
// either case.
func (pl *Pipeline) Register(method, raw string, h Handler) error {
	p, err := pattern.Parse(raw)
	if err != nil {
		return err
	}

	for _, existing := range pl.rules[method] {
		if existing.pattern.EquivalentTo(p) {
			return &DuplicateRuleError{
				Pipeline:  pl.name,
				Method:    method,
				Pattern:   p,
				Existing:  existing.handler,
				Duplicate: h,
			}
		}
	}

	if _, ok := pl.rules[method]; !ok {
		pl.order = append(pl.order, method)
	}
	pl.rules[method] = append(pl.rules[method], Rule{pattern: p, handler: h})
	pl.log.Debug(fmt.Sprintf("registered %s %s on pipeline %q", method, p, pl.name), nil)
	return nil
}

// Get registers a GET rule; see Register.
func (pl *Pipeline) Get(raw string, h Handler) error {
	return pl.Register(http.MethodGet, raw, h)
}

// Post registers a POST rule; see Register.
func (pl *Pipeline) Post(raw string, h Handler) error {
	return pl.Register(http.MethodPost, raw, h)
}

// Put registers a PUT rule; see Register.
func (pl *Pipeline) Put(raw string, h Handler) error {
	return pl.Register(http.MethodPut, raw, h)
}

// Patch registers a PATCH rule; see Register.
func (pl *Pipeline) Patch(raw string, h Handler) error {
	return pl.Register(http.MethodPatch, raw, h)
}

// Delete registers a DELETE rule; see Register.
func (pl *Pipeline) Delete(raw string, h Handler) error {
	return pl.Register(http.MethodDelete, raw, h)
}

// RulesFor returns method's rules in registration order.
// An empty list distinguishes "method not supported" from "no rule matched"
// in the not-found taxonomy.
func (pl *Pipeline) RulesFor(method string) []Rule { return pl.rules[method] }

// A RuleMatch pairs a matched Rule with the parameters its pattern bound.
type RuleMatch struct {
	Rule   Rule
	Params *params.Params
}

// Match returns, in registration order, the rules for method whose patterns
// match segments, paired with their bound parameters. The boolean reports
// whether the pipeline holds any rules for method at all, distinguishing an
// unsupported method from an unmatched path.
func (pl *Pipeline) Match(method string, segments []string) ([]RuleMatch, bool) {
	rules := pl.rules[method]

	var ms []RuleMatch
	for _, r := range rules {
		if ps, ok := r.pattern.Match(segments); ok {
			ms = append(ms, RuleMatch{Rule: r, Params: ps})
		}
	}
	return ms, len(rules) > 0
}

// Supports reports whether any rule is registered for method.
func (pl *Pipeline) Supports(method string) bool { return len(pl.rules[method]) > 0 }

// Methods returns the methods with registered rules, in the order their
// first rule was registered.
func (pl *Pipeline) Methods() []string { return pl.order }

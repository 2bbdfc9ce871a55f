// Package params holds the multi-valued key/value containers relay extracts
// from a request's path, query string and form-encoded body.
//
// A [Params] never mutates its stored values; whitespace sanitization happens
// at read time according to the [Mode] a caller selects.
package params

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/xy-planning-network/relay"
	"golang.org/x/exp/slices"
)

// A Mode selects how values read out of a Params are sanitized.
//
// Sanitization never alters what a Params stores,
// so the same key can be read under different Modes.
type Mode int

const (
	// Standard collapses every run of whitespace or line terminators
	// into a single space and trims leading and trailing spaces.
	Standard Mode = iota

	// RawLines normalizes line terminator sequences (CR LF counts as one)
	// into a single line feed and trims leading and trailing whitespace;
	// interior non-newline whitespace passes through untouched.
	RawLines

	// Raw returns values exactly as stored.
	Raw
)

// Params maps string keys to ordered lists of string values.
//
// Params is immutable once constructed; handlers share one instance safely.
type Params struct {
	vals map[string][]string
}

// New constructs a Params from vals, copying keys and values
// so later mutation of vals cannot leak into the Params.
func New(vals map[string][]string) *Params {
	cp := make(map[string][]string, len(vals))
	for k, vs := range vals {
		cp[k] = append([]string(nil), vs...)
	}
	return &Params{vals: cp}
}

// Empty constructs a Params holding nothing.
func Empty() *Params { return &Params{vals: make(map[string][]string)} }

// Has reports whether at least one value is stored under key.
func (p *Params) Has(key string) bool {
	vs, ok := p.vals[key]
	return ok && len(vs) > 0
}

// Keys returns all keys with at least one value, sorted.
func (p *Params) Keys() []string {
	keys := make([]string, 0, len(p.vals))
	for k, vs := range p.vals {
		if len(vs) > 0 {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of keys with at least one value.
func (p *Params) Len() int { return len(p.Keys()) }

// Values returns all values stored under key, sanitized per mode,
// in the order they were stored.
// Values returns an empty list when key is absent.
func (p *Params) Values(key string, mode Mode) []string {
	vs := p.vals[key]
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, sanitize(v, mode))
	}
	return out
}

// Value returns the single value stored under key, sanitized per mode.
//
// Value errors with [relay.ErrMissingData] when key is absent and with
// [relay.ErrNotValid] when key holds more than one value; callers expecting
// multi-valued parameters must use Values.
func (p *Params) Value(key string, mode Mode) (string, error) {
	vs := p.vals[key]
	switch len(vs) {
	case 0:
		return "", fmt.Errorf("%w: no value for %q", relay.ErrMissingData, key)
	case 1:
		return sanitize(vs[0], mode), nil
	default:
		return "", fmt.Errorf("%w: %d values for %q, use Values", relay.ErrNotValid, len(vs), key)
	}
}

// Without returns a copy of the Params with key removed,
// along with the raw values that were stored under it.
//
// Without is how relay scrubs session tokens out of the parameter sets
// handlers see; the original Params is untouched.
func (p *Params) Without(key string) (*Params, []string) {
	vs, ok := p.vals[key]
	if !ok {
		return p, nil
	}

	cp := make(map[string][]string, len(p.vals))
	for k, kvs := range p.vals {
		if k == key {
			continue
		}
		cp[k] = kvs
	}
	return &Params{vals: cp}, vs
}

// sanitize applies mode to val.
func sanitize(val string, mode Mode) string {
	switch mode {
	case Raw:
		return val
	case RawLines:
		return sanitizeRawLines(val)
	default:
		return strings.Join(strings.Fields(val), " ")
	}
}

// Line terminator sequences recognized by RawLines, longest first
// so CR LF collapses to one line feed rather than two.
var lineTerminators = []string{"\r\n", "\r", "\n", "", " ", " "}

func sanitizeRawLines(val string) string {
	val = strings.TrimFunc(val, unicode.IsSpace)
	for _, t := range lineTerminators {
		val = strings.ReplaceAll(val, t, "\n")
	}
	return val
}

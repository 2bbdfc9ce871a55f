// Package pattern parses and matches relay's URL-path pattern syntax.
//
// A pattern string begins with the root marker "~" followed by
// slash-separated segments:
//
//	~/users            a literal segment
//	~/users/:id        a variable segment binding one path segment to "id"
//	~/docs/?index      an optional literal segment
//	~/files/*          a wildcard consuming any number of segments
//
// Patterns are parsed once at rule registration and immutable thereafter.
package pattern

import (
	"fmt"
	"strings"

	"github.com/xy-planning-network/relay/http/params"
	"golang.org/x/exp/slices"
)

const (
	// RootMarker begins every valid pattern string.
	RootMarker = "~"

	// WildcardKey is the params key a wildcard segment binds
	// its consumed path segments under.
	WildcardKey = "*"
)

const (
	variableMarker = ':'
	optionalMarker = '?'
	wildcardMarker = '*'
)

// An InvalidPatternError reports a pattern string relay cannot parse.
type InvalidPatternError struct {
	Raw    string
	Reason string
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %s", e.Raw, e.Reason)
}

// A kind discriminates the segment types a pattern is built from.
//
// The numeric order is load bearing: [Pattern.Compare] sorts more specific
// kinds first so a literal rule beats a variable rule over the same position.
type kind int

const (
	literal kind = iota
	optional
	variable
	wildcard
)

// A segment is one slash-delimited piece of a pattern.
type segment struct {
	kind kind

	// val holds the literal value, the optional segment's literal value,
	// or the variable's binding name. Empty for a wildcard.
	val string
}

func (s segment) String() string {
	switch s.kind {
	case variable:
		return string(variableMarker) + s.val
	case optional:
		return string(optionalMarker) + s.val
	case wildcard:
		return string(wildcardMarker)
	default:
		return s.val
	}
}

// A Pattern is the parsed, immutable representation of a pattern string.
type Pattern struct {
	segments []segment
}

// Parse parses raw into a *Pattern.
//
// Parse fails with an *InvalidPatternError when raw is empty, does not begin
// with [RootMarker], contains a segment mixing two special markers, names a
// variable or optional segment with an empty value, or contains more than
// one wildcard segment.
//
// Any number of leading empty segments collapse, so "~", "~/" and "~//"
// all parse to the root pattern.
func Parse(raw string) (*Pattern, error) {
	if raw == "" {
		return nil, &InvalidPatternError{Raw: raw, Reason: "empty pattern"}
	}

	if !strings.HasPrefix(raw, RootMarker) {
		return nil, &InvalidPatternError{Raw: raw, Reason: "must begin with " + RootMarker}
	}

	parts := strings.Split(raw[len(RootMarker):], "/")
	for len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}

	p := &Pattern{}
	sawWildcard := false
	for _, part := range parts {
		seg, err := parseSegment(raw, part)
		if err != nil {
			return nil, err
		}

		if seg.kind == wildcard {
			if sawWildcard {
				return nil, &InvalidPatternError{Raw: raw, Reason: "more than one wildcard segment"}
			}
			sawWildcard = true
		}

		p.segments = append(p.segments, seg)
	}

	return p, nil
}

// MustParse is Parse, panicking on a malformed pattern.
// It simplifies registration code with compile-time-constant patterns.
func MustParse(raw string) *Pattern {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func parseSegment(raw, part string) (segment, error) {
	if part == "" {
		return segment{kind: literal, val: ""}, nil
	}

	switch part[0] {
	case variableMarker:
		name := part[1:]
		if name == "" {
			return segment{}, &InvalidPatternError{Raw: raw, Reason: "variable segment without a name"}
		}
		if strings.ContainsAny(name, ":?*") {
			return segment{}, &InvalidPatternError{Raw: raw, Reason: fmt.Sprintf("segment %q mixes special markers", part)}
		}
		return segment{kind: variable, val: name}, nil

	case optionalMarker:
		val := part[1:]
		if val == "" {
			return segment{}, &InvalidPatternError{Raw: raw, Reason: "optional segment without a value"}
		}
		if strings.ContainsAny(val, ":?*") {
			return segment{}, &InvalidPatternError{Raw: raw, Reason: fmt.Sprintf("segment %q mixes special markers", part)}
		}
		return segment{kind: optional, val: val}, nil

	case wildcardMarker:
		if part != string(wildcardMarker) {
			return segment{}, &InvalidPatternError{Raw: raw, Reason: fmt.Sprintf("segment %q mixes special markers", part)}
		}
		return segment{kind: wildcard}, nil

	default:
		return segment{kind: literal, val: part}, nil
	}
}

// String renders the canonical form of the Pattern.
//
// The canonical form is a fixed point: parsing it yields an equal Pattern,
// e.g., "~//foo" canonicalizes to "~/foo".
func (p *Pattern) String() string {
	var b strings.Builder
	b.WriteString(RootMarker)
	for _, seg := range p.segments {
		b.WriteByte('/')
		b.WriteString(seg.String())
	}
	return b.String()
}

// Match matches the Pattern against path segments, returning the bound
// parameters when the whole path is consumed.
//
// The root pattern matches both an empty segment list and a list holding
// exactly one empty segment, reconciling "no trailing slash" with the
// trailing slash a proxy may append.
func (p *Pattern) Match(path []string) (*params.Params, bool) {
	if len(p.segments) == 0 {
		if len(path) == 0 || (len(path) == 1 && path[0] == "") {
			return params.Empty(), true
		}
		return nil, false
	}

	vals := make(map[string][]string)
	j := 0
	for i, seg := range p.segments {
		switch seg.kind {
		case literal:
			if j >= len(path) || path[j] != seg.val {
				return nil, false
			}
			j++

		case variable:
			// A variable consumes exactly one segment, even an empty one,
			// but cannot match a missing one.
			if j >= len(path) {
				return nil, false
			}
			vals[seg.val] = append(vals[seg.val], path[j])
			j++

		case optional:
			if j < len(path) && path[j] == seg.val {
				j++
			}

		case wildcard:
			// Consume exactly what the segments after the wildcard leave over.
			rest := len(p.segments) - i - 1
			n := len(path) - j - rest
			if n < 0 {
				return nil, false
			}
			vals[WildcardKey] = append(vals[WildcardKey], strings.Join(path[j:j+n], "/"))
			j += n
		}
	}

	if j != len(path) {
		return nil, false
	}

	return params.New(vals), true
}

// Compare defines the registration sort order of Patterns:
// literal < optional < variable < wildcard at each segment position,
// so more specific patterns are tried before more general ones.
// When one Pattern is a strict segment-prefix of the other, the longer
// sorts first. Variable names break ties only when all else is equal.
//
// Compare returns -1 when p sorts before o, 1 when after, and 0 when equal.
func (p *Pattern) Compare(o *Pattern) int {
	n := len(p.segments)
	if len(o.segments) < n {
		n = len(o.segments)
	}

	nameTie := 0
	for i := 0; i < n; i++ {
		a, b := p.segments[i], o.segments[i]
		if a.kind != b.kind {
			if a.kind < b.kind {
				return -1
			}
			return 1
		}

		switch a.kind {
		case literal, optional:
			if c := strings.Compare(a.val, b.val); c != 0 {
				return c
			}
		case variable:
			if nameTie == 0 {
				nameTie = strings.Compare(a.val, b.val)
			}
		}
	}

	// Longer sorts first when one is a strict prefix of the other.
	if len(p.segments) != len(o.segments) {
		if len(p.segments) > len(o.segments) {
			return -1
		}
		return 1
	}

	return nameTie
}

// EquivalentTo reports whether p and o match exactly the same paths.
//
// EquivalentTo ignores variable names but requires the same segment kinds
// in the same order with equal literal and optional values. It is a coarser
// relation than Equal and exists to detect duplicate rule registration.
func (p *Pattern) EquivalentTo(o *Pattern) bool {
	if len(p.segments) != len(o.segments) {
		return false
	}

	for i, a := range p.segments {
		b := o.segments[i]
		if a.kind != b.kind {
			return false
		}
		if a.kind != variable && a.val != b.val {
			return false
		}
	}

	return true
}

// Equal reports whether p and o are segment-for-segment identical,
// variable names included.
func (p *Pattern) Equal(o *Pattern) bool {
	return slices.Equal(p.segments, o.segments)
}

package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var attrPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_$:.-]*$`)

// Filter is a SCIM-style filter expression. Build one with the comparison
// helpers and combine them with And and Or. The zero value means no filter.
type Filter struct {
	expr     string
	compound bool
	err      error
}

func (f Filter) String() string { return f.expr }

// IsZero reports whether f is empty.
func (f Filter) IsZero() bool { return f.expr == "" && f.err == nil }

// Err returns the first construction error, if any.
func (f Filter) Err() error { return f.err }

func compare(attr, op, value string) Filter {
	if !attrPattern.MatchString(attr) {
		return Filter{err: fmt.Errorf("%w: attribute %q", ErrInvalidFilter, attr)}
	}
	return Filter{expr: attr + " " + op + " " + quote(value)}
}

// quote renders value as a JSON string literal, as filter grammars expect.
func quote(value string) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(value)
	return strings.TrimSuffix(b.String(), "\n")
}

// Eq matches attr equal to value.
func Eq(attr, value string) Filter { return compare(attr, "eq", value) }

// Ne matches attr not equal to value.
func Ne(attr, value string) Filter { return compare(attr, "ne", value) }

// Co matches attr containing value.
func Co(attr, value string) Filter { return compare(attr, "co", value) }

// Sw matches attr starting with value.
func Sw(attr, value string) Filter { return compare(attr, "sw", value) }

// Pr matches resources where attr has a value.
func Pr(attr string) Filter {
	if !attrPattern.MatchString(attr) {
		return Filter{err: fmt.Errorf("%w: attribute %q", ErrInvalidFilter, attr)}
	}
	return Filter{expr: attr + " pr"}
}

// And matches when every filter matches.
func And(filters ...Filter) Filter { return join("and", filters) }

// Or matches when any filter matches.
func Or(filters ...Filter) Filter { return join("or", filters) }

func join(op string, filters []Filter) Filter {
	var (
		kept []Filter
		errs []error
	)
	for _, f := range filters {
		switch {
		case f.err != nil:
			errs = append(errs, f.err)
		case f.expr != "":
			kept = append(kept, f)
		}
	}
	if len(errs) > 0 {
		return Filter{err: errors.Join(errs...)}
	}
	switch len(kept) {
	case 0:
		return Filter{}
	case 1:
		return kept[0]
	}

	parts := make([]string, len(kept))
	for i, f := range kept {
		if f.compound {
			parts[i] = "(" + f.expr + ")"
		} else {
			parts[i] = f.expr
		}
	}
	return Filter{expr: strings.Join(parts, " "+op+" "), compound: true}
}

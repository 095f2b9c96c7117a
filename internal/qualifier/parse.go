package qualifier

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrSyntax = errors.New("qualifier syntax")

// Parse reads a whitespace separated list of qualifiers:
//
//	@fast @region(zone=eu,tier=1) @named(value=primary) @path(glob="a,b")
//
// Values holding separators are Go quoted strings, as String renders them.
func Parse(s string) ([]Qualifier, error) {
	var out []Qualifier
	rest := strings.TrimSpace(s)

	for rest != "" {
		if rest[0] != '@' {
			return nil, fmt.Errorf("%w: expected '@' at %q", ErrSyntax, rest)
		}
		rest = rest[1:]

		end := strings.IndexAny(rest, "( \t")
		if end == -1 {
			end = len(rest)
		}
		kind := rest[:end]
		if kind == "" {
			return nil, fmt.Errorf("%w: empty qualifier kind in %q", ErrSyntax, s)
		}
		if strings.ContainsAny(kind, `@),="`) {
			return nil, fmt.Errorf("%w: invalid qualifier kind %q", ErrSyntax, kind)
		}
		rest = rest[end:]

		var attrs []Attr
		if strings.HasPrefix(rest, "(") {
			parsed, remainder, err := scanAttrs(kind, rest[1:])
			if err != nil {
				return nil, err
			}
			attrs, rest = parsed, remainder
		}

		out = append(out, New(kind, attrs...))
		rest = strings.TrimSpace(rest)
	}

	return out, nil
}

// scanAttrs reads name=value pairs up to the closing parenthesis and returns
// what follows it.
func scanAttrs(kind, s string) ([]Attr, string, error) {
	unterminated := fmt.Errorf("%w: unterminated attributes for @%s", ErrSyntax, kind)

	s = strings.TrimLeft(s, " \t")
	if strings.HasPrefix(s, ")") {
		return nil, s[1:], nil
	}

	var attrs []Attr
	for {
		eq := strings.IndexAny(s, "=,)")
		if eq == -1 {
			return nil, "", unterminated
		}
		name := strings.TrimSpace(s[:eq])
		if s[eq] != '=' || name == "" {
			return nil, "", fmt.Errorf("%w: attribute %q of @%s must be name=value", ErrSyntax, name, kind)
		}
		s = strings.TrimLeft(s[eq+1:], " \t")

		var value string
		if strings.HasPrefix(s, `"`) {
			quoted, err := strconv.QuotedPrefix(s)
			if err != nil {
				return nil, "", fmt.Errorf("%w: malformed quoted value for %s of @%s", ErrSyntax, name, kind)
			}
			value, _ = strconv.Unquote(quoted)
			s = strings.TrimLeft(s[len(quoted):], " \t")
			if s == "" {
				return nil, "", unterminated
			}
			if s[0] != ',' && s[0] != ')' {
				return nil, "", fmt.Errorf("%w: unexpected %q after value of %s in @%s", ErrSyntax, s[0], name, kind)
			}
		} else {
			end := strings.IndexAny(s, ",)")
			if end == -1 {
				return nil, "", unterminated
			}
			value = strings.TrimSpace(s[:end])
			s = s[end:]
		}
		attrs = append(attrs, Attr{Name: name, Value: value})

		sep := s[0]
		s = s[1:]
		if sep == ')' {
			return attrs, s, nil
		}
	}
}

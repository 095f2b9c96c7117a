package thimble

import (
	"github.com/danpasecinic/thimble/internal/qualifier"
)

// Qualifier narrows a request beyond its type. A candidate satisfies a request
// when it carries every qualifier the request names.
type Qualifier = qualifier.Qualifier

type Attr = qualifier.Attr

func NewQualifier(kind string, attrs ...Attr) Qualifier {
	return qualifier.New(kind, attrs...)
}

// Name is the qualifier equivalent of a registration name.
func Name(name string) Qualifier {
	return qualifier.Named(name)
}

// ParseQualifiers reads the tag syntax: "@fast @region(zone=eu)".
func ParseQualifiers(s string) ([]Qualifier, error) {
	qs, err := qualifier.Parse(s)
	if err != nil {
		return nil, newError(ErrCodeMalformedRegistration, "invalid qualifiers", err)
	}
	return qs, nil
}

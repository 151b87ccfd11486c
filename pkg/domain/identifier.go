// Package domain holds the identifier value types shared across modules.
package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// URISeparator splits scheme and value in the canonical identifier form.
const URISeparator = "::"

// ParticipantIdentifier names one business entity in the network. It is an
// immutable value type compared by (scheme, value).
type ParticipantIdentifier struct {
	scheme string
	value  string
}

// NewParticipantIdentifier builds an identifier from its raw parts.
func NewParticipantIdentifier(scheme, value string) (ParticipantIdentifier, error) {
	if strings.TrimSpace(scheme) == "" {
		return ParticipantIdentifier{}, fmt.Errorf("participant identifier scheme is required")
	}
	if strings.TrimSpace(value) == "" {
		return ParticipantIdentifier{}, fmt.Errorf("participant identifier value is required")
	}
	if strings.Contains(scheme, URISeparator) {
		return ParticipantIdentifier{}, fmt.Errorf("participant identifier scheme must not contain %q", URISeparator)
	}
	return ParticipantIdentifier{scheme: scheme, value: value}, nil
}

// ParseParticipantIdentifier parses the canonical "scheme::value" form.
// The value part may itself contain "::".
func ParseParticipantIdentifier(s string) (ParticipantIdentifier, error) {
	scheme, value, found := strings.Cut(s, URISeparator)
	if !found {
		return ParticipantIdentifier{}, fmt.Errorf("participant identifier %q is missing the %q separator", s, URISeparator)
	}
	return NewParticipantIdentifier(scheme, value)
}

// Scheme returns the identifier scheme, e.g. "iso6523-actorid-upis".
func (p ParticipantIdentifier) Scheme() string { return p.scheme }

// Value returns the scheme-specific identifier value, e.g. "9915:test".
func (p ParticipantIdentifier) Value() string { return p.value }

// IsZero reports whether the identifier is the zero value.
func (p ParticipantIdentifier) IsZero() bool { return p.scheme == "" && p.value == "" }

// URIEncoded returns the canonical "scheme::value" form used as the external
// key in stores, caches and directory calls.
func (p ParticipantIdentifier) URIEncoded() string {
	return p.scheme + URISeparator + p.value
}

// URIPercentEncoded returns the canonical form escaped for use in a URL path
// segment. Colons are escaped too: path escaping alone leaves them bare, but
// the canonical URL form requires %3A.
func (p ParticipantIdentifier) URIPercentEncoded() string {
	return strings.ReplaceAll(url.PathEscape(p.URIEncoded()), ":", "%3A")
}

func (p ParticipantIdentifier) String() string { return p.URIEncoded() }

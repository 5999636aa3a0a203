// Package auth validates the shared action token that gates mutating
// requests. It stays out of routing policy: the API layer decides which
// routes pass through a validator, and running without one leaves the
// panel open for local use.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized is returned for missing or mismatched tokens.
var ErrUnauthorized = errors.New("auth: unauthorized")

// HeaderName is the dedicated token header, checked before the
// Authorization bearer form.
const HeaderName = "X-Action-Token"

// Validator validates an authentication token.
type Validator interface {
	Validate(token string) error
}

// StaticToken validates against a single shared secret in constant
// time. An empty stored secret rejects everything; callers that want
// open access skip the validator instead.
type StaticToken struct {
	Token string
}

func (s StaticToken) Validate(token string) error {
	if s.Token == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(s.Token), []byte(token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// FromRequest extracts the client token: the X-Action-Token header
// wins, then an Authorization bearer value. The bearer scheme matches
// case-insensitively. Absent both, it returns the empty string.
func FromRequest(r *http.Request) string {
	if token := r.Header.Get(HeaderName); token != "" {
		return token
	}
	const scheme = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) >= len(scheme) && strings.EqualFold(h[:len(scheme)], scheme) {
		return strings.TrimSpace(h[len(scheme):])
	}
	return ""
}

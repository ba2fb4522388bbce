// Package auth authenticates callers of the stock API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Method names an authentication scheme.
type Method string

const (
	// MethodNone disables authentication.
	MethodNone Method = "none"
	// MethodBasic is HTTP Basic with bcrypt-hashed passwords.
	MethodBasic Method = "basic"
	// MethodAPIKey is a static key in the X-API-Key header.
	MethodAPIKey Method = "apikey"
	// MethodJWT is an HS256 bearer token.
	MethodJWT Method = "jwt"
	// MethodMulti accepts any of the configured schemes.
	MethodMulti Method = "multi"
)

// Identity describes an authenticated caller.
type Identity struct {
	Method  Method
	Subject string
	Claims  map[string]any
}

// Authenticator validates a request and returns the caller identity.
type Authenticator interface {
	Authenticate(r *http.Request) (*Identity, error)
	Method() Method
}

// Sentinel errors for authentication failures.
var (
	ErrUnauthenticated    = errors.New("unauthenticated: no credentials provided")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type contextKey struct{}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok
}

// WithIdentity stores the caller identity in the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// parsePairs parses "left:right,left:right" into a map. Only the first colon
// splits an entry, so right-hand values may contain colons.
func parsePairs(scheme, config string) (map[string]string, error) {
	trimmed := strings.TrimSpace(config)
	if trimmed == "" {
		return nil, fmt.Errorf("%s auth: config must not be empty", scheme)
	}

	pairs := make(map[string]string)
	for _, entry := range strings.Split(trimmed, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		left, right, found := strings.Cut(entry, ":")
		if !found {
			return nil, fmt.Errorf("%s auth: entry %q is missing a colon", scheme, entry)
		}
		left, right = strings.TrimSpace(left), strings.TrimSpace(right)
		if left == "" || right == "" {
			return nil, fmt.Errorf("%s auth: entry has an empty side", scheme)
		}
		pairs[left] = right
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("%s auth: no valid entries found", scheme)
	}
	return pairs, nil
}

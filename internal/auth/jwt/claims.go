// Package jwt provides bearer-token validation against the auth server's
// published signing keys. The key set is preloaded once at startup over the
// backchannel; when preload failed the validator falls back to on-demand
// fetching per request.
package jwt

import (
	"context"
	"encoding/json"
	"strings"
)

// Claims is the resolved principal carried by a validated bearer token.
type Claims struct {
	Subject  string
	Name     string
	ClientID string
	Issuer   string
	Scopes   []string
}

// HasScope reports whether the principal carries the given scope.
func (c *Claims) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// scopeValue tolerates both encodings of the scope claim: a single
// space-delimited string (OAuth2 style, what the auth server emits) and a
// JSON array of strings.
type scopeValue []string

func (s *scopeValue) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = splitScopes(single)
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

func splitScopes(raw string) []string {
	var out []string
	for _, part := range strings.Fields(raw) {
		out = append(out, part)
	}
	return out
}

// contextKey is the type for context keys.
type contextKey string

const claimsContextKey contextKey = "bearer_claims"

// ContextWithClaims stores the validated claims in the context.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext retrieves validated claims from the context.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}

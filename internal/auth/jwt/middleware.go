package jwt

import (
	"net/http"
	"strings"
)

// Middleware creates HTTP middleware that validates bearer tokens before
// the request proceeds. On failure it issues a bearer challenge (401 with
// WWW-Authenticate) so clients retry with credentials; on success the
// resolved claims are attached to the request context.
func Middleware(validator *Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractBearerToken(r)
			if token == "" {
				challenge(w, "")
				return
			}

			claims, err := validator.Validate(r.Context(), token)
			if err != nil {
				challenge(w, "invalid_token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// ExtractBearerToken returns the bearer token from the Authorization
// header, or "" when absent or malformed.
func ExtractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func challenge(w http.ResponseWriter, errCode string) {
	header := `Bearer`
	if errCode != "" {
		header = `Bearer error="` + errCode + `"`
	}
	w.Header().Set("WWW-Authenticate", header)
	http.Error(w, "Authorization required", http.StatusUnauthorized)
}

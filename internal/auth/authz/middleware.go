package authz

import (
	"errors"
	"net/http"

	"github.com/nemanja87/master-thesis-bench-runner/internal/auth/jwt"
	"github.com/nemanja87/master-thesis-bench-runner/internal/secprofile"
	bencherrors "github.com/nemanja87/master-thesis-bench-runner/pkg/errors"
)

// RequireScope creates middleware gating a route on the given scope under
// the active profile. It expects the bearer middleware to have run first
// when the profile requires JWT; a missing principal yields 401 and a
// principal without the scope yields 403.
func RequireScope(profile secprofile.Profile, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := jwt.ClaimsFromContext(r.Context())

			if err := Check(profile, claims, scope); err != nil {
				if errors.Is(err, bencherrors.ErrForbidden) {
					http.Error(w, "Insufficient scope", http.StatusForbidden)
					return
				}
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "Authorization required", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

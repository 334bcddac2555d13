package authz_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemanja87/master-thesis-bench-runner/internal/auth/authz"
	"github.com/nemanja87/master-thesis-bench-runner/internal/auth/jwt"
	"github.com/nemanja87/master-thesis-bench-runner/internal/secprofile"
	bencherrors "github.com/nemanja87/master-thesis-bench-runner/pkg/errors"
)

func TestCheckDecisionTable(t *testing.T) {
	reader := &jwt.Claims{Subject: "bench-runner", Scopes: []string{"orders.read"}}

	tests := []struct {
		name    string
		profile secprofile.Profile
		claims  *jwt.Claims
		scope   string
		want    error
	}{
		{"no jwt profile allows anonymous", secprofile.S1, nil, "orders.write", nil},
		{"no jwt profile ignores claims", secprofile.S0, reader, "orders.write", nil},
		{"jwt profile rejects anonymous", secprofile.S2, nil, "orders.read", bencherrors.ErrUnauthorized},
		{"jwt profile requires declared scope", secprofile.S2, reader, "orders.write", bencherrors.ErrForbidden},
		{"jwt profile allows matching scope", secprofile.S2, reader, "orders.read", nil},
		{"s4 enforces scope", secprofile.S4, reader, "inventory.write", bencherrors.ErrForbidden},
		{"s3 without jwt allows anonymous", secprofile.S3, nil, "orders.read", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authz.Check(tt.profile, tt.claims, tt.scope)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.want))
			}
		})
	}
}

func TestRequireScopeMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	run := func(profile secprofile.Profile, claims *jwt.Claims) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
		if claims != nil {
			req = req.WithContext(jwt.ContextWithClaims(req.Context(), claims))
		}
		rec := httptest.NewRecorder()
		authz.RequireScope(profile, "orders.write")(next).ServeHTTP(rec, req)
		return rec
	}

	t.Run("anonymous under S2 gets 401 with challenge", func(t *testing.T) {
		rec := run(secprofile.S2, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	})

	t.Run("wrong scope under S2 gets 403", func(t *testing.T) {
		rec := run(secprofile.S2, &jwt.Claims{Scopes: []string{"orders.read"}})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("matching scope passes", func(t *testing.T) {
		rec := run(secprofile.S2, &jwt.Claims{Scopes: []string{"orders.write"}})
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("S1 passes anonymous requests through", func(t *testing.T) {
		rec := run(secprofile.S1, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

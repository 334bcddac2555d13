// Package authz enforces per-method scope policy on top of validated
// bearer claims. The same decision logic backs the HTTP middleware and the
// gRPC handlers so REST and gRPC surfaces agree on every profile.
package authz

import (
	"fmt"

	"github.com/nemanja87/master-thesis-bench-runner/internal/auth/jwt"
	"github.com/nemanja87/master-thesis-bench-runner/internal/secprofile"
	bencherrors "github.com/nemanja87/master-thesis-bench-runner/pkg/errors"
)

// Check decides whether a request may proceed under the active profile.
//
// When the profile does not require JWT the gate is open regardless of
// claims. When JWT is required but per-method policies are not, any
// authenticated principal passes. With per-method policies active the
// principal must carry the method's declared scope.
//
// Returns nil on allow, ErrUnauthorized when a principal is required but
// absent, and ErrForbidden when the principal lacks the scope.
func Check(profile secprofile.Profile, claims *jwt.Claims, requiredScope string) error {
	if !profile.RequiresJWT() {
		return nil
	}

	if claims == nil {
		return bencherrors.ErrUnauthorized
	}

	if !profile.RequiresPerMethodPolicies() {
		return nil
	}

	if !claims.HasScope(requiredScope) {
		return fmt.Errorf("%w: scope %q required", bencherrors.ErrForbidden, requiredScope)
	}
	return nil
}

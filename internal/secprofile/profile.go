// Package secprofile resolves the security profile (S0..S4) that decides
// which transport and identity guarantees every service in the harness
// enforces. The profile is resolved once at startup and threaded through
// configuration; nothing in this package reads the environment.
package secprofile

import "strings"

// EnvVar is the environment variable that selects the active profile.
const EnvVar = "SEC_PROFILE"

// Profile identifies one of the five security profiles. The values are not
// ordered; each independently selects a fixed bundle of requirements.
type Profile string

// The five profiles.
//
//	S0: plaintext, no auth
//	S1: TLS
//	S2: TLS + JWT + per-method scope policy
//	S3: TLS + mTLS
//	S4: TLS + mTLS + JWT + per-method scope policy
const (
	S0 Profile = "S0"
	S1 Profile = "S1"
	S2 Profile = "S2"
	S3 Profile = "S3"
	S4 Profile = "S4"
)

// Parse resolves a raw profile string. It is total: empty, whitespace-only
// or unrecognized input resolves to S0, the least restrictive profile.
// Callers that need to distinguish "explicitly S0" from "coerced to S0"
// should use TryParse.
func Parse(raw string) Profile {
	p, _ := TryParse(raw)
	return p
}

// TryParse resolves a raw profile string, reporting whether the input was
// recognized. Matching is case-insensitive and ignores surrounding
// whitespace; empty input is recognized as S0.
func TryParse(raw string) (Profile, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return S0, true
	}

	switch Profile(strings.ToUpper(trimmed)) {
	case S0:
		return S0, true
	case S1:
		return S1, true
	case S2:
		return S2, true
	case S3:
		return S3, true
	case S4:
		return S4, true
	default:
		return S0, false
	}
}

// String returns the canonical profile name.
func (p Profile) String() string {
	return string(p)
}

// RequiresHTTPS reports whether listeners must terminate TLS.
func (p Profile) RequiresHTTPS() bool {
	return p != S0
}

// RequiresMTLS reports whether listeners must demand and validate a client
// certificate. Implies RequiresHTTPS.
func (p Profile) RequiresMTLS() bool {
	return p == S3 || p == S4
}

// RequiresJWT reports whether requests must carry a valid bearer token.
// Implies RequiresHTTPS.
func (p Profile) RequiresJWT() bool {
	return p == S2 || p == S4
}

// RequiresPerMethodPolicies reports whether each operation enforces its
// declared scope. Holds exactly when RequiresJWT holds.
func (p Profile) RequiresPerMethodPolicies() bool {
	return p.RequiresJWT()
}

package authserver

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	bencherrors "github.com/nemanja87/master-thesis-bench-runner/pkg/errors"
)

// The single static client the benchmark runner authenticates as.
const (
	benchClientID     = "bench-runner"
	benchClientSecret = "bench-runner-secret"
)

const tokenLifetime = time.Hour

// allowedScopes is the full scope allow-list for the bench client.
var allowedScopes = []string{"orders.read", "orders.write", "inventory.write"}

// tokenAudiences are the services that accept the issued token.
var tokenAudiences = []string{"gateway", "orderservice", "inventoryservice"}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}

type oauthErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, bencherrors.OAuthInvalidRequest, "malformed form body")
		return
	}

	if grant := r.PostForm.Get("grant_type"); grant != "client_credentials" {
		s.logger.Warn("token request with unsupported grant", "grant_type", grant)
		writeOAuthError(w, http.StatusBadRequest, bencherrors.OAuthUnsupportedGrantType, "only client_credentials is supported")
		return
	}

	clientID := r.PostForm.Get("client_id")
	clientSecret := r.PostForm.Get("client_secret")
	if !validClient(clientID, clientSecret) {
		s.logger.Warn("token request with invalid client", "client_id", clientID)
		writeOAuthError(w, http.StatusUnauthorized, bencherrors.OAuthInvalidClient, "client authentication failed")
		return
	}

	granted := grantScopes(r.PostForm.Get("scope"))
	token, err := s.issueToken(clientID, granted)
	if err != nil {
		s.logger.Error("token signing failed", "error", err)
		http.Error(w, "token signing failed", http.StatusInternalServerError)
		return
	}

	s.logger.Info("token issued", "client_id", clientID, "scope", strings.Join(granted, " "))
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(tokenLifetime.Seconds()),
		Scope:       strings.Join(granted, " "),
	})
}

func validClient(id, secret string) bool {
	idOK := subtle.ConstantTimeCompare([]byte(id), []byte(benchClientID)) == 1
	secretOK := subtle.ConstantTimeCompare([]byte(secret), []byte(benchClientSecret)) == 1
	return idOK && secretOK
}

// grantScopes intersects the requested scopes, as a set, with the
// allow-list. An empty intersection (nothing requested, or nothing
// recognized) grants the full allow-list so a bare token request still
// exercises every endpoint.
func grantScopes(requested string) []string {
	seen := make(map[string]bool)
	var granted []string
	for _, want := range strings.Fields(requested) {
		if seen[want] {
			continue
		}
		for _, allowed := range allowedScopes {
			if want == allowed {
				seen[want] = true
				granted = append(granted, allowed)
				break
			}
		}
	}

	if len(granted) == 0 {
		return append([]string(nil), allowedScopes...)
	}
	return granted
}

func (s *Server) issueToken(clientID string, scopes []string) (string, error) {
	now := s.now()

	claims := jwtlib.MapClaims{
		"iss":       s.authority,
		"sub":       clientID,
		"name":      clientID,
		"client_id": clientID,
		"aud":       tokenAudiences,
		"scope":     strings.Join(scopes, " "),
		"iat":       now.Unix(),
		"nbf":       now.Unix(),
		"exp":       now.Add(tokenLifetime).Unix(),
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	token.Header["kid"] = s.kid
	return token.SignedString(s.signingKey)
}

func writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, oauthErrorResponse{Error: code, Description: description})
}

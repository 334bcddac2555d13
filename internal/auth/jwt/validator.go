package jwt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	jwtlib "github.com/golang-jwt/jwt/v5"

	bencherrors "github.com/nemanja87/master-thesis-bench-runner/pkg/errors"
)

var (
	// ErrNoToken indicates no bearer token was presented.
	ErrNoToken = errors.New("no bearer token")
	// ErrKeyNotFound indicates no published key matched the token header.
	ErrKeyNotFound = errors.New("no matching signing key")
)

// ValidatorConfig holds validator configuration.
type ValidatorConfig struct {
	// Authority is the issuer base URL; tokens are accepted with the issuer
	// equal to the authority with or without a trailing slash.
	Authority string
	// Transport performs JWKS fetches; typically a backchannel transport
	// with the custom trust root and an optional client identity.
	Transport http.RoundTripper
	// Timeout bounds each JWKS fetch.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Validator validates bearer tokens against the authority's JWKS.
type Validator struct {
	authority string
	jwksURL   string
	client    *http.Client
	logger    *slog.Logger

	mu   sync.RWMutex
	keys *jose.JSONWebKeySet
}

// NewValidator creates a bearer-token validator. Call PreloadKeys once at
// startup; a failed preload is not fatal because Validate falls back to
// fetching the key set on demand.
func NewValidator(cfg ValidatorConfig) *Validator {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Validator{
		authority: cfg.Authority,
		jwksURL:   cfg.Authority + "/.well-known/jwks",
		client:    &http.Client{Transport: cfg.Transport, Timeout: timeout},
		logger:    logger,
	}
}

// PreloadKeys fetches the signing key set once. Callers log failures as
// warnings and continue; startup must not abort on an unreachable issuer.
func (v *Validator) PreloadKeys(ctx context.Context) error {
	_, err := v.fetchKeys(ctx)
	return err
}

// KeysLoaded reports whether a key set is currently cached.
func (v *Validator) KeysLoaded() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.keys != nil
}

// Validate verifies the token signature against the published keys and the
// issuer against the configured authority. Audience is not validated (the
// benchmark token binds a fixed audience set; enforcement is per-service
// scope policy instead).
func (v *Validator) Validate(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwtlib.WithExpirationRequired(),
	)

	var parsed tokenClaims
	_, err := parser.ParseWithClaims(token, &parsed, func(t *jwtlib.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return v.signingKey(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", bencherrors.ErrTokenInvalid, err)
	}

	if parsed.Issuer != v.authority && parsed.Issuer != v.authority+"/" {
		return nil, fmt.Errorf("%w: issuer %q not trusted", bencherrors.ErrTokenInvalid, parsed.Issuer)
	}

	return &Claims{
		Subject:  parsed.Subject,
		Name:     parsed.Name,
		ClientID: parsed.ClientID,
		Issuer:   parsed.Issuer,
		Scopes:   parsed.Scope,
	}, nil
}

// tokenClaims is the wire shape of the benchmark access token.
type tokenClaims struct {
	jwtlib.RegisteredClaims
	Name     string     `json:"name,omitempty"`
	ClientID string     `json:"client_id,omitempty"`
	Scope    scopeValue `json:"scope,omitempty"`
}

// signingKey returns the public key for the given kid, fetching the key set
// on demand when none is cached.
func (v *Validator) signingKey(ctx context.Context, kid string) (any, error) {
	v.mu.RLock()
	keys := v.keys
	v.mu.RUnlock()

	if keys == nil {
		fetched, err := v.fetchKeys(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", bencherrors.ErrKeySetUnavailable, err)
		}
		keys = fetched
	}

	if kid != "" {
		if matches := keys.Key(kid); len(matches) > 0 {
			return matches[0].Key, nil
		}
		return nil, ErrKeyNotFound
	}

	// No kid in the header: accept the sole published key.
	if len(keys.Keys) == 1 {
		return keys.Keys[0].Key, nil
	}
	return nil, ErrKeyNotFound
}

func (v *Validator) fetchKeys(ctx context.Context) (*jose.JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create JWKS request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch JWKS: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read JWKS response: %w", err)
	}

	var keySet jose.JSONWebKeySet
	if err := json.Unmarshal(body, &keySet); err != nil {
		return nil, fmt.Errorf("parse JWKS: %w", err)
	}

	v.mu.Lock()
	v.keys = &keySet
	v.mu.Unlock()

	v.logger.Debug("signing key set loaded", "url", v.jwksURL, "keys", len(keySet.Keys))
	return &keySet, nil
}

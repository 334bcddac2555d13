// Package tokenclient acquires client-credentials access tokens from the
// auth server and caches them until shortly before expiry. The bench
// runner uses it to stamp workload requests under JWT profiles.
package tokenclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// expirySkew refreshes tokens this long before they actually expire.
const expirySkew = 30 * time.Second

// Config holds token acquisition settings.
type Config struct {
	// TokenURL is the full token endpoint URL.
	TokenURL     string
	ClientID     string
	ClientSecret string
	// Scope is the requested scope set, space-delimited; empty requests the
	// issuer's full grant.
	Scope string
	// Transport carries the profile's trust rules.
	Transport http.RoundTripper
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Client fetches and caches access tokens.
type Client struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// New creates a token client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Transport: cfg.Transport, Timeout: timeout},
		logger: logger,
	}
}

// Token returns a valid access token, fetching a fresh one when the cached
// token is absent or within the expiry skew.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiry.Add(-expirySkew)) {
		return c.token, nil
	}

	token, expiresIn, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}

	c.token = token
	c.expiry = time.Now().Add(expiresIn)
	c.logger.Debug("access token refreshed", "expires_in", expiresIn)
	return token, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type tokenError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (c *Client) fetch(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	if c.cfg.Scope != "" {
		form.Set("scope", c.cfg.Scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var oauthErr tokenError
		if json.Unmarshal(body, &oauthErr) == nil && oauthErr.Code != "" {
			return "", 0, fmt.Errorf("token endpoint returned %s: %s", oauthErr.Code, oauthErr.Description)
		}
		return "", 0, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", 0, fmt.Errorf("parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", 0, fmt.Errorf("token response missing access_token")
	}

	return tr.AccessToken, time.Duration(tr.ExpiresIn) * time.Second, nil
}

// Package errors defines custom error types shared by the bench services.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error cases.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("access forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrCertificateInvalid = errors.New("certificate invalid")
	ErrCertificateMissing = errors.New("certificate not found")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrKeySetUnavailable  = errors.New("signing key set unavailable")
)

// OAuth2 error codes returned by the token endpoint.
const (
	OAuthInvalidClient        = "invalid_client"
	OAuthInvalidRequest       = "invalid_request"
	OAuthUnsupportedGrantType = "unsupported_grant_type"
)

// OAuthError is an OAuth2-style error carrying the wire-level error code.
type OAuthError struct {
	Code        string
	Description string
}

func (e *OAuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// NewOAuthError creates an OAuth2-style error.
func NewOAuthError(code, description string) *OAuthError {
	return &OAuthError{Code: code, Description: description}
}

// ConfigError represents a fatal startup misconfiguration. Services refuse
// to start on these; they are never retried.
type ConfigError struct {
	Key   string
	Cause error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for '%s': %v", e.Key, e.Cause)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a configuration error.
func NewConfigError(key string, cause error) *ConfigError {
	return &ConfigError{Key: key, Cause: cause}
}

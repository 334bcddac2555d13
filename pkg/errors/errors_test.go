// Package errors_test verifies the error types.
package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemanja87/master-thesis-bench-runner/pkg/errors"
)

func TestOAuthError(t *testing.T) {
	err := errors.NewOAuthError(errors.OAuthInvalidClient, "Unknown client_id.")
	require.Error(t, err)
	assert.Equal(t, "invalid_client: Unknown client_id.", err.Error())
	assert.Equal(t, errors.OAuthInvalidClient, err.Code)
}

func TestConfigErrorUnwrap(t *testing.T) {
	err := errors.NewConfigError("tls.server_cert_path", errors.ErrCertificateMissing)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrCertificateMissing))
	assert.Contains(t, err.Error(), "tls.server_cert_path")
}

func TestSentinelsAreDistinct(t *testing.T) {
	assert.NotErrorIs(t, errors.ErrUnauthorized, errors.ErrForbidden)
	assert.NotErrorIs(t, errors.ErrNotFound, errors.ErrInvalidInput)
}

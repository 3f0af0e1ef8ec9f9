package cli

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"indiestream/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ConnectionErrorType
	}{
		{"tls", errors.New("x509: certificate signed by unknown authority"), ConnectionErrorTLS},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.example.com"}, ConnectionErrorDNS},
		{"timeout", errors.New("context deadline exceeded"), ConnectionErrorTimeout},
		{"refused", errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), ConnectionErrorNetwork},
		{"unknown", errors.New("boom"), ConnectionErrorUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyConnectionError(tt.err, "https://api.example.com")
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Type)
			assert.ErrorIs(t, got, tt.err)
			assert.Contains(t, got.Error(), "https://api.example.com")
		})
	}

	assert.Nil(t, ClassifyConnectionError(nil, "x"))
}

func TestAuthErrors(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &AuthRequiredError{Route: "upload"})
	assert.ErrorIs(t, err, &AuthRequiredError{})
	assert.Contains(t, err.Error(), "Authentication required for upload")
	assert.Contains(t, err.Error(), "indiestream auth login")

	cause := errors.New("state mismatch")
	failed := &AuthFailedError{Reason: cause}
	assert.ErrorIs(t, failed, cause)
	assert.ErrorIs(t, failed, &AuthFailedError{})
	assert.NotErrorIs(t, failed, &AuthRequiredError{})
}

func TestFriendlyError(t *testing.T) {
	endpoint := "https://api.example.com"

	t.Run("unreachable becomes connection error", func(t *testing.T) {
		err := FriendlyError(&catalog.TransportError{Op: "list", Err: errors.New("connection refused")}, endpoint)
		var connErr *ConnectionError
		require.ErrorAs(t, err, &connErr)
		assert.Equal(t, ConnectionErrorNetwork, connErr.Type)
	})

	t.Run("unauthorized becomes auth required", func(t *testing.T) {
		err := FriendlyError(&catalog.TransportError{Op: "list", StatusCode: http.StatusUnauthorized}, endpoint)
		assert.ErrorIs(t, err, &AuthRequiredError{})
	})

	t.Run("other errors pass through", func(t *testing.T) {
		orig := &catalog.TransportError{Op: "get", StatusCode: http.StatusNotFound}
		assert.Same(t, orig, FriendlyError(orig, endpoint))

		plain := errors.New("plain")
		assert.Same(t, plain, FriendlyError(plain, endpoint))
	})
}

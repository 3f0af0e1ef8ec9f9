package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_RoundTrip(t *testing.T) {
	tests := []string{
		"dashboard",
		"/upload?title=My Game",
		"account;with;separators",
		"",
	}
	for _, destination := range tests {
		t.Run(destination, func(t *testing.T) {
			s, err := NewState(destination)
			require.NoError(t, err)
			require.NotEmpty(t, s.Nonce)

			decoded, err := DecodeState(s.Encode())
			require.NoError(t, err)
			assert.Equal(t, s.Nonce, decoded.Nonce)
			assert.Equal(t, destination, decoded.Destination)
		})
	}
}

func TestDecodeState_Errors(t *testing.T) {
	_, err := DecodeState("")
	assert.Error(t, err)

	_, err = DecodeState(";dashboard")
	assert.Error(t, err)

	_, err = DecodeState("nonce;%zz")
	assert.Error(t, err)
}

func TestGenerateNonce_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		n, err := GenerateNonce()
		require.NoError(t, err)
		assert.Len(t, n, 43)
		assert.False(t, seen[n], "nonce repeated")
		seen[n] = true
	}
}

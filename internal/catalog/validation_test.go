package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Validate(t *testing.T) {
	v, err := NewValidator(nil, 1024)
	require.NoError(t, err)

	rom := []byte("rom-bytes")
	tests := []struct {
		name      string
		req       UploadRequest
		wantField string
	}{
		{"valid", UploadRequest{Title: "MyGame", Filename: "myrom.gba", File: rom}, ""},
		{"uppercase extension", UploadRequest{Title: "my-game_2", Filename: "MYROM.GBA", File: rom}, ""},
		{"disallowed extension", UploadRequest{Title: "MyGame", Filename: "myrom.exe", File: rom}, "filename"},
		{"no extension", UploadRequest{Title: "MyGame", Filename: "myrom", File: rom}, "filename"},
		{"path in filename", UploadRequest{Title: "MyGame", Filename: "../myrom.gba", File: rom}, "filename"},
		{"long filename", UploadRequest{Title: "MyGame", Filename: strings.Repeat("a", 252) + ".gba", File: rom}, "filename"},
		{"missing title", UploadRequest{Filename: "myrom.gba", File: rom}, "title"},
		{"title with space", UploadRequest{Title: "My Game", Filename: "myrom.gba", File: rom}, "title"},
		{"title starts with dash", UploadRequest{Title: "-game", Filename: "myrom.gba", File: rom}, "title"},
		{"long title", UploadRequest{Title: strings.Repeat("a", 65), Filename: "myrom.gba", File: rom}, "title"},
		{"missing file", UploadRequest{Title: "MyGame", Filename: "myrom.gba"}, "file"},
		{"empty file", UploadRequest{Title: "MyGame", Filename: "myrom.gba", File: []byte{}}, "file"},
		{"file too large", UploadRequest{Title: "MyGame", Filename: "myrom.gba", File: make([]byte, 1025)}, "file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			_, ok := verr.Field(tt.wantField)
			assert.True(t, ok, "expected an error for %s, got %v", tt.wantField, verr)
		})
	}
}

func TestValidator_ExtensionMessage(t *testing.T) {
	v, err := NewValidator([]string{".GBA", ".nes"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{".gba", ".nes"}, v.AllowedExtensions())

	err = v.Validate(UploadRequest{Title: "MyGame", Filename: "myrom.exe", File: []byte{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `".exe"`)
	assert.Contains(t, err.Error(), ".gba .nes")
}

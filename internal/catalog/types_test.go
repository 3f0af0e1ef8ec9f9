package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"New", StatusPending},
		{"installing", StatusProcessing},
		{"installed", StatusReady},
		{"error", StatusFailed},
		{"ready", StatusReady},
		{"PROCESSING", StatusProcessing},
		{"", StatusPending},
		{"bogus", StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStatus(tt.in))
		})
	}
}

func TestEntry_DecodeWireStatus(t *testing.T) {
	var entries []Entry
	data := `[{"id":"1","title":"A","status":"installing","url":""},
	          {"id":"2","title":"B","status":"installed","url":"https://x/2"}]`
	require.NoError(t, json.Unmarshal([]byte(data), &entries))

	require.Len(t, entries, 2)
	assert.Equal(t, StatusProcessing, entries[0].Status)
	assert.False(t, entries[0].Complete())
	assert.True(t, entries[0].needsReconcile())

	assert.Equal(t, StatusReady, entries[1].Status)
	assert.True(t, entries[1].Complete())
	assert.True(t, entries[1].Status.Terminal())
}

func TestEntry_FailedIsNotReconciled(t *testing.T) {
	e := Entry{ID: "1", Status: StatusFailed}
	assert.False(t, e.needsReconcile())
}

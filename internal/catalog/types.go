package catalog

import (
	"encoding/json"
	"strings"
)

// Status is the processing state of a catalog entry.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// legacyStatuses maps the values the catalog API sends on the wire.
var legacyStatuses = map[string]Status{
	"new":        StatusPending,
	"installing": StatusProcessing,
	"installed":  StatusReady,
	"error":      StatusFailed,
}

// ParseStatus normalizes a wire status. Unknown values are pending.
func ParseStatus(s string) Status {
	s = strings.ToLower(strings.TrimSpace(s))
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusReady, StatusFailed:
		return Status(s)
	}
	if st, ok := legacyStatuses[s]; ok {
		return st
	}
	return StatusPending
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}

// Terminal reports whether processing has finished.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// Entry is a game in the catalog.
type Entry struct {
	ID     string `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	Status Status `json:"status" yaml:"status"`
	URL    string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Complete reports whether the entry has a playable URL.
func (e Entry) Complete() bool {
	return e.URL != ""
}

// needsReconcile reports whether the entry should be polled.
func (e Entry) needsReconcile() bool {
	return !e.Complete() && e.Status != StatusFailed
}

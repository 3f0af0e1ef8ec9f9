// Package strings holds text helpers for terminal output.
package strings

import (
	"strings"
)

// MaxMessageLen bounds server-provided messages shown to the user.
const MaxMessageLen = 200

// MinTruncateLen is the smallest maxLen that leaves room for content and
// the ellipsis. Smaller values are clamped.
const MinTruncateLen = 4

const ellipsis = "..."

// SingleLine collapses all whitespace runs, including newlines, into single
// spaces.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate returns s on a single line, cut to maxLen runes with a trailing
// "..." when it is longer.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}
	runes := []rune(SingleLine(s))
	if len(runes) <= maxLen {
		return string(runes)
	}
	return string(runes[:maxLen-len(ellipsis)]) + ellipsis
}

// TruncateMiddle shortens s to maxLen runes by replacing its middle with
// "...". The start keeps about 60% of the room, the rest goes to the end,
// so file extensions and URL tails survive.
func TruncateMiddle(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}
	runes := []rune(SingleLine(s))
	if len(runes) <= maxLen {
		return string(runes)
	}
	available := maxLen - len(ellipsis)
	head := (available * 3) / 5
	tail := available - head
	return string(runes[:head]) + ellipsis + string(runes[len(runes)-tail:])
}

package agent

import (
	"strings"
	"unicode/utf8"
)

// maxToolResult is the per-result character budget kept in session
// history and the model context. Results beyond it are cut and marked.
const maxToolResult = 2000

// truncationSuffix marks a cut result. Its presence makes truncation
// idempotent: an already-truncated value passes through unchanged.
const truncationSuffix = "\n...(output truncated due to length)..."

// truncateResult enforces the tool result budget. Counting is by rune
// so multibyte text is not cut mid-character.
func truncateResult(s string) string {
	if prefix, ok := strings.CutSuffix(s, truncationSuffix); ok {
		if utf8.RuneCountInString(prefix) <= maxToolResult {
			return s
		}
	}
	if utf8.RuneCountInString(s) <= maxToolResult {
		return s
	}

	runes := []rune(s)
	return string(runes[:maxToolResult]) + truncationSuffix
}

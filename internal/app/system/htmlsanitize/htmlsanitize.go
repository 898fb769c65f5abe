// Package htmlsanitize strips markup from user-entered free text.
//
// Report purposes and descriptions are plain text; anything that looks
// like HTML in them is hostile or accidental either way, so the strict
// policy removes it entirely before storage.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Strip removes all HTML tags and dangerous content, returning the bare
// text. Plain input passes through unchanged.
func Strip(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}

// IsPlainText reports whether the input contains no markup at all.
func IsPlainText(s string) bool {
	return strict.Sanitize(s) == s
}

package wizard

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxSanitizePasses bounds how many layers of entity encoding are peeled off.
const maxSanitizePasses = 4

// textSanitizer strips all markup from user-edited review text.
type textSanitizer struct {
	policy *bluemonday.Policy
}

func newTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean removes HTML tags and returns plain text, so "R&D" survives unescaped.
// Entity-encoded markup is decoded before sanitising, and the result never
// contains a '<'.
func (s *textSanitizer) Clean(input string) string {
	out := input
	for range maxSanitizePasses {
		if !strings.ContainsAny(out, "<>&") {
			return out
		}
		next := html.UnescapeString(s.policy.Sanitize(html.UnescapeString(out)))
		if next == out {
			break
		}
		out = next
	}
	return strings.ReplaceAll(out, "<", "")
}

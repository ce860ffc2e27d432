// Package tokenize splits identifiers and free text into lower-case words.
package tokenize

import (
	"strings"
	"unicode"
)

// Words lower-cases text and splits it on non-alphanumerics and camelCase
// boundaries: "UserService.get_by-id" yields user, service, get, by, id.
// A run of capitals followed by a lower-case letter starts a new word at
// the last capital ("HTTPServer" yields http, server).
func Words(text string) []string {
	var out []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	runes := []rune(text)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return out
}

// BaseName returns the file name of a slash-separated path without its
// extensions ("src/user.controller.ts" yields "user.controller").
func BaseName(path string) string {
	base := path[strings.LastIndex(path, "/")+1:]
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return base
}

package text

import (
	"regexp"
	"strings"
)

var horizontalSpaceRe = regexp.MustCompile(`[ \t]+`)

// Normalize prepares captured text for speech generation.
//
// Soft-wrapped lines inside a paragraph are joined: a newline that is neither
// preceded nor followed by another newline becomes a space, while blank-line
// paragraph breaks survive. Runs of spaces and tabs collapse to a single space
// and the result is trimmed. The second return value is false when there is
// nothing left to speak.
func Normalize(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}

	out := joinSoftBreaks(raw)
	out = horizontalSpaceRe.ReplaceAllString(out, " ")
	out = strings.TrimSpace(out)
	if out == "" {
		return "", false
	}
	return out, true
}

// joinSoftBreaks replaces every isolated '\n' with a space.
func joinSoftBreaks(s string) string {
	if strings.IndexByte(s, '\n') < 0 {
		return s
	}
	b := []byte(s)
	for i, c := range b {
		if c != '\n' {
			continue
		}
		// neighbours are read from the original string so earlier
		// replacements cannot turn a paragraph break into a lone newline
		prevNL := i > 0 && s[i-1] == '\n'
		nextNL := i+1 < len(s) && s[i+1] == '\n'
		if !prevNL && !nextNL {
			b[i] = ' '
		}
	}
	return string(b)
}

// CountNewlines reports how many '\n' characters s holds.
func CountNewlines(s string) int {
	return strings.Count(s, "\n")
}

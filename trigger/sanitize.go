package trigger

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxFilenameBytes = 255

var (
	reservedName    = regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[0-9]|lpt[0-9])(\..*)?$`)
	trailingDotsSps = regexp.MustCompile(`[. ]+$`)
)

// SanitizeFilename makes s safe to use as a single path element. It removes
// path separators, characters Windows rejects and control characters, drops
// reserved device names and trailing dots or spaces, and truncates to 255
// bytes.
func SanitizeFilename(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/?<>\:*|"`, r):
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()

	if out == "." || out == ".." || reservedName.MatchString(out) {
		return ""
	}
	out = trailingDotsSps.ReplaceAllString(out, "")
	return truncateUTF8(out, maxFilenameBytes)
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// safeName is SanitizeFilename with a fallback for names that sanitize to
// nothing, such as "CON" or "..". Distinct names that share a fallback also
// share its files.
func safeName(s, fallback string) string {
	if name := SanitizeFilename(s); name != "" {
		return name
	}
	return fallback
}

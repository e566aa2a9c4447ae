package textutil

import "strings"

const maxFileNameLength = 100

// SanitizeFileName converts a display title into a filesystem-safe name.
// Reserved characters are removed, whitespace runs become single hyphens,
// hyphen runs collapse, and the result is capped at 100 characters. Returns
// "untitled" when nothing survives.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastHyphen := false
	for _, r := range name {
		switch {
		case r == '<' || r == '>' || r == ':' || r == '"' || r == '/' || r == '\\' || r == '|' || r == '?' || r == '*':
			continue
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '-':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		default:
			b.WriteRune(r)
			lastHyphen = false
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > maxFileNameLength {
		cut := maxFileNameLength
		for cut > 0 && !isRuneStart(out[cut]) {
			cut--
		}
		out = strings.Trim(out[:cut], "-")
	}
	if out == "" {
		return "untitled"
	}
	return out
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// SlugToken converts a string to a lowercase underscore-separated token.
// Runs of non-alphanumeric characters collapse to a single underscore and
// the result is capped at maxLength bytes. Returns "unknown" for empty input.
func SlugToken(value string, maxLength int) string {
	var b strings.Builder
	b.Grow(len(value))
	lastUnderscore := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if maxLength > 0 && len(out) > maxLength {
		out = strings.Trim(out[:maxLength], "_")
	}
	if out == "" {
		return "unknown"
	}
	return out
}

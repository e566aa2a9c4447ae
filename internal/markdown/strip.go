package markdown

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]+>`)
	h1Pattern    = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
)

// StripTags removes markup and decodes entities, leaving plain text. Used for
// question stems and title extraction where markdown structure is unwanted.
func StripTags(htmlText string) string {
	text := tagPattern.ReplaceAllString(htmlText, "")
	return strings.TrimSpace(html.UnescapeString(text))
}

// ExtractTitle pulls a display title out of an HTML document, preferring the
// first h1 over the head title. Returns "" when neither is present.
func ExtractTitle(htmlContent string) string {
	if htmlContent == "" {
		return ""
	}
	if m := h1Pattern.FindStringSubmatch(htmlContent); m != nil {
		if title := StripTags(m[1]); title != "" {
			return title
		}
	}
	if m := titlePattern.FindStringSubmatch(htmlContent); m != nil {
		if title := StripTags(m[1]); title != "" {
			return title
		}
	}
	return ""
}

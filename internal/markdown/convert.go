package markdown

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/wwcc-dale/zaphod/internal/services"
)

// Converter turns cartridge HTML payloads into markdown bodies.
type Converter struct {
	impl *md.Converter
}

// NewConverter builds a converter with repository settings.
func NewConverter() *Converter {
	return &Converter{impl: md.NewConverter("", true, nil)}
}

// Convert renders HTML as markdown and normalizes the output. Empty or
// whitespace-only input yields an empty string without error.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}
	out, err := c.impl.ConvertString(html)
	if err != nil {
		return "", services.Wrap(services.ErrTransform, "markdown", "convert", "html conversion failed", err)
	}
	return Cleanup(out), nil
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Cleanup normalizes converter output: CRLF to LF, trailing whitespace
// stripped per line, runs of blank lines collapsed to one, and the whole
// string trimmed.
func Cleanup(markdown string) string {
	if markdown == "" {
		return ""
	}
	markdown = strings.ReplaceAll(markdown, "\r\n", "\n")
	markdown = blankRuns.ReplaceAllString(markdown, "\n\n")
	lines := strings.Split(markdown, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

package textutil_test

import (
	"strings"
	"testing"

	"github.com/wwcc-dale/zaphod/internal/textutil"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Welcome Page", "Welcome-Page"},
		{"reserved chars", `What: "is" <this>?`, "What-is-this"},
		{"slashes", "a/b\\c", "abc"},
		{"collapse hyphens", "a  -  b", "a-b"},
		{"trim", "  -hello-  ", "hello"},
		{"empty", "???", "untitled"},
		{"unicode kept", "Café Münster", "Café-Münster"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := textutil.SanitizeFileName(tt.in); got != tt.want {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeFileNameCapsLength(t *testing.T) {
	long := strings.Repeat("x", 150)
	got := textutil.SanitizeFileName(long)
	if len(got) != 100 {
		t.Fatalf("expected 100 chars, got %d", len(got))
	}
}

func TestSlugToken(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"lowercases", "Essay Rubric", 40, "essay_rubric"},
		{"collapses runs", "A -- B!!C", 40, "a_b_c"},
		{"trims underscores", "--grade--", 40, "grade"},
		{"caps length", "abcdefghij", 5, "abcde"},
		{"empty", "!!!", 40, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := textutil.SlugToken(tt.in, tt.max); got != tt.want {
				t.Fatalf("SlugToken(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"archive path", "/imports/bio-101_export.imscc", "Bio 101 Export"},
		{"identifier", "wk_02_overview", "Wk 02 Overview"},
		{"empty", "", "Untitled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := textutil.DeriveTitle(tt.in); got != tt.want {
				t.Fatalf("DeriveTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

package services_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/wwcc-dale/zaphod/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransform, "transformer", "parse qti", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransform) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transformer", "parse qti", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "transformer", "parse", "bad", nil)
	if !errors.Is(err, services.ErrTransform) {
		t.Fatalf("expected default transform marker, got %v", err)
	}
}

func TestClassifyFailureLabels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"security", services.Wrap(services.ErrSecurity, "extractor", "extract", "too big", nil), "security"},
		{"structural", services.Wrap(services.ErrStructural, "manifest", "parse", "missing", nil), "structural"},
		{"registry", services.Wrap(services.ErrRegistry, "registry", "save", "locked", nil), "registry"},
		{"unmarked", errors.New("boom"), "failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.ClassifyFailure(tt.err); got != tt.want {
				t.Fatalf("ClassifyFailure(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsFatalClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil", nil, false},
		{"security", services.Wrap(services.ErrSecurity, "extractor", "extract", "too big", nil), true},
		{"structural", services.Wrap(services.ErrStructural, "manifest", "parse", "missing", nil), true},
		{"configuration", services.Wrap(services.ErrConfiguration, "config", "validate", "bad", nil), true},
		{"transform", services.Wrap(services.ErrTransform, "transformer", "page", "bad html", nil), false},
		{"registry", services.Wrap(services.ErrRegistry, "registry", "load", "corrupt", nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.IsFatal(tt.err); got != tt.fatal {
				t.Fatalf("IsFatal(%v) = %v, want %v", tt.err, got, tt.fatal)
			}
		})
	}
}

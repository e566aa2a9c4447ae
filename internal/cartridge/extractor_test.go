package cartridge_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wwcc-dale/zaphod/internal/cartridge"
	"github.com/wwcc-dale/zaphod/internal/config"
	"github.com/wwcc-dale/zaphod/internal/logging"
	"github.com/wwcc-dale/zaphod/internal/services"
)

type archiveMember struct {
	name    string
	content string
}

func writeTestArchive(t *testing.T, members []archiveMember) string {
	t.Helper()
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for _, member := range members {
		entry, err := writer.Create(member.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := entry.Write([]byte(member.content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "course.imscc")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractUnpacksArchive(t *testing.T) {
	archive := writeTestArchive(t, []archiveMember{
		{name: "imsmanifest.xml", content: "<manifest/>"},
		{name: "wiki_content/welcome.html", content: "<p>Hello</p>"},
	})
	dest := filepath.Join(t.TempDir(), "scratch")

	extractor := cartridge.NewExtractor(config.Default().Archive, logging.NewNop())
	if err := extractor.Extract(context.Background(), archive, dest); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dest, "wiki_content", "welcome.html"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "<p>Hello</p>" {
		t.Fatalf("content mismatch: %q", got)
	}
}

func TestExtractRejectsTooManyMembers(t *testing.T) {
	archive := writeTestArchive(t, []archiveMember{
		{name: "a.txt", content: "a"},
		{name: "b.txt", content: "b"},
	})
	dest := filepath.Join(t.TempDir(), "scratch")

	cfg := config.Default().Archive
	cfg.MaxMembers = 1
	extractor := cartridge.NewExtractor(cfg, logging.NewNop())

	err := extractor.Extract(context.Background(), archive, dest)
	if err == nil {
		t.Fatal("expected member count violation")
	}
	if !errors.Is(err, services.ErrSecurity) {
		t.Fatalf("expected security error, got %v", err)
	}
	if !services.IsFatal(err) {
		t.Fatal("count violation must be fatal")
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatal("scratch directory survived a fatal violation")
	}
}

func TestExtractRejectsOversizedArchive(t *testing.T) {
	archive := writeTestArchive(t, []archiveMember{
		{name: "big.txt", content: strings.Repeat("x", 4096)},
	})
	dest := filepath.Join(t.TempDir(), "scratch")

	cfg := config.Default().Archive
	cfg.MaxTotalBytes = 1024
	extractor := cartridge.NewExtractor(cfg, logging.NewNop())

	err := extractor.Extract(context.Background(), archive, dest)
	if err == nil {
		t.Fatal("expected aggregate size violation")
	}
	if !errors.Is(err, services.ErrSecurity) {
		t.Fatalf("expected security error, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatal("scratch directory survived a fatal violation")
	}
}

func TestExtractSkipsOversizedMember(t *testing.T) {
	archive := writeTestArchive(t, []archiveMember{
		{name: "small.txt", content: "ok"},
		{name: "large.txt", content: strings.Repeat("x", 2048)},
	})
	dest := filepath.Join(t.TempDir(), "scratch")

	cfg := config.Default().Archive
	cfg.MaxMemberBytes = 1024
	extractor := cartridge.NewExtractor(cfg, logging.NewNop())

	if err := extractor.Extract(context.Background(), archive, dest); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "small.txt")); err != nil {
		t.Fatalf("small member missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "large.txt")); !os.IsNotExist(err) {
		t.Fatal("oversized member was extracted")
	}
}

func TestExtractSkipsSuspiciousCompression(t *testing.T) {
	// Highly repetitive content deflates far beyond the tightened ratio.
	archive := writeTestArchive(t, []archiveMember{
		{name: "normal.html", content: "<p>Hello there, course.</p>"},
		{name: "bomb.txt", content: strings.Repeat("a", 64*1024)},
	})
	dest := filepath.Join(t.TempDir(), "scratch")

	cfg := config.Default().Archive
	cfg.MaxCompressionRatio = 5
	extractor := cartridge.NewExtractor(cfg, logging.NewNop())

	if err := extractor.Extract(context.Background(), archive, dest); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "normal.html")); err != nil {
		t.Fatalf("normal member missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "bomb.txt")); !os.IsNotExist(err) {
		t.Fatal("suspicious member was extracted")
	}
}

func TestExtractSkipsUnsafePaths(t *testing.T) {
	parent := t.TempDir()
	dest := filepath.Join(parent, "scratch")

	archive := writeTestArchive(t, []archiveMember{
		{name: "../escape.txt", content: "evil"},
		{name: "/absolute.txt", content: "evil"},
		{name: "c:drive.txt", content: "evil"},
		{name: "nested/../../sneaky.txt", content: "evil"},
		{name: "reserved<name>.txt", content: "evil"},
		{name: "safe.txt", content: "fine"},
	})

	extractor := cartridge.NewExtractor(config.Default().Archive, logging.NewNop())
	if err := extractor.Extract(context.Background(), archive, dest); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dest, "safe.txt")); err != nil {
		t.Fatalf("safe member missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(parent, "escape.txt")); !os.IsNotExist(err) {
		t.Fatal("member escaped the destination directory")
	}
	if _, err := os.Stat(filepath.Join(parent, "sneaky.txt")); !os.IsNotExist(err) {
		t.Fatal("parent-segment member escaped the destination directory")
	}

	entries, err := os.ReadDir(dest)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "safe.txt" {
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		t.Fatalf("unexpected extracted entries: %v", names)
	}
}

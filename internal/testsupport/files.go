package testsupport

import (
	"archive/zip"
	"os"
	"sort"
	"testing"
)

// BuildArchive writes a zip archive at path from the given member set,
// adding members in sorted order so fixtures are deterministic.
func BuildArchive(t testing.TB, path string, files map[string]string) string {
	t.Helper()

	archive, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}

	zw := zip.NewWriter(archive)
	members := make([]string, 0, len(files))
	for member := range files {
		members = append(members, member)
	}
	sort.Strings(members)
	for _, member := range members {
		w, err := zw.Create(member)
		if err != nil {
			t.Fatalf("add member %s: %v", member, err)
		}
		if _, err := w.Write([]byte(files[member])); err != nil {
			t.Fatalf("write member %s: %v", member, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	if err := archive.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

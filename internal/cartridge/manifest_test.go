package cartridge_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/wwcc-dale/zaphod/internal/cartridge"
	"github.com/wwcc-dale/zaphod/internal/logging"
	"github.com/wwcc-dale/zaphod/internal/services"
)

const manifestTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<manifest identifier="man_1"%s>
  <organizations>
    <organization identifier="org_1">
      <item identifier="mod_a">
        <title>Module A</title>
        <item identifier="itm_1" identifierref="res_page">
          <title>Welcome</title>
        </item>
        <item identifier="itm_2" identifierref="res_quiz">
          <title>Check In</title>
        </item>
      </item>
      <item identifier="mod_b">
        <item identifier="itm_3" identifierref="res_asset"/>
      </item>
    </organization>
  </organizations>
  <resources>
    <resource identifier="res_page" type="webcontent" href="wiki_content/welcome.html">
      <file href="wiki_content/welcome.html"/>
    </resource>
    <resource identifier="res_quiz" type="imsqti_xmlv1p2/imscc_xmlv1p1/assessment">
      <file href="res_quiz/assessment.xml"/>
      <file href="res_quiz/assessment_meta.xml"/>
    </resource>
    <resource identifier="res_asset" type="webcontent" href="web_resources/assets/logo.png">
      <file href="web_resources/assets/logo.png"/>
    </resource>
    <resource type="webcontent" href="orphan.html"/>
  </resources>
</manifest>`

func writeManifest(t *testing.T, namespace string) string {
	t.Helper()
	dir := t.TempDir()
	declaration := ""
	if namespace != "" {
		declaration = fmt.Sprintf(" xmlns=%q", namespace)
	}
	doc := fmt.Sprintf(manifestTemplate, declaration)
	if err := os.WriteFile(filepath.Join(dir, cartridge.ManifestFileName), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestParseManifestNamespaceFallback(t *testing.T) {
	namespaces := map[string]string{
		"v1p3": "http://www.imsglobal.org/xsd/imsccv1p3/imscp_v1p1",
		"v1p2": "http://www.imsglobal.org/xsd/imsccv1p2/imscp_v1p1",
		"v1p1": "http://www.imsglobal.org/xsd/imscp_v1p1",
		"none": "",
	}

	for name, namespace := range namespaces {
		t.Run(name, func(t *testing.T) {
			dir := writeManifest(t, namespace)

			manifest, err := cartridge.ParseManifest(dir, logging.NewNop())
			if err != nil {
				t.Fatalf("ParseManifest: %v", err)
			}

			if got := len(manifest.Resources); got != 3 {
				t.Fatalf("expected 3 resources, got %d", got)
			}
			if got := len(manifest.Modules); got != 2 {
				t.Fatalf("expected 2 modules, got %d", got)
			}

			modA := manifest.Modules[0]
			if modA.Title != "Module A" || modA.Position != 0 {
				t.Fatalf("unexpected first module: %+v", modA)
			}
			if len(modA.Items) != 2 || modA.Items[0] != "res_page" || modA.Items[1] != "res_quiz" {
				t.Fatalf("unexpected module items: %v", modA.Items)
			}

			modB := manifest.Modules[1]
			if modB.Title != "mod_b" {
				t.Fatalf("expected title fallback to identifier, got %q", modB.Title)
			}
			if modB.Position != 1 {
				t.Fatalf("expected position 1, got %d", modB.Position)
			}

			page, ok := manifest.Resource("res_page")
			if !ok {
				t.Fatal("res_page not found")
			}
			if page.Title != "Welcome" {
				t.Fatalf("expected organization title backfill, got %q", page.Title)
			}
			if page.Href != "wiki_content/welcome.html" {
				t.Fatalf("unexpected href %q", page.Href)
			}

			quiz, _ := manifest.Resource("res_quiz")
			want := []string{"res_quiz/assessment.xml", "res_quiz/assessment_meta.xml"}
			if len(quiz.Files) != len(want) || quiz.Files[0] != want[0] || quiz.Files[1] != want[1] {
				t.Fatalf("file order not preserved: %v", quiz.Files)
			}
		})
	}
}

func TestParseManifestMissingFile(t *testing.T) {
	dir := t.TempDir()

	_, err := cartridge.ParseManifest(dir, logging.NewNop())
	if err == nil {
		t.Fatal("expected error for missing manifest")
	}
	if !errors.Is(err, services.ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
	if !services.IsFatal(err) {
		t.Fatal("missing manifest must be fatal")
	}
}

func TestParseManifestMalformedXML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, cartridge.ManifestFileName), []byte("<manifest><resources>"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := cartridge.ParseManifest(dir, logging.NewNop())
	if err == nil {
		t.Fatal("expected error for malformed manifest")
	}
	if !errors.Is(err, services.ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
}

func TestParseManifestDropsResourcesWithoutIdentifier(t *testing.T) {
	dir := writeManifest(t, "http://www.imsglobal.org/xsd/imsccv1p3/imscp_v1p1")

	manifest, err := cartridge.ParseManifest(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	for _, resource := range manifest.Resources {
		if resource.Identifier == "" {
			t.Fatal("resource without identifier survived parsing")
		}
	}
}

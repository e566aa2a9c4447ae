package importer_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wwcc-dale/zaphod/internal/assetreg"
	"github.com/wwcc-dale/zaphod/internal/importer"
	"github.com/wwcc-dale/zaphod/internal/logging"
	"github.com/wwcc-dale/zaphod/internal/services"
	"github.com/wwcc-dale/zaphod/internal/testsupport"
)

const manifestTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<manifest identifier="man_course" xmlns="http://www.imsglobal.org/xsd/imsccv1p2/imscp_v1p1">
  <organizations>
    <organization identifier="org_1">
      <item identifier="mod_1">
        <title>Unit One</title>
        <item identifier="itm_1" identifierref="res_page">
          <title>Welcome</title>
        </item>
      </item>
    </organization>
  </organizations>
  <resources>
    <resource identifier="res_page" type="webcontent" href="wiki_content/welcome.html">
      <file href="wiki_content/welcome.html"/>
    </resource>
    <resource identifier="res_essay_one" type="associatedcontent/imscc_xmlv1p2/learning-application-resource" href="essay_one/assignment.xml">
      <file href="essay_one/assignment.xml"/>
      <file href="essay_one/content.html"/>
      <file href="essay_one/rubric.xml"/>
    </resource>
    <resource identifier="res_essay_two" type="associatedcontent/imscc_xmlv1p2/learning-application-resource" href="essay_two/assignment.xml">
      <file href="essay_two/assignment.xml"/>
      <file href="essay_two/content.html"/>
      <file href="essay_two/rubric.xml"/>
    </resource>%s
  </resources>
</manifest>`

// The logo file is declared by two resources to verify that repeated
// references collapse onto a single copied asset.
const logoResources = `
    <resource identifier="res_logo" type="associatedcontent/imscc_xmlv1p2/files" href="web_resources/assets/logo.png">
      <file href="web_resources/assets/logo.png"/>
    </resource>
    <resource identifier="res_logo_alias" type="associatedcontent/imscc_xmlv1p2/files">
      <file href="web_resources/assets/logo.png"/>
    </resource>`

const essayRubric = `<rubric>
  <criteria>
    <criterion><description>Thesis</description><points>10</points></criterion>
    <criterion><description>Evidence</description><points>15</points></criterion>
  </criteria>
</rubric>`

func assignmentXML(title string) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<assignment xmlns="http://canvas.instructure.com/xsd/cccv1p0">
  <title>%s</title>
  <points_possible>25</points_possible>
  <submission_types>online_text_entry</submission_types>
</assignment>`, title)
}

// courseFiles builds the archive member set for a small course: one moduled
// page, two assignments sharing an identical rubric, and one media file.
func courseFiles() map[string]string {
	files := map[string]string{"imsmanifest.xml": fmt.Sprintf(manifestTemplate, logoResources)}
	files["wiki_content/welcome.html"] = `<html><head><title>Welcome</title></head><body><p>Hello</p></body></html>`
	files["essay_one/assignment.xml"] = assignmentXML("Essay One")
	files["essay_one/content.html"] = `<p>Write the first essay.</p>`
	files["essay_one/rubric.xml"] = essayRubric
	files["essay_two/assignment.xml"] = assignmentXML("Essay Two")
	files["essay_two/content.html"] = `<p>Write the second essay.</p>`
	files["essay_two/rubric.xml"] = essayRubric
	files["web_resources/assets/logo.png"] = "png-bytes"
	return files
}

func buildArchive(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	return testsupport.BuildArchive(t, filepath.Join(t.TempDir(), name), files)
}

func readFileString(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	count := 0
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.Type().IsRegular() {
			count++
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return count
}

func TestRunImportsArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	archive := buildArchive(t, "course-export.imscc", courseFiles())

	report, err := importer.New(cfg, logging.NewNop()).Run(context.Background(), importer.Request{ArchivePath: archive})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Title != "Course Export" {
		t.Fatalf("title = %q", report.Title)
	}
	wantDir := filepath.Join(cfg.Paths.OutputDir, "Course-Export")
	if report.CourseDir != wantDir {
		t.Fatalf("course dir = %q, want %q", report.CourseDir, wantDir)
	}
	if report.RunID == "" {
		t.Fatal("missing run ID")
	}
	if len(report.Failures) != 0 {
		t.Fatalf("unexpected failures: %+v", report.Failures)
	}
	if report.Modules != 1 || report.Pages != 1 || report.Assignments != 2 || report.Assets != 1 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if report.SharedRubrics != 1 {
		t.Fatalf("shared rubrics = %d", report.SharedRubrics)
	}
	if report.Documents() != 3 {
		t.Fatalf("documents = %d", report.Documents())
	}

	page := readFileString(t, filepath.Join(wantDir, "content", "01-Unit-One.module", "Welcome.page", "index.md"))
	if !strings.Contains(page, "Hello") {
		t.Fatalf("page body lost:\n%s", page)
	}

	refOne := readFileString(t, filepath.Join(wantDir, "content", "Essay-One.assignment", "rubric.yaml"))
	refTwo := readFileString(t, filepath.Join(wantDir, "content", "Essay-Two.assignment", "rubric.yaml"))
	if refOne != refTwo {
		t.Fatalf("rubric references diverged:\n%s\n%s", refOne, refTwo)
	}
	if !strings.HasPrefix(refOne, "# Reference to shared rubric\nreference: shared-rubric-") {
		t.Fatalf("unexpected reference document:\n%s", refOne)
	}
	name := strings.TrimSpace(strings.TrimPrefix(refOne, "# Reference to shared rubric\nreference: "))
	shared := readFileString(t, filepath.Join(wantDir, "rubrics", name+".yaml"))
	for _, criterion := range []string{"Thesis", "Evidence"} {
		if !strings.Contains(shared, criterion) {
			t.Fatalf("shared store missing %q:\n%s", criterion, shared)
		}
	}

	if logo := readFileString(t, filepath.Join(wantDir, "assets", "logo.png")); logo != "png-bytes" {
		t.Fatalf("asset content = %q", logo)
	}
	if got := countFiles(t, filepath.Join(wantDir, "assets")); got != 1 {
		t.Fatalf("expected a single copied asset, found %d", got)
	}

	registry := assetreg.Open(wantDir, logging.NewNop())
	if stats := registry.Stats(); stats.Assets != 1 {
		t.Fatalf("registry assets = %d", stats.Assets)
	}
	for _, path := range []string{"assets/logo.png", "../../assets/logo.png"} {
		if !registry.IsTracked(path) {
			t.Fatalf("%s not tracked", path)
		}
	}

	scratch, err := os.ReadDir(cfg.Paths.ScratchDir)
	if err != nil {
		t.Fatalf("scratch dir: %v", err)
	}
	if len(scratch) != 0 {
		t.Fatalf("scratch not cleaned: %v", scratch)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	archive := buildArchive(t, "course-export.imscc", courseFiles())

	report, err := importer.New(cfg, logging.NewNop()).Run(context.Background(), importer.Request{
		ArchivePath: archive,
		DryRun:      true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.DryRun {
		t.Fatal("report lost the dry-run flag")
	}
	if report.Pages != 1 || report.Assignments != 2 || report.Assets != 1 || report.SharedRubrics != 1 {
		t.Fatalf("unexpected planned counts: %+v", report)
	}
	if _, err := os.Stat(report.CourseDir); !os.IsNotExist(err) {
		t.Fatalf("dry run created %s", report.CourseDir)
	}
}

func TestRunHonorsCourseDirOverride(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	archive := buildArchive(t, "spring.imscc", courseFiles())
	dest := filepath.Join(t.TempDir(), "dest")

	report, err := importer.New(cfg, logging.NewNop()).Run(context.Background(), importer.Request{
		ArchivePath: archive,
		CourseDir:   dest,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.CourseDir != dest {
		t.Fatalf("course dir = %q", report.CourseDir)
	}
	if _, err := os.Stat(filepath.Join(dest, "content", "01-Unit-One.module", "Welcome.page", "index.md")); err != nil {
		t.Fatalf("override destination unused: %v", err)
	}
}

func TestRunCleanReimportPrunesRemovedAssets(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithClean())
	dest := filepath.Join(t.TempDir(), "course")
	imp := importer.New(cfg, logging.NewNop())

	first := buildArchive(t, "course-export.imscc", courseFiles())
	if _, err := imp.Run(context.Background(), importer.Request{ArchivePath: first, CourseDir: dest}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if registry := assetreg.Open(dest, logging.NewNop()); registry.Stats().Assets != 1 {
		t.Fatal("first run did not track the asset")
	}

	// Re-export the course without the media file. Clean mode removes the
	// copied file and the registry entry must follow it.
	files := courseFiles()
	files["imsmanifest.xml"] = fmt.Sprintf(manifestTemplate, "")
	delete(files, "web_resources/assets/logo.png")
	second := buildArchive(t, "course-export.imscc", files)

	report, err := imp.Run(context.Background(), importer.Request{ArchivePath: second, CourseDir: dest})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Assets != 0 {
		t.Fatalf("assets = %d", report.Assets)
	}
	if _, err := os.Stat(filepath.Join(dest, "assets", "logo.png")); !os.IsNotExist(err) {
		t.Fatal("stale asset survived clean")
	}
	if registry := assetreg.Open(dest, logging.NewNop()); registry.Stats().Assets != 0 {
		t.Fatalf("registry kept pruned asset: %+v", registry.Entries())
	}
}

func TestRunWithoutAssetTracking(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAssetTracking())
	archive := buildArchive(t, "course-export.imscc", courseFiles())

	report, err := importer.New(cfg, logging.NewNop()).Run(context.Background(), importer.Request{ArchivePath: archive})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Assets != 1 {
		t.Fatalf("asset copy should still happen, got %d", report.Assets)
	}
	registryPath := filepath.Join(report.CourseDir, "_course_metadata", "asset_registry.json")
	if _, err := os.Stat(registryPath); !os.IsNotExist(err) {
		t.Fatal("registry written despite tracking disabled")
	}
}

func TestRunCollectsResourceFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	files := courseFiles()
	files["essay_two/assignment.xml"] = "<assignment><title>Broken"
	archive := buildArchive(t, "course-export.imscc", files)

	report, err := importer.New(cfg, logging.NewNop()).Run(context.Background(), importer.Request{ArchivePath: archive})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %+v", report.Failures)
	}
	failure := report.Failures[0]
	if failure.Identifier != "res_essay_two" || failure.Kind != "assignment" {
		t.Fatalf("unexpected failure: %+v", failure)
	}
	if report.Pages != 1 || report.Assignments != 1 {
		t.Fatalf("surviving documents not written: %+v", report)
	}
	// The surviving rubric has no duplicate, so nothing moves to the store.
	if report.SharedRubrics != 0 {
		t.Fatalf("shared rubrics = %d", report.SharedRubrics)
	}
}

func TestRunMissingArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	_, err := importer.New(cfg, logging.NewNop()).Run(context.Background(), importer.Request{
		ArchivePath: filepath.Join(t.TempDir(), "absent.imscc"),
	})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRunCanceledContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	archive := buildArchive(t, "course-export.imscc", courseFiles())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := importer.New(cfg, logging.NewNop()).Run(ctx, importer.Request{ArchivePath: archive})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled error, got %v", err)
	}
}

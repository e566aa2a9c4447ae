package cartridge

import (
	"os"
	"path/filepath"
	"testing"
)

func writeXML(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseAssignmentXML(t *testing.T) {
	path := writeXML(t, "assignment.xml", `<?xml version="1.0" encoding="UTF-8"?>
<assignment xmlns="http://canvas.instructure.com/xsd/cccv1p0" identifier="a_1">
  <title>Essay One</title>
  <points_possible>10.0</points_possible>
  <submission_types>online_text_entry, online_upload</submission_types>
  <grading_type>points</grading_type>
</assignment>`)

	desc, err := parseAssignmentXML(path)
	if err != nil {
		t.Fatalf("parseAssignmentXML: %v", err)
	}
	if desc.Title != "Essay One" {
		t.Fatalf("title = %q", desc.Title)
	}
	if desc.PointsPossible == nil || *desc.PointsPossible != 10.0 {
		t.Fatalf("points = %v", desc.PointsPossible)
	}
	if len(desc.SubmissionTypes) != 2 || desc.SubmissionTypes[0] != "online_text_entry" || desc.SubmissionTypes[1] != "online_upload" {
		t.Fatalf("submission types = %v", desc.SubmissionTypes)
	}
	if desc.GradingType != "points" {
		t.Fatalf("grading type = %q", desc.GradingType)
	}
}

func TestParseAssignmentXMLWithoutNamespace(t *testing.T) {
	path := writeXML(t, "assignment.xml", `<assignment>
  <title>Lab Report</title>
  <points_possible>25</points_possible>
</assignment>`)

	desc, err := parseAssignmentXML(path)
	if err != nil {
		t.Fatalf("parseAssignmentXML: %v", err)
	}
	if desc.Title != "Lab Report" {
		t.Fatalf("title = %q", desc.Title)
	}
	if desc.PointsPossible == nil || *desc.PointsPossible != 25 {
		t.Fatalf("points = %v", desc.PointsPossible)
	}
}

func TestParseAssignmentXMLIgnoresBadPoints(t *testing.T) {
	path := writeXML(t, "assignment.xml", `<assignment>
  <title>Quiz Prep</title>
  <points_possible>ten</points_possible>
</assignment>`)

	desc, err := parseAssignmentXML(path)
	if err != nil {
		t.Fatalf("parseAssignmentXML: %v", err)
	}
	if desc.PointsPossible != nil {
		t.Fatalf("expected unparsable points to be dropped, got %v", *desc.PointsPossible)
	}
}

func TestParseRubricXML(t *testing.T) {
	path := writeXML(t, "rubric.xml", `<?xml version="1.0" encoding="UTF-8"?>
<rubric xmlns="http://canvas.instructure.com/xsd/rubric">
  <title>Paper Rubric</title>
  <criteria>
    <criterion>
      <description>Thesis</description>
      <long_description>States a clear, arguable thesis</long_description>
      <points>20</points>
      <ratings>
        <rating>
          <description>Full Marks</description>
          <points>20</points>
        </rating>
        <rating>
          <description>No Marks</description>
          <points>0</points>
        </rating>
      </ratings>
    </criterion>
    <criterion>
      <description>Evidence</description>
      <points>30</points>
    </criterion>
  </criteria>
</rubric>`)

	rubric, err := parseRubricXML(path)
	if err != nil {
		t.Fatalf("parseRubricXML: %v", err)
	}
	if rubric == nil {
		t.Fatal("expected a rubric")
	}
	if rubric.Title != "Paper Rubric" {
		t.Fatalf("title = %q", rubric.Title)
	}
	if len(rubric.Criteria) != 2 {
		t.Fatalf("expected 2 criteria, got %d", len(rubric.Criteria))
	}

	thesis := rubric.Criteria[0]
	if thesis.Description != "Thesis" || thesis.LongDescription != "States a clear, arguable thesis" {
		t.Fatalf("unexpected first criterion: %+v", thesis)
	}
	if thesis.Points == nil || *thesis.Points != 20 {
		t.Fatalf("criterion points = %v", thesis.Points)
	}
	if len(thesis.Ratings) != 2 {
		t.Fatalf("expected 2 ratings, got %d", len(thesis.Ratings))
	}
	// A zero-point rating keeps its points field.
	if thesis.Ratings[1].Points == nil || *thesis.Ratings[1].Points != 0 {
		t.Fatalf("zero-point rating lost its points: %+v", thesis.Ratings[1])
	}

	evidence := rubric.Criteria[1]
	if evidence.Description != "Evidence" || len(evidence.Ratings) != 0 {
		t.Fatalf("unexpected second criterion: %+v", evidence)
	}
}

func TestParseRubricXMLEmptyDocument(t *testing.T) {
	path := writeXML(t, "rubric.xml", `<rubric></rubric>`)

	rubric, err := parseRubricXML(path)
	if err != nil {
		t.Fatalf("parseRubricXML: %v", err)
	}
	if rubric != nil {
		t.Fatalf("expected nil rubric for empty document, got %+v", rubric)
	}
}

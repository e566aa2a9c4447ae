package cartridge

import (
	"os"
	"strconv"
	"strings"
)

// assignmentDescriptor holds the fields read from an assignment descriptor
// document. Numeric fields that fail to parse are left nil rather than
// failing the resource.
type assignmentDescriptor struct {
	Title           string
	PointsPossible  *float64
	SubmissionTypes []string
	GradingType     string
}

// parseAssignmentXML parses a Canvas-style assignment descriptor. Elements
// are looked up with the Canvas namespace first and bare names as fallback.
func parseAssignmentXML(path string) (assignmentDescriptor, error) {
	var desc assignmentDescriptor

	data, err := os.ReadFile(path)
	if err != nil {
		return desc, err
	}
	root, err := parseXMLDocument(data)
	if err != nil {
		return desc, err
	}

	desc.Title = descendantText(root, canvasNamespaces, "title")
	if raw := descendantText(root, canvasNamespaces, "points_possible"); raw != "" {
		if points, err := strconv.ParseFloat(raw, 64); err == nil {
			desc.PointsPossible = &points
		}
	}
	if raw := descendantText(root, canvasNamespaces, "submission_types"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				desc.SubmissionTypes = append(desc.SubmissionTypes, part)
			}
		}
	}
	desc.GradingType = descendantText(root, canvasNamespaces, "grading_type")

	return desc, nil
}

// parseRubricXML parses a rubric descriptor into criteria and ratings.
// Numeric point values that fail to parse are omitted. Returns nil when the
// document contains no recognizable rubric content.
func parseRubricXML(path string) (*Rubric, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	root, err := parseXMLDocument(data)
	if err != nil {
		return nil, err
	}

	rubric := &Rubric{
		Title:       descendantText(root, rubricNamespaces, "title"),
		Description: descendantText(root, rubricNamespaces, "description"),
	}

	for _, critElem := range root.descendants(rubricNamespaces, "criterion") {
		criterion := Criterion{
			Description:     descendantText(critElem, rubricNamespaces, "description"),
			LongDescription: descendantText(critElem, rubricNamespaces, "long_description"),
			Points:          parsePoints(critElem, rubricNamespaces),
		}
		for _, ratingElem := range critElem.descendants(rubricNamespaces, "rating") {
			rating := Rating{
				Description: descendantText(ratingElem, rubricNamespaces, "description"),
				Points:      parsePoints(ratingElem, rubricNamespaces),
			}
			if rating.Description != "" || rating.Points != nil {
				criterion.Ratings = append(criterion.Ratings, rating)
			}
		}
		if criterion.Description != "" || criterion.LongDescription != "" ||
			criterion.Points != nil || len(criterion.Ratings) > 0 {
			rubric.Criteria = append(rubric.Criteria, criterion)
		}
	}

	if rubric.Title == "" && rubric.Description == "" && len(rubric.Criteria) == 0 {
		return nil, nil
	}
	return rubric, nil
}

func descendantText(n *xmlNode, namespaces []string, local string) string {
	return text(n.descendant(namespaces, local), "")
}

func parsePoints(n *xmlNode, namespaces []string) *float64 {
	raw := descendantText(n, namespaces, "points")
	if raw == "" {
		return nil
	}
	points, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &points
}

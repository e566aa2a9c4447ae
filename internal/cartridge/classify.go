package cartridge

import (
	"strings"

	"github.com/wwcc-dale/zaphod/internal/config"
)

// ResourceClass is the classification assigned to a manifest resource.
type ResourceClass string

const (
	ClassPage       ResourceClass = "page"
	ClassAssignment ResourceClass = "assignment"
	ClassQuiz       ResourceClass = "quiz"
	ClassLink       ResourceClass = "link"
	ClassAsset      ResourceClass = "asset"
	ClassUnknown    ResourceClass = "unknown"
)

// Classifier maps a resource's declared type and file set onto a content
// class. The keyword tables come from configuration so tests can tighten
// them.
type Classifier struct {
	descriptor   string
	bankKeywords []string
}

// NewClassifier builds a classifier from the configured keyword tables.
func NewClassifier(cfg config.Classifier) *Classifier {
	return &Classifier{
		descriptor:   cfg.AssignmentDescriptor,
		bankKeywords: cfg.BankKeywords,
	}
}

// Classify applies the classification rules in precedence order. The
// assignment check runs first because producing systems reuse the generic
// webcontent and weblink types for assignment bundles; the presence of an
// assignment descriptor file is the deciding signal.
func (c *Classifier) Classify(resource ResourceItem) ResourceClass {
	declared := strings.ToLower(resource.Type)
	switch {
	case c.isAssignment(declared, resource.Files):
		return ClassAssignment
	case strings.Contains(declared, "webcontent"):
		return ClassPage
	case strings.Contains(declared, "assessment"), strings.Contains(declared, "imsqti"):
		return ClassQuiz
	case strings.Contains(declared, "imswl"), strings.Contains(declared, "weblink"):
		return ClassLink
	case declared == "webcontent", strings.Contains(declared, "associatedcontent"):
		return ClassAsset
	default:
		return ClassUnknown
	}
}

func (c *Classifier) isAssignment(declared string, files []string) bool {
	if strings.Contains(declared, "assignment") {
		return true
	}
	if strings.Contains(declared, "learning-application-resource") {
		return true
	}
	return c.DescriptorFile(files) != ""
}

// DescriptorFile returns the first file path ending in the configured
// assignment descriptor name, or empty when the resource has none.
func (c *Classifier) DescriptorFile(files []string) string {
	for _, file := range files {
		if strings.HasSuffix(file, c.descriptor) {
			return file
		}
	}
	return ""
}

// IsBank reports whether an assessment resource looks like a standalone
// question bank rather than a content quiz: a bank keyword in the
// identifier or title, or an object-bank resource type.
func (c *Classifier) IsBank(resource ResourceItem, title string) bool {
	haystack := strings.ToLower(resource.Identifier + " " + title)
	for _, keyword := range c.bankKeywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(resource.Type), "objectbank")
}

package cartridge

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/wwcc-dale/zaphod/internal/config"
	"github.com/wwcc-dale/zaphod/internal/logging"
	"github.com/wwcc-dale/zaphod/internal/markdown"
	"github.com/wwcc-dale/zaphod/internal/services"
)

// webResourcePrefix is stripped from asset file paths when deriving their
// destination under the assets directory.
const webResourcePrefix = "web_resources/assets/"

// TransformFailure records one resource that could not be transformed. The
// rest of the import proceeds without it.
type TransformFailure struct {
	Identifier string
	Class      ResourceClass
	Err        error
}

// Transformer converts classified manifest resources into typed content
// records.
type Transformer struct {
	classifier *Classifier
	converter  *markdown.Converter
	logger     *slog.Logger
}

// NewTransformer builds a transformer using the configured classification
// tables and the given HTML converter.
func NewTransformer(cfg config.Classifier, converter *markdown.Converter, logger *slog.Logger) *Transformer {
	return &Transformer{
		classifier: NewClassifier(cfg),
		converter:  converter,
		logger:     logging.NewComponentLogger(logger, "transform"),
	}
}

// moduleClaim records which module claims a resource and at which position
// within that module's item list.
type moduleClaim struct {
	module   *ModuleItem
	position int
}

// TransformResources walks the manifest's resources in document order and
// builds the import aggregate. Individual resource failures are collected
// and returned alongside the aggregate; they never abort the run.
func (t *Transformer) TransformResources(ctx context.Context, manifest *Manifest, extractedDir string) (*CartridgeImport, []TransformFailure) {
	cart := NewCartridgeImport("")
	cart.Modules = manifest.Modules

	claims := make(map[string]moduleClaim)
	for mi := range manifest.Modules {
		module := &manifest.Modules[mi]
		for pos, ref := range module.Items {
			// The first module claiming an item keeps it.
			if _, taken := claims[ref]; !taken {
				claims[ref] = moduleClaim{module: module, position: pos}
			}
		}
	}

	var failures []TransformFailure
	for _, resource := range manifest.Resources {
		if ctx.Err() != nil {
			break
		}
		class := t.classifier.Classify(resource)
		claim := claims[resource.Identifier]
		if err := t.transformResource(cart, resource, class, claim, extractedDir); err != nil {
			t.logger.Warn("resource dropped",
				logging.String(logging.FieldResourceID, resource.Identifier),
				logging.String("class", string(class)),
				logging.Error(err))
			failures = append(failures, TransformFailure{
				Identifier: resource.Identifier,
				Class:      class,
				Err:        err,
			})
		}
	}
	return cart, failures
}

func (t *Transformer) transformResource(cart *CartridgeImport, resource ResourceItem, class ResourceClass, claim moduleClaim, extractedDir string) error {
	switch class {
	case ClassPage:
		item, err := t.transformPage(resource, extractedDir)
		if err != nil {
			return err
		}
		t.placeInModule(&item, claim)
		cart.ContentItems = append(cart.ContentItems, item)
	case ClassAssignment:
		item, err := t.transformAssignment(resource, extractedDir)
		if err != nil {
			return err
		}
		t.placeInModule(&item, claim)
		cart.ContentItems = append(cart.ContentItems, item)
	case ClassQuiz:
		quiz, bank, err := t.transformAssessment(resource, extractedDir, claim)
		if err != nil {
			return err
		}
		if quiz != nil {
			cart.Quizzes = append(cart.Quizzes, *quiz)
		}
		if bank != nil {
			cart.QuestionBanks = append(cart.QuestionBanks, *bank)
		}
	case ClassLink:
		item := t.transformLink(resource, extractedDir)
		t.placeInModule(&item, claim)
		cart.ContentItems = append(cart.ContentItems, item)
	case ClassAsset:
		t.trackAssets(cart, resource, extractedDir)
	default:
		t.logger.Debug("resource not classified",
			logging.String(logging.FieldResourceID, resource.Identifier),
			logging.String("type", resource.Type))
	}
	return nil
}

func (t *Transformer) placeInModule(item *ContentItem, claim moduleClaim) {
	if claim.module == nil {
		return
	}
	item.ModulePath = claim.module.Title
	item.ModulePosition = claim.module.Position
	item.Position = claim.position
}

func (t *Transformer) transformPage(resource ResourceItem, extractedDir string) (ContentItem, error) {
	var rawHTML string
	if resource.Href != "" {
		data, err := os.ReadFile(filepath.Join(extractedDir, filepath.FromSlash(resource.Href)))
		switch {
		case err == nil:
			rawHTML = string(data)
		case os.IsNotExist(err):
			// A dangling href yields an empty page rather than a failure.
		default:
			return ContentItem{}, services.Wrap(services.ErrTransform, "transform", "page", "read "+resource.Href, err)
		}
	}

	title := resource.Title
	if title == "" {
		title = markdown.ExtractTitle(rawHTML)
	}
	if title == "" {
		title = resource.Identifier
	}

	return ContentItem{
		Identifier: resource.Identifier,
		Title:      title,
		Type:       TypePage,
		Body:       t.convertHTML(resource.Identifier, rawHTML),
	}, nil
}

func (t *Transformer) transformAssignment(resource ResourceItem, extractedDir string) (ContentItem, error) {
	var desc assignmentDescriptor
	if descriptorFile := t.classifier.DescriptorFile(resource.Files); descriptorFile != "" {
		path := filepath.Join(extractedDir, filepath.FromSlash(descriptorFile))
		if fileExists(path) {
			parsed, err := parseAssignmentXML(path)
			if err != nil {
				return ContentItem{}, services.Wrap(services.ErrTransform, "transform", "assignment", "parse "+descriptorFile, err)
			}
			desc = parsed
		}
	}

	var rubric *Rubric
	for _, file := range resource.Files {
		if !strings.HasSuffix(file, "rubric.xml") {
			continue
		}
		path := filepath.Join(extractedDir, filepath.FromSlash(file))
		if !fileExists(path) {
			break
		}
		parsed, err := parseRubricXML(path)
		if err != nil {
			return ContentItem{}, services.Wrap(services.ErrTransform, "transform", "assignment", "parse "+file, err)
		}
		rubric = parsed
		break
	}

	var rawHTML string
	for _, file := range resource.Files {
		if !strings.HasSuffix(file, ".html") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(extractedDir, filepath.FromSlash(file)))
		if err == nil {
			rawHTML = string(data)
			break
		}
	}

	title := desc.Title
	if title == "" {
		title = resource.Title
	}
	if title == "" {
		title = resource.Identifier
	}

	return ContentItem{
		Identifier: resource.Identifier,
		Title:      title,
		Type:       TypeAssignment,
		Body:       t.convertHTML(resource.Identifier, rawHTML),
		Assignment: &AssignmentDetail{
			PointsPossible:  desc.PointsPossible,
			SubmissionTypes: desc.SubmissionTypes,
			GradingType:     desc.GradingType,
		},
		Rubric: rubric,
	}, nil
}

func (t *Transformer) transformAssessment(resource ResourceItem, extractedDir string, claim moduleClaim) (*QuizItem, *QuestionBankItem, error) {
	var assessmentFile string
	for _, file := range resource.Files {
		if strings.HasSuffix(file, ".xml") {
			assessmentFile = file
			break
		}
	}
	if assessmentFile == "" {
		return nil, nil, services.Wrap(services.ErrTransform, "transform", "assessment", "no assessment document in resource", nil)
	}

	doc, err := parseAssessmentXML(filepath.Join(extractedDir, filepath.FromSlash(assessmentFile)))
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransform, "transform", "assessment", "parse "+assessmentFile, err)
	}

	title := doc.Title
	if title == "" {
		title = resource.Title
	}
	if title == "" {
		title = resource.Identifier
	}

	// The explicit inline flag is authoritative; the keyword and type
	// heuristics below are best effort and get flagged for review.
	if doc.Settings.InlineQuestions || !t.classifier.IsBank(resource, title) {
		quiz := &QuizItem{
			Identifier:  resource.Identifier,
			Title:       title,
			Description: t.convertHTML(resource.Identifier, doc.DescriptionHTML),
			Questions:   doc.Questions,
			Settings:    doc.Settings,
		}
		if claim.module != nil {
			quiz.ModulePath = claim.module.Title
			quiz.ModulePosition = claim.module.Position
			quiz.Position = claim.position
		}
		return quiz, nil, nil
	}

	t.logger.Warn("assessment classified as question bank by heuristic",
		logging.String(logging.FieldResourceID, resource.Identifier),
		logging.String("title", title))
	bank := &QuestionBankItem{
		Identifier: resource.Identifier,
		Title:      title,
		Questions:  doc.Questions,
	}
	return nil, bank, nil
}

func (t *Transformer) transformLink(resource ResourceItem, extractedDir string) ContentItem {
	url := resource.Href
	title := resource.Title

	// Web link resources usually point at a descriptor document rather than
	// carrying the URL directly.
	candidates := resource.Files
	if resource.Href != "" && strings.HasSuffix(resource.Href, ".xml") {
		candidates = append([]string{resource.Href}, candidates...)
	}
	for _, file := range candidates {
		if !strings.HasSuffix(file, ".xml") {
			continue
		}
		linkTitle, linkURL, err := parseWebLinkXML(filepath.Join(extractedDir, filepath.FromSlash(file)))
		if err != nil {
			t.logger.Debug("weblink descriptor unreadable",
				logging.String(logging.FieldResourceID, resource.Identifier),
				logging.Error(err))
			continue
		}
		if linkURL != "" {
			url = linkURL
			if linkTitle != "" {
				title = linkTitle
			}
			break
		}
	}

	if title == "" {
		title = url
	}
	if title == "" {
		title = resource.Identifier
	}

	return ContentItem{
		Identifier: resource.Identifier,
		Title:      title,
		Type:       TypeLink,
		Link:       &LinkDetail{URL: url},
	}
}

// parseWebLinkXML reads a web link descriptor and returns its title and
// target URL.
func parseWebLinkXML(path string) (title, url string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	root, err := parseXMLDocument(data)
	if err != nil {
		return "", "", err
	}
	title = descendantText(root, weblinkNamespaces, "title")
	if urlElem := root.descendant(weblinkNamespaces, "url"); urlElem != nil {
		url = urlElem.attr("href")
	}
	return title, url, nil
}

func (t *Transformer) trackAssets(cart *CartridgeImport, resource ResourceItem, extractedDir string) {
	for _, file := range resource.Files {
		src := filepath.Join(extractedDir, filepath.FromSlash(file))
		if !fileExists(src) {
			continue
		}
		cart.Assets[src] = strings.TrimPrefix(file, webResourcePrefix)
	}
}

// convertHTML converts a raw HTML payload, falling back to the raw text
// when conversion fails so content is never silently lost.
func (t *Transformer) convertHTML(identifier, rawHTML string) string {
	if strings.TrimSpace(rawHTML) == "" {
		return ""
	}
	converted, err := t.converter.Convert(rawHTML)
	if err != nil {
		t.logger.Warn("html conversion failed, keeping raw content",
			logging.String(logging.FieldResourceID, identifier),
			logging.Error(err))
		return rawHTML
	}
	return converted
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

package course

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/wwcc-dale/zaphod/internal/cartridge"
	"github.com/wwcc-dale/zaphod/internal/config"
	"github.com/wwcc-dale/zaphod/internal/fileutil"
	"github.com/wwcc-dale/zaphod/internal/logging"
	"github.com/wwcc-dale/zaphod/internal/services"
	"github.com/wwcc-dale/zaphod/internal/textutil"
)

const (
	contentDirName  = "content"
	banksDirName    = "question-banks"
	assetsDirName   = "assets"
	rubricsDirName  = "rubrics"
	moduleDirSuffix = ".module"
	indexFileName   = "index.md"
	rubricFileName  = "rubric.yaml"
	bankFileSuffix  = ".bank.md"
)

// Writer emits course documents under a single course root directory.
type Writer struct {
	root   string
	opts   config.Import
	logger *slog.Logger
}

// NewWriter constructs a writer rooted at the course output directory.
func NewWriter(root string, opts config.Import, logger *slog.Logger) *Writer {
	return &Writer{
		root:   root,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "course"),
	}
}

// Root returns the course output directory.
func (w *Writer) Root() string {
	return w.root
}

// Clean removes the generated trees under the course root. The shared rubric
// store and registry metadata survive so reimports keep their history.
func (w *Writer) Clean() error {
	for _, name := range []string{contentDirName, banksDirName, assetsDirName} {
		if err := os.RemoveAll(filepath.Join(w.root, name)); err != nil {
			return services.Wrap(services.ErrConfiguration, "course", "clean", "remove "+name, err)
		}
	}
	w.logger.Info("cleaned generated course trees", logging.String("root", w.root))
	return nil
}

// WriteContentItem writes one page, assignment, or link document and its
// sibling rubric file when the item carries one. Returns the index.md path.
func (w *Writer) WriteContentItem(item cartridge.ContentItem) (string, error) {
	operation := "write " + string(item.Type)
	dir := w.itemDir(item.Title, item.Type, item.ModulePath, item.ModulePosition)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrTransform, "course", operation, "create item folder", err)
	}

	front, body := w.contentDocument(item)
	path := filepath.Join(dir, indexFileName)
	if err := writeDocument(path, front, body, operation); err != nil {
		return "", err
	}
	if item.Rubric != nil {
		if err := w.writeItemRubric(dir, item.Rubric); err != nil {
			return "", err
		}
	}
	w.logger.Debug("wrote content item",
		logging.String(logging.FieldResourceID, item.Identifier),
		logging.String(logging.FieldPath, path))
	return path, nil
}

// WriteQuiz writes one quiz document. The question block always lives in the
// body; the inline_questions flag records how the source declared it.
func (w *Writer) WriteQuiz(quiz cartridge.QuizItem) (string, error) {
	dir := w.itemDir(quiz.Title, cartridge.TypeQuiz, quiz.ModulePath, quiz.ModulePosition)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrTransform, "course", "write quiz", "create item folder", err)
	}

	path := filepath.Join(dir, indexFileName)
	if err := writeDocument(path, w.quizFrontmatter(quiz), RenderQuestions(quiz.Questions), "write quiz"); err != nil {
		return "", err
	}
	w.logger.Debug("wrote quiz",
		logging.String(logging.FieldResourceID, quiz.Identifier),
		logging.String(logging.FieldPath, path),
		logging.Int("questions", len(quiz.Questions)))
	return path, nil
}

// WriteQuestionBank writes one standalone bank file. Returns the file path.
func (w *Writer) WriteQuestionBank(bank cartridge.QuestionBankItem) (string, error) {
	dir := filepath.Join(w.root, banksDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrTransform, "course", "write bank", "create bank folder", err)
	}

	front := bankFrontmatter{
		Name:          bank.Title,
		Type:          "question_bank",
		QuestionCount: len(bank.Questions),
	}
	var body strings.Builder
	fmt.Fprintf(&body, "# %s\n\n", bank.Title)
	body.WriteString("<!-- Question Bank imported from cartridge -->\n")
	fmt.Fprintf(&body, "<!-- %d questions -->\n\n", len(bank.Questions))
	body.WriteString(RenderQuestions(bank.Questions))

	path := filepath.Join(dir, textutil.SanitizeFileName(bank.Title)+bankFileSuffix)
	if err := writeDocument(path, front, body.String(), "write bank"); err != nil {
		return "", err
	}
	w.logger.Debug("wrote question bank",
		logging.String(logging.FieldResourceID, bank.Identifier),
		logging.String(logging.FieldPath, path),
		logging.Int("questions", len(bank.Questions)))
	return path, nil
}

// WriteSharedRubrics writes rubrics extracted during import into the shared
// store, one document per name. Returns how many files were written.
func (w *Writer) WriteSharedRubrics(rubrics map[string]cartridge.Rubric) (int, error) {
	if len(rubrics) == 0 {
		return 0, nil
	}
	dir := filepath.Join(w.root, rubricsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, services.Wrap(services.ErrRegistry, "course", "shared rubrics", "create shared store", err)
	}

	names := make([]string, 0, len(rubrics))
	for name := range rubrics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := yaml.Marshal(rubrics[name])
		if err != nil {
			return 0, services.Wrap(services.ErrRegistry, "course", "shared rubrics", "marshal "+name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name+".yaml"), data, 0o644); err != nil {
			return 0, services.Wrap(services.ErrRegistry, "course", "shared rubrics", "write "+name, err)
		}
	}
	w.logger.Debug("wrote shared rubrics", logging.Int("count", len(names)))
	return len(names), nil
}

// CopyAssets copies extracted media payloads into the assets tree, walking
// sources in sorted order. Individual copy failures are logged and skipped;
// the import continues without them. Returns how many files were copied.
func (w *Writer) CopyAssets(assets map[string]string) int {
	if len(assets) == 0 {
		return 0
	}
	sources := make([]string, 0, len(assets))
	for source := range assets {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	copied := 0
	for _, source := range sources {
		dest := filepath.Join(w.root, assetsDirName, filepath.FromSlash(assets[source]))
		if err := fileutil.CopyFileParents(source, dest); err != nil {
			w.logger.Warn("asset copy failed",
				logging.String("source", source),
				logging.Error(err))
			continue
		}
		copied++
	}
	return copied
}

func (w *Writer) contentDocument(item cartridge.ContentItem) (any, string) {
	modules, position := placement(item.ModulePath, item.Position)
	published := w.opts.DefaultPublished

	switch item.Type {
	case cartridge.TypeAssignment:
		front := assignmentFrontmatter{
			Name:      item.Title,
			Type:      string(cartridge.TypeAssignment),
			Published: published,
			Modules:   modules,
			Position:  position,
		}
		if item.Assignment != nil {
			front.PointsPossible = item.Assignment.PointsPossible
			front.SubmissionTypes = item.Assignment.SubmissionTypes
			front.GradingType = item.Assignment.GradingType
		}
		return front, item.Body
	case cartridge.TypeLink:
		front := pageFrontmatter{
			Name:      item.Title,
			Type:      string(cartridge.TypePage),
			Published: published,
			Modules:   modules,
			Position:  position,
		}
		body := item.Body
		if item.Link != nil && item.Link.URL != "" {
			front.ExternalURL = item.Link.URL
			body = fmt.Sprintf("[%s](%s)", item.Title, item.Link.URL)
		}
		return front, body
	default:
		return pageFrontmatter{
			Name:      item.Title,
			Type:      string(cartridge.TypePage),
			Published: published,
			Modules:   modules,
			Position:  position,
		}, item.Body
	}
}

func (w *Writer) quizFrontmatter(quiz cartridge.QuizItem) quizFrontmatter {
	modules, position := placement(quiz.ModulePath, quiz.Position)
	published := w.opts.DefaultPublished
	if value, ok := parseBoolSetting(quiz.Settings.Published); ok {
		published = value
	}
	return quizFrontmatter{
		Name:            quiz.Title,
		Type:            string(cartridge.TypeQuiz),
		Published:       published,
		Modules:         modules,
		Position:        position,
		Description:     quiz.Description,
		QuizType:        quiz.Settings.QuizType,
		QuestionCount:   len(quiz.Questions),
		PointsPossible:  parseFloatSetting(quiz.Settings.PointsPossible),
		TimeLimit:       parseIntSetting(quiz.Settings.TimeLimit),
		AllowedAttempts: parseIntSetting(quiz.Settings.AllowedAttempts),
		ShuffleAnswers:  parseBoolPointer(quiz.Settings.ShuffleAnswers),
		InlineQuestions: quiz.Settings.InlineQuestions,
	}
}

// writeItemRubric writes the rubric document next to the item's index.md.
// A reference rubric points into the shared store instead of repeating the
// criteria inline.
func (w *Writer) writeItemRubric(dir string, rubric *cartridge.Rubric) error {
	path := filepath.Join(dir, rubricFileName)
	if rubric.Reference != "" {
		content := fmt.Sprintf("# Reference to shared rubric\nreference: %s\n", rubric.Reference)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return services.Wrap(services.ErrTransform, "course", "write rubric", "write reference", err)
		}
		return nil
	}
	data, err := yaml.Marshal(rubric)
	if err != nil {
		return services.Wrap(services.ErrTransform, "course", "write rubric", "marshal rubric", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrTransform, "course", "write rubric", "write rubric", err)
	}
	return nil
}

// itemDir resolves the document folder for an item, nesting it under the
// claiming module's folder when one exists. Links share the page folder kind
// because they are emitted as pages.
func (w *Writer) itemDir(title string, kind cartridge.ItemType, modulePath string, modulePosition int) string {
	dir := filepath.Join(w.root, contentDirName)
	if modulePath != "" {
		dir = filepath.Join(dir, w.moduleDirName(modulePath, modulePosition))
	}
	if kind == cartridge.TypeLink {
		kind = cartridge.TypePage
	}
	return filepath.Join(dir, textutil.SanitizeFileName(title)+"."+string(kind))
}

// moduleDirName names a module folder, prefixing the 1-based module index
// when module numbering is enabled.
func (w *Writer) moduleDirName(modulePath string, modulePosition int) string {
	name := textutil.SanitizeFileName(modulePath) + moduleDirSuffix
	if w.opts.ModulePrefix {
		name = fmt.Sprintf("%02d-%s", modulePosition+1, name)
	}
	return name
}

// writeDocument renders a frontmatter block plus markdown body to path. An
// empty body yields a frontmatter-only document.
func writeDocument(path string, front any, body, operation string) error {
	meta, err := yaml.Marshal(front)
	if err != nil {
		return services.Wrap(services.ErrTransform, "course", operation, "marshal frontmatter", err)
	}

	var b strings.Builder
	b.Grow(len(meta) + len(body) + 16)
	b.WriteString("---\n")
	b.Write(meta)
	b.WriteString("---\n")
	if trimmed := strings.TrimRight(body, " \t\n"); trimmed != "" {
		b.WriteByte('\n')
		b.WriteString(trimmed)
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return services.Wrap(services.ErrTransform, "course", operation, "write document", err)
	}
	return nil
}

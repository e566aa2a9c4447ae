package rubric

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/wwcc-dale/zaphod/internal/logging"
	"github.com/wwcc-dale/zaphod/internal/services"
	"github.com/wwcc-dale/zaphod/internal/textutil"
)

const (
	sharedDirName   = "rubrics"
	rowsDirName     = "rows"
	metadataDirName = "_course_metadata"
	maxSlugLength   = 40
)

// Result reports what one dedup run extracted.
type Result struct {
	SharedRubrics int
	SharedRows    int
}

// Total returns the number of shared store files the run produced or reused.
func (r Result) Total() int {
	return r.SharedRubrics + r.SharedRows
}

// Deduplicator runs the two dedup passes over one course tree.
type Deduplicator struct {
	courseRoot string
	fileLock   *flock.Flock
	logger     *slog.Logger
}

// NewDeduplicator builds a deduplicator rooted at a course directory.
func NewDeduplicator(courseRoot string, logger *slog.Logger) *Deduplicator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Deduplicator{
		courseRoot: courseRoot,
		fileLock:   flock.New(filepath.Join(courseRoot, metadataDirName, "rubric_dedup.lock")),
		logger:     logging.NewComponentLogger(logger, "rubric"),
	}
}

// Run executes the whole-rubric pass and then the row pass, holding an
// advisory lock so two processes never rewrite the same tree concurrently.
func (d *Deduplicator) Run() (Result, error) {
	if err := os.MkdirAll(filepath.Join(d.courseRoot, metadataDirName), 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrRegistry, "rubric", "dedup", "create metadata directory", err)
	}
	if err := d.fileLock.Lock(); err != nil {
		return Result{}, services.Wrap(services.ErrRegistry, "rubric", "dedup", "acquire lock", err)
	}
	defer func() {
		if err := d.fileLock.Unlock(); err != nil {
			d.logger.Warn("failed to release dedup lock", logging.Error(err))
		}
	}()

	var result Result
	var err error
	if result.SharedRubrics, err = d.dedupWholeRubrics(); err != nil {
		return result, err
	}
	if result.SharedRows, err = d.dedupRows(); err != nil {
		return result, err
	}
	return result, nil
}

// dedupWholeRubrics extracts rubrics whose whole criteria list appears in two
// or more inline documents.
func (d *Deduplicator) dedupWholeRubrics() (int, error) {
	files, err := d.findInlineRubricFiles()
	if err != nil {
		return 0, err
	}

	type group struct {
		paths []string
		doc   map[string]any
	}
	groups := make(map[string]*group)
	for _, path := range files {
		doc, ok := d.loadInlineDocument(path)
		if !ok {
			continue
		}
		criteria := criteriaList(doc)
		if len(criteria) == 0 {
			continue
		}
		fp, err := Fingerprint(criteria)
		if err != nil {
			d.logger.Warn("rubric document skipped", logging.String("path", path), logging.Error(err))
			continue
		}
		if groups[fp] == nil {
			groups[fp] = &group{doc: doc}
		}
		groups[fp].paths = append(groups[fp].paths, path)
	}

	var shared []string
	for fp, g := range groups {
		if len(g.paths) >= 2 {
			shared = append(shared, fp)
		}
	}
	if len(shared) == 0 {
		return 0, nil
	}
	sort.Strings(shared)

	sharedDir := filepath.Join(d.courseRoot, sharedDirName)
	if err := os.MkdirAll(sharedDir, 0o755); err != nil {
		return 0, services.Wrap(services.ErrRegistry, "rubric", "dedup", "create shared store", err)
	}
	taken, err := existingSlugs(sharedDir)
	if err != nil {
		return 0, err
	}

	fpToSlug := make(map[string]string, len(shared))
	for _, fp := range shared {
		g := groups[fp]

		if slug := d.findMatchingStoreFile(sharedDir, criteriaList(g.doc), storedCriteria); slug != "" {
			fpToSlug[fp] = slug
			continue
		}

		slug := uniqueSlug(rubricSlug(g.doc, fp), taken)
		taken[slug] = true
		if err := writeYAML(filepath.Join(sharedDir, slug+".yaml"), g.doc); err != nil {
			return 0, err
		}
		fpToSlug[fp] = slug
		d.logger.Info("extracted shared rubric",
			logging.String("slug", slug),
			logging.Int("documents", len(g.paths)))
	}

	for fp, slug := range fpToSlug {
		for _, path := range groups[fp].paths {
			if err := writeYAML(path, map[string]string{"use_rubric": slug}); err != nil {
				return 0, err
			}
		}
	}
	return len(fpToSlug), nil
}

// dedupRows extracts criterion rows that still appear in two or more
// documents, counting the shared store written by the first pass.
func (d *Deduplicator) dedupRows() (int, error) {
	files, err := d.findInlineRubricFiles()
	if err != nil {
		return 0, err
	}
	storeFiles, err := d.sharedStoreFiles()
	if err != nil {
		return 0, err
	}
	files = append(files, storeFiles...)
	sort.Strings(files)

	fpPaths := make(map[string]map[string]bool)
	fpCriterion := make(map[string]any)
	for _, path := range files {
		for _, criterion := range d.loadCriterionRows(path) {
			fp, err := Fingerprint(criterion)
			if err != nil {
				continue
			}
			if fpPaths[fp] == nil {
				fpPaths[fp] = make(map[string]bool)
				fpCriterion[fp] = criterion
			}
			fpPaths[fp][path] = true
		}
	}

	var shared []string
	for fp, paths := range fpPaths {
		if len(paths) >= 2 {
			shared = append(shared, fp)
		}
	}
	if len(shared) == 0 {
		return 0, nil
	}
	sort.Strings(shared)

	rowsDir := filepath.Join(d.courseRoot, sharedDirName, rowsDirName)
	if err := os.MkdirAll(rowsDir, 0o755); err != nil {
		return 0, services.Wrap(services.ErrRegistry, "rubric", "dedup", "create row store", err)
	}
	taken, err := existingSlugs(rowsDir)
	if err != nil {
		return 0, err
	}

	fpToSlug := make(map[string]string, len(shared))
	for _, fp := range shared {
		criterion := fpCriterion[fp]

		if slug := d.findMatchingStoreFile(rowsDir, criterion, storedRow); slug != "" {
			fpToSlug[fp] = slug
			continue
		}

		slug := uniqueSlug(rowSlug(criterion, fp), taken)
		taken[slug] = true
		if err := writeYAML(filepath.Join(rowsDir, slug+".yaml"), criterion); err != nil {
			return 0, err
		}
		fpToSlug[fp] = slug
		d.logger.Info("extracted shared rubric row",
			logging.String("slug", slug),
			logging.Int("documents", len(fpPaths[fp])))
	}

	affected := make(map[string]bool)
	for _, fp := range shared {
		for path := range fpPaths[fp] {
			affected[path] = true
		}
	}
	paths := make([]string, 0, len(affected))
	for path := range affected {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if err := d.replaceRows(path, fpToSlug); err != nil {
			return 0, err
		}
	}
	return len(fpToSlug), nil
}

// findInlineRubricFiles walks the course tree for rubric.yaml documents,
// excluding the shared store.
func (d *Deduplicator) findInlineRubricFiles() ([]string, error) {
	sharedDir := filepath.Join(d.courseRoot, sharedDirName)
	var files []string
	err := filepath.WalkDir(d.courseRoot, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			if path == sharedDir {
				return filepath.SkipDir
			}
			return nil
		}
		name := entry.Name()
		if name == "rubric.yaml" || name == "rubric.yml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrRegistry, "rubric", "dedup", "scan course tree", err)
	}
	return files, nil
}

// sharedStoreFiles lists the whole-rubric store documents, not the rows.
func (d *Deduplicator) sharedStoreFiles() ([]string, error) {
	sharedDir := filepath.Join(d.courseRoot, sharedDirName)
	entries, err := os.ReadDir(sharedDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrRegistry, "rubric", "dedup", "scan shared store", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ext := filepath.Ext(entry.Name()); ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(sharedDir, entry.Name()))
		}
	}
	return files, nil
}

// loadInlineDocument returns a rubric document's mapping, or false for
// reference documents and anything unreadable.
func (d *Deduplicator) loadInlineDocument(path string) (map[string]any, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		d.logger.Debug("rubric document unreadable", logging.String("path", path), logging.Error(err))
		return nil, false
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		d.logger.Debug("rubric document malformed", logging.String("path", path), logging.Error(err))
		return nil, false
	}
	mapping, ok := doc.(map[string]any)
	if !ok {
		return nil, false
	}
	if _, ref := mapping["use_rubric"]; ref {
		return nil, false
	}
	if _, ref := mapping["reference"]; ref {
		return nil, false
	}
	return mapping, true
}

// loadCriterionRows returns the inline criterion mappings of a document,
// filtering out placeholder strings from earlier runs.
func (d *Deduplicator) loadCriterionRows(path string) []any {
	doc, ok := d.loadInlineDocument(path)
	if !ok {
		return nil
	}
	var rows []any
	for _, entry := range criteriaList(doc) {
		if _, isMap := entry.(map[string]any); isMap {
			rows = append(rows, entry)
		}
	}
	return rows
}

// findMatchingStoreFile returns the slug of an existing store document whose
// content already matches, so re-imports reuse files instead of multiplying
// them. comparable extracts the part of a store document that identity is
// judged on.
func (d *Deduplicator) findMatchingStoreFile(dir string, target any, comparable func(any) any) string {
	targetFP, err := Fingerprint(target)
	if err != nil {
		return ""
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		var existing any
		if err := yaml.Unmarshal(data, &existing); err != nil {
			continue
		}
		fp, err := Fingerprint(comparable(existing))
		if err != nil {
			continue
		}
		if fp == targetFP {
			return strings.TrimSuffix(entry.Name(), ext)
		}
	}
	return ""
}

// replaceRows rewrites one document, substituting extracted rows with
// placeholder strings.
func (d *Deduplicator) replaceRows(path string, fpToSlug map[string]string) error {
	doc, ok := d.loadInlineDocument(path)
	if !ok {
		return nil
	}
	criteria := criteriaList(doc)
	if len(criteria) == 0 {
		return nil
	}

	changed := false
	rewritten := make([]any, 0, len(criteria))
	for _, entry := range criteria {
		if _, isMap := entry.(map[string]any); isMap {
			fp, err := Fingerprint(entry)
			if err == nil {
				if slug, found := fpToSlug[fp]; found {
					rewritten = append(rewritten, fmt.Sprintf("{{rubric_row:%s}}", slug))
					changed = true
					continue
				}
			}
		}
		rewritten = append(rewritten, entry)
	}
	if !changed {
		return nil
	}

	doc["criteria"] = rewritten
	return writeYAML(path, doc)
}

func criteriaList(doc map[string]any) []any {
	criteria, _ := doc["criteria"].([]any)
	return criteria
}

// storedCriteria reduces a shared rubric document to its criteria list for
// identity comparison.
func storedCriteria(existing any) any {
	if mapping, ok := existing.(map[string]any); ok {
		return criteriaList(mapping)
	}
	return nil
}

// storedRow compares row documents whole.
func storedRow(existing any) any {
	return existing
}

// rubricSlug derives a store filename from the rubric title, the first
// criterion description, or the fingerprint when neither exists.
func rubricSlug(doc map[string]any, fp string) string {
	if title, _ := doc["title"].(string); strings.TrimSpace(title) != "" {
		return textutil.SlugToken(title, maxSlugLength)
	}
	criteria := criteriaList(doc)
	if len(criteria) > 0 {
		if first, ok := criteria[0].(map[string]any); ok {
			if desc, _ := first["description"].(string); strings.TrimSpace(desc) != "" {
				return textutil.SlugToken(desc, maxSlugLength)
			}
		}
	}
	return fp[:12]
}

func rowSlug(criterion any, fp string) string {
	if mapping, ok := criterion.(map[string]any); ok {
		if desc, _ := mapping["description"].(string); strings.TrimSpace(desc) != "" {
			return textutil.SlugToken(desc, maxSlugLength)
		}
	}
	return fp[:12]
}

func uniqueSlug(base string, taken map[string]bool) string {
	slug := base
	for n := 2; taken[slug]; n++ {
		slug = fmt.Sprintf("%s_%d", base, n)
	}
	return slug
}

func existingSlugs(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, services.Wrap(services.ErrRegistry, "rubric", "dedup", "scan store directory", err)
	}
	taken := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".yaml" || ext == ".yml" {
			taken[strings.TrimSuffix(entry.Name(), ext)] = true
		}
	}
	return taken, nil
}

func writeYAML(path string, value any) error {
	data, err := yaml.Marshal(value)
	if err != nil {
		return services.Wrap(services.ErrRegistry, "rubric", "dedup", "marshal "+filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrRegistry, "rubric", "dedup", "write "+filepath.Base(path), err)
	}
	return nil
}

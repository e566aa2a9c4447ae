package importer

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wwcc-dale/zaphod/internal/assetreg"
	"github.com/wwcc-dale/zaphod/internal/cartridge"
	"github.com/wwcc-dale/zaphod/internal/config"
	"github.com/wwcc-dale/zaphod/internal/course"
	"github.com/wwcc-dale/zaphod/internal/fileutil"
	"github.com/wwcc-dale/zaphod/internal/logging"
	"github.com/wwcc-dale/zaphod/internal/markdown"
	"github.com/wwcc-dale/zaphod/internal/rubric"
	"github.com/wwcc-dale/zaphod/internal/services"
	"github.com/wwcc-dale/zaphod/internal/textutil"
)

// sharedRubricPrefix names shared rubric definitions extracted at import
// time. The suffix is a truncated content fingerprint so re-imports land on
// the same file.
const sharedRubricPrefix = "shared-rubric-"

// Request describes one archive to import.
type Request struct {
	ArchivePath string
	// CourseDir overrides the destination directory. When empty the course
	// is written under the configured output directory using a name derived
	// from the archive.
	CourseDir string
	DryRun    bool
}

// Importer drives import runs. One importer serves any number of sequential
// runs; each run gets its own identifier and scratch directory.
type Importer struct {
	cfg        *config.Config
	rootLogger *slog.Logger
	logger     *slog.Logger

	extractor   *cartridge.Extractor
	transformer *cartridge.Transformer
}

// New builds an importer from loaded configuration.
func New(cfg *config.Config, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Importer{
		cfg:         cfg,
		rootLogger:  logger,
		logger:      logging.NewComponentLogger(logger, "importer"),
		extractor:   cartridge.NewExtractor(cfg.Archive, logger),
		transformer: cartridge.NewTransformer(cfg.Classifier, markdown.NewConverter(), logger),
	}
}

// Run imports one archive and reports what it produced. Unreadable archives,
// security ceiling violations, and broken manifests abort the run; individual
// resource failures are collected on the report and the rest of the cartridge
// is still written.
func (imp *Importer) Run(ctx context.Context, req Request) (*Report, error) {
	started := time.Now()
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, imp.logger)

	info, err := os.Stat(req.ArchivePath)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "importer", "run", "stat archive", err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrConfiguration, "importer", "run", req.ArchivePath+" is a directory", nil)
	}
	if !strings.EqualFold(filepath.Ext(req.ArchivePath), ".imscc") {
		logger.Warn("archive extension is not .imscc",
			logging.String(logging.FieldArchive, req.ArchivePath))
	}

	title := textutil.DeriveTitle(req.ArchivePath)
	courseDir := req.CourseDir
	if courseDir == "" {
		courseDir = filepath.Join(imp.cfg.Paths.OutputDir, textutil.SanitizeFileName(title))
	}

	report := &Report{
		RunID:     runID,
		Archive:   req.ArchivePath,
		CourseDir: courseDir,
		Title:     title,
		DryRun:    req.DryRun,
	}
	logger.Info("import started",
		logging.String(logging.FieldArchive, req.ArchivePath),
		logging.String(logging.FieldCourse, courseDir),
		logging.Bool("dry_run", req.DryRun))

	scratch, cleanup, err := imp.makeScratch()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := imp.extractor.Extract(services.WithPhase(ctx, "extract"), req.ArchivePath, scratch); err != nil {
		return nil, err
	}

	manifest, err := cartridge.ParseManifest(scratch, imp.rootLogger)
	if err != nil {
		return nil, err
	}

	cart, failures := imp.transformer.TransformResources(services.WithPhase(ctx, "transform"), manifest, scratch)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, failure := range failures {
		report.Failures = append(report.Failures, Failure{
			Identifier: failure.Identifier,
			Kind:       string(failure.Class),
			Reason:     failure.Err.Error(),
		})
	}
	cart.Title = title
	report.Modules = len(cart.Modules)

	imp.extractSharedRubrics(cart, logger)

	if req.DryRun {
		imp.fillPlannedCounts(report, cart)
		report.Duration = time.Since(started)
		logger.Info("dry run complete",
			logging.Int("documents", report.Documents()),
			logging.Int("failures", len(report.Failures)))
		return report, nil
	}

	if err := imp.write(ctx, cart, report); err != nil {
		return nil, err
	}

	imp.dedup(services.WithPhase(ctx, "dedup"), report)

	report.Duration = time.Since(started)
	logger.Info("import complete",
		logging.String(logging.FieldCourse, courseDir),
		logging.Int("documents", report.Documents()),
		logging.Int("assets", report.Assets),
		logging.Int("failures", len(report.Failures)),
		logging.Duration("duration", report.Duration))
	return report, nil
}

// makeScratch creates a per-run extraction directory under the configured
// scratch root and returns a cleanup closure that removes it.
func (imp *Importer) makeScratch() (string, func(), error) {
	root := imp.cfg.Paths.ScratchDir
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", nil, services.Wrap(services.ErrConfiguration, "importer", "scratch", "create scratch root", err)
	}
	dir, err := os.MkdirTemp(root, "import-*")
	if err != nil {
		return "", nil, services.Wrap(services.ErrConfiguration, "importer", "scratch", "create scratch directory", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			imp.logger.Warn("scratch cleanup failed",
				logging.String(logging.FieldPath, dir),
				logging.Error(err))
		}
	}
	return dir, cleanup, nil
}

// extractSharedRubrics rewrites groups of identical inline assignment
// rubrics into references against a definition stored once on the aggregate.
// Groups are keyed by criteria fingerprint so the same content always maps
// to the same shared name.
func (imp *Importer) extractSharedRubrics(cart *cartridge.CartridgeImport, logger *slog.Logger) {
	groups := make(map[string][]*cartridge.ContentItem)
	var order []string
	for i := range cart.ContentItems {
		item := &cart.ContentItems[i]
		if item.Rubric == nil || item.Rubric.Reference != "" || len(item.Rubric.Criteria) == 0 {
			continue
		}
		fp, err := rubric.Fingerprint(item.Rubric.Criteria)
		if err != nil {
			logger.Warn("rubric fingerprint failed",
				logging.String(logging.FieldResourceID, item.Identifier),
				logging.Error(err))
			continue
		}
		if _, seen := groups[fp]; !seen {
			order = append(order, fp)
		}
		groups[fp] = append(groups[fp], item)
	}

	for _, fp := range order {
		members := groups[fp]
		if len(members) < 2 {
			continue
		}
		name := sharedRubricPrefix + fp[:12]
		cart.SharedRubrics[name] = *members[0].Rubric
		for _, member := range members {
			member.Rubric = &cartridge.Rubric{Reference: name}
		}
		logger.Info("extracted shared rubric",
			logging.String("rubric", name),
			logging.Int("assignments", len(members)))
	}
}

// fillPlannedCounts records what a dry run would have written.
func (imp *Importer) fillPlannedCounts(report *Report, cart *cartridge.CartridgeImport) {
	for _, item := range cart.ContentItems {
		imp.countItem(report, item.Type)
	}
	report.Quizzes = len(cart.Quizzes)
	report.Banks = len(cart.QuestionBanks)
	report.Assets = len(cart.Assets)
	report.SharedRubrics = len(cart.SharedRubrics)
}

func (imp *Importer) countItem(report *Report, kind cartridge.ItemType) {
	switch kind {
	case cartridge.TypeAssignment:
		report.Assignments++
	case cartridge.TypeLink:
		report.Links++
	default:
		report.Pages++
	}
}

// write materializes the aggregate as a course tree. Per-document failures
// land on the report; only filesystem-level breakage aborts.
func (imp *Importer) write(ctx context.Context, cart *cartridge.CartridgeImport, report *Report) error {
	if err := os.MkdirAll(report.CourseDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "importer", "write", "create course directory", err)
	}
	writer := course.NewWriter(report.CourseDir, imp.cfg.Import, imp.rootLogger)
	logger := logging.WithContext(services.WithPhase(ctx, "write"), imp.logger)

	if imp.cfg.Import.Clean {
		if err := writer.Clean(); err != nil {
			return err
		}
	}

	count, err := writer.WriteSharedRubrics(cart.SharedRubrics)
	if err != nil {
		logger.Warn("shared rubric store write failed", logging.Error(err))
	}
	report.SharedRubrics = count

	for i := range cart.ContentItems {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := cart.ContentItems[i]
		if _, err := writer.WriteContentItem(item); err != nil {
			report.Failures = append(report.Failures, Failure{
				Identifier: item.Identifier,
				Kind:       string(item.Type),
				Reason:     err.Error(),
			})
			continue
		}
		imp.countItem(report, item.Type)
	}

	for _, quiz := range cart.Quizzes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := writer.WriteQuiz(quiz); err != nil {
			report.Failures = append(report.Failures, Failure{
				Identifier: quiz.Identifier,
				Kind:       string(cartridge.TypeQuiz),
				Reason:     err.Error(),
			})
			continue
		}
		report.Quizzes++
	}

	for _, bank := range cart.QuestionBanks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := writer.WriteQuestionBank(bank); err != nil {
			report.Failures = append(report.Failures, Failure{
				Identifier: bank.Identifier,
				Kind:       "question_bank",
				Reason:     err.Error(),
			})
			continue
		}
		report.Banks++
	}

	report.Assets = writer.CopyAssets(cart.Assets)

	if imp.cfg.Import.TrackAssets {
		imp.trackAssets(cart, report, logger)
	}
	return nil
}

// trackAssets records every copied asset in the course registry so later
// upload passes can resolve references without re-hashing the whole tree.
func (imp *Importer) trackAssets(cart *cartridge.CartridgeImport, report *Report, logger *slog.Logger) {
	if len(cart.Assets) == 0 && !imp.cfg.Import.Clean {
		return
	}
	registry := assetreg.Open(report.CourseDir, imp.rootLogger)

	dests := make([]string, 0, len(cart.Assets))
	for _, dest := range cart.Assets {
		dests = append(dests, dest)
	}
	sort.Strings(dests)

	for _, dest := range dests {
		rel := path.Join("assets", dest)
		if !fileutil.Exists(filepath.Join(report.CourseDir, filepath.FromSlash(rel))) {
			continue
		}
		if err := registry.TrackLocal(rel); err != nil {
			logger.Warn("asset tracking failed",
				logging.String(logging.FieldPath, rel),
				logging.Error(err))
		}
	}

	if imp.cfg.Import.Clean {
		if _, err := registry.PruneMissing(); err != nil {
			logger.Warn("registry prune failed", logging.Error(err))
		}
	}
	if err := registry.Save(); err != nil {
		logger.Warn("registry save failed", logging.Error(err))
	}
}

// dedup runs the post-write rubric dedup passes. Dedup problems degrade the
// run rather than failing it; the course tree is already on disk.
func (imp *Importer) dedup(ctx context.Context, report *Report) {
	result, err := rubric.NewDeduplicator(report.CourseDir, imp.rootLogger).Run()
	if err != nil {
		logging.WithContext(ctx, imp.logger).Warn("rubric dedup failed", logging.Error(err))
		return
	}
	report.DedupedRubrics = result.SharedRubrics
	report.DedupedRows = result.SharedRows
}

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wwcc-dale/zaphod/internal/config"
	"github.com/wwcc-dale/zaphod/internal/importer"
	"github.com/wwcc-dale/zaphod/internal/ledger"
	"github.com/wwcc-dale/zaphod/internal/services"
)

func newImportCommand(cmdCtx *commandContext) *cobra.Command {
	var outputDir string
	var clean bool
	var dryRun bool
	var noAssets bool

	cmd := &cobra.Command{
		Use:   "import <archive>",
		Short: "Import a cartridge archive into a course tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			runCfg := *cfg
			if clean {
				runCfg.Import.Clean = true
			}
			if noAssets {
				runCfg.Import.TrackAssets = false
			}

			archivePath, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve archive path: %w", err)
			}
			req := importer.Request{ArchivePath: archivePath, DryRun: dryRun}
			if strings.TrimSpace(outputDir) != "" {
				courseDir, err := config.ExpandPath(outputDir)
				if err != nil {
					return fmt.Errorf("resolve output path: %w", err)
				}
				req.CourseDir = courseDir
			}

			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}

			report, runErr := importer.New(&runCfg, logger).Run(cmd.Context(), req)
			if report == nil {
				report = &importer.Report{
					Archive:   req.ArchivePath,
					CourseDir: req.CourseDir,
					DryRun:    req.DryRun,
				}
			}
			recordImportRun(cmd, cmdCtx, ledgerRunFromReport(report, runErr))

			if runErr != nil {
				return fmt.Errorf("import failed (%s): %w", services.ClassifyFailure(runErr), runErr)
			}

			printImportSummary(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Course directory to write into (defaults to output_dir/<title>)")
	cmd.Flags().BoolVar(&clean, "clean", false, "Remove previously generated content before writing")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and classify the archive without writing anything")
	cmd.Flags().BoolVar(&noAssets, "no-assets", false, "Skip asset registry tracking")
	return cmd
}

// recordImportRun appends the run to the history ledger. History is
// best-effort from the CLI's perspective; a full log directory must not turn
// a finished import into a failure.
func recordImportRun(cmd *cobra.Command, cmdCtx *commandContext, run ledger.Run) {
	err := cmdCtx.withLedger(func(store *ledger.Store) error {
		_, err := store.RecordRun(context.Background(), run)
		return err
	})
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: record import history: %v\n", err)
	}
}

func ledgerRunFromReport(report *importer.Report, runErr error) ledger.Run {
	run := ledger.Run{
		RunID:          report.RunID,
		Archive:        report.Archive,
		CourseDir:      report.CourseDir,
		Title:          report.Title,
		Status:         ledger.StatusCompleted,
		DryRun:         report.DryRun,
		Modules:        report.Modules,
		Pages:          report.Pages,
		Assignments:    report.Assignments,
		Links:          report.Links,
		Quizzes:        report.Quizzes,
		Banks:          report.Banks,
		Assets:         report.Assets,
		SharedRubrics:  report.SharedRubrics,
		DedupedRubrics: report.DedupedRubrics,
		DedupedRows:    report.DedupedRows,
		Failures:       len(report.Failures),
		Duration:       report.Duration,
	}
	if runErr != nil {
		run.Status = ledger.StatusFailed
		run.ErrorMessage = runErr.Error()
	}
	return run
}

func printImportSummary(out io.Writer, report *importer.Report) {
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader("Import Summary", colorize) {
		fmt.Fprintln(out, line)
	}

	courseKind := statusOK
	courseMessage := report.CourseDir
	if report.DryRun {
		courseKind = statusInfo
		courseMessage += " (dry run, nothing written)"
	}
	fmt.Fprintln(out, renderStatusLine("Course", courseKind, courseMessage, colorize))
	fmt.Fprintln(out, renderStatusLine("Title", statusInfo, report.Title, colorize))
	fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, report.Duration.Round(time.Millisecond).String(), colorize))

	failureKind := statusOK
	failureMessage := "none"
	if len(report.Failures) > 0 {
		failureKind = statusWarn
		failureMessage = fmt.Sprintf("%d resources skipped", len(report.Failures))
	}
	fmt.Fprintln(out, renderStatusLine("Failures", failureKind, failureMessage, colorize))

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"Content", "Count"},
		buildReportRows(report),
		[]columnAlignment{alignLeft, alignRight},
	))

	if len(report.Failures) == 0 {
		return
	}
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Skipped Resources", colorize) {
		fmt.Fprintln(out, line)
	}
	rows := make([][]string, 0, len(report.Failures))
	for _, failure := range report.Failures {
		rows = append(rows, []string{failure.Identifier, failure.Kind, failure.Reason})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Resource", "Kind", "Reason"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	))
}

func buildReportRows(report *importer.Report) [][]string {
	return [][]string{
		{"Modules", strconv.Itoa(report.Modules)},
		{"Pages", strconv.Itoa(report.Pages)},
		{"Assignments", strconv.Itoa(report.Assignments)},
		{"Links", strconv.Itoa(report.Links)},
		{"Quizzes", strconv.Itoa(report.Quizzes)},
		{"Question banks", strconv.Itoa(report.Banks)},
		{"Assets", strconv.Itoa(report.Assets)},
		{"Shared rubrics", strconv.Itoa(report.SharedRubrics)},
	}
}

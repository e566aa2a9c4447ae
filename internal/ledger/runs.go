package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Status describes how a recorded run ended.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one recorded import run. RunID is empty for runs that failed before
// an identifier was assigned.
type Run struct {
	ID             int64
	RunID          string
	Archive        string
	CourseDir      string
	Title          string
	Status         Status
	DryRun         bool
	Modules        int
	Pages          int
	Assignments    int
	Links          int
	Quizzes        int
	Banks          int
	Assets         int
	SharedRubrics  int
	DedupedRubrics int
	DedupedRows    int
	Failures       int
	ErrorMessage   string
	Duration       time.Duration
	CreatedAt      time.Time
}

// Documents returns the number of markdown documents the run produced.
func (r Run) Documents() int {
	return r.Pages + r.Assignments + r.Links + r.Quizzes + r.Banks
}

const runColumns = "id, run_id, archive, course_dir, title, status, dry_run, modules, pages, assignments, links, quizzes, banks, assets, shared_rubrics, deduped_rubrics, deduped_rows, failures, error_message, duration_ms, created_at"

// RecordRun inserts one run row and returns its row ID. A zero CreatedAt is
// stamped with the current time.
func (s *Store) RecordRun(ctx context.Context, run Run) (int64, error) {
	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO import_runs (
            run_id, archive, course_dir, title, status, dry_run,
            modules, pages, assignments, links, quizzes, banks, assets,
            shared_rubrics, deduped_rubrics, deduped_rows, failures,
            error_message, duration_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(run.RunID),
		run.Archive,
		nullableString(run.CourseDir),
		nullableString(run.Title),
		string(run.Status),
		boolToInt(run.DryRun),
		run.Modules,
		run.Pages,
		run.Assignments,
		run.Links,
		run.Quizzes,
		run.Banks,
		run.Assets,
		run.SharedRubrics,
		run.DedupedRubrics,
		run.DedupedRows,
		run.Failures,
		nullableString(run.ErrorMessage),
		run.Duration.Milliseconds(),
		created.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// RecentRuns returns up to limit runs, newest first. A non-positive limit
// defaults to 20.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	ctx = ensureContext(ctx)

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM import_runs ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		id           int64
		runID        sql.NullString
		archive      string
		courseDir    sql.NullString
		title        sql.NullString
		statusStr    string
		dryRun       sql.NullInt64
		modules      int
		pages        int
		assignments  int
		links        int
		quizzes      int
		banks        int
		assets       int
		shared       int
		dedupRubrics int
		dedupRows    int
		failures     int
		errorMessage sql.NullString
		durationMS   int64
		createdRaw   string
	)

	if err := scanner.Scan(
		&id,
		&runID,
		&archive,
		&courseDir,
		&title,
		&statusStr,
		&dryRun,
		&modules,
		&pages,
		&assignments,
		&links,
		&quizzes,
		&banks,
		&assets,
		&shared,
		&dedupRubrics,
		&dedupRows,
		&failures,
		&errorMessage,
		&durationMS,
		&createdRaw,
	); err != nil {
		return Run{}, err
	}

	created, err := time.Parse(time.RFC3339Nano, createdRaw)
	if err != nil {
		created = time.Time{}
	}

	return Run{
		ID:             id,
		RunID:          runID.String,
		Archive:        archive,
		CourseDir:      courseDir.String,
		Title:          title.String,
		Status:         Status(statusStr),
		DryRun:         dryRun.Int64 != 0,
		Modules:        modules,
		Pages:          pages,
		Assignments:    assignments,
		Links:          links,
		Quizzes:        quizzes,
		Banks:          banks,
		Assets:         assets,
		SharedRubrics:  shared,
		DedupedRubrics: dedupRubrics,
		DedupedRows:    dedupRows,
		Failures:       failures,
		ErrorMessage:   errorMessage.String,
		Duration:       time.Duration(durationMS) * time.Millisecond,
		CreatedAt:      created,
	}, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

package importer

import "time"

// Failure records one resource that could not be converted or written. The
// run continues without it.
type Failure struct {
	Identifier string
	Kind       string
	Reason     string
}

// Report summarizes one import run. For a dry run the counts describe what
// would have been written.
type Report struct {
	RunID     string
	Archive   string
	CourseDir string
	Title     string
	DryRun    bool

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

	Failures []Failure
	Duration time.Duration
}

// Documents returns the total number of markdown documents the run produced.
func (r *Report) Documents() int {
	return r.Pages + r.Assignments + r.Links + r.Quizzes + r.Banks
}

package migration

import (
	"fmt"
	"sort"
	"time"
)

// Operation names used in results, reports and metric labels.
const (
	OpMigrate = "migrate"
	OpExport  = "export"
	OpImport  = "import"
)

// Result describes one MigrateDatabase or Export run.
type Result struct {
	ID        string
	Operation string

	// Tables is the resolved working set in processing order.
	Tables    []string
	Attempted int
	Succeeded int
	// Errors holds the failure of every table that did not succeed.
	Errors map[string]error

	// Rows counts rows copied by a migration.
	Rows int64

	// Path, Bytes and Checksum are set by Export. Bytes and Checksum
	// describe the uncompressed script; Checksum is hex xxh3-64.
	Path     string
	Bytes    int64
	Checksum string

	StartedAt  time.Time
	FinishedAt time.Time
}

func newResult(id, op string, now time.Time) *Result {
	return &Result{
		ID:        id,
		Operation: op,
		Errors:    make(map[string]error),
		StartedAt: now,
	}
}

func (r *Result) fail(table string, err error) {
	r.Errors[table] = err
}

// OK reports whether every table of the working set succeeded.
func (r *Result) OK() bool {
	return len(r.Errors) == 0 && r.Attempted == len(r.Tables)
}

// FailedTables returns the failed table names, sorted.
func (r *Result) FailedTables() []string {
	names := make([]string, 0, len(r.Errors))
	for name := range r.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Duration is zero until the run finishes.
func (r *Result) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary renders a one-line human-readable outcome.
func (r *Result) Summary() string {
	verb := "Migrated"
	if r.Operation == OpExport {
		verb = "Exported"
	}
	s := fmt.Sprintf("%s %d/%d tables", verb, r.Succeeded, len(r.Tables))
	if r.Operation == OpMigrate && r.Rows > 0 {
		s += fmt.Sprintf(", %d rows", r.Rows)
	}
	if n := len(r.Errors); n > 0 {
		s += fmt.Sprintf(" (%d failed)", n)
	}
	if r.Path != "" {
		s += " to " + r.Path
	}
	return s
}

// ImportResult describes one Import run.
type ImportResult struct {
	ID   string
	Path string

	Statements int
	Executed   int
	// Errors has one entry per failed statement, in file order.
	Errors []string

	StartedAt  time.Time
	FinishedAt time.Time
}

// OK reports whether every statement executed.
func (r *ImportResult) OK() bool {
	return len(r.Errors) == 0 && r.Executed == r.Statements
}

// Summary renders a one-line human-readable outcome.
func (r *ImportResult) Summary() string {
	s := fmt.Sprintf("Executed %d/%d statements", r.Executed, r.Statements)
	if n := len(r.Errors); n > 0 {
		s += fmt.Sprintf(" (%d failed)", n)
	}
	return s
}

// RunReport is the serialisable outcome handed to a Reporter.
type RunReport struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	Status    string    `json:"status"`
	Source    string    `json:"source,omitempty"`
	Target    string    `json:"target,omitempty"`
	Summary   string    `json:"summary"`
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is zero only for runs aborted before they started.
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`

	Tables    int               `json:"tables,omitempty"`
	Succeeded int               `json:"succeeded,omitempty"`
	Rows      int64             `json:"rows,omitempty"`
	Failures  map[string]string `json:"failures,omitempty"`

	Statements int      `json:"statements,omitempty"`
	Executed   int      `json:"executed,omitempty"`
	Errors     []string `json:"errors,omitempty"`

	Path     string  `json:"path,omitempty"`
	Checksum string  `json:"checksum,omitempty"`
	Error    *string `json:"error,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Report converts r into a RunReport. runErr is the fatal error, if any.
func (r *Result) Report(runErr error) RunReport {
	rep := RunReport{
		ID:         r.ID,
		Operation:  r.Operation,
		Summary:    r.Summary(),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMs: r.Duration().Milliseconds(),
		Tables:     len(r.Tables),
		Succeeded:  r.Succeeded,
		Rows:       r.Rows,
		Path:       r.Path,
		Checksum:   r.Checksum,
	}
	if len(r.Errors) > 0 {
		rep.Failures = make(map[string]string, len(r.Errors))
		for table, err := range r.Errors {
			rep.Failures[table] = err.Error()
		}
	}
	rep.Status = status(r.OK(), r.Succeeded > 0, runErr)
	if runErr != nil {
		msg := runErr.Error()
		rep.Error = &msg
	}
	return rep
}

// Report converts r into a RunReport. runErr is the fatal error, if any.
func (r *ImportResult) Report(runErr error) RunReport {
	rep := RunReport{
		ID:         r.ID,
		Operation:  OpImport,
		Summary:    r.Summary(),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Statements: r.Statements,
		Executed:   r.Executed,
		Errors:     r.Errors,
		Path:       r.Path,
	}
	if !r.FinishedAt.IsZero() {
		rep.DurationMs = r.FinishedAt.Sub(r.StartedAt).Milliseconds()
	}
	rep.Status = status(r.OK(), r.Executed > 0, runErr)
	if runErr != nil {
		msg := runErr.Error()
		rep.Error = &msg
	}
	return rep
}

func status(ok, progressed bool, runErr error) string {
	switch {
	case runErr == nil && ok:
		return StatusSuccess
	case progressed:
		return StatusPartial
	default:
		return StatusFailed
	}
}

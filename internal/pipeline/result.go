package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// Result contains the results of a complete pipeline run
type Result struct {
	RunID              string
	TotalDocuments     int
	ProcessedDocuments int
	SkippedDocuments   int
	SuccessCount       int
	FailureCount       int
	Duration           time.Duration
	Successes          []DocumentResult
	Failures           []DocumentFailure
}

// DocumentResult contains the results of processing a single document
type DocumentResult struct {
	Path        string
	Stem        string
	PageCount   int
	FailedPages int
	WordCount   int
	BlockCount  int
	OutputDir   string
	BlocksPath  string
	StartTime   time.Time
	Duration    time.Duration
}

// DocumentFailure contains information about a failed document
type DocumentFailure struct {
	Path  string
	Error error
}

// NewResult creates a new pipeline result with the given run ID
func NewResult(runID string) *Result {
	return &Result{
		RunID:     runID,
		Successes: make([]DocumentResult, 0),
		Failures:  make([]DocumentFailure, 0),
	}
}

// AddSuccess adds a successful document result
func (r *Result) AddSuccess(result *DocumentResult) {
	r.Successes = append(r.Successes, *result)
	r.SuccessCount++
}

// AddError adds a failed document
func (r *Result) AddError(path string, err error) {
	r.Failures = append(r.Failures, DocumentFailure{Path: path, Error: err})
	r.FailureCount++
}

// HasFailures returns true if there were any failures
func (r *Result) HasFailures() bool {
	return r.FailureCount > 0
}

// Summary returns a human-readable summary of the pipeline run
func (r *Result) Summary() string {
	var sb strings.Builder

	sb.WriteString("Run Summary:\n")
	sb.WriteString(fmt.Sprintf("  Run ID: %s\n", r.RunID))
	sb.WriteString(fmt.Sprintf("  Total Documents: %d\n", r.TotalDocuments))
	sb.WriteString(fmt.Sprintf("  Processed: %d\n", r.ProcessedDocuments))
	sb.WriteString(fmt.Sprintf("  Skipped: %d\n", r.SkippedDocuments))
	sb.WriteString(fmt.Sprintf("  Successful: %d\n", r.SuccessCount))
	sb.WriteString(fmt.Sprintf("  Failed: %d\n", r.FailureCount))
	sb.WriteString(fmt.Sprintf("  Duration: %v\n", r.Duration))

	if r.HasFailures() {
		sb.WriteString("\nFailures:\n")
		for _, failure := range r.Failures {
			sb.WriteString(fmt.Sprintf("  - %s: %v\n", failure.Path, failure.Error))
		}
	}

	return sb.String()
}

// String returns a string representation of the pipeline result
func (r *Result) String() string {
	return r.Summary()
}

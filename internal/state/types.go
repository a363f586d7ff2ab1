package state

import "time"

// ProcessingState represents the OCR processing state for a document folder
type ProcessingState struct {
	// LastRun is the timestamp of the last completed batch run
	LastRun time.Time `json:"last_run"`

	// Documents is a map of absolute source path to processing state
	Documents map[string]*DocumentState `json:"documents"`

	// Version is the state file format version
	Version int `json:"version"`
}

// DocumentState represents the processing state for a single source document
type DocumentState struct {
	// Path is the absolute path of the source PDF
	Path string `json:"path"`

	// Size is the source file size in bytes at processing time
	Size int64 `json:"size"`

	// ModTime is the source file modification time at processing time
	ModTime time.Time `json:"mod_time"`

	// ProcessedAt is when processing last completed
	ProcessedAt time.Time `json:"processed_at,omitempty"`

	// Status is the status of the last processing attempt
	Status Status `json:"status"`

	// RunID identifies the pipeline run that produced the outputs
	RunID string `json:"run_id,omitempty"`

	// PageCount is the number of pages in the document
	PageCount int `json:"page_count"`

	// FailedPages is the number of pages that yielded no words
	FailedPages int `json:"failed_pages"`

	// Error contains any error message from the last attempt
	Error string `json:"error,omitempty"`
}

// Status represents the status of document processing
type Status string

const (
	// StatusPending indicates processing has not been attempted
	StatusPending Status = "pending"

	// StatusInProgress indicates processing is currently running
	StatusInProgress Status = "in_progress"

	// StatusCompleted indicates processing completed successfully
	StatusCompleted Status = "completed"

	// StatusFailed indicates processing failed
	StatusFailed Status = "failed"
)

// StateFileVersion is the current version of the state file format
const StateFileVersion = 1

// NewProcessingState creates a new empty ProcessingState
func NewProcessingState() *ProcessingState {
	return &ProcessingState{
		Documents: make(map[string]*DocumentState),
		Version:   StateFileVersion,
	}
}

// NewDocumentState creates a new DocumentState for a source file
func NewDocumentState(path string, size int64, modTime time.Time) *DocumentState {
	return &DocumentState{
		Path:    path,
		Size:    size,
		ModTime: modTime,
		Status:  StatusPending,
	}
}

// Unchanged reports whether the on-disk file still matches the recorded
// fingerprint
func (ds *DocumentState) Unchanged(size int64, modTime time.Time) bool {
	return ds.Size == size && ds.ModTime.Equal(modTime)
}

package daemon

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// RunState represents the current state of the daemon's processing loop
type RunState string

const (
	// StateIdle indicates the daemon is running but not actively processing
	StateIdle RunState = "idle"

	// StateProcessing indicates a pipeline run is in progress
	StateProcessing RunState = "processing"

	// StateError indicates the last run failed
	StateError RunState = "error"
)

// Status represents the current daemon status
type Status struct {
	// State is the current run state (idle, processing, error)
	State RunState `json:"state"`

	// LastRunTime is the timestamp of the last run attempt
	LastRunTime *time.Time `json:"last_run_time,omitempty"`

	// RunDuration is how long the last run took
	RunDuration *time.Duration `json:"run_duration,omitempty"`

	// ErrorMessage contains the error from the last failed run
	ErrorMessage string `json:"error_message,omitempty"`

	// LastRunResult contains the result of the last completed run
	LastRunResult *RunSummary `json:"last_run_result,omitempty"`

	// UptimeSeconds is how long the daemon has been running
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// RunSummary contains a summary of a completed pipeline run
type RunSummary struct {
	// RunID identifies the pipeline run
	RunID string `json:"run_id"`

	// StartTime is when the run started
	StartTime time.Time `json:"start_time"`

	// Duration is how long the run took
	Duration time.Duration `json:"duration"`

	// TotalDocuments is the total number of documents found
	TotalDocuments int `json:"total_documents"`

	// ProcessedDocuments is how many documents were processed
	ProcessedDocuments int `json:"processed_documents"`

	// SuccessCount is how many documents succeeded
	SuccessCount int `json:"success_count"`

	// FailureCount is how many documents failed
	FailureCount int `json:"failure_count"`

	// SkippedCount is how many documents were skipped (no changes)
	SkippedCount int `json:"skipped_count"`
}

// StatusTracker tracks the daemon's current status in a thread-safe manner
type StatusTracker struct {
	mu         sync.RWMutex
	state      RunState
	startTime  time.Time
	lastRun    *time.Time
	lastDur    *time.Duration
	errMsg     string
	lastResult *RunSummary
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		state:     StateIdle,
		startTime: time.Now(),
	}
}

// GetStatus returns the current status
func (st *StatusTracker) GetStatus() Status {
	st.mu.RLock()
	defer st.mu.RUnlock()

	uptime := time.Since(st.startTime)

	return Status{
		State:         st.state,
		LastRunTime:   st.lastRun,
		RunDuration:   st.lastDur,
		ErrorMessage:  st.errMsg,
		LastRunResult: st.lastResult,
		UptimeSeconds: int64(uptime.Seconds()),
	}
}

// RunStarted records the start of a pipeline run
func (st *StatusTracker) RunStarted() {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	st.state = StateProcessing
	st.lastRun = &now
	st.errMsg = ""
}

// RunCompleted records a successful run completion
func (st *StatusTracker) RunCompleted(summary RunSummary) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.state = StateIdle
	st.lastResult = &summary
	st.errMsg = ""

	dur := summary.Duration
	st.lastDur = &dur
}

// RunFailed records a failed run
func (st *StatusTracker) RunFailed(err error, duration time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.state = StateError
	st.lastDur = &duration

	if err != nil {
		st.errMsg = err.Error()
	}
}

// handleStatus serves the current status as JSON
func (d *Daemon) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := d.statusTracker.GetStatus()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		d.logger.WithError(err).Error("Failed to encode status")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
}

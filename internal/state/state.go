// Package state persists per-document processing records so batch and watch
// runs can skip documents that have not changed since their last run.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Manager handles processing state persistence
type Manager struct {
	state    *ProcessingState
	filePath string
	mu       sync.RWMutex
}

// NewManager creates a new state manager
func NewManager(filePath string) *Manager {
	return &Manager{
		state:    NewProcessingState(),
		filePath: filePath,
	}
}

// Load reads the processing state from the JSON file.
// If the file doesn't exist, returns a new empty state (not an error)
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.filePath); os.IsNotExist(err) {
		m.state = NewProcessingState()
		return nil
	}

	data, err := os.ReadFile(m.filePath)
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var state ProcessingState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}

	if state.Version != StateFileVersion {
		return fmt.Errorf("unsupported state file version %d (expected %d)", state.Version, StateFileVersion)
	}
	if state.Documents == nil {
		state.Documents = make(map[string]*DocumentState)
	}

	m.state = &state
	return nil
}

// Save writes the processing state to the JSON file atomically
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(m.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	// Write to temp file, then rename.
	tmpFile := m.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}

	if err := os.Rename(tmpFile, m.filePath); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp state file: %w", err)
	}

	return nil
}

// GetDocument returns the recorded state for a source path, or nil
func (m *Manager) GetDocument(path string) *DocumentState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Documents[path]
}

// SetDocument adds or updates a document record
func (m *Manager) SetDocument(doc *DocumentState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Documents[doc.Path] = doc
}

// RemoveDocument removes a document record
func (m *Manager) RemoveDocument(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state.Documents, path)
}

// NeedsProcessing reports whether the file at path should be processed:
// true when it has no completed record or its size/modtime fingerprint
// changed since the recorded run
func (m *Manager) NeedsProcessing(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.state.Documents[path]
	if !ok || doc.Status != StatusCompleted {
		return true, nil
	}
	return !doc.Unchanged(info.Size(), info.ModTime()), nil
}

// MarkCompleted records a successful run for the file at path
func (m *Manager) MarkCompleted(path, runID string, pageCount, failedPages int) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc := NewDocumentState(path, info.Size(), info.ModTime())
	doc.Status = StatusCompleted
	doc.ProcessedAt = time.Now()
	doc.RunID = runID
	doc.PageCount = pageCount
	doc.FailedPages = failedPages
	m.state.Documents[path] = doc
	return nil
}

// MarkFailed records a failed run for the file at path
func (m *Manager) MarkFailed(path string, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.state.Documents[path]
	if !ok {
		doc = &DocumentState{Path: path}
		m.state.Documents[path] = doc
	}
	doc.Status = StatusFailed
	if cause != nil {
		doc.Error = cause.Error()
	}
}

// UpdateLastRun updates the last batch run timestamp
func (m *Manager) UpdateLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.LastRun = time.Now()
}

// Count returns the total number of tracked documents
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.state.Documents)
}

// Reset clears all state
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = NewProcessingState()
}

// LoadOrCreate loads an existing state file or creates a new one if it
// doesn't exist
func LoadOrCreate(filePath string) (*Manager, error) {
	manager := NewManager(filePath)

	if err := manager.Load(); err != nil {
		return nil, err
	}

	if len(manager.state.Documents) == 0 && manager.state.LastRun.IsZero() {
		if err := manager.Save(); err != nil {
			return nil, fmt.Errorf("failed to save initial state: %w", err)
		}
	}

	return manager, nil
}

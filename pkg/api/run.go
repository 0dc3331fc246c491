package api

import (
	"maps"
	"time"
)

type (
	// RunID uniquely identifies one workflow execution
	RunID string

	// RunStatus represents the current state of a workflow execution
	RunStatus string

	// Run is the per-execution data bus. It is owned exclusively by the
	// execution that created it, mutated only by the engine loop, and
	// becomes immutable once a terminal status is reached
	Run struct {
		CreatedAt   time.Time       `json:"created_at"`
		CompletedAt time.Time       `json:"completed_at,omitempty"`
		Data        map[string]any  `json:"data"`
		ID          RunID           `json:"id"`
		Workflow    string          `json:"workflow"`
		Goal        string          `json:"goal"`
		Status      RunStatus       `json:"status"`
		Current     StepID          `json:"current_step"`
		Error       string          `json:"error,omitempty"`
		History     []*HistoryEntry `json:"history"`
	}

	// HistoryEntry records one worker attempt. Exactly one entry is
	// appended per attempt, successful or not
	HistoryEntry struct {
		Timestamp  time.Time  `json:"timestamp"`
		Input      any        `json:"input,omitempty"`
		Output     any        `json:"output,omitempty"`
		StepID     StepID     `json:"step_id"`
		WorkerType WorkerType `json:"worker_type"`
		Error      string     `json:"error,omitempty"`
		Attempt    int        `json:"attempt"`
		Success    bool       `json:"success"`
	}
)

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Failure reasons recorded on Run.Error for engine-imposed terminations,
// distinguishable from an intentional on_failure routing
const (
	ReasonMaxIterations = "max iterations exceeded"
	ReasonCancelled     = "cancelled"
)

// NewRun creates a pending run for the named workflow with a copy of the
// caller's initial data
func NewRun(id RunID, workflow, goal string, init map[string]any) *Run {
	data := maps.Clone(init)
	if data == nil {
		data = map[string]any{}
	}
	return &Run{
		ID:        id,
		Workflow:  workflow,
		Goal:      goal,
		Status:    RunPending,
		Data:      data,
		CreatedAt: time.Now(),
	}
}

// Append records a history entry. History is append-only
func (r *Run) Append(entry *HistoryEntry) {
	r.History = append(r.History, entry)
}

// LastOutput returns the most recent successful output in history
func (r *Run) LastOutput() (any, bool) {
	for i := len(r.History) - 1; i >= 0; i-- {
		if r.History[i].Success {
			return r.History[i].Output, true
		}
	}
	return nil, false
}

// LastError returns the most recent recorded attempt error
func (r *Run) LastError() string {
	for i := len(r.History) - 1; i >= 0; i-- {
		if !r.History[i].Success && r.History[i].Error != "" {
			return r.History[i].Error
		}
	}
	return ""
}

// IsTerminal reports whether the run has reached a final status
func (r *Run) IsTerminal() bool {
	return r.Status == RunCompleted || r.Status == RunFailed
}

// StepTrace returns the ordered step IDs of all recorded attempts
func (r *Run) StepTrace() []StepID {
	trace := make([]StepID, len(r.History))
	for i, entry := range r.History {
		trace[i] = entry.StepID
	}
	return trace
}

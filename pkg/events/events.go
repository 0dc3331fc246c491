// Package events defines the engine's run lifecycle event catalog and the
// in-process hub that fans events out to subscribers such as the websocket
// server. Delivery is fire-and-forget: publishing never blocks the engine
// and never affects run state
package events

import (
	"time"

	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
)

type (
	// EventType discriminates run lifecycle events
	EventType string

	// Event is the envelope published for every run state change. Entry
	// is populated for attempt-level events and carries the history
	// record as appended
	Event struct {
		Timestamp  time.Time         `json:"timestamp"`
		Entry      *api.HistoryEntry `json:"entry,omitempty"`
		Type       EventType         `json:"type"`
		RunID      api.RunID         `json:"run_id"`
		Workflow   string            `json:"workflow"`
		StepID     api.StepID        `json:"step_id,omitempty"`
		WorkerType api.WorkerType    `json:"worker_type,omitempty"`
		Error      string            `json:"error,omitempty"`
	}
)

const (
	EventRunStarted    EventType = "run_started"
	EventStepStarted   EventType = "step_started"
	EventWorkAttempted EventType = "work_attempted"
	EventStepCompleted EventType = "step_completed"
	EventStepFailed    EventType = "step_failed"
	EventRunCompleted  EventType = "run_completed"
	EventRunFailed     EventType = "run_failed"
)

// NewEvent creates an event envelope stamped with the current time
func NewEvent(t EventType, run *api.Run) *Event {
	return &Event{
		Type:      t,
		RunID:     run.ID,
		Workflow:  run.Workflow,
		Timestamp: time.Now(),
	}
}

// WithStep returns a copy of the event annotated with step coordinates
func (e *Event) WithStep(step *api.Step) *Event {
	res := *e
	res.StepID = step.ID
	res.WorkerType = step.WorkerType
	return &res
}

// WithEntry returns a copy of the event carrying a history record
func (e *Event) WithEntry(entry *api.HistoryEntry) *Event {
	res := *e
	res.Entry = entry
	res.StepID = entry.StepID
	res.WorkerType = entry.WorkerType
	res.Error = entry.Error
	return &res
}

// WithError returns a copy of the event annotated with an error message
func (e *Event) WithError(msg string) *Event {
	res := *e
	res.Error = msg
	return &res
}

package api

import (
	"errors"
	"fmt"
)

type (
	// StepID identifies a step within a workflow. The sentinel values
	// StepCompleted and StepFailed terminate execution when routed to
	StepID string

	// Step is a node in a workflow graph. Transitions are pure data:
	// OnSuccess and OnFailure name either another declared step or one of
	// the two sentinels
	Step struct {
		ID          StepID     `json:"id" yaml:"id"`
		WorkerType  WorkerType `json:"worker_type" yaml:"worker_type"`
		Description string     `json:"description,omitempty" yaml:"description,omitempty"`
		OnSuccess   StepID     `json:"on_success,omitempty" yaml:"on_success,omitempty"`
		OnFailure   StepID     `json:"on_failure,omitempty" yaml:"on_failure,omitempty"`
		Terminal    bool       `json:"terminal,omitempty" yaml:"terminal,omitempty"`
		MaxRetries  int        `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
		Timeout     int64      `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	}
)

const (
	// StepCompleted is the sentinel target marking a successful run
	StepCompleted StepID = "completed"

	// StepFailed is the sentinel target marking a failed run
	StepFailed StepID = "failed"
)

var (
	ErrStepIDEmpty        = errors.New("step ID empty")
	ErrStepIDReserved     = errors.New("step ID is a reserved sentinel")
	ErrStepWorkerEmpty    = errors.New("step worker type empty")
	ErrNegativeMaxRetries = errors.New("max_retries cannot be negative")
	ErrNegativeTimeout    = errors.New("timeout_ms cannot be negative")
)

// IsSentinel returns true for the two terminal sentinel targets
func (id StepID) IsSentinel() bool {
	return id == StepCompleted || id == StepFailed
}

// Validate checks the local shape of a step. Graph-level checks such as
// transition resolution belong to Workflow.Validate
func (s *Step) Validate() error {
	if s.ID == "" {
		return ErrStepIDEmpty
	}
	if s.ID.IsSentinel() {
		return fmt.Errorf("%w: %s", ErrStepIDReserved, s.ID)
	}
	if s.WorkerType == "" {
		return fmt.Errorf("%w: %s", ErrStepWorkerEmpty, s.ID)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeMaxRetries, s.ID)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeTimeout, s.ID)
	}
	return nil
}

// SuccessTarget resolves where execution continues after the step
// succeeds. Terminal steps without an explicit edge complete the run
func (s *Step) SuccessTarget() StepID {
	if s.OnSuccess != "" {
		return s.OnSuccess
	}
	return StepCompleted
}

// FailureTarget resolves where execution continues after the step has
// exhausted its retries. Terminal steps without an explicit edge fail
// the run
func (s *Step) FailureTarget() StepID {
	if s.OnFailure != "" {
		return s.OnFailure
	}
	return StepFailed
}

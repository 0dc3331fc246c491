package api

import (
	"errors"
	"fmt"

	"github.com/ronaldwang03/agent-os-sub001/internal/util"
)

// Workflow is a declared graph of steps with deterministic success and
// failure transitions. It is mutable while being assembled and treated
// as immutable once Validate has succeeded
type Workflow struct {
	index        map[StepID]*Step
	Name         string  `json:"name" yaml:"name"`
	Description  string  `json:"description,omitempty" yaml:"description,omitempty"`
	GoalTemplate string  `json:"goal_template,omitempty" yaml:"goal_template,omitempty"`
	Steps        []*Step `json:"steps" yaml:"steps"`
	Initial      StepID  `json:"initial" yaml:"initial"`
	validated    bool
}

var (
	ErrWorkflowNameEmpty    = errors.New("workflow name empty")
	ErrNilStep              = errors.New("step is nil")
	ErrNoInitialStep        = errors.New("no initial step declared")
	ErrMultipleInitialSteps = errors.New("multiple initial steps declared")
	ErrDuplicateStepID      = errors.New("duplicate step ID")
	ErrUnknownTransition    = errors.New("transition references unknown step")
	ErrMissingOnSuccess     = errors.New("non-terminal step missing on_success")
	ErrMissingOnFailure     = errors.New("non-terminal step missing on_failure")
)

// NewWorkflow creates an empty workflow with the given name
func NewWorkflow(name string) *Workflow {
	return &Workflow{Name: name}
}

// AddStep appends a step to the workflow. At most one step may be marked
// initial; a redundant initial declaration fails immediately rather than
// being deferred to Validate
func (w *Workflow) AddStep(step *Step, initial bool) error {
	if step == nil {
		return ErrNilStep
	}
	if initial {
		if w.Initial != "" {
			return fmt.Errorf("%w: %s and %s",
				ErrMultipleInitialSteps, w.Initial, step.ID)
		}
		w.Initial = step.ID
	}
	w.Steps = append(w.Steps, step)
	w.validated = false
	return nil
}

// Step looks up a declared step by ID
func (w *Workflow) Step(id StepID) (*Step, bool) {
	if w.index != nil {
		s, ok := w.index[id]
		return s, ok
	}
	for _, s := range w.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Validated reports whether Validate has succeeded since the last
// structural change
func (w *Workflow) Validated() bool {
	return w.validated
}

// Validate checks the workflow graph. Checks run in order and the first
// failure wins: exactly one initial step, unique step IDs, resolvable
// transition targets, and explicit success and failure routing on every
// non-terminal step
func (w *Workflow) Validate() error {
	if w.Name == "" {
		return ErrWorkflowNameEmpty
	}
	if w.Initial == "" {
		return ErrNoInitialStep
	}

	index := make(map[StepID]*Step, len(w.Steps))
	for _, s := range w.Steps {
		if err := s.Validate(); err != nil {
			return err
		}
		if _, ok := index[s.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateStepID, s.ID)
		}
		index[s.ID] = s
	}

	if _, ok := index[w.Initial]; !ok {
		return fmt.Errorf("%w: initial %s", ErrUnknownTransition, w.Initial)
	}

	for _, s := range w.Steps {
		for _, target := range []StepID{s.OnSuccess, s.OnFailure} {
			if target == "" || target.IsSentinel() {
				continue
			}
			if _, ok := index[target]; !ok {
				return fmt.Errorf("%w: %s -> %s",
					ErrUnknownTransition, s.ID, target)
			}
		}
		if s.Terminal {
			continue
		}
		if s.OnSuccess == "" {
			return fmt.Errorf("%w: %s", ErrMissingOnSuccess, s.ID)
		}
		if s.OnFailure == "" {
			return fmt.Errorf("%w: %s", ErrMissingOnFailure, s.ID)
		}
	}

	w.index = index
	w.validated = true
	return nil
}

// TerminalReachable reports whether at least one sentinel is reachable
// from the initial step. Detection is best-effort and callers surface a
// negative result as a warning, not a validation failure
func (w *Workflow) TerminalReachable() bool {
	visited := util.Set[StepID]{}
	queue := []StepID{w.Initial}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id.IsSentinel() {
			return true
		}
		if visited.Contains(id) {
			continue
		}
		visited.Add(id)

		step, ok := w.Step(id)
		if !ok {
			continue
		}
		if step.Terminal {
			return true
		}
		queue = append(queue, step.SuccessTarget(), step.FailureTarget())
	}
	return false
}

// Package builder provides fluent construction of workflow definitions.
// Builders are immutable, so partially configured builders can be
// shared and extended without interference
package builder

import (
	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
)

type (
	// Workflow accumulates steps into a validated workflow definition
	Workflow struct {
		name         string
		description  string
		goalTemplate string
		steps        []builtStep
	}

	// Step accumulates the attributes of a single workflow step
	Step struct {
		step api.Step
	}

	builtStep struct {
		step    *api.Step
		initial bool
	}
)

// NewWorkflow starts a workflow builder with the given name
func NewWorkflow(name string) *Workflow {
	return &Workflow{name: name}
}

// WithDescription sets the workflow description
func (b *Workflow) WithDescription(desc string) *Workflow {
	res := *b
	res.description = desc
	return &res
}

// WithGoalTemplate sets the goal template applied to each run
func (b *Workflow) WithGoalTemplate(tpl string) *Workflow {
	res := *b
	res.goalTemplate = tpl
	return &res
}

// WithStep adds a step to the workflow
func (b *Workflow) WithStep(s *Step) *Workflow {
	return b.addStep(s, false)
}

// WithInitialStep adds a step and marks it as the workflow's entry point
func (b *Workflow) WithInitialStep(s *Step) *Workflow {
	return b.addStep(s, true)
}

func (b *Workflow) addStep(s *Step, initial bool) *Workflow {
	res := *b
	step := s.step
	res.steps = append(res.steps[:len(res.steps):len(res.steps)], builtStep{
		step:    &step,
		initial: initial,
	})
	return &res
}

// Build assembles and validates the workflow definition
func (b *Workflow) Build() (*api.Workflow, error) {
	wf := api.NewWorkflow(b.name)
	wf.Description = b.description
	wf.GoalTemplate = b.goalTemplate
	for _, s := range b.steps {
		if err := wf.AddStep(s.step, s.initial); err != nil {
			return nil, err
		}
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return wf, nil
}

// NewStep starts a step builder for the given step identifier and
// worker type
func NewStep(id api.StepID, wt api.WorkerType) *Step {
	return &Step{
		step: api.Step{
			ID:         id,
			WorkerType: wt,
		},
	}
}

// WithDescription sets the step description
func (b *Step) WithDescription(desc string) *Step {
	res := *b
	res.step.Description = desc
	return &res
}

// OnSuccess sets the step to transition to when an attempt succeeds
func (b *Step) OnSuccess(id api.StepID) *Step {
	res := *b
	res.step.OnSuccess = id
	return &res
}

// OnFailure sets the step to transition to when all attempts fail
func (b *Step) OnFailure(id api.StepID) *Step {
	res := *b
	res.step.OnFailure = id
	return &res
}

// WithMaxRetries sets how many additional attempts follow a failure
func (b *Step) WithMaxRetries(n int) *Step {
	res := *b
	res.step.MaxRetries = n
	return &res
}

// WithTimeout sets the per-attempt timeout in milliseconds
func (b *Step) WithTimeout(ms int64) *Step {
	res := *b
	res.step.Timeout = ms
	return &res
}

// AsTerminal marks the step as terminal, defaulting its transitions to
// the completion sentinels
func (b *Step) AsTerminal() *Step {
	res := *b
	res.step.Terminal = true
	return &res
}

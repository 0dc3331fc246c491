package builder

import (
	"errors"
	"fmt"

	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
)

var ErrNoWorkers = errors.New("chain requires at least one worker")

// NewPipeline builds the common specify, implement, review loop: the
// producer drafts a specification, the implementer acts on it, and the
// reviewer either accepts the result or sends it back for rework
func NewPipeline(
	name string, producer, implementer, reviewer api.WorkerType,
) (*api.Workflow, error) {
	return NewWorkflow(name).
		WithInitialStep(
			NewStep("specify", producer).
				OnSuccess("implement").
				OnFailure(api.StepFailed),
		).
		WithStep(
			NewStep("implement", implementer).
				OnSuccess("review").
				OnFailure(api.StepFailed),
		).
		WithStep(
			NewStep("review", reviewer).
				OnSuccess(api.StepCompleted).
				OnFailure("implement"),
		).
		Build()
}

// NewChain builds a linear workflow that runs the given workers in
// order, failing the run if any worker exhausts its attempts
func NewChain(name string, workers ...api.WorkerType) (*api.Workflow, error) {
	if len(workers) == 0 {
		return nil, ErrNoWorkers
	}
	b := NewWorkflow(name)
	for i, wt := range workers {
		next := api.StepCompleted
		if i < len(workers)-1 {
			next = chainStepID(i + 1)
		}
		s := NewStep(chainStepID(i), wt).
			OnSuccess(next).
			OnFailure(api.StepFailed)
		if i == 0 {
			b = b.WithInitialStep(s)
		} else {
			b = b.WithStep(s)
		}
	}
	return b.Build()
}

func chainStepID(i int) api.StepID {
	return api.StepID(fmt.Sprintf("step-%d", i+1))
}

// Package helpers provides shared fixtures for orchestrator tests
package helpers

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ronaldwang03/agent-os-sub001/internal/config"
	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
	"github.com/ronaldwang03/agent-os-sub001/pkg/builder"
)

// NewTestConfig creates a config suitable for fast tests, with retry
// backoff disabled
func NewTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Work.InitBackoff = 0
	cfg.Work.MaxBackoff = 0
	return cfg
}

// NewEchoWorker creates a worker that returns its input unchanged
func NewEchoWorker(wt api.WorkerType) *api.Worker {
	return &api.Worker{
		Type: wt,
		Name: string(wt),
		Exec: func(_ context.Context, input any, _ *api.Run) (any, error) {
			return input, nil
		},
	}
}

// NewStaticWorker creates a worker that always returns the given output
func NewStaticWorker(wt api.WorkerType, output any) *api.Worker {
	return &api.Worker{
		Type: wt,
		Name: string(wt),
		Exec: func(context.Context, any, *api.Run) (any, error) {
			return output, nil
		},
	}
}

// NewFlakyWorker creates a worker that fails its first n invocations and
// succeeds afterward, returning the given output
func NewFlakyWorker(wt api.WorkerType, n int, output any) *api.Worker {
	var calls atomic.Int64
	return &api.Worker{
		Type: wt,
		Name: string(wt),
		Exec: func(context.Context, any, *api.Run) (any, error) {
			if calls.Add(1) <= int64(n) {
				return nil, fmt.Errorf("transient failure %d", calls.Load())
			}
			return output, nil
		},
	}
}

// NewFailingWorker creates a worker that always fails
func NewFailingWorker(wt api.WorkerType) *api.Worker {
	return &api.Worker{
		Type: wt,
		Name: string(wt),
		Exec: func(context.Context, any, *api.Run) (any, error) {
			return nil, fmt.Errorf("%s always fails", wt)
		},
	}
}

// NewLinearWorkflow creates a validated two step workflow, first feeding
// second, using the given worker types
func NewLinearWorkflow(name string, first, second api.WorkerType) *api.Workflow {
	wf, err := builder.NewChain(name, first, second)
	if err != nil {
		panic(err)
	}
	return wf
}

// NewReviewWorkflow creates the specify, implement, review pipeline used
// throughout the engine tests
func NewReviewWorkflow(name string) *api.Workflow {
	wf, err := builder.NewPipeline(
		name, "producer", "implementer", "reviewer",
	)
	if err != nil {
		panic(err)
	}
	return wf
}

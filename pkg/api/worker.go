package api

import (
	"context"
	"errors"
)

type (
	// WorkerType names the role a worker fulfills. It is an open tag used
	// purely for registry lookup and carries no behavior of its own
	WorkerType string

	// Executor performs one unit of worker logic. It may block, may be
	// non-deterministic, and signals failure exclusively through a non-nil
	// error; any returned value is treated as success
	Executor func(ctx context.Context, input any, run *Run) (any, error)

	// InputTransformer builds a worker's input from the run context. When
	// absent, the engine defaults to the most recent recorded output,
	// falling back to the raw goal
	InputTransformer func(run *Run) (any, error)

	// OutputTransformer adapts a worker's raw output before it is stored
	// in the run's data bus
	OutputTransformer func(output any, run *Run) (any, error)

	// Worker binds a WorkerType to an executor and its optional
	// transformers. Workers are immutable once registered
	Worker struct {
		Exec        Executor
		Input       InputTransformer
		Output      OutputTransformer
		Type        WorkerType
		Name        string
		Description string
	}
)

var (
	ErrWorkerTypeEmpty = errors.New("worker type empty")
	ErrWorkerNameEmpty = errors.New("worker name empty")
	ErrExecutorNil     = errors.New("worker executor nil")
)

// Validate checks that a worker definition is structurally complete
func (w *Worker) Validate() error {
	if w.Type == "" {
		return ErrWorkerTypeEmpty
	}
	if w.Name == "" {
		return ErrWorkerNameEmpty
	}
	if w.Exec == nil {
		return ErrExecutorNil
	}
	return nil
}

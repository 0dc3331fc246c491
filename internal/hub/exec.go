package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
	"github.com/ronaldwang03/agent-os-sub001/pkg/events"
	"github.com/ronaldwang03/agent-os-sub001/pkg/log"
)

type invokeResult struct {
	output any
	err    error
}

const archiveTimeout = 5 * time.Second

var (
	ErrStepTimeout    = errors.New("step timed out")
	ErrWorkerPanicked = errors.New("worker panicked")
	ErrStepNotFound   = errors.New("current step not found in workflow")
)

// Execute runs the named workflow to a terminal state and returns the
// finalized run context. Execution is synchronous within the caller's
// goroutine; independent calls may run concurrently. Routing decisions
// are pure data lookups on the declared graph, so identical workflows,
// goals, and worker outputs always produce identical traces
func (h *Hub) Execute(
	ctx context.Context, name, goal string, init map[string]any,
) (*api.Run, error) {
	wf, err := h.Workflow(name)
	if err != nil {
		return nil, err
	}
	if !wf.Validated() {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotValidated, name)
	}

	run := api.NewRun(api.RunID(uuid.New().String()), wf.Name, goal, init)
	h.setStatus(run, api.RunRunning)
	run.Current = wf.Initial

	h.metrics.RunStarted()
	h.publish(events.NewEvent(events.EventRunStarted, run))
	slog.Info("Run started",
		log.RunID(run.ID),
		log.Workflow(run.Workflow),
		log.StepID(run.Current))

	iterations := 0
	counts := map[api.StepID]int{}
	for run.Status == api.RunRunning {
		if ctx.Err() != nil {
			h.failRun(run, api.ReasonCancelled)
			break
		}

		if run.Current == api.StepCompleted {
			h.completeRun(run)
			break
		}
		if run.Current == api.StepFailed {
			reason := run.LastError()
			if reason == "" {
				reason = "routed to failed"
			}
			h.failRun(run, reason)
			break
		}

		step, ok := wf.Step(run.Current)
		if !ok {
			h.failRun(run, fmt.Sprintf("%s: %s", ErrStepNotFound, run.Current))
			break
		}

		iterations++
		if iterations > h.cfg.MaxIterations {
			h.metrics.IterationCapTripped()
			h.failRun(run, api.ReasonMaxIterations)
			break
		}

		h.executeStep(ctx, run, step, counts)
	}

	h.archiveRun(run)
	return run, nil
}

// executeStep invokes one step's worker with retries and routes the run
// to the step's success or failure target. Recorded attempt numbers
// accumulate across revisits of the same step within a run; the retry
// bound applies to each visit independently
func (h *Hub) executeStep(
	ctx context.Context, run *api.Run, step *api.Step,
	counts map[api.StepID]int,
) {
	worker, err := h.Worker(step.WorkerType)
	if err != nil {
		// Resolution failure is a configuration defect, not a worker
		// failure. It is fatal to the whole run and never retried
		counts[step.ID]++
		entry := h.record(run, step, counts[step.ID], nil, nil, err)
		h.publish(events.NewEvent(events.EventStepFailed, run).
			WithEntry(entry))
		h.failRun(run, err.Error())
		return
	}

	h.publish(events.NewEvent(events.EventStepStarted, run).WithStep(step))

	input, err := buildInput(worker, run)
	if err != nil {
		// Transformers are pure; retrying one is pointless. The error
		// consumes the step's failure edge with a single history entry
		counts[step.ID]++
		entry := h.record(run, step, counts[step.ID], nil, nil, err)
		h.publish(events.NewEvent(events.EventStepFailed, run).
			WithEntry(entry))
		run.Current = step.FailureTarget()
		return
	}

	attempts := step.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			h.failRun(run, api.ReasonCancelled)
			return
		}

		started := time.Now()
		output, err := h.invoke(ctx, worker, step, input, run)
		if err == nil && worker.Output != nil {
			output, err = worker.Output(output, run)
		}
		h.metrics.ObserveAttempt(
			string(step.WorkerType), time.Since(started), err == nil,
		)

		counts[step.ID]++
		h.record(run, step, counts[step.ID], input, output, err)
		if err == nil {
			run.Data[string(step.WorkerType)] = output
			h.publish(events.NewEvent(events.EventStepCompleted, run).
				WithStep(step))
			run.Current = step.SuccessTarget()
			slog.Debug("Step completed",
				log.RunID(run.ID),
				log.StepID(step.ID),
				log.Attempt(counts[step.ID]))
			return
		}

		slog.Warn("Worker attempt failed",
			log.RunID(run.ID),
			log.StepID(step.ID),
			log.WorkerType(step.WorkerType),
			log.Attempt(counts[step.ID]),
			log.Error(err))

		if attempt < attempts && !h.backoffWait(ctx, attempt) {
			h.failRun(run, api.ReasonCancelled)
			return
		}
	}

	h.publish(events.NewEvent(events.EventStepFailed, run).
		WithStep(step).
		WithError(run.LastError()))
	run.Current = step.FailureTarget()
}

// invoke runs the worker's executor, converting panics to errors and
// enforcing the step's timeout when one is declared. A timed-out attempt
// is indistinguishable from an executor failure and counts against the
// step's retries
func (h *Hub) invoke(
	ctx context.Context, worker *api.Worker, step *api.Step, input any,
	run *api.Run,
) (any, error) {
	timeout := step.Timeout
	if timeout == 0 {
		timeout = h.cfg.StepTimeout
	}
	if timeout <= 0 {
		return safeExec(ctx, worker, input, run)
	}

	tctx, cancel := context.WithTimeout(
		ctx, time.Duration(timeout)*time.Millisecond,
	)
	defer cancel()

	ch := make(chan invokeResult, 1)
	go func() {
		output, err := safeExec(tctx, worker, input, run)
		ch <- invokeResult{output: output, err: err}
	}()

	select {
	case res := <-ch:
		return res.output, res.err
	case <-tctx.Done():
		return nil, fmt.Errorf("%w: %s after %dms",
			ErrStepTimeout, step.ID, timeout)
	}
}

func safeExec(
	ctx context.Context, worker *api.Worker, input any, run *api.Run,
) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrWorkerPanicked, r)
		}
	}()
	return worker.Exec(ctx, input, run)
}

// buildInput resolves the worker's input. A declared input transformer
// wins; otherwise the most recent recorded output feeds the next step,
// falling back to the raw goal when history is empty. The default
// captures the common linear pipeline while transformers handle
// divergence
func buildInput(worker *api.Worker, run *api.Run) (any, error) {
	if worker.Input != nil {
		return worker.Input(run)
	}
	if output, ok := run.LastOutput(); ok {
		return output, nil
	}
	return run.Goal, nil
}

// record appends one history entry for an attempt and publishes it
func (h *Hub) record(
	run *api.Run, step *api.Step, attempt int, input, output any, err error,
) *api.HistoryEntry {
	entry := &api.HistoryEntry{
		Timestamp:  time.Now(),
		StepID:     step.ID,
		WorkerType: step.WorkerType,
		Input:      input,
		Attempt:    attempt,
	}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Output = output
		entry.Success = true
	}
	run.Append(entry)
	h.publish(events.NewEvent(events.EventWorkAttempted, run).
		WithEntry(entry))
	return entry
}

func (h *Hub) completeRun(run *api.Run) {
	h.setStatus(run, api.RunCompleted)
	run.CompletedAt = time.Now()
	h.metrics.RunFinished(true)
	h.publish(events.NewEvent(events.EventRunCompleted, run))
	slog.Info("Run completed",
		log.RunID(run.ID),
		log.Workflow(run.Workflow),
		slog.Int("history", len(run.History)))
}

func (h *Hub) failRun(run *api.Run, reason string) {
	h.setStatus(run, api.RunFailed)
	run.Error = reason
	run.CompletedAt = time.Now()
	h.metrics.RunFinished(false)
	h.publish(events.NewEvent(events.EventRunFailed, run).
		WithError(reason))
	slog.Warn("Run failed",
		log.RunID(run.ID),
		log.Workflow(run.Workflow),
		slog.String("reason", reason))
}

func (h *Hub) setStatus(run *api.Run, to api.RunStatus) {
	if !runTransitions.CanTransition(run.Status, to) {
		slog.Error("Invalid run status transition",
			log.RunID(run.ID),
			slog.String("from", string(run.Status)),
			slog.String("to", string(to)))
		return
	}
	run.Status = to
}

// archiveRun persists a finalized run. Archive failures are logged and
// never affect the run's outcome
func (h *Hub) archiveRun(run *api.Run) {
	if h.archive == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	if err := h.archive.Put(ctx, run); err != nil {
		slog.Error("Failed to archive run",
			log.RunID(run.ID),
			log.Error(err))
	}
}

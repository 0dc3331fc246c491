package hub_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ronaldwang03/agent-os-sub001/internal/assert"
	"github.com/ronaldwang03/agent-os-sub001/internal/assert/helpers"
	"github.com/ronaldwang03/agent-os-sub001/internal/hub"
	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
	"github.com/ronaldwang03/agent-os-sub001/pkg/events"
)

func TestExecuteLinearWorkflow(t *testing.T) {
	as := assert.New(t)

	h := newTestHub(t)
	as.NoError(h.RegisterWorker(helpers.NewStaticWorker("producer", "plan")))
	as.NoError(h.RegisterWorker(helpers.NewEchoWorker("implementer")))
	as.NoError(h.RegisterWorkflow(
		helpers.NewLinearWorkflow("pipeline", "producer", "implementer"),
	))

	run, err := h.Execute(
		context.Background(), "pipeline", "ship it", nil,
	)
	as.NoError(err)
	as.RunStatus(run, api.RunCompleted)
	as.Trace(run, "step-1", "step-2")
	as.False(run.CompletedAt.IsZero())
	as.NotEmpty(run.ID)

	// The first step receives the goal; the second receives the first
	// step's output
	as.Equal("ship it", run.History[0].Input)
	as.Equal("plan", run.History[1].Input)
	as.Equal("plan", run.History[1].Output)

	as.RunHasData(run, "producer", "implementer")
	as.Equal("plan", run.Data["producer"])
}

func TestExecuteUnknownWorkflow(t *testing.T) {
	as := assert.New(t)

	h := newTestHub(t)
	run, err := h.Execute(context.Background(), "missing", "goal", nil)
	as.ErrorIs(err, hub.ErrUnknownWorkflow)
	as.Nil(run)
}

func TestExecuteRetriesThenSucceeds(t *testing.T) {
	as := assert.New(t)

	h := newTestHub(t)
	as.NoError(h.RegisterWorker(
		helpers.NewFlakyWorker("producer", 2, "plan"),
	))

	wf := api.NewWorkflow("flaky")
	as.NoError(wf.AddStep(&api.Step{
		ID:         "draft",
		WorkerType: "producer",
		OnSuccess:  api.StepCompleted,
		OnFailure:  api.StepFailed,
		MaxRetries: 2,
	}, true))
	as.NoError(h.RegisterWorkflow(wf))

	run, err := h.Execute(context.Background(), "flaky", "goal", nil)
	as.NoError(err)
	as.RunStatus(run, api.RunCompleted)

	// Two failed attempts plus the final success, one entry each
	as.Trace(run, "draft", "draft", "draft")
	as.False(run.History[0].Success)
	as.False(run.History[1].Success)
	as.True(run.History[2].Success)
	as.Equal(1, run.History[0].Attempt)
	as.Equal(3, run.History[2].Attempt)
}

func TestExecuteRetriesExhausted(t *testing.T) {
	as := assert.New(t)

	h := newTestHub(t)
	as.NoError(h.RegisterWorker(helpers.NewFailingWorker("producer")))

	wf := api.NewWorkflow("doomed")
	as.NoError(wf.AddStep(&api.Step{
		ID:         "draft",
		WorkerType: "producer",
		OnSuccess:  api.StepCompleted,
		OnFailure:  api.StepFailed,
		MaxRetries: 1,
	}, true))
	as.NoError(h.RegisterWorkflow(wf))

	run, err := h.Execute(context.Background(), "doomed", "goal", nil)
	as.NoError(err)
	as.RunStatus(run, api.RunFailed)
	as.Trace(run, "draft", "draft")
	as.Contains(run.Error, "always fails")
}

func TestExecuteReviewLoop(t *testing.T) {
	as := assert.New(t)

	h := newTestHub(t)
	as.NoError(h.RegisterWorker(helpers.NewStaticWorker("producer", "spec")))
	as.NoError(h.RegisterWorker(
		helpers.NewStaticWorker("implementer", "patch"),
	))
	as.NoError(h.RegisterWorker(
		helpers.NewFlakyWorker("reviewer", 1, "approved"),
	))
	as.NoError(h.RegisterWorkflow(helpers.NewReviewWorkflow("code-review")))

	run, err := h.Execute(
		context.Background(), "code-review", "fix the bug", nil,
	)
	as.NoError(err)
	as.RunStatus(run, api.RunCompleted)

	// The reviewer rejects once, looping back through implement
	as.Trace(run, "specify", "implement", "review", "implement", "review")
	as.RunHasData(run, "producer", "implementer", "reviewer")
	as.Equal("approved", run.Data["reviewer"])

	// Attempt numbers accumulate per step across the loop-back
	as.False(run.History[2].Success)
	as.Equal(1, run.History[2].Attempt)
	as.Equal(2, run.History[3].Attempt)
	as.True(run.History[4].Success)
	as.Equal(2, run.History[4].Attempt)
}

func TestExecuteRevisitAttemptNumbering(t *testing.T) {
	as := assert.New(t)

	h := newTestHub(t)
	as.NoError(h.RegisterWorker(helpers.NewFlakyWorker("producer", 3, "plan")))
	as.NoError(h.RegisterWorker(helpers.NewEchoWorker("fixer")))

	// The draft step fails its whole first visit, routes through repair,
	// and succeeds on the second visit
	wf := api.NewWorkflow("revisit")
	as.NoError(wf.AddStep(&api.Step{
		ID:         "draft",
		WorkerType: "producer",
		OnSuccess:  api.StepCompleted,
		OnFailure:  "repair",
		MaxRetries: 1,
	}, true))
	as.NoError(wf.AddStep(&api.Step{
		ID:         "repair",
		WorkerType: "fixer",
		OnSuccess:  "draft",
		OnFailure:  api.StepFailed,
	}, false))
	as.NoError(h.RegisterWorkflow(wf))

	run, err := h.Execute(context.Background(), "revisit", "goal", nil)
	as.NoError(err)
	as.RunStatus(run, api.RunCompleted)
	as.Trace(run, "draft", "draft", "repair", "draft", "draft")

	// The second visit retries independently but keeps counting from
	// where the first visit left off
	as.Equal(1, run.History[0].Attempt)
	as.Equal(2, run.History[1].Attempt)
	as.Equal(1, run.History[2].Attempt)
	as.Equal(3, run.History[3].Attempt)
	as.Equal(4, run.History[4].Attempt)
	as.True(run.History[4].Success)
}

func TestExecuteIterationCap(t *testing.T) {
	as := assert.New(t)

	cfg := helpers.NewTestConfig()
	cfg.MaxIterations = 3
	h := hub.New(cfg, nil)

	as.NoError(h.RegisterWorker(helpers.NewEchoWorker("spinner")))

	wf := api.NewWorkflow("spin")
	as.NoError(wf.AddStep(&api.Step{
		ID:         "spin",
		WorkerType: "spinner",
		OnSuccess:  "spin",
		OnFailure:  api.StepFailed,
	}, true))
	as.NoError(h.RegisterWorkflow(wf))

	run, err := h.Execute(context.Background(), "spin", "goal", nil)
	as.NoError(err)
	as.RunStatus(run, api.RunFailed)
	as.Equal(api.ReasonMaxIterations, run.Error)

	// The cap permits exactly MaxIterations step invocations
	as.HistoryLen(run, 3)
}

func TestExecuteCancelledBeforeStart(t *testing.T) {
	as := assert.New(t)

	h := newTestHub(t)
	as.NoError(h.RegisterWorker(helpers.NewEchoWorker("producer")))
	as.NoError(h.RegisterWorkflow(
		helpers.NewLinearWorkflow("pipeline", "producer", "producer"),
	))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := h.Execute(ctx, "pipeline", "goal", nil)
	as.NoError(err)
	as.RunStatus(run, api.RunFailed)
	as.Equal(api.ReasonCancelled, run.Error)
	as.HistoryLen(run, 0)
}

func TestExecuteCancelledMidRun(t *testing.T) {
	as := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newTestHub(t)
	as.NoError(h.RegisterWorker(&api.Worker{
		Type: "producer",
		Name: "producer",
		Exec: func(context.Context, any, *api.Run) (any, error) {
			cancel()
			return "partial", nil
		},
	}))
	as.NoError(h.RegisterWorker(helpers.NewEchoWorker("implementer")))
	as.NoError(h.RegisterWorkflow(
		helpers.NewLinearWorkflow("pipeline", "producer", "implementer"),
	))

	run, err := h.Execute(ctx, "pipeline", "goal", nil)
	as.NoError(err)
	as.RunStatus(run, api.RunFailed)
	as.Equal(api.ReasonCancelled, run.Error)

	// The first step finished before cancellation was observed
	as.Trace(run, "step-1")
	as.True(run.History[0].Success)
}

func TestExecuteStepTimeout(t *testing.T) {
	as := assert.New(t)

	h := newTestHub(t)
	as.NoError(h.RegisterWorker(&api.Worker{
		Type: "slow",
		Name: "slow",
		Exec: func(ctx context.Context, _ any, _ *api.Run) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}))

	wf := api.NewWorkflow("sluggish")
	as.NoError(wf.AddStep(&api.Step{
		ID:         "crawl",
		WorkerType: "slow",
		OnSuccess:  api.StepCompleted,
		OnFailure:  api.StepFailed,
		Timeout:    50,
	}, true))
	as.NoError(h.RegisterWorkflow(wf))

	run, err := h.Execute(context.Background(), "sluggish", "goal", nil)
	as.NoError(err)
	as.RunStatus(run, api.RunFailed)
	as.HistoryLen(run, 1)
	as.Contains(run.History[0].Error, "timed out")
}

func TestExecuteWorkerPanic(t *testing.T) {
	as := assert.New(t)

	h := newTestHub(t)
	as.NoError(h.RegisterWorker(&api.Worker{
		Type: "volatile",
		Name: "volatile",
		Exec: func(context.Context, any, *api.Run) (any, error) {
			panic("unexpected state")
		},
	}))

	wf := api.NewWorkflow("risky")
	as.NoError(wf.AddStep(&api.Step{
		ID:         "blast",
		WorkerType: "volatile",
		OnSuccess:  api.StepCompleted,
		OnFailure:  api.StepFailed,
	}, true))
	as.NoError(h.RegisterWorkflow(wf))

	run, err := h.Execute(context.Background(), "risky", "goal", nil)
	as.NoError(err)
	as.RunStatus(run, api.RunFailed)
	as.HistoryLen(run, 1)
	as.Contains(run.History[0].Error, "worker panicked")
}

func TestExecuteUnknownWorkerIsFatal(t *testing.T) {
	as := assert.New(t)

	h := newTestHub(t)

	wf := api.NewWorkflow("misconfigured")
	as.NoError(wf.AddStep(&api.Step{
		ID:         "draft",
		WorkerType: "ghost",
		OnSuccess:  api.StepCompleted,
		OnFailure:  api.StepFailed,
		MaxRetries: 5,
	}, true))
	as.NoError(h.RegisterWorkflow(wf))

	run, err := h.Execute(context.Background(), "misconfigured", "goal", nil)
	as.NoError(err)
	as.RunStatus(run, api.RunFailed)
	as.Contains(run.Error, "unknown worker type")

	// A configuration defect is never retried
	as.HistoryLen(run, 1)
}

func TestExecuteInputTransformer(t *testing.T) {
	as := assert.New(t)

	h := newTestHub(t)
	as.NoError(h.RegisterWorker(&api.Worker{
		Type: "producer",
		Name: "producer",
		Exec: func(_ context.Context, input any, _ *api.Run) (any, error) {
			return input, nil
		},
		Input: func(run *api.Run) (any, error) {
			return run.Data["branch"], nil
		},
	}))

	wf := api.NewWorkflow("custom-input")
	as.NoError(wf.AddStep(&api.Step{
		ID:         "draft",
		WorkerType: "producer",
		OnSuccess:  api.StepCompleted,
		OnFailure:  api.StepFailed,
	}, true))
	as.NoError(h.RegisterWorkflow(wf))

	run, err := h.Execute(
		context.Background(), "custom-input", "goal",
		map[string]any{"branch": "feature/login"},
	)
	as.NoError(err)
	as.RunStatus(run, api.RunCompleted)
	as.Equal("feature/login", run.History[0].Input)
	as.Equal("feature/login", run.Data["producer"])
}

func TestExecuteInputTransformerError(t *testing.T) {
	as := assert.New(t)

	h := newTestHub(t)
	as.NoError(h.RegisterWorker(&api.Worker{
		Type: "producer",
		Name: "producer",
		Exec: func(context.Context, any, *api.Run) (any, error) {
			t.Fatal("executor must not run when the transformer fails")
			return nil, nil
		},
		Input: func(*api.Run) (any, error) {
			return nil, errors.New("missing branch")
		},
	}))

	wf := api.NewWorkflow("bad-input")
	as.NoError(wf.AddStep(&api.Step{
		ID:         "draft",
		WorkerType: "producer",
		OnSuccess:  api.StepCompleted,
		OnFailure:  api.StepFailed,
		MaxRetries: 3,
	}, true))
	as.NoError(h.RegisterWorkflow(wf))

	run, err := h.Execute(context.Background(), "bad-input", "goal", nil)
	as.NoError(err)
	as.RunStatus(run, api.RunFailed)

	// A transformer failure consumes the failure edge without retries
	as.HistoryLen(run, 1)
	as.Contains(run.History[0].Error, "missing branch")
}

func TestExecuteOutputTransformer(t *testing.T) {
	as := assert.New(t)

	h := newTestHub(t)
	as.NoError(h.RegisterWorker(&api.Worker{
		Type: "producer",
		Name: "producer",
		Exec: func(context.Context, any, *api.Run) (any, error) {
			return map[string]any{"plan": "the plan", "noise": "x"}, nil
		},
		Output: func(output any, _ *api.Run) (any, error) {
			return output.(map[string]any)["plan"], nil
		},
	}))

	wf := api.NewWorkflow("projected")
	as.NoError(wf.AddStep(&api.Step{
		ID:         "draft",
		WorkerType: "producer",
		OnSuccess:  api.StepCompleted,
		OnFailure:  api.StepFailed,
	}, true))
	as.NoError(h.RegisterWorkflow(wf))

	run, err := h.Execute(context.Background(), "projected", "goal", nil)
	as.NoError(err)
	as.RunStatus(run, api.RunCompleted)
	as.Equal("the plan", run.Data["producer"])
	as.Equal("the plan", run.History[0].Output)
}

func TestExecuteDeterministicTrace(t *testing.T) {
	as := assert.New(t)

	h := newTestHub(t)
	as.NoError(h.RegisterWorker(helpers.NewStaticWorker("producer", "spec")))
	as.NoError(h.RegisterWorker(
		helpers.NewStaticWorker("implementer", "patch"),
	))
	as.NoError(h.RegisterWorker(
		helpers.NewStaticWorker("reviewer", "approved"),
	))
	as.NoError(h.RegisterWorkflow(helpers.NewReviewWorkflow("code-review")))

	first, err := h.Execute(
		context.Background(), "code-review", "fix the bug", nil,
	)
	as.NoError(err)
	second, err := h.Execute(
		context.Background(), "code-review", "fix the bug", nil,
	)
	as.NoError(err)

	as.NotEqual(first.ID, second.ID)
	as.Equal(first.StepTrace(), second.StepTrace())
	as.Equal(first.Status, second.Status)
	as.Equal(first.Data, second.Data)
}

func TestExecutePublishesEvents(t *testing.T) {
	as := assert.New(t)

	eventHub := events.NewHub()
	defer eventHub.Close()
	consumer := eventHub.NewConsumer()
	defer consumer.Close()

	h := hub.New(helpers.NewTestConfig(), eventHub)
	as.NoError(h.RegisterWorker(helpers.NewStaticWorker("producer", "plan")))
	as.NoError(h.RegisterWorkflow(
		helpers.NewLinearWorkflow("pipeline", "producer", "producer"),
	))

	run, err := h.Execute(context.Background(), "pipeline", "goal", nil)
	as.NoError(err)
	as.RunStatus(run, api.RunCompleted)

	var seen []events.EventType
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-consumer.Receive():
			seen = append(seen, e.Type)
			if e.Type == events.EventRunCompleted {
				as.Equal(events.EventType("run_started"), seen[0])
				as.Contains(seen, events.EventStepStarted)
				as.Contains(seen, events.EventWorkAttempted)
				as.Contains(seen, events.EventStepCompleted)
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for run_completed")
		}
	}
}

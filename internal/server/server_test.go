package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ronaldwang03/agent-os-sub001/internal/archive"
	"github.com/ronaldwang03/agent-os-sub001/internal/assert"
	"github.com/ronaldwang03/agent-os-sub001/internal/assert/helpers"
	"github.com/ronaldwang03/agent-os-sub001/internal/hub"
	"github.com/ronaldwang03/agent-os-sub001/internal/server"
	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
	"github.com/ronaldwang03/agent-os-sub001/pkg/events"
)

// memoryArchive is a map-backed Archiver for handler tests
type memoryArchive struct {
	runs map[api.RunID]*api.Run
	mu   sync.Mutex
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{runs: map[api.RunID]*api.Run{}}
}

func (a *memoryArchive) Put(_ context.Context, run *api.Run) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs[run.ID] = run
	return nil
}

func (a *memoryArchive) Get(
	_ context.Context, id api.RunID,
) (*api.Run, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	run, ok := a.runs[id]
	if !ok {
		return nil, archive.ErrRunNotFound
	}
	return run, nil
}

func (a *memoryArchive) Close() error {
	return nil
}

type testServer struct {
	hub     *hub.Hub
	archive *memoryArchive
	router  *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	eventHub := events.NewHub()
	t.Cleanup(eventHub.Close)

	a := newMemoryArchive()
	h := hub.New(helpers.NewTestConfig(), eventHub, hub.WithArchiver(a))

	srv := server.NewServer(h, eventHub, a, nil)
	t.Cleanup(srv.CloseWebSockets)

	return &testServer{
		hub:     h,
		archive: a,
		router:  srv.SetupRoutes(),
	}
}

func (ts *testServer) request(
	t *testing.T, method, path, body string,
) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	as := assert.New(t)

	ts := newTestServer(t)
	rec := ts.request(t, http.MethodGet, "/health", "")
	as.Equal(http.StatusOK, rec.Code)

	var health api.HealthResponse
	as.NoError(json.Unmarshal(rec.Body.Bytes(), &health))
	as.Equal("healthy", health.Status)
	as.NotEmpty(health.Service)
}

func TestListWorkers(t *testing.T) {
	as := assert.New(t)

	ts := newTestServer(t)
	as.NoError(ts.hub.RegisterWorker(helpers.NewEchoWorker("producer")))
	as.NoError(ts.hub.RegisterWorker(helpers.NewEchoWorker("reviewer")))

	rec := ts.request(t, http.MethodGet, "/worker", "")
	as.Equal(http.StatusOK, rec.Code)

	var list api.WorkersListResponse
	as.NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	as.Equal(2, list.Count)
	as.Equal(api.WorkerType("producer"), list.Workers[0].Type)
}

func TestWorkflowEndpoints(t *testing.T) {
	as := assert.New(t)

	ts := newTestServer(t)
	as.NoError(ts.hub.RegisterWorkflow(
		helpers.NewReviewWorkflow("code-review"),
	))

	t.Run("list", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/workflow", "")
		as.Equal(http.StatusOK, rec.Code)

		var list api.WorkflowsListResponse
		as.NoError(json.Unmarshal(rec.Body.Bytes(), &list))
		as.Equal(1, list.Count)
		as.Equal("code-review", list.Workflows[0].Name)
		as.Equal(3, list.Workflows[0].StepCount)
	})

	t.Run("get", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/workflow/code-review", "")
		as.Equal(http.StatusOK, rec.Code)

		var wf api.Workflow
		as.NoError(json.Unmarshal(rec.Body.Bytes(), &wf))
		as.Equal("code-review", wf.Name)
		as.Len(wf.Steps, 3)
	})

	t.Run("get_missing", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/workflow/missing", "")
		as.Equal(http.StatusNotFound, rec.Code)
	})
}

func TestRegisterWorkflowEndpoint(t *testing.T) {
	as := assert.New(t)

	ts := newTestServer(t)

	body := `
workflows:
  - name: triage
    initial: classify
    steps:
      - id: classify
        worker_type: classifier
        terminal: true
`
	rec := ts.request(t, http.MethodPost, "/workflow", body)
	as.Equal(http.StatusCreated, rec.Code)

	var resp api.WorkflowRegisteredResponse
	as.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	as.Equal([]string{"triage"}, resp.Workflows)

	_, err := ts.hub.Workflow("triage")
	as.NoError(err)
}

func TestRegisterWorkflowEndpointInvalid(t *testing.T) {
	as := assert.New(t)

	ts := newTestServer(t)

	rec := ts.request(t, http.MethodPost, "/workflow", "not: [valid")
	as.Equal(http.StatusBadRequest, rec.Code)

	body := `
workflows:
  - name: broken
    initial: a
    steps:
      - id: a
        worker_type: w
        on_success: missing
        on_failure: failed
`
	rec = ts.request(t, http.MethodPost, "/workflow", body)
	as.Equal(http.StatusBadRequest, rec.Code)
}

func TestExecuteEndpoint(t *testing.T) {
	as := assert.New(t)

	ts := newTestServer(t)
	as.NoError(ts.hub.RegisterWorker(
		helpers.NewStaticWorker("producer", "plan"),
	))
	as.NoError(ts.hub.RegisterWorker(helpers.NewEchoWorker("implementer")))
	as.NoError(ts.hub.RegisterWorkflow(
		helpers.NewLinearWorkflow("pipeline", "producer", "implementer"),
	))

	rec := ts.request(t, http.MethodPost, "/workflow/pipeline/execute",
		`{"goal": "ship it", "init": {"branch": "main"}}`)
	as.Equal(http.StatusOK, rec.Code)

	var run api.Run
	as.NoError(json.Unmarshal(rec.Body.Bytes(), &run))
	as.RunStatus(&run, api.RunCompleted)
	as.Equal("ship it", run.Goal)
	as.Equal("main", run.Data["branch"])
	as.HistoryLen(&run, 2)
}

func TestExecuteEndpointErrors(t *testing.T) {
	as := assert.New(t)

	ts := newTestServer(t)

	rec := ts.request(t, http.MethodPost, "/workflow/missing/execute",
		`{"goal": "x"}`)
	as.Equal(http.StatusNotFound, rec.Code)

	rec = ts.request(t, http.MethodPost, "/workflow/missing/execute",
		`{"goal": `)
	as.Equal(http.StatusBadRequest, rec.Code)
}

func TestGetRunEndpoint(t *testing.T) {
	as := assert.New(t)

	ts := newTestServer(t)
	as.NoError(ts.hub.RegisterWorker(
		helpers.NewStaticWorker("producer", "plan"),
	))
	as.NoError(ts.hub.RegisterWorkflow(
		helpers.NewLinearWorkflow("pipeline", "producer", "producer"),
	))

	run, err := ts.hub.Execute(context.Background(), "pipeline", "goal", nil)
	as.NoError(err)

	rec := ts.request(t, http.MethodGet, "/run/"+string(run.ID), "")
	as.Equal(http.StatusOK, rec.Code)

	var got api.Run
	as.NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	as.Equal(run.ID, got.ID)
	as.RunStatus(&got, api.RunCompleted)

	rec = ts.request(t, http.MethodGet, "/run/no-such-run", "")
	as.Equal(http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	as := assert.New(t)

	ts := newTestServer(t)
	rec := ts.request(t, http.MethodOptions, "/workflow", "")
	as.Equal(http.StatusOK, rec.Code)
	as.Equal("*", rec.Header().Get("Access-Control-Allow-Origin"))
}

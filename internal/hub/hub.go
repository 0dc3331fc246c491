package hub

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/ronaldwang03/agent-os-sub001/internal/archive"
	"github.com/ronaldwang03/agent-os-sub001/internal/config"
	"github.com/ronaldwang03/agent-os-sub001/internal/metrics"
	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
	"github.com/ronaldwang03/agent-os-sub001/pkg/events"
	"github.com/ronaldwang03/agent-os-sub001/pkg/log"
)

type (
	// Hub ties the worker registry and workflow definitions together and
	// executes workflow instances. Registration and execution may be
	// interleaved; the registry is guarded so that executions only ever
	// read it
	Hub struct {
		cfg       *config.Config
		events    *events.Hub
		archive   archive.Archiver
		metrics   *metrics.Metrics
		workers   map[api.WorkerType]*api.Worker
		workflows map[string]*api.Workflow
		mu        sync.RWMutex
	}

	// Option configures optional hub collaborators
	Option func(*Hub)
)

var (
	ErrUnknownWorker        = errors.New("unknown worker type")
	ErrDuplicateWorker      = errors.New("worker type already registered")
	ErrUnknownWorkflow      = errors.New("unknown workflow")
	ErrWorkflowNotValidated = errors.New("workflow not validated")
	ErrNilWorkflow          = errors.New("workflow is nil")
)

// WithArchiver attaches a run archive that receives finalized runs
func WithArchiver(a archive.Archiver) Option {
	return func(h *Hub) {
		h.archive = a
	}
}

// WithMetrics attaches engine metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

// New creates an orchestrator hub with the specified configuration and
// event hub
func New(cfg *config.Config, hub *events.Hub, opts ...Option) *Hub {
	h := &Hub{
		cfg:       cfg,
		events:    hub,
		workers:   map[api.WorkerType]*api.Worker{},
		workflows: map[string]*api.Workflow{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterWorker stores a worker definition keyed by its type. A later
// registration for the same type replaces the earlier one; replacement
// is the legitimate override path
func (h *Hub) RegisterWorker(w *api.Worker) error {
	if err := w.Validate(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.workers[w.Type] = w

	slog.Debug("Worker registered",
		log.WorkerType(w.Type),
		slog.String("name", w.Name))
	return nil
}

// RegisterWorkerStrict stores a worker definition, failing instead of
// replacing when the type is already registered
func (h *Hub) RegisterWorkerStrict(w *api.Worker) error {
	if err := w.Validate(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.workers[w.Type]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateWorker, w.Type)
	}
	h.workers[w.Type] = w
	return nil
}

// Worker resolves a registered worker by type. Resolution failure is a
// configuration defect and callers must treat it as fatal to the run
func (h *Hub) Worker(wt api.WorkerType) (*api.Worker, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	w, ok := h.workers[wt]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorker, wt)
	}
	return w, nil
}

// RegisterWorkflow validates and stores a workflow definition keyed by
// name. Validation failure rejects the registration outright.
// Re-registration under the same name replaces the earlier definition
func (h *Hub) RegisterWorkflow(wf *api.Workflow) error {
	if wf == nil {
		return ErrNilWorkflow
	}
	if err := wf.Validate(); err != nil {
		return err
	}
	if !wf.TerminalReachable() {
		slog.Warn("No terminal state reachable from initial step",
			log.Workflow(wf.Name))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.workflows[wf.Name] = wf

	slog.Info("Workflow registered",
		log.Workflow(wf.Name),
		slog.Int("steps", len(wf.Steps)))
	return nil
}

// Workflow resolves a registered workflow definition by name
func (h *Hub) Workflow(name string) (*api.Workflow, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	wf, ok := h.workflows[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorkflow, name)
	}
	return wf, nil
}

// Workflows returns all registered workflow definitions ordered by name
func (h *Hub) Workflows() []*api.Workflow {
	h.mu.RLock()
	defer h.mu.RUnlock()

	res := make([]*api.Workflow, 0, len(h.workflows))
	for _, wf := range h.workflows {
		res = append(res, wf)
	}
	slices.SortFunc(res, func(a, b *api.Workflow) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})
	return res
}

// Workers returns all registered workers ordered by type
func (h *Hub) Workers() []*api.Worker {
	h.mu.RLock()
	defer h.mu.RUnlock()

	res := make([]*api.Worker, 0, len(h.workers))
	for _, w := range h.workers {
		res = append(res, w)
	}
	slices.SortFunc(res, func(a, b *api.Worker) int {
		switch {
		case a.Type < b.Type:
			return -1
		case a.Type > b.Type:
			return 1
		default:
			return 0
		}
	})
	return res
}

func (h *Hub) publish(e *events.Event) {
	if h.events == nil {
		return
	}
	h.events.Publish(e)
}

package api

import "time"

type (
	// ExecuteRequest contains parameters for executing a workflow
	ExecuteRequest struct {
		Init map[string]any `json:"init"`
		Goal string         `json:"goal"`
	}

	// RunDigest provides summary information about a run
	RunDigest struct {
		ID          RunID     `json:"id"`
		Workflow    string    `json:"workflow"`
		Status      RunStatus `json:"status"`
		CreatedAt   time.Time `json:"created_at"`
		CompletedAt time.Time `json:"completed_at"`
		Error       string    `json:"error,omitempty"`
	}

	// WorkflowDigest provides summary information about a workflow
	WorkflowDigest struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Initial     StepID `json:"initial"`
		StepCount   int    `json:"step_count"`
	}

	// WorkflowsListResponse contains a list of workflow summaries
	WorkflowsListResponse struct {
		Workflows []*WorkflowDigest `json:"workflows"`
		Count     int               `json:"count"`
	}

	// WorkerDigest provides summary information about a registered worker
	WorkerDigest struct {
		Type        WorkerType `json:"type"`
		Name        string     `json:"name"`
		Description string     `json:"description,omitempty"`
	}

	// WorkersListResponse contains a list of registered workers
	WorkersListResponse struct {
		Workers []*WorkerDigest `json:"workers"`
		Count   int             `json:"count"`
	}

	// WorkflowRegisteredResponse is returned when registration succeeds
	WorkflowRegisteredResponse struct {
		Message   string   `json:"message"`
		Workflows []string `json:"workflows"`
	}

	// HealthResponse provides service health information
	HealthResponse struct {
		Service string `json:"service"`
		Version string `json:"version"`
		Status  string `json:"status"`
	}

	// MessageResponse contains a simple message string
	MessageResponse struct {
		Message string `json:"message"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}
)

// Digest summarizes the run for list and streaming responses
func (r *Run) Digest() *RunDigest {
	return &RunDigest{
		ID:          r.ID,
		Workflow:    r.Workflow,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
		Error:       r.Error,
	}
}

// Digest summarizes the workflow for list responses
func (w *Workflow) Digest() *WorkflowDigest {
	return &WorkflowDigest{
		Name:        w.Name,
		Description: w.Description,
		Initial:     w.Initial,
		StepCount:   len(w.Steps),
	}
}

// Digest summarizes the worker for list responses
func (w *Worker) Digest() *WorkerDigest {
	return &WorkerDigest{
		Type:        w.Type,
		Name:        w.Name,
		Description: w.Description,
	}
}

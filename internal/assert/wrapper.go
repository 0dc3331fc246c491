// Package assert wraps testify with orchestrator-specific helpers
package assert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ronaldwang03/agent-os-sub001/internal/config"
	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
)

// Wrapper wraps testify assertions with orchestrator-specific helpers
type Wrapper struct {
	*testing.T
	*assert.Assertions
	Require *assert.Assertions
}

// DefaultRetryInterval is the default polling interval for Eventually checks
const DefaultRetryInterval = 100 * time.Millisecond

// New creates a new test assertion wrapper
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
		Require:    assert.New(t),
	}
}

// WorkflowValid asserts that a workflow validates cleanly
func (w *Wrapper) WorkflowValid(wf *api.Workflow) {
	w.Helper()
	w.NoError(wf.Validate())
	w.True(wf.Validated())
	w.NotEmpty(wf.Initial)
}

// WorkflowInvalid asserts that workflow validation fails with the given
// sentinel error
func (w *Wrapper) WorkflowInvalid(wf *api.Workflow, want error) error {
	w.Helper()
	err := wf.Validate()
	w.Error(err)
	if want != nil {
		w.ErrorIs(err, want)
	}
	w.False(wf.Validated())
	return err
}

// RunStatus asserts the final status of a run
func (w *Wrapper) RunStatus(run *api.Run, expected api.RunStatus) {
	w.Helper()
	w.Equal(expected, run.Status)
}

// Trace asserts the exact ordered step IDs recorded in run history
func (w *Wrapper) Trace(run *api.Run, ids ...api.StepID) {
	w.Helper()
	w.Equal(ids, run.StepTrace())
}

// HistoryLen asserts the number of recorded attempts
func (w *Wrapper) HistoryLen(run *api.Run, expected int) {
	w.Helper()
	w.Len(run.History, expected)
}

// RunHasData asserts that the run's data bus contains the given keys
func (w *Wrapper) RunHasData(run *api.Run, keys ...string) {
	w.Helper()
	for _, key := range keys {
		w.Contains(run.Data, key)
	}
}

// ConfigValid asserts that a configuration is valid
func (w *Wrapper) ConfigValid(cfg *config.Config) {
	w.Helper()
	w.NoError(cfg.Validate())
	w.True(cfg.APIPort > 0 && cfg.APIPort <= 65535)
	w.True(cfg.MaxIterations > 0)
}

// ConfigInvalid asserts that a configuration is invalid
func (w *Wrapper) ConfigInvalid(cfg *config.Config, contains string) {
	w.Helper()
	err := cfg.Validate()
	w.Error(err)
	if contains != "" {
		w.Contains(err.Error(), contains)
	}
}

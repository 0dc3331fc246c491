package api_test

import (
	"context"
	"testing"

	"github.com/ronaldwang03/agent-os-sub001/internal/assert"
	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
)

func TestWorkerValidation(t *testing.T) {
	as := assert.New(t)

	exec := func(context.Context, any, *api.Run) (any, error) {
		return nil, nil
	}

	tests := []struct {
		worker      *api.Worker
		expectedErr error
		name        string
	}{
		{
			name: "valid_worker",
			worker: &api.Worker{
				Type: "producer",
				Name: "Spec Producer",
				Exec: exec,
			},
		},
		{
			name:        "missing_type",
			worker:      &api.Worker{Name: "Spec Producer", Exec: exec},
			expectedErr: api.ErrWorkerTypeEmpty,
		},
		{
			name:        "missing_name",
			worker:      &api.Worker{Type: "producer", Exec: exec},
			expectedErr: api.ErrWorkerNameEmpty,
		},
		{
			name:        "missing_executor",
			worker:      &api.Worker{Type: "producer", Name: "Spec Producer"},
			expectedErr: api.ErrExecutorNil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.worker.Validate()
			if tt.expectedErr == nil {
				as.NoError(err)
				return
			}
			as.ErrorIs(err, tt.expectedErr)
		})
	}
}

func TestWorkerDigest(t *testing.T) {
	as := assert.New(t)

	w := &api.Worker{
		Type:        "reviewer",
		Name:        "Code Reviewer",
		Description: "reviews proposed changes",
		Exec: func(context.Context, any, *api.Run) (any, error) {
			return nil, nil
		},
	}

	d := w.Digest()
	as.Equal(api.WorkerType("reviewer"), d.Type)
	as.Equal("Code Reviewer", d.Name)
	as.Equal("reviews proposed changes", d.Description)
}

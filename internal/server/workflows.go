package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ronaldwang03/agent-os-sub001/internal/hub"
	"github.com/ronaldwang03/agent-os-sub001/internal/workflowfile"
	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
)

var (
	ErrInvalidJSON      = errors.New("invalid JSON payload")
	ErrReadBody         = errors.New("failed to read request body")
	ErrExecuteRun       = errors.New("failed to execute workflow")
	ErrParseUpload      = errors.New("failed to parse workflow definitions")
	ErrRegisterWorkflow = errors.New("failed to register workflow")
)

func (s *Server) listWorkers(c *gin.Context) {
	workers := s.hub.Workers()
	digests := make([]*api.WorkerDigest, len(workers))
	for i, w := range workers {
		digests[i] = w.Digest()
	}

	c.JSON(http.StatusOK, api.WorkersListResponse{
		Workers: digests,
		Count:   len(digests),
	})
}

func (s *Server) listWorkflows(c *gin.Context) {
	workflows := s.hub.Workflows()
	digests := make([]*api.WorkflowDigest, len(workflows))
	for i, wf := range workflows {
		digests[i] = wf.Digest()
	}

	c.JSON(http.StatusOK, api.WorkflowsListResponse{
		Workflows: digests,
		Count:     len(digests),
	})
}

func (s *Server) getWorkflow(c *gin.Context) {
	name := c.Param("name")

	wf, err := s.hub.Workflow(name)
	if err == nil {
		c.JSON(http.StatusOK, wf)
		return
	}

	c.JSON(http.StatusNotFound, api.ErrorResponse{
		Error:  fmt.Sprintf("%s: %s", err.Error(), name),
		Status: http.StatusNotFound,
	})
}

// registerWorkflows accepts workflow definitions as YAML or JSON and
// registers each one, replacing any existing definition of the same name
func (s *Server) registerWorkflows(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrReadBody, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	workflows, err := workflowfile.Parse(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrParseUpload, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	names := make([]string, 0, len(workflows))
	for _, wf := range workflows {
		if err := s.hub.RegisterWorkflow(wf); err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{
				Error:  fmt.Sprintf("%s: %v", ErrRegisterWorkflow, err),
				Status: http.StatusBadRequest,
			})
			return
		}
		names = append(names, wf.Name)
	}

	c.JSON(http.StatusCreated, api.WorkflowRegisteredResponse{
		Message:   "workflows registered",
		Workflows: names,
	})
}

// executeWorkflow runs a workflow to completion and returns the final
// run, history included
func (s *Server) executeWorkflow(c *gin.Context) {
	name := c.Param("name")

	var req api.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	run, err := s.hub.Execute(c.Request.Context(), name, req.Goal, req.Init)
	if err == nil {
		c.JSON(http.StatusOK, run)
		return
	}

	if errors.Is(err, hub.ErrUnknownWorkflow) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %s", err.Error(), name),
			Status: http.StatusNotFound,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{
		Error:  fmt.Sprintf("%s: %v", ErrExecuteRun, err),
		Status: http.StatusInternalServerError,
	})
}

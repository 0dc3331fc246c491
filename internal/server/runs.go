package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ronaldwang03/agent-os-sub001/internal/archive"
	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
)

var (
	ErrGetRun     = errors.New("failed to get run")
	ErrNoArchiver = errors.New("run archive not configured")
)

func (s *Server) getRun(c *gin.Context) {
	runID := api.RunID(c.Param("runID"))

	if s.archive == nil {
		c.JSON(http.StatusNotImplemented, api.ErrorResponse{
			Error:  ErrNoArchiver.Error(),
			Status: http.StatusNotImplemented,
		})
		return
	}

	run, err := s.archive.Get(c.Request.Context(), runID)
	if err == nil {
		c.JSON(http.StatusOK, run)
		return
	}

	if errors.Is(err, archive.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %s", err.Error(), runID),
			Status: http.StatusNotFound,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{
		Error:  fmt.Sprintf("%s: %v", ErrGetRun, err),
		Status: http.StatusInternalServerError,
	})
}

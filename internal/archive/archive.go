// Package archive persists finalized workflow runs so they can be
// retrieved after the synchronous execution has returned. The engine
// treats the archive as fire-and-forget: a write failure is logged by
// the caller and never affects a run's outcome
package archive

import (
	"context"
	"errors"

	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
)

// Archiver stores and retrieves finalized runs
type Archiver interface {
	Put(ctx context.Context, run *api.Run) error
	Get(ctx context.Context, id api.RunID) (*api.Run, error)
	Close() error
}

var ErrRunNotFound = errors.New("run not found")

package transform

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
)

var ErrPathNotFound = errors.New("path not found")

// PathInput returns an input transformer that extracts the value at a
// gjson path from the most recent output, falling back to the run's
// data bus when no step has produced output yet
func PathInput(path string) api.InputTransformer {
	return func(run *api.Run) (any, error) {
		source, ok := run.LastOutput()
		if !ok {
			source = run.Data
		}
		return extractPath(source, path)
	}
}

// PathOutput returns an output transformer that extracts the value at a
// gjson path from the worker's raw output
func PathOutput(path string) api.OutputTransformer {
	return func(output any, _ *api.Run) (any, error) {
		return extractPath(output, path)
	}
}

// DataInput returns an input transformer that extracts the value at a
// gjson path from the run's data bus
func DataInput(path string) api.InputTransformer {
	return func(run *api.Run) (any, error) {
		return extractPath(run.Data, path)
	}
}

func extractPath(source any, path string) (any, error) {
	data, err := json.Marshal(source)
	if err != nil {
		return nil, err
	}
	res := gjson.GetBytes(data, path)
	if !res.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	return res.Value(), nil
}

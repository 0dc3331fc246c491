// Package workflowfile loads workflow definitions from YAML files
package workflowfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
)

type fileContent struct {
	Workflows []*workflowSpec `yaml:"workflows" json:"workflows"`
}

type workflowSpec struct {
	Name         string      `yaml:"name" json:"name"`
	Description  string      `yaml:"description" json:"description"`
	GoalTemplate string      `yaml:"goal_template" json:"goal_template"`
	Initial      api.StepID  `yaml:"initial" json:"initial"`
	Steps        []*api.Step `yaml:"steps" json:"steps"`
}

var ErrNoWorkflows = errors.New("file declares no workflows")

// Parse decodes workflow definitions from YAML or JSON source. Each
// returned workflow has been validated
func Parse(data []byte) ([]*api.Workflow, error) {
	var content fileContent
	if err := yaml.Unmarshal(data, &content); err != nil {
		return nil, err
	}
	if len(content.Workflows) == 0 {
		return nil, ErrNoWorkflows
	}

	res := make([]*api.Workflow, 0, len(content.Workflows))
	for _, spec := range content.Workflows {
		wf, err := spec.toWorkflow()
		if err != nil {
			return nil, fmt.Errorf("workflow %q: %w", spec.Name, err)
		}
		res = append(res, wf)
	}
	return res, nil
}

// Load reads and parses the workflow file at path
func Load(path string) ([]*api.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// LoadDir loads every .yaml and .yml file in dir, sorted by name
func LoadDir(dir string) ([]*api.Workflow, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(paths)

	var res []*api.Workflow
	for _, p := range paths {
		wfs, err := Load(p)
		if err != nil {
			return nil, err
		}
		res = append(res, wfs...)
	}
	return res, nil
}

func (s *workflowSpec) toWorkflow() (*api.Workflow, error) {
	wf := api.NewWorkflow(s.Name)
	wf.Description = s.Description
	wf.GoalTemplate = s.GoalTemplate
	for _, step := range s.Steps {
		if err := wf.AddStep(step, step.ID == s.Initial); err != nil {
			return nil, err
		}
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return wf, nil
}

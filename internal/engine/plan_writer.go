package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/betagrid/internal/ctxlog"
	"github.com/vk/betagrid/internal/workflow"
	"gopkg.in/yaml.v3"
)

// PlanFile is the name of the plan written into the workflow directory.
const PlanFile = "plan.yaml"

// PlanWriter is an Engine that writes the plan instead of running it.
type PlanWriter struct{}

// NewPlanWriter creates a PlanWriter.
func NewPlanWriter() *PlanWriter {
	return &PlanWriter{}
}

// PlanPath is <base dir>/<workflow name>/plan.yaml.
func PlanPath(wf *workflow.Graph) string {
	return filepath.Join(wf.BaseDir(), wf.Name(), PlanFile)
}

// Run writes the plan for wf. The workflow must have a base directory.
func (w *PlanWriter) Run(ctx context.Context, wf *workflow.Graph) error {
	logger := ctxlog.FromContext(ctx)

	if wf.BaseDir() == "" {
		return errors.New("workflow has no base directory")
	}
	plan, err := NewPlan(wf)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}

	path := PlanPath(wf)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create workflow directory: %w", err)
	}
	// Readers must never observe a partial plan.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}

	logger.Info("Workflow plan written.", "path", path, "subworkflows", len(plan.Subworkflows))
	return nil
}

// ReadPlan loads a plan written by PlanWriter.
func ReadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode plan %s: %w", path, err)
	}
	return &p, nil
}

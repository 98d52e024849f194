package engine

import (
	"context"

	"github.com/vk/betagrid/internal/workflow"
)

// Engine runs, or schedules, a workflow.
type Engine interface {
	Run(ctx context.Context, wf *workflow.Graph) error
}

// Func adapts a function to the Engine interface.
type Func func(ctx context.Context, wf *workflow.Graph) error

// Run calls f.
func (f Func) Run(ctx context.Context, wf *workflow.Graph) error {
	return f(ctx, wf)
}

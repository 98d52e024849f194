package engine

import (
	"fmt"

	"github.com/vk/betagrid/internal/workflow"
)

// Plan is the serialized form of a workflow.
type Plan struct {
	Workflow     string          `yaml:"workflow"`
	BaseDir      string          `yaml:"base_dir,omitempty"`
	Config       workflow.Config `yaml:"config"`
	Nodes        []NodePlan      `yaml:"nodes,omitempty"`
	Subworkflows []Plan          `yaml:"subworkflows,omitempty"`
}

// NodePlan is the serialized form of one node.
type NodePlan struct {
	Name                 string            `yaml:"name"`
	Interface            string            `yaml:"interface"`
	Upstream             []string          `yaml:"upstream,omitempty"`
	Downstream           []string          `yaml:"downstream,omitempty"`
	Fields               []string          `yaml:"fields,omitempty"`
	Inputs               map[string]string `yaml:"inputs,omitempty"`
	Params               map[string]any    `yaml:"params,omitempty"`
	RunWithoutSubmitting bool              `yaml:"run_without_submitting,omitempty"`
	Config               workflow.Config   `yaml:"config"`
}

// NewPlan walks wf and its sub-workflows. Nodes are listed in dependency order.
func NewPlan(wf *workflow.Graph) (*Plan, error) {
	p := &Plan{
		Workflow: wf.Name(),
		BaseDir:  wf.BaseDir(),
		Config:   wf.Config(),
	}
	for _, n := range wf.Nodes() {
		up, err := wf.Upstream(n.Name)
		if err != nil {
			return nil, fmt.Errorf("workflow %s: %w", wf.Name(), err)
		}
		down, err := wf.Downstream(n.Name)
		if err != nil {
			return nil, fmt.Errorf("workflow %s: %w", wf.Name(), err)
		}
		np := NodePlan{
			Name:                 n.Name,
			Interface:            n.Interface,
			Fields:               n.Fields,
			RunWithoutSubmitting: n.RunWithoutSubmitting,
			Config:               n.Config(),
		}
		// Empty collections are left nil so a plan survives a YAML round trip unchanged.
		if len(up) > 0 {
			np.Upstream = up
		}
		if len(down) > 0 {
			np.Downstream = down
		}
		if inputs := n.Inputs(); len(inputs) > 0 {
			np.Inputs = inputs
		}
		if params := n.Params(); len(params) > 0 {
			np.Params = params
		}
		p.Nodes = append(p.Nodes, np)
	}
	for _, sub := range wf.Subgraphs() {
		sp, err := NewPlan(sub)
		if err != nil {
			return nil, err
		}
		p.Subworkflows = append(p.Subworkflows, *sp)
	}
	return p, nil
}

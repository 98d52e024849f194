package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// fileConfig is the HCL shape of a run configuration file. Every attribute
// is optional; unset ones leave lower layers alone.
type fileConfig struct {
	BIDSDir             string   `hcl:"bids_dir,optional"`
	OutputDir           string   `hcl:"output_dir,optional"`
	AnalysisLevel       string   `hcl:"analysis_level,optional"`
	WorkDir             string   `hcl:"work_dir,optional"`
	Participants        []string `hcl:"participant_label,optional"`
	TaskID              string   `hcl:"task_id,optional"`
	DerivativesPipeline string   `hcl:"derivatives_pipeline,optional"`
	Space               string   `hcl:"space,optional"`
	Variant             string   `hcl:"variant,optional"`
	Res                 string   `hcl:"res,optional"`
	HRFModel            string   `hcl:"hrf_model,optional"`
	SliceTimeRef        string   `hcl:"slice_time_ref,optional"`
	OMPNThreads         string   `hcl:"omp_nthreads,optional"`
	RunUUID             string   `hcl:"run_uuid,optional"`
	LogLevel            string   `hcl:"log_level,optional"`
	LogFormat           string   `hcl:"log_format,optional"`
	DryRun              bool     `hcl:"dry_run,optional"`
	MetricsFile         string   `hcl:"metrics_file,optional"`
	NoMetrics           bool     `hcl:"no_metrics,optional"`
}

// LoadConfigFile decodes an HCL run configuration. Expressions can read the
// process environment as env.NAME, e.g. output_dir = "${env.SCRATCH}/out".
func LoadConfigFile(path string, environ []string) (Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}

	var fc fileConfig
	if diags := gohcl.DecodeBody(file.Body, evalContext(environ), &fc); diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to decode config file %s: %w", path, diags)
	}

	return Config{
		BIDSDir:             fc.BIDSDir,
		OutputDir:           fc.OutputDir,
		AnalysisLevel:       fc.AnalysisLevel,
		WorkDir:             fc.WorkDir,
		Participants:        fc.Participants,
		TaskID:              fc.TaskID,
		DerivativesPipeline: fc.DerivativesPipeline,
		Space:               fc.Space,
		Variant:             fc.Variant,
		Res:                 fc.Res,
		HRFModel:            fc.HRFModel,
		SliceTimeRef:        fc.SliceTimeRef,
		OMPNThreads:         fc.OMPNThreads,
		RunUUID:             fc.RunUUID,
		ConfigFile:          path,
		LogLevel:            fc.LogLevel,
		LogFormat:           fc.LogFormat,
		DryRun:              fc.DryRun,
		MetricsFile:         fc.MetricsFile,
		NoMetrics:           fc.NoMetrics,
	}, nil
}

func evalContext(environ []string) *hcl.EvalContext {
	env := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
	}
}

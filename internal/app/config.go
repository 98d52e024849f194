package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/google/uuid"
	"github.com/vk/betagrid/internal/workflows"
)

// AnalysisParticipant is the only supported analysis level.
const AnalysisParticipant = "participant"

// MetricsFileName is written into the reportlets directory unless overridden.
const MetricsFileName = "resolution.prom"

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Config holds everything a run needs. Zero values mean "not set" while
// layers are merged; NewConfig fills in derived values and validates.
type Config struct {
	BIDSDir       string
	OutputDir     string
	AnalysisLevel string
	WorkDir       string

	// Participants are subject labels, with or without the "sub-" prefix.
	// Empty means every subject found in the dataset.
	Participants []string

	TaskID              string
	DerivativesPipeline string
	Space               string
	Variant             string
	Res                 string

	HRFModel string
	// SliceTimeRef and OMPNThreads are kept as text so an explicit "0"
	// survives merging and reaches validation.
	SliceTimeRef string
	OMPNThreads  string

	RunUUID    string
	ConfigFile string

	LogLevel  string
	LogFormat string

	DryRun      bool
	MetricsFile string
	NoMetrics   bool
}

// DefaultConfig is the lowest configuration layer.
func DefaultConfig() Config {
	p := workflows.DefaultParams()
	return Config{
		AnalysisLevel:       AnalysisParticipant,
		DerivativesPipeline: "fmriprep",
		HRFModel:            p.HRFModel,
		SliceTimeRef:        strconv.FormatFloat(p.SliceTimeRef, 'f', -1, 64),
		OMPNThreads:         strconv.Itoa(p.OMPNThreads),
		LogLevel:            "info",
		LogFormat:           "json",
	}
}

// BuildConfig layers defaults, then the file named by flags.ConfigFile (if
// any), then the flags themselves. Later layers win wherever they are set.
func BuildConfig(flags Config, environ []string) (*Config, error) {
	cfg := DefaultConfig()

	if flags.ConfigFile != "" {
		fileCfg, err := LoadConfigFile(flags.ConfigFile, environ)
		if err != nil {
			return nil, err
		}
		if err := mergo.Merge(&cfg, fileCfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge config file: %w", err)
		}
	}
	if err := mergo.Merge(&cfg, flags, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge flags: %w", err)
	}
	return NewConfig(cfg)
}

// NewConfig validates cfg and fills in derived values: absolute paths, the
// default work directory, normalized participant labels and a run UUID.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.BIDSDir == "" {
		return nil, errors.New("BIDSDir is a required configuration field and cannot be empty")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OutputDir is a required configuration field and cannot be empty")
	}
	if cfg.AnalysisLevel != AnalysisParticipant {
		return nil, fmt.Errorf("invalid analysis level %q: must be %q", cfg.AnalysisLevel, AnalysisParticipant)
	}
	if !slices.Contains(logLevels, cfg.LogLevel) {
		return nil, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	if !slices.Contains(logFormats, cfg.LogFormat) {
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	if cfg.DerivativesPipeline == "" {
		return nil, errors.New("DerivativesPipeline cannot be empty")
	}

	var err error
	for _, p := range []*string{&cfg.BIDSDir, &cfg.OutputDir, &cfg.WorkDir} {
		if *p == "" {
			continue
		}
		if *p, err = filepath.Abs(*p); err != nil {
			return nil, fmt.Errorf("cannot resolve path: %w", err)
		}
	}

	info, err := os.Stat(cfg.BIDSDir)
	if err != nil {
		return nil, fmt.Errorf("BIDS directory %s: %w", cfg.BIDSDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("BIDS directory %s is not a directory", cfg.BIDSDir)
	}
	if cfg.OutputDir == cfg.BIDSDir {
		return nil, errors.New("output directory must differ from the BIDS directory")
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(cfg.OutputDir, "work")
	}

	if _, err := cfg.Params(); err != nil {
		return nil, err
	}

	cfg.Participants = normalizeParticipants(cfg.Participants)
	if cfg.RunUUID == "" {
		cfg.RunUUID = NewRunUUID(time.Now())
	}
	if err := workflows.ValidateRunUUID(cfg.RunUUID); err != nil {
		return nil, err
	}
	if cfg.MetricsFile == "" {
		cfg.MetricsFile = filepath.Join(workflows.ReportletsDir(cfg.WorkDir), MetricsFileName)
	}
	return &cfg, nil
}

// Params parses and validates the processing parameters.
func (c *Config) Params() (workflows.Params, error) {
	ref, err := strconv.ParseFloat(c.SliceTimeRef, 64)
	if err != nil {
		return workflows.Params{}, fmt.Errorf("invalid slice time reference %q: %w", c.SliceTimeRef, err)
	}
	threads, err := strconv.Atoi(c.OMPNThreads)
	if err != nil {
		return workflows.Params{}, fmt.Errorf("invalid omp thread count %q: %w", c.OMPNThreads, err)
	}
	p := workflows.Params{
		HRFModel:     c.HRFModel,
		SliceTimeRef: ref,
		OMPNThreads:  threads,
	}
	if err := p.Validate(); err != nil {
		return workflows.Params{}, err
	}
	return p, nil
}

// NewRunUUID returns a run identifier that sorts by start time and is
// unique across concurrent runs.
func NewRunUUID(now time.Time) string {
	return now.Format("20060102-150405") + "_" + uuid.NewString()
}

func normalizeParticipants(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimPrefix(strings.TrimSpace(l), "sub-")
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

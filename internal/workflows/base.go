package workflows

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vk/betagrid/internal/ctxlog"
	"github.com/vk/betagrid/internal/nodeid"
	"github.com/vk/betagrid/internal/resolver"
	"github.com/vk/betagrid/internal/workflow"
)

// ParticipantName is the name of the top-level workflow.
const ParticipantName = "nibetaseries_participant_wf"

// Node and field names of a subject workflow.
const (
	InputNode      = "inputnode"
	DataSourceNode = "datasource"

	FieldSubjectsDir   = "subjects_dir"
	FieldEventsFile    = "events_file"
	FieldPreprocFile   = "preproc_file"
	FieldConfoundsFile = "confounds_file"
	FieldBrainmaskFile = "brainmask_file"
)

// ErrNoSubjects is returned when the participant list is empty.
var ErrNoSubjects = errors.New("subject list must not be empty")

// Options are shared by the participant and single-subject builders.
type Options struct {
	TaskID              string
	DerivativesPipeline string
	BIDSDir             string
	OutputDir           string
	WorkDir             string
	Space               string
	Variant             string
	Res                 string
	Params              Params
	RunUUID             string

	// Observer, when set, sees every file lookup.
	Observer resolver.Observer
}

func (o Options) validate() error {
	if o.OutputDir == "" {
		return errors.New("output directory must not be empty")
	}
	if err := ValidateRunUUID(o.RunUUID); err != nil {
		return err
	}
	return o.Params.Validate()
}

// ValidateRunUUID checks that id names exactly one directory below a
// subject's log directory.
func ValidateRunUUID(id string) error {
	if id == "" {
		return errors.New("run identifier must not be empty")
	}
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`) || filepath.Base(id) != id {
		return fmt.Errorf("invalid run identifier %q: must be a single path segment", id)
	}
	return nil
}

// SubjectName is the deterministic workflow name for a subject.
func SubjectName(subjectID string) string {
	return "single_subject_" + subjectID + "_wf"
}

// CrashdumpDir is where the engine writes crash files for one subject in one run.
func CrashdumpDir(outputDir, subjectID, runUUID string) string {
	return filepath.Join(outputDir, "nibetaseries", "sub-"+subjectID, "log", runUUID)
}

// ReportletsDir is where report fragments and run metrics are collected.
func ReportletsDir(workDir string) string {
	return filepath.Join(workDir, "reportlets")
}

// BuildParticipant builds one workflow per subject, in list order, and
// attaches them all to a new participant workflow rooted at opts.WorkDir.
// The first failing subject aborts the build and its error is returned as is.
func BuildParticipant(ctx context.Context, subjects []string, opts Options) (*workflow.Graph, error) {
	logger := ctxlog.FromContext(ctx)

	if err := validateSubjects(subjects); err != nil {
		return nil, err
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	wf := workflow.New(ParticipantName)
	wf.SetBaseDir(opts.WorkDir)
	wf.Set(workflow.SectionExecution, workflow.KeyReportletsDir, ReportletsDir(opts.WorkDir))

	// Subjects are collected first and attached only once all of them built.
	built := make([]*workflow.Graph, 0, len(subjects))
	for _, id := range subjects {
		sub, err := BuildSingleSubject(ctx, id, SubjectName(id), opts)
		if err != nil {
			return nil, err
		}

		cfg := wf.Config().With(workflow.SectionExecution, workflow.KeyCrashdumpDir,
			CrashdumpDir(opts.OutputDir, id, opts.RunUUID))
		sub.SetConfig(cfg)
		built = append(built, sub)
	}

	if err := wf.AddSubgraphs(built...); err != nil {
		return nil, fmt.Errorf("failed to attach subject workflows: %w", err)
	}

	logger.Debug("Participant workflow assembled.", "workflow", wf.Name(), "subjects", len(built), "base_dir", wf.BaseDir())
	return wf, nil
}

// BuildSingleSubject resolves the subject's input files and returns a
// workflow named name that carries them. The workflow has no crash-dump
// directory yet; BuildParticipant sets it. Resolution errors are returned
// unchanged so callers can match them with errors.As.
func BuildSingleSubject(ctx context.Context, subjectID, name string, opts Options) (*workflow.Graph, error) {
	ctx = ctxlog.With(ctx, "subject", subjectID)
	logger := ctxlog.FromContext(ctx)

	if subjectID == "" {
		return nil, resolver.ErrEmptySubject
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	if name == "" {
		name = SubjectName(subjectID)
	}

	res, err := resolver.New(ctx, opts.BIDSDir, opts.DerivativesPipeline, resolver.WithObserver(opts.Observer))
	if err != nil {
		return nil, err
	}
	inputs, err := res.Resolve(ctx, resolver.Criteria{
		Subject:    subjectID,
		Task:       opts.TaskID,
		Space:      opts.Space,
		Variant:    opts.Variant,
		Resolution: opts.Res,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("Resolved subject inputs.",
		"events", inputs.EventsFile,
		"preproc", inputs.PreprocFile,
		"confounds", inputs.ConfoundsFile,
		"brainmask", inputs.BrainmaskFile,
	)

	wf := workflow.New(name)

	inputnode := workflow.NewNode(InputNode, workflow.IdentityInterface, FieldSubjectsDir)

	datasource := workflow.NewNode(DataSourceNode, workflow.IdentityInterface,
		FieldEventsFile, FieldPreprocFile, FieldConfoundsFile, FieldBrainmaskFile)
	datasource.RunWithoutSubmitting = true
	for field, path := range map[string]string{
		FieldEventsFile:    inputs.EventsFile,
		FieldPreprocFile:   inputs.PreprocFile,
		FieldConfoundsFile: inputs.ConfoundsFile,
		FieldBrainmaskFile: inputs.BrainmaskFile,
	} {
		if err := datasource.SetInput(field, path); err != nil {
			return nil, err
		}
	}

	for _, n := range []*workflow.Node{inputnode, datasource} {
		setParams(n, opts.Params)
	}
	if err := wf.AddNodes(inputnode, datasource); err != nil {
		return nil, err
	}
	if err := wf.Connect(InputNode, DataSourceNode); err != nil {
		return nil, err
	}

	logger.Debug("Subject workflow built.", "workflow", wf.Name(), "nodes", len(wf.Nodes()))
	return wf, nil
}

func setParams(n *workflow.Node, p Params) {
	n.SetParam("hrf_model", p.HRFModel)
	n.SetParam("slice_time_ref", strconv.FormatFloat(p.SliceTimeRef, 'f', -1, 64))
	n.SetParam("omp_nthreads", p.OMPNThreads)
}

func validateSubjects(subjects []string) error {
	if len(subjects) == 0 {
		return ErrNoSubjects
	}
	seen := make(map[string]bool, len(subjects))
	for i, id := range subjects {
		if id == "" {
			return fmt.Errorf("subject at position %d: %w", i, resolver.ErrEmptySubject)
		}
		if err := nodeid.ValidName(SubjectName(id)); err != nil {
			return fmt.Errorf("subject %s: %w", id, err)
		}
		if seen[id] {
			return fmt.Errorf("subject %s listed more than once", id)
		}
		seen[id] = true
	}
	return nil
}

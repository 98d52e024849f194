package workflows

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/betagrid/internal/resolver"
	"github.com/vk/betagrid/internal/testutil"
	"github.com/vk/betagrid/internal/workflow"
)

func testOptions(t *testing.T, bidsDir string) Options {
	t.Helper()
	out := t.TempDir()
	return Options{
		TaskID:              "rest",
		DerivativesPipeline: testutil.Pipeline,
		BIDSDir:             bidsDir,
		OutputDir:           out,
		WorkDir:             filepath.Join(out, "work"),
		Params:              DefaultParams(),
		RunUUID:             "20261019-120000_run1",
	}
}

func TestBuildSingleSubject(t *testing.T) {
	root := testutil.NewDataset(t)
	files := testutil.AddSubject(t, root, "01", "rest", "MNI")
	opts := testOptions(t, root)

	wf, err := BuildSingleSubject(context.Background(), "01", "", opts)
	require.NoError(t, err)

	assert.Equal(t, "single_subject_01_wf", wf.Name())
	assert.Empty(t, wf.Config().Get(workflow.SectionExecution, workflow.KeyCrashdumpDir))

	in, ok := wf.Node(InputNode)
	require.True(t, ok)
	assert.Contains(t, in.Fields, FieldSubjectsDir)

	ds, ok := wf.Node(DataSourceNode)
	require.True(t, ok)
	assert.True(t, ds.RunWithoutSubmitting)
	assert.Equal(t, map[string]string{
		FieldEventsFile:    files.Events,
		FieldPreprocFile:   files.Preproc,
		FieldConfoundsFile: files.Confounds,
		FieldBrainmaskFile: files.Brainmask,
	}, ds.Inputs())

	for _, n := range wf.Nodes() {
		assert.Equal(t, map[string]any{
			"hrf_model":      "glover",
			"slice_time_ref": "0.5",
			"omp_nthreads":   1,
		}, n.Params(), "node %s", n.Name)
	}

	up, err := wf.Upstream(DataSourceNode)
	require.NoError(t, err)
	assert.Equal(t, []string{InputNode}, up)
}

func TestBuildSingleSubject_ExplicitName(t *testing.T) {
	root := testutil.NewDataset(t)
	testutil.AddSubject(t, root, "01", "rest", "MNI")

	wf, err := BuildSingleSubject(context.Background(), "01", "custom_wf", testOptions(t, root))
	require.NoError(t, err)
	assert.Equal(t, "custom_wf", wf.Name())
}

func TestBuildSingleSubject_PropagatesResolutionErrorUnchanged(t *testing.T) {
	root := testutil.NewDataset(t)
	testutil.AddSubject(t, root, "01", "rest", "MNI")
	testutil.Touch(t, root, "derivatives/fmriprep/sub-01/func/sub-01_task-rest_bold_space-T1w_preproc.nii.gz")
	opts := testOptions(t, root)
	opts.TaskID = ""

	_, err := BuildSingleSubject(context.Background(), "01", "", opts)
	var ambiguous *resolver.AmbiguousFileError
	require.True(t, errors.As(err, &ambiguous))
	// Returned as is, not wrapped.
	assert.Same(t, ambiguous, err)
	assert.Equal(t, "preproc", ambiguous.Category)
	assert.Equal(t, "01", ambiguous.Subject)
	assert.Equal(t, 2, ambiguous.Count)

	opts.Space = "MNI"
	wf, err := BuildSingleSubject(context.Background(), "01", "", opts)
	require.NoError(t, err)
	ds, _ := wf.Node(DataSourceNode)
	preproc, _ := ds.Input(FieldPreprocFile)
	assert.Contains(t, preproc, "space-MNI")
}

func TestBuildSingleSubject_InvalidInput(t *testing.T) {
	root := testutil.NewDataset(t)
	testutil.AddSubject(t, root, "01", "rest", "MNI")
	ctx := context.Background()

	_, err := BuildSingleSubject(ctx, "", "", testOptions(t, root))
	assert.ErrorIs(t, err, resolver.ErrEmptySubject)

	opts := testOptions(t, root)
	opts.Params.HRFModel = "boxcar"
	_, err = BuildSingleSubject(ctx, "01", "", opts)
	assert.ErrorContains(t, err, `unsupported hrf model "boxcar"`)

	opts = testOptions(t, root)
	opts.DerivativesPipeline = "missing"
	_, err = BuildSingleSubject(ctx, "01", "", opts)
	assert.ErrorContains(t, err, `failed to index derivatives pipeline "missing"`)
}

func TestBuildParticipant(t *testing.T) {
	root := testutil.NewDataset(t)
	testutil.AddSubject(t, root, "01", "rest", "MNI")
	testutil.AddSubject(t, root, "02", "rest", "MNI")
	opts := testOptions(t, root)

	wf, err := BuildParticipant(context.Background(), []string{"02", "01"}, opts)
	require.NoError(t, err)

	assert.Equal(t, ParticipantName, wf.Name())
	assert.Equal(t, opts.WorkDir, wf.BaseDir())
	assert.Equal(t, filepath.Join(opts.WorkDir, "reportlets"),
		wf.Config().Get(workflow.SectionExecution, workflow.KeyReportletsDir))

	subs := wf.Subgraphs()
	require.Len(t, subs, 2)
	// List order is kept.
	assert.Equal(t, "single_subject_02_wf", subs[0].Name())
	assert.Equal(t, "single_subject_01_wf", subs[1].Name())

	for _, id := range []string{"01", "02"} {
		sub, ok := wf.Subgraph(SubjectName(id))
		require.True(t, ok)
		assert.Same(t, wf, sub.Parent())

		want := filepath.Join(opts.OutputDir, "nibetaseries", "sub-"+id, "log", opts.RunUUID)
		assert.Equal(t, want, sub.Config().Get(workflow.SectionExecution, workflow.KeyCrashdumpDir))
		for _, n := range sub.Nodes() {
			assert.Equal(t, want, n.Config().Get(workflow.SectionExecution, workflow.KeyCrashdumpDir), "node %s", n.Name)
		}
	}
	assert.Len(t, wf.AllNodes(), 4)
}

func TestBuildParticipant_NodeConfigIsASnapshot(t *testing.T) {
	root := testutil.NewDataset(t)
	testutil.AddSubject(t, root, "01", "rest", "MNI")
	opts := testOptions(t, root)

	wf, err := BuildParticipant(context.Background(), []string{"01"}, opts)
	require.NoError(t, err)

	sub, _ := wf.Subgraph(SubjectName("01"))
	node, err := wf.Lookup(SubjectName("01") + "." + InputNode)
	require.NoError(t, err)
	before := node.Config()

	wf.Set(workflow.SectionExecution, workflow.KeyCrashdumpDir, "/global")
	sub.Set(workflow.SectionExecution, workflow.KeyCrashdumpDir, "/subject")
	sub.Set(workflow.SectionLogging, workflow.KeyWorkflowLevel, "DEBUG")

	assert.Equal(t, before, node.Config())
}

func TestBuildParticipant_AllOrNothing(t *testing.T) {
	root := testutil.NewDataset(t)
	testutil.AddSubject(t, root, "01", "rest", "MNI")
	// Subject 02 has everything except a confounds table.
	testutil.Touch(t, root,
		"sub-02/func/sub-02_task-rest_events.tsv",
		"derivatives/fmriprep/sub-02/func/sub-02_task-rest_bold_space-MNI_preproc.nii.gz",
		"derivatives/fmriprep/sub-02/func/sub-02_task-rest_bold_space-MNI_brainmask.nii.gz",
	)

	wf, err := BuildParticipant(context.Background(), []string{"01", "02"}, testOptions(t, root))
	assert.Nil(t, wf)

	var notFound *resolver.NoFileFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Same(t, notFound, err)
	assert.Equal(t, "confounds", notFound.Category)
	assert.Equal(t, "02", notFound.Subject)
}

func TestBuildParticipant_Validation(t *testing.T) {
	root := testutil.NewDataset(t)
	testutil.AddSubject(t, root, "01", "rest", "MNI")
	ctx := context.Background()

	testCases := []struct {
		name     string
		subjects []string
		mutate   func(*Options)
		err      string
	}{
		{name: "empty list", subjects: nil, err: ErrNoSubjects.Error()},
		{name: "empty id", subjects: []string{"01", ""}, err: "subject at position 1"},
		{name: "duplicate id", subjects: []string{"01", "01"}, err: "listed more than once"},
		{name: "label not usable as a workflow name", subjects: []string{"01", "a.b"}, err: `invalid name "single_subject_a.b_wf"`},
		{
			name:     "missing run id",
			subjects: []string{"01"},
			mutate:   func(o *Options) { o.RunUUID = "" },
			err:      "run identifier must not be empty",
		},
		{
			name:     "run id escapes the log directory",
			subjects: []string{"01"},
			mutate:   func(o *Options) { o.RunUUID = "../.." },
			err:      `invalid run identifier "../.."`,
		},
		{
			name:     "run id is the current directory",
			subjects: []string{"01"},
			mutate:   func(o *Options) { o.RunUUID = "." },
			err:      `invalid run identifier "."`,
		},
		{
			name:     "run id with a separator",
			subjects: []string{"01"},
			mutate:   func(o *Options) { o.RunUUID = "runs/1" },
			err:      `invalid run identifier "runs/1"`,
		},
		{
			name:     "missing output dir",
			subjects: []string{"01"},
			mutate:   func(o *Options) { o.OutputDir = "" },
			err:      "output directory must not be empty",
		},
		{
			name:     "bad slice time",
			subjects: []string{"01"},
			mutate:   func(o *Options) { o.Params.SliceTimeRef = 1.5 },
			err:      "slice time reference must be between 0 and 1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := testOptions(t, root)
			if tc.mutate != nil {
				tc.mutate(&opts)
			}
			_, err := BuildParticipant(ctx, tc.subjects, opts)
			assert.ErrorContains(t, err, tc.err)
		})
	}
}

func TestNaming(t *testing.T) {
	t.Run("subject names are distinct", func(t *testing.T) {
		ids := []string{"01", "1", "001", "control01", "patient01"}
		seen := map[string]string{}
		for _, id := range ids {
			name := SubjectName(id)
			if prev, ok := seen[name]; ok {
				t.Fatalf("subjects %q and %q share workflow name %q", prev, id, name)
			}
			seen[name] = id
		}
	})

	t.Run("crash dirs are unique per subject and run", func(t *testing.T) {
		a := CrashdumpDir("/out", "01", "run1")
		assert.Equal(t, filepath.Join("/out", "nibetaseries", "sub-01", "log", "run1"), a)
		assert.NotEqual(t, a, CrashdumpDir("/out", "01", "run2"))
		assert.NotEqual(t, a, CrashdumpDir("/out", "02", "run1"))
	})
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())
	for _, m := range HRFModels {
		p := DefaultParams()
		p.HRFModel = m
		assert.NoError(t, p.Validate(), m)
	}

	p := DefaultParams()
	p.OMPNThreads = 0
	assert.ErrorContains(t, p.Validate(), "at least 1")

	p = DefaultParams()
	p.SliceTimeRef = -0.1
	assert.ErrorContains(t, p.Validate(), "between 0 and 1")
}

package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/betagrid/internal/testutil"
)

func TestParse_DisplaysHelpWithoutArguments(t *testing.T) {
	t.Parallel()

	outW := &bytes.Buffer{}
	cfg, shouldExit, err := parse(nil, outW, nil)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, outW.String(), "Usage:")
	assert.Contains(t, outW.String(), "--participant-label")
}

func TestParse_HelpFlagExits(t *testing.T) {
	t.Parallel()

	outW := &bytes.Buffer{}
	cfg, shouldExit, err := parse([]string{"-h"}, outW, nil)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, outW.String(), "BIDS_DIR OUTPUT_DIR participant")
}

func TestParse_Version(t *testing.T) {
	t.Parallel()

	outW := &bytes.Buffer{}
	cfg, shouldExit, err := parse([]string{"version"}, outW, nil)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Equal(t, "betagrid version "+Version+"\n", outW.String())
}

func TestParse_PositionalsAndFlags(t *testing.T) {
	t.Parallel()

	bidsDir := testutil.NewDataset(t)
	outDir := t.TempDir()

	cfg, shouldExit, err := parse([]string{
		bidsDir, outDir, "participant",
		"--participant-label", "sub-01,02",
		"-t", "rest",
		"--space", "MNI152NLin2009cAsym",
		"--slice-time-ref", "0",
		"--omp-nthreads", "4",
		"--run-uuid", "fixed",
		"--dry-run",
	}, &bytes.Buffer{}, nil)

	require.NoError(t, err)
	assert.False(t, shouldExit)
	require.NotNil(t, cfg)

	assert.Equal(t, bidsDir, cfg.BIDSDir)
	assert.Equal(t, outDir, cfg.OutputDir)
	assert.Equal(t, []string{"01", "02"}, cfg.Participants)
	assert.Equal(t, "rest", cfg.TaskID)
	assert.Equal(t, "MNI152NLin2009cAsym", cfg.Space)
	assert.Equal(t, "0", cfg.SliceTimeRef)
	assert.Equal(t, "4", cfg.OMPNThreads)
	assert.Equal(t, "fixed", cfg.RunUUID)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "fmriprep", cfg.DerivativesPipeline)
}

func TestParse_FlagsOverrideConfigFile(t *testing.T) {
	t.Parallel()

	bidsDir := testutil.NewDataset(t)
	outDir := t.TempDir()
	path := filepath.Join(t.TempDir(), "run.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
bids_dir   = "`+bidsDir+`"
output_dir = "${env.OUT}"
hrf_model  = "spm"
task_id    = "nback"
`), 0o600))

	cfg, _, err := parse([]string{"-c", path, "--task-id", "rest"}, &bytes.Buffer{}, []string{"OUT=" + outDir})
	require.NoError(t, err)

	assert.Equal(t, bidsDir, cfg.BIDSDir)
	assert.Equal(t, outDir, cfg.OutputDir)
	assert.Equal(t, "spm", cfg.HRFModel)
	assert.Equal(t, "rest", cfg.TaskID)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	bidsDir := testutil.NewDataset(t)

	testCases := []struct {
		name string
		args []string
		err  string
	}{
		{name: "unknown flag", args: []string{"--not-a-flag"}, err: "unknown flag: --not-a-flag"},
		{name: "too many positionals", args: []string{"a", "b", "participant", "extra"}, err: "accepts at most 3 arg(s)"},
		{name: "missing output dir", args: []string{bidsDir}, err: "OutputDir is a required"},
		{name: "group level", args: []string{bidsDir, t.TempDir(), "group"}, err: `invalid analysis level "group"`},
		{name: "explicit zero threads", args: []string{bidsDir, t.TempDir(), "participant", "--omp-nthreads", "0"}, err: "at least 1, got 0"},
		{name: "non-numeric threads", args: []string{bidsDir, t.TempDir(), "participant", "--omp-nthreads", "many"}, err: `invalid omp thread count "many"`},
		{name: "run id escaping the log directory", args: []string{bidsDir, t.TempDir(), "participant", "--run-uuid", "../.."}, err: `invalid run identifier "../.."`},
		{name: "bad hrf model", args: []string{bidsDir, t.TempDir(), "participant", "--hrf-model", "gamma"}, err: "unsupported hrf model"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, shouldExit, err := parse(tc.args, &bytes.Buffer{}, nil)
			assert.False(t, shouldExit)

			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr), "got %v", err)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.err)
		})
	}
}

// Package testutil builds throwaway BIDS datasets for tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Pipeline is the derivatives pipeline name used by the fixtures.
const Pipeline = "fmriprep"

// Touch creates empty files at the given slash-separated paths under root,
// creating parent directories as needed, and returns their absolute paths.
func Touch(t *testing.T, root string, rels ...string) []string {
	t.Helper()

	out := make([]string, 0, len(rels))
	for _, rel := range rels {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
		out = append(out, p)
	}
	return out
}

// NewDataset creates a BIDS root in a temp dir with a dataset description.
func NewDataset(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	desc := `{"Name": "fixture", "BIDSVersion": "1.0.2"}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "dataset_description.json"), []byte(desc), 0o644))
	return root
}

// SubjectFiles describes the files written by AddSubject.
type SubjectFiles struct {
	Events    string
	Preproc   string
	Confounds string
	Brainmask string
}

// AddSubject writes one events file and one of each fMRIPrep derivative for
// the subject, in the given space, and returns their absolute paths.
func AddSubject(t *testing.T, root, subject, task, space string) SubjectFiles {
	t.Helper()

	prefix := fmt.Sprintf("sub-%s_task-%s", subject, task)
	raw := fmt.Sprintf("sub-%s/func/%s", subject, prefix)
	der := fmt.Sprintf("derivatives/%s/sub-%s/func/%s_bold", Pipeline, subject, prefix)

	paths := Touch(t, root,
		raw+"_events.tsv",
		raw+"_bold.nii.gz",
		fmt.Sprintf("%s_space-%s_preproc.nii.gz", der, space),
		der+"_confounds.tsv",
		fmt.Sprintf("%s_space-%s_brainmask.nii.gz", der, space),
	)
	return SubjectFiles{
		Events:    paths[0],
		Preproc:   paths[2],
		Confounds: paths[3],
		Brainmask: paths[4],
	}
}

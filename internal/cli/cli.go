package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vk/betagrid/internal/app"
)

// Version is reported by the version subcommand.
var Version = "dev"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	return parse(args, output, os.Environ())
}

func parse(args []string, output io.Writer, environ []string) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var (
		flags  app.Config
		result *app.Config
	)

	cmd := &cobra.Command{
		Use:   "betagrid [flags] BIDS_DIR OUTPUT_DIR participant",
		Short: "Assemble beta-series workflows from BIDS derivatives",
		Long: `betagrid finds each subject's events file, preprocessed BOLD series,
confounds table and brain mask, and assembles them into one workflow per
subject under a participant-level workflow. Every file category must match
exactly one file; zero or several matches abort the run.

Arguments:
  BIDS_DIR     Root of the BIDS dataset.
  OUTPUT_DIR   Where crash logs and derivatives are written.
  participant  Analysis level. Only "participant" is supported.

Values can also come from an HCL file given with --config. Flags win over
the file, and the file wins over built-in defaults.`,
		Args:          cobra.MaximumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, positional []string) error {
			targets := []*string{&flags.BIDSDir, &flags.OutputDir, &flags.AnalysisLevel}
			for i, v := range positional {
				*targets[i] = v
			}
			slog.Debug("Arguments parsed successfully.", "positional", len(positional))

			cfg, err := app.BuildConfig(flags, environ)
			if err != nil {
				return err
			}
			result = cfg
			return nil
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(output)

	f := cmd.Flags()
	f.StringSliceVar(&flags.Participants, "participant-label", nil, "Subject labels to process, with or without 'sub-'. Default: all subjects.")
	f.StringVarP(&flags.TaskID, "task-id", "t", "", "Only use BOLD series from this task. Default: no task filter.")
	f.StringVar(&flags.DerivativesPipeline, "derivatives-pipeline", "", "Name of the derivatives pipeline under BIDS_DIR/derivatives. Default: fmriprep.")
	f.StringVar(&flags.Space, "space", "", "Only use images in this space. Default: no space filter.")
	f.StringVar(&flags.Variant, "variant", "", "Only use preprocessed images of this variant. Default: no variant filter.")
	f.StringVar(&flags.Res, "res", "", "Only use images at this resolution. Default: no resolution filter.")
	f.StringVar(&flags.HRFModel, "hrf-model", "", "HRF model used to convolve events. Default: glover.")
	f.StringVar(&flags.SliceTimeRef, "slice-time-ref", "", "Fraction of the TR used as slice timing reference, 0 to 1. Default: 0.5.")
	f.StringVar(&flags.OMPNThreads, "omp-nthreads", "", "Maximum threads a single process may use. Default: 1.")
	f.StringVarP(&flags.WorkDir, "work-dir", "w", "", "Working directory for workflow state. Default: OUTPUT_DIR/work.")
	f.StringVar(&flags.RunUUID, "run-uuid", "", "Identifier of this run. Default: timestamp plus a random UUID.")
	f.StringVarP(&flags.ConfigFile, "config", "c", "", "HCL file with run configuration.")
	f.StringVar(&flags.LogLevel, "log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'. Default: info.")
	f.StringVar(&flags.LogFormat, "log-format", "", "Log output format. Options: 'text' or 'json'. Default: json.")
	f.BoolVar(&flags.DryRun, "dry-run", false, "Build the workflow but do not hand it to the engine.")
	f.StringVar(&flags.MetricsFile, "metrics-file", "", "Where to write resolution metrics. Default: WORK_DIR/reportlets/resolution.prom.")
	f.BoolVar(&flags.NoMetrics, "no-metrics", false, "Do not write resolution metrics.")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "betagrid version %s\n", Version)
		},
	})

	if len(args) == 0 {
		slog.Debug("No arguments provided, printing usage and exiting.")
		_ = cmd.Help()
		return nil, true, nil
	}

	if err := cmd.Execute(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if result == nil {
		// Help or version was printed.
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "config", result)
	return result, false, nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/betagrid/internal/ctxlog"
	"github.com/vk/betagrid/internal/engine"
	"github.com/vk/betagrid/internal/metrics"
	"github.com/vk/betagrid/internal/resolver"
	"github.com/vk/betagrid/internal/workflow"
	"github.com/vk/betagrid/internal/workflows"
)

// App encapsulates one run's dependencies and configuration.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	engine  engine.Engine
	metrics *metrics.Resolution
}

// NewApp returns an App with its own logger and metrics registry.
func NewApp(outW io.Writer, cfg *Config, eng engine.Engine) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW).With("run_uuid", cfg.RunUUID)
	logger.Debug("Logger configured successfully.")

	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		engine:  eng,
		metrics: metrics.NewResolution(),
	}
}

// Run builds the participant workflow and hands it to the engine. The built
// workflow is returned even in dry-run mode.
func (a *App) Run(ctx context.Context) (*workflow.Graph, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	cfg := a.config
	a.logger.Debug("App.Run method started.", "config", cfg)

	params, err := cfg.Params()
	if err != nil {
		return nil, err
	}

	subjects, err := a.subjects(ctx)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Assembling participant workflow.", "subjects", subjects, "task", cfg.TaskID, "pipeline", cfg.DerivativesPipeline)

	wf, buildErr := workflows.BuildParticipant(ctx, subjects, workflows.Options{
		TaskID:              cfg.TaskID,
		DerivativesPipeline: cfg.DerivativesPipeline,
		BIDSDir:             cfg.BIDSDir,
		OutputDir:           cfg.OutputDir,
		WorkDir:             cfg.WorkDir,
		Space:               cfg.Space,
		Variant:             cfg.Variant,
		Res:                 cfg.Res,
		Params:              params,
		RunUUID:             cfg.RunUUID,
		Observer:            a.metrics,
	})
	if wf != nil {
		a.metrics.SetSubjects(len(wf.Subgraphs()))
	}
	// Failed builds still get their metrics written.
	if err := a.writeMetrics(); err != nil {
		return nil, errors.Join(buildErr, err)
	}
	if buildErr != nil {
		return nil, fmt.Errorf("failed to build participant workflow: %w", buildErr)
	}

	if cfg.DryRun {
		a.logger.Info("Dry run: workflow built, engine not started.", "workflow", wf.Name(), "nodes", len(wf.AllNodes()))
		return wf, nil
	}
	if err := a.engine.Run(ctx, wf); err != nil {
		return nil, fmt.Errorf("engine failed: %w", err)
	}

	a.logger.Info("Participant workflow handed off.", "workflow", wf.Name(), "subjects", len(wf.Subgraphs()), "nodes", len(wf.AllNodes()))
	return wf, nil
}

// subjects returns the configured participants, or every subject in the
// raw dataset when none were given.
func (a *App) subjects(ctx context.Context) ([]string, error) {
	if len(a.config.Participants) > 0 {
		return a.config.Participants, nil
	}
	res, err := resolver.New(ctx, a.config.BIDSDir, a.config.DerivativesPipeline)
	if err != nil {
		return nil, err
	}
	found := res.Raw().Subjects()
	if len(found) == 0 {
		return nil, fmt.Errorf("no subjects found in %s", a.config.BIDSDir)
	}
	a.logger.Debug("Discovered subjects.", "count", len(found))
	return found, nil
}

func (a *App) writeMetrics() error {
	if a.config.NoMetrics {
		return nil
	}
	if err := a.metrics.WriteTextfile(a.config.MetricsFile); err != nil {
		return err
	}
	a.logger.Debug("Resolution metrics written.", "path", a.config.MetricsFile)
	return nil
}

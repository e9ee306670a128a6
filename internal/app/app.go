// Package app implements the application layer for greenroom.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/core/ports"
	"go.trai.ch/greenroom/internal/engine/pipeline"
	"go.trai.ch/zerr"
)

// Streams are the standard streams of the wrapped compiler.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// RenderOptions control what Render prints.
type RenderOptions struct {
	// Contexts prints the named build contexts instead of the Dockerfile.
	Contexts bool
}

// App represents the main application logic.
type App struct {
	pipeline *pipeline.Pipeline
	builders ports.BuilderManager
	logger   ports.Logger
	environ  func() []string
	getwd    func() (string, error)
}

// New creates a new App instance.
func New(p *pipeline.Pipeline, builders ports.BuilderManager, logger ports.Logger) *App {
	return &App{
		pipeline: p,
		builders: builders,
		logger:   logger,
		environ:  os.Environ,
		getwd:    os.Getwd,
	}
}

// Wrap runs one compiler call, given as the compiler path followed by its arguments, and
// returns the exit code the caller should report.
func (a *App) Wrap(ctx context.Context, args []string, streams Streams) (int, error) {
	req, err := a.request(args, streams)
	if err != nil {
		return 1, err
	}
	return a.pipeline.Run(ctx, req)
}

// Render plans a compiler call and writes the resulting build description to w.
func (a *App) Render(ctx context.Context, args []string, w io.Writer, opts RenderOptions) error {
	req, err := a.request(args, Streams{})
	if err != nil {
		return err
	}
	plan, err := a.pipeline.Describe(ctx, req)
	if err != nil {
		return zerr.Wrap(err, "failed to render build")
	}

	if !opts.Contexts {
		_, err = w.Write(plan.Description.Dockerfile)
		return err
	}
	for _, name := range plan.Description.ContextNames() {
		if _, err := fmt.Fprintf(w, "%s=%s\n", name, plan.Description.Contexts[name].Spec()); err != nil {
			return err
		}
	}
	return nil
}

// EnsureBuilder makes sure the builder exists and runs the current image.
func (a *App) EnsureBuilder(ctx context.Context) (*domain.BuilderHandle, error) {
	handle, err := a.builders.Ensure(ctx)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to prepare builder")
	}
	a.logger.Info("builder ready", "builder", handle.Name, "image", handle.Image, "managed", handle.Managed)
	return handle, nil
}

// RemoveBuilder deletes the managed builder. Its cache state is kept unless purge is set.
func (a *App) RemoveBuilder(ctx context.Context, purge bool) error {
	if err := a.builders.Remove(ctx, purge); err != nil {
		return zerr.Wrap(err, "failed to remove builder")
	}
	a.logger.Info("builder removed", "purge", purge)
	return nil
}

func (a *App) request(args []string, streams Streams) (*pipeline.Request, error) {
	if len(args) == 0 {
		return nil, zerr.Wrap(domain.ErrUnrecognizedInvocation, "no compiler given")
	}
	dir, err := a.getwd()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to get working directory")
	}
	return &pipeline.Request{
		Args:   args,
		Env:    a.environ(),
		Dir:    dir,
		Stdin:  streams.In,
		Stdout: streams.Out,
		Stderr: streams.Err,
	}, nil
}

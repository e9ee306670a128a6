// Package pipeline runs one compiler invocation through the sandbox: it plans the build,
// submits it to the backend, moves the outputs into place and replays the compiler's
// streams and exit status. Whenever the sandbox infrastructure fails, it runs the
// original command on the host instead.
package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"slices"

	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/core/ports"
	"go.trai.ch/greenroom/internal/engine/invocation"
	"go.trai.ch/greenroom/internal/engine/naming"
	"go.trai.ch/greenroom/internal/engine/resolver"
	"go.trai.ch/zerr"
)

// Request is one wrapped compiler call.
type Request struct {
	// Args is the compiler path followed by its arguments.
	Args   []string
	Env    []string
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Pipeline drives invocations through the sandbox.
type Pipeline struct {
	cfg      *domain.Config
	store    ports.RecordStore
	tree     ports.SourceTree
	images   ports.ImageResolver
	builders ports.BuilderManager
	backend  ports.Backend
	executor ports.Executor
	tracer   ports.Tracer
	logger   ports.Logger
	resolver *resolver.Resolver
}

// New creates a Pipeline.
func New(
	cfg *domain.Config,
	store ports.RecordStore,
	tree ports.SourceTree,
	images ports.ImageResolver,
	builders ports.BuilderManager,
	backend ports.Backend,
	executor ports.Executor,
	tracer ports.Tracer,
	logger ports.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    store,
		tree:     tree,
		images:   images,
		builders: builders,
		backend:  backend,
		executor: executor,
		tracer:   tracer,
		logger:   logger,
		resolver: resolver.New(store),
	}
}

// Run wraps one compiler call and returns the exit code to report.
// An error is returned only for failures that must not be hidden by a direct run.
func (p *Pipeline) Run(ctx context.Context, req *Request) (int, error) {
	// 1. Parse
	inv, err := invocation.Parse(req.Args, req.Env, req.Dir, p.cfg.ForwardEnv...)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrQueryInvocation):
			p.logger.Debug("running query directly", "args", req.Args)
			return p.direct(ctx, req)
		case errors.Is(err, domain.ErrUnrecognizedInvocation):
			p.logger.Warn("running unrecognized invocation directly", "reason", err.Error(), "args", req.Args)
			if outline, ok := invocation.Outline(req.Args, req.Dir); ok {
				p.markDirect(outline)
			}
			return p.direct(ctx, req)
		default:
			return 1, err
		}
	}

	ctx, span := p.tracer.Start(ctx, inv.CrateName,
		ports.WithAttribute("greenroom.crate", inv.CrateName),
		ports.WithAttribute("greenroom.kind", string(inv.Kind)))
	defer span.End()

	// 2. Plan and persist the sidecars
	plan, err := p.Plan(ctx, inv)
	if err != nil {
		if errors.Is(err, domain.ErrUnrecognizedInvocation) || errors.Is(err, domain.ErrDependencyUnsandboxed) {
			p.logger.Warn("running unit directly", "reason", err.Error(), "crate", inv.CrateName)
			p.markDirect(inv)
			return p.direct(ctx, req)
		}
		span.RecordError(err)
		return 1, err
	}
	span.SetAttribute("greenroom.identity", plan.Identity.Suffix)

	// 3. Sandboxing disabled
	if p.cfg.Runner == domain.RunnerNone {
		return p.direct(ctx, req)
	}

	// 4. Builder
	handle, err := p.builders.Ensure(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrBuilderUnavailable) && p.cfg.Fallback == domain.FallbackDirect {
			p.logger.Error(err, "crate", inv.CrateName, "identity", plan.Identity.Suffix, "fallback", string(domain.FallbackDirect))
			return p.direct(ctx, req)
		}
		span.RecordError(err)
		return 1, err
	}

	// 5. Build, extract and replay
	code, err := p.execute(ctx, req, plan, handle)
	if err != nil {
		if errors.Is(err, domain.ErrBackendExecution) && p.cfg.Fallback == domain.FallbackDirect {
			p.logger.Error(err, "crate", inv.CrateName, "identity", plan.Identity.Suffix, "fallback", string(domain.FallbackDirect))
			return p.direct(ctx, req)
		}
		span.RecordError(err)
		return 1, err
	}
	return code, nil
}

// execute builds the plan into a temporary directory inside the out-dir, moves the
// outputs into place and replays the captured streams.
func (p *Pipeline) execute(ctx context.Context, req *Request, plan *Plan, handle *domain.BuilderHandle) (int, error) {
	inv := plan.Invocation
	tmp, err := os.MkdirTemp(inv.OutDir, domain.ExtractPrefix)
	if err != nil {
		return 1, zerr.With(zerr.Wrap(domain.ErrExtractionFailed, err.Error()), "dir", inv.OutDir)
	}
	defer func() {
		_ = os.RemoveAll(tmp)
	}()

	ctx, span := p.tracer.Start(ctx, "build")
	report, err := p.backend.Build(ctx, &domain.BuildRequest{
		Dockerfile: plan.Description.Dockerfile,
		Contexts:   plan.Description.Contexts,
		Target:     plan.Description.Target,
		OutputDir:  tmp,
		Builder:    handle,
		Network:    p.cfg.Network,
	})
	if err != nil {
		span.RecordError(err)
		span.End()
		return 1, err
	}
	event := report.StageEvent(naming.StageName(naming.PrefixBuild, plan.Identity.Suffix))
	span.SetAttribute("greenroom.cached", event == domain.UnitEventFresh)
	span.End()

	out, err := readOutputs(tmp)
	if err != nil {
		return 1, err
	}

	if out.status == 0 {
		if err := out.extract(inv); err != nil {
			return 1, err
		}
	}

	p.logger.Info("unit "+string(event),
		"event", string(event),
		"crate", inv.CrateName,
		"identity", plan.Identity.Suffix,
		"artifact", PrimaryArtifact(out.files),
		"status", out.status)

	if err := out.replay(req.Stdout, req.Stderr); err != nil {
		return 1, err
	}
	return out.status, nil
}

// markDirect records that a unit is compiled on the host, so its dependents are too.
// A record that cannot be written only costs the dependents their own fallback.
func (p *Pipeline) markDirect(inv *domain.Invocation) {
	id := naming.DirectIdentity(inv.Args)
	if _, err := p.resolver.PersistDirect(inv, id); err != nil {
		p.logger.Warn("direct record not written", "crate", inv.CrateName, "reason", err.Error())
	}
}

// direct runs the original command on the host and reports its exit code.
func (p *Pipeline) direct(ctx context.Context, req *Request) (int, error) {
	if len(req.Args) == 0 {
		return 1, zerr.New("no compiler to run")
	}
	cmd := &domain.Command{
		Path: req.Args[0],
		Args: req.Args[1:],
		Dir:  req.Dir,
	}
	if req.Stdin != nil && slices.Contains(cmd.Args, "-") {
		data, err := io.ReadAll(req.Stdin)
		if err != nil {
			return 1, zerr.Wrap(err, "failed to read standard input")
		}
		cmd.Stdin = data
	}

	p.logger.Debug("unit "+string(domain.UnitEventDirect), "event", string(domain.UnitEventDirect), "path", cmd.Path)
	code, err := p.executor.Execute(ctx, cmd, req.Stdout, req.Stderr)
	if err != nil {
		return 1, zerr.Wrap(err, "direct compiler run failed")
	}
	return code, nil
}

package pipeline

import (
	"context"
	"path/filepath"

	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/engine/emitter"
	"go.trai.ch/greenroom/internal/engine/invocation"
	"go.trai.ch/greenroom/internal/engine/naming"
)

// Plan is the rendered build of one unit.
type Plan struct {
	Invocation  *domain.Invocation
	Identity    domain.Identity
	Result      *emitter.Result
	Description *emitter.Description
}

// Plan names the unit, emits and renders its build and persists the sidecars dependents
// need. The stage sidecar is written before the record pointer, so a dependent that can
// see the pointer can always load the stages.
func (p *Pipeline) Plan(ctx context.Context, inv *domain.Invocation) (*Plan, error) {
	ctx, span := p.tracer.Start(ctx, "plan")
	defer span.End()

	src, err := p.sources(inv)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	tc, markerPath, err := p.toolchain(ctx, inv)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	res, err := p.resolver.Resolve(inv)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	id := naming.Identity(inv, res.Direct, tc, src)
	result, err := emitter.Emit(&emitter.Unit{
		Invocation:  inv,
		Identity:    id,
		Resolution:  res,
		Toolchain:   tc,
		MarkerPath:  markerPath,
		Network:     p.cfg.Network,
		Incremental: p.cfg.Has(domain.ExperimentIncremental),
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	desc, err := emitter.Render(result.Graph)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := p.store.PutStages(inv.OutDir, result.Own); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if _, err := p.resolver.Persist(inv, id, res); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if p.cfg.FinalPath != "" {
		if err := p.store.PutDescription(p.cfg.FinalPath, desc.Dockerfile); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	p.logger.Debug("unit planned",
		"crate", inv.CrateName,
		"identity", id.Suffix,
		"deps", len(res.Deps),
		"stages", result.Graph.Len())
	return &Plan{Invocation: inv, Identity: id, Result: result, Description: desc}, nil
}

// sources hashes every host directory the compile step reads.
func (p *Pipeline) sources(inv *domain.Invocation) (naming.Sources, error) {
	var src naming.Sources
	var err error
	if src.Tree, err = p.tree.Hash(inv.SourceRoot); err != nil {
		return src, err
	}
	if inv.BuildOutDir != "" {
		if src.BuildOut, err = p.tree.Hash(inv.BuildOutDir); err != nil {
			return src, err
		}
	}
	for _, dir := range emitter.NativeDirs(inv) {
		h, err := p.tree.Hash(dir)
		if err != nil {
			return src, err
		}
		src.Native = append(src.Native, h)
	}
	return src, nil
}

// toolchain resolves the base image and the nearest toolchain override file between the
// input's directory and the source root.
// A base image that cannot be pinned is used as configured.
func (p *Pipeline) toolchain(ctx context.Context, inv *domain.Invocation) (naming.Toolchain, string, error) {
	tc := naming.Toolchain{BaseImage: p.cfg.BaseImage, Packages: p.cfg.AddPackages}
	if p.cfg.Has(domain.ExperimentPinDigest) {
		pinned, err := p.images.Pin(ctx, p.cfg.BaseImage)
		if err != nil {
			p.logger.Warn("base image not pinned", "image", p.cfg.BaseImage, "reason", err.Error())
		} else {
			tc.BaseImage = pinned
		}
	}

	input := inv.Input
	if !filepath.IsAbs(input) {
		input = filepath.Join(inv.Dir, input)
	}
	path, marker, err := p.tree.ToolchainMarker(filepath.Dir(input), inv.SourceRoot)
	if err != nil {
		return tc, "", err
	}
	tc.Marker = marker
	return tc, path, nil
}

// Describe parses a compiler call and plans it without building anything.
func (p *Pipeline) Describe(ctx context.Context, req *Request) (*Plan, error) {
	inv, err := invocation.Parse(req.Args, req.Env, req.Dir, p.cfg.ForwardEnv...)
	if err != nil {
		return nil, err
	}
	return p.Plan(ctx, inv)
}

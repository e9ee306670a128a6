// Package emitter turns a parsed invocation and its resolved dependencies into a
// content-addressed build graph and renders it as a Dockerfile.
package emitter

import (
	"path"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/engine/naming"
	"go.trai.ch/greenroom/internal/engine/resolver"
	"go.trai.ch/zerr"
)

// Paths inside the compile stage.
const (
	stdioDir       = domain.SandboxDir + "/stdio"
	outDir         = domain.SandboxDir + "/out"
	incrementalDir = domain.SandboxDir + "/incremental"
	stampFile      = domain.SandboxDir + "/stamp"
)

// SourceExcludes are never copied into the source stage. They mirror the hasher's ignores.
var SourceExcludes = []string{"**/target", "**/.git", "**/.jj"}

// Unit is everything the emitter needs to describe one compile.
type Unit struct {
	Invocation *domain.Invocation
	Identity   domain.Identity
	Resolution *resolver.Resolution
	Toolchain  naming.Toolchain
	// MarkerPath is the host path of the toolchain override file, when Toolchain.Marker is set.
	MarkerPath  string
	Network     domain.Network
	Incremental bool
}

// Result is the emitted build graph of a unit.
type Result struct {
	Graph *domain.BuildGraph
	// Own holds the stages and contexts the unit contributes. Dependents merge it.
	Own *domain.StageSet
	// Target is the stage exported by the build.
	Target string
}

type emission struct {
	unit  *Unit
	graph *domain.BuildGraph
	own   *domain.StageSet
}

// Emit builds the graph for the unit. Imported dependency stages come first, then the
// unit's toolchain, source, dependency artifact and compile stages, then its outputs.
func Emit(u *Unit) (*Result, error) {
	inv := u.Invocation
	e := &emission{
		unit:  u,
		graph: domain.NewBuildGraph(),
		own: &domain.StageSet{
			Unit:     inv.UnitStem(),
			Identity: u.Identity.Suffix,
			Contexts: make(map[string]domain.Context),
		},
	}

	for i := range u.Resolution.Deps {
		dep := &u.Resolution.Deps[i]
		if dep.Stages == nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrDependencyRecordMissing, "stage sidecar missing"), "unit", dep.ShortName)
		}
		if err := e.graph.Merge(dep.Stages); err != nil {
			return nil, err
		}
	}

	base, err := e.toolchain()
	if err != nil {
		return nil, err
	}
	build, err := e.compile(base)
	if err != nil {
		return nil, err
	}
	target, err := e.outputs(build)
	if err != nil {
		return nil, err
	}

	e.graph.SetTarget(target)
	if err := e.graph.Validate(); err != nil {
		return nil, err
	}
	return &Result{Graph: e.graph, Own: e.own, Target: target}, nil
}

// addOwn adds a stage the unit contributes to its persisted set.
func (e *emission) addOwn(s *domain.Stage) error {
	if err := e.graph.Add(s); err != nil {
		return err
	}
	e.own.Stages = append(e.own.Stages, *s)
	return nil
}

func (e *emission) addContext(name string, c domain.Context) error {
	if err := e.graph.AddContext(name, c); err != nil {
		return err
	}
	e.own.Contexts[name] = c
	return nil
}

// toolchain emits the base image context and the override stages on top of it.
// It returns the name compile steps start from.
func (e *emission) toolchain() (string, error) {
	tc := e.unit.Toolchain
	current := naming.StageName(naming.ContextBase, naming.Toolchain{BaseImage: tc.BaseImage}.Fingerprint())
	if err := e.addContext(current, domain.Context{Kind: domain.ContextImage, Value: tc.BaseImage}); err != nil {
		return "", err
	}

	if len(tc.Packages) > 0 {
		pkgs := slices.Sorted(slices.Values(tc.Packages))
		stage := &domain.Stage{
			Name:    naming.StageName(naming.PrefixToolchain, naming.Toolchain{BaseImage: tc.BaseImage, Packages: tc.Packages}.Fingerprint()),
			Kind:    domain.StageToolchainOverride,
			From:    current,
			Network: domain.NetworkDefault,
			Script: "apt-get update && apt-get install -y --no-install-recommends " +
				strings.Join(quoteAll(pkgs), " ") + " && rm -rf /var/lib/apt/lists/*",
		}
		if err := e.addOwn(stage); err != nil {
			return "", err
		}
		current = stage.Name
	}

	if len(tc.Marker) > 0 {
		dir := path.Dir(e.unit.MarkerPath)
		stage := &domain.Stage{
			Name:    naming.StageName(naming.PrefixToolchain, tc.Fingerprint()),
			Kind:    domain.StageToolchainOverride,
			From:    current,
			Workdir: dir,
			Network: domain.NetworkDefault,
			Script: "printf " + quote(printfFormat(tc.Marker)) + " >" + quote(e.unit.MarkerPath) +
				" && rustup toolchain install",
		}
		if err := e.addOwn(stage); err != nil {
			return "", err
		}
		current = stage.Name
	}
	return current, nil
}

// NativeDirs returns the distinct native and framework search directories of an invocation,
// in argument order. The build script output directory is mounted on its own and is left out.
func NativeDirs(inv *domain.Invocation) []string {
	var dirs []string
	for _, sp := range inv.SearchPaths {
		if sp.Kind != "native" && sp.Kind != "framework" {
			continue
		}
		if sp.Path == inv.BuildOutDir || slices.Contains(dirs, sp.Path) {
			continue
		}
		dirs = append(dirs, sp.Path)
	}
	return dirs
}

// compile emits the source, dependency artifact and compile stages.
func (e *emission) compile(base string) (string, error) {
	u := e.unit
	inv := u.Invocation
	id := u.Identity.Suffix

	srcCtx := naming.StageName(naming.ContextSource, id)
	if err := e.addContext(srcCtx, domain.Context{Kind: domain.ContextHost, Value: inv.SourceRoot}); err != nil {
		return "", err
	}
	src := &domain.Stage{
		Name: naming.StageName(naming.PrefixSource, id),
		Kind: domain.StageSourceMount,
		From: domain.Scratch,
		Mounts: []domain.Mount{
			{From: srcCtx, Source: "/", Target: "/", Excludes: SourceExcludes},
		},
	}
	if err := e.addOwn(src); err != nil {
		return "", err
	}

	mounts := []domain.Mount{{From: src.Name, Source: "/", Target: inv.SourceRoot, Writable: true}}

	if inv.BuildOutDir != "" {
		name := naming.StageName(naming.ContextBuildOut, id)
		if err := e.addContext(name, domain.Context{Kind: domain.ContextHost, Value: inv.BuildOutDir}); err != nil {
			return "", err
		}
		mounts = append(mounts, domain.Mount{From: name, Source: "/", Target: inv.BuildOutDir})
	}

	for i, dir := range NativeDirs(inv) {
		name := naming.StageName(naming.ContextNative, id) + "-" + strconv.Itoa(i)
		if err := e.addContext(name, domain.Context{Kind: domain.ContextHost, Value: dir}); err != nil {
			return "", err
		}
		mounts = append(mounts, domain.Mount{From: name, Source: "/", Target: dir})
	}

	for i := range u.Resolution.Deps {
		dep := &u.Resolution.Deps[i]
		form := resolver.ArtifactFor(inv, dep)
		file := form.FileName(dep.ShortName)
		stage := &domain.Stage{
			Name: naming.DependencyStageName(dep.Identity, form),
			Kind: domain.StageDependencyArtifactMount,
			From: domain.Scratch,
			Mounts: []domain.Mount{
				{From: naming.StageName(naming.PrefixOut, dep.Identity), Source: "/" + file, Target: "/" + file},
			},
		}
		if err := e.addOwn(stage); err != nil {
			return "", err
		}
		mounts = append(mounts, domain.Mount{From: stage.Name, Source: "/" + file, Target: path.Join(dep.Dir, file)})
	}

	script, err := e.script()
	if err != nil {
		return "", err
	}
	build := &domain.Stage{
		Name:    naming.StageName(naming.PrefixBuild, id),
		Kind:    domain.StageCompileStep,
		From:    base,
		Workdir: inv.Dir,
		Env:     inv.Env,
		Network: u.Network,
		Mounts:  mounts,
		Script:  script,
	}
	if err := e.addOwn(build); err != nil {
		return "", err
	}
	return build.Name, nil
}

// script runs the compiler with captured streams and status, then collects every file
// the compiler wrote into the output directory.
func (e *emission) script() (string, error) {
	inv := e.unit.Invocation
	for _, v := range inv.Env {
		if strings.ContainsAny(v.Value, "\n\r") {
			return "", zerr.With(zerr.Wrap(domain.ErrUnrecognizedInvocation, "environment value spans lines"), "env", v.Name)
		}
	}

	dirs := []string{stdioDir, outDir, inv.OutDir}
	incremental := e.unit.Incremental && inv.Incremental != ""
	if incremental {
		dirs = append(dirs, inv.Incremental, incrementalDir)
	}

	var b strings.Builder
	b.WriteString("mkdir -p ")
	b.WriteString(strings.Join(quoteAll(dirs), " "))
	b.WriteString(" && touch " + stampFile)
	b.WriteString(" && { rustc ")
	b.WriteString(strings.Join(quoteAll(inv.Flags), " "))
	b.WriteString(" 1>" + stdioDir + "/" + domain.StdoutFile)
	b.WriteString(" 2>" + stdioDir + "/" + domain.StderrFile)
	b.WriteString("; echo $? >" + stdioDir + "/" + domain.StatusFile + "; }")
	b.WriteString(" && find " + quote(inv.OutDir) + " -maxdepth 1 -type f -newer " + stampFile +
		" -exec cp -p {} " + outDir + "/ \\;")
	if incremental {
		b.WriteString(" && cp -a " + quote(inv.Incremental+"/.") + " " + incrementalDir + "/")
	}
	return b.String(), nil
}

// outputs emits the stages that expose the compile results and the export target.
func (e *emission) outputs(build string) (string, error) {
	id := e.unit.Identity.Suffix
	out := &domain.Stage{
		Name:   naming.StageName(naming.PrefixOut, id),
		Kind:   domain.StageFinalOutput,
		From:   domain.Scratch,
		Mounts: []domain.Mount{{From: build, Source: outDir + "/", Target: "/"}},
	}
	stdio := &domain.Stage{
		Name:   naming.StageName(naming.PrefixStdio, id),
		Kind:   domain.StageStdioCapture,
		From:   domain.Scratch,
		Mounts: []domain.Mount{{From: build, Source: stdioDir + "/", Target: "/"}},
	}
	stages := []*domain.Stage{out, stdio}
	exports := []domain.Mount{
		{From: out.Name, Source: "/", Target: "/" + domain.ExportOutDir + "/"},
		{From: stdio.Name, Source: "/", Target: "/" + domain.ExportStdioDir + "/"},
	}

	if e.unit.Incremental && e.unit.Invocation.Incremental != "" {
		incr := &domain.Stage{
			Name:   naming.StageName(naming.PrefixIncremental, id),
			Kind:   domain.StageIncrementalOutput,
			From:   domain.Scratch,
			Mounts: []domain.Mount{{From: build, Source: incrementalDir + "/", Target: "/"}},
		}
		stages = append(stages, incr)
		exports = append(exports, domain.Mount{From: incr.Name, Source: "/", Target: "/" + domain.ExportIncrementalDir + "/"})
	}

	for _, s := range stages {
		if err := e.addOwn(s); err != nil {
			return "", err
		}
	}

	// The export stage is specific to this build and is not persisted for dependents.
	export := &domain.Stage{
		Name:   naming.StageName(naming.PrefixExport, id),
		Kind:   domain.StageFinalOutput,
		From:   domain.Scratch,
		Mounts: exports,
	}
	if err := e.graph.Add(export); err != nil {
		return "", err
	}
	return export.Name, nil
}

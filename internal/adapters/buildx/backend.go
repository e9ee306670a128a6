// Package buildx drives BuildKit through the docker buildx or podman clients.
package buildx

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/greenroom/internal/adapters/registry"
	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Backend = (*Backend)(nil)

const stderrTailLines = 20

// buildxEnv keeps provenance files out of the local export and hints off stderr.
var buildxEnv = []string{"BUILDX_NO_DEFAULT_ATTESTATIONS=1", "DOCKER_CLI_HINTS=false"}

// Backend implements ports.Backend for the configured runner.
type Backend struct {
	runner   domain.Runner
	stateDir string
	exec     ports.Executor
	logger   ports.Logger
}

// NewBackend creates the backend for cfg.Runner.
func NewBackend(cfg *domain.Config, exec ports.Executor, logger ports.Logger) *Backend {
	return &Backend{
		runner:   cfg.Runner,
		stateDir: cfg.StateDir,
		exec:     exec,
		logger:   logger,
	}
}

// Build submits the request and exports the target stage into req.OutputDir.
func (b *Backend) Build(ctx context.Context, req *domain.BuildRequest) (*domain.BuildReport, error) {
	contextDir, err := b.emptyContext()
	if err != nil {
		return nil, err
	}

	var cmd *domain.Command
	switch b.runner {
	case domain.RunnerDocker:
		cmd = buildxCommand(req, contextDir)
	case domain.RunnerPodman:
		cmd = podmanCommand(req, contextDir)
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrBackendExecution, "runner cannot build"), "runner", string(b.runner))
	}

	var stdout, stderr bytes.Buffer
	b.logger.Debug("submitting build", "client", cmd.Path, "target", req.Target, "dest", req.OutputDir)
	code, err := b.exec.Execute(ctx, cmd, &stdout, &stderr)

	prog := newProgress()
	prog.parse(stderr.Bytes())

	if err != nil {
		err = zerr.With(zerr.Wrap(domain.ErrBackendExecution, err.Error()), "client", cmd.Path)
		return nil, zerr.With(err, "stderr", tail(prog.errors(), stderrTailLines))
	}
	if code != 0 {
		sentinel := domain.ErrBackendExecution
		if prog.cacheExportFailed() {
			sentinel = domain.ErrCacheTransfer
		}
		err := zerr.With(zerr.Wrap(sentinel, "build client exited with non-zero status"), "exit_code", code)
		return nil, zerr.With(err, "stderr", tail(prog.errors(), stderrTailLines))
	}

	return prog.report(), nil
}

// emptyContext returns the directory used as the main build context.
// Every input arrives as a named context, so it holds nothing.
func (b *Backend) emptyContext() (string, error) {
	dir := filepath.Join(b.stateDir, domain.EmptyContextDirName)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrBackendExecution, err.Error()), "path", dir)
	}
	return dir, nil
}

func buildxCommand(req *domain.BuildRequest, contextDir string) *domain.Command {
	args := []string{"buildx", "build"}
	if req.Builder != nil && req.Builder.Name != "" {
		args = append(args, "--builder", req.Builder.Name)
	}
	args = append(args,
		"--progress=rawjson",
		"--file", "-",
		"--target", req.Target,
		"--output", "type=local,dest="+req.OutputDir,
	)
	args = append(args, contextArgs(req.Contexts)...)
	if req.Builder != nil {
		for _, spec := range req.Builder.CacheFrom {
			args = append(args, "--cache-from", CacheFromSpec(spec))
		}
		for _, spec := range req.Builder.CacheTo {
			args = append(args, "--cache-to", CacheToSpec(spec))
		}
	}
	if req.Network == domain.NetworkHost {
		args = append(args, "--allow", "network.host")
	}
	args = append(args, contextDir)

	return &domain.Command{Path: "docker", Args: args, Env: buildxEnv, Stdin: req.Dockerfile}
}

func podmanCommand(req *domain.BuildRequest, contextDir string) *domain.Command {
	args := []string{
		"build",
		"--file", "-",
		"--target", req.Target,
		"--output", "type=local,dest=" + req.OutputDir,
		"--layers",
	}
	args = append(args, contextArgs(req.Contexts)...)
	if req.Builder != nil {
		// podman takes bare repositories for its layer cache.
		for _, spec := range req.Builder.CacheFrom {
			if ref, ok := registry.RegistryRef(spec); ok {
				args = append(args, "--cache-from", ref)
			}
		}
		for _, spec := range req.Builder.CacheTo {
			if ref, ok := registry.RegistryRef(spec); ok {
				args = append(args, "--cache-to", ref)
			}
		}
	}
	args = append(args, contextDir)

	return &domain.Command{Path: "podman", Args: args, Stdin: req.Dockerfile}
}

func contextArgs(contexts map[string]domain.Context) []string {
	args := make([]string, 0, 2*len(contexts))
	for _, name := range domain.SortedContextNames(contexts) {
		args = append(args, "--build-context", name+"="+contexts[name].Spec())
	}
	return args
}

// CacheFromSpec expands a bare reference into a registry cache import.
func CacheFromSpec(spec string) string {
	if strings.Contains(spec, "=") {
		return spec
	}
	return "type=registry,ref=" + spec
}

// CacheToSpec expands a bare reference into a registry cache export of every layer.
func CacheToSpec(spec string) string {
	if strings.Contains(spec, "=") {
		return spec
	}
	return "type=registry,ref=" + spec + ",mode=max"
}

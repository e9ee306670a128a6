package buildx_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/greenroom/internal/adapters/buildx"
	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

const rawProgress = `{"vertexes":[{"digest":"sha256:aa","name":"[src-0123 1/1] COPY --from=ctx / /work"}]}
{"vertexes":[{"digest":"sha256:aa","name":"[src-0123 1/1] COPY --from=ctx / /work","started":"2026-01-01T00:00:00Z","completed":"2026-01-01T00:00:01Z","cached":true}]}
{"vertexes":[{"digest":"sha256:bb","name":"[build-0123 1/1] RUN rustc","started":"2026-01-01T00:00:01Z"}]}
{"statuses":[{"id":"transferring src-ctx-0123","vertex":"sha256:aa","current":1024,"timestamp":"2026-01-01T00:00:02Z"}],"logs":[{"vertex":"sha256:bb","stream":2,"data":"Y29tcGlsaW5nCg==","timestamp":"2026-01-01T00:00:03Z"}]}
{"vertexes":[{"digest":"sha256:bb","name":"[build-0123 1/1] RUN rustc","started":"2026-01-01T00:00:01Z","completed":"2026-01-01T00:00:09Z"}]}
`

func newRequest(t *testing.T) *domain.BuildRequest {
	t.Helper()
	return &domain.BuildRequest{
		Dockerfile: []byte("# syntax=docker.io/docker/dockerfile:1.7-labs\n"),
		Contexts: map[string]domain.Context{
			"src-ctx-0123": {Kind: domain.ContextHost, Value: "/work/foo"},
			"base-77":      {Kind: domain.ContextImage, Value: "docker.io/library/rust:1-slim"},
		},
		Target:    "export-0123",
		OutputDir: filepath.Join(t.TempDir(), ".greenroom-x"),
		Builder: &domain.BuilderHandle{
			Name:      "greenroom",
			State:     domain.BuilderCurrent,
			CacheFrom: []string{"ghcr.io/acme/cache"},
			CacheTo:   []string{"type=registry,ref=ghcr.io/acme/cache,mode=min"},
		},
		Network: domain.NetworkNone,
	}
}

func TestBackend_Build_Docker(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	stateDir := t.TempDir()
	cfg := &domain.Config{Runner: domain.RunnerDocker, StateDir: stateDir}
	backend := buildx.NewBackend(cfg, exec, quietLogger(ctrl))
	req := newRequest(t)

	exec.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmd *domain.Command, _, stderr io.Writer) (int, error) {
			assert.Equal(t, "docker", cmd.Path)
			assert.Equal(t, []string{
				"buildx", "build",
				"--builder", "greenroom",
				"--progress=rawjson",
				"--file", "-",
				"--target", "export-0123",
				"--output", "type=local,dest=" + req.OutputDir,
				"--build-context", "base-77=docker-image://docker.io/library/rust:1-slim",
				"--build-context", "src-ctx-0123=/work/foo",
				"--cache-from", "type=registry,ref=ghcr.io/acme/cache",
				"--cache-to", "type=registry,ref=ghcr.io/acme/cache,mode=min",
				filepath.Join(stateDir, domain.EmptyContextDirName),
			}, cmd.Args)
			assert.Equal(t, req.Dockerfile, cmd.Stdin)
			assert.Contains(t, cmd.Env, "BUILDX_NO_DEFAULT_ATTESTATIONS=1")
			_, _ = io.WriteString(stderr, rawProgress)
			return 0, nil
		})

	report, err := backend.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []domain.Vertex{
		{Name: "[src-0123 1/1] COPY --from=ctx / /work", Status: domain.VertexStatusCached},
		{Name: "[build-0123 1/1] RUN rustc", Status: domain.VertexStatusCompleted},
	}, report.Vertices)
	assert.Equal(t, domain.UnitEventCompiling, report.StageEvent("build-0123"))
	assert.Equal(t, domain.UnitEventFresh, report.StageEvent("src-0123"))
	assert.DirExists(t, filepath.Join(stateDir, domain.EmptyContextDirName))
}

func TestBackend_Build_UnmanagedBuilderOmitsFlag(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	backend := buildx.NewBackend(&domain.Config{Runner: domain.RunnerDocker, StateDir: t.TempDir()}, exec, quietLogger(ctrl))
	req := newRequest(t)
	req.Builder = &domain.BuilderHandle{State: domain.BuilderCurrent}
	req.Network = domain.NetworkHost

	exec.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmd *domain.Command, _, _ io.Writer) (int, error) {
			assert.NotContains(t, cmd.Args, "--builder")
			assert.Contains(t, cmd.Args, "network.host")
			return 0, nil
		})

	_, err := backend.Build(context.Background(), req)
	require.NoError(t, err)
}

func TestBackend_Build_Podman(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	stateDir := t.TempDir()
	backend := buildx.NewBackend(&domain.Config{Runner: domain.RunnerPodman, StateDir: stateDir}, exec, quietLogger(ctrl))
	req := newRequest(t)
	req.Builder = &domain.BuilderHandle{
		State:     domain.BuilderCurrent,
		CacheFrom: []string{"ghcr.io/acme/cache", "type=gha"},
	}

	exec.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmd *domain.Command, _, _ io.Writer) (int, error) {
			assert.Equal(t, "podman", cmd.Path)
			assert.Equal(t, []string{
				"build",
				"--file", "-",
				"--target", "export-0123",
				"--output", "type=local,dest=" + req.OutputDir,
				"--layers",
				"--build-context", "base-77=docker-image://docker.io/library/rust:1-slim",
				"--build-context", "src-ctx-0123=/work/foo",
				"--cache-from", "ghcr.io/acme/cache",
				filepath.Join(stateDir, domain.EmptyContextDirName),
			}, cmd.Args)
			return 0, nil
		})

	report, err := backend.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, report.Vertices)
}

func TestBackend_Build_Failures(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		execErr  error
		stderr   string
		sentinel error
	}{
		{
			name:     "client missing",
			code:     -1,
			execErr:  errors.New(`exec: "docker": executable file not found in $PATH`),
			sentinel: domain.ErrBackendExecution,
		},
		{
			name:     "daemon unreachable",
			code:     1,
			stderr:   "ERROR: Cannot connect to the Docker daemon at unix:///var/run/docker.sock\n",
			sentinel: domain.ErrBackendExecution,
		},
		{
			name: "cache export rejected",
			code: 1,
			stderr: `{"vertexes":[{"digest":"sha256:cc","name":"exporting cache to registry","error":"unexpected status: 401 Unauthorized"}]}
ERROR: failed to solve: failed to push ghcr.io/acme/cache
`,
			sentinel: domain.ErrCacheTransfer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			exec := mocks.NewMockExecutor(ctrl)
			backend := buildx.NewBackend(&domain.Config{Runner: domain.RunnerDocker, StateDir: t.TempDir()}, exec, quietLogger(ctrl))

			exec.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, _ *domain.Command, _, stderr io.Writer) (int, error) {
					_, _ = io.WriteString(stderr, tt.stderr)
					return tt.code, tt.execErr
				})

			_, err := backend.Build(context.Background(), newRequest(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			if tt.sentinel == domain.ErrBackendExecution {
				assert.NotErrorIs(t, err, domain.ErrCacheTransfer)
			}
		})
	}
}

func TestCacheSpecs(t *testing.T) {
	assert.Equal(t, "type=registry,ref=ghcr.io/a/b", buildx.CacheFromSpec("ghcr.io/a/b"))
	assert.Equal(t, "type=registry,ref=ghcr.io/a/b,mode=max", buildx.CacheToSpec("ghcr.io/a/b"))
	assert.Equal(t, "type=local,dest=/tmp/c", buildx.CacheToSpec("type=local,dest=/tmp/c"))
}

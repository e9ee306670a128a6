package app_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/greenroom/internal/app"
	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/core/ports"
	"go.trai.ch/greenroom/internal/core/ports/mocks"
	"go.trai.ch/greenroom/internal/engine/pipeline"
	"go.uber.org/mock/gomock"
)

type appTestMocks struct {
	store    *mocks.MockRecordStore
	builders *mocks.MockBuilderManager
	executor *mocks.MockExecutor
}

func setupAppTest(t *testing.T, cfg *domain.Config, dir string) (*app.App, appTestMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := appTestMocks{
		store:    mocks.NewMockRecordStore(ctrl),
		builders: mocks.NewMockBuilderManager(ctrl),
		executor: mocks.NewMockExecutor(ctrl),
	}

	span := mocks.NewMockSpan(ctrl)
	span.EXPECT().End().AnyTimes()
	span.EXPECT().RecordError(gomock.Any()).AnyTimes()
	span.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()
	tracer := mocks.NewMockTracer(ctrl)
	tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			return ctx, span
		},
	).AnyTimes()

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any(), gomock.Any()).AnyTimes()

	tree := mocks.NewMockSourceTree(ctrl)
	tree.EXPECT().Hash(gomock.Any()).Return("00000000000000aa", nil).AnyTimes()
	tree.EXPECT().ToolchainMarker(gomock.Any(), gomock.Any()).Return("", nil, nil).AnyTimes()

	images := mocks.NewMockImageResolver(ctrl)
	backend := mocks.NewMockBackend(ctrl)

	p := pipeline.New(cfg, m.store, tree, images, m.builders, backend, m.executor, tracer, log)
	a := app.New(p, m.builders, log).WithEnvironment([]string{"CARGO_PRIMARY_PACKAGE=1"}, dir)
	return a, m
}

func newConfig() *domain.Config {
	cfg := domain.DefaultConfig()
	cfg.LogPath = ""
	return cfg
}

func libArgs(outDir string) []string {
	return []string{
		"rustc", "--crate-name", "demo", "--edition=2021", "src/lib.rs",
		"--crate-type", "lib", "--emit=dep-info,metadata,link",
		"-C", "extra-filename=-5f2a", "--out-dir", outDir,
	}
}

func newOutDir(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	outDir := filepath.Join(dir, "target", "debug", "deps")
	require.NoError(t, os.MkdirAll(outDir, 0o750))
	return dir, outDir
}

func TestApp_Wrap_VersionQuery(t *testing.T) {
	a, m := setupAppTest(t, newConfig(), t.TempDir())
	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cmd *domain.Command, stdout, _ io.Writer) (int, error) {
			assert.Equal(t, "rustc", cmd.Path)
			assert.Equal(t, []string{"-vV"}, cmd.Args)
			_, _ = stdout.Write([]byte("rustc 1.80.0\n"))
			return 0, nil
		},
	)

	var stdout bytes.Buffer
	code, err := a.Wrap(context.Background(), []string{"rustc", "-vV"}, app.Streams{Out: &stdout, Err: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "rustc 1.80.0\n", stdout.String())
}

func TestApp_Wrap_RunnerNone(t *testing.T) {
	dir, outDir := newOutDir(t)
	cfg := newConfig()
	cfg.Runner = domain.RunnerNone
	a, m := setupAppTest(t, cfg, dir)
	m.store.EXPECT().PutStages(outDir, gomock.Any()).Return(nil)
	m.store.EXPECT().Put(outDir, gomock.Any()).Return(nil)
	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(3, nil)

	code, err := a.Wrap(context.Background(), libArgs(outDir), app.Streams{Out: &bytes.Buffer{}, Err: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, 3, code)
}

func TestApp_Wrap_NoCompiler(t *testing.T) {
	a, _ := setupAppTest(t, newConfig(), t.TempDir())

	code, err := a.Wrap(context.Background(), nil, app.Streams{})
	require.ErrorIs(t, err, domain.ErrUnrecognizedInvocation)
	assert.Equal(t, 1, code)
}

func TestApp_Render(t *testing.T) {
	dir, outDir := newOutDir(t)
	cfg := newConfig()

	t.Run("dockerfile", func(t *testing.T) {
		a, m := setupAppTest(t, cfg, dir)
		m.store.EXPECT().PutStages(outDir, gomock.Any()).Return(nil)
		m.store.EXPECT().Put(outDir, gomock.Any()).Return(nil)

		var out bytes.Buffer
		require.NoError(t, a.Render(context.Background(), libArgs(outDir), &out, app.RenderOptions{}))
		assert.True(t, strings.HasPrefix(out.String(), "# syntax="))
		assert.Contains(t, out.String(), "FROM ")
	})

	t.Run("contexts", func(t *testing.T) {
		a, m := setupAppTest(t, cfg, dir)
		m.store.EXPECT().PutStages(outDir, gomock.Any()).Return(nil)
		m.store.EXPECT().Put(outDir, gomock.Any()).Return(nil)

		var out bytes.Buffer
		require.NoError(t, a.Render(context.Background(), libArgs(outDir), &out, app.RenderOptions{Contexts: true}))
		assert.Contains(t, out.String(), "=docker-image://"+cfg.BaseImage+"\n")
		assert.Contains(t, out.String(), "ctx-src-")
	})

	t.Run("query cannot be rendered", func(t *testing.T) {
		a, _ := setupAppTest(t, cfg, dir)
		err := a.Render(context.Background(), []string{"rustc", "--version"}, &bytes.Buffer{}, app.RenderOptions{})
		require.ErrorIs(t, err, domain.ErrQueryInvocation)
	})
}

func TestApp_Builder(t *testing.T) {
	t.Run("ensure", func(t *testing.T) {
		a, m := setupAppTest(t, newConfig(), t.TempDir())
		want := &domain.BuilderHandle{Name: "greenroom", State: domain.BuilderCurrent, Managed: true}
		m.builders.EXPECT().Ensure(gomock.Any()).Return(want, nil)

		got, err := a.EnsureBuilder(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("ensure failure", func(t *testing.T) {
		a, m := setupAppTest(t, newConfig(), t.TempDir())
		m.builders.EXPECT().Ensure(gomock.Any()).Return(nil, domain.ErrBuilderUnavailable)

		_, err := a.EnsureBuilder(context.Background())
		require.ErrorIs(t, err, domain.ErrBuilderUnavailable)
	})

	t.Run("remove", func(t *testing.T) {
		a, m := setupAppTest(t, newConfig(), t.TempDir())
		m.builders.EXPECT().Remove(gomock.Any(), true).Return(nil)
		require.NoError(t, a.RemoveBuilder(context.Background(), true))
	})

	t.Run("remove failure", func(t *testing.T) {
		a, m := setupAppTest(t, newConfig(), t.TempDir())
		m.builders.EXPECT().Remove(gomock.Any(), false).Return(errors.New("daemon gone"))
		err := a.RemoveBuilder(context.Background(), false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "daemon gone")
	})
}

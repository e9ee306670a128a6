package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/greenroom/internal/adapters/config"
	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/zerr"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, domain.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.NewLoader().Load(t.TempDir(), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.RunnerDocker, cfg.Runner)
	assert.Equal(t, domain.NetworkNone, cfg.Network)
	assert.Equal(t, domain.FallbackDirect, cfg.Fallback)
	assert.Equal(t, domain.DefaultBaseImage, cfg.BaseImage)
	assert.Equal(t, domain.DefaultBuilderImage, cfg.BuilderImage)
	assert.Nil(t, cfg.BuilderName)

	name, managed := cfg.BuilderPolicy()
	assert.Equal(t, domain.DefaultBuilderName, name)
	assert.True(t, managed)
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
runner: podman
base-image: docker.io/library/rust:1.80-slim
network: default
add-apt: [libssl-dev, pkg-config]
experiments: [incremental]
log-level: debug
`)

	cfg, err := config.NewLoader().Load(dir, []string{
		config.EnvRunner + "=docker",
		config.EnvCacheFrom + "=ghcr.io/acme/cache; ghcr.io/acme/cache2",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RunnerDocker, cfg.Runner, "env overrides file")
	assert.Equal(t, "docker.io/library/rust:1.80-slim", cfg.BaseImage)
	assert.Equal(t, domain.NetworkDefault, cfg.Network)
	assert.Equal(t, []string{"libssl-dev", "pkg-config"}, cfg.AddPackages)
	assert.Equal(t, []string{"ghcr.io/acme/cache", "ghcr.io/acme/cache2"}, cfg.CacheFrom)
	assert.True(t, cfg.Has(domain.ExperimentIncremental))
	assert.Equal(t, domain.LogLevelDebug, cfg.LogLevel)
}

func TestLoad_BuilderPolicy(t *testing.T) {
	tests := []struct {
		name        string
		env         []string
		wantName    string
		wantManaged bool
	}{
		{name: "unset manages default", env: nil, wantName: domain.DefaultBuilderName, wantManaged: true},
		{name: "empty uses client default", env: []string{config.EnvBuilder + "="}, wantName: "", wantManaged: false},
		{name: "explicit used as-is", env: []string{config.EnvBuilder + "=ci-builder"}, wantName: "ci-builder", wantManaged: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.NewLoader().Load(t.TempDir(), tt.env)
			require.NoError(t, err)

			name, managed := cfg.BuilderPolicy()
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantManaged, managed)
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     []string
		wantKey string
	}{
		{name: "runner", env: []string{config.EnvRunner + "=kubernetes"}, wantKey: "runner"},
		{name: "network", env: []string{config.EnvNetwork + "=bridge"}, wantKey: "network"},
		{name: "fallback", env: []string{config.EnvFallback + "=sometimes"}, wantKey: "fallback"},
		{name: "experiment", env: []string{config.EnvExperiment + "=warp"}, wantKey: "experiment"},
		{name: "log level", env: []string{config.EnvLog + "=loud"}, wantKey: "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.NewLoader().Load(t.TempDir(), tt.env)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfigInvalid)

			var zErr *zerr.Error
			require.True(t, errors.As(err, &zErr))
			assert.Contains(t, zErr.Metadata(), tt.wantKey)
		})
	}
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	dir := t.TempDir()
	_, err := config.NewLoader().Load(dir, []string{config.EnvConfig + "=missing.yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrConfigReadFailed.Error())
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "runner: [unterminated")

	_, err := config.NewLoader().Load(dir, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrConfigParseFailed.Error())
}

func TestLoad_CacheSpecsKeepCommas(t *testing.T) {
	cfg, err := config.NewLoader().Load(t.TempDir(), []string{
		config.EnvCacheTo + "=type=registry,ref=ghcr.io/o/cache,mode=max;type=gha",
		config.EnvCacheFrom + "=type=registry,ref=ghcr.io/o/cache ghcr.io/o/other",
		config.EnvAddApt + "=libssl-dev,pkg-config",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"type=registry,ref=ghcr.io/o/cache,mode=max", "type=gha"}, cfg.CacheTo)
	assert.Equal(t, []string{"type=registry,ref=ghcr.io/o/cache", "ghcr.io/o/other"}, cfg.CacheFrom)
	assert.Equal(t, []string{"libssl-dev", "pkg-config"}, cfg.AddPackages)
}

func TestLoad_ConfigAnchoredOnTargetDir(t *testing.T) {
	workspace := t.TempDir()
	writeConfig(t, workspace, "network: default\n")
	outDir := filepath.Join(workspace, "target", "debug", "deps")
	require.NoError(t, os.MkdirAll(outDir, 0o750))
	registryCrate := t.TempDir()

	t.Run("dependency compiled from its package directory", func(t *testing.T) {
		cfg, err := config.NewLoader().Load(registryCrate, nil, outDir)
		require.NoError(t, err)
		assert.Equal(t, domain.NetworkDefault, cfg.Network)
	})

	t.Run("member below the workspace root", func(t *testing.T) {
		member := filepath.Join(workspace, "crates", "demo")
		require.NoError(t, os.MkdirAll(member, 0o750))
		cfg, err := config.NewLoader().Load(member, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.NetworkDefault, cfg.Network)
	})

	t.Run("anchor wins over cwd", func(t *testing.T) {
		writeConfig(t, registryCrate, "network: host\n")
		cfg, err := config.NewLoader().Load(registryCrate, nil, outDir)
		require.NoError(t, err)
		assert.Equal(t, domain.NetworkDefault, cfg.Network)
	})
}

func TestOutDir(t *testing.T) {
	assert.Equal(t, "/work/target/debug/deps", config.OutDir("/work", []string{"rustc", "--crate-name", "x", "--out-dir", "target/debug/deps"}))
	assert.Equal(t, "/t/deps", config.OutDir("/work", []string{"/bin/rustc", "--out-dir=/t/deps"}))
	assert.Empty(t, config.OutDir("/work", []string{"builder", "ensure"}))
}

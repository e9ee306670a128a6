// Package config provides the configuration loader for greenroom.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader from an optional YAML file and the environment.
type Loader struct{}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load resolves the configuration. Precedence, low to high: defaults, the config file,
// environment variables. An explicitly named config file must exist. Otherwise the nearest
// greenroom.yaml above the first anchor that has one is used, then the one above cwd.
// The anchor is the compiler's output directory, shared by every crate of one build.
func (l *Loader) Load(cwd string, env []string, anchors ...string) (*domain.Config, error) {
	vars := envMap(env)
	cfg := domain.DefaultConfig()

	path, explicit := vars[EnvConfig]
	switch {
	case !explicit:
		path = findConfig(append(slices.Clone(anchors), cwd)...)
	case !filepath.IsAbs(path):
		path = filepath.Join(cwd, path)
	}

	var file *Greenroomfile
	var err error
	if path != "" {
		file, err = readFile(path, explicit)
	}
	if err != nil {
		return nil, err
	}
	if file != nil {
		if err := applyFile(cfg, file); err != nil {
			return nil, zerr.With(err, "config_file", path)
		}
	}

	if err := applyEnv(cfg, vars); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfig returns the first greenroom.yaml found walking up from each directory in turn.
func findConfig(dirs ...string) string {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		for dir = filepath.Clean(dir); ; dir = filepath.Dir(dir) {
			path := filepath.Join(dir, domain.ConfigFileName)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
			if filepath.Dir(dir) == dir {
				break
			}
		}
	}
	return ""
}

// OutDir returns the output directory a compiler command line names, made absolute
// against cwd, or "" when it names none.
func OutDir(cwd string, args []string) string {
	for i, arg := range args {
		var dir string
		switch {
		case arg == "--out-dir" && i+1 < len(args):
			dir = args[i+1]
		case strings.HasPrefix(arg, "--out-dir="):
			dir = strings.TrimPrefix(arg, "--out-dir=")
		default:
			continue
		}
		if dir == "" {
			return ""
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(cwd, dir)
		}
		return filepath.Clean(dir)
	}
	return ""
}

func readFile(path string, required bool) (*Greenroomfile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}

	var file Greenroomfile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", path)
	}
	return &file, nil
}

func applyFile(cfg *domain.Config, f *Greenroomfile) error {
	if f.Runner != "" {
		cfg.Runner = domain.Runner(f.Runner)
	}
	if f.Builder != nil {
		name := *f.Builder
		cfg.BuilderName = &name
	}
	if f.BuilderImage != "" {
		cfg.BuilderImage = f.BuilderImage
	}
	if f.BaseImage != "" {
		cfg.BaseImage = f.BaseImage
	}
	if f.Network != "" {
		cfg.Network = domain.Network(f.Network)
	}
	if f.Fallback != "" {
		cfg.Fallback = domain.FallbackPolicy(f.Fallback)
	}
	if f.FinalPath != "" {
		cfg.FinalPath = f.FinalPath
	}
	if f.LogPath != nil {
		cfg.LogPath = *f.LogPath
	}
	if f.StateDir != "" {
		cfg.StateDir = f.StateDir
	}
	cfg.AddPackages = append(cfg.AddPackages, f.AddApt...)
	cfg.CacheFrom = append(cfg.CacheFrom, f.CacheFrom...)
	cfg.CacheTo = append(cfg.CacheTo, f.CacheTo...)
	cfg.ForwardEnv = append(cfg.ForwardEnv, f.SetEnvs...)
	for _, e := range f.Experiments {
		cfg.Experiments = append(cfg.Experiments, domain.Experiment(e))
	}
	if f.LogLevel != "" {
		level, ok := domain.ParseLogLevel(f.LogLevel)
		if !ok {
			return zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "unknown log level"), "log_level", f.LogLevel)
		}
		cfg.LogLevel = level
	}
	return nil
}

func applyEnv(cfg *domain.Config, vars map[string]string) error {
	if v, ok := vars[EnvRunner]; ok && v != "" {
		cfg.Runner = domain.Runner(v)
	}
	// Set-but-empty is meaningful for the builder name.
	if v, ok := vars[EnvBuilder]; ok {
		cfg.BuilderName = &v
	}
	if v := vars[EnvBuilderImage]; v != "" {
		cfg.BuilderImage = v
	}
	if v := vars[EnvBaseImage]; v != "" {
		cfg.BaseImage = v
	}
	if v := vars[EnvNetwork]; v != "" {
		cfg.Network = domain.Network(v)
	}
	if v := vars[EnvFallback]; v != "" {
		cfg.Fallback = domain.FallbackPolicy(v)
	}
	if v, ok := vars[EnvFinalPath]; ok {
		cfg.FinalPath = v
	}
	if v, ok := vars[EnvLogPath]; ok {
		cfg.LogPath = v
	}
	if v := vars[EnvStateDir]; v != "" {
		cfg.StateDir = v
	}
	if v, ok := vars[EnvAddApt]; ok {
		cfg.AddPackages = splitList(v)
	}
	if v, ok := vars[EnvCacheFrom]; ok {
		cfg.CacheFrom = splitSpecs(v)
	}
	if v, ok := vars[EnvCacheTo]; ok {
		cfg.CacheTo = splitSpecs(v)
	}
	if v, ok := vars[EnvSetEnvs]; ok {
		cfg.ForwardEnv = splitList(v)
	}
	if v, ok := vars[EnvExperiment]; ok {
		cfg.Experiments = nil
		for _, e := range splitList(v) {
			cfg.Experiments = append(cfg.Experiments, domain.Experiment(e))
		}
	}
	if v, ok := vars[EnvLog]; ok {
		level, valid := domain.ParseLogLevel(v)
		if !valid {
			return zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "unknown log level"), "log_level", v)
		}
		cfg.LogLevel = level
	}
	return nil
}

// splitList splits on commas and whitespace, dropping empty items.
func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// splitSpecs splits cache endpoints on semicolons and whitespace. Commas belong to the
// endpoint itself, as in "type=registry,ref=ghcr.io/o/cache,mode=max".
func splitSpecs(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || unicode.IsSpace(r)
	})
}

func envMap(env []string) map[string]string {
	vars := make(map[string]string, len(env))
	for _, entry := range env {
		k, v, ok := strings.Cut(entry, "=")
		if ok {
			vars[k] = v
		}
	}
	return vars
}

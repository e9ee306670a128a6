package domain

import (
	"slices"

	"go.trai.ch/zerr"
)

// Runner selects the container client used to reach BuildKit.
type Runner string

const (
	// RunnerDocker drives BuildKit through `docker buildx`.
	RunnerDocker Runner = "docker"
	// RunnerPodman drives BuildKit through `podman build`.
	RunnerPodman Runner = "podman"
	// RunnerNone disables sandboxing and runs every invocation directly.
	RunnerNone Runner = "none"
)

// Network is the network mode of compile steps.
type Network string

const (
	NetworkNone    Network = "none"
	NetworkDefault Network = "default"
	NetworkHost    Network = "host"
)

// FallbackPolicy decides what happens when the sandbox infrastructure is unavailable.
type FallbackPolicy string

const (
	// FallbackDirect runs the original invocation directly on the host.
	FallbackDirect FallbackPolicy = "direct"
	// FallbackNever fails the invocation.
	FallbackNever FallbackPolicy = "never"
)

// Experiment names an opt-in behavior.
type Experiment string

const (
	// ExperimentIncremental extracts the incremental compilation directory.
	ExperimentIncremental Experiment = "incremental"
	// ExperimentPinDigest pins the base image to its registry digest.
	ExperimentPinDigest Experiment = "pin-digest"
	// ExperimentCacheCheck drops unreachable cache imports before building.
	ExperimentCacheCheck Experiment = "cache-check"
)

const (
	// DefaultBuilderImage is the BuildKit image of the managed builder.
	DefaultBuilderImage = "docker.io/moby/buildkit:buildx-stable-1"
	// DefaultBaseImage is the toolchain image compile steps start from.
	DefaultBaseImage = "docker.io/library/rust:1-slim"
	// DefaultBuilderName is the name of the managed builder.
	DefaultBuilderName = AppName
)

// Config is the resolved, immutable configuration of one wrapper process.
type Config struct {
	Runner       Runner
	BuilderName  *string
	BuilderImage string
	BaseImage    string
	AddPackages  []string
	Network      Network
	CacheFrom    []string
	CacheTo      []string
	ForwardEnv   []string
	Experiments  []Experiment
	Fallback     FallbackPolicy
	FinalPath    string
	LogPath      string
	LogLevel     LogLevel
	StateDir     string
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Runner:       RunnerDocker,
		BuilderImage: DefaultBuilderImage,
		BaseImage:    DefaultBaseImage,
		Network:      NetworkNone,
		Fallback:     FallbackDirect,
		LogPath:      DefaultLogPath(),
		LogLevel:     LogLevelInfo,
		StateDir:     DefaultStateDir(),
	}
}

// Has reports whether an experiment is enabled.
func (c *Config) Has(e Experiment) bool {
	return slices.Contains(c.Experiments, e)
}

// BuilderPolicy resolves the three-way builder name setting.
// Unset manages the default builder, empty uses the client's current builder,
// and any other value is used as-is without being managed.
func (c *Config) BuilderPolicy() (name string, managed bool) {
	if c.BuilderName == nil {
		return DefaultBuilderName, true
	}
	return *c.BuilderName, false
}

// Validate checks the closed-set fields.
func (c *Config) Validate() error {
	switch c.Runner {
	case RunnerDocker, RunnerPodman, RunnerNone:
	default:
		return zerr.With(zerr.Wrap(ErrConfigInvalid, "unknown runner"), "runner", string(c.Runner))
	}
	switch c.Network {
	case NetworkNone, NetworkDefault, NetworkHost:
	default:
		return zerr.With(zerr.Wrap(ErrConfigInvalid, "unknown network mode"), "network", string(c.Network))
	}
	switch c.Fallback {
	case FallbackDirect, FallbackNever:
	default:
		return zerr.With(zerr.Wrap(ErrConfigInvalid, "unknown fallback policy"), "fallback", string(c.Fallback))
	}
	for _, e := range c.Experiments {
		switch e {
		case ExperimentIncremental, ExperimentPinDigest, ExperimentCacheCheck:
		default:
			return zerr.With(zerr.Wrap(ErrConfigInvalid, "unknown experiment"), "experiment", string(e))
		}
	}
	if c.BaseImage == "" {
		return zerr.Wrap(ErrConfigInvalid, "base image is empty")
	}
	return nil
}

package domain

import (
	"maps"
	"slices"
)

// StageKind classifies a stage of the build description.
type StageKind string

const (
	StageToolchainOverride       StageKind = "toolchain-override"
	StageSourceMount             StageKind = "source-mount"
	StageDependencyArtifactMount StageKind = "dependency-artifact-mount"
	StageCompileStep             StageKind = "compile-step"
	StageIncrementalOutput       StageKind = "incremental-output"
	StageStdioCapture            StageKind = "stdio-capture"
	StageFinalOutput             StageKind = "final-output"
)

// Scratch is the empty base every non-executing stage starts from.
const Scratch = "scratch"

// Mount moves content from another stage or context into a stage.
// In a stage with a script it becomes a bind mount of the RUN step; otherwise it is a COPY.
type Mount struct {
	From     string   `json:"from"`
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Excludes []string `json:"excludes,omitempty"`
	// Writable mounts accept writes that are discarded when the step ends.
	Writable bool `json:"writable,omitempty"`
}

// Stage is one named stage of the build description.
type Stage struct {
	Name    string    `json:"name"`
	Kind    StageKind `json:"kind"`
	From    string    `json:"from"`
	Workdir string    `json:"workdir,omitempty"`
	Env     []EnvVar  `json:"env,omitempty"`
	Network Network   `json:"network,omitempty"`
	Mounts  []Mount   `json:"mounts,omitempty"`
	Script  string    `json:"script,omitempty"`
}

// References returns every stage or context name the stage reads from.
func (s *Stage) References() []string {
	refs := make([]string, 0, len(s.Mounts)+1)
	if s.From != Scratch {
		refs = append(refs, s.From)
	}
	for _, m := range s.Mounts {
		refs = append(refs, m.From)
	}
	return refs
}

// Equal reports whether two stages have identical content.
func (s *Stage) Equal(o *Stage) bool {
	return s.Name == o.Name &&
		s.Kind == o.Kind &&
		s.From == o.From &&
		s.Workdir == o.Workdir &&
		s.Network == o.Network &&
		s.Script == o.Script &&
		slices.Equal(s.Env, o.Env) &&
		slices.EqualFunc(s.Mounts, o.Mounts, func(a, b Mount) bool {
			return a.From == b.From && a.Source == b.Source && a.Target == b.Target &&
				a.Writable == b.Writable && slices.Equal(a.Excludes, b.Excludes)
		})
}

// ContextKind distinguishes host directories from image references.
type ContextKind string

const (
	ContextHost  ContextKind = "host"
	ContextImage ContextKind = "image"
)

// Context is a named external input of the build.
type Context struct {
	Kind  ContextKind `json:"kind"`
	Value string      `json:"value"`
}

// Spec returns the value passed to the backend for this context.
func (c Context) Spec() string {
	if c.Kind == ContextImage {
		return "docker-image://" + c.Value
	}
	return c.Value
}

// SortedContextNames returns context names in lexicographic order.
func SortedContextNames(contexts map[string]Context) []string {
	return slices.Sorted(maps.Keys(contexts))
}

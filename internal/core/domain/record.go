package domain

import (
	"path/filepath"
	"strings"
)

// ArtifactForm is the file form a dependent needs from a dependency.
type ArtifactForm string

const (
	// ArtifactRlib is the full linkable library.
	ArtifactRlib ArtifactForm = "rlib"
	// ArtifactRmeta is the metadata-only library.
	ArtifactRmeta ArtifactForm = "rmeta"
	// ArtifactDylib is the runtime-loadable library produced by proc-macro crates.
	ArtifactDylib ArtifactForm = "so"
)

// FileName returns the artifact file name for a unit stem.
func (f ArtifactForm) FileName(stem string) string {
	return stem + "." + string(f)
}

// ArtifactFormOf returns the form named by an artifact path's extension.
func ArtifactFormOf(path string) (ArtifactForm, bool) {
	switch f := ArtifactForm(strings.TrimPrefix(filepath.Ext(path), ".")); f {
	case ArtifactRlib, ArtifactRmeta, ArtifactDylib:
		return f, true
	}
	return "", false
}

// Stronger returns the library form that satisfies both f and other.
// An rlib also carries the metadata; an unset form needs only the metadata.
func (f ArtifactForm) Stronger(other ArtifactForm) ArtifactForm {
	if f == ArtifactRlib || other == ArtifactRlib {
		return ArtifactRlib
	}
	return ArtifactRmeta
}

// DepEntry is one member of a unit's flattened transitive dependency set.
type DepEntry struct {
	ShortName string `json:"short_name"`
	ProcMacro bool   `json:"proc_macro,omitempty"`
}

// DependencyRecord is the persisted sidecar describing a compiled unit.
// Records are immutable once written.
type DependencyRecord struct {
	Unit        string     `json:"unit"`
	Identity    string     `json:"identity"`
	Kind        UnitKind   `json:"kind"`
	InputDigest string     `json:"input_digest"`
	Deps        []DepEntry `json:"deps"`
	// Direct marks a unit compiled on the host. It has no stage sidecar.
	Direct bool `json:"direct,omitempty"`
}

// StageSet is the persisted sidecar holding the stages a unit contributes to the build graph,
// together with the external contexts they reference.
type StageSet struct {
	Unit     string             `json:"unit"`
	Identity string             `json:"identity"`
	Stages   []Stage            `json:"stages"`
	Contexts map[string]Context `json:"contexts,omitempty"`
}

// Identity is the content-addressed name of a unit.
type Identity struct {
	// Suffix is the short hexadecimal name used in stage and file names.
	Suffix string
	// Digest is the full digest of the same inputs, used to detect suffix collisions.
	Digest string
}

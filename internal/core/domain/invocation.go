package domain

import (
	"path/filepath"
	"slices"
)

// UnitKind classifies what a compile invocation produces.
type UnitKind string

const (
	UnitKindLib         UnitKind = "lib"
	UnitKindBin         UnitKind = "bin"
	UnitKindTest        UnitKind = "test"
	UnitKindBuildScript UnitKind = "build-script"
	UnitKindProcMacro   UnitKind = "proc-macro"
)

// SysrootExtern is the implicit runtime-support library passed without a path.
const SysrootExtern = "proc_macro"

// Extern is one `--extern` dependency of an invocation.
type Extern struct {
	Name      string
	Path      string
	Modifiers []string
}

// Sysroot reports whether the extern is resolved by the compiler itself.
func (e Extern) Sysroot() bool {
	return e.Path == "" && e.Name == SysrootExtern
}

// SearchPath is one `-L [kind=]path` entry.
type SearchPath struct {
	Kind string
	Path string
}

// EnvVar is an environment variable that affects the compiler output.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Invocation is the parsed form of one compiler call. It is immutable once parsed.
type Invocation struct {
	// Args is the original argv, compiler path first.
	Args []string
	// Flags is the argument list without the compiler path.
	Flags []string

	CrateName     string
	Kind          UnitKind
	CrateTypes    []string
	Edition       string
	Input         string
	OutDir        string
	Incremental   string
	ExtraFilename string
	Metadata      string
	Emit          []string
	Externs       []Extern
	SearchPaths   []SearchPath
	Env           []EnvVar
	Dir           string
	SourceRoot    string
	// RootLevel is set for workspace members, whose source root is the whole working tree.
	RootLevel bool
	// BuildOutDir is the build script output directory (OUT_DIR), when set.
	BuildOutDir string
}

// UnitStem is the file stem shared by the unit's artifacts, sidecars and pointer.
func (inv *Invocation) UnitStem() string {
	switch inv.Kind {
	case UnitKindLib, UnitKindProcMacro:
		return "lib" + inv.CrateName + inv.ExtraFilename
	default:
		return inv.CrateName + inv.ExtraFilename
	}
}

// Emits reports whether the given emit kind was requested.
// An invocation without --emit produces a linked artifact.
func (inv *Invocation) Emits(kind string) bool {
	if len(inv.Emit) == 0 {
		return kind == "link"
	}
	return slices.Contains(inv.Emit, kind)
}

// Links reports whether the invocation needs full dependency artifacts rather than metadata.
func (inv *Invocation) Links() bool {
	switch inv.Kind {
	case UnitKindBin, UnitKindTest, UnitKindBuildScript, UnitKindProcMacro:
		return inv.Emits("link")
	default:
		return false
	}
}

// DependencyDirs returns the directories searched for dependency records:
// the `-L dependency=` and `-L all=` entries followed by extern directories.
func (inv *Invocation) DependencyDirs() []string {
	var dirs []string
	for _, sp := range inv.SearchPaths {
		if sp.Kind == "dependency" || sp.Kind == "all" || sp.Kind == "" {
			dirs = appendUnique(dirs, sp.Path)
		}
	}
	for _, ext := range inv.Externs {
		if ext.Sysroot() {
			continue
		}
		dirs = appendUnique(dirs, filepath.Dir(ext.Path))
	}
	return dirs
}

func appendUnique(xs []string, x string) []string {
	if slices.Contains(xs, x) {
		return xs
	}
	return append(xs, x)
}

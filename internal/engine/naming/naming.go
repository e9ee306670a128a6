// Package naming derives the content-addressed identities of compile units and their stages.
package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/greenroom/internal/core/domain"
)

// Stage name prefixes.
const (
	PrefixToolchain   = "toolchain"
	PrefixBase        = "base"
	PrefixSource      = "src"
	PrefixDependency  = "dep"
	PrefixBuild       = "build"
	PrefixIncremental = "incr"
	PrefixStdio       = "stdio"
	PrefixOut         = "out"
	PrefixExport      = "export"
)

// Context name prefixes. They never clash with stage prefixes.
const (
	ContextSource   = "ctx-src"
	ContextBuildOut = "ctx-buildout"
	ContextBase     = "ctx-base"
	ContextNative   = "ctx-native"
)

// pathEnv are output-affecting variables whose values are host paths.
// Only their presence is part of the identity, so moving the checkout keeps names stable.
var pathEnv = []string{
	"CARGO",
	"CARGO_MANIFEST_DIR",
	"CARGO_MANIFEST_PATH",
	"CARGO_RUSTC_CURRENT_DIR",
	"CARGO_TARGET_TMPDIR",
	"OUT_DIR",
	"RUSTC",
	"RUSTDOC",
}

// Toolchain describes the image compile steps run in.
type Toolchain struct {
	BaseImage string
	Packages  []string
	// Marker is the content of the toolchain override file, if any.
	Marker []byte
}

// Fingerprint identifies the toolchain. Units with equal fingerprints share toolchain stages.
// Package order does not matter.
func (t Toolchain) Fingerprint() string {
	var e encoder
	e.field(t.BaseImage)
	e.list(slices.Sorted(slices.Values(t.Packages)))
	e.field(string(t.Marker))
	return e.suffix()
}

// Sources are the content hashes of a unit's host inputs.
type Sources struct {
	// Tree is the hash of the source root.
	Tree string
	// BuildOut is the hash of the build script output directory, if any.
	BuildOut string
	// Native are the hashes of the native search directories, in argument order.
	Native []string
}

// Identity computes the identity of a unit from its invocation, the identities of its
// direct dependencies keyed by extern name, its toolchain and its source hashes.
// The result depends only on those inputs, never on where outputs are written.
func Identity(inv *domain.Invocation, deps map[string]string, tc Toolchain, src Sources) domain.Identity {
	var e encoder

	e.section("unit")
	e.field(inv.CrateName)
	e.field(string(inv.Kind))
	e.field(inv.Edition)

	e.section("toolchain")
	e.field(tc.Fingerprint())

	e.section("flags")
	e.list(CanonicalFlags(inv))

	e.section("deps")
	e.list(directDeps(inv, deps))

	e.section("env")
	for _, v := range inv.Env {
		if slices.Contains(pathEnv, v.Name) {
			e.field(v.Name)
			continue
		}
		e.field(v.Name + "=" + v.Value)
	}

	e.section("sources")
	e.field(src.Tree)
	e.field(src.BuildOut)
	e.list(src.Native)

	return domain.Identity{Suffix: e.suffix(), Digest: e.digest()}
}

// DirectIdentity names a unit compiled on the host. Only the command line is known,
// so the name changes whenever the arguments do.
func DirectIdentity(args []string) domain.Identity {
	var e encoder
	e.section("direct")
	e.list(args)
	return domain.Identity{Suffix: e.suffix(), Digest: e.digest()}
}

// StageName joins a prefix and an identity suffix.
func StageName(prefix, identity string) string {
	return prefix + "-" + identity
}

// DependencyStageName names the stage exposing one artifact form of a dependency.
func DependencyStageName(identity string, form domain.ArtifactForm) string {
	return StageName(PrefixDependency, identity) + "-" + string(form)
}

// CanonicalFlags returns the compiler flags with every host-location-specific part removed:
// the output directory, search paths, extern paths, the incremental directory and color
// settings. The input becomes relative to the source root.
func CanonicalFlags(inv *domain.Invocation) []string {
	out := make([]string, 0, len(inv.Flags))
	args := inv.Flags
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, attached := cutFlag(arg)
		takesNext := !attached && i+1 < len(args)

		switch name {
		case "--out-dir", "-L", "--color":
			if takesNext {
				i++
			}
			continue
		case "--extern":
			if takesNext {
				i++
				value = args[i]
			}
			spec, _, _ := strings.Cut(value, "=")
			out = append(out, "--extern", spec)
			continue
		case "-C", "--codegen":
			if takesNext {
				i++
				value = args[i]
			}
			if strings.HasPrefix(value, "incremental=") {
				continue
			}
			out = append(out, "-C", value)
			continue
		}

		if arg == inv.Input {
			out = append(out, relativeInput(inv))
			continue
		}
		out = append(out, arg)
	}
	return out
}

func cutFlag(arg string) (name, value string, attached bool) {
	if strings.HasPrefix(arg, "--") {
		return strings.Cut(arg, "=")
	}
	if len(arg) > 2 && (arg[1] == 'C' || arg[1] == 'L') {
		return arg[:2], arg[2:], true
	}
	return arg, "", false
}

func relativeInput(inv *domain.Invocation) string {
	input := inv.Input
	if !filepath.IsAbs(input) {
		input = filepath.Join(inv.Dir, input)
	}
	if rel, err := filepath.Rel(inv.SourceRoot, input); err == nil {
		return filepath.ToSlash(rel)
	}
	return inv.Input
}

func directDeps(inv *domain.Invocation, deps map[string]string) []string {
	out := make([]string, 0, len(inv.Externs))
	for _, ext := range inv.Externs {
		identity := ""
		if !ext.Sysroot() {
			identity = deps[ext.Name]
		}
		out = append(out, ext.Name+"="+identity)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// encoder builds the NUL-separated canonical stream both digests are computed over.
type encoder struct {
	buf strings.Builder
}

func (e *encoder) section(name string) {
	e.buf.WriteString("\x1e")
	e.buf.WriteString(name)
	e.buf.WriteByte(0)
}

func (e *encoder) field(s string) {
	e.buf.WriteString(s)
	e.buf.WriteByte(0)
}

func (e *encoder) list(xs []string) {
	e.field(fmt.Sprint(len(xs)))
	for _, x := range xs {
		e.field(x)
	}
}

func (e *encoder) suffix() string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(e.buf.String()))
}

func (e *encoder) digest() string {
	sum := sha256.Sum256([]byte(e.buf.String()))
	return hex.EncodeToString(sum[:])
}

package invocation_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/engine/invocation"
	"go.trai.ch/zerr"
)

const cwd = "/work"

// libArgs is a typical dependency library compile as issued by cargo.
func libArgs() []string {
	return []string{
		"/usr/local/bin/rustc",
		"--crate-name", "serde",
		"--edition=2021",
		"/home/u/.cargo/registry/src/serde-1.0.0/src/lib.rs",
		"--error-format=json",
		"--json=diagnostic-rendered-ansi,artifacts,future-incompat",
		"--crate-type", "lib",
		"--emit=dep-info,metadata,link",
		"-C", "embed-bitcode=no",
		"-C", "debuginfo=2",
		"--cfg", `feature="derive"`,
		"-C", "metadata=5f0e2f2b7c1e2d3a",
		"-C", "extra-filename=-5f0e2f2b7c1e2d3a",
		"--out-dir", "/work/target/debug/deps",
		"-L", "dependency=/work/target/debug/deps",
		"--extern", "serde_derive=/work/target/debug/deps/libserde_derive-aa11.so",
		"--cap-lints", "allow",
	}
}

func libEnv() []string {
	return []string{
		"PATH=/usr/bin",
		"HOME=/home/u",
		"CARGO_PKG_NAME=serde",
		"CARGO_MANIFEST_DIR=/home/u/.cargo/registry/src/serde-1.0.0",
		"CARGO_MAKEFLAGS=-j4",
		"CARGO_TERM_COLOR=always",
		"CARGO=/usr/local/bin/cargo",
		"TARGET=x86_64-unknown-linux-gnu",
		"RUSTFLAGS_UNUSED=1",
	}
}

func TestParse_Library(t *testing.T) {
	inv, err := invocation.Parse(libArgs(), libEnv(), cwd)
	require.NoError(t, err)

	assert.Equal(t, "serde", inv.CrateName)
	assert.Equal(t, domain.UnitKindLib, inv.Kind)
	assert.Equal(t, "2021", inv.Edition)
	assert.Equal(t, "/home/u/.cargo/registry/src/serde-1.0.0/src/lib.rs", inv.Input)
	assert.Equal(t, "/work/target/debug/deps", inv.OutDir)
	assert.Equal(t, "-5f0e2f2b7c1e2d3a", inv.ExtraFilename)
	assert.Equal(t, "5f0e2f2b7c1e2d3a", inv.Metadata)
	assert.Equal(t, []string{"dep-info", "metadata", "link"}, inv.Emit)
	assert.Equal(t, "libserde-5f0e2f2b7c1e2d3a", inv.UnitStem())
	assert.Equal(t, "/home/u/.cargo/registry/src/serde-1.0.0", inv.SourceRoot)
	assert.False(t, inv.RootLevel)
	assert.Equal(t, libArgs(), inv.Args)
	assert.Equal(t, libArgs()[1:], inv.Flags)
	assert.False(t, inv.Links(), "a library only needs metadata of its dependencies")

	if diff := cmp.Diff([]domain.Extern{
		{Name: "serde_derive", Path: "/work/target/debug/deps/libserde_derive-aa11.so"},
	}, inv.Externs); diff != "" {
		t.Errorf("externs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]domain.EnvVar{
		{Name: "CARGO", Value: "/usr/local/bin/cargo"},
		{Name: "CARGO_MANIFEST_DIR", Value: "/home/u/.cargo/registry/src/serde-1.0.0"},
		{Name: "CARGO_PKG_NAME", Value: "serde"},
		{Name: "TARGET", Value: "x86_64-unknown-linux-gnu"},
	}, inv.Env); diff != "" {
		t.Errorf("env mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"/work/target/debug/deps"}, inv.DependencyDirs())
}

func TestParse_UnitKinds(t *testing.T) {
	base := func(extra ...string) []string {
		return append([]string{"rustc", "--crate-name", "demo", "src/main.rs", "--out-dir", "target/debug/deps"}, extra...)
	}

	tests := []struct {
		name  string
		argv  []string
		kind  domain.UnitKind
		links bool
	}{
		{name: "binary", argv: base("--crate-type", "bin"), kind: domain.UnitKindBin, links: true},
		{name: "test harness", argv: base("--test"), kind: domain.UnitKindTest, links: true},
		{name: "proc macro", argv: base("--crate-type=proc-macro"), kind: domain.UnitKindProcMacro, links: true},
		{name: "rlib", argv: base("--crate-type", "rlib"), kind: domain.UnitKindLib},
		{name: "check of a binary", argv: base("--crate-type", "bin", "--emit=dep-info,metadata"), kind: domain.UnitKindBin},
		{
			name:  "build script",
			argv:  []string{"rustc", "--crate-name", "build_script_build", "build.rs", "--crate-type", "bin", "--out-dir", "target/debug/build/demo-1/"},
			kind:  domain.UnitKindBuildScript,
			links: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := invocation.Parse(tt.argv, nil, cwd)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, inv.Kind)
			assert.Equal(t, tt.links, inv.Links())
		})
	}
}

func TestParse_FlagSpellings(t *testing.T) {
	inv, err := invocation.Parse([]string{
		"rustc",
		"--crate-name=demo",
		"--out-dir=target/debug/deps",
		"-Cextra-filename=-77",
		"--codegen", "incremental=target/debug/incremental",
		"-Ldependency=target/debug/deps",
		"-L", "native=/usr/lib/ssl",
		"-Awarnings", "-W", "unused", "--deny=missing-docs", "--forbid", "unsafe-code",
		"-g", "-O",
		"--extern", "noprelude,priv:core=/sysroot/libcore.rlib",
		"--extern", "proc_macro",
		"src/lib.rs",
	}, nil, cwd)
	require.NoError(t, err)

	assert.Equal(t, "/work/target/debug/deps", inv.OutDir)
	assert.Equal(t, "-77", inv.ExtraFilename)
	assert.Equal(t, "/work/target/debug/incremental", inv.Incremental)
	assert.Equal(t, []domain.SearchPath{
		{Kind: "dependency", Path: "/work/target/debug/deps"},
		{Kind: "native", Path: "/usr/lib/ssl"},
	}, inv.SearchPaths)
	require.Len(t, inv.Externs, 2)
	assert.Equal(t, []string{"noprelude", "priv"}, inv.Externs[0].Modifiers)
	assert.Equal(t, "core", inv.Externs[0].Name)
	assert.True(t, inv.Externs[1].Sysroot(), "the runtime-support library has no path")
	assert.Equal(t, domain.SysrootExtern, inv.Externs[1].Name)
	assert.Equal(t, []string{"/work/target/debug/deps", "/sysroot"}, inv.DependencyDirs())
}

func TestParse_SourceRoot(t *testing.T) {
	argv := []string{"rustc", "--crate-name", "demo", "crates/demo/src/lib.rs", "--out-dir", "target/debug/deps"}

	t.Run("workspace member uses the working tree", func(t *testing.T) {
		inv, err := invocation.Parse(argv, []string{"CARGO_PRIMARY_PACKAGE=1", "CARGO_MANIFEST_DIR=/work/crates/demo"}, cwd)
		require.NoError(t, err)
		assert.True(t, inv.RootLevel)
		assert.Equal(t, cwd, inv.SourceRoot)
	})

	t.Run("dependency uses its manifest directory", func(t *testing.T) {
		inv, err := invocation.Parse(argv, []string{"CARGO_MANIFEST_DIR=/work/crates/demo"}, cwd)
		require.NoError(t, err)
		assert.False(t, inv.RootLevel)
		assert.Equal(t, "/work/crates/demo", inv.SourceRoot)
	})

	t.Run("falls back to the input directory", func(t *testing.T) {
		inv, err := invocation.Parse(argv, nil, cwd)
		require.NoError(t, err)
		assert.Equal(t, "/work/crates/demo/src", inv.SourceRoot)
	})
}

func TestParse_Environment(t *testing.T) {
	argv := []string{"rustc", "--crate-name", "demo", "src/lib.rs", "--out-dir", "out"}
	env := []string{
		"OUT_DIR=/work/target/debug/build/demo-1/out",
		"PROFILE=debug",
		"OPT_LEVEL=0",
		"DEBUG=true",
		"HOST=x86_64-unknown-linux-gnu",
		"RUSTC_BOOTSTRAP=1",
		"OPENSSL_DIR=/opt/ssl",
		"EDITOR=vim",
		"PROFILE=release",
	}

	inv, err := invocation.Parse(argv, env, cwd, "OPENSSL_DIR")
	require.NoError(t, err)

	names := make([]string, 0, len(inv.Env))
	for _, e := range inv.Env {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"DEBUG", "HOST", "OPENSSL_DIR", "OPT_LEVEL", "OUT_DIR", "PROFILE", "RUSTC_BOOTSTRAP"}, names)
	assert.Contains(t, inv.Env, domain.EnvVar{Name: "PROFILE", Value: "release"}, "later entries win")
	assert.Equal(t, "/work/target/debug/build/demo-1/out", inv.BuildOutDir)
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		argv  []string
		token string
	}{
		{name: "unknown flag", argv: []string{"rustc", "--crate-name", "x", "a.rs", "--out-dir", "o", "-Zunstable-options"}, token: "-Zunstable-options"},
		{name: "unknown long flag", argv: []string{"rustc", "--crate-name", "x", "a.rs", "--out-dir", "o", "--remap-path-prefix", "a=b"}, token: "--remap-path-prefix"},
		{name: "no input", argv: []string{"rustc", "--crate-name", "x", "--out-dir", "o"}},
		{name: "two inputs", argv: []string{"rustc", "--crate-name", "x", "a.rs", "b.rs", "--out-dir", "o"}, token: "b.rs"},
		{name: "non-source input", argv: []string{"rustc", "--crate-name", "x", "a.c", "--out-dir", "o"}, token: "a.c"},
		{name: "no out dir", argv: []string{"rustc", "--crate-name", "x", "a.rs"}, token: "a.rs"},
		{name: "two out dirs", argv: []string{"rustc", "--crate-name", "x", "a.rs", "--out-dir", "o", "--out-dir=p"}, token: "p"},
		{name: "no crate name", argv: []string{"rustc", "a.rs", "--out-dir", "o"}, token: "a.rs"},
		{name: "cdylib", argv: []string{"rustc", "--crate-name", "x", "a.rs", "--out-dir", "o", "--crate-type", "cdylib"}, token: "cdylib"},
		{name: "emit with path", argv: []string{"rustc", "--crate-name", "x", "a.rs", "--out-dir", "o", "--emit=link=/tmp/x"}, token: "link=/tmp/x"},
		{name: "bad extern modifier", argv: []string{"rustc", "--crate-name", "x", "a.rs", "--out-dir", "o", "--extern", "weird:foo=/x"}, token: "weird:foo=/x"},
		{name: "bad search kind", argv: []string{"rustc", "--crate-name", "x", "a.rs", "--out-dir", "o", "-L", "bogus=/x"}, token: "bogus=/x"},
		{name: "missing value", argv: []string{"rustc", "--crate-name", "x", "a.rs", "--out-dir"}, token: "--out-dir"},
		{name: "bool with value", argv: []string{"rustc", "--crate-name", "x", "a.rs", "--out-dir", "o", "--test=yes"}, token: "--test=yes"},
		{name: "extern without path", argv: []string{"rustc", "--crate-name", "x", "a.rs", "--out-dir", "o", "--extern", "foo"}, token: "foo"},
		{name: "host linker", argv: []string{"rustc", "--crate-name", "x", "a.rs", "--out-dir", "o", "-C", "linker=/usr/bin/clang"}, token: "linker=/usr/bin/clang"},
		{name: "link arg", argv: []string{"rustc", "--crate-name", "x", "a.rs", "--out-dir", "o", "-Clink-arg=-fuse-ld=mold"}, token: "link-arg=-fuse-ld=mold"},
		{name: "link args", argv: []string{"rustc", "--crate-name", "x", "a.rs", "--out-dir", "o", "--codegen=link-args=-lfoo"}, token: "link-args=-lfoo"},
		{name: "profile use", argv: []string{"rustc", "--crate-name", "x", "a.rs", "--out-dir", "o", "-C", "profile-use=/tmp/merged.profdata"}, token: "profile-use=/tmp/merged.profdata"},
		{name: "self contained linking", argv: []string{"rustc", "--crate-name", "x", "a.rs", "--out-dir", "o", "-C", "link-self-contained=yes"}, token: "link-self-contained=yes"},
		{name: "unknown codegen option", argv: []string{"rustc", "--crate-name", "x", "a.rs", "--out-dir", "o", "-C", "llvm-args=-foo"}, token: "llvm-args=-foo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := invocation.Parse(tt.argv, nil, cwd)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrUnrecognizedInvocation)
			assert.NotErrorIs(t, err, domain.ErrQueryInvocation)

			if tt.token != "" {
				var zErr *zerr.Error
				require.ErrorAs(t, err, &zErr)
				assert.Equal(t, tt.token, zErr.Metadata()["token"])
			}
		})
	}
}

func TestParse_Queries(t *testing.T) {
	tests := [][]string{
		{"rustc", "-vV"},
		{"rustc", "--version"},
		{"rustc"},
		{"rustc", "-", "--crate-name", "___", "--print=file-names", "--crate-type", "bin"},
		{"rustc", "--print", "sysroot"},
	}
	for _, argv := range tests {
		_, err := invocation.Parse(argv, nil, cwd)
		assert.ErrorIs(t, err, domain.ErrQueryInvocation, "argv %v", argv)
	}
}

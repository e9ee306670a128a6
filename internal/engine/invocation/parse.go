// Package invocation turns one compiler command line into a domain.Invocation.
//
// The parser is deliberately strict: any flag or shape it does not fully understand
// is rejected, and the caller runs the compiler directly instead of sandboxing a
// half-understood command.
package invocation

import (
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/zerr"
)

type flagKind int

const (
	// boolFlag takes no value.
	boolFlag flagKind = iota
	// valueFlag takes a value as `--flag value` or `--flag=value`.
	valueFlag
	// shortValueFlag takes a value as `-X value` or `-Xvalue`.
	shortValueFlag
)

var flags = map[string]flagKind{
	"--crate-name":       valueFlag,
	"--edition":          valueFlag,
	"--crate-type":       valueFlag,
	"--emit":             valueFlag,
	"--out-dir":          valueFlag,
	"--target":           valueFlag,
	"--cfg":              valueFlag,
	"--check-cfg":        valueFlag,
	"--cap-lints":        valueFlag,
	"--error-format":     valueFlag,
	"--json":             valueFlag,
	"--diagnostic-width": valueFlag,
	"--color":            valueFlag,
	"--codegen":          valueFlag,
	"--extern":           valueFlag,
	"--allow":            valueFlag,
	"--warn":             valueFlag,
	"--deny":             valueFlag,
	"--forbid":           valueFlag,
	"--test":             boolFlag,
	"-g":                 boolFlag,
	"-O":                 boolFlag,
	"-C":                 shortValueFlag,
	"-L":                 shortValueFlag,
	"-A":                 shortValueFlag,
	"-W":                 shortValueFlag,
	"-D":                 shortValueFlag,
	"-F":                 shortValueFlag,
}

var (
	crateTypes     = []string{"lib", "rlib", "bin", "proc-macro"}
	emitKinds      = []string{"asm", "llvm-bc", "llvm-ir", "obj", "metadata", "link", "dep-info", "mir"}
	externMods     = []string{"noprelude", "priv", "nounused", "force"}
	searchKinds    = []string{"dependency", "crate", "native", "framework", "all"}
	queryFlags     = []string{"-V", "-vV", "--version", "--print", "-"}
	outputEnvNames = []string{"OUT_DIR", "TARGET", "HOST", "RUSTC_BOOTSTRAP", "PROFILE", "OPT_LEVEL", "DEBUG"}

	// codegenKeys are the -C options whose effect does not depend on host tools or host
	// files outside the mounted inputs. Linker and profile options are not among them.
	codegenKeys = []string{
		"code-model",
		"codegen-units",
		"debug-assertions",
		"debuginfo",
		"embed-bitcode",
		"extra-filename",
		"force-frame-pointers",
		"force-unwind-tables",
		"incremental",
		"instrument-coverage",
		"link-dead-code",
		"linker-plugin-lto",
		"lto",
		"metadata",
		"no-redzone",
		"opt-level",
		"overflow-checks",
		"panic",
		"prefer-dynamic",
		"relocation-model",
		"rpath",
		"split-debuginfo",
		"strip",
		"symbol-mangling-version",
		"target-cpu",
		"target-feature",
	}
)

// Parse builds an Invocation from argv (compiler path first), the process environment
// and the working directory. Names in forward are added to the output-affecting environment.
//
// It fails with domain.ErrQueryInvocation for version and print queries and with
// domain.ErrUnrecognizedInvocation for anything else it cannot model exactly.
func Parse(argv, env []string, cwd string, forward ...string) (*domain.Invocation, error) {
	if len(argv) < 2 {
		return nil, zerr.Wrap(domain.ErrQueryInvocation, "no compiler arguments")
	}
	if query := queryToken(argv[1:]); query != "" {
		return nil, zerr.With(zerr.Wrap(domain.ErrQueryInvocation, "query flag"), "token", query)
	}

	inv := &domain.Invocation{
		Args:  slices.Clone(argv),
		Flags: slices.Clone(argv[1:]),
		Dir:   cwd,
	}

	var (
		test     bool
		outDirs  int
		inputs   int
		rest     = argv[1:]
		envTable = envMap(env)
	)
	for len(rest) > 0 {
		arg := rest[0]
		rest = rest[1:]

		if !strings.HasPrefix(arg, "-") {
			if !strings.HasSuffix(arg, ".rs") {
				return nil, unrecognized("input is not a source file", arg)
			}
			inputs++
			if inputs > 1 {
				return nil, unrecognized("more than one input", arg)
			}
			inv.Input = arg
			continue
		}

		name, value, consumed, err := splitFlag(arg, rest)
		if err != nil {
			return nil, err
		}
		rest = rest[consumed:]

		switch name {
		case "--test":
			test = true
		case "--crate-name":
			inv.CrateName = value
		case "--edition":
			inv.Edition = value
		case "--crate-type":
			for t := range strings.SplitSeq(value, ",") {
				if !slices.Contains(crateTypes, t) {
					return nil, unrecognized("unsupported crate type", t)
				}
				inv.CrateTypes = append(inv.CrateTypes, t)
			}
		case "--emit":
			for kind := range strings.SplitSeq(value, ",") {
				if !slices.Contains(emitKinds, kind) {
					return nil, unrecognized("unsupported emit kind", kind)
				}
				inv.Emit = append(inv.Emit, kind)
			}
		case "--out-dir":
			outDirs++
			if outDirs > 1 {
				return nil, unrecognized("more than one output directory", value)
			}
			inv.OutDir = absolute(cwd, value)
		case "-C", "--codegen":
			if err := parseCodegen(inv, cwd, value); err != nil {
				return nil, err
			}
		case "-L":
			sp, err := parseSearchPath(cwd, value)
			if err != nil {
				return nil, err
			}
			inv.SearchPaths = append(inv.SearchPaths, sp)
		case "--extern":
			ext, err := parseExtern(cwd, value)
			if err != nil {
				return nil, err
			}
			inv.Externs = append(inv.Externs, ext)
		}
		// Lints, cfgs, target and diagnostics options only need to be replayed.
	}

	if inputs == 0 {
		return nil, unrecognized("no input file", strings.Join(argv[1:], " "))
	}
	if outDirs == 0 {
		return nil, unrecognized("no output directory", inv.Input)
	}
	if inv.CrateName == "" {
		return nil, unrecognized("no crate name", inv.Input)
	}

	inv.Kind = unitKind(inv.CrateName, inv.CrateTypes, test)
	inv.Env = outputEnv(envTable, forward)
	inv.BuildOutDir = envTable["OUT_DIR"]
	setSourceRoot(inv, envTable, cwd)
	return inv, nil
}

func unrecognized(msg, token string) error {
	return zerr.With(zerr.Wrap(domain.ErrUnrecognizedInvocation, msg), "token", token)
}

func queryToken(args []string) string {
	for _, arg := range args {
		name, _, _ := strings.Cut(arg, "=")
		if slices.Contains(queryFlags, name) {
			return arg
		}
	}
	return ""
}

// splitFlag separates a flag from its value and reports how many following
// arguments it consumed.
func splitFlag(arg string, rest []string) (name, value string, consumed int, err error) {
	var hasValue bool
	if strings.HasPrefix(arg, "--") {
		name, value, hasValue = strings.Cut(arg, "=")
	} else {
		name = arg
		if len(arg) > 2 {
			name, value, hasValue = arg[:2], arg[2:], true
		}
	}

	kind, known := flags[name]
	if !known {
		return "", "", 0, unrecognized("unknown flag", arg)
	}

	switch kind {
	case boolFlag:
		if hasValue {
			return "", "", 0, unrecognized("flag takes no value", arg)
		}
		return name, "", 0, nil
	default:
		if hasValue {
			if value == "" {
				return "", "", 0, unrecognized("empty flag value", arg)
			}
			return name, value, 0, nil
		}
		if len(rest) == 0 || rest[0] == "" {
			return "", "", 0, unrecognized("missing flag value", arg)
		}
		return name, rest[0], 1, nil
	}
}

func parseCodegen(inv *domain.Invocation, cwd, value string) error {
	key, val, _ := strings.Cut(value, "=")
	if !slices.Contains(codegenKeys, key) {
		return unrecognized("unsupported codegen option", value)
	}
	switch key {
	case "extra-filename":
		inv.ExtraFilename = val
	case "metadata":
		inv.Metadata = val
	case "incremental":
		if val == "" {
			return unrecognized("incremental without directory", value)
		}
		inv.Incremental = absolute(cwd, val)
	}
	return nil
}

func parseSearchPath(cwd, value string) (domain.SearchPath, error) {
	kind, path, ok := strings.Cut(value, "=")
	if !ok {
		return domain.SearchPath{Path: absolute(cwd, value)}, nil
	}
	if !slices.Contains(searchKinds, kind) {
		return domain.SearchPath{}, unrecognized("unknown search path kind", value)
	}
	return domain.SearchPath{Kind: kind, Path: absolute(cwd, path)}, nil
}

// parseExtern reads `[modifiers:]name[=path]`.
func parseExtern(cwd, value string) (domain.Extern, error) {
	spec, path, hasPath := strings.Cut(value, "=")
	var ext domain.Extern
	if mods, name, ok := strings.Cut(spec, ":"); ok {
		for mod := range strings.SplitSeq(mods, ",") {
			if !slices.Contains(externMods, mod) {
				return domain.Extern{}, unrecognized("unknown extern modifier", value)
			}
			ext.Modifiers = append(ext.Modifiers, mod)
		}
		spec = name
	}
	if spec == "" {
		return domain.Extern{}, unrecognized("extern without name", value)
	}
	ext.Name = spec
	if hasPath {
		if path == "" {
			return domain.Extern{}, unrecognized("extern with empty path", value)
		}
		ext.Path = absolute(cwd, path)
	}
	if !hasPath && ext.Name != domain.SysrootExtern {
		return domain.Extern{}, unrecognized("extern without path", value)
	}
	return ext, nil
}

func unitKind(crateName string, crateTypes []string, test bool) domain.UnitKind {
	switch {
	case test:
		return domain.UnitKindTest
	case strings.HasPrefix(crateName, "build_script_"):
		return domain.UnitKindBuildScript
	case slices.Contains(crateTypes, "proc-macro"):
		return domain.UnitKindProcMacro
	case slices.Contains(crateTypes, "bin"):
		return domain.UnitKindBin
	default:
		return domain.UnitKindLib
	}
}

// affectsOutput reports whether an environment variable can change the compiler's output.
func affectsOutput(name string, forward []string) bool {
	switch {
	case name == "CARGO_MAKEFLAGS", strings.HasPrefix(name, "CARGO_TERM_"):
		return false
	case strings.HasPrefix(name, "CARGO_"):
		return true
	}
	return slices.Contains(outputEnvNames, name) || slices.Contains(forward, name)
}

func outputEnv(env map[string]string, forward []string) []domain.EnvVar {
	var out []domain.EnvVar
	for name, value := range env {
		if affectsOutput(name, forward) {
			out = append(out, domain.EnvVar{Name: name, Value: value})
		}
	}
	slices.SortFunc(out, func(a, b domain.EnvVar) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

func setSourceRoot(inv *domain.Invocation, env map[string]string, cwd string) {
	if _, ok := env["CARGO_PRIMARY_PACKAGE"]; ok {
		inv.RootLevel = true
		inv.SourceRoot = cwd
		return
	}
	if dir := env["CARGO_MANIFEST_DIR"]; dir != "" {
		inv.SourceRoot = absolute(cwd, dir)
		return
	}
	inv.SourceRoot = filepath.Dir(absolute(cwd, inv.Input))
}

// envMap indexes KEY=VALUE pairs; later entries win.
func envMap(env []string) map[string]string {
	m := make(map[string]string, len(env))
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			m[k] = v
		}
	}
	return m
}

func absolute(cwd, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(cwd, path)
}

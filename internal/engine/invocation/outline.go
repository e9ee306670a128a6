package invocation

import (
	"slices"
	"strings"

	"go.trai.ch/greenroom/internal/core/domain"
)

// Outline reads the parts of a compiler call that name its outputs and dependencies,
// skipping everything else. It serves calls Parse rejects: they still run, and their
// dependents need to find out where. It reports false when the call names no crate or
// no output directory.
func Outline(argv []string, cwd string) (*domain.Invocation, bool) {
	if len(argv) < 2 {
		return nil, false
	}
	inv := &domain.Invocation{
		Args:  slices.Clone(argv),
		Flags: slices.Clone(argv[1:]),
		Dir:   cwd,
	}

	var test bool
	args := argv[1:]
	for i := 0; i < len(args); i++ {
		name, value, attached := cutOption(args[i])
		if !attached {
			if _, known := flags[name]; known && flags[name] != boolFlag && i+1 < len(args) {
				i++
				value = args[i]
			}
		}

		switch name {
		case "--test":
			test = true
		case "--crate-name":
			inv.CrateName = value
		case "--crate-type":
			inv.CrateTypes = append(inv.CrateTypes, strings.Split(value, ",")...)
		case "--out-dir":
			inv.OutDir = absolute(cwd, value)
		case "-C", "--codegen":
			if v, ok := strings.CutPrefix(value, "extra-filename="); ok {
				inv.ExtraFilename = v
			}
		case "-L":
			if sp, err := parseSearchPath(cwd, value); err == nil {
				inv.SearchPaths = append(inv.SearchPaths, sp)
			}
		case "--extern":
			spec, path, ok := strings.Cut(value, "=")
			if !ok || path == "" {
				continue
			}
			if _, n, found := strings.Cut(spec, ":"); found {
				spec = n
			}
			inv.Externs = append(inv.Externs, domain.Extern{Name: spec, Path: absolute(cwd, path)})
		}
	}

	if inv.CrateName == "" || inv.OutDir == "" {
		return nil, false
	}
	inv.Kind = unitKind(inv.CrateName, inv.CrateTypes, test)
	return inv, true
}

// cutOption splits `--flag=value` and `-Xvalue` spellings.
func cutOption(arg string) (name, value string, attached bool) {
	if strings.HasPrefix(arg, "--") {
		return strings.Cut(arg, "=")
	}
	if strings.HasPrefix(arg, "-") && len(arg) > 2 {
		if kind, known := flags[arg[:2]]; known && kind == shortValueFlag {
			return arg[:2], arg[2:], true
		}
	}
	return arg, "", false
}

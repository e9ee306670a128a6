// Package shell provides the host process executor adapter.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Executor = (*Executor)(nil)

// Executor implements ports.Executor using os/exec.
type Executor struct {
	logger ports.Logger
}

// NewExecutor creates a new Executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{
		logger: logger,
	}
}

// Execute runs the command and returns its exit code.
// The command environment is layered over the process environment: cmd.Env entries win.
func (e *Executor) Execute(ctx context.Context, c *domain.Command, stdout, stderr io.Writer) (int, error) {
	if c.Path == "" {
		return -1, zerr.New("empty command")
	}

	cmdEnv := resolveEnvironment(os.Environ(), c.Env)

	// Resolve the executable path using the new environment's PATH
	executable := c.Path
	if !strings.ContainsRune(c.Path, filepath.Separator) {
		if lp, err := lookPath(c.Path, cmdEnv); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, c.Args...) //nolint:gosec // argv comes from the build coordinator

	// Restore the original command name in Args[0]
	if len(cmd.Args) > 0 {
		cmd.Args[0] = c.Path
	}

	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	cmd.Env = cmdEnv
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}

	e.logger.Debug("executing command", "path", c.Path, "args", c.Args, "dir", c.Dir)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.Exited() {
			return exitErr.ExitCode(), nil
		}
		// Killed by a signal, cancelled, or never started.
		return -1, zerr.With(zerr.With(zerr.Wrap(err, "command failed"), "exit_code", -1), "path", c.Path)
	}

	return 0, nil
}

// resolveEnvironment layers overrides on top of the base environment.
// The result is sorted so that child processes see a stable environment.
func resolveEnvironment(base, overrides []string) []string {
	envMap := make(map[string]string, len(base)+len(overrides))
	for _, entries := range [][]string{base, overrides} {
		for _, entry := range entries {
			k, v, ok := strings.Cut(entry, "=")
			if ok {
				envMap[k] = v
			}
		}
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// lookPath searches for an executable in the directories named by the PATH environment variable.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := filepath.Join(dir, file)
		if err := findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}

package domain

import (
	"os"
	"path/filepath"
)

const (
	// AppName is used for the state directory, the default builder and the log file.
	AppName = "greenroom"

	// ConfigFileName is the name of the optional project configuration file.
	ConfigFileName = "greenroom.yaml"

	// LogFileName is the name of the auxiliary log file.
	LogFileName = "greenroom.log"

	// PointerSuffix is appended to a unit stem to name its current-identity pointer.
	PointerSuffix = ".identity"

	// RecordSuffix is appended to "<stem>-<identity>" to name a dependency record.
	RecordSuffix = ".deps.json"

	// StagesSuffix is appended to "<stem>-<identity>" to name a stage sidecar.
	StagesSuffix = ".stages.json"

	// ExtractPrefix prefixes the temporary extraction directory created inside an output directory.
	ExtractPrefix = ".greenroom-"

	// SandboxDir is the directory inside the compile stage holding captured streams and outputs.
	SandboxDir = "/.greenroom"

	// EmptyContextDirName is the state subdirectory used as the (unused) main build context.
	EmptyContextDirName = "empty-context"

	// DockerfileSyntax is the frontend required for COPY --exclude.
	DockerfileSyntax = "docker.io/docker/dockerfile:1.7-labs"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// Export directory names inside the extraction directory.
const (
	ExportOutDir         = "out"
	ExportStdioDir       = "stdio"
	ExportIncrementalDir = "incremental"
)

// Files written by the compile step into the stdio capture directory.
const (
	StdoutFile = "stdout"
	StderrFile = "stderr"
	StatusFile = "status"
)

// DefaultStateDir returns $XDG_STATE_HOME/greenroom, falling back to ~/.local/state/greenroom
// and finally to the temp directory.
func DefaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", AppName)
	}
	return filepath.Join(os.TempDir(), AppName)
}

// DefaultLogPath returns the default path for the auxiliary log.
func DefaultLogPath() string {
	return filepath.Join(os.TempDir(), LogFileName)
}

// PointerFile returns the path of the current-identity pointer for a unit.
func PointerFile(dir, unit string) string {
	return filepath.Join(dir, unit+PointerSuffix)
}

// RecordFile returns the path of the dependency record for a unit identity.
func RecordFile(dir, unit, identity string) string {
	return filepath.Join(dir, unit+"-"+identity+RecordSuffix)
}

// StagesFile returns the path of the stage sidecar for a unit identity.
func StagesFile(dir, unit, identity string) string {
	return filepath.Join(dir, unit+"-"+identity+StagesSuffix)
}

package domain

import "strings"

// VertexStatus represents the final state of a backend build vertex.
type VertexStatus string

const (
	// VertexStatusRunning indicates the vertex started but did not report completion.
	VertexStatusRunning VertexStatus = "running"
	// VertexStatusCompleted indicates the vertex executed successfully.
	VertexStatusCompleted VertexStatus = "completed"
	// VertexStatusFailed indicates the vertex execution failed.
	VertexStatusFailed VertexStatus = "failed"
	// VertexStatusCached indicates the vertex work was skipped because a valid cache was found.
	VertexStatusCached VertexStatus = "cached"
)

// UnitEvent is the per-invocation outcome written to the structured log.
type UnitEvent string

const (
	// UnitEventCompiling means the compile step actually ran.
	UnitEventCompiling UnitEvent = "compiling"
	// UnitEventFresh means the compile step was served from cache.
	UnitEventFresh UnitEvent = "fresh"
	// UnitEventDirect means the invocation ran on the host.
	UnitEventDirect UnitEvent = "direct"
)

// LogLevel represents the severity of a log message, mirroring the standard slog levels.
type LogLevel int

const (
	// LogLevelDebug represents debug-level verbosity.
	LogLevelDebug LogLevel = -4
	// LogLevelInfo represents informational verbosity.
	LogLevelInfo LogLevel = 0
	// LogLevelWarn represents warning verbosity.
	LogLevelWarn LogLevel = 4
	// LogLevelError represents error verbosity.
	LogLevelError LogLevel = 8
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ParseLogLevel converts a level name to a LogLevel. Unknown names report false.
func ParseLogLevel(s string) (LogLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LogLevelDebug, true
	case "", "info":
		return LogLevelInfo, true
	case "warn", "warning":
		return LogLevelWarn, true
	case "error":
		return LogLevelError, true
	default:
		return LogLevelInfo, false
	}
}

// IsTerminal checks if a status is a terminal state.
func (s VertexStatus) IsTerminal() bool {
	switch s {
	case VertexStatusCompleted, VertexStatusFailed, VertexStatusCached:
		return true
	default:
		return false
	}
}

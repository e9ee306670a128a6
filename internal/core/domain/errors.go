package domain

import "go.trai.ch/zerr"

var (
	// ErrUnrecognizedInvocation is returned when the compiler arguments contain a flag or shape
	// the invocation model does not understand. The invocation is run directly instead.
	ErrUnrecognizedInvocation = zerr.New("unrecognized compiler invocation")

	// ErrQueryInvocation is returned for version and print queries that produce no artifacts.
	ErrQueryInvocation = zerr.New("compiler query invocation")

	// ErrNamingCollision is returned when two different inputs produce the same identity suffix.
	ErrNamingCollision = zerr.New("content-addressed naming collision")

	// ErrDependencyRecordMissing is returned when a direct dependency has no persisted record.
	ErrDependencyRecordMissing = zerr.New("dependency record missing")

	// ErrDependencyUnsandboxed is returned when a dependency was compiled on the host, so its
	// artifacts cannot be mounted into a build. Its dependents are compiled on the host too.
	ErrDependencyUnsandboxed = zerr.New("dependency compiled outside the sandbox")

	// ErrBuilderUnavailable is returned when the managed builder cannot be created or recreated.
	ErrBuilderUnavailable = zerr.New("builder unavailable")

	// ErrInvalidBuilderTransition is returned when a builder state change is not permitted.
	ErrInvalidBuilderTransition = zerr.New("invalid builder state transition")

	// ErrBackendExecution is returned when the build backend fails for infrastructure reasons.
	ErrBackendExecution = zerr.New("build backend execution failed")

	// ErrCacheTransfer is returned when exporting to a remote cache fails.
	ErrCacheTransfer = zerr.New("cache transfer failed")

	// ErrStageNotFound is returned when a stage references a stage or context missing from the graph.
	ErrStageNotFound = zerr.New("stage not found")

	// ErrCycleDetected is returned when a cycle is detected between stages.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrConfigInvalid is returned when a configuration value is not accepted.
	ErrConfigInvalid = zerr.New("invalid configuration")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrStoreReadFailed is returned when a record cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read record")

	// ErrStoreWriteFailed is returned when a record cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write record")

	// ErrStoreMarshalFailed is returned when a record cannot be marshaled.
	ErrStoreMarshalFailed = zerr.New("failed to marshal record")

	// ErrStoreUnmarshalFailed is returned when a record cannot be unmarshaled.
	ErrStoreUnmarshalFailed = zerr.New("failed to unmarshal record")

	// ErrRecordNotFound is returned by the record store when nothing is stored under a key.
	ErrRecordNotFound = zerr.New("record not found")

	// ErrSourceHashFailed is returned when the source tree cannot be hashed.
	ErrSourceHashFailed = zerr.New("failed to hash source tree")

	// ErrExtractionFailed is returned when build outputs cannot be moved into place.
	ErrExtractionFailed = zerr.New("failed to extract build outputs")

	// ErrImageResolveFailed is returned when an image reference cannot be resolved to a digest.
	ErrImageResolveFailed = zerr.New("failed to resolve image reference")

	// ErrLockFailed is returned when the builder lock cannot be acquired.
	ErrLockFailed = zerr.New("failed to acquire builder lock")
)

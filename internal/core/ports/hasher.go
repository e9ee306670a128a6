package ports

// SourceTree inspects the host source tree of a unit.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type SourceTree interface {
	// Hash computes a content hash of every file under root, skipping ignored directories.
	Hash(root string) (string, error)

	// ToolchainMarker searches from start up to stop, inclusive, for a toolchain override file.
	// It returns the path and contents of the nearest one, or an empty path when none exists.
	ToolchainMarker(start, stop string) (string, []byte, error)
}

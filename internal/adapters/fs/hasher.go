package fs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.SourceTree = (*Hasher)(nil)

// ToolchainMarkers are the toolchain override file names, in lookup order.
var ToolchainMarkers = []string{"rust-toolchain.toml", "rust-toolchain"}

// Hasher implements ports.SourceTree.
type Hasher struct {
	walker *Walker
}

// NewHasher creates a new Hasher.
func NewHasher(walker *Walker) *Hasher {
	return &Hasher{walker: walker}
}

// ComputeFileHash computes the XXHash of a file's content.
func (h *Hasher) ComputeFileHash(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}

	return hasher.Sum64(), nil
}

// Hash computes a single hash over the relative paths and contents of every file under root.
// The hash does not depend on where root is located.
func (h *Hasher) Hash(root string) (string, error) {
	if _, err := os.Stat(root); err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrSourceHashFailed, err.Error()), "path", root)
	}

	hasher := xxhash.New()
	for path, err := range h.walker.WalkFiles(root) {
		if err != nil {
			return "", zerr.With(zerr.Wrap(domain.ErrSourceHashFailed, err.Error()), "path", root)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return "", zerr.With(zerr.Wrap(domain.ErrSourceHashFailed, err.Error()), "path", path)
		}
		if err := h.hashEntry(path, filepath.ToSlash(rel), hasher); err != nil {
			return "", zerr.With(zerr.Wrap(domain.ErrSourceHashFailed, err.Error()), "path", path)
		}
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

func (h *Hasher) hashEntry(path, rel string, hasher *xxhash.Digest) error {
	_, _ = hasher.WriteString(rel)
	_, _ = hasher.Write([]byte{0})

	info, err := os.Lstat(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to stat path"), "path", path)
	}

	// Symlinks contribute their target, not what they point at.
	if info.Mode()&iofs.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to read link"), "path", path)
		}
		_, _ = hasher.Write([]byte{'l'})
		_, _ = hasher.WriteString(target)
		_, _ = hasher.Write([]byte{0})
		return nil
	}

	if !info.Mode().IsRegular() {
		return nil
	}

	// The executable bit changes build script behavior, so it is part of the content.
	mode := byte('f')
	if info.Mode()&0o111 != 0 {
		mode = 'x'
	}
	_, _ = hasher.Write([]byte{mode})

	sum, err := h.ComputeFileHash(path)
	if err != nil {
		return err
	}
	if err := binary.Write(hasher, binary.LittleEndian, sum); err != nil {
		return zerr.Wrap(err, "failed to write hash to digest")
	}
	return nil
}

// ToolchainMarker returns the nearest toolchain override file at or above start, looking no
// higher than stop. When stop is not an ancestor of start, only start is searched.
func (h *Hasher) ToolchainMarker(start, stop string) (string, []byte, error) {
	dir, stop := filepath.Clean(start), filepath.Clean(stop)
	for {
		for _, name := range ToolchainMarkers {
			path := filepath.Join(dir, name)
			data, err := os.ReadFile(path) //nolint:gosec // fixed file names under a caller-provided directory
			if err == nil {
				return path, data, nil
			}
			if !errors.Is(err, iofs.ErrNotExist) && !errors.Is(err, iofs.ErrPermission) {
				return "", nil, zerr.With(zerr.Wrap(err, "failed to read toolchain marker"), "path", path)
			}
		}

		parent := filepath.Dir(dir)
		if dir == stop || parent == dir || !within(parent, stop) {
			return "", nil, nil
		}
		dir = parent
	}
}

// within reports whether dir is root or below it.
func within(dir, root string) bool {
	rel, err := filepath.Rel(root, dir)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

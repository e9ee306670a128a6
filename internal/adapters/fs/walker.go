// Package fs provides file system adapters for walking and hashing source trees.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
	"slices"
)

// DefaultIgnores are directory names never considered part of a source tree.
var DefaultIgnores = []string{"target", ".git", ".jj"}

// Walker provides file walking functionality.
type Walker struct {
	ignores []string
}

// NewWalker creates a new Walker skipping the given directory names in addition
// to version control metadata.
func NewWalker(ignores ...string) *Walker {
	return &Walker{ignores: ignores}
}

// WalkFiles yields every non-directory entry under root in lexical order.
// Paths are yielded as produced by filepath.WalkDir, i.e. prefixed with root.
// An entry that cannot be read ends the walk with a final non-nil error.
func (w *Walker) WalkFiles(root string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() {
				if path != root && w.skipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}

			if !yield(path, nil) {
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil {
			yield("", err)
		}
	}
}

func (w *Walker) skipDir(name string) bool {
	// Always skip version control metadata
	if name == ".git" || name == ".jj" {
		return true
	}
	if slices.Contains(w.ignores, name) {
		return true
	}
	for _, ignore := range w.ignores {
		if matched, _ := filepath.Match(ignore, name); matched {
			return true
		}
	}
	return false
}

package pipeline

import (
	"errors"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/zerr"
)

// outputs is the exported filesystem of a finished build.
type outputs struct {
	root   string
	status int
	// files are the names of the compiler outputs, sorted.
	files []string
}

func readOutputs(root string) (*outputs, error) {
	raw, err := os.ReadFile(filepath.Join(root, domain.ExportStdioDir, domain.StatusFile))
	if err != nil {
		return nil, extractionError(err, root)
	}
	status, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, zerr.With(extractionError(err, root), "status", strings.TrimSpace(string(raw)))
	}

	entries, err := os.ReadDir(filepath.Join(root, domain.ExportOutDir))
	if err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return nil, extractionError(err, root)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	return &outputs{root: root, status: status, files: files}, nil
}

// extract moves every output file into the out-dir and every incremental entry into the
// incremental directory. Both live on the same filesystem as the extraction root.
func (o *outputs) extract(inv *domain.Invocation) error {
	for _, name := range o.files {
		from := filepath.Join(o.root, domain.ExportOutDir, name)
		if err := os.Rename(from, filepath.Join(inv.OutDir, name)); err != nil {
			return extractionError(err, from)
		}
	}

	if inv.Incremental == "" {
		return nil
	}
	src := filepath.Join(o.root, domain.ExportIncrementalDir)
	entries, err := os.ReadDir(src)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return extractionError(err, src)
	}
	if err := os.MkdirAll(inv.Incremental, domain.DirPerm); err != nil {
		return extractionError(err, inv.Incremental)
	}
	for _, e := range entries {
		to := filepath.Join(inv.Incremental, e.Name())
		if err := os.RemoveAll(to); err != nil {
			return extractionError(err, to)
		}
		if err := os.Rename(filepath.Join(src, e.Name()), to); err != nil {
			return extractionError(err, to)
		}
	}
	return nil
}

// replay writes the captured compiler streams byte for byte.
func (o *outputs) replay(stdout, stderr io.Writer) error {
	for _, s := range []struct {
		name string
		w    io.Writer
	}{
		{domain.StdoutFile, stdout},
		{domain.StderrFile, stderr},
	} {
		path := filepath.Join(o.root, domain.ExportStdioDir, s.name)
		data, err := os.ReadFile(path)
		if errors.Is(err, iofs.ErrNotExist) {
			continue
		}
		if err != nil {
			return extractionError(err, path)
		}
		if _, err := s.w.Write(data); err != nil {
			return zerr.Wrap(err, "failed to replay compiler output")
		}
	}
	return nil
}

func extractionError(err error, path string) error {
	return zerr.With(zerr.Wrap(domain.ErrExtractionFailed, err.Error()), "path", path)
}

// artifactRank orders output kinds by how well they name a unit.
func artifactRank(name string) int {
	switch filepath.Ext(name) {
	case ".rlib":
		return 0
	case ".so", ".dylib", ".dll":
		return 1
	case ".rmeta":
		return 2
	case "", ".exe":
		return 3
	default:
		return 4
	}
}

// PrimaryArtifact picks the output that names a unit: the best-ranked kind, then the
// lexicographically first name. It returns "" when there are no outputs.
func PrimaryArtifact(files []string) string {
	if len(files) == 0 {
		return ""
	}
	return slices.MinFunc(files, func(a, b string) int {
		if ra, rb := artifactRank(a), artifactRank(b); ra != rb {
			return ra - rb
		}
		return strings.Compare(a, b)
	})
}

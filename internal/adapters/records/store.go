// Package records stores the per-unit sidecars next to the compiler outputs:
// the current-identity pointer, the dependency record and the stage set.
package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.RecordStore = (*Store)(nil)

// Store implements ports.RecordStore on the local file system.
// It keeps no state, so concurrent processes may share the same directories.
type Store struct{}

// NewStore creates a new Store.
func NewStore() *Store {
	return &Store{}
}

// Current returns the identity named by the unit's pointer file.
func (s *Store) Current(dir, unit string) (string, error) {
	path := domain.PointerFile(dir, unit)
	data, err := os.ReadFile(path) //nolint:gosec // Path is derived from compiler search paths
	if err != nil {
		return "", readError(err, path)
	}
	identity := strings.TrimSpace(string(data))
	if identity == "" {
		return "", zerr.With(zerr.Wrap(domain.ErrRecordNotFound, "empty identity pointer"), "path", path)
	}
	return identity, nil
}

// Get loads a dependency record.
func (s *Store) Get(dir, unit, identity string) (*domain.DependencyRecord, error) {
	var rec domain.DependencyRecord
	if err := readJSON(domain.RecordFile(dir, unit, identity), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put stores a record unless one already exists for the same identity, then
// points the unit at it. An existing record with a different input digest
// means two different inputs produced the same identity.
func (s *Store) Put(dir string, rec *domain.DependencyRecord) error {
	path := domain.RecordFile(dir, rec.Unit, rec.Identity)
	created, err := createExclusive(path, rec)
	if err != nil {
		return err
	}

	if !created {
		existing, err := s.Get(dir, rec.Unit, rec.Identity)
		if err != nil {
			return err
		}
		if existing.InputDigest != rec.InputDigest {
			err := zerr.With(zerr.Wrap(domain.ErrNamingCollision, "record exists with different inputs"), "path", path)
			err = zerr.With(err, "existing_digest", existing.InputDigest)
			return zerr.With(err, "digest", rec.InputDigest)
		}
	}

	return replaceAtomic(domain.PointerFile(dir, rec.Unit), []byte(rec.Identity+"\n"))
}

// GetStages loads a stage sidecar.
func (s *Store) GetStages(dir, unit, identity string) (*domain.StageSet, error) {
	var set domain.StageSet
	if err := readJSON(domain.StagesFile(dir, unit, identity), &set); err != nil {
		return nil, err
	}
	return &set, nil
}

// PutStages stores a stage sidecar unless one already exists for the same identity.
func (s *Store) PutStages(dir string, set *domain.StageSet) error {
	_, err := createExclusive(domain.StagesFile(dir, set.Unit, set.Identity), set)
	return err
}

// PutDescription replaces the file at path with data.
func (s *Store) PutDescription(path string, data []byte) error {
	return replaceAtomic(path, data)
}

func readError(err error, path string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(domain.ErrRecordNotFound, err.Error()), "path", path)
	}
	return zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec // Path is derived from compiler search paths
	if err != nil {
		return readError(err, path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error()), "path", path)
	}
	return nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
	}
	return buf.Bytes(), nil
}

// writeTemp writes data to a fresh temp file next to path and returns its name.
func writeTemp(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", dir)
	}

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
	}
	tmpName := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpName)
		return "", zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		_ = os.Remove(tmpName)
		return "", zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
	}
	return tmpName, nil
}

// createExclusive publishes v at path only if nothing is there yet. The content is
// fully written before it becomes visible, so readers never observe a partial file.
// It reports whether this call created the file.
func createExclusive(path string, v any) (bool, error) {
	data, err := marshal(v)
	if err != nil {
		return false, err
	}

	tmpName, err := writeTemp(path, data)
	if err != nil {
		return false, err
	}
	defer os.Remove(tmpName) //nolint:errcheck // The link holds its own reference

	if err := os.Link(tmpName, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
	}
	return true, nil
}

// replaceAtomic swaps the file at path for data in one rename.
func replaceAtomic(path string, data []byte) error {
	tmpName, err := writeTemp(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
	}
	return nil
}

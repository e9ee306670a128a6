package ports

import "go.trai.ch/greenroom/internal/core/domain"

// RecordStore persists the sidecars that let dependents find a unit's
// dependency record and build stages.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type RecordStore interface {
	// Current returns the identity the pointer of unit in dir names.
	// It returns domain.ErrRecordNotFound when the pointer does not exist.
	Current(dir, unit string) (string, error)

	// Get loads the dependency record of unit at identity.
	// It returns domain.ErrRecordNotFound when the record does not exist.
	Get(dir, unit, identity string) (*domain.DependencyRecord, error)

	// Put stores a record with first-writer-wins semantics and points the unit at it.
	// A different record already stored under the same identity is a naming collision.
	Put(dir string, rec *domain.DependencyRecord) error

	// GetStages loads the stage sidecar of unit at identity.
	GetStages(dir, unit, identity string) (*domain.StageSet, error)

	// PutDescription replaces the file at path with data atomically.
	PutDescription(path string, data []byte) error

	// PutStages stores a stage sidecar with first-writer-wins semantics.
	PutStages(dir string, set *domain.StageSet) error
}

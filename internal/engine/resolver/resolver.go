// Package resolver flattens a unit's direct dependencies into its transitive closure
// using the dependency records persisted next to earlier compiler outputs.
package resolver

import (
	"cmp"
	"errors"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/core/ports"
	"go.trai.ch/zerr"
)

// Dependency is one member of the transitive closure.
type Dependency struct {
	ShortName string
	Identity  string
	Dir       string
	ProcMacro bool
	// Form is the strongest form the invocation's externs asked for, directly or
	// through the closure of a direct dependency.
	Form   domain.ArtifactForm
	Record *domain.DependencyRecord
	Stages    *domain.StageSet
}

// Resolution is the resolved dependency closure of one invocation.
type Resolution struct {
	// Direct maps each direct extern name to its dependency's identity.
	Direct map[string]string
	// Deps is the closure in topological order, dependencies first.
	Deps []Dependency
}

// Entries returns the closure as sorted record entries.
func (r *Resolution) Entries() []domain.DepEntry {
	entries := make([]domain.DepEntry, 0, len(r.Deps))
	for _, d := range r.Deps {
		entries = append(entries, domain.DepEntry{ShortName: d.ShortName, ProcMacro: d.ProcMacro})
	}
	return sortEntries(entries)
}

func sortEntries(entries []domain.DepEntry) []domain.DepEntry {
	slices.SortFunc(entries, func(a, b domain.DepEntry) int {
		return strings.Compare(a.ShortName, b.ShortName)
	})
	return entries
}

// ArtifactFor returns the file form a consumer needs of a dependency. A linking consumer
// needs rlibs; otherwise metadata is enough unless the extern named the rlib itself.
func ArtifactFor(consumer *domain.Invocation, dep *Dependency) domain.ArtifactForm {
	switch {
	case dep.ProcMacro:
		return domain.ArtifactDylib
	case consumer.Links():
		return domain.ArtifactRlib
	default:
		return domain.ArtifactRmeta.Stronger(dep.Form)
	}
}

// requestedForm is the library form an extern path names.
func requestedForm(path string) domain.ArtifactForm {
	if form, ok := domain.ArtifactFormOf(path); ok && form == domain.ArtifactRlib {
		return form
	}
	return domain.ArtifactRmeta
}

// Resolver reads and writes dependency records through a ports.RecordStore.
type Resolver struct {
	store ports.RecordStore
}

// New creates a new Resolver.
func New(store ports.RecordStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve loads the record of every direct dependency and flattens their closures.
// A dependency without a record means the build order is broken. A dependency compiled
// on the host fails with domain.ErrDependencyUnsandboxed.
func (r *Resolver) Resolve(inv *domain.Invocation) (*Resolution, error) {
	res := &Resolution{Direct: make(map[string]string)}
	closure := make(map[string]domain.DepEntry)
	forms := make(map[string]domain.ArtifactForm)

	for _, ext := range inv.Externs {
		if ext.Sysroot() {
			continue
		}
		dir := filepath.Dir(ext.Path)
		stem := UnitStem(ext.Path)

		identity, rec, err := r.load(dir, stem)
		if err != nil {
			return nil, zerr.With(err, "extern", ext.Name)
		}
		res.Direct[ext.Name] = identity

		form := requestedForm(ext.Path)
		closure[stem] = domain.DepEntry{ShortName: stem, ProcMacro: rec.Kind == domain.UnitKindProcMacro}
		forms[stem] = forms[stem].Stronger(form)
		for _, entry := range rec.Deps {
			closure[entry.ShortName] = entry
			forms[entry.ShortName] = forms[entry.ShortName].Stronger(form)
		}
	}

	dirs := inv.DependencyDirs()
	for _, name := range slices.Sorted(maps.Keys(closure)) {
		dep, err := r.locate(dirs, closure[name])
		if err != nil {
			return nil, err
		}
		dep.Form = forms[name]
		res.Deps = append(res.Deps, dep)
	}

	// A record lists its whole closure, so a dependency always has fewer entries than
	// anything depending on it; sorting by size yields a topological order.
	slices.SortStableFunc(res.Deps, func(a, b Dependency) int {
		if c := cmp.Compare(len(a.Record.Deps), len(b.Record.Deps)); c != 0 {
			return c
		}
		return strings.Compare(a.ShortName, b.ShortName)
	})
	return res, nil
}

// Record builds the record of the current unit.
func Record(inv *domain.Invocation, id domain.Identity, res *Resolution) *domain.DependencyRecord {
	return &domain.DependencyRecord{
		Unit:        inv.UnitStem(),
		Identity:    id.Suffix,
		Kind:        inv.Kind,
		InputDigest: id.Digest,
		Deps:        res.Entries(),
	}
}

// Persist stores the record of the current unit next to its outputs. The first writer
// of an identity wins; a different record under the same identity is a naming collision.
func (r *Resolver) Persist(inv *domain.Invocation, id domain.Identity, res *Resolution) (*domain.DependencyRecord, error) {
	rec := Record(inv, id, res)
	if err := r.store.Put(inv.OutDir, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// PersistDirect records a unit compiled on the host, so its dependents learn that they
// cannot be sandboxed either. Dependencies without a readable record are listed by name only.
func (r *Resolver) PersistDirect(inv *domain.Invocation, id domain.Identity) (*domain.DependencyRecord, error) {
	closure := make(map[string]domain.DepEntry)
	for _, ext := range inv.Externs {
		if ext.Path == "" {
			continue
		}
		stem := UnitStem(ext.Path)
		closure[stem] = domain.DepEntry{ShortName: stem}
		_, rec, err := r.fetch(filepath.Dir(ext.Path), stem)
		if err != nil {
			continue
		}
		closure[stem] = domain.DepEntry{ShortName: stem, ProcMacro: rec.Kind == domain.UnitKindProcMacro}
		for _, entry := range rec.Deps {
			closure[entry.ShortName] = entry
		}
	}

	rec := &domain.DependencyRecord{
		Unit:        inv.UnitStem(),
		Identity:    id.Suffix,
		Kind:        inv.Kind,
		InputDigest: id.Digest,
		Deps:        sortEntries(slices.Collect(maps.Values(closure))),
		Direct:      true,
	}
	if err := r.store.Put(inv.OutDir, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// locate finds a closure member in the search directories and loads its stage sidecar.
func (r *Resolver) locate(dirs []string, entry domain.DepEntry) (Dependency, error) {
	for _, dir := range dirs {
		identity, rec, err := r.load(dir, entry.ShortName)
		if errors.Is(err, domain.ErrDependencyRecordMissing) {
			continue
		}
		if err != nil {
			return Dependency{}, err
		}

		stages, err := r.store.GetStages(dir, entry.ShortName, identity)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return Dependency{}, missing(err, entry.ShortName, dir)
			}
			return Dependency{}, err
		}
		return Dependency{
			ShortName: entry.ShortName,
			Identity:  identity,
			Dir:       dir,
			ProcMacro: entry.ProcMacro,
			Record:    rec,
			Stages:    stages,
		}, nil
	}
	err := zerr.With(zerr.Wrap(domain.ErrDependencyRecordMissing, "not found in any search directory"), "unit", entry.ShortName)
	return Dependency{}, zerr.With(err, "search_dirs", strings.Join(dirs, string(filepath.ListSeparator)))
}

// load fetches a record a build can mount.
func (r *Resolver) load(dir, stem string) (string, *domain.DependencyRecord, error) {
	identity, rec, err := r.fetch(dir, stem)
	if err != nil {
		return "", nil, err
	}
	if rec.Direct {
		err := zerr.With(zerr.Wrap(domain.ErrDependencyUnsandboxed, "compiled on the host"), "unit", stem)
		return "", nil, zerr.With(err, "dir", dir)
	}
	return identity, rec, nil
}

func (r *Resolver) fetch(dir, stem string) (string, *domain.DependencyRecord, error) {
	identity, err := r.store.Current(dir, stem)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return "", nil, missing(err, stem, dir)
		}
		return "", nil, err
	}
	rec, err := r.store.Get(dir, stem, identity)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return "", nil, missing(err, stem, dir)
		}
		return "", nil, err
	}
	return identity, rec, nil
}

func missing(cause error, unit, dir string) error {
	err := zerr.With(zerr.Wrap(domain.ErrDependencyRecordMissing, cause.Error()), "unit", unit)
	return zerr.With(err, "dir", dir)
}

// UnitStem returns the unit stem of an artifact path: the file name without extension.
func UnitStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

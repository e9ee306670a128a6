package records_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/greenroom/internal/adapters/records"
	"go.trai.ch/greenroom/internal/core/domain"
)

func sampleRecord() *domain.DependencyRecord {
	return &domain.DependencyRecord{
		Unit:        "libfoo-1a2b",
		Identity:    "0123456789abcdef",
		Kind:        domain.UnitKindLib,
		InputDigest: "digest-a",
		Deps: []domain.DepEntry{
			{ShortName: "libbar-9f9f"},
			{ShortName: "libderive-77aa", ProcMacro: true},
		},
	}
}

func TestStore_PutAndGet(t *testing.T) {
	dir := t.TempDir()
	store := records.NewStore()
	rec := sampleRecord()

	require.NoError(t, store.Put(dir, rec))

	identity, err := store.Current(dir, rec.Unit)
	require.NoError(t, err)
	assert.Equal(t, rec.Identity, identity)

	got, err := store.Get(dir, rec.Unit, identity)
	require.NoError(t, err)
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	_, err = os.Stat(filepath.Join(dir, "libfoo-1a2b-0123456789abcdef.deps.json"))
	require.NoError(t, err)
}

func TestStore_Current_Missing(t *testing.T) {
	store := records.NewStore()

	_, err := store.Current(t.TempDir(), "libmissing-0000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRecordNotFound))
}

func TestStore_Get_Missing(t *testing.T) {
	store := records.NewStore()

	_, err := store.Get(t.TempDir(), "libmissing-0000", "ffff")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestStore_Get_Corrupt(t *testing.T) {
	dir := t.TempDir()
	store := records.NewStore()
	require.NoError(t, os.WriteFile(domain.RecordFile(dir, "libfoo", "aa"), []byte("{"), 0o600))

	_, err := store.Get(dir, "libfoo", "aa")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal record")
}

func TestStore_Put_FirstWriterWins(t *testing.T) {
	dir := t.TempDir()
	store := records.NewStore()

	first := sampleRecord()
	require.NoError(t, store.Put(dir, first))

	second := sampleRecord()
	second.Deps = nil
	require.NoError(t, store.Put(dir, second))

	got, err := store.Get(dir, first.Unit, first.Identity)
	require.NoError(t, err)
	assert.Len(t, got.Deps, 2, "the first record must be kept")
}

func TestStore_Put_Collision(t *testing.T) {
	dir := t.TempDir()
	store := records.NewStore()
	require.NoError(t, store.Put(dir, sampleRecord()))

	other := sampleRecord()
	other.InputDigest = "digest-b"

	err := store.Put(dir, other)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNamingCollision)
}

func TestStore_Put_MovesPointer(t *testing.T) {
	dir := t.TempDir()
	store := records.NewStore()

	rec := sampleRecord()
	require.NoError(t, store.Put(dir, rec))

	next := sampleRecord()
	next.Identity = "fedcba9876543210"
	next.InputDigest = "digest-next"
	require.NoError(t, store.Put(dir, next))

	identity, err := store.Current(dir, rec.Unit)
	require.NoError(t, err)
	assert.Equal(t, next.Identity, identity)

	// The old record stays in place for dependents that still reference it.
	_, err = store.Get(dir, rec.Unit, rec.Identity)
	require.NoError(t, err)
}

func TestStore_Put_ConcurrentWriters(t *testing.T) {
	dir := t.TempDir()
	store := records.NewStore()

	const writers = 16
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := sampleRecord()
			rec.Deps = []domain.DepEntry{{ShortName: fmt.Sprintf("libw%02d", i)}}
			errs[i] = store.Put(dir, rec)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	got, err := store.Get(dir, "libfoo-1a2b", "0123456789abcdef")
	require.NoError(t, err)
	require.Len(t, got.Deps, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"libfoo-1a2b-0123456789abcdef.deps.json",
		"libfoo-1a2b.identity",
	}, names, "temp files must not be left behind")
}

func TestStore_Stages(t *testing.T) {
	dir := t.TempDir()
	store := records.NewStore()

	set := &domain.StageSet{
		Unit:     "libfoo-1a2b",
		Identity: "0123456789abcdef",
		Stages: []domain.Stage{
			{
				Name: "src-0123456789abcdef",
				Kind: domain.StageSourceMount,
				From: domain.Scratch,
				Mounts: []domain.Mount{{
					From: "src-ctx-0123456789abcdef", Source: "/", Target: "/work/foo",
					Excludes: []string{"target", ".git", ".jj"},
				}},
			},
		},
		Contexts: map[string]domain.Context{
			"src-ctx-0123456789abcdef": {Kind: domain.ContextHost, Value: "/work/foo"},
		},
	}
	require.NoError(t, store.PutStages(dir, set))

	// A later writer with the same identity is discarded.
	other := *set
	other.Stages = nil
	require.NoError(t, store.PutStages(dir, &other))

	got, err := store.GetStages(dir, set.Unit, set.Identity)
	require.NoError(t, err)
	if diff := cmp.Diff(set, got); diff != "" {
		t.Errorf("stage set mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_PutDescription(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "Dockerfile")
	store := records.NewStore()

	require.NoError(t, store.PutDescription(path, []byte("FROM scratch\n")))
	require.NoError(t, store.PutDescription(path, []byte("FROM scratch AS b\n")))

	data, err := os.ReadFile(path) //nolint:gosec // Test path
	require.NoError(t, err)
	assert.Equal(t, "FROM scratch AS b\n", string(data))
}

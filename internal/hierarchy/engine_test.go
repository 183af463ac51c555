package hierarchy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groveauth/grove/internal/platform/store"
	"github.com/groveauth/grove/internal/shared"
)

func seedRole(t *testing.T, st store.Client, id, parentID string) {
	t.Helper()
	err := st.Put(context.Background(), shared.TableRoles, store.Record{
		Key:      id,
		ParentID: parentID,
		Doc:      []byte(`{}`),
	})
	require.NoError(t, err)
}

func TestChildIDs(t *testing.T) {
	st := store.NewMemory()
	seedRole(t, st, "a", shared.TopLevelParent)
	seedRole(t, st, "b", "a")
	seedRole(t, st, "c", "a")
	seedRole(t, st, "d", "b")

	engine := NewEngine(st)
	children, err := engine.ChildIDs(context.Background(), "a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, children)

	children, err = engine.ChildIDs(context.Background(), "d")
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestDescendantsExcludesSeeds(t *testing.T) {
	st := store.NewMemory()
	seedRole(t, st, "a", shared.TopLevelParent)
	seedRole(t, st, "b", "a")
	seedRole(t, st, "c", "b")

	engine := NewEngine(st)
	set, err := engine.Descendants(context.Background(), []string{"b"})
	require.NoError(t, err)
	assert.Len(t, set, 1)
	assert.Contains(t, set, "c")
	assert.NotContains(t, set, "b")
}

func TestDescendantsMultipleSeeds(t *testing.T) {
	st := store.NewMemory()
	seedRole(t, st, "a", shared.TopLevelParent)
	seedRole(t, st, "b", "a")
	seedRole(t, st, "c", "a")
	seedRole(t, st, "d", "b")
	seedRole(t, st, "e", "c")
	seedRole(t, st, "f", "e")

	engine := NewEngine(st)
	set, err := engine.Descendants(context.Background(), []string{"b", "c"})
	require.NoError(t, err)
	assert.Len(t, set, 3)
	assert.Contains(t, set, "d")
	assert.Contains(t, set, "e")
	assert.Contains(t, set, "f")
}

func TestDescendantsSeedIsDescendantOfOtherSeed(t *testing.T) {
	st := store.NewMemory()
	seedRole(t, st, "a", shared.TopLevelParent)
	seedRole(t, st, "b", "a")
	seedRole(t, st, "c", "b")

	engine := NewEngine(st)
	set, err := engine.Descendants(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	// b is reachable below a but stays excluded as a seed.
	assert.Len(t, set, 1)
	assert.Contains(t, set, "c")
}

func TestDescendantsTerminatesOnCycle(t *testing.T) {
	st := store.NewMemory()
	// a -> b -> c -> a is a defect condition, not a crash.
	seedRole(t, st, "a", "c")
	seedRole(t, st, "b", "a")
	seedRole(t, st, "c", "b")

	engine := NewEngine(st)
	set, err := engine.Descendants(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Len(t, set, 2)
	assert.Contains(t, set, "b")
	assert.Contains(t, set, "c")
	assert.NotContains(t, set, "a")
}

func TestDescendantsTerminatesOnSelfParent(t *testing.T) {
	st := store.NewMemory()
	seedRole(t, st, "loop", "loop")

	engine := NewEngine(st)
	set, err := engine.Descendants(context.Background(), []string{"loop"})
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestDescendantsEmptySeeds(t *testing.T) {
	engine := NewEngine(store.NewMemory())
	set, err := engine.Descendants(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, set)
}

type failingStore struct {
	store.Client
	err error
}

func (f *failingStore) QueryChildren(ctx context.Context, table, parentID string) ([]store.Record, error) {
	return nil, f.err
}

func TestDescendantsPropagatesStorageErrors(t *testing.T) {
	engine := NewEngine(&failingStore{err: errors.New("boom")})
	_, err := engine.Descendants(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, shared.KindStorage, shared.KindOf(err))
}

package store

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetPutDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Get(ctx, "roles", "a")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Put(ctx, "roles", Record{Key: "a", ParentID: "TOP_LEVEL", Doc: []byte(`{"n":1}`)}))
	rec, err := m.Get(ctx, "roles", "a")
	require.NoError(t, err)
	assert.Equal(t, "TOP_LEVEL", rec.ParentID)
	assert.JSONEq(t, `{"n":1}`, string(rec.Doc))

	require.NoError(t, m.Delete(ctx, "roles", "a"))
	_, err = m.Get(ctx, "roles", "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryQueryChildren(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, "roles", Record{Key: "a", ParentID: "TOP_LEVEL"}))
	require.NoError(t, m.Put(ctx, "roles", Record{Key: "b", ParentID: "a"}))
	require.NoError(t, m.Put(ctx, "roles", Record{Key: "c", ParentID: "a"}))
	require.NoError(t, m.Put(ctx, "roles", Record{Key: "d", ParentID: "b"}))

	children, err := m.QueryChildren(ctx, "roles", "a")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "b", children[0].Key)
	assert.Equal(t, "c", children[1].Key)

	children, err = m.QueryChildren(ctx, "roles", "nope")
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestMemoryScanPaginates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		key := fmt.Sprintf("k%02d", i)
		require.NoError(t, m.Put(ctx, "users", Record{Key: key}))
	}

	first, err := m.Scan(ctx, "users", nil, 2, "")
	require.NoError(t, err)
	require.Len(t, first.Records, 2)
	assert.Equal(t, "k01", first.Records[0].Key)
	assert.Equal(t, "k02", first.NextCursor)

	second, err := m.Scan(ctx, "users", nil, 2, first.NextCursor)
	require.NoError(t, err)
	require.Len(t, second.Records, 2)
	assert.Equal(t, "k03", second.Records[0].Key)

	last, err := m.Scan(ctx, "users", nil, 2, second.NextCursor)
	require.NoError(t, err)
	require.Len(t, last.Records, 1)
	assert.Empty(t, last.NextCursor)
}

func TestMemoryScanLimitBoundsScannedNotMatched(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 1; i <= 6; i++ {
		key := fmt.Sprintf("k%02d", i)
		require.NoError(t, m.Put(ctx, "users", Record{Key: key}))
	}

	// Only odd keys pass; the limit still counts every scanned record.
	odd := func(rec Record) bool {
		return strings.HasSuffix(rec.Key, "1") || strings.HasSuffix(rec.Key, "3") || strings.HasSuffix(rec.Key, "5")
	}
	page, err := m.Scan(ctx, "users", odd, 4, "")
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "k01", page.Records[0].Key)
	assert.Equal(t, "k03", page.Records[1].Key)
	// The cursor marks the last scanned key, matched or not.
	assert.Equal(t, "k04", page.NextCursor)
}

func TestMemoryScanEmptyTable(t *testing.T) {
	m := NewMemory()
	page, err := m.Scan(context.Background(), "users", nil, 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Empty(t, page.NextCursor)
}

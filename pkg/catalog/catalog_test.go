package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCatalog(t *testing.T) *Catalog {
	t.Helper()

	cat, err := Open(filepath.Join(t.TempDir(), "catalog"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })
	return cat
}

func TestCatalog_RegisterAndGet(t *testing.T) {
	cat := setupTestCatalog(t)
	origin := time.Date(1994, 7, 8, 6, 55, 34, 0, time.UTC)

	series, err := cat.Register("temperature", "/data/t.db", origin)
	require.NoError(t, err)
	assert.NotEqual(t, ksuid.Nil, series.ID)
	assert.Equal(t, "temperature", series.Name)

	got, err := cat.Get(series.ID)
	require.NoError(t, err)
	assert.Equal(t, series.ID, got.ID)
	assert.Equal(t, "/data/t.db", got.Path)
	assert.True(t, origin.Equal(got.Origin))

	byName, err := cat.Lookup("temperature")
	require.NoError(t, err)
	assert.Equal(t, series.ID, byName.ID)
}

func TestCatalog_RegisterDuplicateName(t *testing.T) {
	cat := setupTestCatalog(t)

	_, err := cat.Register("dup", "/a.db", time.Now())
	require.NoError(t, err)

	_, err = cat.Register("dup", "/b.db", time.Now())
	assert.ErrorIs(t, err, ErrNameTaken)

	_, err = cat.Register("", "/c.db", time.Now())
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestCatalog_NotFound(t *testing.T) {
	cat := setupTestCatalog(t)

	_, err := cat.Get(ksuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = cat.Lookup("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = cat.Resolve(ksuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_Resolve(t *testing.T) {
	cat := setupTestCatalog(t)

	series, err := cat.Register("humidity", "/h.db", time.Now())
	require.NoError(t, err)

	byID, err := cat.Resolve(series.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "humidity", byID.Name)

	byName, err := cat.Resolve("humidity")
	require.NoError(t, err)
	assert.Equal(t, series.ID, byName.ID)
}

func TestCatalog_ListAndRemove(t *testing.T) {
	cat := setupTestCatalog(t)

	names := []string{"a", "b", "c"}
	ids := make(map[string]ksuid.KSUID)
	for _, name := range names {
		series, err := cat.Register(name, "/"+name+".db", time.Now())
		require.NoError(t, err)
		ids[name] = series.ID
	}

	list, err := cat.List()
	require.NoError(t, err)
	assert.Len(t, list, 3)

	require.NoError(t, cat.Remove(ids["b"]))

	list, err = cat.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, s := range list {
		assert.NotEqual(t, "b", s.Name)
	}

	_, err = cat.Lookup("b")
	assert.ErrorIs(t, err, ErrNotFound)

	// The name is free again
	_, err = cat.Register("b", "/b2.db", time.Now())
	assert.NoError(t, err)
}

func TestCatalog_PersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "catalog")

	cat, err := Open(dir)
	require.NoError(t, err)
	series, err := cat.Register("persisted", "/p.db", time.Now())
	require.NoError(t, err)
	require.NoError(t, cat.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Lookup("persisted")
	require.NoError(t, err)
	assert.Equal(t, series.ID, got.ID)
}

func TestPrefixUpperBound(t *testing.T) {
	assert.Equal(t, []byte("series/id0"), prefixUpperBound([]byte("series/id/")))
	assert.Equal(t, []byte{0x02}, prefixUpperBound([]byte{0x01, 0xFF}))
	assert.Nil(t, prefixUpperBound([]byte{0xFF, 0xFF}))
}

package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"traffic-predictor/internal/refdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHistory(t *testing.T) *refdata.History {
	t.Helper()
	h, err := refdata.AggregateHistory(strings.NewReader(
		"datetime,detid,occ\n2024-01-01 08:00:00,D1,0.10\n2024-01-01 08:20:00,D1,0.30\n"))
	require.NoError(t, err)
	return h
}

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(filepath.Join(tempDir, dbFile))
	assert.NoError(t, err, "database file was not created")
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "dir"))
	assert.Error(t, err)
}

func TestStore_Close(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())

	_, _, err = store.GetHistory("x")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, store.PutHistory("x", &refdata.History{}), ErrClosed)
}

func TestHistoryCache(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.GetHistory("traffic.csv:10:1")
	require.NoError(t, err)
	assert.False(t, ok)

	h := sampleHistory(t)
	require.NoError(t, store.PutHistory("traffic.csv:10:1", h))

	cached, ok, err := store.GetHistory("traffic.csv:10:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, h.Averages, cached.Averages)
	assert.Equal(t, h.Stats, cached.Stats)
}

func TestHistoryCache_ReplacesStaleEntries(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	h := sampleHistory(t)
	require.NoError(t, store.PutHistory("old", h))
	require.NoError(t, store.PutHistory("new", h))

	n, err := store.HistoryEntries()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok, err := store.GetHistory("old")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHistoryCache_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, store.PutHistory("fp", sampleHistory(t)))
	require.NoError(t, store.Close())

	store, err = New(dir)
	require.NoError(t, err)
	defer store.Close()

	cached, ok, err := store.GetHistory("fp")
	require.NoError(t, err)
	require.True(t, ok)
	avg, found := cached.Averages.Average("D1", 8, 0)
	assert.True(t, found)
	assert.InDelta(t, 0.2, avg, 1e-9)
}

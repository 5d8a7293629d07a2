package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livewallpaper/internal/selection"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStorage_GetSet(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "theme")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "theme", "dark"))
	v, err := s.Get(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", v)

	require.NoError(t, s.Set(ctx, "theme", "light"))
	v, err = s.Get(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, "light", v)
}

func TestSQLiteStorage_All(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "b", "2"))
	require.NoError(t, s.Set(ctx, "a", "1"))

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Key)
	assert.Equal(t, "1", all[0].Value)
	assert.Equal(t, "b", all[1].Key)
	assert.False(t, all[1].UpdatedAt.IsZero())
}

func TestSQLiteStorage_SelectedBackground(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	name, err := s.SelectedBackground(ctx)
	require.NoError(t, err)
	assert.Empty(t, name)

	require.NoError(t, s.SetSelectedBackground(ctx, "Ocean"))
	name, err = s.SelectedBackground(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ocean", name)
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	ctx := context.Background()

	s, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, s.SetSelectedBackground(ctx, "Forest"))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStorage(path)
	require.NoError(t, err)
	defer s.Close()

	name, err := s.SelectedBackground(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Forest", name)
}

func TestSQLiteStorage_SelectionConsumerIgnoresCancellation(t *testing.T) {
	s := newTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.SelectionConsumer().Notify(ctx, selection.Snapshot{Name: "Aurora"}))

	name, err := s.SelectedBackground(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Aurora", name)
}

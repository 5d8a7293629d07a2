package widget

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMerger(t *testing.T) (*Merger, string) {
	t.Helper()
	root := t.TempDir()
	store := NewLayoutStore(filepath.Join(t.TempDir(), "widgets.json"), zerolog.Nop())
	return NewMerger(NewRegistry(root, zerolog.Nop()), store, zerolog.Nop()), root
}

func TestMerger_DropsEntriesWithoutBundle(t *testing.T) {
	m, root := newTestMerger(t)
	writeBundle(t, root, "clock", `<div></div>`, "", "")

	stored := []Entry{
		{ID: "ghost", Enabled: true, X: 1, Y: 1, Height: 10},
		{ID: "clock", Enabled: true, X: 2, Y: 2, Height: 50},
	}
	require.NoError(t, m.Store().Save(stored))

	merged, err := m.MergedLayout()
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "clock", merged[0].ID)

	// the ghost stays persisted
	res := m.Store().Load()
	require.Len(t, res.Entries, 2)
	assert.Equal(t, "ghost", res.Entries[0].ID)
}

func TestMerger_DerivesWidth(t *testing.T) {
	m, root := newTestMerger(t)
	writeBundle(t, root, "wide", `<div></div>`, "", "")
	writeBundle(t, root, "cinema", `<!-- aspect-ratio: 16:9 --><div></div>`, "", "")
	writeBundle(t, root, "free", `<!-- aspect-ratio: flex --><div></div>`, "", "")
	writeBundle(t, root, "fixed", `<!-- aspect-ratio: 1:1 --><div></div>`, "", "")

	require.NoError(t, m.Store().Save([]Entry{
		{ID: "wide", Enabled: true, Height: 100},
		{ID: "cinema", Enabled: true, Height: 100},
		{ID: "free", Enabled: true, Height: 100},
		{ID: "fixed", Enabled: false, Height: 100, Width: intPtr(333)},
	}))

	merged, err := m.MergedLayout()
	require.NoError(t, err)
	require.Len(t, merged, 4)

	require.NotNil(t, merged[0].Width)
	assert.Equal(t, 200, *merged[0].Width)
	assert.Equal(t, 2.0, merged[0].AspectRatio.Value())

	require.NotNil(t, merged[1].Width)
	assert.Equal(t, 178, *merged[1].Width)

	assert.Nil(t, merged[2].Width)
	require.NotNil(t, merged[2].AspectRatio)
	assert.True(t, merged[2].AspectRatio.IsFlex())

	require.NotNil(t, merged[3].Width)
	assert.Equal(t, 333, *merged[3].Width)
	assert.False(t, merged[3].Enabled)
}

func TestMerger_RegistryOwnsAspectRatio(t *testing.T) {
	m, root := newTestMerger(t)
	writeBundle(t, root, "clock", `<!-- aspect-ratio: 4:1 --><div></div>`, "", "")

	stale := Flex
	require.NoError(t, m.Store().Save([]Entry{{ID: "clock", Enabled: true, Height: 10, AspectRatio: &stale}}))

	merged, err := m.MergedLayout()
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.False(t, merged[0].AspectRatio.IsFlex())
	assert.Equal(t, 4.0, merged[0].AspectRatio.Value())
	assert.Equal(t, 40, *merged[0].Width)

	// merging does not write derived values back
	res := m.Store().Load()
	assert.Nil(t, res.Entries[0].Width)
	assert.True(t, res.Entries[0].AspectRatio.IsFlex())
}

func TestMerger_KeepsStoredOrder(t *testing.T) {
	m, root := newTestMerger(t)
	for _, id := range []string{"a", "b", "c"} {
		writeBundle(t, root, id, `<div></div>`, "", "")
	}
	require.NoError(t, m.Store().Save([]Entry{{ID: "c"}, {ID: "a"}, {ID: "b"}}))

	merged, err := m.MergedLayout()
	require.NoError(t, err)
	ids := make([]string, 0, len(merged))
	for _, e := range merged {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestMerger_AspectRatios(t *testing.T) {
	m, root := newTestMerger(t)
	writeBundle(t, root, "clock", `<!-- aspect-ratio: 3:2 --><div></div>`, "", "")
	writeBundle(t, root, "quote", `<!-- aspect-ratio: flex --><div></div>`, "", "")

	ratios, err := m.AspectRatios()
	require.NoError(t, err)
	require.Len(t, ratios, 2)
	assert.Equal(t, 1.5, ratios["clock"].Value())
	assert.True(t, ratios["quote"].IsFlex())
}

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/layoutdb/internal/layout"
	"github.com/roach88/layoutdb/internal/testutil"
)

func TestRemoveOrphans(t *testing.T) {
	s := createTestStore(t)
	insertScreens(t, s, 1)
	insertItems(t, s,
		testutil.App(1, 1, 0, 0, "com.a/.A"),
		testutil.App(2, 6, 0, 0, "com.b/.B"), // screen 6 does not exist
		testutil.Folder(3, 1, 1, 0, "Work"),
		testutil.InFolder(4, 3, 0, 0, "com.c/.C"),
		testutil.InFolder(5, 99, 0, 0, "com.d/.D"), // folder 99 does not exist
		testutil.Hotseat(6, 0, "com.e/.E"),
	)

	n, err := s.RemoveOrphans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 3, 4, 6}, itemIDs(t, s))

	// Reconciliation is idempotent.
	n, err = s.RemoveOrphans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDeleteEmptyFolders(t *testing.T) {
	s := createTestStore(t)
	insertScreens(t, s, 0)
	insertItems(t, s,
		testutil.Folder(5, 0, 0, 0, "Empty"),
		testutil.Folder(6, 0, 1, 0, "Full"),
		testutil.InFolder(7, 6, 0, 0, "com.a/.A"),
		testutil.InFolder(8, 6, 1, 0, "com.b/.B"),
		testutil.App(9, 0, 2, 0, "com.c/.C"),
	)

	deleted, err := s.DeleteEmptyFolders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, deleted)
	assert.Equal(t, []int64{6, 7, 8, 9}, itemIDs(t, s))
}

func TestDeleteEmptyFolders_NoneIsEmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	deleted, err := s.DeleteEmptyFolders(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, deleted)
	assert.Empty(t, deleted)
}

func TestDeleteEmptyFolders_IgnoresNullContainers(t *testing.T) {
	s := createTestStore(t)
	insertScreens(t, s, 0)
	insertItems(t, s, testutil.Folder(5, 0, 0, 0, "Empty"))
	_, err := s.DB().Exec("INSERT INTO items (_id, container, itemType) VALUES (6, NULL, 0)")
	require.NoError(t, err)

	deleted, err := s.DeleteEmptyFolders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, deleted)
}

func TestRebuildFolderRanks(t *testing.T) {
	s := createTestStore(t)
	insertScreens(t, s, 0)
	insertItems(t, s,
		testutil.Folder(1, 0, 0, 0, "Games"),
		testutil.InFolder(2, 1, 0, 0, "com.a/.A"),
		testutil.InFolder(3, 1, 1, 0, "com.b/.B"),
		testutil.InFolder(4, 1, 0, 1, "com.c/.C"),
		testutil.InFolder(5, 1, 1, 1, "com.d/.D"),
	)

	require.NoError(t, s.RebuildFolderRanks(context.Background()))

	children, err := s.Items(context.Background(), Selection{
		Where: "container = ?", Args: []any{1}, OrderBy: "rank ASC",
	})
	require.NoError(t, err)
	var order []int64
	var ranks []int
	for _, c := range children {
		order = append(order, c.ID)
		ranks = append(ranks, c.Rank)
	}
	assert.Equal(t, []int64{2, 3, 4, 5}, order)
	assert.Equal(t, []int{0, 1, 2, 3}, ranks)
}

func TestRebuildScreens_DedupsAndRanks(t *testing.T) {
	s := createTestStore(t)
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		for _, sc := range []layout.Screen{{ID: 4, Rank: 3}, {ID: 1, Rank: 7}, {ID: 8, Rank: 0}} {
			if err := tx.InsertScreen(context.Background(), sc); err != nil {
				return err
			}
		}
		return tx.RebuildScreens(context.Background())
	})
	require.NoError(t, err)

	screens, err := s.Screens(context.Background())
	require.NoError(t, err)
	require.Len(t, screens, 3)
	assert.Equal(t, []layout.Screen{
		{ID: 8, Rank: 0, Modified: screens[0].Modified},
		{ID: 4, Rank: 1, Modified: screens[1].Modified},
		{ID: 1, Rank: 2, Modified: screens[2].Modified},
	}, screens)
}

func TestConvertShortcutsToApps(t *testing.T) {
	s := createTestStore(t)
	shortcut := testutil.Hotseat(1, 0, "com.a/.A")
	shortcut.ItemType = layout.ItemTypeShortcut
	other := testutil.Hotseat(2, 1, "com.b/.B")
	other.ItemType = layout.ItemTypeShortcut
	other.ProfileID = 10 // work profile: left alone
	insertItems(t, s, shortcut, other)

	n, err := s.ConvertShortcutsToApps(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	it, _, err := s.Item(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, layout.ItemTypeApplication, it.ItemType)
	it, _, err = s.Item(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, layout.ItemTypeShortcut, it.ItemType)
}

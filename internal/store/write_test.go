package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/layoutdb/internal/layout"
	"github.com/roach88/layoutdb/internal/testutil"
)

func TestInsert_RequiresID(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Insert(context.Background(), layout.TableItems, Values{ColContainer: layout.ContainerDesktop})
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = s.Insert(context.Background(), layout.TableItems, Values{ColID: nil})
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = s.Insert(context.Background(), layout.TableItems, Values{ColID: "seven"})
	assert.Error(t, err)

	assert.Empty(t, itemIDs(t, s))
}

func TestInsert_DuplicateIDIsConstraintError(t *testing.T) {
	s := createTestStore(t)
	insertItems(t, s, testutil.Hotseat(1, 0, "com.a/.A"))

	_, err := s.Insert(context.Background(), layout.TableItems, ItemValues(testutil.Hotseat(1, 1, "com.b/.B")))
	assert.ErrorIs(t, err, ErrConstraint)
}

func TestInsert_UnknownTableAndColumn(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Insert(context.Background(), "favorites", Values{ColID: 1})
	assert.ErrorIs(t, err, ErrUnknownTable)

	_, err = s.Insert(context.Background(), layout.TableItems, Values{ColID: 1, "spanX": 2})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestInsert_ObservesExternalID(t *testing.T) {
	s := createTestStore(t)

	id, err := s.Insert(context.Background(), layout.TableItems, ItemValues(testutil.Hotseat(40, 0, "com.a/.A")))
	require.NoError(t, err)
	assert.Equal(t, int64(40), id)

	assert.Equal(t, int64(41), s.IDs().NextItemID())
}

func TestInsert_StampsModified(t *testing.T) {
	s := createTestStore(t)
	v := ItemValues(testutil.Hotseat(1, 0, "com.a/.A"))
	v[ColModified] = int64(99)

	_, err := s.Insert(context.Background(), layout.TableItems, v)
	require.NoError(t, err)

	it, ok, err := s.Item(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testutil.Epoch.UnixMilli()+1, it.Modified)
	assert.Equal(t, int64(99), v[ColModified], "caller values are not mutated")
}

func TestBulkInsert_AllOrNothing(t *testing.T) {
	s := createTestStore(t)

	rows := []Values{
		ItemValues(testutil.Hotseat(1, 0, "com.a/.A")),
		ItemValues(testutil.Hotseat(2, 1, "com.b/.B")),
		{ColContainer: layout.ContainerHotseat}, // no id
	}
	n, err := s.BulkInsert(context.Background(), layout.TableItems, rows)
	assert.ErrorIs(t, err, ErrMissingID)
	assert.Equal(t, 0, n)
	assert.Empty(t, itemIDs(t, s))

	n, err = s.BulkInsert(context.Background(), layout.TableItems, rows[:2])
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 2}, itemIDs(t, s))
}

func TestUpdate_StampsAndCounts(t *testing.T) {
	s := createTestStore(t)
	insertItems(t, s,
		testutil.Hotseat(1, 0, "com.a/.A"),
		testutil.Hotseat(2, 1, "com.b/.B"),
	)

	n, err := s.Update(context.Background(), layout.TableItems,
		Values{ColTitle: "Mail"}, ByID(2))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	it, _, err := s.Item(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Mail", it.Title)
	assert.Greater(t, it.Modified, testutil.Epoch.UnixMilli()+2)

	n, err = s.Update(context.Background(), layout.TableItems, Values{}, ByID(2))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDelete_Selection(t *testing.T) {
	s := createTestStore(t)
	insertItems(t, s,
		testutil.Hotseat(1, 0, "com.a/.A"),
		testutil.Hotseat(2, 1, "com.b/.B"),
		testutil.Hotseat(3, 2, "com.c/.C"),
	)

	n, err := s.Delete(context.Background(), layout.TableItems,
		Selection{Where: "screen >= ?", Args: []any{1}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1}, itemIDs(t, s))

	// ids stay retired after deletion
	assert.Equal(t, int64(4), s.IDs().NextItemID())
}

func TestApplyBatch_Atomic(t *testing.T) {
	s := createTestStore(t)
	insertItems(t, s, testutil.Hotseat(1, 0, "com.a/.A"))

	ops := []Op{
		{Kind: OpInsert, Table: layout.TableItems, Values: ItemValues(testutil.Hotseat(2, 1, "com.b/.B"))},
		{Kind: OpDelete, Table: layout.TableItems, Selection: ByID(1)},
		{Kind: OpInsert, Table: layout.TableItems, Values: ItemValues(testutil.Hotseat(2, 3, "com.c/.C"))},
	}
	_, err := s.ApplyBatch(context.Background(), ops)
	require.ErrorIs(t, err, ErrConstraint)
	assert.Equal(t, []int64{1}, itemIDs(t, s), "failed batch leaves the store unchanged")

	results, err := s.ApplyBatch(context.Background(), ops[:2])
	require.NoError(t, err)
	assert.Equal(t, []OpResult{{ID: 2, Count: 1}, {Count: 1}}, results)
	assert.Equal(t, []int64{2}, itemIDs(t, s))
}

func TestApplyBatch_UnknownKind(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ApplyBatch(context.Background(), []Op{{Kind: OpKind(9), Table: layout.TableItems}})
	assert.Error(t, err)
}

func TestEnsureScreen(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.InsertScreen(ctx, layout.Screen{ID: 0, Rank: 0}); err != nil {
			return err
		}
		return tx.InsertScreen(ctx, layout.Screen{ID: 2, Rank: 4})
	}))

	var added, again bool
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		if added, err = tx.EnsureScreen(ctx, 9); err != nil {
			return err
		}
		again, err = tx.EnsureScreen(ctx, 2)
		return err
	})
	require.NoError(t, err)
	assert.True(t, added)
	assert.False(t, again)

	screens, err := s.Screens(ctx)
	require.NoError(t, err)
	require.Len(t, screens, 3)
	assert.Equal(t, int64(9), screens[2].ID)
	assert.Equal(t, 5, screens[2].Rank)
	assert.Equal(t, int64(10), s.IDs().NextScreenID())
}

package store

import (
	"context"
	"database/sql"
	_ "embed"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/layoutdb/internal/ids"
	"github.com/roach88/layoutdb/internal/layout"
	"github.com/roach88/layoutdb/internal/testutil"
)

//go:embed testdata/baseline_v12.sql
var baselineSQL string

// createTestStore creates a new store in a temp dir with a deterministic clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), path, Options{Now: testutil.NewDeterministicClock().Now})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createDatabaseAt builds a database file persisted at version v by
// starting from the oldest schema and applying the real steps up to v.
// seed runs against the raw database once it is at version v.
func createDatabaseAt(t *testing.T, v int, seed func(db *sql.DB)) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "old.db")

	db, err := sql.Open(DriverCGO, path)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(baselineSQL)
	require.NoError(t, err)
	require.NoError(t, setUserVersion(ctx, db, MinVersion))

	s := &Store{db: db, ids: ids.New(), now: testutil.NewDeterministicClock().Now, hooks: noHooks{}}
	for _, step := range DefaultChain().steps {
		if step.From >= v {
			break
		}
		err := s.WithTx(ctx, func(tx *Tx) error {
			if err := step.Apply(ctx, tx); err != nil {
				return err
			}
			return setUserVersion(ctx, tx.tx, step.From+1)
		})
		require.NoError(t, err, "building version %d: step %d", v, step.From)
	}

	if seed != nil {
		seed(db)
	}
	require.NoError(t, db.Close())
	return path
}

// insertItems inserts items through a transaction.
func insertItems(t *testing.T, s *Store, items ...layout.Item) {
	t.Helper()
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		for _, it := range items {
			if err := tx.InsertItem(context.Background(), it); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

// insertScreens inserts screens with rank equal to position in ids.
func insertScreens(t *testing.T, s *Store, screenIDs ...int64) {
	t.Helper()
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		for rank, id := range screenIDs {
			if err := tx.InsertScreen(context.Background(), layout.Screen{ID: id, Rank: rank}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

// itemIDs returns the ids of every stored item, ascending.
func itemIDs(t *testing.T, s *Store) []int64 {
	t.Helper()
	items, err := s.Items(context.Background(), Selection{})
	require.NoError(t, err)
	out := []int64{}
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

type recordingHooks struct {
	cling   int
	folders int
}

func (h *recordingHooks) DismissFirstRunCling(context.Context) error {
	h.cling++
	return nil
}

func (h *recordingHooks) DisableAutoFolders(context.Context) error {
	h.folders++
	return nil
}

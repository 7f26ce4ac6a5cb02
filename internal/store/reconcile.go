package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/layoutdb/internal/layout"
)

// RemoveOrphans deletes desktop items whose screen no longer exists and
// items whose folder no longer exists. It returns the number removed.
func (t *Tx) RemoveOrphans(ctx context.Context) (int, error) {
	res, err := t.tx.ExecContext(ctx, `
		DELETE FROM items
		WHERE container = ?
		AND screen NOT IN (SELECT _id FROM screens)
	`, layout.ContainerDesktop)
	if err != nil {
		return 0, fmt.Errorf("remove items on missing screens: %w", err)
	}
	onScreens, err := affected(res)
	if err != nil {
		return 0, err
	}

	res, err = t.tx.ExecContext(ctx, `
		DELETE FROM items
		WHERE container <> ? AND container <> ?
		AND container NOT IN (SELECT _id FROM items WHERE itemType = ?)
	`, layout.ContainerDesktop, layout.ContainerHotseat, int(layout.ItemTypeFolder))
	if err != nil {
		return 0, fmt.Errorf("remove items in missing folders: %w", err)
	}
	inFolders, err := affected(res)
	if err != nil {
		return 0, err
	}

	if n := onScreens + inFolders; n > 0 {
		slog.Info("removed orphaned items", "missing_screen", onScreens, "missing_folder", inFolders)
	}
	return onScreens + inFolders, nil
}

// RemoveOrphans runs orphan removal in its own transaction.
func (s *Store) RemoveOrphans(ctx context.Context) (int, error) {
	var n int
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		n, err = tx.RemoveOrphans(ctx)
		return err
	})
	return n, err
}

// DeleteEmptyFolders removes folders that no item references as its
// container and returns their ids. The result is never nil; on failure
// it is empty and nothing is deleted.
func (s *Store) DeleteEmptyFolders(ctx context.Context) ([]int64, error) {
	var deleted []int64
	err := s.WithTx(ctx, func(tx *Tx) error {
		rows, err := tx.tx.QueryContext(ctx, `
			SELECT _id FROM items
			WHERE itemType = ?
			AND _id NOT IN (SELECT container FROM items WHERE container IS NOT NULL)
			ORDER BY _id ASC
		`, int(layout.ItemTypeFolder))
		if err != nil {
			return fmt.Errorf("find empty folders: %w", err)
		}
		var found []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan folder id: %w", err)
			}
			found = append(found, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterate empty folders: %w", err)
		}
		rows.Close()

		if len(found) == 0 {
			return nil
		}
		args := make([]any, len(found))
		for i, id := range found {
			args[i] = id
		}
		_, err = tx.tx.ExecContext(ctx,
			"DELETE FROM items WHERE _id IN ("+placeholders(len(found))+")", args...)
		if err != nil {
			return fmt.Errorf("delete empty folders: %w", err)
		}
		deleted = found
		return nil
	})
	if err != nil {
		return []int64{}, err
	}
	if deleted == nil {
		deleted = []int64{}
	}
	return deleted, nil
}

// RebuildFolderRanks sets each folder child's rank from its grid
// position: rank = cellX + cellY * (max cellX in that folder + 1).
// With addColumn the rank column is created first.
func (t *Tx) RebuildFolderRanks(ctx context.Context, addColumn bool) error {
	if addColumn {
		if _, err := t.tx.ExecContext(ctx,
			"ALTER TABLE items ADD COLUMN rank INTEGER NOT NULL DEFAULT 0"); err != nil {
			return fmt.Errorf("add rank column: %w", err)
		}
	}

	rows, err := t.tx.QueryContext(ctx, `
		SELECT container, MAX(cellX) FROM items
		WHERE container IN (SELECT _id FROM items WHERE itemType = ?)
		GROUP BY container
	`, int(layout.ItemTypeFolder))
	if err != nil {
		return fmt.Errorf("scan folder widths: %w", err)
	}
	type folderWidth struct {
		id    int64
		width int64
	}
	var folders []folderWidth
	for rows.Next() {
		var f folderWidth
		var maxX *int64
		if err := rows.Scan(&f.id, &maxX); err != nil {
			rows.Close()
			return fmt.Errorf("scan folder width: %w", err)
		}
		if maxX != nil {
			f.width = *maxX + 1
		} else {
			f.width = 1
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate folder widths: %w", err)
	}
	rows.Close()

	for _, f := range folders {
		_, err := t.tx.ExecContext(ctx, `
			UPDATE items SET rank = cellX + (cellY * ?)
			WHERE container = ? AND cellX IS NOT NULL AND cellY IS NOT NULL
		`, f.width, f.id)
		if err != nil {
			return fmt.Errorf("rank folder %d: %w", f.id, err)
		}
	}
	return nil
}

// RebuildFolderRanks recomputes folder ranks in its own transaction.
func (s *Store) RebuildFolderRanks(ctx context.Context) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		return tx.RebuildFolderRanks(ctx, false)
	})
}

// RebuildScreens recreates the screens table keyed by rank: existing
// screen ids are read in rank order, duplicates dropped, and reinserted
// with ranks 0..n-1.
func (t *Tx) RebuildScreens(ctx context.Context) error {
	rows, err := t.tx.QueryContext(ctx, "SELECT _id FROM screens ORDER BY screenRank ASC, _id ASC")
	if err != nil {
		return fmt.Errorf("read screen order: %w", err)
	}
	var order []int64
	seen := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan screen id: %w", err)
		}
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate screens: %w", err)
	}
	rows.Close()

	for _, stmt := range []string{
		"DROP TABLE IF EXISTS screens",
		strings.TrimSpace(`
			CREATE TABLE screens (
				_id INTEGER PRIMARY KEY,
				screenRank INTEGER,
				modified INTEGER NOT NULL DEFAULT 0
			)`),
	} {
		if _, err := t.tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("rebuild screens: %w", err)
		}
	}

	for rank, id := range order {
		if err := t.InsertScreen(ctx, layout.Screen{ID: id, Rank: rank}); err != nil {
			return fmt.Errorf("rebuild screens: %w", err)
		}
	}
	return nil
}

// ConvertShortcutsToApps turns shortcut rows of the default profile whose
// launch target is exactly an app's launcher entry into application rows.
// Unparsable targets are skipped. Returns the number converted.
func (t *Tx) ConvertShortcutsToApps(ctx context.Context) (int, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT _id, intent FROM items
		WHERE itemType = ? AND profileId = ?
	`, int(layout.ItemTypeShortcut), t.s.serial)
	if err != nil {
		return 0, fmt.Errorf("scan shortcuts: %w", err)
	}
	var convert []int64
	for rows.Next() {
		var id int64
		var raw *string
		if err := rows.Scan(&id, &raw); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan shortcut: %w", err)
		}
		if raw == nil {
			continue
		}
		in, err := layout.ParseIntent(*raw)
		if err != nil {
			slog.Debug("skipping unparsable shortcut", "id", id, "error", err)
			continue
		}
		if in.IsLauncherAppTarget() {
			convert = append(convert, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterate shortcuts: %w", err)
	}
	rows.Close()

	for _, id := range convert {
		_, err := t.tx.ExecContext(ctx, "UPDATE items SET itemType = ? WHERE _id = ?",
			int(layout.ItemTypeApplication), id)
		if err != nil {
			return 0, fmt.Errorf("convert shortcut %d: %w", id, err)
		}
	}
	if len(convert) > 0 {
		slog.Info("converted shortcuts to apps", "count", len(convert))
	}
	return len(convert), nil
}

// ConvertShortcutsToApps runs the conversion in its own transaction.
func (s *Store) ConvertShortcutsToApps(ctx context.Context) (int, error) {
	var n int
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		n, err = tx.ConvertShortcutsToApps(ctx)
		return err
	})
	return n, err
}

package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/layoutdb/internal/layout"
)

func defaultSteps() []Step {
	return []Step{
		{From: 12, Name: "add screens table", Apply: addScreensTable},
		{From: 13, Name: "add widget provider column", Apply: addColumn(layout.TableItems, "appWidgetProvider TEXT")},
		{From: 14, Name: "add modified columns", Apply: addModifiedColumns},
		{From: 15, Name: "add restored column", Apply: addColumn(layout.TableItems, "restored INTEGER NOT NULL DEFAULT 0")},
		{From: 16, Name: "dismiss first-run cling", Apply: dismissCling},
		{From: 17, Name: "no-op", Apply: noop},
		{From: 18, Name: "remove orphaned items", Apply: func(ctx context.Context, tx *Tx) error {
			_, err := tx.RemoveOrphans(ctx)
			return err
		}},
		{From: 19, Name: "add profile column", Apply: addProfileColumn},
		{From: 20, Name: "add folder rank column", Apply: func(ctx context.Context, tx *Tx) error {
			return tx.RebuildFolderRanks(ctx, true)
		}},
		{From: 21, Name: "rebuild screens table by rank", Apply: func(ctx context.Context, tx *Tx) error {
			return tx.RebuildScreens(ctx)
		}},
		{From: 22, Name: "add options column", Apply: addColumn(layout.TableItems, "options INTEGER NOT NULL DEFAULT 0")},
		{From: 23, Name: "no-op", Apply: noop},
		{From: 24, Name: "disable auto folders for existing users", Apply: disableAutoFolders},
		{From: 25, Name: "convert shortcuts to apps", Apply: func(ctx context.Context, tx *Tx) error {
			_, err := tx.ConvertShortcutsToApps(ctx)
			return err
		}},
	}
}

func noop(context.Context, *Tx) error { return nil }

func addColumn(table, def string) func(context.Context, *Tx) error {
	return func(ctx context.Context, tx *Tx) error {
		if _, err := tx.tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, def)); err != nil {
			return fmt.Errorf("add column %s.%s: %w", table, def, err)
		}
		return nil
	}
}

func addScreensTable(ctx context.Context, tx *Tx) error {
	_, err := tx.tx.ExecContext(ctx, `
		CREATE TABLE screens (
			_id INTEGER PRIMARY KEY,
			screenRank INTEGER
		)
	`)
	if err != nil {
		return fmt.Errorf("create screens table: %w", err)
	}
	tx.s.ids.Observe(layout.TableScreens, 0)
	return nil
}

func addModifiedColumns(ctx context.Context, tx *Tx) error {
	for _, table := range []string{layout.TableItems, layout.TableScreens} {
		if err := addColumn(table, "modified INTEGER NOT NULL DEFAULT 0")(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

func addProfileColumn(ctx context.Context, tx *Tx) error {
	return addColumn(layout.TableItems, fmt.Sprintf("profileId INTEGER NOT NULL DEFAULT %d", tx.s.serial))(ctx, tx)
}

// Preference side effects are logged and never fail a step.
func dismissCling(ctx context.Context, tx *Tx) error {
	if err := tx.s.hooks.DismissFirstRunCling(ctx); err != nil {
		slog.Warn("could not dismiss first-run cling", "error", err)
	}
	return nil
}

func disableAutoFolders(ctx context.Context, tx *Tx) error {
	if err := tx.s.hooks.DisableAutoFolders(ctx); err != nil {
		slog.Warn("could not disable auto folders", "error", err)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/layoutdb/internal/layout"
)

// Query returns rows of table matching sel as column maps.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) Query(ctx context.Context, table string, sel Selection) ([]Values, error) {
	return query(ctx, s.db, table, sel)
}

// Items returns item rows matching sel, ordered by sel.OrderBy or _id.
func (s *Store) Items(ctx context.Context, sel Selection) ([]layout.Item, error) {
	return items(ctx, s.db, sel)
}

// Item returns the item with the given id.
func (s *Store) Item(ctx context.Context, id int64) (layout.Item, bool, error) {
	found, err := items(ctx, s.db, ByID(id))
	if err != nil {
		return layout.Item{}, false, err
	}
	if len(found) == 0 {
		return layout.Item{}, false, nil
	}
	return found[0], true, nil
}

// Screens returns every screen ordered by rank, then id.
func (s *Store) Screens(ctx context.Context) ([]layout.Screen, error) {
	return screens(ctx, s.db)
}

func query(ctx context.Context, q queryer, table string, sel Selection) ([]Values, error) {
	known, ok := tableColumns[table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	cols := sel.Columns
	if len(cols) == 0 {
		cols, _ = Columns(table)
	}
	for _, c := range cols {
		if !known[c] {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, c)
		}
	}

	stmt := fmt.Sprintf("SELECT %s FROM %s%s", strings.Join(cols, ", "), table, sel.whereClause())
	if sel.OrderBy != "" {
		stmt += " ORDER BY " + sel.OrderBy
	}

	rows, err := q.QueryContext(ctx, stmt, sel.Args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	result := []Values{}
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		row := make(Values, len(cols))
		for i, c := range cols {
			row[c] = dest[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", table, err)
	}
	return result, nil
}

const itemSelect = `SELECT _id, title, intent, container, screen, cellX, cellY, itemType,
	appWidgetId, iconPackage, iconResource, icon, appWidgetProvider,
	modified, restored, profileId, rank, options FROM items`

func items(ctx context.Context, q queryer, sel Selection) ([]layout.Item, error) {
	stmt := itemSelect + sel.whereClause()
	if sel.OrderBy != "" {
		stmt += " ORDER BY " + sel.OrderBy
	} else {
		stmt += " ORDER BY _id ASC"
	}

	rows, err := q.QueryContext(ctx, stmt, sel.Args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	result := []layout.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return result, nil
}

func scanItem(rows *sql.Rows) (layout.Item, error) {
	var (
		it                                              layout.Item
		title, intent, iconPkg, iconRes, widgetProvider sql.NullString
		container, screen, cellX, cellY, itemType       sql.NullInt64
		profileID                                       sql.NullInt64
	)
	err := rows.Scan(
		&it.ID, &title, &intent, &container, &screen, &cellX, &cellY, &itemType,
		&it.AppWidgetID, &iconPkg, &iconRes, &it.Icon, &widgetProvider,
		&it.Modified, &it.Restored, &profileID, &it.Rank, &it.Options,
	)
	if err != nil {
		return layout.Item{}, fmt.Errorf("scan item: %w", err)
	}
	it.Title = title.String
	it.Intent = intent.String
	it.IconPackage = iconPkg.String
	it.IconResource = iconRes.String
	it.AppWidgetProvider = widgetProvider.String
	it.Container = container.Int64
	it.Screen = screen.Int64
	it.CellX = int(cellX.Int64)
	it.CellY = int(cellY.Int64)
	it.ItemType = layout.ItemType(itemType.Int64)
	it.ProfileID = profileID.Int64
	return it, nil
}

func screens(ctx context.Context, q queryer) ([]layout.Screen, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT _id, IFNULL(screenRank, 0), modified FROM screens ORDER BY screenRank ASC, _id ASC")
	if err != nil {
		return nil, fmt.Errorf("query screens: %w", err)
	}
	defer rows.Close()

	result := []layout.Screen{}
	for rows.Next() {
		var sc layout.Screen
		if err := rows.Scan(&sc.ID, &sc.Rank, &sc.Modified); err != nil {
			return nil, fmt.Errorf("scan screen: %w", err)
		}
		result = append(result, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate screens: %w", err)
	}
	return result, nil
}

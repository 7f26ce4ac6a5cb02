package store

import (
	"fmt"
	"sort"

	"github.com/roach88/layoutdb/internal/layout"
)

// Values maps column names to values for inserts and updates.
type Values map[string]any

// Column names.
const (
	ColID                = "_id"
	ColTitle             = "title"
	ColIntent            = "intent"
	ColContainer         = "container"
	ColScreen            = "screen"
	ColCellX             = "cellX"
	ColCellY             = "cellY"
	ColItemType          = "itemType"
	ColAppWidgetID       = "appWidgetId"
	ColIconPackage       = "iconPackage"
	ColIconResource      = "iconResource"
	ColIcon              = "icon"
	ColAppWidgetProvider = "appWidgetProvider"
	ColModified          = "modified"
	ColRestored          = "restored"
	ColProfileID         = "profileId"
	ColRank              = "rank"
	ColOptions           = "options"
	ColScreenRank        = "screenRank"
)

var itemColumns = []string{
	ColID, ColTitle, ColIntent, ColContainer, ColScreen, ColCellX, ColCellY,
	ColItemType, ColAppWidgetID, ColIconPackage, ColIconResource, ColIcon,
	ColAppWidgetProvider, ColModified, ColRestored, ColProfileID, ColRank, ColOptions,
}

var screenColumns = []string{ColID, ColScreenRank, ColModified}

var tableColumns = map[string]map[string]bool{
	layout.TableItems:   columnSet(itemColumns),
	layout.TableScreens: columnSet(screenColumns),
}

func columnSet(cols []string) map[string]bool {
	m := make(map[string]bool, len(cols))
	for _, c := range cols {
		m[c] = true
	}
	return m
}

// Columns returns the column names of a table in schema order.
func Columns(table string) ([]string, error) {
	switch table {
	case layout.TableItems:
		return append([]string(nil), itemColumns...), nil
	case layout.TableScreens:
		return append([]string(nil), screenColumns...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
}

// checkColumns validates the table and every column named in v, and
// returns the column names in sorted order.
func checkColumns(table string, v Values) ([]string, error) {
	known, ok := tableColumns[table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	cols := make([]string, 0, len(v))
	for c := range v {
		if !known[c] {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, c)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols, nil
}

// ItemValues converts an item to insertable values. Empty strings and
// empty blobs are stored as NULL.
func ItemValues(it layout.Item) Values {
	return Values{
		ColID:                it.ID,
		ColTitle:             nullString(it.Title),
		ColIntent:            nullString(it.Intent),
		ColContainer:         it.Container,
		ColScreen:            it.Screen,
		ColCellX:             it.CellX,
		ColCellY:             it.CellY,
		ColItemType:          int(it.ItemType),
		ColAppWidgetID:       it.AppWidgetID,
		ColIconPackage:       nullString(it.IconPackage),
		ColIconResource:      nullString(it.IconResource),
		ColIcon:              nullBlob(it.Icon),
		ColAppWidgetProvider: nullString(it.AppWidgetProvider),
		ColRestored:          it.Restored,
		ColProfileID:         it.ProfileID,
		ColRank:              it.Rank,
		ColOptions:           it.Options,
	}
}

// ScreenValues converts a screen to insertable values.
func ScreenValues(sc layout.Screen) Values {
	return Values{
		ColID:         sc.ID,
		ColScreenRank: sc.Rank,
	}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullBlob(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// IntValue reads an integer column value as supplied by a caller.
func IntValue(v any) (int64, bool) {
	return asInt64(v)
}

// asInt64 converts the integer kinds callers put in Values.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

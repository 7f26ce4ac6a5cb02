package legacy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/roach88/layoutdb/internal/layout"
)

// ErrSourceUnavailable is returned when the foreign layout cannot be read.
var ErrSourceUnavailable = errors.New("legacy layout source unavailable")

// Row is one record of a foreign layout table.
type Row struct {
	ID        int64
	Title     string
	Intent    string
	Container int64
	Screen    int64
	CellX     int
	CellY     int
	ItemType  layout.ItemType
	ProfileID *int64 // nil when the source predates profiles

	Icon         []byte
	IconPackage  string
	IconResource string
}

// Source yields foreign layout rows in a deterministic order.
type Source interface {
	Rows(ctx context.Context) ([]Row, error)
}

// SQLiteSource reads the "favorites" table of an older launcher database.
type SQLiteSource struct {
	Path   string
	Driver string // defaults to "sqlite3"
}

// Rows reads every row ordered by title (locale-aware), then id.
func (s SQLiteSource) Rows(ctx context.Context) ([]Row, error) {
	if _, err := os.Stat(s.Path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	driver := s.Driver
	if driver == "" {
		driver = "sqlite3"
	}
	db, err := sql.Open(driver, s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer db.Close()

	hasProfile, err := hasColumn(ctx, db, "favorites", "profileId")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	profileExpr := "NULL"
	if hasProfile {
		profileExpr = "profileId"
	}

	rows, err := db.QueryContext(ctx, `
		SELECT _id, title, intent, container, screen, cellX, cellY, itemType,
			`+profileExpr+`, icon, iconPackage, iconResource
		FROM favorites
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer rows.Close()

	result := []Row{}
	for rows.Next() {
		var (
			r                               Row
			title, intent, iconPkg, iconRes sql.NullString
			container, screen, x, y, typ    sql.NullInt64
			profile                         sql.NullInt64
		)
		err := rows.Scan(&r.ID, &title, &intent, &container, &screen, &x, &y, &typ,
			&profile, &r.Icon, &iconPkg, &iconRes)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrSourceUnavailable, err)
		}
		r.Title = title.String
		r.Intent = intent.String
		r.Container = container.Int64
		r.Screen = screen.Int64
		r.CellX = int(x.Int64)
		r.CellY = int(y.Int64)
		r.ItemType = layout.ItemType(typ.Int64)
		r.IconPackage = iconPkg.String
		r.IconResource = iconRes.String
		if profile.Valid {
			p := profile.Int64
			r.ProfileID = &p
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	SortByTitle(result)
	return result, nil
}

// SortByTitle orders rows by title using Unicode collation, then by id.
func SortByTitle(rows []Row) {
	c := collate.New(language.Und, collate.Loose)
	sort.SliceStable(rows, func(i, j int) bool {
		if cmp := c.CompareString(rows[i].Title, rows[j].Title); cmp != 0 {
			return cmp < 0
		}
		return rows[i].ID < rows[j].ID
	})
}

func hasColumn(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// StaticSource serves rows from memory in the given order.
type StaticSource []Row

// Rows returns the rows unchanged.
func (s StaticSource) Rows(context.Context) ([]Row, error) {
	return append([]Row(nil), s...), nil
}

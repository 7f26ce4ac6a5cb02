package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/layoutdb/internal/layout"
)

// Selection narrows a query, update or delete. Where is raw SQL with ?
// placeholders bound from Args.
type Selection struct {
	Columns []string // query projection; nil selects every column
	Where   string
	Args    []any
	OrderBy string
}

// ByID selects the single row with the given _id.
func ByID(id int64) Selection {
	return Selection{Where: ColID + " = ?", Args: []any{id}}
}

func (sel Selection) whereClause() string {
	if strings.TrimSpace(sel.Where) == "" {
		return ""
	}
	return " WHERE " + sel.Where
}

// Tx is a write transaction on the store.
type Tx struct {
	tx *sql.Tx
	s  *Store
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(&Tx{tx: sqlTx, s: s}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NextItemID issues a new item id from the store's allocator.
func (t *Tx) NextItemID() int64 {
	return t.s.ids.NextItemID()
}

// NextScreenID issues a new screen id from the store's allocator.
func (t *Tx) NextScreenID() int64 {
	return t.s.ids.NextScreenID()
}

// ProfileSerial returns the default profile serial.
func (t *Tx) ProfileSerial() int64 {
	return t.s.serial
}

// MaxID returns the largest _id in table, or 0 when the table is empty.
func (t *Tx) MaxID(ctx context.Context, table string) (int64, error) {
	return maxID(ctx, t.tx, table)
}

// Insert adds one row. v must carry _id. The modified column is stamped
// and the id is reported to the allocator.
func (t *Tx) Insert(ctx context.Context, table string, v Values) (int64, error) {
	raw, ok := v[ColID]
	if !ok || raw == nil {
		return 0, fmt.Errorf("insert into %s: %w", table, ErrMissingID)
	}
	id, ok := asInt64(raw)
	if !ok {
		return 0, fmt.Errorf("insert into %s: _id %v is not an integer", table, raw)
	}

	row := make(Values, len(v)+1)
	for k, val := range v {
		row[k] = val
	}
	row[ColModified] = t.s.stamp()

	cols, err := checkColumns(table, row)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}

	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = row[c]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders(len(cols)))

	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		if isConstraintError(err) {
			return 0, fmt.Errorf("insert into %s id %d: %w: %v", table, id, ErrConstraint, err)
		}
		return 0, fmt.Errorf("insert into %s id %d: %w", table, id, err)
	}

	t.s.ids.Observe(table, id)
	return id, nil
}

// InsertItem adds one item row.
func (t *Tx) InsertItem(ctx context.Context, it layout.Item) error {
	_, err := t.Insert(ctx, layout.TableItems, ItemValues(it))
	return err
}

// InsertScreen adds one screen row.
func (t *Tx) InsertScreen(ctx context.Context, sc layout.Screen) error {
	_, err := t.Insert(ctx, layout.TableScreens, ScreenValues(sc))
	return err
}

// EnsureScreen inserts screen id if it is missing, ranked after every
// existing screen. Reports whether a row was added.
func (t *Tx) EnsureScreen(ctx context.Context, id int64) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO screens (_id, screenRank, modified)
		SELECT ?, IFNULL(MAX(screenRank), -1) + 1, ? FROM screens`,
		id, t.s.stamp())
	if err != nil {
		return false, fmt.Errorf("ensure screen %d: %w", id, err)
	}
	n, err := affected(res)
	if err != nil {
		return false, err
	}
	t.s.ids.Observe(layout.TableScreens, id)
	return n > 0, nil
}

// Update changes rows matching sel and returns the number affected.
// The modified column is stamped.
func (t *Tx) Update(ctx context.Context, table string, v Values, sel Selection) (int, error) {
	if len(v) == 0 {
		return 0, nil
	}
	row := make(Values, len(v)+1)
	for k, val := range v {
		row[k] = val
	}
	row[ColModified] = t.s.stamp()

	cols, err := checkColumns(table, row)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(sel.Args))
	for i, c := range cols {
		sets[i] = c + " = ?"
		args = append(args, row[c])
	}
	args = append(args, sel.Args...)

	query := fmt.Sprintf("UPDATE %s SET %s%s", table, strings.Join(sets, ", "), sel.whereClause())
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		if isConstraintError(err) {
			return 0, fmt.Errorf("update %s: %w: %v", table, ErrConstraint, err)
		}
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	if id, ok := asInt64(v[ColID]); ok {
		t.s.ids.Observe(table, id)
	}
	return affected(res)
}

// Delete removes rows matching sel and returns the number removed.
func (t *Tx) Delete(ctx context.Context, table string, sel Selection) (int, error) {
	if _, err := checkColumns(table, nil); err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	res, err := t.tx.ExecContext(ctx, "DELETE FROM "+table+sel.whereClause(), sel.Args...)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	return affected(res)
}

// Query returns matching rows as column maps.
func (t *Tx) Query(ctx context.Context, table string, sel Selection) ([]Values, error) {
	return query(ctx, t.tx, table, sel)
}

// Items returns item rows matching sel.
func (t *Tx) Items(ctx context.Context, sel Selection) ([]layout.Item, error) {
	return items(ctx, t.tx, sel)
}

// Screens returns every screen ordered by rank.
func (t *Tx) Screens(ctx context.Context) ([]layout.Screen, error) {
	return screens(ctx, t.tx)
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func affected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

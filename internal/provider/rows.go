package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/layoutdb/internal/layout"
	"github.com/roach88/layoutdb/internal/store"
)

// Op is one step of a batch, addressed by resource path.
type Op struct {
	Kind      store.OpKind
	Path      string
	Values    store.Values
	Selection store.Selection
}

// Query returns rows under path. Reads are open to every caller.
func (p *Provider) Query(ctx context.Context, path string, sel store.Selection) ([]store.Values, error) {
	pth, sel, err := resolve(path, sel)
	if err != nil {
		return nil, err
	}
	return p.store.Query(ctx, pth.Table, sel)
}

// Insert adds one row under a table path and returns its id.
func (p *Provider) Insert(ctx context.Context, c Caller, path string, v store.Values) (int64, error) {
	pth, err := tablePath(path)
	if err != nil {
		return 0, err
	}
	row, widget, err := p.prepare(ctx, c, pth.Table, v)
	if err != nil {
		return 0, err
	}

	var id int64
	err = p.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		id, err = p.insertRow(ctx, tx, c, pth.Table, row)
		return err
	})
	if err != nil {
		p.release(ctx, widget)
		return 0, err
	}
	p.written(c, store.Path{Table: pth.Table, ID: id, HasID: true})
	return id, nil
}

// BulkInsert adds rows under a table path in one transaction. If any
// row fails nothing is written and 0 is returned.
func (p *Provider) BulkInsert(ctx context.Context, c Caller, path string, rows []store.Values) (int, error) {
	pth, err := tablePath(path)
	if err != nil {
		return 0, err
	}

	prepared := make([]store.Values, 0, len(rows))
	var widgets []int
	for _, v := range rows {
		row, widget, err := p.prepare(ctx, c, pth.Table, v)
		if err != nil {
			p.release(ctx, widgets...)
			return 0, err
		}
		prepared = append(prepared, row)
		widgets = append(widgets, widget)
	}

	err = p.store.WithTx(ctx, func(tx *store.Tx) error {
		for i, row := range prepared {
			if _, err := p.insertRow(ctx, tx, c, pth.Table, row); err != nil {
				return fmt.Errorf("bulk insert row %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		p.release(ctx, widgets...)
		return 0, err
	}
	p.written(c, pth)
	return len(prepared), nil
}

// Update changes rows under path. A row path cannot carry a where clause.
func (p *Provider) Update(ctx context.Context, c Caller, path string, v store.Values, sel store.Selection) (int, error) {
	pth, sel, err := resolve(path, sel)
	if err != nil {
		return 0, err
	}
	n, err := p.store.Update(ctx, pth.Table, v, sel)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		p.written(c, pth)
	}
	return n, nil
}

// Delete removes rows under path. A row path cannot carry a where clause.
func (p *Provider) Delete(ctx context.Context, c Caller, path string, sel store.Selection) (int, error) {
	pth, sel, err := resolve(path, sel)
	if err != nil {
		return 0, err
	}
	n, err := p.store.Delete(ctx, pth.Table, sel)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		p.written(c, pth)
	}
	return n, nil
}

// ApplyBatch runs ops in one transaction. If any op fails none of them
// take effect.
func (p *Provider) ApplyBatch(ctx context.Context, c Caller, ops []Op) ([]store.OpResult, error) {
	type step struct {
		op   Op
		path store.Path
		row  store.Values
	}
	steps := make([]step, 0, len(ops))
	var widgets []int
	fail := func(err error) ([]store.OpResult, error) {
		p.release(ctx, widgets...)
		return nil, err
	}

	for i, op := range ops {
		st := step{op: op}
		var err error
		switch op.Kind {
		case store.OpInsert:
			if st.path, err = tablePath(op.Path); err != nil {
				return fail(fmt.Errorf("batch op %d: %w", i, err))
			}
			var widget int
			if st.row, widget, err = p.prepare(ctx, c, st.path.Table, op.Values); err != nil {
				return fail(fmt.Errorf("batch op %d: %w", i, err))
			}
			widgets = append(widgets, widget)
		case store.OpUpdate, store.OpDelete:
			if st.path, st.op.Selection, err = resolve(op.Path, op.Selection); err != nil {
				return fail(fmt.Errorf("batch op %d: %w", i, err))
			}
		default:
			return fail(fmt.Errorf("batch op %d: unknown op kind %d", i, op.Kind))
		}
		steps = append(steps, st)
	}

	results := make([]store.OpResult, len(steps))
	err := p.store.WithTx(ctx, func(tx *store.Tx) error {
		for i, st := range steps {
			var err error
			switch st.op.Kind {
			case store.OpInsert:
				results[i].ID, err = p.insertRow(ctx, tx, c, st.path.Table, st.row)
				results[i].Count = 1
			case store.OpUpdate:
				results[i].Count, err = tx.Update(ctx, st.path.Table, st.op.Values, st.op.Selection)
			case store.OpDelete:
				results[i].Count, err = tx.Delete(ctx, st.path.Table, st.op.Selection)
			}
			if err != nil {
				return fmt.Errorf("batch op %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return fail(err)
	}

	seen := map[string]bool{}
	for _, st := range steps {
		key := st.path.Table
		if !seen[key] {
			seen[key] = true
			p.written(c, store.Path{Table: key})
		}
	}
	return results, nil
}

// prepare copies v and, for external callers, replaces the id and binds
// a widget handle when one is needed. Returns the widget handle it
// allocated, or layout.NoWidgetID.
func (p *Provider) prepare(ctx context.Context, c Caller, table string, v store.Values) (store.Values, int, error) {
	row := make(store.Values, len(v)+1)
	for k, val := range v {
		row[k] = val
	}
	if c.Owner {
		return row, layout.NoWidgetID, nil
	}

	switch table {
	case layout.TableItems:
		row[store.ColID] = p.store.IDs().NextItemID()
	case layout.TableScreens:
		row[store.ColID] = p.store.IDs().NextScreenID()
		return row, layout.NoWidgetID, nil
	}

	if t, _ := intOf(row[store.ColItemType]); layout.ItemType(t) != layout.ItemTypeAppWidget {
		return row, layout.NoWidgetID, nil
	}
	if w, ok := intOf(row[store.ColAppWidgetID]); ok && w != layout.NoWidgetID {
		return row, layout.NoWidgetID, nil
	}

	provider, _ := row[store.ColAppWidgetProvider].(string)
	if provider == "" || p.widgets == nil {
		return nil, layout.NoWidgetID, fmt.Errorf("%w: no provider or widget host", ErrWidgetBind)
	}
	id, err := p.widgets.Allocate(ctx)
	if err != nil {
		return nil, layout.NoWidgetID, fmt.Errorf("%w: %v", ErrWidgetBind, err)
	}
	if err := p.widgets.Bind(ctx, id, provider); err != nil {
		p.widgets.Release(ctx, id)
		return nil, layout.NoWidgetID, fmt.Errorf("%w: %v", ErrWidgetBind, err)
	}
	slog.Debug("bound widget for external insert", "caller", c.Name, "widget_id", id, "provider", provider)
	row[store.ColAppWidgetID] = id
	return row, id, nil
}

// insertRow writes one prepared row. External desktop items also get
// their screen recorded.
func (p *Provider) insertRow(ctx context.Context, tx *store.Tx, c Caller, table string, row store.Values) (int64, error) {
	id, err := tx.Insert(ctx, table, row)
	if err != nil {
		return 0, err
	}
	if c.Owner || table != layout.TableItems {
		return id, nil
	}
	if container, _ := intOf(row[store.ColContainer]); container != layout.ContainerDesktop {
		return id, nil
	}
	if screen, ok := intOf(row[store.ColScreen]); ok {
		if _, err := tx.EnsureScreen(ctx, screen); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (p *Provider) release(ctx context.Context, widgets ...int) {
	if p.widgets == nil {
		return
	}
	for _, w := range widgets {
		if w != layout.NoWidgetID {
			p.widgets.Release(ctx, w)
		}
	}
}

func tablePath(path string) (store.Path, error) {
	pth, err := store.ParsePath(path)
	if err != nil {
		return store.Path{}, err
	}
	if pth.HasID {
		return store.Path{}, fmt.Errorf("%w: %s: inserts take a table path", store.ErrInvalidPath, path)
	}
	return pth, nil
}

func resolve(path string, sel store.Selection) (store.Path, store.Selection, error) {
	pth, err := store.ParsePath(path)
	if err != nil {
		return store.Path{}, store.Selection{}, err
	}
	sel, err = pth.Selection(sel)
	if err != nil {
		return store.Path{}, store.Selection{}, err
	}
	return pth, sel, nil
}

func intOf(v any) (int64, bool) {
	switch n := v.(type) {
	case layout.ItemType:
		return int64(n), true
	default:
		return store.IntValue(n)
	}
}

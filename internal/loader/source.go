package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/layoutdb/internal/device"
	"github.com/roach88/layoutdb/internal/layout"
	"github.com/roach88/layoutdb/internal/store"
)

// Env is what a source needs from the device to place items.
type Env struct {
	Packages device.Packages   // nil accepts every component
	Widgets  device.WidgetHost // nil skips every widget
}

// Result reports what a source placed.
type Result struct {
	Items   int     // top-level entries placed
	Screens []int64 // desktop screens referenced, ascending
}

// Source places a layout's items through a store transaction.
type Source interface {
	Name() string
	Load(ctx context.Context, tx *store.Tx, env Env) (Result, error)
}

// DocumentSource places a parsed Document. Entries that cannot be placed
// on this device are skipped.
type DocumentSource struct {
	name string
	doc  *Document
}

// NewDocumentSource wraps doc.
func NewDocumentSource(name string, doc *Document) *DocumentSource {
	return &DocumentSource{name: name, doc: doc}
}

// Name returns the source name.
func (s *DocumentSource) Name() string { return s.name }

// Load inserts every placeable entry with freshly issued ids.
func (s *DocumentSource) Load(ctx context.Context, tx *store.Tx, env Env) (Result, error) {
	screens := map[int64]bool{}
	count := 0
	for i, e := range s.doc.Items {
		placed, err := s.place(ctx, tx, env, e)
		if err != nil {
			return Result{}, fmt.Errorf("%s: item %d: %w", s.name, i, err)
		}
		if !placed {
			continue
		}
		count++
		if e.container() == layout.ContainerDesktop {
			screens[e.Screen] = true
		}
	}

	ids := make([]int64, 0, len(screens))
	for id := range screens {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return Result{Items: count, Screens: ids}, nil
}

func (s *DocumentSource) place(ctx context.Context, tx *store.Tx, env Env, e Entry) (bool, error) {
	t, err := layout.ParseItemType(e.Type)
	if err != nil {
		return false, err
	}

	it := layout.Item{
		Title:       e.Title,
		Container:   e.container(),
		Screen:      e.Screen,
		CellX:       e.X,
		CellY:       e.Y,
		ItemType:    t,
		AppWidgetID: layout.NoWidgetID,
		ProfileID:   tx.ProfileSerial(),
	}
	if it.Container == layout.ContainerHotseat {
		it.CellX = int(e.Screen)
		it.CellY = 0
	}

	switch t {
	case layout.ItemTypeApplication, layout.ItemTypeShortcut:
		ok, intent := s.resolve(env, e, t, tx.ProfileSerial())
		if !ok {
			return false, nil
		}
		it.Intent = intent
		it.ID = tx.NextItemID()
		return true, tx.InsertItem(ctx, it)

	case layout.ItemTypeAppWidget:
		if env.Widgets == nil {
			slog.Debug("no widget host, skipping widget", "provider", e.Provider)
			return false, nil
		}
		wid, err := env.Widgets.Allocate(ctx)
		if err != nil {
			slog.Warn("widget allocation failed", "provider", e.Provider, "error", err)
			return false, nil
		}
		if err := env.Widgets.Bind(ctx, wid, e.Provider); err != nil {
			env.Widgets.Release(ctx, wid)
			slog.Warn("widget bind failed", "provider", e.Provider, "error", err)
			return false, nil
		}
		it.AppWidgetID = wid
		it.AppWidgetProvider = e.Provider
		it.ID = tx.NextItemID()
		return true, tx.InsertItem(ctx, it)

	case layout.ItemTypeFolder:
		return s.placeFolder(ctx, tx, env, e, it)
	}
	return false, nil
}

// placeFolder inserts a folder and its contents. A folder that ends up
// with no placeable children is dropped; one with a single child is
// replaced by that child.
func (s *DocumentSource) placeFolder(ctx context.Context, tx *store.Tx, env Env, e Entry, folder layout.Item) (bool, error) {
	folder.ID = tx.NextItemID()
	if err := tx.InsertItem(ctx, folder); err != nil {
		return false, err
	}

	var children []int64
	for _, c := range e.Items {
		t, err := layout.ParseItemType(c.Type)
		if err != nil {
			return false, err
		}
		ok, intent := s.resolve(env, c, t, tx.ProfileSerial())
		if !ok {
			continue
		}
		rank := len(children)
		child := layout.Item{
			ID:          tx.NextItemID(),
			Title:       c.Title,
			Container:   folder.ID,
			CellX:       rank,
			Rank:        rank,
			ItemType:    t,
			Intent:      intent,
			AppWidgetID: layout.NoWidgetID,
			ProfileID:   tx.ProfileSerial(),
		}
		if err := tx.InsertItem(ctx, child); err != nil {
			return false, err
		}
		children = append(children, child.ID)
	}

	switch len(children) {
	case 0:
		_, err := tx.Delete(ctx, layout.TableItems, store.ByID(folder.ID))
		return false, err
	case 1:
		if _, err := tx.Delete(ctx, layout.TableItems, store.ByID(folder.ID)); err != nil {
			return false, err
		}
		_, err := tx.Update(ctx, layout.TableItems, store.Values{
			store.ColContainer: folder.Container,
			store.ColScreen:    folder.Screen,
			store.ColCellX:     folder.CellX,
			store.ColCellY:     folder.CellY,
			store.ColRank:      0,
		}, store.ByID(children[0]))
		return err == nil, err
	}
	return true, nil
}

// resolve returns the intent string for an app or shortcut entry and
// whether it can be placed.
func (s *DocumentSource) resolve(env Env, e Entry, t layout.ItemType, serial int64) (bool, string) {
	if t == layout.ItemTypeShortcut {
		return true, e.Intent
	}
	if t != layout.ItemTypeApplication {
		return false, ""
	}
	if env.Packages != nil && !env.Packages.Launchable(e.Component, serial) {
		slog.Debug("component not launchable, skipping", "component", e.Component)
		return false, ""
	}
	return true, layout.AppIntent(e.Component).String()
}

// Apply loads src into s in one transaction and records a screen row for
// every referenced screen, ranked in ascending id order. Nothing is
// written if the source fails.
func Apply(ctx context.Context, s *store.Store, src Source, env Env) (Result, error) {
	var res Result
	err := s.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		res, err = src.Load(ctx, tx, env)
		if err != nil {
			return err
		}
		for rank, id := range res.Screens {
			if err := tx.InsertScreen(ctx, layout.Screen{ID: id, Rank: rank}); err != nil {
				return fmt.Errorf("record screen %d: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if err := s.IDs().Initialize(ctx, s); err != nil {
		return Result{}, err
	}
	slog.Info("layout loaded", "source", src.Name(), "items", res.Items, "screens", len(res.Screens))
	return res, nil
}

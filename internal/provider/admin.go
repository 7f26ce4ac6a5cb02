package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/layoutdb/internal/layout"
	"github.com/roach88/layoutdb/internal/legacy"
	"github.com/roach88/layoutdb/internal/loader"
	"github.com/roach88/layoutdb/internal/notify"
	"github.com/roach88/layoutdb/internal/prefs"
	"github.com/roach88/layoutdb/internal/snapshot"
	"github.com/roach88/layoutdb/internal/store"
)

var (
	itemsPath   = store.Path{Table: layout.TableItems}
	screensPath = store.Path{Table: layout.TableScreens}
)

// NewItemID issues an item id.
func (p *Provider) NewItemID(c Caller) (int64, error) {
	if err := requireOwner(c, "new item id"); err != nil {
		return 0, err
	}
	return p.store.IDs().NextItemID(), nil
}

// NewScreenID issues a screen id.
func (p *Provider) NewScreenID(c Caller) (int64, error) {
	if err := requireOwner(c, "new screen id"); err != nil {
		return 0, err
	}
	return p.store.IDs().NextScreenID(), nil
}

// CreateEmptyStore drops every row and marks the store for a first-run
// layout load.
func (p *Provider) CreateEmptyStore(ctx context.Context, c Caller) error {
	if err := requireOwner(c, "create empty store"); err != nil {
		return err
	}
	return p.createEmpty(ctx)
}

func (p *Provider) createEmpty(ctx context.Context) error {
	if err := p.store.Recreate(ctx); err != nil {
		return err
	}
	slog.Warn("layout store recreated empty")
	if err := p.markEmpty(ctx); err != nil {
		return err
	}
	p.post(notify.Event{Kind: notify.KindChanged, Path: itemsPath.String()})
	p.post(notify.Event{Kind: notify.KindChanged, Path: screensPath.String()})
	return nil
}

// FirstRunPending reports whether the store is waiting for a first-run
// layout.
func (p *Provider) FirstRunPending() bool {
	return p.prefs.Bool(prefs.KeyEmptyDatabaseCreated)
}

// ClearFirstRunFlag drops the pending first-run marker.
func (p *Provider) ClearFirstRunFlag(c Caller) error {
	if err := requireOwner(c, "clear first-run flag"); err != nil {
		return err
	}
	return p.prefs.Remove(prefs.KeyEmptyDatabaseCreated)
}

// LoadResult reports what LoadInitialLayout did.
type LoadResult struct {
	Loaded bool          // false when no first-run load was pending
	Origin loader.Origin // where the loaded layout came from
	Layout loader.Result
}

// LoadInitialLayout loads a first-run layout if one is pending. The store
// is emptied first, then the configured providers are tried; if the
// chosen external layout fails or places nothing, the store is recreated
// and the built-in default is loaded instead. The pending flag is
// cleared afterwards.
func (p *Provider) LoadInitialLayout(ctx context.Context, c Caller) (LoadResult, error) {
	if err := requireOwner(c, "load initial layout"); err != nil {
		return LoadResult{}, err
	}
	if !p.FirstRunPending() {
		return LoadResult{}, nil
	}

	// Rows left by a partial restore would collide with the layout's ids.
	if err := p.createEmpty(ctx); err != nil {
		return LoadResult{}, err
	}

	env := loader.Env{Packages: p.packages, Widgets: p.widgets}
	src, origin := loader.Choose(ctx, p.layouts)
	res, err := loader.Apply(ctx, p.store, src, env)

	if origin != loader.OriginBuiltIn && (err != nil || res.Items <= 0) {
		slog.Warn("external layout unusable, loading default", "origin", string(origin), "items", res.Items, "error", err)
		if err := p.createEmpty(ctx); err != nil {
			return LoadResult{}, err
		}
		origin = loader.OriginBuiltIn
		res, err = loader.Apply(ctx, p.store, loader.BuiltIn(), env)
	}
	if err != nil {
		return LoadResult{}, fmt.Errorf("load %s layout: %w", origin, err)
	}

	if err := p.prefs.Remove(prefs.KeyEmptyDatabaseCreated); err != nil {
		return LoadResult{}, err
	}
	p.post(notify.Event{Kind: notify.KindChanged, Path: itemsPath.String()})
	return LoadResult{Loaded: true, Origin: origin, Layout: res}, nil
}

// MigrateLegacyShortcuts replaces the layout with one imported from src.
// If nothing could be imported the first-run layout is loaded instead.
func (p *Provider) MigrateLegacyShortcuts(ctx context.Context, c Caller, src legacy.Source) (legacy.Result, error) {
	if err := requireOwner(c, "migrate legacy shortcuts"); err != nil {
		return legacy.Result{}, err
	}
	if err := p.createEmpty(ctx); err != nil {
		return legacy.Result{}, err
	}

	im := &legacy.Importer{Store: p.store, Profile: p.profile, Users: p.users, Packages: p.packages}
	res, err := im.Import(ctx, src)
	if err != nil || res.Items == 0 {
		slog.Warn("legacy import produced nothing, loading default layout", "error", err)
		if err := p.createEmpty(ctx); err != nil {
			return res, err
		}
		if _, err := p.LoadInitialLayout(ctx, c); err != nil {
			return res, err
		}
		return res, nil
	}

	if err := p.prefs.Remove(prefs.KeyEmptyDatabaseCreated); err != nil {
		return res, err
	}
	p.post(notify.Event{Kind: notify.KindChanged, Path: itemsPath.String()})
	return res, nil
}

// RebuildFolderRanks derives folder-content ranks from grid position.
func (p *Provider) RebuildFolderRanks(ctx context.Context, c Caller) error {
	if err := requireOwner(c, "rebuild folder ranks"); err != nil {
		return err
	}
	if err := p.store.RebuildFolderRanks(ctx); err != nil {
		return err
	}
	p.written(c, itemsPath)
	return nil
}

// ConvertShortcutsToApps turns launcher-target shortcuts into app items
// and returns how many changed.
func (p *Provider) ConvertShortcutsToApps(ctx context.Context, c Caller) (int, error) {
	if err := requireOwner(c, "convert shortcuts"); err != nil {
		return 0, err
	}
	n, err := p.store.ConvertShortcutsToApps(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		p.written(c, itemsPath)
	}
	return n, nil
}

// DeleteEmptyFolders removes folders with no contents and returns their
// ids. The result is never nil.
func (p *Provider) DeleteEmptyFolders(ctx context.Context, c Caller) ([]int64, error) {
	if err := requireOwner(c, "delete empty folders"); err != nil {
		return []int64{}, err
	}
	deleted, err := p.store.DeleteEmptyFolders(ctx)
	if err != nil {
		return deleted, err
	}
	if len(deleted) > 0 {
		p.written(c, itemsPath)
	}
	return deleted, nil
}

// Export writes a snapshot of the store to w.
func (p *Provider) Export(ctx context.Context, w io.Writer, ex snapshot.Exporter) (snapshot.Stats, error) {
	return ex.Export(ctx, p.store, w)
}

// Import loads a snapshot from r. Observers are asked to reload.
func (p *Provider) Import(ctx context.Context, c Caller, r io.Reader, opts snapshot.ImportOptions) (snapshot.Stats, error) {
	if err := requireOwner(c, "import snapshot"); err != nil {
		return snapshot.Stats{}, err
	}
	st, err := snapshot.Import(ctx, p.store, r, opts)
	if err != nil {
		return st, err
	}
	if err := p.prefs.Remove(prefs.KeyEmptyDatabaseCreated); err != nil {
		return st, err
	}
	p.post(notify.Event{Kind: notify.KindReload})
	return st, nil
}

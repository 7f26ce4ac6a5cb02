// Package provider is the application-facing surface of the layout
// store.
//
// Row access is addressed by resource path ("/items", "/items/42",
// "/screens", "/screens/3"). Every write names a Caller. The owner may
// write rows as given and run administrative operations; any other
// caller is treated as an external writer: inserted rows get fresh ids,
// widgets are bound on its behalf, and a reload is requested after each
// committed write.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/layoutdb/internal/device"
	"github.com/roach88/layoutdb/internal/layout"
	"github.com/roach88/layoutdb/internal/loader"
	"github.com/roach88/layoutdb/internal/notify"
	"github.com/roach88/layoutdb/internal/prefs"
	"github.com/roach88/layoutdb/internal/store"
)

var (
	// ErrPermissionDenied is returned when a non-owner caller attempts an
	// owner-only operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrWidgetBind is returned when an external insert needs a widget
	// handle that cannot be allocated or bound. No row is written.
	ErrWidgetBind = errors.New("cannot bind widget")
)

// Caller identifies who is making a request.
type Caller struct {
	Name  string
	Owner bool
}

// Owner is the caller that owns the store.
var Owner = Caller{Name: "owner", Owner: true}

// External returns a non-owner caller.
func External(name string) Caller {
	return Caller{Name: name}
}

// Config wires a Provider.
type Config struct {
	Store    *store.Store
	Prefs    *prefs.Prefs       // required
	Events   *notify.Dispatcher // nil drops notifications
	Widgets  device.WidgetHost  // nil rejects external widget inserts
	Users    device.Users
	Packages device.Packages
	Profile  layout.Profile

	// Layouts are tried in order by LoadInitialLayout before the
	// built-in default.
	Layouts []loader.Provider
}

// Provider serves reads, writes and administrative operations.
type Provider struct {
	store    *store.Store
	prefs    *prefs.Prefs
	events   *notify.Dispatcher
	widgets  device.WidgetHost
	users    device.Users
	packages device.Packages
	profile  layout.Profile
	layouts  []loader.Provider
}

// New creates a Provider over an open store. If the store was created or
// recreated empty, the first-run flag is set and widget bindings are
// reset.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Store == nil || cfg.Prefs == nil {
		return nil, errors.New("provider: store and prefs are required")
	}
	p := &Provider{
		store:    cfg.Store,
		prefs:    cfg.Prefs,
		events:   cfg.Events,
		widgets:  cfg.Widgets,
		users:    cfg.Users,
		packages: cfg.Packages,
		profile:  cfg.Profile,
		layouts:  cfg.Layouts,
	}
	if out := cfg.Store.Outcome(); out.Empty() {
		if out.Err != nil {
			slog.Warn("layout store was wiped", "from", out.From, "error", out.Err)
		}
		if err := p.markEmpty(ctx); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Store returns the underlying store.
func (p *Provider) Store() *store.Store {
	return p.store
}

// markEmpty records that the store holds no layout and discards widget
// bindings that referred to the old rows.
func (p *Provider) markEmpty(ctx context.Context) error {
	if err := p.prefs.SetBool(prefs.KeyEmptyDatabaseCreated, true); err != nil {
		return fmt.Errorf("set first-run flag: %w", err)
	}
	if p.widgets != nil {
		if err := p.widgets.Reset(ctx); err != nil {
			slog.Warn("widget host reset failed", "error", err)
		}
	}
	p.post(notify.Event{Kind: notify.KindWidgetHostReset})
	return nil
}

func (p *Provider) post(e notify.Event) {
	if p.events != nil {
		p.events.Post(e)
	}
}

// written reports a committed write to observers.
func (p *Provider) written(c Caller, path store.Path) {
	p.post(notify.Event{Kind: notify.KindChanged, Path: path.String()})
	if !c.Owner {
		p.post(notify.Event{Kind: notify.KindReload})
	}
}

func requireOwner(c Caller, op string) error {
	if !c.Owner {
		return fmt.Errorf("%s by %q: %w", op, c.Name, ErrPermissionDenied)
	}
	return nil
}

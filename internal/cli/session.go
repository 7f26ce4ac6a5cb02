package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/roach88/layoutdb/internal/config"
	"github.com/roach88/layoutdb/internal/device"
	"github.com/roach88/layoutdb/internal/loader"
	"github.com/roach88/layoutdb/internal/notify"
	"github.com/roach88/layoutdb/internal/prefs"
	"github.com/roach88/layoutdb/internal/provider"
	"github.com/roach88/layoutdb/internal/store"
)

// session is an open store with everything wired around it.
type session struct {
	cfg      config.Config
	store    *store.Store
	prefs    *prefs.Prefs
	events   *notify.Dispatcher
	provider *provider.Provider
}

// openSession loads config and opens the store, reporting a wiped store
// through f.
func openSession(ctx context.Context, opts *RootOptions, f *OutputFormatter) (*session, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeOpen, "cannot create data dir", err)
	}

	pr, err := prefs.Open(cfg.PrefsPath())
	if err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeOpen, "cannot read preferences", err)
	}

	f.VerboseLog("Opening %s (driver %s)", cfg.DatabasePath(), cfg.Driver)
	st, err := store.Open(ctx, cfg.DatabasePath(), store.Options{
		Driver:        cfg.Driver,
		ProfileSerial: cfg.ProfileSerial,
		Hooks:         prefs.MigrationHooks{Prefs: pr},
	})
	if err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeOpen, "cannot open store", err)
	}

	out := st.Outcome()
	if out.Recreated {
		if out.Err != nil {
			f.Warn("store was wiped: %v", out.Err)
		} else {
			f.Warn("store was wiped: version %d cannot be upgraded to %d", out.From, out.To)
		}
	}

	events := notify.NewDispatcher()
	events.Subscribe(func(e notify.Event) {
		f.VerboseLog("event: %s %s", e.Kind, e.Path)
	})

	catalog := device.NewCatalog(cfg.ProfileSerial, cfg.Profiles, cfg.Components)
	p, err := provider.New(ctx, provider.Config{
		Store:    st,
		Prefs:    pr,
		Events:   events,
		Widgets:  device.NewLocalHost(pr, cfg.Widgets),
		Users:    catalog,
		Packages: catalog,
		Profile:  cfg.Profile(),
		Layouts:  layoutProviders(cfg),
	})
	if err != nil {
		st.Close()
		return nil, f.fail(ExitCommandError, ErrCodeOpen, "cannot start provider", err)
	}

	return &session{cfg: cfg, store: st, prefs: pr, events: events, provider: p}, nil
}

func layoutProviders(cfg config.Config) []loader.Provider {
	var ps []loader.Provider
	if cfg.RestrictionLayout != "" {
		ps = append(ps, loader.RestrictionProvider{Path: cfg.RestrictionLayout})
	}
	if cfg.PartnerDir != "" {
		ps = append(ps, loader.PartnerProvider{Dir: cfg.PartnerDir})
	}
	return ps
}

// Close delivers pending events and closes the store.
func (s *session) Close() {
	s.events.Drain()
	s.events.Close()
	if err := s.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

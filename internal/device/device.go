// Package device describes the environment a layout is placed into:
// which user profiles exist, which activities can be launched and how
// widgets are bound.
package device

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/layoutdb/internal/layout"
	"github.com/roach88/layoutdb/internal/prefs"
)

// Users resolves profile serial numbers.
type Users interface {
	// Exists reports whether a profile with serial is present.
	Exists(serial int64) bool
	// DefaultSerial returns the serial of the primary profile.
	DefaultSerial() int64
}

// Packages resolves launch targets.
type Packages interface {
	// Launchable reports whether component ("pkg/.Cls") is an installed,
	// launchable activity for the profile.
	Launchable(component string, serial int64) bool
}

// Catalog is a static Users and Packages implementation.
// An empty component set accepts every component.
type Catalog struct {
	defaultSerial int64
	profiles      map[int64]bool
	components    map[string]bool
}

// NewCatalog builds a catalog. The default serial is always a known profile.
func NewCatalog(defaultSerial int64, profiles []int64, components []string) *Catalog {
	c := &Catalog{
		defaultSerial: defaultSerial,
		profiles:      map[int64]bool{defaultSerial: true},
		components:    map[string]bool{},
	}
	for _, p := range profiles {
		c.profiles[p] = true
	}
	for _, comp := range components {
		c.components[normalizeComponent(comp)] = true
	}
	return c
}

func (c *Catalog) Exists(serial int64) bool { return c.profiles[serial] }

func (c *Catalog) DefaultSerial() int64 { return c.defaultSerial }

func (c *Catalog) Launchable(component string, _ int64) bool {
	if len(c.components) == 0 {
		return true
	}
	return c.components[normalizeComponent(component)]
}

// normalizeComponent expands "pkg/.Cls" to "pkg/pkg.Cls".
func normalizeComponent(component string) string {
	in := layout.Intent{Component: component}
	pkg := in.ComponentPackage()
	cls := in.ComponentClass()
	if cls == "" {
		return component
	}
	return pkg + "/" + cls
}

// ErrBindFailed is returned when a widget handle cannot be bound.
var ErrBindFailed = errors.New("widget bind failed")

// WidgetHost allocates and binds widget handles.
type WidgetHost interface {
	// Allocate reserves a new widget handle.
	Allocate(ctx context.Context) (int, error)
	// Bind attaches provider to a reserved handle.
	Bind(ctx context.Context, id int, provider string) error
	// Release frees a reserved handle.
	Release(ctx context.Context, id int)
	// Reset discards every binding.
	Reset(ctx context.Context) error
}

// LocalHost is a WidgetHost that issues sequential handles, persisting
// the counter in prefs. Providers not in the allow list fail to bind;
// an empty list allows every provider.
type LocalHost struct {
	mu      sync.Mutex
	prefs   *prefs.Prefs
	allowed map[string]bool
	bound   map[int]string
}

// NewLocalHost creates a host backed by p.
func NewLocalHost(p *prefs.Prefs, allowed []string) *LocalHost {
	h := &LocalHost{prefs: p, allowed: map[string]bool{}, bound: map[int]string{}}
	for _, a := range allowed {
		h.allowed[normalizeComponent(a)] = true
	}
	return h
}

func (h *LocalHost) Allocate(context.Context) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.prefs.Int(prefs.KeyNextWidgetID, 1)
	if err := h.prefs.SetInt(prefs.KeyNextWidgetID, id+1); err != nil {
		return 0, fmt.Errorf("allocate widget id: %w", err)
	}
	return id, nil
}

func (h *LocalHost) Bind(_ context.Context, id int, provider string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.allowed) > 0 && !h.allowed[normalizeComponent(provider)] {
		return fmt.Errorf("%w: %s not allowed", ErrBindFailed, provider)
	}
	h.bound[id] = provider
	return nil
}

func (h *LocalHost) Release(_ context.Context, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.bound, id)
}

func (h *LocalHost) Reset(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bound = map[int]string{}
	return nil
}

// Bound returns the provider bound to id.
func (h *LocalHost) Bound(id int) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.bound[id]
	return p, ok
}

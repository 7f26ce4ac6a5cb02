// Package ids issues item and screen identities.
//
// An Allocator keeps one watermark per table: the largest id it has seen
// or issued. Next ids are always watermark+1, so issued ids increase
// strictly and are never reused while the allocator lives.
//
// Watermarks are a cache. The store is the source of truth and the
// allocator can be re-seeded from it at any time with Initialize.
//
// Thread-safety: Allocator is safe for concurrent use (atomic operations).
// The store's single-writer design means only one goroutine typically
// issues ids.
package ids

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/roach88/layoutdb/internal/layout"
)

// uninitialized marks a watermark that has not been seeded.
const uninitialized = -1

// ErrNotInitialized is the panic value when an id is requested before
// the allocator has been seeded.
var ErrNotInitialized = errors.New("id allocator used before initialization")

// MaxScanner reports the largest id stored in a table, or 0 for an
// empty table.
type MaxScanner interface {
	MaxID(ctx context.Context, table string) (int64, error)
}

// Allocator issues ids for the items and screens tables.
type Allocator struct {
	item   atomic.Int64
	screen atomic.Int64
}

// New creates an allocator with both watermarks unset.
func New() *Allocator {
	a := &Allocator{}
	a.item.Store(uninitialized)
	a.screen.Store(uninitialized)
	return a
}

// NewAt creates an allocator seeded at the given watermarks.
// Used by tests and by callers that already know the store's maxima.
func NewAt(item, screen int64) *Allocator {
	a := &Allocator{}
	a.item.Store(item)
	a.screen.Store(screen)
	return a
}

// Initialize seeds both watermarks from the store. An empty table scans
// as 0, so the first issued id is 1. A watermark never moves backwards:
// if the allocator has already seen a larger id it keeps it.
func (a *Allocator) Initialize(ctx context.Context, s MaxScanner) error {
	item, err := s.MaxID(ctx, layout.TableItems)
	if err != nil {
		return fmt.Errorf("scan max item id: %w", err)
	}
	screen, err := s.MaxID(ctx, layout.TableScreens)
	if err != nil {
		return fmt.Errorf("scan max screen id: %w", err)
	}
	raise(&a.item, max(item, 0))
	raise(&a.screen, max(screen, 0))
	return nil
}

// Reset forces both watermarks. Only valid when the store was just wiped.
func (a *Allocator) Reset(item, screen int64) {
	a.item.Store(item)
	a.screen.Store(screen)
}

// NextItemID issues the next item id.
// Panics with ErrNotInitialized if the allocator was never seeded.
func (a *Allocator) NextItemID() int64 {
	return next(&a.item)
}

// NextScreenID issues the next screen id.
// Panics with ErrNotInitialized if the allocator was never seeded.
func (a *Allocator) NextScreenID() int64 {
	return next(&a.screen)
}

// Observe records an id inserted by someone else so it is never issued.
func (a *Allocator) Observe(table string, id int64) {
	switch table {
	case layout.TableItems:
		raise(&a.item, id)
	case layout.TableScreens:
		raise(&a.screen, id)
	}
}

// Watermarks returns the current item and screen watermarks.
func (a *Allocator) Watermarks() (item, screen int64) {
	return a.item.Load(), a.screen.Load()
}

// Initialized reports whether both watermarks are seeded.
func (a *Allocator) Initialized() bool {
	return a.item.Load() != uninitialized && a.screen.Load() != uninitialized
}

func next(w *atomic.Int64) int64 {
	for {
		cur := w.Load()
		if cur == uninitialized {
			panic(ErrNotInitialized)
		}
		if w.CompareAndSwap(cur, cur+1) {
			return cur + 1
		}
	}
}

func raise(w *atomic.Int64, id int64) {
	for {
		cur := w.Load()
		if id <= cur {
			return
		}
		if w.CompareAndSwap(cur, id) {
			return
		}
	}
}

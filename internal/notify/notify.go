// Package notify delivers layout change notifications to observers.
//
// Writers Post events; a Dispatcher's Run loop delivers them in FIFO
// order to every subscribed Listener. Posting never blocks a writer.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Kind distinguishes notification kinds.
type Kind int

const (
	// KindChanged reports that rows under Path changed.
	KindChanged Kind = iota + 1
	// KindReload asks the owning process to reload its layout because a
	// non-owner wrote to the store.
	KindReload
	// KindWidgetHostReset reports that the store was recreated empty and
	// every widget binding must be discarded.
	KindWidgetHostReset
)

func (k Kind) String() string {
	switch k {
	case KindChanged:
		return "changed"
	case KindReload:
		return "reload"
	case KindWidgetHostReset:
		return "widget_host_reset"
	default:
		return "unknown"
	}
}

// Event is one notification.
type Event struct {
	Kind Kind
	Path string // resource path for KindChanged
}

// Listener receives events. Implementations must not block for long.
type Listener func(Event)

// Dispatcher is a thread-safe FIFO of pending events.
//
// The queue is unbounded so writers never wait on slow observers.
type Dispatcher struct {
	mu        sync.Mutex
	events    []Event
	listeners []Listener
	closed    bool
	signal    chan struct{} // buffered, size 1
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		events: make([]Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Subscribe adds a listener for all future deliveries.
func (d *Dispatcher) Subscribe(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// Post queues an event. Returns false if the dispatcher is closed.
func (d *Dispatcher) Post(e Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}
	d.events = append(d.events, e)

	select {
	case d.signal <- struct{}{}:
	default:
	}
	return true
}

// Changed posts a KindChanged event for path.
func (d *Dispatcher) Changed(path string) bool {
	return d.Post(Event{Kind: KindChanged, Path: path})
}

// TryNext removes and returns the front event without blocking.
func (d *Dispatcher) TryNext() (Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.events) == 0 {
		return Event{}, false
	}
	e := d.events[0]
	if len(d.events) == 1 {
		d.events = d.events[:0]
	} else {
		d.events = d.events[1:]
	}
	return e, true
}

// Len returns the number of pending events.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

// Drain delivers every pending event synchronously and returns how many
// were delivered.
func (d *Dispatcher) Drain() int {
	n := 0
	for {
		e, ok := d.TryNext()
		if !ok {
			return n
		}
		d.deliver(e)
		n++
	}
}

// Run delivers events until ctx is cancelled or the dispatcher is closed
// and empty.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		d.Drain()

		d.mu.Lock()
		done := d.closed && len(d.events) == 0
		d.mu.Unlock()
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.signal:
		}
	}
}

// Close stops accepting events and wakes Run.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	close(d.signal)
}

func (d *Dispatcher) deliver(e Event) {
	d.mu.Lock()
	listeners := append([]Listener(nil), d.listeners...)
	d.mu.Unlock()

	slog.Debug("notify", "kind", e.Kind.String(), "path", e.Path)
	for _, l := range listeners {
		l(e)
	}
}

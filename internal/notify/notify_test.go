package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_FIFO(t *testing.T) {
	d := NewDispatcher()
	var got []Event
	d.Subscribe(func(e Event) { got = append(got, e) })

	d.Changed("/items/1")
	d.Post(Event{Kind: KindReload})
	d.Changed("/screens")

	assert.Equal(t, 3, d.Len())
	assert.Equal(t, 3, d.Drain())
	assert.Equal(t, []Event{
		{Kind: KindChanged, Path: "/items/1"},
		{Kind: KindReload},
		{Kind: KindChanged, Path: "/screens"},
	}, got)
	assert.Equal(t, 0, d.Len())
}

func TestDispatcher_PostAfterClose(t *testing.T) {
	d := NewDispatcher()
	d.Close()
	d.Close() // idempotent

	assert.False(t, d.Post(Event{Kind: KindReload}))
	_, ok := d.TryNext()
	assert.False(t, ok)
}

func TestDispatcher_RunDeliversUntilClosed(t *testing.T) {
	d := NewDispatcher()

	var mu sync.Mutex
	var kinds []Kind
	d.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, e.Kind)
	})

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	d.Post(Event{Kind: KindWidgetHostReset})
	d.Post(Event{Kind: KindReload})
	d.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Kind{KindWidgetHostReset, KindReload}, kinds)
}

func TestDispatcher_RunStopsOnCancel(t *testing.T) {
	d := NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "changed", KindChanged.String())
	assert.Equal(t, "reload", KindReload.String())
	assert.Equal(t, "widget_host_reset", KindWidgetHostReset.String())
	assert.Equal(t, "unknown", Kind(0).String())
}

package ids

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/layoutdb/internal/layout"
)

type fakeScanner map[string]int64

func (f fakeScanner) MaxID(_ context.Context, table string) (int64, error) {
	return f[table], nil
}

type failingScanner struct{}

func (failingScanner) MaxID(context.Context, string) (int64, error) {
	return 0, errors.New("disk gone")
}

func TestAllocator_NextAfterInitialize(t *testing.T) {
	a := New()
	// Stored ids {3, 7, 2}: the scanner reports the max.
	require.NoError(t, a.Initialize(context.Background(), fakeScanner{layout.TableItems: 7}))

	assert.Equal(t, int64(8), a.NextItemID())
	assert.Equal(t, int64(9), a.NextItemID())
}

func TestAllocator_EmptyTablesSeedAtZero(t *testing.T) {
	a := New()
	require.NoError(t, a.Initialize(context.Background(), fakeScanner{}))

	item, screen := a.Watermarks()
	assert.Equal(t, int64(0), item)
	assert.Equal(t, int64(0), screen)
	assert.Equal(t, int64(1), a.NextItemID())
	assert.Equal(t, int64(1), a.NextScreenID())
}

func TestAllocator_PanicsBeforeInitialize(t *testing.T) {
	a := New()
	assert.False(t, a.Initialized())
	assert.PanicsWithValue(t, ErrNotInitialized, func() { a.NextItemID() })
	assert.PanicsWithValue(t, ErrNotInitialized, func() { a.NextScreenID() })
}

func TestAllocator_ObserveRaisesWatermark(t *testing.T) {
	a := NewAt(5, 2)

	a.Observe(layout.TableItems, 42)
	a.Observe(layout.TableItems, 10) // lower ids never lower the watermark
	a.Observe(layout.TableScreens, 9)

	assert.Equal(t, int64(43), a.NextItemID())
	assert.Equal(t, int64(10), a.NextScreenID())
}

func TestAllocator_InitializeNeverLowers(t *testing.T) {
	a := NewAt(50, 4)
	require.NoError(t, a.Initialize(context.Background(), fakeScanner{
		layout.TableItems:   12,
		layout.TableScreens: 3,
	}))

	item, screen := a.Watermarks()
	assert.Equal(t, int64(50), item)
	assert.Equal(t, int64(4), screen)
}

func TestAllocator_InitializeError(t *testing.T) {
	a := New()
	err := a.Initialize(context.Background(), failingScanner{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan max item id")
	assert.False(t, a.Initialized())
}

func TestAllocator_Reset(t *testing.T) {
	a := NewAt(100, 100)
	a.Reset(0, 0)
	assert.Equal(t, int64(1), a.NextItemID())
	assert.Equal(t, int64(1), a.NextScreenID())
}

func TestAllocator_UniqueUnderConcurrency(t *testing.T) {
	a := NewAt(0, 0)
	const goroutines = 50
	const perGoroutine = 100

	var wg sync.WaitGroup
	out := make(chan int64, goroutines*perGoroutine)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				out <- a.NextItemID()
			}
		}()
	}
	wg.Wait()
	close(out)

	seen := make(map[int64]bool)
	for id := range out {
		assert.False(t, seen[id], "id %d issued twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, goroutines*perGoroutine)
}

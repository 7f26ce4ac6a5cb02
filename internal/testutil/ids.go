package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs returns UUID-shaped strings in sequence:
// 00000000-0000-7000-8000-000000000001, ...000002, ...
//
// It stands in for a UUIDv7 source so golden files are stable.
type SequenceIDs struct {
	mu sync.Mutex
	n  int
}

// Next returns the next id.
func (g *SequenceIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("00000000-0000-7000-8000-%012d", g.n)
}

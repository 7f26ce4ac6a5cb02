package testutil

import (
	"bytes"
	"fmt"
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/layoutdb/internal/layout"
)

// AssertGolden compares data against testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/... -update
func AssertGolden(t *testing.T, name string, data []byte) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}

// RenderLayout prints screens by rank then items by id, one per line.
// Modified stamps are omitted so the output is stable.
func RenderLayout(screens []layout.Screen, items []layout.Item) []byte {
	screens = append([]layout.Screen(nil), screens...)
	sort.SliceStable(screens, func(i, j int) bool { return screens[i].Rank < screens[j].Rank })
	items = append([]layout.Item(nil), items...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	var b bytes.Buffer
	for _, sc := range screens {
		fmt.Fprintf(&b, "screen id=%d rank=%d\n", sc.ID, sc.Rank)
	}
	for _, it := range items {
		fmt.Fprintf(&b, "id=%d type=%s container=%s screen=%d cell=%d,%d rank=%d title=%q target=%s\n",
			it.ID, it.ItemType, containerName(it.Container), it.Screen,
			it.CellX, it.CellY, it.Rank, it.Title, target(it))
	}
	return b.Bytes()
}

func containerName(c int64) string {
	switch c {
	case layout.ContainerDesktop:
		return "desktop"
	case layout.ContainerHotseat:
		return "hotseat"
	default:
		return fmt.Sprintf("folder:%d", c)
	}
}

func target(it layout.Item) string {
	switch it.ItemType {
	case layout.ItemTypeFolder:
		return "-"
	case layout.ItemTypeAppWidget:
		return it.AppWidgetProvider
	case layout.ItemTypeApplication:
		if in, err := layout.ParseIntent(it.Intent); err == nil && in.Component != "" {
			return in.Component
		}
	}
	return it.Intent
}

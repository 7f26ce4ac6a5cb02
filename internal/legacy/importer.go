// Package legacy imports a home-screen layout from an older launcher's
// database into the current store.
//
// Import filters rows that cannot be shown on this device, drops
// duplicate desktop entries, resolves hotseat collisions with the
// all-apps slot, and re-grids every desktop item into reading order on
// the current grid. Non-desktop items keep their positions.
package legacy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/layoutdb/internal/device"
	"github.com/roach88/layoutdb/internal/layout"
	"github.com/roach88/layoutdb/internal/store"
)

// Skip reasons reported in Result.Skipped.
const (
	SkipItemType     = "item_type"
	SkipUnknownUser  = "unknown_user"
	SkipEmptyIntent  = "empty_intent"
	SkipBadIntent    = "bad_intent"
	SkipUnlaunchable = "unlaunchable"
	SkipDuplicate    = "duplicate"
)

// Result summarises an import.
type Result struct {
	Items   int            // rows inserted
	Screens int            // screen rows inserted
	Skipped map[string]int // dropped rows by reason
}

// Importer copies a foreign layout into a store.
type Importer struct {
	Store    *store.Store
	Profile  layout.Profile
	Users    device.Users
	Packages device.Packages
}

// Import reads src and writes the converted layout. Items are inserted
// in one transaction and screens in a second; if either fails nothing
// from it is kept and the result reports zero items.
func (im *Importer) Import(ctx context.Context, src Source) (Result, error) {
	res := Result{Skipped: map[string]int{}}

	rows, err := src.Rows(ctx)
	if err != nil {
		if !errors.Is(err, ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		return res, err
	}

	folders, shortcuts := im.convert(rows, res.Skipped)
	all := append(folders, shortcuts...)
	screens := im.regrid(all)

	err = im.Store.WithTx(ctx, func(tx *store.Tx) error {
		for _, it := range all {
			if err := tx.InsertItem(ctx, *it); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{Skipped: res.Skipped}, fmt.Errorf("import items: %w", err)
	}
	res.Items = len(all)

	err = im.Store.WithTx(ctx, func(tx *store.Tx) error {
		for rank, id := range screens {
			if err := tx.InsertScreen(ctx, layout.Screen{ID: id, Rank: rank}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{Skipped: res.Skipped}, fmt.Errorf("import screens: %w", err)
	}
	res.Screens = len(screens)

	if err := im.Store.RebuildFolderRanks(ctx); err != nil {
		return res, fmt.Errorf("import folder ranks: %w", err)
	}
	if err := im.Store.IDs().Initialize(ctx, im.Store); err != nil {
		return res, err
	}

	slog.Info("legacy layout imported",
		"items", res.Items, "screens", res.Screens, "skipped", skippedTotal(res.Skipped))
	return res, nil
}

// convert filters rows and builds items, folders first.
func (im *Importer) convert(rows []Row, skipped map[string]int) (folders, shortcuts []*layout.Item) {
	seen := map[string]bool{}
	hotseat := map[int64]*layout.Item{}

	for _, r := range rows {
		switch r.ItemType {
		case layout.ItemTypeApplication, layout.ItemTypeShortcut, layout.ItemTypeFolder:
		default:
			skipped[SkipItemType]++
			continue
		}

		serial := im.Users.DefaultSerial()
		if r.ProfileID != nil {
			serial = *r.ProfileID
		}
		if !im.Users.Exists(serial) {
			skipped[SkipUnknownUser]++
			continue
		}

		if r.ItemType != layout.ItemTypeFolder {
			in, err := layout.ParseIntent(r.Intent)
			if errors.Is(err, layout.ErrEmptyIntent) {
				skipped[SkipEmptyIntent]++
				continue
			}
			if err != nil {
				slog.Debug("skipping unparsable launch target", "id", r.ID, "error", err)
				skipped[SkipBadIntent]++
				continue
			}
			if in.Component != "" && !im.Packages.Launchable(in.Component, serial) {
				skipped[SkipUnlaunchable]++
				continue
			}
			if r.Container == layout.ContainerDesktop {
				key := in.CanonicalKey()
				if seen[key] {
					skipped[SkipDuplicate]++
					continue
				}
				seen[key] = true
			}
		}

		it := &layout.Item{
			ID:           r.ID,
			Title:        r.Title,
			Intent:       r.Intent,
			Container:    r.Container,
			ItemType:     r.ItemType,
			AppWidgetID:  layout.NoWidgetID,
			ProfileID:    serial,
			Icon:         r.Icon,
			IconPackage:  r.IconPackage,
			IconResource: r.IconResource,
		}
		if r.Container != layout.ContainerDesktop {
			it.Screen = r.Screen
			it.CellX = r.CellX
			it.CellY = r.CellY
		}
		if r.Container == layout.ContainerHotseat {
			hotseat[r.Screen] = it
		}

		if r.ItemType == layout.ItemTypeFolder {
			folders = append(folders, it)
		} else {
			shortcuts = append(shortcuts, it)
		}
	}

	im.reflowHotseat(hotseat)
	return folders, shortcuts
}

// reflowHotseat moves the item sitting in the all-apps slot to the next
// free slot to its right. Items that end up beyond the hotseat are
// demoted to the desktop.
func (im *Importer) reflowHotseat(hotseat map[int64]*layout.Item) {
	slots := make([]int64, 0, len(hotseat))
	for s := range hotseat {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })

	width := int64(im.Profile.HotseatSlots)
	for _, slot := range slots {
		it := hotseat[slot]
		x := slot
		if slot == int64(im.Profile.AllAppsRank) {
			for x++; x < width; x++ {
				if hotseat[x] == nil {
					it.Screen = x
					it.CellX = int(x)
					break
				}
			}
		}
		if x >= width {
			it.Container = layout.ContainerDesktop
		}
	}
}

// regrid walks desktop items in order, filling each screen left to right
// and top to bottom. The last row of every screen stays empty. A new
// screen is allocated only when another item needs it. Returns the
// screen ids used, in order.
func (im *Importer) regrid(items []*layout.Item) []int64 {
	width := im.Profile.Columns
	height := im.Profile.Rows

	screens := []int64{0}
	curScreen := int64(0)
	curX, curY := 0, 0
	for _, it := range items {
		if it.Container != layout.ContainerDesktop {
			continue
		}
		if curY == height-1 {
			curScreen = im.Store.IDs().NextScreenID()
			screens = append(screens, curScreen)
			curY = 0
		}
		it.Screen = curScreen
		it.CellX = curX
		it.CellY = curY

		curX = (curX + 1) % width
		if curX == 0 {
			curY++
		}
	}
	return screens
}

func skippedTotal(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

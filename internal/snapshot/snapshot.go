// Package snapshot exports a layout store to JSON Lines and imports it
// back.
//
// The first line is a header; screen lines follow in rank order, then
// item lines in id order:
//
//	{"kind":"header","format":1,"version":26,"export_id":"..."}
//	{"kind":"screen","screen":{...}}
//	{"kind":"item","item":{...}}
package snapshot

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/layoutdb/internal/layout"
	"github.com/roach88/layoutdb/internal/store"
)

// Format is the snapshot line format version.
const Format = 1

const (
	kindHeader = "header"
	kindScreen = "screen"
	kindItem   = "item"
)

var (
	// ErrBadSnapshot is returned for input that is not a snapshot this
	// package can read.
	ErrBadSnapshot = errors.New("invalid snapshot")

	// ErrNotEmpty is returned when importing into a store that has rows
	// and Replace is not set.
	ErrNotEmpty = errors.New("store is not empty")
)

// Header is the first line of a snapshot.
type Header struct {
	Kind     string `json:"kind"`
	Format   int    `json:"format"`
	Version  int    `json:"version"`
	ExportID string `json:"export_id"`
}

type line struct {
	Kind   string         `json:"kind"`
	Screen *layout.Screen `json:"screen,omitempty"`
	Item   *layout.Item   `json:"item,omitempty"`
}

// Stats counts the rows written or read.
type Stats struct {
	Header  Header
	Screens int
	Items   int
}

// Exporter writes snapshots. NewID generates the export id; it
// defaults to a UUIDv7.
type Exporter struct {
	NewID func() string
}

func newExportID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Export writes every screen and item of s to w.
func (e Exporter) Export(ctx context.Context, s *store.Store, w io.Writer) (Stats, error) {
	newID := e.NewID
	if newID == nil {
		newID = newExportID
	}

	version, err := s.Version(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("export: %w", err)
	}
	screens, err := s.Screens(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("export screens: %w", err)
	}
	items, err := s.Items(ctx, store.Selection{})
	if err != nil {
		return Stats{}, fmt.Errorf("export items: %w", err)
	}

	st := Stats{Header: Header{Kind: kindHeader, Format: Format, Version: version, ExportID: newID()}}

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	if err := enc.Encode(st.Header); err != nil {
		return Stats{}, fmt.Errorf("export header: %w", err)
	}
	for i := range screens {
		if err := enc.Encode(line{Kind: kindScreen, Screen: &screens[i]}); err != nil {
			return Stats{}, fmt.Errorf("export screen %d: %w", screens[i].ID, err)
		}
		st.Screens++
	}
	for i := range items {
		if err := enc.Encode(line{Kind: kindItem, Item: &items[i]}); err != nil {
			return Stats{}, fmt.Errorf("export item %d: %w", items[i].ID, err)
		}
		st.Items++
	}
	if err := bw.Flush(); err != nil {
		return Stats{}, fmt.Errorf("export: %w", err)
	}

	slog.Info("snapshot exported", "export_id", st.Header.ExportID,
		"screens", st.Screens, "items", st.Items)
	return st, nil
}

// Export writes s to w with a generated export id.
func Export(ctx context.Context, s *store.Store, w io.Writer) (Stats, error) {
	return Exporter{}.Export(ctx, s, w)
}

// ImportOptions controls Import.
type ImportOptions struct {
	// Replace deletes existing rows first. Without it the store must be
	// empty.
	Replace bool
}

// Import reads a snapshot from r into s in a single transaction. Ids and
// positions are kept and every id is reported to the allocator.
func Import(ctx context.Context, s *store.Store, r io.Reader, opts ImportOptions) (Stats, error) {
	st, screens, items, err := decode(r)
	if err != nil {
		return Stats{}, err
	}

	err = s.WithTx(ctx, func(tx *store.Tx) error {
		if opts.Replace {
			if _, err := tx.Delete(ctx, layout.TableItems, store.Selection{}); err != nil {
				return err
			}
			if _, err := tx.Delete(ctx, layout.TableScreens, store.Selection{}); err != nil {
				return err
			}
		} else {
			for _, table := range []string{layout.TableItems, layout.TableScreens} {
				rows, err := tx.Query(ctx, table, store.Selection{Columns: []string{store.ColID}})
				if err != nil {
					return err
				}
				if len(rows) > 0 {
					return fmt.Errorf("%w: %s has rows", ErrNotEmpty, table)
				}
			}
		}
		for _, sc := range screens {
			if err := tx.InsertScreen(ctx, sc); err != nil {
				return err
			}
		}
		for _, it := range items {
			if err := tx.InsertItem(ctx, it); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("import snapshot: %w", err)
	}

	slog.Info("snapshot imported", "export_id", st.Header.ExportID,
		"screens", st.Screens, "items", st.Items)
	return st, nil
}

func decode(r io.Reader) (Stats, []layout.Screen, []layout.Item, error) {
	var (
		st      Stats
		screens []layout.Screen
		items   []layout.Item
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		if n == 1 {
			if err := json.Unmarshal(raw, &st.Header); err != nil {
				return Stats{}, nil, nil, fmt.Errorf("%w: header: %v", ErrBadSnapshot, err)
			}
			if err := checkHeader(st.Header); err != nil {
				return Stats{}, nil, nil, err
			}
			continue
		}

		var l line
		if err := json.Unmarshal(raw, &l); err != nil {
			return Stats{}, nil, nil, fmt.Errorf("%w: line %d: %v", ErrBadSnapshot, n, err)
		}
		switch {
		case l.Kind == kindScreen && l.Screen != nil:
			screens = append(screens, *l.Screen)
		case l.Kind == kindItem && l.Item != nil:
			items = append(items, *l.Item)
		default:
			return Stats{}, nil, nil, fmt.Errorf("%w: line %d: unexpected kind %q", ErrBadSnapshot, n, l.Kind)
		}
	}
	if err := sc.Err(); err != nil {
		return Stats{}, nil, nil, fmt.Errorf("read snapshot: %w", err)
	}
	if n == 0 {
		return Stats{}, nil, nil, fmt.Errorf("%w: empty input", ErrBadSnapshot)
	}

	st.Screens = len(screens)
	st.Items = len(items)
	return st, screens, items, nil
}

func checkHeader(h Header) error {
	if h.Kind != kindHeader {
		return fmt.Errorf("%w: first line is %q, not a header", ErrBadSnapshot, h.Kind)
	}
	if h.Format != Format {
		return fmt.Errorf("%w: format %d not supported", ErrBadSnapshot, h.Format)
	}
	if h.Version > store.CurrentVersion {
		return fmt.Errorf("%w: version %d is newer than %d", ErrBadSnapshot, h.Version, store.CurrentVersion)
	}
	return nil
}

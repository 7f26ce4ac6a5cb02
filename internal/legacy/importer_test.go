package legacy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/layoutdb/internal/device"
	"github.com/roach88/layoutdb/internal/layout"
	"github.com/roach88/layoutdb/internal/store"
	"github.com/roach88/layoutdb/internal/testutil"
)

var grid4x4 = layout.Profile{Columns: 4, Rows: 4, HotseatSlots: 5, AllAppsRank: 2}

func createTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"),
		store.Options{Now: testutil.NewDeterministicClock().Now})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newImporter(s *store.Store, profile layout.Profile, components ...string) *Importer {
	cat := device.NewCatalog(0, nil, components)
	return &Importer{Store: s, Profile: profile, Users: cat, Packages: cat}
}

func app(id int64, title string, container, screen int64, x, y int, component string) Row {
	return Row{
		ID:        id,
		Title:     title,
		Intent:    layout.AppIntent(component).String(),
		Container: container,
		Screen:    screen,
		CellX:     x,
		CellY:     y,
		ItemType:  layout.ItemTypeApplication,
	}
}

func dump(t *testing.T, s *store.Store) []byte {
	t.Helper()
	screens, err := s.Screens(context.Background())
	require.NoError(t, err)
	items, err := s.Items(context.Background(), store.Selection{})
	require.NoError(t, err)
	return testutil.RenderLayout(screens, items)
}

func TestImport_Mixed(t *testing.T) {
	s := createTestStore(t)
	im := newImporter(s, grid4x4,
		"com.a/.Alarm", "com.b/.Browser", "com.c/.Camera", "com.d/.Docs",
		"com.m/.Mail", "com.p/.Phone", "com.s/.Sms")

	browser := layout.Intent{
		Action:     layout.ActionMain,
		Categories: []string{layout.CategoryLauncher},
		Flags:      0x10200000,
		Package:    "com.b",
		Component:  "com.b/.Browser",
	}
	browserCopy := browser
	browserCopy.Flags = 0
	browserCopy.Package = ""

	work := int64(10)
	rows := StaticSource{
		app(10, "Alarm", layout.ContainerDesktop, 3, 3, 3, "com.a/.Alarm"),
		{ID: 11, Title: "Browser", Intent: browser.String(), Container: layout.ContainerDesktop, ItemType: layout.ItemTypeApplication},
		{ID: 12, Title: "Browser copy", Intent: browserCopy.String(), Container: layout.ContainerDesktop, ItemType: layout.ItemTypeApplication},
		app(13, "Camera", layout.ContainerHotseat, 2, 2, 0, "com.c/.Camera"),
		app(14, "Docs", layout.ContainerHotseat, 4, 4, 0, "com.d/.Docs"),
		{ID: 15, Title: "Games", Container: layout.ContainerDesktop, Screen: 1, ItemType: layout.ItemTypeFolder},
		app(16, "Mail", 15, 0, 1, 0, "com.m/.Mail"),
		app(17, "Old", layout.ContainerDesktop, 0, 0, 0, "com.gone/.Old"),
		app(18, "Phone", layout.ContainerHotseat, 0, 0, 0, "com.p/.Phone"),
		app(19, "Sms", 15, 0, 0, 0, "com.s/.Sms"),
		{ID: 20, Title: "Widget", Container: layout.ContainerDesktop, ItemType: layout.ItemTypeAppWidget},
		{ID: 21, Title: "Work", Intent: layout.AppIntent("com.m/.Mail").String(), Container: layout.ContainerDesktop, ItemType: layout.ItemTypeApplication, ProfileID: &work},
		{ID: 22, Title: "Web", Container: layout.ContainerDesktop, ItemType: layout.ItemTypeShortcut},
		{ID: 23, Title: "Zap", Intent: "https://zap.example", Container: layout.ContainerDesktop, ItemType: layout.ItemTypeShortcut},
	}

	res, err := im.Import(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 9, res.Items)
	assert.Equal(t, 1, res.Screens)
	assert.Equal(t, map[string]int{
		SkipDuplicate:    1,
		SkipUnlaunchable: 1,
		SkipItemType:     1,
		SkipUnknownUser:  1,
		SkipEmptyIntent:  1,
	}, res.Skipped)

	testutil.AssertGolden(t, "mixed_import", dump(t, s))

	assert.Equal(t, int64(24), s.IDs().NextItemID())
}

func TestImport_DedupIgnoresPackageAndFlags(t *testing.T) {
	s := createTestStore(t)
	im := newImporter(s, grid4x4)

	a := layout.AppIntent("com.x/.Main")
	a.Package = "com.x"
	b := layout.AppIntent("com.x/.Main")
	b.Flags = 0

	res, err := im.Import(context.Background(), StaticSource{
		{ID: 1, Title: "X", Intent: a.String(), Container: layout.ContainerDesktop, ItemType: layout.ItemTypeApplication},
		{ID: 2, Title: "X", Intent: b.String(), Container: layout.ContainerDesktop, ItemType: layout.ItemTypeApplication},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Items)
	assert.Equal(t, 1, res.Skipped[SkipDuplicate])
}

func TestImport_DedupOnlyOnDesktop(t *testing.T) {
	s := createTestStore(t)
	im := newImporter(s, grid4x4)

	res, err := im.Import(context.Background(), StaticSource{
		app(1, "X", layout.ContainerDesktop, 0, 0, 0, "com.x/.Main"),
		app(2, "X", layout.ContainerHotseat, 0, 0, 0, "com.x/.Main"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Items)
}

func TestImport_HotseatAllAppsSlotShiftsRight(t *testing.T) {
	s := createTestStore(t)
	profile := layout.Profile{Columns: 4, Rows: 4, HotseatSlots: 5, AllAppsRank: 3}
	im := newImporter(s, profile)

	_, err := im.Import(context.Background(), StaticSource{
		app(1, "A", layout.ContainerHotseat, 3, 3, 0, "com.a/.A"),
	})
	require.NoError(t, err)

	it, ok, err := s.Item(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, layout.ContainerHotseat, it.Container)
	assert.Equal(t, int64(4), it.Screen)
}

func TestImport_HotseatOverflowDemotedToDesktop(t *testing.T) {
	s := createTestStore(t)
	profile := layout.Profile{Columns: 4, Rows: 4, HotseatSlots: 5, AllAppsRank: 3}
	im := newImporter(s, profile)

	_, err := im.Import(context.Background(), StaticSource{
		app(1, "A", layout.ContainerHotseat, 3, 3, 0, "com.a/.A"),
		app(2, "B", layout.ContainerHotseat, 4, 4, 0, "com.b/.B"),
		app(3, "C", layout.ContainerHotseat, 7, 7, 0, "com.c/.C"),
	})
	require.NoError(t, err)

	items, err := s.Items(context.Background(), store.Selection{})
	require.NoError(t, err)
	require.Len(t, items, 3)

	// No free slot right of all-apps: demoted and walked onto the grid.
	assert.Equal(t, layout.ContainerDesktop, items[0].Container)
	assert.Equal(t, int64(0), items[0].Screen)
	assert.Equal(t, 0, items[0].CellX)
	assert.Equal(t, layout.ContainerHotseat, items[1].Container)
	assert.Equal(t, int64(4), items[1].Screen)
	// Beyond the hotseat width.
	assert.Equal(t, layout.ContainerDesktop, items[2].Container)
	assert.Equal(t, 1, items[2].CellX)
}

func TestImport_FullScreenAddsNoTrailingScreen(t *testing.T) {
	s := createTestStore(t)
	im := newImporter(s, grid4x4)

	var rows StaticSource
	for i := 1; i <= 12; i++ {
		rows = append(rows, app(int64(i), fmt.Sprintf("App %02d", i),
			layout.ContainerDesktop, 9, 0, 0, fmt.Sprintf("com.app%d/.Main", i)))
	}

	res, err := im.Import(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 12, res.Items)
	assert.Equal(t, 1, res.Screens)

	screens, err := s.Screens(context.Background())
	require.NoError(t, err)
	require.Len(t, screens, 1)
	assert.Equal(t, int64(0), screens[0].ID)
}

func TestImport_ThirteenthItemStartsNewScreen(t *testing.T) {
	s := createTestStore(t)
	im := newImporter(s, grid4x4)

	var rows StaticSource
	for i := 1; i <= 13; i++ {
		rows = append(rows, app(int64(i), fmt.Sprintf("App %02d", i),
			layout.ContainerDesktop, 9, 0, 0, fmt.Sprintf("com.app%d/.Main", i)))
	}

	res, err := im.Import(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 13, res.Items)
	assert.Equal(t, 2, res.Screens)

	twelfth, _, err := s.Item(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, int64(0), twelfth.Screen)
	assert.Equal(t, 3, twelfth.CellX)
	assert.Equal(t, 2, twelfth.CellY)

	last, _, err := s.Item(context.Background(), 13)
	require.NoError(t, err)
	assert.Equal(t, int64(1), last.Screen)
	assert.Equal(t, 0, last.CellX)
	assert.Equal(t, 0, last.CellY)

	screens, err := s.Screens(context.Background())
	require.NoError(t, err)
	require.Len(t, screens, 2)
	assert.Equal(t, layout.Screen{ID: 1, Rank: 1, Modified: screens[1].Modified}, screens[1])
}

func TestImport_Deterministic(t *testing.T) {
	rows := StaticSource{
		app(5, "B", layout.ContainerDesktop, 0, 0, 0, "com.b/.B"),
		app(3, "A", layout.ContainerHotseat, 2, 2, 0, "com.a/.A"),
		{ID: 4, Title: "F", Container: layout.ContainerDesktop, ItemType: layout.ItemTypeFolder},
		app(6, "C", 4, 0, 0, 0, "com.c/.C"),
	}

	var outputs [][]byte
	for i := 0; i < 2; i++ {
		s := createTestStore(t)
		_, err := newImporter(s, grid4x4).Import(context.Background(), rows)
		require.NoError(t, err)
		outputs = append(outputs, dump(t, s))
	}
	assert.Equal(t, string(outputs[0]), string(outputs[1]))
}

type brokenSource struct{}

func (brokenSource) Rows(context.Context) ([]Row, error) { return nil, errors.New("unreadable") }

func TestImport_SourceFailureReportsZero(t *testing.T) {
	s := createTestStore(t)
	res, err := newImporter(s, grid4x4).Import(context.Background(), brokenSource{})
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Equal(t, 0, res.Items)
}

func TestImport_InsertFailureKeepsNothing(t *testing.T) {
	s := createTestStore(t)
	insertErr := s.WithTx(context.Background(), func(tx *store.Tx) error {
		return tx.InsertItem(context.Background(), testutil.Hotseat(2, 0, "com.taken/.T"))
	})
	require.NoError(t, insertErr)

	res, err := newImporter(s, grid4x4).Import(context.Background(), StaticSource{
		app(1, "A", layout.ContainerDesktop, 0, 0, 0, "com.a/.A"),
		app(2, "B", layout.ContainerDesktop, 0, 0, 0, "com.b/.B"), // id collides
	})
	assert.ErrorIs(t, err, store.ErrConstraint)
	assert.Equal(t, 0, res.Items)

	_, found, err := s.Item(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher2.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE favorites (
		_id INTEGER PRIMARY KEY, title TEXT, intent TEXT, container INTEGER,
		screen INTEGER, cellX INTEGER, cellY INTEGER, itemType INTEGER,
		icon BLOB, iconPackage TEXT, iconResource TEXT)`)
	require.NoError(t, err)
	for _, r := range []struct {
		id    int
		title string
	}{{1, "beta"}, {2, "alpha"}, {3, "Alpha"}} {
		_, err := db.Exec("INSERT INTO favorites (_id, title, intent, container, screen, cellX, cellY, itemType) VALUES (?, ?, ?, -100, 0, 0, 0, 0)",
			r.id, r.title, layout.AppIntent("com.x/.Main").String())
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	rows, err := SQLiteSource{Path: path}.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int64{2, 3, 1}, []int64{rows[0].ID, rows[1].ID, rows[2].ID})
	assert.Nil(t, rows[0].ProfileID)
	assert.Equal(t, layout.ContainerDesktop, rows[0].Container)
}

func TestSQLiteSource_WithProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher3.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE favorites (
		_id INTEGER PRIMARY KEY, title TEXT, intent TEXT, container INTEGER,
		screen INTEGER, cellX INTEGER, cellY INTEGER, itemType INTEGER, profileId INTEGER,
		icon BLOB, iconPackage TEXT, iconResource TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO favorites (_id, title, itemType, profileId) VALUES (1, 'x', 2, 10)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	rows, err := SQLiteSource{Path: path}.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].ProfileID)
	assert.Equal(t, int64(10), *rows[0].ProfileID)
}

func TestSQLiteSource_Missing(t *testing.T) {
	_, err := SQLiteSource{Path: filepath.Join(t.TempDir(), "nope.db")}.Rows(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

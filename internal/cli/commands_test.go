package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/layoutdb/internal/layout"
	"github.com/roach88/layoutdb/internal/loader"
	"github.com/roach88/layoutdb/internal/store"
)

// runCLI executes the root command against dataDir with no config file.
func runCLI(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config-dir", "", "--data-dir", dataDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// runJSON executes a command with --format json and decodes the payload
// into v.
func runJSON(t *testing.T, dataDir string, v any, args ...string) {
	t.Helper()
	out, err := runCLI(t, dataDir, append([]string{"--format", "json"}, args...)...)
	require.NoError(t, err, out)

	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func initStore(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	var res InitResult
	runJSON(t, dir, &res, "init")
	require.True(t, res.Loaded)
	return dir
}

func itemsOf(t *testing.T, dir string, args ...string) []layout.Item {
	t.Helper()
	var items []layout.Item
	runJSON(t, dir, &items, append([]string{"items", "list"}, args...)...)
	return items
}

func TestInit_LoadsDefaultLayout(t *testing.T) {
	dir := t.TempDir()

	var res InitResult
	runJSON(t, dir, &res, "init")
	assert.Equal(t, filepath.Join(dir, "launcher.db"), res.Path)
	assert.Equal(t, store.CurrentVersion, res.Version)
	assert.True(t, res.Created)
	assert.True(t, res.Loaded)
	assert.Equal(t, loader.OriginBuiltIn, res.Origin)
	assert.Equal(t, 8, res.Items)
	assert.Equal(t, 2, res.Screens)

	var again InitResult
	runJSON(t, dir, &again, "init")
	assert.False(t, again.Created)
	assert.False(t, again.Loaded)
}

func TestInit_TextOutput(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "init")
	require.NoError(t, err)
	assert.Contains(t, out, "store ready")
	assert.Contains(t, out, "loaded default layout: 8 items on 2 screens")
}

func TestMigrate_FreshStore(t *testing.T) {
	var res MigrateResult
	runJSON(t, t.TempDir(), &res, "migrate")
	assert.True(t, res.Created)
	assert.Equal(t, store.CurrentVersion, res.To)
	assert.Empty(t, res.Error)
}

func TestItemsList_Filters(t *testing.T) {
	dir := initStore(t)

	assert.Len(t, itemsOf(t, dir), 11)

	hotseat := itemsOf(t, dir, "--container", "hotseat")
	require.Len(t, hotseat, 4)
	for _, it := range hotseat {
		assert.Equal(t, layout.ContainerHotseat, it.Container)
	}

	screen0 := itemsOf(t, dir, "--container", "desktop", "--screen", "0")
	require.Len(t, screen0, 3)
	var folder int64 = -1
	for _, it := range screen0 {
		if it.IsFolder() {
			folder = it.ID
		}
	}
	require.NotEqual(t, int64(-1), folder)

	contents := itemsOf(t, dir, "--container", strconv.FormatInt(folder, 10))
	assert.Len(t, contents, 3)
}

func TestItemsList_BadContainer(t *testing.T) {
	dir := initStore(t)
	out, err := runCLI(t, dir, "items", "list", "--container", "drawer")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeInput)
}

func TestItemsGetAndDelete(t *testing.T) {
	dir := initStore(t)
	target := itemsOf(t, dir, "--container", "desktop", "--screen", "1")
	require.Len(t, target, 1)
	id := strconv.FormatInt(target[0].ID, 10)

	var got layout.Item
	runJSON(t, dir, &got, "items", "get", id)
	assert.Equal(t, "Contacts", got.Title)

	var deleted map[string]any
	runJSON(t, dir, &deleted, "items", "delete", id)
	assert.Equal(t, float64(1), deleted["deleted"])

	out, err := runCLI(t, dir, "items", "get", id)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)

	_, err = runCLI(t, dir, "items", "delete", id)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestItemsGet_BadID(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "items", "get", "abc")
	require.Error(t, err)
	assert.Contains(t, out, ErrCodeInput)
}

func TestScreens(t *testing.T) {
	dir := initStore(t)

	var screens []layout.Screen
	runJSON(t, dir, &screens, "screens", "list")
	require.Len(t, screens, 2)
	assert.Equal(t, 0, screens[0].Rank)
	assert.Equal(t, 1, screens[1].Rank)

	out, err := runCLI(t, dir, "screens", "get", strconv.FormatInt(screens[1].ID, 10))
	require.NoError(t, err)
	assert.Contains(t, out, "rank:     1")

	_, err = runCLI(t, dir, "screens", "get", "77")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestNewID(t *testing.T) {
	dir := initStore(t)
	maxID := int64(0)
	for _, it := range itemsOf(t, dir) {
		maxID = max(maxID, it.ID)
	}

	var res map[string]any
	runJSON(t, dir, &res, "new-id", "item")
	assert.Equal(t, "item", res["kind"])
	assert.Equal(t, float64(maxID+1), res["id"])

	_, err := runCLI(t, dir, "new-id", "folder")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLoadLayout(t *testing.T) {
	dir := initStore(t)

	var res LoadLayoutResult
	runJSON(t, dir, &res, "load-layout")
	assert.False(t, res.Loaded)

	runJSON(t, dir, &res, "load-layout", "--force")
	assert.True(t, res.Loaded)
	assert.Equal(t, 8, res.Items)
	assert.Equal(t, []int64{0, 1}, res.Screens)
	assert.Len(t, itemsOf(t, dir), 11)
}

func TestClearFirstRun(t *testing.T) {
	dir := t.TempDir()

	var res map[string]any
	runJSON(t, dir, &res, "clear-first-run")
	assert.Equal(t, true, res["was_pending"])

	var load LoadLayoutResult
	runJSON(t, dir, &load, "load-layout")
	assert.False(t, load.Loaded)
	assert.Empty(t, itemsOf(t, dir))
}

func TestMaintenanceCommands(t *testing.T) {
	dir := initStore(t)

	var folders map[string][]int64
	runJSON(t, dir, &folders, "delete-empty-folders")
	assert.Empty(t, folders["deleted"])

	var converted map[string]int
	runJSON(t, dir, &converted, "convert-shortcuts")
	assert.Equal(t, 0, converted["converted"])

	out, err := runCLI(t, dir, "rebuild-ranks")
	require.NoError(t, err)
	assert.Contains(t, out, "folder ranks rebuilt")
}

func TestExportImport(t *testing.T) {
	src := initStore(t)
	file := filepath.Join(t.TempDir(), "layout.jsonl")

	var exported SnapshotResult
	runJSON(t, src, &exported, "export", "-o", file)
	assert.Equal(t, 2, exported.Screens)
	assert.Equal(t, 11, exported.Items)
	assert.Equal(t, store.CurrentVersion, exported.Version)
	assert.NotEmpty(t, exported.ExportID)

	dst := t.TempDir()
	var imported SnapshotResult
	runJSON(t, dst, &imported, "import", file)
	assert.Equal(t, exported.ExportID, imported.ExportID)
	assert.Equal(t, 11, imported.Items)

	want := itemsOf(t, src)
	got := itemsOf(t, dst)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Title, got[i].Title)
		assert.Equal(t, want[i].Container, got[i].Container)
	}

	out, err := runCLI(t, dst, "import", file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeOperation)

	runJSON(t, dst, &imported, "import", "--replace", file)
	assert.Len(t, itemsOf(t, dst), 11)
}

func TestExport_Stdout(t *testing.T) {
	dir := initStore(t)
	out, err := runCLI(t, dir, "export")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1+2+11)
	assert.Contains(t, lines[0], `"kind":"header"`)
}

func TestImport_MissingFile(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "import", filepath.Join(t.TempDir(), "nope.jsonl"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeInput)
}

func TestImportLegacy_NoPath(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "import-legacy")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeInput)
}

func TestImportLegacy_MissingDatabaseLoadsDefault(t *testing.T) {
	dir := t.TempDir()
	var res ImportLegacyResult
	runJSON(t, dir, &res, "import-legacy", filepath.Join(t.TempDir(), "old.db"))
	assert.Equal(t, 0, res.Items)
	assert.Len(t, itemsOf(t, dir), 11)
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "layoutdb "+Version)
	assert.Contains(t, out, "schema "+strconv.Itoa(store.CurrentVersion))
}

func TestItemSelection(t *testing.T) {
	tests := []struct {
		name      string
		container string
		screen    int64
		where     string
		args      []any
		wantErr   bool
	}{
		{"none", "", -1, "", nil, false},
		{"hotseat", "hotseat", -1, "container = ?", []any{layout.ContainerHotseat}, false},
		{"desktop screen", "Desktop", 2, "container = ? AND screen = ?", []any{layout.ContainerDesktop, int64(2)}, false},
		{"folder", "12", -1, "container = ?", []any{int64(12)}, false},
		{"screen only", "", 0, "screen = ?", []any{int64(0)}, false},
		{"bad", "drawer", -1, "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := itemSelection(tt.container, tt.screen)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.where, sel.Where)
			assert.Equal(t, tt.args, sel.Args)
		})
	}
}

package layout

import "fmt"

// Table names. These are part of the on-disk contract.
const (
	TableItems   = "items"
	TableScreens = "screens"
)

// Container values that are not folder ids.
const (
	ContainerDesktop int64 = -100
	ContainerHotseat int64 = -101
)

// ItemType identifies what an item row represents.
type ItemType int

const (
	ItemTypeApplication ItemType = 0
	ItemTypeShortcut    ItemType = 1
	ItemTypeFolder      ItemType = 2
	ItemTypeAppWidget   ItemType = 4
)

// String returns the lowercase name used in layout files and CLI output.
func (t ItemType) String() string {
	switch t {
	case ItemTypeApplication:
		return "app"
	case ItemTypeShortcut:
		return "shortcut"
	case ItemTypeFolder:
		return "folder"
	case ItemTypeAppWidget:
		return "widget"
	default:
		return fmt.Sprintf("itemType(%d)", int(t))
	}
}

// ParseItemType is the inverse of ItemType.String.
func ParseItemType(s string) (ItemType, error) {
	switch s {
	case "app", "application":
		return ItemTypeApplication, nil
	case "shortcut":
		return ItemTypeShortcut, nil
	case "folder":
		return ItemTypeFolder, nil
	case "widget", "appwidget":
		return ItemTypeAppWidget, nil
	default:
		return 0, fmt.Errorf("unknown item type %q", s)
	}
}

// NoWidgetID marks an item that has no bound widget handle.
const NoWidgetID = -1

// Item is one placed element: icon, shortcut, folder or widget.
//
// The meaning of Screen, CellX and CellY depends on Container:
//   - Desktop: Screen is a screen id, CellX/CellY a grid cell
//   - Hotseat: Screen is the hotseat slot
//   - folder id: CellX/CellY are the folder grid position, Rank the order
type Item struct {
	ID                int64    `json:"id"`
	Title             string   `json:"title,omitempty"`
	Container         int64    `json:"container"`
	Screen            int64    `json:"screen"`
	CellX             int      `json:"cell_x"`
	CellY             int      `json:"cell_y"`
	Rank              int      `json:"rank"`
	ItemType          ItemType `json:"item_type"`
	Intent            string   `json:"intent,omitempty"`
	AppWidgetID       int      `json:"app_widget_id"`
	AppWidgetProvider string   `json:"app_widget_provider,omitempty"`
	ProfileID         int64    `json:"profile_id"`
	Modified          int64    `json:"modified"`
	Restored          int      `json:"restored"`
	Options           int      `json:"options"`

	// Retained for older layouts only.
	Icon         []byte `json:"icon,omitempty"`
	IconPackage  string `json:"icon_package,omitempty"`
	IconResource string `json:"icon_resource,omitempty"`
}

// IsFolder reports whether the item is a folder.
func (it Item) IsFolder() bool { return it.ItemType == ItemTypeFolder }

// InFolder reports whether the item's container is a folder id.
func (it Item) InFolder() bool {
	return it.Container != ContainerDesktop && it.Container != ContainerHotseat
}

// Screen is one workspace page. Rank orders screens; ID is identity only.
type Screen struct {
	ID       int64 `json:"id"`
	Rank     int   `json:"rank"`
	Modified int64 `json:"modified"`
}

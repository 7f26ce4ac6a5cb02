package testutil

import "github.com/roach88/layoutdb/internal/layout"

// App returns a desktop application item at (x, y) on screen.
func App(id, screen int64, x, y int, component string) layout.Item {
	return layout.Item{
		ID:          id,
		Title:       component,
		Container:   layout.ContainerDesktop,
		Screen:      screen,
		CellX:       x,
		CellY:       y,
		ItemType:    layout.ItemTypeApplication,
		Intent:      layout.AppIntent(component).String(),
		AppWidgetID: layout.NoWidgetID,
	}
}

// Hotseat returns an application item in the given hotseat slot.
func Hotseat(id int64, slot int64, component string) layout.Item {
	it := App(id, slot, int(slot), 0, component)
	it.Container = layout.ContainerHotseat
	return it
}

// Folder returns a desktop folder item.
func Folder(id, screen int64, x, y int, title string) layout.Item {
	return layout.Item{
		ID:          id,
		Title:       title,
		Container:   layout.ContainerDesktop,
		Screen:      screen,
		CellX:       x,
		CellY:       y,
		ItemType:    layout.ItemTypeFolder,
		AppWidgetID: layout.NoWidgetID,
	}
}

// InFolder returns an application item inside folder at (x, y).
func InFolder(id, folder int64, x, y int, component string) layout.Item {
	it := App(id, 0, x, y, component)
	it.Container = folder
	return it
}

// Widget returns a desktop widget bound to widgetID.
func Widget(id, screen int64, x, y, widgetID int, provider string) layout.Item {
	return layout.Item{
		ID:                id,
		Container:         layout.ContainerDesktop,
		Screen:            screen,
		CellX:             x,
		CellY:             y,
		ItemType:          layout.ItemTypeAppWidget,
		AppWidgetID:       widgetID,
		AppWidgetProvider: provider,
	}
}

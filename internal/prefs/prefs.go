// Package prefs persists the small set of launcher flags that live beside
// the layout database, such as the first-run marker.
//
// Values are stored as a flat YAML mapping. Every write replaces the file
// atomically (temp file + rename).
package prefs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Keys used by the layout store.
const (
	// KeyEmptyDatabaseCreated is set when the store was created or
	// recreated empty and a first-run layout has not been loaded yet.
	KeyEmptyDatabaseCreated = "empty_database_created"

	// KeyFirstRunClingDismissed marks the first-run hint as seen.
	KeyFirstRunClingDismissed = "first_run_cling_dismissed"

	// KeyAutoFoldersDisabled stops new installs being grouped into
	// folders for users who upgraded from an older layout.
	KeyAutoFoldersDisabled = "auto_folders_disabled"

	// KeyNextWidgetID is the next widget handle a local host will issue.
	KeyNextWidgetID = "next_widget_id"
)

// Prefs is a file-backed key/value store. Safe for concurrent use.
type Prefs struct {
	mu     sync.Mutex
	path   string
	values map[string]any
}

// Open loads prefs from path. A missing file is an empty set.
func Open(path string) (*Prefs, error) {
	p := &Prefs{path: path, values: map[string]any{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading prefs: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return p, nil
	}
	if err := yaml.Unmarshal(data, &p.values); err != nil {
		return nil, fmt.Errorf("parsing prefs %s: %w", path, err)
	}
	if p.values == nil {
		p.values = map[string]any{}
	}
	return p, nil
}

// NewMemory returns prefs that are never written to disk.
func NewMemory() *Prefs {
	return &Prefs{values: map[string]any{}}
}

// Bool returns the flag at key, false if unset.
func (p *Prefs) Bool(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, _ := p.values[key].(bool)
	return b
}

// Int returns the integer at key, or def if unset.
func (p *Prefs) Int(key string, def int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch n := p.values[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

// SetBool stores a flag and persists.
func (p *Prefs) SetBool(key string, v bool) error {
	return p.set(key, v)
}

// SetInt stores an integer and persists.
func (p *Prefs) SetInt(key string, v int) error {
	return p.set(key, v)
}

// Remove deletes key and persists.
func (p *Prefs) Remove(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.values[key]; !ok {
		return nil
	}
	delete(p.values, key)
	return p.saveLocked()
}

func (p *Prefs) set(key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = v
	return p.saveLocked()
}

func (p *Prefs) saveLocked() error {
	if p.path == "" {
		return nil
	}
	data, err := yaml.Marshal(p.values)
	if err != nil {
		return fmt.Errorf("encoding prefs: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating prefs dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing prefs: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// MigrationHooks adapts Prefs to the store's migration side effects.
type MigrationHooks struct {
	Prefs *Prefs
}

// DismissFirstRunCling marks the first-run hint as seen.
func (h MigrationHooks) DismissFirstRunCling(context.Context) error {
	return h.Prefs.SetBool(KeyFirstRunClingDismissed, true)
}

// DisableAutoFolders marks an upgrading user.
func (h MigrationHooks) DisableAutoFolders(context.Context) error {
	return h.Prefs.SetBool(KeyAutoFoldersDisabled, true)
}

package loader

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/layoutdb/internal/layout"
)

// ErrInvalidLayout is returned when a layout document fails validation.
var ErrInvalidLayout = errors.New("invalid layout")

// Container names used in layout documents.
const (
	ContainerDesktop = "desktop"
	ContainerHotseat = "hotseat"
)

// Document is a declarative layout: the items to place on first run.
type Document struct {
	Items []Entry `json:"items" yaml:"items"`
}

// Entry is one placed element. For hotseat entries Screen is the slot.
type Entry struct {
	Type      string  `json:"type" yaml:"type"`
	Container string  `json:"container,omitempty" yaml:"container,omitempty"`
	Screen    int64   `json:"screen" yaml:"screen"`
	X         int     `json:"x" yaml:"x"`
	Y         int     `json:"y" yaml:"y"`
	Title     string  `json:"title,omitempty" yaml:"title,omitempty"`
	Component string  `json:"component,omitempty" yaml:"component,omitempty"`
	Intent    string  `json:"intent,omitempty" yaml:"intent,omitempty"`
	Provider  string  `json:"provider,omitempty" yaml:"provider,omitempty"`
	Items     []Entry `json:"items,omitempty" yaml:"items,omitempty"`
}

// ParseYAML decodes and validates a YAML layout document.
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseCUE evaluates a CUE file and decodes its top-level "layout" field.
func ParseCUE(data []byte, filename string) (*Document, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}

	lv := v.LookupPath(cue.ParsePath("layout"))
	if !lv.Exists() {
		return nil, fmt.Errorf("%w: %s has no layout field", ErrInvalidLayout, filename)
	}
	var doc Document
	if err := lv.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks every entry.
func (d *Document) Validate() error {
	for i, e := range d.Items {
		if err := e.validate(false); err != nil {
			return fmt.Errorf("%w: item %d: %v", ErrInvalidLayout, i, err)
		}
	}
	return nil
}

func (e Entry) validate(inFolder bool) error {
	t, err := layout.ParseItemType(e.Type)
	if err != nil {
		return err
	}
	if !inFolder {
		switch e.Container {
		case "", ContainerDesktop, ContainerHotseat:
		default:
			return fmt.Errorf("unknown container %q", e.Container)
		}
	}
	if e.X < 0 || e.Y < 0 || e.Screen < 0 {
		return fmt.Errorf("negative position")
	}

	switch t {
	case layout.ItemTypeApplication:
		if e.Component == "" {
			return fmt.Errorf("app needs a component")
		}
	case layout.ItemTypeShortcut:
		if _, err := layout.ParseIntent(e.Intent); err != nil {
			return fmt.Errorf("shortcut: %w", err)
		}
	case layout.ItemTypeAppWidget:
		if inFolder {
			return fmt.Errorf("widgets cannot be in folders")
		}
		if e.Provider == "" {
			return fmt.Errorf("widget needs a provider")
		}
	case layout.ItemTypeFolder:
		if inFolder {
			return fmt.Errorf("folders cannot nest")
		}
		for j, child := range e.Items {
			if err := child.validate(true); err != nil {
				return fmt.Errorf("folder item %d: %w", j, err)
			}
		}
	}
	return nil
}

func (e Entry) container() int64 {
	if e.Container == ContainerHotseat {
		return layout.ContainerHotseat
	}
	return layout.ContainerDesktop
}

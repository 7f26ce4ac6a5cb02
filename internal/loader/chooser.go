// Package loader reads declarative home-screen layouts and places them
// into the store on first run.
//
// Layouts come from, in order of preference:
//   - a restriction file set by device policy (YAML)
//   - a partner customization directory (layout.cue)
//   - the built-in default compiled into the binary
package loader

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

//go:embed default_layout.yaml
var defaultLayoutYAML []byte

// Origin names where a layout came from.
type Origin string

const (
	OriginRestriction Origin = "restriction"
	OriginPartner     Origin = "partner"
	OriginBuiltIn     Origin = "default"
)

// ErrNoLayout is returned by a Provider that has nothing to offer.
var ErrNoLayout = errors.New("no layout available")

// Provider offers an optional external layout.
type Provider interface {
	Origin() Origin
	// Find returns the provider's layout, or ErrNoLayout.
	Find(ctx context.Context) (Source, error)
}

// Choose returns the first layout any provider offers, in order, and its
// origin. A provider that fails is skipped. With no offer the built-in
// layout is returned.
func Choose(ctx context.Context, providers []Provider) (Source, Origin) {
	for _, p := range providers {
		src, err := p.Find(ctx)
		if errors.Is(err, ErrNoLayout) {
			continue
		}
		if err != nil {
			slog.Warn("layout provider failed", "origin", string(p.Origin()), "error", err)
			continue
		}
		return src, p.Origin()
	}
	return BuiltIn(), OriginBuiltIn
}

// BuiltIn returns the default layout compiled into the binary.
func BuiltIn() Source {
	doc, err := ParseYAML(defaultLayoutYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in layout: %v", err))
	}
	return NewDocumentSource(string(OriginBuiltIn), doc)
}

// RestrictionProvider reads a device-policy layout from a YAML file.
type RestrictionProvider struct {
	Path string
}

func (p RestrictionProvider) Origin() Origin { return OriginRestriction }

func (p RestrictionProvider) Find(context.Context) (Source, error) {
	if p.Path == "" {
		return nil, ErrNoLayout
	}
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoLayout
	}
	if err != nil {
		return nil, fmt.Errorf("reading restriction layout: %w", err)
	}
	doc, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Path, err)
	}
	return NewDocumentSource(string(OriginRestriction), doc), nil
}

// PartnerLayoutFile is the file a partner directory must contain.
const PartnerLayoutFile = "layout.cue"

// PartnerProvider reads a partner customization from Dir/layout.cue.
type PartnerProvider struct {
	Dir string
}

func (p PartnerProvider) Origin() Origin { return OriginPartner }

func (p PartnerProvider) Find(context.Context) (Source, error) {
	if p.Dir == "" {
		return nil, ErrNoLayout
	}
	path := filepath.Join(p.Dir, PartnerLayoutFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoLayout
	}
	if err != nil {
		return nil, fmt.Errorf("reading partner layout: %w", err)
	}
	doc, err := ParseCUE(data, path)
	if err != nil {
		return nil, err
	}
	return NewDocumentSource(string(OriginPartner), doc), nil
}

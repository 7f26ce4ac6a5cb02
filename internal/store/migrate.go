package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/layoutdb/internal/layout"
)

// Schema version bounds.
const (
	// MinVersion is the oldest version the chain can upgrade from.
	MinVersion = 12
	// CurrentVersion is the version a fresh store is created at.
	CurrentVersion = 26
)

// MigrationHooks receives the side effects of migration steps that live
// outside the database.
type MigrationHooks interface {
	// DismissFirstRunCling marks the first-run hint as already seen.
	DismissFirstRunCling(ctx context.Context) error
	// DisableAutoFolders marks an existing user so new installs are not
	// grouped into folders automatically.
	DisableAutoFolders(ctx context.Context) error
}

type noHooks struct{}

func (noHooks) DismissFirstRunCling(context.Context) error { return nil }
func (noHooks) DisableAutoFolders(context.Context) error   { return nil }

// Step upgrades the schema from version From to From+1.
type Step struct {
	From  int
	Name  string
	Apply func(ctx context.Context, tx *Tx) error
}

// Chain is the ordered list of steps from MinVersion to CurrentVersion.
// Steps cannot be selected individually: an upgrade from v always runs
// every step from v to CurrentVersion.
type Chain struct {
	steps []Step
}

var errChainGap = errors.New("migration chain is not contiguous")

// NewChain validates that steps cover every version in
// [MinVersion, CurrentVersion) exactly once, in order.
func NewChain(steps []Step) (*Chain, error) {
	if len(steps) != CurrentVersion-MinVersion {
		return nil, fmt.Errorf("%w: %d steps for %d versions", errChainGap, len(steps), CurrentVersion-MinVersion)
	}
	for i, st := range steps {
		if st.From != MinVersion+i {
			return nil, fmt.Errorf("%w: step %d upgrades from %d", errChainGap, i, st.From)
		}
		if st.Apply == nil {
			return nil, fmt.Errorf("%w: step %d has no body", errChainGap, st.From)
		}
	}
	return &Chain{steps: steps}, nil
}

// DefaultChain returns the built-in migration chain.
func DefaultChain() *Chain {
	c, err := NewChain(defaultSteps())
	if err != nil {
		panic(err)
	}
	return c
}

// from returns the steps that bring version v to CurrentVersion.
func (c *Chain) from(v int) []Step {
	return c.steps[v-MinVersion:]
}

// migrate brings the persisted schema to CurrentVersion.
func (s *Store) migrate(ctx context.Context, chain *Chain) (Outcome, error) {
	version, err := userVersion(ctx, s.db)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{From: version, To: CurrentVersion}

	hasItems, err := tableExists(ctx, s.db, layout.TableItems)
	if err != nil {
		return Outcome{}, fmt.Errorf("check items table: %w", err)
	}

	switch {
	case version == CurrentVersion:
		return out, nil

	case version == 0 && !hasItems:
		slog.Info("creating layout store", "version", CurrentVersion)
		if err := s.Recreate(ctx); err != nil {
			return Outcome{}, err
		}
		out.Created = true
		return out, nil

	case version > CurrentVersion:
		slog.Warn("database version is newer than supported, wiping", "found", version, "supported", CurrentVersion)
		return s.recreateAfter(ctx, out)

	case version < MinVersion:
		slog.Warn("database version too old to upgrade, wiping", "found", version, "min", MinVersion)
		return s.recreateAfter(ctx, out)
	}

	for _, step := range chain.from(version) {
		err := s.WithTx(ctx, func(tx *Tx) error {
			if err := step.Apply(ctx, tx); err != nil {
				return err
			}
			return setUserVersion(ctx, tx.tx, step.From+1)
		})
		if err != nil {
			out.Err = &MigrationError{From: version, Step: step.From, Name: step.Name, Err: err}
			slog.Error("migration failed, recreating empty store",
				"from", version, "step", step.From, "name", step.Name, "error", err)
			return s.recreateAfter(ctx, out)
		}
		slog.Debug("migration applied", "step", step.From, "name", step.Name)
	}

	slog.Info("layout store upgraded", "from", version, "to", CurrentVersion)
	return out, nil
}

func (s *Store) recreateAfter(ctx context.Context, out Outcome) (Outcome, error) {
	if err := s.Recreate(ctx); err != nil {
		return Outcome{}, err
	}
	out.Recreated = true
	return out, nil
}

// recreate drops both tables and recreates them empty at CurrentVersion.
func (t *Tx) recreate(ctx context.Context) error {
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS items",
		"DROP TABLE IF EXISTS screens",
	} {
		if _, err := t.tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("recreate: %w", err)
		}
	}
	if _, err := t.tx.ExecContext(ctx, t.s.currentSchema()); err != nil {
		return fmt.Errorf("recreate: create schema: %w", err)
	}
	if err := setUserVersion(ctx, t.tx, CurrentVersion); err != nil {
		return fmt.Errorf("recreate: %w", err)
	}
	return nil
}

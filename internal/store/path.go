package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/layoutdb/internal/layout"
)

// Path addresses a table or a single row: "/items", "/items/42",
// "/screens", "/screens/3".
type Path struct {
	Table string
	ID    int64
	HasID bool
}

// ParsePath parses a resource path.
func ParsePath(p string) (Path, error) {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) == 0 || len(parts) > 2 || parts[0] == "" {
		return Path{}, fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	table := parts[0]
	if _, ok := tableColumns[table]; !ok {
		return Path{}, fmt.Errorf("%w: %q: %w", ErrInvalidPath, p, ErrUnknownTable)
	}
	if len(parts) == 1 {
		return Path{Table: table}, nil
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Path{}, fmt.Errorf("%w: %q: bad id", ErrInvalidPath, p)
	}
	return Path{Table: table, ID: id, HasID: true}, nil
}

// String formats the path.
func (p Path) String() string {
	if p.HasID {
		return fmt.Sprintf("/%s/%d", p.Table, p.ID)
	}
	return "/" + p.Table
}

// ItemPath returns the path of one item row.
func ItemPath(id int64) Path {
	return Path{Table: layout.TableItems, ID: id, HasID: true}
}

// Selection merges the path's row id with sel. A path that names a row
// cannot also carry a where clause.
func (p Path) Selection(sel Selection) (Selection, error) {
	if !p.HasID {
		return sel, nil
	}
	if strings.TrimSpace(sel.Where) != "" {
		return Selection{}, fmt.Errorf("%w: %s: where clause not supported with a row id", ErrInvalidPath, p)
	}
	byID := ByID(p.ID)
	sel.Where = byID.Where
	sel.Args = byID.Args
	return sel, nil
}
